package transaction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/propledger/internal/http/render"
	"github.com/MrJamesThe3rd/propledger/internal/property"
	"github.com/MrJamesThe3rd/propledger/internal/transaction"
)

// PageSize is the number of transactions per page of a property listing.
const PageSize = 10

type Authorizer interface {
	Authorize(ctx context.Context, propertyID, userID uuid.UUID, min property.Role) (property.Role, error)
}

type Handler struct {
	svc   *transaction.Service
	authz Authorizer
}

func NewHandler(svc *transaction.Service, authz Authorizer) *Handler {
	return &Handler{svc: svc, authz: authz}
}

// Routes serves single transactions by id.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/{id}", h.get)
	r.Patch("/{id}", h.update)
	r.Delete("/{id}", h.delete)
}

// PropertyRoutes serves the transactions of one property. It is meant for the
// properties router, where {id} is the property id.
func (h *Handler) PropertyRoutes(r chi.Router) {
	r.Get("/{id}/transactions", h.list)
	r.Post("/{id}/transactions", h.create)
	r.Get("/{id}/summary", h.summary)
}

// dateValue accepts either a plain date or an RFC 3339 timestamp.
type dateValue struct {
	time.Time
}

func (d *dateValue) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}

	for _, layout := range []string{time.DateOnly, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			d.Time = t.UTC()
			return nil
		}
	}

	return fmt.Errorf("date %q: expected YYYY-MM-DD or RFC 3339", s)
}

type createTransactionRequest struct {
	Date         *dateValue      `json:"date"`
	Type         string          `json:"type"`
	Category     *string         `json:"category"`
	Counterparty *string         `json:"payee_payer"`
	Description  *string         `json:"description"`
	Amount       decimal.Decimal `json:"amount"`
	Currency     *string         `json:"currency"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	propertyID, ok := h.authorize(w, r, property.RoleManager)
	if !ok {
		return
	}

	var req createTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		render.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	typ, ok := transaction.ParseType(req.Type)
	if !ok {
		render.Err(w, r, transaction.ErrInvalidType)
		return
	}

	params := transaction.CreateParams{
		PropertyID:   propertyID,
		Type:         typ,
		Category:     blankToNil(req.Category),
		Counterparty: blankToNil(req.Counterparty),
		Description:  blankToNil(req.Description),
		Amount:       req.Amount,
		Currency:     blankToNil(req.Currency),
	}

	if req.Date != nil {
		params.Date = &req.Date.Time
	}

	tx, err := h.svc.Create(r.Context(), params)
	if err != nil {
		render.Err(w, r, err)
		return
	}

	render.JSON(w, http.StatusCreated, toResponse(tx))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	propertyID, ok := h.authorize(w, r, property.RoleViewer)
	if !ok {
		return
	}

	page := 1

	if s := r.URL.Query().Get("page"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			render.Error(w, http.StatusBadRequest, "page must be a positive integer")
			return
		}

		page = n
	}

	filter := transaction.ListFilter{
		PropertyID: &propertyID,
		Limit:      PageSize,
		Offset:     (page - 1) * PageSize,
	}

	if s := r.URL.Query().Get("start_date"); s != "" {
		if t, err := time.Parse(time.DateOnly, s); err == nil {
			filter.StartDate = &t
		}
	}

	if s := r.URL.Query().Get("end_date"); s != "" {
		if t, err := time.Parse(time.DateOnly, s); err == nil {
			filter.EndDate = &t
		}
	}

	txs, err := h.svc.List(r.Context(), filter)
	if err != nil {
		render.Err(w, r, err)
		return
	}

	total, err := h.svc.Count(r.Context(), propertyID)
	if err != nil {
		render.Err(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, pageResponse{
		Transactions: toResponseList(txs),
		Page:         page,
		PageSize:     PageSize,
		Total:        total,
		TotalPages:   (total + PageSize - 1) / PageSize,
	})
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	propertyID, ok := h.authorize(w, r, property.RoleViewer)
	if !ok {
		return
	}

	totals, err := h.svc.MonthlySummary(r.Context(), propertyID)
	if err != nil {
		render.Err(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, toSummaryResponse(totals))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	tx, ok := h.loadAuthorized(w, r, property.RoleViewer)
	if !ok {
		return
	}

	render.JSON(w, http.StatusOK, toResponse(tx))
}

type updateTransactionRequest struct {
	Date         *dateValue       `json:"date,omitempty"`
	Type         *string          `json:"type,omitempty"`
	Category     *string          `json:"category,omitempty"`
	Counterparty *string          `json:"payee_payer,omitempty"`
	Description  *string          `json:"description,omitempty"`
	Amount       *decimal.Decimal `json:"amount,omitempty"`
	Currency     *string          `json:"currency,omitempty"`
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	tx, ok := h.loadAuthorized(w, r, property.RoleManager)
	if !ok {
		return
	}

	var req updateTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		render.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	if req.Date != nil {
		tx.Date = &req.Date.Time
	}

	if req.Type != nil {
		typ, ok := transaction.ParseType(*req.Type)
		if !ok {
			render.Err(w, r, transaction.ErrInvalidType)
			return
		}

		tx.Type = typ
	}

	// An empty string clears the optional text fields.
	if req.Category != nil {
		tx.Category = blankToNil(req.Category)
	}

	if req.Counterparty != nil {
		tx.Counterparty = blankToNil(req.Counterparty)
	}

	if req.Description != nil {
		tx.Description = blankToNil(req.Description)
	}

	if req.Currency != nil {
		tx.Currency = blankToNil(req.Currency)
	}

	if req.Amount != nil {
		tx.Amount = *req.Amount
	}

	if err := h.svc.Update(r.Context(), tx); err != nil {
		render.Err(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, toResponse(tx))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	tx, ok := h.loadAuthorized(w, r, property.RoleManager)
	if !ok {
		return
	}

	if err := h.svc.Delete(r.Context(), tx.ID); err != nil {
		render.Err(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// authorize checks the caller's role on the property named by the {id} path parameter.
func (h *Handler) authorize(w http.ResponseWriter, r *http.Request, min property.Role) (uuid.UUID, bool) {
	userID, ok := render.User(w, r)
	if !ok {
		return uuid.Nil, false
	}

	propertyID, ok := render.PathID(w, r, "id")
	if !ok {
		return uuid.Nil, false
	}

	if _, err := h.authz.Authorize(r.Context(), propertyID, userID, min); err != nil {
		render.Err(w, r, err)
		return uuid.Nil, false
	}

	return propertyID, true
}

// loadAuthorized fetches the transaction named by {id} and checks the caller's
// role on the property it belongs to. Non-members get 404 so ids don't leak.
func (h *Handler) loadAuthorized(w http.ResponseWriter, r *http.Request, min property.Role) (*transaction.Transaction, bool) {
	userID, ok := render.User(w, r)
	if !ok {
		return nil, false
	}

	id, ok := render.PathID(w, r, "id")
	if !ok {
		return nil, false
	}

	tx, err := h.svc.Get(r.Context(), id)
	if err != nil {
		render.Err(w, r, err)
		return nil, false
	}

	if _, err := h.authz.Authorize(r.Context(), tx.PropertyID, userID, min); err != nil {
		if errors.Is(err, property.ErrNotMember) {
			render.Err(w, r, transaction.ErrNotFound)
			return nil, false
		}

		render.Err(w, r, err)

		return nil, false
	}

	return tx, true
}

func blankToNil(s *string) *string {
	if s == nil {
		return nil
	}

	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}

	return &v
}
