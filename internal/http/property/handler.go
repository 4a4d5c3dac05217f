package property

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/propledger/internal/http/render"
	"github.com/MrJamesThe3rd/propledger/internal/property"
)

type Handler struct {
	svc *property.Service
}

func NewHandler(svc *property.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Patch("/{id}", h.update)
	r.Delete("/{id}", h.delete)
	r.Get("/{id}/members", h.members)
	r.Put("/{id}/members/{userID}", h.setMember)
}

type propertyResponse struct {
	ID          uuid.UUID          `json:"id"`
	Name        string             `json:"name"`
	Address     *string            `json:"address"`
	Role        property.Role      `json:"role,omitempty"`
	Permissions *permissionsResult `json:"permissions,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   *time.Time         `json:"updated_at,omitempty"`
}

type permissionsResult struct {
	ManageTransactions bool `json:"manage_transactions"`
	EditProperty       bool `json:"edit_property"`
	DeleteProperty     bool `json:"delete_property"`
}

type memberResponse struct {
	UserID    uuid.UUID     `json:"user_id"`
	Role      property.Role `json:"role"`
	CreatedAt time.Time     `json:"created_at"`
}

func toResponse(p *property.Property) propertyResponse {
	return propertyResponse{
		ID:        p.ID,
		Name:      p.Name,
		Address:   p.Address,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func withRole(resp propertyResponse, role property.Role) propertyResponse {
	resp.Role = role
	resp.Permissions = &permissionsResult{
		ManageTransactions: role.CanManageTransactions(),
		EditProperty:       role.CanEditProperty(),
		DeleteProperty:     role.CanDeleteProperty(),
	}

	return resp
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	userID, ok := render.User(w, r)
	if !ok {
		return
	}

	props, err := h.svc.List(r.Context(), property.ListFilter{MemberID: &userID})
	if err != nil {
		render.Err(w, r, err)
		return
	}

	resp := make([]propertyResponse, len(props))
	for i, p := range props {
		resp[i] = toResponse(p)
	}

	render.JSON(w, http.StatusOK, resp)
}

type propertyRequest struct {
	Name    string  `json:"name"`
	Address *string `json:"address"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	userID, ok := render.User(w, r)
	if !ok {
		return
	}

	var req propertyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		render.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	p, err := h.svc.Create(r.Context(), userID, property.CreateParams{Name: req.Name, Address: req.Address})
	if err != nil {
		render.Err(w, r, err)
		return
	}

	render.JSON(w, http.StatusCreated, withRole(toResponse(p), property.RoleOwner))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, role, ok := h.authorize(w, r, property.RoleViewer)
	if !ok {
		return
	}

	p, err := h.svc.Get(r.Context(), id)
	if err != nil {
		render.Err(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, withRole(toResponse(p), role))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, role, ok := h.authorize(w, r, property.RoleManager)
	if !ok {
		return
	}

	var req propertyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		render.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	p, err := h.svc.Update(r.Context(), id, property.UpdateParams{Name: req.Name, Address: req.Address})
	if err != nil {
		render.Err(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, withRole(toResponse(p), role))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, _, ok := h.authorize(w, r, property.RoleOwner)
	if !ok {
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		render.Err(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) members(w http.ResponseWriter, r *http.Request) {
	id, _, ok := h.authorize(w, r, property.RoleViewer)
	if !ok {
		return
	}

	members, err := h.svc.Members(r.Context(), id)
	if err != nil {
		render.Err(w, r, err)
		return
	}

	resp := make([]memberResponse, len(members))
	for i, m := range members {
		resp[i] = memberResponse{UserID: m.UserID, Role: m.Role, CreatedAt: m.CreatedAt}
	}

	render.JSON(w, http.StatusOK, resp)
}

type setMemberRequest struct {
	Role string `json:"role"`
}

func (h *Handler) setMember(w http.ResponseWriter, r *http.Request) {
	id, _, ok := h.authorize(w, r, property.RoleOwner)
	if !ok {
		return
	}

	memberID, ok := render.PathID(w, r, "userID")
	if !ok {
		return
	}

	var req setMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		render.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	role, err := property.ParseRole(req.Role)
	if err != nil {
		render.Err(w, r, err)
		return
	}

	m, err := h.svc.SetMember(r.Context(), id, memberID, role)
	if err != nil {
		render.Err(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, memberResponse{UserID: m.UserID, Role: m.Role, CreatedAt: m.CreatedAt})
}

func (h *Handler) authorize(w http.ResponseWriter, r *http.Request, min property.Role) (uuid.UUID, property.Role, bool) {
	userID, ok := render.User(w, r)
	if !ok {
		return uuid.Nil, "", false
	}

	id, ok := render.PathID(w, r, "id")
	if !ok {
		return uuid.Nil, "", false
	}

	role, err := h.svc.Authorize(r.Context(), id, userID, min)
	if err != nil {
		render.Err(w, r, err)
		return uuid.Nil, "", false
	}

	return id, role, true
}
