package importtx

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/propledger/internal/http/render"
	"github.com/MrJamesThe3rd/propledger/internal/importer"
	"github.com/MrJamesThe3rd/propledger/internal/logging"
	"github.com/MrJamesThe3rd/propledger/internal/property"
)

type Authorizer interface {
	Authorize(ctx context.Context, propertyID, userID uuid.UUID, min property.Role) (property.Role, error)
}

type Handler struct {
	importSvc *importer.Service
	authz     Authorizer
	maxBytes  int64
}

func NewHandler(importSvc *importer.Service, authz Authorizer, maxBytes int64) *Handler {
	return &Handler{
		importSvc: importSvc,
		authz:     authz,
		maxBytes:  maxBytes,
	}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.importFile)
}

type previewResponse struct {
	OK      bool                       `json:"ok"`
	Preview []importer.ValidatedRow    `json:"preview"`
	Errors  []importer.ValidationError `json:"errors"`
}

type importResponse struct {
	OK       bool `json:"ok"`
	Inserted int  `json:"inserted"`
}

type failureResponse struct {
	OK       bool                       `json:"ok"`
	Message  string                     `json:"message"`
	Errors   []importer.ValidationError `json:"errors,omitempty"`
	Inserted *int                       `json:"inserted,omitempty"`
}

func (h *Handler) importFile(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > h.maxBytes {
		render.Error(w, http.StatusRequestEntityTooLarge, "File too large")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)

	if err := r.ParseMultipartForm(h.maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			render.Error(w, http.StatusRequestEntityTooLarge, "File too large")
			return
		}

		render.Error(w, http.StatusBadRequest, "failed to parse form: "+err.Error())

		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		render.Error(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	defer file.Close()

	rawPropertyID := r.FormValue("propertyId")
	if rawPropertyID == "" {
		render.Error(w, http.StatusBadRequest, "Missing propertyId")
		return
	}

	propertyID, err := uuid.Parse(rawPropertyID)
	if err != nil {
		render.Error(w, http.StatusBadRequest, "Invalid propertyId")
		return
	}

	mode, err := importer.ParseMode(r.FormValue("action"))
	if err != nil {
		render.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	userID, ok := render.User(w, r)
	if !ok {
		return
	}

	if _, err := h.authz.Authorize(r.Context(), propertyID, userID, property.RoleManager); err != nil {
		render.Err(w, r, err)
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		render.Error(w, http.StatusBadRequest, "failed to read file: "+err.Error())
		return
	}

	res, err := h.importSvc.Run(r.Context(), importer.Request{
		PropertyID: propertyID,
		FileName:   header.Filename,
		Data:       data,
		Mode:       mode,
	})

	switch {
	case errors.Is(err, importer.ErrDecode):
		render.JSON(w, http.StatusBadRequest, failureResponse{Message: err.Error(), Errors: res.Errors})
	case errors.Is(err, importer.ErrValidation):
		render.JSON(w, http.StatusBadRequest, failureResponse{Message: "Validation failed", Errors: res.Errors})
	case errors.Is(err, importer.ErrPersist):
		logging.FromContext(r.Context()).Error("import insert failed", "property_id", propertyID, "error", err)
		render.JSON(w, http.StatusInternalServerError, failureResponse{Message: "DB insert failed", Inserted: &res.Inserted})
	case err != nil:
		render.Err(w, r, err)
	case mode == importer.ModePreview:
		render.JSON(w, http.StatusOK, previewResponse{OK: true, Preview: res.Preview, Errors: res.Errors})
	default:
		render.JSON(w, http.StatusOK, importResponse{OK: true, Inserted: res.Inserted})
	}
}
