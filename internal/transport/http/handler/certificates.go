package handler

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/edudash-core/internal/application/alignment"
	"github.com/edudash-core/internal/application/certificate"
	"github.com/edudash-core/internal/domain"
	"github.com/edudash-core/internal/pkg/table"
	"github.com/edudash-core/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
)

// maxUploadBytes caps certificate page uploads at 10 MiB.
const maxUploadBytes = 10 << 20

// CertificateHandler serves certificate records and alignment edit sessions.
type CertificateHandler struct {
	svc *certificate.Service
}

func NewCertificateHandler(svc *certificate.Service) *CertificateHandler {
	return &CertificateHandler{svc: svc}
}

func actorFrom(r *http.Request) string {
	if claims, ok := middleware.ClaimsFromContext(r.Context()); ok {
		if claims.Name != "" {
			return claims.Name
		}
		return claims.UserID
	}
	return ""
}

// List returns certificate records, searchable and paginated via the
// search, page and per_page query parameters.
func (h *CertificateHandler) List(w http.ResponseWriter, r *http.Request) {
	token := middleware.TokenFromContext(r.Context())
	records, err := h.svc.List(r.Context(), token)
	if err != nil {
		httpError(w, err)
		return
	}
	model := table.New(records, func(c domain.CertificateRecord) []string {
		return []string{c.UploadID, string(c.Language)}
	})
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	if perPage < 1 {
		perPage = 20
	}
	writeJSON(w, http.StatusOK, model.Search(r.URL.Query().Get("search")).Paginate(page, perPage))
}

// Open starts or resumes an alignment edit session.
func (h *CertificateHandler) Open(w http.ResponseWriter, r *http.Request) {
	token := middleware.TokenFromContext(r.Context())
	view, err := h.svc.Open(r.Context(), token, chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *CertificateHandler) View(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.View(chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

type setFieldRequest struct {
	Axis  string `json:"axis"`
	Value string `json:"value"`
}

// SetField applies a manual coordinate entry to one field.
func (h *CertificateHandler) SetField(w http.ResponseWriter, r *http.Request) {
	var req setFieldRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	view, err := h.svc.SetField(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "field"), alignment.Axis(req.Axis), req.Value)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

type moveFieldRequest struct {
	CanvasLeft float64 `json:"canvas_left"`
	CanvasTop  float64 `json:"canvas_top"`
	PointerX   float64 `json:"pointer_x"`
	PointerY   float64 `json:"pointer_y"`
}

// MoveField applies one pointer drop to a field.
func (h *CertificateHandler) MoveField(w http.ResponseWriter, r *http.Request) {
	var req moveFieldRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	rect := alignment.CanvasRect{Left: req.CanvasLeft, Top: req.CanvasTop}
	view, err := h.svc.MoveField(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "field"), rect, req.PointerX, req.PointerY)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

type setPagesRequest struct {
	NumPages int `json:"num_pages"`
}

func (h *CertificateHandler) SetPages(w http.ResponseWriter, r *http.Request) {
	var req setPagesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	view, err := h.svc.SetPages(r.Context(), chi.URLParam(r, "id"), req.NumPages)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// Save replaces the persisted alignment config upstream.
func (h *CertificateHandler) Save(w http.ResponseWriter, r *http.Request) {
	token := middleware.TokenFromContext(r.Context())
	uploadID := chi.URLParam(r, "id")
	if err := h.svc.Save(r.Context(), token, uploadID, actorFrom(r)); err != nil {
		httpError(w, err)
		return
	}
	view, err := h.svc.View(uploadID)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *CertificateHandler) Discard(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.Discard(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func pageParam(r *http.Request) (int, error) {
	return strconv.Atoi(chi.URLParam(r, "page"))
}

// PageFile streams one stored certificate page to the browser.
func (h *CertificateHandler) PageFile(w http.ResponseWriter, r *http.Request) {
	page, err := pageParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "page must be a number")
		return
	}
	body, contentType, err := h.svc.PageFile(r.Context(), chi.URLParam(r, "id"), page, chi.URLParam(r, "filename"))
	if err != nil {
		httpError(w, err)
		return
	}
	defer body.Close()
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, body)
}

type pageURLResponse struct {
	URL string `json:"url"`
}

// PageURL hands the editor a time-limited render URL for a stored page.
func (h *CertificateHandler) PageURL(w http.ResponseWriter, r *http.Request) {
	page, err := pageParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "page must be a number")
		return
	}
	url, err := h.svc.PageURL(r.Context(), chi.URLParam(r, "id"), page, chi.URLParam(r, "filename"))
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pageURLResponse{URL: url})
}

// DeletePage removes one stored certificate page.
func (h *CertificateHandler) DeletePage(w http.ResponseWriter, r *http.Request) {
	page, err := pageParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "page must be a number")
		return
	}
	if err := h.svc.DeletePage(r.Context(), chi.URLParam(r, "id"), page, chi.URLParam(r, "filename"), actorFrom(r)); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "page deleted"})
}

// AuditTrail lists recorded operator actions of one kind.
func (h *CertificateHandler) AuditTrail(w http.ResponseWriter, r *http.Request) {
	events, err := h.svc.AuditTrail(r.Context(), chi.URLParam(r, "kind"))
	if err != nil {
		httpError(w, err)
		return
	}
	if events == nil {
		events = []domain.AuditEvent{}
	}
	writeJSON(w, http.StatusOK, events)
}

// Upload receives a multipart certificate page file, stores it and registers
// the resulting URL on the upstream record.
func (h *CertificateHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	page, err := strconv.Atoi(r.FormValue("page"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "page must be a number")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file")
		return
	}
	defer file.Close()

	token := middleware.TokenFromContext(r.Context())
	url, err := h.svc.UploadPage(r.Context(), token, chi.URLParam(r, "id"), page, header.Filename, file, actorFrom(r))
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, MessageEnvelope{Message: fmt.Sprintf("page %d uploaded: %s", page, url)})
}
