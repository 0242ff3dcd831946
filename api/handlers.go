/*
handlers.go - HTTP API handlers for the billing engine

PURPOSE:
  Exposes the invoice engine via REST. Handles HTTP request/response,
  JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Invoices:
    GET    /api/invoices?sort=&status=   Projected invoice list
    POST   /api/invoices                 Create invoice
    PATCH  /api/invoices/{id}            Partial update
    POST   /api/invoices/{id}/pay        Mark paid (idempotent)
    DELETE /api/invoices/{id}            Delete invoice
    GET    /api/invoices/{id}/document   PDF artifact
    GET    /api/invoices/{id}/paylink    External payment URL

  Clients / Jobs:
    GET/POST  /api/clients        DELETE /api/clients/{id}
    GET/POST  /api/jobs           DELETE /api/jobs/{id}
    POST      /api/jobs/{id}/status

SESSIONS:
  Every request carries a bearer token. The handler keeps one engine
  session per token, opened lazily; the session's owner scoping and
  per-id serialization then apply to all of that caller's requests.

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 401: No or unknown credential
  - 404: Invoice not found (or not owned by caller)
  - 500: Export failure, internal errors
  - 502: Record store unreachable

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/landflow/billing-engine/billing"
	"github.com/landflow/billing-engine/crm"
	"github.com/landflow/billing-engine/export"
	"github.com/landflow/billing-engine/paylink"
)

// =============================================================================
// HANDLER
// =============================================================================

// Handler holds all dependencies for the HTTP API.
type Handler struct {
	store    billing.RecordStore
	registry *crm.Registry
	exporter *export.Exporter
	links    paylink.Generator

	mu       sync.Mutex
	sessions map[string]*billing.Session // one engine session per credential
}

func NewHandler(store billing.RecordStore, registry *crm.Registry, exporter *export.Exporter, links paylink.Generator) *Handler {
	return &Handler{
		store:    store,
		registry: registry,
		exporter: exporter,
		links:    links,
		sessions: make(map[string]*billing.Session),
	}
}

// session returns the caller's engine session, opening one on first use.
func (h *Handler) session(r *http.Request) (*billing.Session, error) {
	credential, ok := billing.CredentialFromContext(r.Context())
	if !ok {
		return nil, billing.ErrUnauthenticated
	}

	h.mu.Lock()
	s, cached := h.sessions[credential]
	h.mu.Unlock()
	if cached {
		return s, nil
	}

	s, err := billing.OpenSession(r.Context(), h.store)
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if existing, ok := h.sessions[credential]; ok {
		s.Close()
		return existing, nil
	}
	h.sessions[credential] = s
	return s, nil
}

// =============================================================================
// INVOICE HANDLERS
// =============================================================================

func (h *Handler) ListInvoices(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(r)
	if err != nil {
		writeError(w, err)
		return
	}

	sortKey := billing.SortKey(r.URL.Query().Get("sort"))
	if sortKey == "" {
		sortKey = billing.SortDateDesc
	}
	status := billing.StatusFilter(r.URL.Query().Get("status"))
	if status == "" {
		status = billing.FilterAll
	}

	view := billing.Project(s.Snapshot(), sortKey, status)
	writeJSON(w, http.StatusOK, toInvoiceDTOs(view))
}

func (h *Handler) CreateInvoice(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req CreateInvoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, &billing.ValidationError{Field: "body", Reason: "malformed JSON"})
		return
	}

	inv, err := s.Create(r.Context(), req.draft())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toInvoiceDTO(inv))
}

func (h *Handler) UpdateInvoice(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(r)
	if err != nil {
		writeError(w, err)
		return
	}
	id, err := invoiceID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req UpdateInvoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, &billing.ValidationError{Field: "body", Reason: "malformed JSON"})
		return
	}
	patch, err := req.patch()
	if err != nil {
		writeError(w, err)
		return
	}

	inv, err := s.Update(r.Context(), id, patch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toInvoiceDTO(inv))
}

func (h *Handler) MarkInvoicePaid(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(r)
	if err != nil {
		writeError(w, err)
		return
	}
	id, err := invoiceID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	inv, err := s.MarkPaid(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toInvoiceDTO(inv))
}

func (h *Handler) DeleteInvoice(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(r)
	if err != nil {
		writeError(w, err)
		return
	}
	id, err := invoiceID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := s.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) GetInvoiceDocument(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(r)
	if err != nil {
		writeError(w, err)
		return
	}
	id, err := invoiceID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	inv, err := s.Get(id)
	if err != nil {
		writeError(w, err)
		return
	}

	doc, err := h.exporter.Export(inv)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc.Bytes)
}

func (h *Handler) GetInvoicePayLink(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(r)
	if err != nil {
		writeError(w, err)
		return
	}
	id, err := invoiceID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	inv, err := s.Get(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, PayLinkDTO{URL: h.links.BuildLink(inv.Client, inv.Amount)})
}

// =============================================================================
// CLIENT / JOB HANDLERS
// =============================================================================

func (h *Handler) ListClients(w http.ResponseWriter, r *http.Request) {
	clients := h.registry.Clients()
	out := make([]ClientDTO, len(clients))
	for i, c := range clients {
		out[i] = toClientDTO(c)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) CreateClient(w http.ResponseWriter, r *http.Request) {
	var req CreateClientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, &billing.ValidationError{Field: "body", Reason: "malformed JSON"})
		return
	}

	c, err := h.registry.AddClient(crm.Client{
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Address: req.Address,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toClientDTO(c))
}

func (h *Handler) DeleteClient(w http.ResponseWriter, r *http.Request) {
	if err := h.registry.RemoveClient(chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request) {
	jobs := h.registry.Jobs()
	out := make([]JobDTO, len(jobs))
	for i, j := range jobs {
		out[i] = toJobDTO(j)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) CreateJob(w http.ResponseWriter, r *http.Request) {
	var req CreateJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, &billing.ValidationError{Field: "body", Reason: "malformed JSON"})
		return
	}
	date, err := billing.ParseDate(req.Date)
	if err != nil {
		writeError(w, &billing.ValidationError{Field: "date", Reason: "not a calendar date"})
		return
	}

	j, err := h.registry.AddJob(crm.Job{Title: req.Title, Client: req.Client, Date: date})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toJobDTO(j))
}

func (h *Handler) DeleteJob(w http.ResponseWriter, r *http.Request) {
	if err := h.registry.RemoveJob(chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) SetJobStatus(w http.ResponseWriter, r *http.Request) {
	var req SetJobStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, &billing.ValidationError{Field: "body", Reason: "malformed JSON"})
		return
	}

	j, err := h.registry.SetJobStatus(chi.URLParam(r, "id"), crm.JobStatus(req.Status))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toJobDTO(j))
}

// =============================================================================
// HELPERS
// =============================================================================

func invoiceID(r *http.Request) (billing.InvoiceID, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, &billing.ValidationError{Field: "id", Reason: "not an integer"}
	}
	return billing.InvoiceID(id), nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, billing.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, billing.ErrUnauthenticated):
		status = http.StatusUnauthorized
	case errors.Is(err, billing.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, billing.ErrStore):
		status = http.StatusBadGateway
	case errors.Is(err, billing.ErrExport):
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, ErrorDTO{Error: err.Error()})
}
