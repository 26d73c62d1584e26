package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/torvik/resellerpanel/internal/api/request"
	"github.com/torvik/resellerpanel/internal/api/response"
	"github.com/torvik/resellerpanel/internal/core"
	"github.com/torvik/resellerpanel/internal/model"
)

type Certificate struct {
	svc *core.CertificateService
}

func NewCertificate(svc *core.CertificateService) *Certificate {
	return &Certificate{svc: svc}
}

// redactKey strips the private key from an API response. The key never
// leaves the panel through the read endpoints.
func redactKey(c *model.Certificate) *model.Certificate {
	c.KeyPEM = nil
	return c
}

// Create registers a new certificate for a hosting account. The domain is
// classified against the configured service domains; no DNS or CA calls
// happen yet.
func (h *Certificate) Create(w http.ResponseWriter, r *http.Request) {
	accountID, err := request.RequireID(chi.URLParam(r, "accountID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req request.CreateCertificate
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	cert := &model.Certificate{
		HostingAccountID: accountID,
		Domain:           req.Domain,
		Provider:         req.Provider,
	}
	if err := h.svc.Create(r.Context(), cert); err != nil {
		writeServiceError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusCreated, redactKey(cert))
}

// Upload stores a customer-provided certificate. Validation runs
// asynchronously; poll the certificate until it reaches issued or failed.
func (h *Certificate) Upload(w http.ResponseWriter, r *http.Request) {
	accountID, err := request.RequireID(chi.URLParam(r, "accountID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req request.UploadCertificate
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	cert := &model.Certificate{
		HostingAccountID: accountID,
		Domain:           req.Domain,
		CertPEM:          &req.CertPEM,
		KeyPEM:           &req.KeyPEM,
	}
	if req.CAPEM != "" {
		cert.CAPEM = &req.CAPEM
	}
	if err := h.svc.Upload(r.Context(), cert); err != nil {
		writeServiceError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusAccepted, redactKey(cert))
}

func (h *Certificate) ListByAccount(w http.ResponseWriter, r *http.Request) {
	accountID, err := request.RequireID(chi.URLParam(r, "accountID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	pg := request.ParsePagination(r)

	certs, hasMore, err := h.svc.ListByAccount(r.Context(), accountID, pg.Limit, pg.Cursor)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	for i := range certs {
		certs[i].KeyPEM = nil
	}
	var nextCursor string
	if hasMore && len(certs) > 0 {
		nextCursor = certs[len(certs)-1].ID
	}
	response.WritePaginated(w, http.StatusOK, certs, nextCursor, hasMore)
}

func (h *Certificate) Get(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	cert, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, redactKey(cert))
}

// Events lists the issuance audit trail for a certificate.
func (h *Certificate) Events(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	pg := request.ParsePagination(r)

	events, hasMore, err := h.svc.Events(r.Context(), id, pg.Limit, pg.Cursor)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	var nextCursor string
	if hasMore && len(events) > 0 {
		nextCursor = events[len(events)-1].ID
	}
	response.WritePaginated(w, http.StatusOK, events, nextCursor, hasMore)
}

// StartVerification provisions the DNS validation chain for the certificate.
func (h *Certificate) StartVerification(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.svc.StartVerification(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusAccepted, map[string]string{"status": "verification_started"})
}

// VerifyDomain checks the validation record on public DNS. A false result
// is a normal outcome, not an error: the record has not propagated yet.
func (h *Certificate) VerifyDomain(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	verified, err := h.svc.VerifyDomain(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, map[string]bool{"verified": verified})
}

// Issue runs one issuance attempt and blocks until it finishes, so the
// response reflects the attempt's outcome.
func (h *Certificate) Issue(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.svc.Issue(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}

	cert, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, redactKey(cert))
}

// Retry moves a failed certificate back to the requested re-entry point.
// An empty body retries issuance from verified.
func (h *Certificate) Retry(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req request.RetryCertificate
	if r.ContentLength > 0 {
		if err := request.Decode(r, &req); err != nil {
			response.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	if err := h.svc.Retry(r.Context(), id, req.Target); err != nil {
		writeServiceError(w, err)
		return
	}

	cert, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, redactKey(cert))
}
