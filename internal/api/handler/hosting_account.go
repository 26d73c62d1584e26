package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/torvik/resellerpanel/internal/api/request"
	"github.com/torvik/resellerpanel/internal/api/response"
	"github.com/torvik/resellerpanel/internal/core"
	"github.com/torvik/resellerpanel/internal/model"
)

type HostingAccount struct {
	svc *core.HostingAccountService
}

func NewHostingAccount(svc *core.HostingAccountService) *HostingAccount {
	return &HostingAccount{svc: svc}
}

func (h *HostingAccount) Create(w http.ResponseWriter, r *http.Request) {
	var req request.CreateHostingAccount
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	account := &model.HostingAccount{
		UserID:   req.UserID,
		Username: req.Username,
		Domain:   req.Domain,
	}
	if err := h.svc.Create(r.Context(), account); err != nil {
		writeServiceError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusCreated, account)
}

func (h *HostingAccount) Get(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	account, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, account)
}

func (h *HostingAccount) List(w http.ResponseWriter, r *http.Request) {
	pg := request.ParsePagination(r)

	accounts, hasMore, err := h.svc.List(r.Context(), pg.Limit, pg.Cursor)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	var nextCursor string
	if hasMore && len(accounts) > 0 {
		nextCursor = accounts[len(accounts)-1].ID
	}
	response.WritePaginated(w, http.StatusOK, accounts, nextCursor, hasMore)
}

// SetStatus moves an account between active and suspended.
func (h *HostingAccount) SetStatus(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req request.SetAccountStatus
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.svc.SetStatus(r.Context(), id, req.Status); err != nil {
		writeServiceError(w, err)
		return
	}

	account, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, account)
}

func (h *HostingAccount) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
