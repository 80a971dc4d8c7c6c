package webhook

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/coldroute/coldroute/internal/apperr"
	"github.com/coldroute/coldroute/internal/domain"
	"github.com/coldroute/coldroute/internal/pkg/httputil"
	"github.com/coldroute/coldroute/internal/provision"
)

// createIPRequest is the body of POST /admin/ips.
type createIPRequest struct {
	TenantRef             string `json:"tenant_ref" validate:"required"`
	Address               string `json:"address" validate:"required,ip"`
	Hostname              string `json:"hostname" validate:"required,hostname"`
	Purpose               string `json:"purpose" validate:"required,oneof=transactional marketing cold standby"`
	Weight                int    `json:"weight"`
	SenderEmail           string `json:"sender_email"`
	NodeID                string `json:"node_id"`
	VMTAName              string `json:"vmta_name"`
	DKIMKeyPath           string `json:"dkim_key_path"`
	FromName              string `json:"from_name"`
	HourlyQuota           int    `json:"hourly_quota"`
	MaxConnectionMessages int    `json:"max_connection_messages"`
	CustomerRef           string `json:"customer_ref"`
}

// deleteIPRequest is the body of DELETE /admin/ips/{id}.
type deleteIPRequest struct {
	Deprovision bool `json:"deprovision"`
}

// HandleCreateIP handles POST /admin/ips.
func (h *Handlers) HandleCreateIP(w http.ResponseWriter, r *http.Request) {
	var req createIPRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	ip, err := h.provider.Create(r.Context(), provision.CreateParams{
		TenantRef:             req.TenantRef,
		Address:               req.Address,
		Hostname:              req.Hostname,
		Purpose:               domain.IPPurpose(req.Purpose),
		Weight:                req.Weight,
		SenderEmail:           req.SenderEmail,
		NodeID:                req.NodeID,
		VMTAName:              req.VMTAName,
		DKIMKeyPath:           req.DKIMKeyPath,
		FromName:              req.FromName,
		HourlyQuota:           req.HourlyQuota,
		MaxConnectionMessages: req.MaxConnectionMessages,
		CustomerRef:           req.CustomerRef,
	})
	if err != nil {
		writeAppError(w, err)
		return
	}
	httputil.Created(w, ip)
}

// HandleDeleteIP handles DELETE /admin/ips/{id}.
func (h *Handlers) HandleDeleteIP(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req deleteIPRequest
	if r.ContentLength != 0 {
		if !httputil.Decode(w, r, &req) {
			return
		}
	}

	ip, err := h.ips.Get(r.Context(), id)
	if err != nil {
		writeAppError(w, err)
		return
	}
	if err := h.provider.Delete(r.Context(), ip, req.Deprovision); err != nil {
		writeAppError(w, err)
		return
	}
	httputil.NoContent(w)
}

// writeAppError maps an apperr.Kind to its HTTP status.
func writeAppError(w http.ResponseWriter, err error) {
	switch apperr.KindOf(err) {
	case apperr.NotFound:
		httputil.NotFound(w, err.Error())
	case apperr.Conflict:
		httputil.Error(w, http.StatusConflict, err.Error())
	case apperr.InvalidState:
		httputil.Error(w, http.StatusUnprocessableEntity, err.Error())
	case apperr.Validation:
		httputil.BadRequest(w, err.Error())
	case apperr.Permission:
		httputil.Error(w, http.StatusForbidden, err.Error())
	case apperr.ServiceUnavailable:
		httputil.Error(w, http.StatusServiceUnavailable, err.Error())
	default:
		httputil.InternalError(w, err)
	}
}
