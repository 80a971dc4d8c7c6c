package webhook

import (
	"net/http"

	"github.com/coldroute/coldroute/internal/apperr"
	"github.com/coldroute/coldroute/internal/domain"
	"github.com/coldroute/coldroute/internal/pkg/httputil"
	"github.com/coldroute/coldroute/internal/pkg/logger"
)

// Handlers implements the inbound webhook surface of §6.
type Handlers struct {
	ips      IPResolver
	events   EventRecorder
	provider Provisioner
	nodes    NodeHealthChecker
}

// NewHandlers builds the webhook handler set over the given collaborators.
func NewHandlers(ips IPResolver, events EventRecorder, provider Provisioner, nodes NodeHealthChecker) *Handlers {
	return &Handlers{ips: ips, events: events, provider: provider, nodes: nodes}
}

func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	if !httputil.Decode(w, r, dst) {
		return false
	}
	if err := validate.Struct(dst); err != nil {
		httputil.BadRequest(w, "validation failed: "+err.Error())
		return false
	}
	return true
}

// resolveIP finds the IP an event belongs to, preferring vmta name (more
// specific) and falling back to source IP. Returns nil, nil when neither
// handle is set or matches, which callers treat as "nothing to attribute".
func (h *Handlers) resolveIP(r *http.Request, vmta, sourceIP string) (*domain.IP, error) {
	if vmta != "" {
		ip, err := h.ips.GetByVMTAName(r.Context(), vmta)
		if err == nil {
			return ip, nil
		}
		if !apperr.Is(err, apperr.NotFound) {
			return nil, err
		}
	}
	if sourceIP != "" {
		ip, err := h.ips.GetByAddressGlobal(r.Context(), sourceIP)
		if err == nil {
			return ip, nil
		}
		if !apperr.Is(err, apperr.NotFound) {
			return nil, err
		}
	}
	return nil, nil
}

// bounceKind maps a bounce webhook's bounce_type to the consolidator's
// event-kind vocabulary.
func bounceKind(bounceType string) domain.EventKind {
	if bounceType == "complaint" {
		return domain.EventComplained
	}
	return domain.EventBounced
}

// HandleBounce handles POST /webhooks/bounce.
func (h *Handlers) HandleBounce(w http.ResponseWriter, r *http.Request) {
	var p bouncePayload
	if !decodeAndValidate(w, r, &p) {
		return
	}

	ip, err := h.resolveIP(r, p.VMTA, p.SourceIP)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	if ip == nil {
		logger.Warn("bounce webhook: unattributable event", "email", p.Email, "source_ip", p.SourceIP, "vmta", p.VMTA)
		httputil.OK(w, map[string]string{"status": "recorded_unattributed"})
		return
	}
	if err := h.events.RecordEvent(r.Context(), ip, bounceKind(p.BounceType), p.Email, p.Reason); err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, map[string]string{"status": "ok"})
}

// HandleDelivery handles POST /webhooks/delivery. This schema carries a
// domain and a count with no IP attribution, so it is recorded for audit
// only and never reaches the per-IP counter cache.
func (h *Handlers) HandleDelivery(w http.ResponseWriter, r *http.Request) {
	var p deliveryPayload
	if !decodeAndValidate(w, r, &p) {
		return
	}
	logger.Info("delivery webhook received", "domain", p.Domain, "count", p.Count)
	httputil.OK(w, map[string]string{"status": "ok"})
}

// handleEvent is the shared implementation of /webhooks/mailwizz and
// /webhooks/powermta: both carry a recipient and an event label.
func (h *Handlers) handleEvent(w http.ResponseWriter, r *http.Request) {
	var p eventPayload
	if !decodeAndValidate(w, r, &p) {
		return
	}

	ip, err := h.resolveIP(r, p.VMTA, p.SourceIP)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	if ip == nil {
		logger.Warn("event webhook: unattributable event", "recipient", p.Recipient, "event", p.Event)
		httputil.OK(w, map[string]string{"status": "recorded_unattributed"})
		return
	}
	if err := h.events.RecordEvent(r.Context(), ip, domain.EventKind(p.Event), p.Recipient, p.Detail); err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, map[string]string{"status": "ok"})
}

// HandleMailwizz handles POST /webhooks/mailwizz.
func (h *Handlers) HandleMailwizz(w http.ResponseWriter, r *http.Request) { h.handleEvent(w, r) }

// HandlePowerMTA handles POST /webhooks/powermta.
func (h *Handlers) HandlePowerMTA(w http.ResponseWriter, r *http.Request) { h.handleEvent(w, r) }
