package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/coldroute/coldroute/internal/apperr"
	"github.com/coldroute/coldroute/internal/domain"
)

type mockIPResolver struct {
	byAddress map[string]*domain.IP
	byVMTA    map[string]*domain.IP
	byID      map[string]*domain.IP
}

func newMockIPResolver() *mockIPResolver {
	return &mockIPResolver{
		byAddress: map[string]*domain.IP{},
		byVMTA:    map[string]*domain.IP{},
		byID:      map[string]*domain.IP{},
	}
}

func (m *mockIPResolver) add(ip *domain.IP) {
	m.byID[ip.ID] = ip
	if ip.Address != "" {
		m.byAddress[ip.Address] = ip
	}
	if ip.VMTAName != "" {
		m.byVMTA[ip.VMTAName] = ip
	}
}

func (m *mockIPResolver) GetByAddressGlobal(_ context.Context, address string) (*domain.IP, error) {
	if ip, ok := m.byAddress[address]; ok {
		return ip, nil
	}
	return nil, apperr.New(apperr.NotFound, "ip not found")
}

func (m *mockIPResolver) GetByVMTAName(_ context.Context, vmta string) (*domain.IP, error) {
	if ip, ok := m.byVMTA[vmta]; ok {
		return ip, nil
	}
	return nil, apperr.New(apperr.NotFound, "ip not found")
}

func (m *mockIPResolver) Get(_ context.Context, id string) (*domain.IP, error) {
	if ip, ok := m.byID[id]; ok {
		return ip, nil
	}
	return nil, apperr.New(apperr.NotFound, "ip not found")
}

type recordedEvent struct {
	ip        *domain.IP
	kind      domain.EventKind
	recipient string
	detail    string
}

type mockEventRecorder struct {
	events []recordedEvent
}

func (m *mockEventRecorder) RecordEvent(_ context.Context, ip *domain.IP, kind domain.EventKind, recipient, detail string) error {
	m.events = append(m.events, recordedEvent{ip: ip, kind: kind, recipient: recipient, detail: detail})
	return nil
}

func TestHandleBounceAttributesByVMTA(t *testing.T) {
	ips := newMockIPResolver()
	ips.add(&domain.IP{ID: "ip-1", Address: "203.0.113.5", VMTAName: "vmta-1", Status: domain.IPWarming})
	events := &mockEventRecorder{}
	h := NewHandlers(ips, events, nil, nil)

	body, _ := json.Marshal(bouncePayload{
		Email: "a@b.com", BounceType: "hard", Reason: "mailbox full",
		SourceIP: "203.0.113.5", VMTA: "vmta-1",
	})
	req := httptest.NewRequest(http.MethodPost, "/webhooks/bounce", bytes.NewReader(body))
	w := httptest.NewRecorder()

	h.HandleBounce(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if len(events.events) != 1 {
		t.Fatalf("expected one recorded event, got %d", len(events.events))
	}
	if events.events[0].kind != domain.EventBounced {
		t.Fatalf("expected bounced kind, got %s", events.events[0].kind)
	}
}

func TestHandleBounceComplaintMapsToComplained(t *testing.T) {
	ips := newMockIPResolver()
	ips.add(&domain.IP{ID: "ip-1", Address: "203.0.113.5", Status: domain.IPWarming})
	events := &mockEventRecorder{}
	h := NewHandlers(ips, events, nil, nil)

	body, _ := json.Marshal(bouncePayload{
		Email: "a@b.com", BounceType: "complaint", SourceIP: "203.0.113.5",
	})
	req := httptest.NewRequest(http.MethodPost, "/webhooks/bounce", bytes.NewReader(body))
	w := httptest.NewRecorder()

	h.HandleBounce(w, req)

	if len(events.events) != 1 || events.events[0].kind != domain.EventComplained {
		t.Fatalf("expected complained kind, got %+v", events.events)
	}
}

func TestHandleBounceUnattributedStillReturnsOK(t *testing.T) {
	ips := newMockIPResolver()
	events := &mockEventRecorder{}
	h := NewHandlers(ips, events, nil, nil)

	body, _ := json.Marshal(bouncePayload{
		Email: "a@b.com", BounceType: "hard", SourceIP: "198.51.100.9",
	})
	req := httptest.NewRequest(http.MethodPost, "/webhooks/bounce", bytes.NewReader(body))
	w := httptest.NewRecorder()

	h.HandleBounce(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 even when unattributable, got %d", w.Code)
	}
	if len(events.events) != 0 {
		t.Fatalf("expected no event recorded for unattributable bounce")
	}
}

func TestHandleMailwizzEventRejectsInvalidLabel(t *testing.T) {
	ips := newMockIPResolver()
	events := &mockEventRecorder{}
	h := NewHandlers(ips, events, nil, nil)

	body, _ := json.Marshal(map[string]string{
		"recipient": "a@b.com", "event": "not-a-real-label",
	})
	req := httptest.NewRequest(http.MethodPost, "/webhooks/mailwizz", bytes.NewReader(body))
	w := httptest.NewRecorder()

	h.HandleMailwizz(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid event label, got %d", w.Code)
	}
}

func TestHandleDeliveryRecordsNoEvent(t *testing.T) {
	events := &mockEventRecorder{}
	h := NewHandlers(newMockIPResolver(), events, nil, nil)

	body, _ := json.Marshal(deliveryPayload{Domain: "example.com", Count: 42})
	req := httptest.NewRequest(http.MethodPost, "/webhooks/delivery", bytes.NewReader(body))
	w := httptest.NewRecorder()

	h.HandleDelivery(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if len(events.events) != 0 {
		t.Fatalf("delivery webhook has no IP attribution and must not record an event")
	}
}
