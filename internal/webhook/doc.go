// Package webhook is the inbound HTTP surface of §6: bounce/delivery/
// mailwizz/powermta event webhooks (HMAC-SHA256 authenticated, optional
// source-IP allow-list, rate-limited), a node health endpoint, a
// Prometheus metrics endpoint, and the admin IP create/delete endpoints
// that front internal/provision. Routing follows the teacher's chi
// server (internal/api/server.go, internal/api/routes.go): one
// *chi.Mux, middleware stack first, route groups after.
package webhook
