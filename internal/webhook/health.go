package webhook

import (
	"net/http"

	"github.com/coldroute/coldroute/internal/pkg/httputil"
)

// nodeHealthView is the JSON shape of one node's health report.
type nodeHealthView struct {
	NodeID     string `json:"node_id"`
	Reachable  bool   `json:"reachable"`
	Running    bool   `json:"running"`
	QueueDepth int    `json:"queue_depth"`
	Error      string `json:"error,omitempty"`
}

// HandleHealth handles GET /healthz: a liveness check plus a per-node
// reachability fan-out.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if h.nodes == nil {
		httputil.OK(w, map[string]any{"status": "ok", "nodes": []nodeHealthView{}})
		return
	}

	reports := h.nodes.HealthCheckAll(r.Context())
	views := make([]nodeHealthView, 0, len(reports))
	allReachable := true
	for _, rep := range reports {
		v := nodeHealthView{
			NodeID:     rep.NodeID,
			Reachable:  rep.Reachable,
			Running:    rep.Running,
			QueueDepth: rep.QueueDepth,
		}
		if rep.Err != nil {
			v.Error = rep.Err.Error()
		}
		if !rep.Reachable {
			allReachable = false
		}
		views = append(views, v)
	}

	status := "ok"
	if !allReachable {
		status = "degraded"
	}
	httputil.OK(w, map[string]any{"status": status, "nodes": views})
}
