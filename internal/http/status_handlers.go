package http

import (
	"context"
	nethttp "net/http"
	"time"

	"customer-request-dashboard/internal/connectors/history"
	"customer-request-dashboard/internal/refresh"
)

// pipelineSteps are display-only; nothing probes them.
var pipelineSteps = []string{"email", "ai", "storage", "notification"}

func pipelineStatusHandler(c *refresh.Controller, store *history.Store) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if !allowMethod(w, r, nethttp.MethodGet) {
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		steps := make([]map[string]any, 0, len(pipelineSteps))
		for _, name := range pipelineSteps {
			steps = append(steps, map[string]any{
				"name":   name,
				"status": "Active",
				"mock":   true,
			})
		}

		writeJSON(w, nethttp.StatusOK, map[string]any{
			"generated_at": time.Now().UTC(),
			"steps":        steps,
			"source":       sourceStatus(c),
			"history":      historyStatus(ctx, store),
		})
	}
}

func sourceStatus(c *refresh.Controller) map[string]any {
	out := map[string]any{
		"name":      c.SourceName(),
		"state":     c.State(),
		"scheduler": c.Scheduler(),
		"visible":   c.Visible(),
		"ok":        c.State().State != refresh.StateError,
	}
	if snap := c.Snapshot(); snap != nil {
		out["last_refresh_at"] = snap.RefreshedAt
		out["last_run_id"] = snap.RunID
		out["records"] = len(snap.Records)
	}
	return out
}

func historyStatus(ctx context.Context, store *history.Store) map[string]any {
	if store == nil {
		return map[string]any{"enabled": false, "ok": false, "error": "refresh history disabled"}
	}

	start := time.Now()
	summary, err := store.Summary(ctx)
	recordStoreQuery("history", "Summary", time.Since(start).Seconds(), err)
	if err != nil {
		return map[string]any{"enabled": true, "ok": false, "error": err.Error()}
	}
	return map[string]any{"enabled": true, "ok": true, "summary": summary}
}
