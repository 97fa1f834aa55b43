package http

import (
	"encoding/json"
	"fmt"
	nethttp "net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"customer-request-dashboard/internal/connectors/history"
	"customer-request-dashboard/internal/orders"
	"customer-request-dashboard/internal/refresh"
)

const maxListLimit = 500

type visibilityRequest struct {
	Visible *bool `json:"visible"`
	Viewer  *int  `json:"viewer"`
}

func dashboardDataHandler(c *refresh.Controller) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if !allowMethod(w, r, nethttp.MethodGet) {
			return
		}

		meta := map[string]any{
			"source":   c.SourceName(),
			"state":    c.State(),
			"interval": c.Interval().Milliseconds(),
		}
		snap := c.Snapshot()
		if snap == nil {
			writeJSON(w, nethttp.StatusOK, map[string]any{
				"meta":          meta,
				"stats":         orders.Stats{},
				"stats_display": formatStats(orders.Stats{}),
				"data":          []orders.Row{},
			})
			return
		}

		meta["run_id"] = snap.RunID
		meta["refreshed_at"] = snap.RefreshedAt
		meta["count"] = len(snap.Rows)
		writeJSON(w, nethttp.StatusOK, map[string]any{
			"meta":          meta,
			"stats":         snap.Stats,
			"stats_display": formatStats(snap.Stats),
			"data":          snap.Rows,
		})
	}
}

// formatStats renders the card values the way the page shows them.
func formatStats(s orders.Stats) map[string]string {
	p := message.NewPrinter(language.English)
	return map[string]string{
		"total":          p.Sprintf("%d", s.Total),
		"today":          p.Sprintf("%d", s.Today),
		"avg_processing": p.Sprintf("%ds", s.AvgProcessingSeconds),
		"success_rate":   p.Sprintf("%d%%", s.SuccessRate),
	}
}

func ordersHandler(c *refresh.Controller) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if !allowMethod(w, r, nethttp.MethodGet) {
			return
		}
		records := []orders.Record{}
		meta := map[string]any{"source": c.SourceName()}
		if snap := c.Snapshot(); snap != nil {
			records = snap.Records
			meta["run_id"] = snap.RunID
			meta["refreshed_at"] = snap.RefreshedAt
		}
		meta["count"] = len(records)
		writeJSON(w, nethttp.StatusOK, map[string]any{
			"meta": meta,
			"data": records,
		})
	}
}

func exportHandler(c *refresh.Controller) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if !allowMethod(w, r, nethttp.MethodGet) {
			return
		}
		snap := c.Snapshot()
		if snap == nil || len(snap.Records) == 0 {
			writeJSON(w, nethttp.StatusNotFound, map[string]any{"error": "No data to export"})
			return
		}

		body := orders.ToCSV(snap.Records)
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", orders.ExportFilename(time.Now())))
		w.WriteHeader(nethttp.StatusOK)
		_, _ = w.Write([]byte(body))
	}
}

func refreshHandler(c *refresh.Controller) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if !allowMethod(w, r, nethttp.MethodPost) {
			return
		}
		if !c.Trigger(refresh.ReasonManual) {
			writeJSON(w, nethttp.StatusConflict, map[string]any{
				"error": "refresh already in progress",
				"state": c.State(),
			})
			return
		}
		writeJSON(w, nethttp.StatusAccepted, map[string]any{
			"status": "started",
			"state":  c.State(),
		})
	}
}

func visibilityHandler(c *refresh.Controller) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if !allowMethod(w, r, nethttp.MethodPost) {
			return
		}
		var req visibilityRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Visible == nil {
			writeJSON(w, nethttp.StatusBadRequest, map[string]any{"error": `expected JSON body {"visible": true|false}`})
			return
		}
		if req.Viewer != nil {
			if !c.SetViewerVisible(*req.Viewer, *req.Visible) {
				writeJSON(w, nethttp.StatusNotFound, map[string]any{"error": "unknown viewer"})
				return
			}
		} else {
			c.SetVisible(*req.Visible)
		}
		writeJSON(w, nethttp.StatusOK, map[string]any{
			"visible": c.Visible(),
			"viewers": c.Viewers(),
			"state":   c.State(),
		})
	}
}

func focusHandler(c *refresh.Controller) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if !allowMethod(w, r, nethttp.MethodPost) {
			return
		}
		started := c.Focus()
		writeJSON(w, nethttp.StatusOK, map[string]any{
			"started": started,
			"state":   c.State(),
		})
	}
}

func stateHandler(c *refresh.Controller) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if !allowMethod(w, r, nethttp.MethodGet) {
			return
		}
		writeJSON(w, nethttp.StatusOK, map[string]any{
			"data": c.State(),
			"meta": map[string]any{
				"fetching":  c.Fetching(),
				"visible":   c.Visible(),
				"scheduler": c.Scheduler(),
			},
		})
	}
}

// eventsHandler streams state transitions as Server-Sent Events. A request
// carrying ?visible= attaches the stream as a viewer for its lifetime; the
// viewer id is sent first so the page can report visibility changes.
func eventsHandler(c *refresh.Controller) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if !allowMethod(w, r, nethttp.MethodGet) {
			return
		}
		viewer := -1
		if raw := r.URL.Query().Get("visible"); raw != "" {
			visible, err := strconv.ParseBool(raw)
			if err != nil {
				writeJSON(w, nethttp.StatusBadRequest, map[string]any{"error": "visible must be a boolean"})
				return
			}
			viewer = c.AttachViewer(visible)
			defer c.DetachViewer(viewer)
		}

		rc := nethttp.NewResponseController(w)
		_ = rc.SetWriteDeadline(time.Time{})

		events, cancel := c.Subscribe(0)
		defer cancel()

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(nethttp.StatusOK)

		if viewer >= 0 {
			if _, err := fmt.Fprintf(w, "event: viewer\ndata: {\"id\":%d}\n\n", viewer); err != nil {
				return
			}
		}
		if err := writeEvent(w, c.State()); err != nil {
			return
		}
		if err := rc.Flush(); err != nil {
			return
		}

		keepAlive := time.NewTicker(25 * time.Second)
		defer keepAlive.Stop()
		for {
			select {
			case <-r.Context().Done():
				return
			case <-keepAlive.C:
				if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
					return
				}
			case ev, ok := <-events:
				if !ok {
					return
				}
				if err := writeEvent(w, ev); err != nil {
					return
				}
			}
			if err := rc.Flush(); err != nil {
				return
			}
		}
	}
}

func writeEvent(w nethttp.ResponseWriter, ev refresh.Event) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: state\ndata: %s\n\n", b)
	return err
}

func historyHandler(store *history.Store) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if !allowMethod(w, r, nethttp.MethodGet) {
			return
		}
		if store == nil {
			writeJSON(w, nethttp.StatusServiceUnavailable, map[string]any{
				"error": "refresh history disabled (set APP_HISTORY_SQLITE_PATH)",
			})
			return
		}

		limit := parseLimit(r, 50)
		start := time.Now()
		runs, err := store.ListRuns(r.Context(), limit)
		recordStoreQuery("history", "ListRuns", time.Since(start).Seconds(), err)
		if err != nil {
			writeJSON(w, nethttp.StatusInternalServerError, map[string]any{"error": "failed to fetch refresh history"})
			return
		}
		start = time.Now()
		summary, err := store.Summary(r.Context())
		recordStoreQuery("history", "Summary", time.Since(start).Seconds(), err)
		if err != nil {
			writeJSON(w, nethttp.StatusInternalServerError, map[string]any{"error": "failed to summarize refresh history"})
			return
		}

		writeJSON(w, nethttp.StatusOK, map[string]any{
			"meta": map[string]any{
				"limit":   limit,
				"count":   len(runs),
				"summary": summary,
			},
			"data": runs,
		})
	}
}

func allowMethod(w nethttp.ResponseWriter, r *nethttp.Request, method string) bool {
	if r.Method == method || (method == nethttp.MethodGet && r.Method == nethttp.MethodHead) {
		return true
	}
	w.Header().Set("Allow", method)
	writeJSON(w, nethttp.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"})
	return false
}

func parseLimit(r *nethttp.Request, def int) int {
	raw := strings.TrimSpace(r.URL.Query().Get("limit"))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	if n > maxListLimit {
		return maxListLimit
	}
	return n
}
