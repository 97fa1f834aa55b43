package http

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"customer-request-dashboard/internal/refresh"
)

const metricPrefix = "request_dashboard_"

var (
	appStartedAtUnix = time.Now().Unix()
	inFlightRequests int64
	metricsMu        sync.Mutex
	httpSeries       = map[httpMetricKey]*httpMetricSeries{}
	storeQuerySeries = map[storeMetricKey]*storeMetricSeries{}
	refreshSeries    = map[refreshMetricKey]*refreshMetricSeries{}
	lastRefresh      refreshGauges
)

type refreshGauges struct {
	SuccessUnix int64
	FailureUnix int64
	Records     int
	SuccessRate int
}

func metricsHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

		metricsMu.Lock()
		keys := make([]httpMetricKey, 0, len(httpSeries))
		for k := range httpSeries {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool {
			if keys[i].Method != keys[j].Method {
				return keys[i].Method < keys[j].Method
			}
			if keys[i].Path != keys[j].Path {
				return keys[i].Path < keys[j].Path
			}
			return keys[i].Status < keys[j].Status
		})
		snapshot := make([]struct {
			Key    httpMetricKey
			Series httpMetricSeries
		}, 0, len(keys))
		for _, k := range keys {
			snapshot = append(snapshot, struct {
				Key    httpMetricKey
				Series httpMetricSeries
			}{Key: k, Series: *httpSeries[k]})
		}

		storeKeys := make([]storeMetricKey, 0, len(storeQuerySeries))
		for k := range storeQuerySeries {
			storeKeys = append(storeKeys, k)
		}
		sort.Slice(storeKeys, func(i, j int) bool {
			if storeKeys[i].Store != storeKeys[j].Store {
				return storeKeys[i].Store < storeKeys[j].Store
			}
			return storeKeys[i].Operation < storeKeys[j].Operation
		})
		storeSnapshot := make([]struct {
			Key    storeMetricKey
			Series storeMetricSeries
		}, 0, len(storeKeys))
		for _, k := range storeKeys {
			storeSnapshot = append(storeSnapshot, struct {
				Key    storeMetricKey
				Series storeMetricSeries
			}{k, *storeQuerySeries[k]})
		}

		refreshKeys := make([]refreshMetricKey, 0, len(refreshSeries))
		for k := range refreshSeries {
			refreshKeys = append(refreshKeys, k)
		}
		sort.Slice(refreshKeys, func(i, j int) bool {
			if refreshKeys[i].Source != refreshKeys[j].Source {
				return refreshKeys[i].Source < refreshKeys[j].Source
			}
			if refreshKeys[i].Reason != refreshKeys[j].Reason {
				return refreshKeys[i].Reason < refreshKeys[j].Reason
			}
			return refreshKeys[i].Outcome < refreshKeys[j].Outcome
		})
		refreshSnapshot := make([]struct {
			Key    refreshMetricKey
			Series refreshMetricSeries
		}, 0, len(refreshKeys))
		for _, k := range refreshKeys {
			refreshSnapshot = append(refreshSnapshot, struct {
				Key    refreshMetricKey
				Series refreshMetricSeries
			}{k, *refreshSeries[k]})
		}
		gauges := lastRefresh
		metricsMu.Unlock()

		writeHeader(w, "http_requests_total", "counter", "Total HTTP requests handled by this app.")
		for _, it := range snapshot {
			_, _ = fmt.Fprintf(w, metricPrefix+"http_requests_total{method=%q,path=%q,status=%q} %d\n",
				escapeLabel(it.Key.Method), escapeLabel(it.Key.Path), escapeLabel(it.Key.Status), it.Series.Count)
		}
		writeHeader(w, "http_request_duration_seconds_sum", "counter", "Total duration in seconds for observed requests.")
		for _, it := range snapshot {
			_, _ = fmt.Fprintf(w, metricPrefix+"http_request_duration_seconds_sum{method=%q,path=%q,status=%q} %.9f\n",
				escapeLabel(it.Key.Method), escapeLabel(it.Key.Path), escapeLabel(it.Key.Status), it.Series.DurationSecondsSum)
		}
		writeHeader(w, "http_in_flight_requests", "gauge", "In-flight HTTP requests currently served by this app.")
		_, _ = fmt.Fprintf(w, metricPrefix+"http_in_flight_requests %d\n", atomic.LoadInt64(&inFlightRequests))

		writeHeader(w, "refresh_runs_total", "counter", "Refresh cycles by source, trigger reason and outcome.")
		for _, it := range refreshSnapshot {
			_, _ = fmt.Fprintf(w, metricPrefix+"refresh_runs_total{source=%q,reason=%q,outcome=%q} %d\n",
				escapeLabel(it.Key.Source), escapeLabel(it.Key.Reason), escapeLabel(it.Key.Outcome), it.Series.Count)
		}
		writeHeader(w, "refresh_duration_seconds_sum", "counter", "Refresh cycle duration sum in seconds.")
		for _, it := range refreshSnapshot {
			_, _ = fmt.Fprintf(w, metricPrefix+"refresh_duration_seconds_sum{source=%q,reason=%q,outcome=%q} %.9f\n",
				escapeLabel(it.Key.Source), escapeLabel(it.Key.Reason), escapeLabel(it.Key.Outcome), it.Series.DurationSecondsSum)
		}
		writeHeader(w, "refresh_last_success_timestamp_seconds", "gauge", "Unix time of the last successful refresh.")
		_, _ = fmt.Fprintf(w, metricPrefix+"refresh_last_success_timestamp_seconds %d\n", gauges.SuccessUnix)
		writeHeader(w, "refresh_last_failure_timestamp_seconds", "gauge", "Unix time of the last failed refresh.")
		_, _ = fmt.Fprintf(w, metricPrefix+"refresh_last_failure_timestamp_seconds %d\n", gauges.FailureUnix)
		writeHeader(w, "records", "gauge", "Records in the current snapshot.")
		_, _ = fmt.Fprintf(w, metricPrefix+"records %d\n", gauges.Records)
		writeHeader(w, "success_rate_percent", "gauge", "Success rate of the current snapshot.")
		_, _ = fmt.Fprintf(w, metricPrefix+"success_rate_percent %d\n", gauges.SuccessRate)

		writeHeader(w, "store_query_duration_seconds_sum", "counter", "Store query duration sum in seconds by store/operation.")
		for _, it := range storeSnapshot {
			_, _ = fmt.Fprintf(w, metricPrefix+"store_query_duration_seconds_sum{store=%q,operation=%q} %.9f\n",
				escapeLabel(it.Key.Store), escapeLabel(it.Key.Operation), it.Series.DurationSecondsSum)
		}
		writeHeader(w, "store_query_errors_total", "counter", "Store query errors by store/operation.")
		for _, it := range storeSnapshot {
			_, _ = fmt.Fprintf(w, metricPrefix+"store_query_errors_total{store=%q,operation=%q} %d\n",
				escapeLabel(it.Key.Store), escapeLabel(it.Key.Operation), it.Series.Errors)
		}

		uptime := time.Now().Unix() - appStartedAtUnix
		writeHeader(w, "uptime_seconds", "gauge", "Process uptime in seconds.")
		_, _ = fmt.Fprintf(w, metricPrefix+"uptime_seconds %d\n", uptime)

		var ms runtime.MemStats
		runtime.ReadMemStats(&ms)
		writeHeader(w, "runtime_goroutines", "gauge", "Number of goroutines.")
		_, _ = fmt.Fprintf(w, metricPrefix+"runtime_goroutines %d\n", runtime.NumGoroutine())
		writeHeader(w, "runtime_memory_alloc_bytes", "gauge", "Heap allocation bytes.")
		_, _ = fmt.Fprintf(w, metricPrefix+"runtime_memory_alloc_bytes %d\n", ms.Alloc)

		if cpuSec, ok := processCPUSeconds(); ok {
			writeHeader(w, "runtime_cpu_seconds_total", "counter", "Total CPU time consumed by this process in seconds.")
			_, _ = fmt.Fprintf(w, metricPrefix+"runtime_cpu_seconds_total %.6f\n", cpuSec)
		}
		if io := processIOStats(); io != nil {
			writeHeader(w, "runtime_io_read_bytes_total", "counter", "Bytes read by this process from storage.")
			_, _ = fmt.Fprintf(w, metricPrefix+"runtime_io_read_bytes_total %d\n", io.ReadBytes)
			writeHeader(w, "runtime_io_write_bytes_total", "counter", "Bytes written by this process to storage.")
			_, _ = fmt.Fprintf(w, metricPrefix+"runtime_io_write_bytes_total %d\n", io.WriteBytes)
		}
	})
}

func writeHeader(w http.ResponseWriter, name, kind, help string) {
	_, _ = fmt.Fprintf(w, "# HELP %s%s %s\n", metricPrefix, name, help)
	_, _ = fmt.Fprintf(w, "# TYPE %s%s %s\n", metricPrefix, name, kind)
}

func appMetricsSummaryHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		type endpointRow struct {
			Method  string  `json:"method"`
			Path    string  `json:"path"`
			Status  string  `json:"status"`
			Count   uint64  `json:"count"`
			AvgMS   float64 `json:"avg_ms"`
			TotalMS float64 `json:"total_ms"`
		}
		type refreshRow struct {
			Source  string  `json:"source"`
			Reason  string  `json:"reason"`
			Outcome string  `json:"outcome"`
			Count   uint64  `json:"count"`
			AvgMS   float64 `json:"avg_ms"`
		}

		metricsMu.Lock()
		httpRows := make([]endpointRow, 0, len(httpSeries))
		for k, s := range httpSeries {
			avg := 0.0
			if s.Count > 0 {
				avg = (s.DurationSecondsSum / float64(s.Count)) * 1000.0
			}
			httpRows = append(httpRows, endpointRow{
				Method:  k.Method,
				Path:    k.Path,
				Status:  k.Status,
				Count:   s.Count,
				AvgMS:   avg,
				TotalMS: s.DurationSecondsSum * 1000.0,
			})
		}

		refreshRows := make([]refreshRow, 0, len(refreshSeries))
		failures := uint64(0)
		for k, s := range refreshSeries {
			avg := 0.0
			if s.Count > 0 {
				avg = (s.DurationSecondsSum / float64(s.Count)) * 1000.0
			}
			refreshRows = append(refreshRows, refreshRow{
				Source:  k.Source,
				Reason:  k.Reason,
				Outcome: k.Outcome,
				Count:   s.Count,
				AvgMS:   avg,
			})
			if k.Outcome == "error" {
				failures += s.Count
			}
		}

		storeErrors := uint64(0)
		for _, s := range storeQuerySeries {
			storeErrors += s.Errors
		}
		gauges := lastRefresh
		metricsMu.Unlock()

		sort.Slice(httpRows, func(i, j int) bool { return httpRows[i].AvgMS > httpRows[j].AvgMS })
		sort.Slice(refreshRows, func(i, j int) bool { return refreshRows[i].Count > refreshRows[j].Count })

		topHTTP := httpRows
		if len(topHTTP) > 5 {
			topHTTP = topHTTP[:5]
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"meta": map[string]any{
				"generated_at": time.Now().UTC(),
			},
			"data": map[string]any{
				"top_http_slowest_avg_ms": topHTTP,
				"refresh_runs":            refreshRows,
				"last_refresh":            gauges,
				"errors": map[string]any{
					"refresh_total":     failures,
					"store_query_total": storeErrors,
				},
			},
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func observabilityMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		atomic.AddInt64(&inFlightRequests, 1)
		defer atomic.AddInt64(&inFlightRequests, -1)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		recordHTTPMetric(r.Method, normalizeMetricPath(r.URL.Path), rec.status, time.Since(start).Seconds())
	})
}

func normalizeMetricPath(path string) string {
	switch {
	case path == "/", path == "/metrics", path == "/health", path == "/ready", path == "/favicon.ico":
		return path
	case strings.HasPrefix(path, "/api/v1/"):
		return path
	default:
		return "/{other}"
	}
}

type httpMetricKey struct {
	Method string
	Path   string
	Status string
}

type httpMetricSeries struct {
	Count              uint64
	DurationSecondsSum float64
}

type storeMetricKey struct {
	Store     string
	Operation string
}

type storeMetricSeries struct {
	Count              uint64
	Errors             uint64
	DurationSecondsSum float64
}

type refreshMetricKey struct {
	Source  string
	Reason  string
	Outcome string
}

type refreshMetricSeries struct {
	Count              uint64
	DurationSecondsSum float64
}

func recordHTTPMetric(method, path string, status int, durationSeconds float64) {
	key := httpMetricKey{
		Method: method,
		Path:   path,
		Status: strconv.Itoa(status),
	}
	metricsMu.Lock()
	defer metricsMu.Unlock()
	row, ok := httpSeries[key]
	if !ok {
		row = &httpMetricSeries{}
		httpSeries[key] = row
	}
	row.Count++
	row.DurationSecondsSum += durationSeconds
}

func recordStoreQuery(store, operation string, durationSeconds float64, err error) {
	if store == "" || operation == "" {
		return
	}
	key := storeMetricKey{Store: store, Operation: operation}
	metricsMu.Lock()
	defer metricsMu.Unlock()
	row, ok := storeQuerySeries[key]
	if !ok {
		row = &storeMetricSeries{}
		storeQuerySeries[key] = row
	}
	row.Count++
	row.DurationSecondsSum += durationSeconds
	if err != nil {
		row.Errors++
	}
}

// recordRefreshRun is registered as a refresh.RunRecorder.
func recordRefreshRun(_ context.Context, run refresh.Run) error {
	outcome := "ok"
	if !run.OK {
		outcome = "error"
	}
	key := refreshMetricKey{Source: run.Source, Reason: string(run.Reason), Outcome: outcome}
	metricsMu.Lock()
	defer metricsMu.Unlock()
	row, ok := refreshSeries[key]
	if !ok {
		row = &refreshMetricSeries{}
		refreshSeries[key] = row
	}
	row.Count++
	row.DurationSecondsSum += run.FinishedAt.Sub(run.StartedAt).Seconds()
	if run.OK {
		lastRefresh.SuccessUnix = run.FinishedAt.Unix()
		lastRefresh.Records = run.Stats.Total
		lastRefresh.SuccessRate = run.Stats.SuccessRate
	} else {
		lastRefresh.FailureUnix = run.FinishedAt.Unix()
	}
	return nil
}

func escapeLabel(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, "\n", `\n`)
	v = strings.ReplaceAll(v, `"`, `\"`)
	return v
}

func processCPUSeconds() (float64, bool) {
	var ru syscall.Rusage
	if err := syscall.Getrusage(syscall.RUSAGE_SELF, &ru); err != nil {
		return 0, false
	}
	user := float64(ru.Utime.Sec) + (float64(ru.Utime.Usec) / 1_000_000.0)
	sys := float64(ru.Stime.Sec) + (float64(ru.Stime.Usec) / 1_000_000.0)
	return user + sys, true
}

type ioStats struct {
	ReadBytes     uint64
	WriteBytes    uint64
	SysReadCalls  uint64
	SysWriteCalls uint64
}

func processIOStats() *ioStats {
	b, err := os.ReadFile("/proc/self/io")
	if err != nil {
		return nil
	}
	out := &ioStats{}
	lines := strings.Split(string(b), "\n")
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		valRaw := strings.TrimSpace(parts[1])
		v, err := strconv.ParseUint(valRaw, 10, 64)
		if err != nil {
			continue
		}
		switch key {
		case "read_bytes":
			out.ReadBytes = v
		case "write_bytes":
			out.WriteBytes = v
		case "syscr":
			out.SysReadCalls = v
		case "syscw":
			out.SysWriteCalls = v
		}
	}
	return out
}
