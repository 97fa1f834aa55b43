package http

import (
	nethttp "net/http"

	"customer-request-dashboard/internal/config"
	"customer-request-dashboard/internal/orders"
)

func settingsHandler(cfg config.Config) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if !allowMethod(w, r, nethttp.MethodGet) {
			return
		}
		source := cfg.Source
		if source == "" {
			source = "sheet"
		}
		tableLimit := cfg.TableLimit
		if tableLimit <= 0 || tableLimit > orders.TableLimit {
			tableLimit = orders.TableLimit
		}
		data := map[string]any{
			"refresh_interval_ms": cfg.RefreshInterval.Milliseconds(),
			"source":              source,
			"max_retries":         cfg.MaxRetries,
			"max_retries_wired":   false,
			"table_limit":         tableLimit,
			"history_enabled":     cfg.HistorySQLitePath != "",
			"history_keep":        cfg.HistoryKeep,
			"telegram_enabled":    cfg.TelegramToken != "",
		}
		switch source {
		case "sheet":
			data["sheet_csv_url"] = cfg.SheetCSVURL
		case "sql":
			data["sql_driver"] = cfg.SQLDriver
		}
		writeJSON(w, nethttp.StatusOK, map[string]any{"data": data})
	}
}
