package sqlsource

import (
	"database/sql"
	"strings"
	"testing"

	"customer-request-dashboard/internal/config"
	"customer-request-dashboard/internal/orders"
)

func TestResolveDSN(t *testing.T) {
	cfg := config.Config{
		DBHost:     "db.local",
		DBPort:     3306,
		DBUser:     "dash",
		DBPassword: "pw",
		DBName:     "requests",
	}

	cfg.SQLDriver = "MySQL"
	driver, dsn, err := resolveDSN(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if driver != "mysql" || !strings.HasPrefix(dsn, "dash:pw@tcp(db.local:3306)/requests?") {
		t.Fatalf("unexpected mysql dsn %q %q", driver, dsn)
	}

	cfg.SQLDriver = "postgresql"
	driver, dsn, err = resolveDSN(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if driver != "postgres" || !strings.HasPrefix(dsn, "postgres://dash:pw@db.local:3306/requests") {
		t.Fatalf("unexpected postgres dsn %q %q", driver, dsn)
	}

	cfg.SQLDSN = "explicit"
	if _, dsn, _ = resolveDSN(cfg); dsn != "explicit" {
		t.Fatalf("expected explicit dsn to win, got %q", dsn)
	}

	cfg.SQLDriver = "oracle"
	if _, _, err := resolveDSN(cfg); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}

func TestNewSource_RequiresQuery(t *testing.T) {
	_, err := NewSource(config.Config{SQLDriver: "postgres", SQLDSN: "postgres://x@127.0.0.1:1/db"})
	if err == nil || !strings.Contains(err.Error(), "APP_SQL_QUERY") {
		t.Fatalf("expected missing query error, got %v", err)
	}
}

func TestToRawRow_FeedsNormalizer(t *testing.T) {
	cols := []string{"timestamp", "customer_name", "phone_number", "order_details", "priority", "status", "assigned_to"}
	vals := []sql.NullString{
		{String: "2025-09-22 15:30", Valid: true},
		{String: "John Doe", Valid: true},
		{},
		{String: "Bulk order", Valid: true},
		{String: "High", Valid: true},
		{String: "processed", Valid: true},
		{},
	}
	rec := orders.Normalize(toRawRow(cols, vals))
	if rec.CustomerName != "John Doe" || rec.Details != "Bulk order" || rec.Status != "processed" {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if rec.Phone != "N/A" || rec.AssignedTo != "Unassigned" {
		t.Fatalf("expected NULL columns to default, got %+v", rec)
	}
}
