package sqlsource

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"

	"customer-request-dashboard/internal/config"
	"customer-request-dashboard/internal/orders"
)

// Source reads request rows from a MySQL or PostgreSQL query. Result column
// names act as CSV headers, so the regular alias table applies.
type Source struct {
	db           *sql.DB
	driver       string
	query        string
	queryTimeout time.Duration
}

// NewSource opens and pings the configured database.
func NewSource(cfg config.Config) (*Source, error) {
	driver, dsn, err := resolveDSN(cfg)
	if err != nil {
		return nil, err
	}
	query := strings.TrimSpace(cfg.SQLQuery)
	if query == "" {
		return nil, errors.New("sql source: APP_SQL_QUERY is required")
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}

	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DBConnTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Source{db: db, driver: driver, query: query, queryTimeout: cfg.DBQueryTimeout}, nil
}

func (s *Source) Name() string {
	return "sql/" + s.driver
}

func (s *Source) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping reports database reachability for status endpoints.
func (s *Source) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Load runs the configured query and returns one raw row per result row.
func (s *Source) Load(ctx context.Context) ([]orders.RawRow, error) {
	if s.queryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.queryTimeout)
		defer cancel()
	}

	rows, err := s.db.QueryContext(ctx, s.query)
	if err != nil {
		return nil, fmt.Errorf("query requests: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	out := make([]orders.RawRow, 0, 64)
	values := make([]sql.NullString, len(cols))
	dest := make([]any, len(cols))
	for i := range values {
		dest[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		out = append(out, toRawRow(cols, values))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func toRawRow(cols []string, values []sql.NullString) orders.RawRow {
	row := make(orders.RawRow, len(cols))
	for i, c := range cols {
		v := ""
		if i < len(values) && values[i].Valid {
			v = values[i].String
		}
		row[c] = v
	}
	return row
}

func resolveDSN(cfg config.Config) (string, string, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.SQLDriver))
	dsn := strings.TrimSpace(cfg.SQLDSN)
	switch driver {
	case "mysql":
		if dsn == "" {
			dsn = cfg.MySQLDSN()
		}
	case "postgres", "postgresql":
		driver = "postgres"
		if dsn == "" {
			dsn = cfg.PostgresDSN()
		}
	default:
		return "", "", fmt.Errorf("sql source: unsupported driver %q (want mysql or postgres)", cfg.SQLDriver)
	}
	return driver, dsn, nil
}
