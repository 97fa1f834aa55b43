package config

import (
	"bufio"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// DefaultSheetCSVURL is the published request sheet used when none is configured.
const DefaultSheetCSVURL = "https://docs.google.com/spreadsheets/d/1ZW4TpU0806fovKV1bcePmq9tocIbPnjaW3ErPMwuffY/export?format=csv&gid=0"

// Config holds runtime configuration for the dashboard service.
type Config struct {
	ListenAddr      string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	LogLevel  string
	LogFormat string

	Source          string
	SheetCSVURL     string
	FetchTimeout    time.Duration
	RefreshInterval time.Duration
	// MaxRetries is reported by the settings endpoint only; failed refreshes
	// wait for the next trigger.
	MaxRetries int
	TableLimit int

	SQLDriver      string
	SQLDSN         string
	SQLQuery       string
	DBHost         string
	DBPort         int
	DBUser         string
	DBPassword     string
	DBName         string
	DBConnTimeout  time.Duration
	DBQueryTimeout time.Duration

	HistorySQLitePath string
	HistoryKeep       int

	TelegramToken  string
	TelegramChatID int64
}

// FromEnv loads configuration from environment variables with sensible defaults.
func FromEnv() Config {
	loadConfigDefaultsFromFile()
	loadSecretsDefaultsFromFile()

	return Config{
		ListenAddr:        getEnv("APP_LISTEN_ADDR", ":8080"),
		ReadTimeout:       time.Duration(getEnvInt("APP_READ_TIMEOUT_SEC", 10)) * time.Second,
		WriteTimeout:      time.Duration(getEnvInt("APP_WRITE_TIMEOUT_SEC", 20)) * time.Second,
		ShutdownTimeout:   time.Duration(getEnvInt("APP_SHUTDOWN_TIMEOUT_SEC", 10)) * time.Second,
		LogLevel:          getEnv("APP_LOG_LEVEL", "info"),
		LogFormat:         getEnv("APP_LOG_FORMAT", "text"),
		Source:            strings.ToLower(getEnv("APP_SOURCE", "sheet")),
		SheetCSVURL:       getEnv("APP_SHEET_CSV_URL", DefaultSheetCSVURL),
		FetchTimeout:      time.Duration(getEnvInt("APP_FETCH_TIMEOUT_SEC", 0)) * time.Second,
		RefreshInterval:   time.Duration(getEnvInt("APP_REFRESH_INTERVAL_MS", 30000)) * time.Millisecond,
		MaxRetries:        getEnvInt("APP_MAX_RETRIES", 3),
		TableLimit:        getEnvInt("APP_TABLE_LIMIT", 20),
		SQLDriver:         getEnv("APP_SQL_DRIVER", "mysql"),
		SQLDSN:            getEnv("APP_SQL_DSN", ""),
		SQLQuery:          getEnv("APP_SQL_QUERY", ""),
		DBHost:            getEnv("APP_DB_HOST", "127.0.0.1"),
		DBPort:            getEnvInt("APP_DB_PORT", 3306),
		DBUser:            getEnv("APP_DB_USER", "dashboard"),
		DBPassword:        getEnv("APP_DB_PASSWORD", ""),
		DBName:            getEnv("APP_DB_NAME", "requests"),
		DBConnTimeout:     time.Duration(getEnvInt("APP_DB_CONN_TIMEOUT_SEC", 5)) * time.Second,
		DBQueryTimeout:    time.Duration(getEnvInt("APP_DB_QUERY_TIMEOUT_SEC", 10)) * time.Second,
		HistorySQLitePath: getEnv("APP_HISTORY_SQLITE_PATH", ""),
		HistoryKeep:       getEnvInt("APP_HISTORY_KEEP", 1000),
		TelegramToken:     getEnv("APP_TELEGRAM_TOKEN", ""),
		TelegramChatID:    getEnvInt64("APP_TELEGRAM_CHAT_ID", 0),
	}
}

func loadConfigDefaultsFromFile() {
	bootstrapCandidates := []string{
		"./customer-request-dashboard.env",
		"/etc/default/customer-request-dashboard",
	}

	for _, candidate := range bootstrapCandidates {
		abs := candidate
		if !filepath.IsAbs(candidate) {
			if wd, err := os.Getwd(); err == nil {
				abs = filepath.Join(wd, candidate)
			}
		}
		_ = applyEnvDefaultsFromFile(abs)
	}

	candidates := make([]string, 0, 2)
	if explicit := strings.TrimSpace(os.Getenv("APP_CONFIG_FILE")); explicit != "" {
		candidates = append(candidates, explicit)
	}
	candidates = append(candidates, "/etc/customer-request-dashboard/config.env")

	for _, candidate := range candidates {
		abs := candidate
		if !filepath.IsAbs(candidate) {
			if wd, err := os.Getwd(); err == nil {
				abs = filepath.Join(wd, candidate)
			}
		}

		if err := applyEnvDefaultsFromFile(abs); err == nil {
			return
		}
	}
}

func loadSecretsDefaultsFromFile() {
	candidates := make([]string, 0, 3)
	if explicit := strings.TrimSpace(os.Getenv("APP_SECRETS_FILE")); explicit != "" {
		candidates = append(candidates, explicit)
	}
	if credDir := strings.TrimSpace(os.Getenv("CREDENTIALS_DIRECTORY")); credDir != "" {
		credName := strings.TrimSpace(os.Getenv("APP_SECRETS_CREDENTIAL_NAME"))
		if credName == "" {
			credName = "app-secrets"
		}
		candidates = append(candidates, filepath.Join(credDir, credName))
	}
	candidates = append(candidates, "/etc/customer-request-dashboard/secrets.env")
	for _, candidate := range candidates {
		if candidate == "" {
			continue
		}
		if err := applyEnvDefaultsFromFile(candidate); err == nil {
			return
		}
	}
}

// applyEnvDefaultsFromFile sets KEY=VALUE pairs from path for keys that are
// not already present in the environment.
func applyEnvDefaultsFromFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		kv := strings.SplitN(line, "=", 2)
		if len(kv) != 2 {
			continue
		}

		key := strings.TrimSpace(kv[0])
		val := strings.TrimSpace(kv[1])
		if key == "" {
			continue
		}

		if len(val) >= 2 {
			if (val[0] == '"' && val[len(val)-1] == '"') || (val[0] == '\'' && val[len(val)-1] == '\'') {
				val = val[1 : len(val)-1]
			}
		}

		if os.Getenv(key) == "" {
			_ = os.Setenv(key, val)
		}
	}

	return scanner.Err()
}

// MySQLDSN returns a mysql driver DSN with safe defaults for TCP access.
func (c Config) MySQLDSN() string {
	params := url.Values{}
	params.Set("parseTime", "false")
	params.Set("timeout", c.DBConnTimeout.String())
	params.Set("readTimeout", c.DBQueryTimeout.String())
	params.Set("writeTimeout", c.DBQueryTimeout.String())
	params.Set("charset", "utf8mb4")
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?%s", c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, params.Encode())
}

// PostgresDSN returns a lib/pq connection URL built from the same DB settings.
func (c Config) PostgresDSN() string {
	params := url.Values{}
	params.Set("sslmode", "disable")
	params.Set("connect_timeout", strconv.Itoa(int(c.DBConnTimeout.Seconds())))
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.DBUser, c.DBPassword),
		Host:     fmt.Sprintf("%s:%d", c.DBHost, c.DBPort),
		Path:     "/" + c.DBName,
		RawQuery: params.Encode(),
	}
	return u.String()
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	val := os.Getenv(key)
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return def
	}
	return parsed
}

func getEnvInt64(key string, def int64) int64 {
	val := os.Getenv(key)
	if val == "" {
		return def
	}
	parsed, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return def
	}
	return parsed
}
