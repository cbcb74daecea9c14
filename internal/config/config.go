package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL       string
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration

	// OAuth
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string

	// Session
	SessionSecret          string
	SessionMaxAge          int
	SessionCleanupInterval time.Duration

	// Storage
	// StoragePublicURLはオブジェクトURLの接頭辞。URLは {StoragePublicURL}/storage/{bucket}/{key} になる。
	StorageDir          string
	StoragePublicURL    string
	UploadMaxImageBytes int64
	UploadMaxCVBytes    int64

	// Avatar import（空の場合はホストを制限しない）
	AvatarImportHosts []string

	// Cleanup
	OrphanGracePeriod time.Duration

	// Rate Limit（req/min/user）
	RateLimitGeneral int
	RateLimitWrite   int

	// Logging
	LogLevel string

	// Server
	ServerPort string
	BaseURL    string
	// WorkerMetricsPortはworkerが/metricsを公開するポート
	WorkerMetricsPort string

	// Cookie
	CookieSecure bool
	CookieDomain string

	// CORS（カンマ区切りで複数指定可）
	CORSAllowedOrigin string
}

// requiredVars は未設定なら起動を拒否する環境変数。
var requiredVars = []string{
	"DATABASE_URL",
	"GOOGLE_CLIENT_ID",
	"GOOGLE_CLIENT_SECRET",
	"GOOGLE_REDIRECT_URL",
	"SESSION_SECRET",
	"BASE_URL",
}

// Load は環境変数からConfigを読み込む。
// カレントディレクトリに.envがあれば先に読み込む（既存の環境変数は上書きしない）。
// 必須の変数が欠けている場合は、欠けている名前をすべて含むエラーを返す。
func Load() (*Config, error) {
	_ = godotenv.Load()

	var missing []string
	for _, key := range requiredVars {
		if os.Getenv(key) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	baseURL := strings.TrimRight(os.Getenv("BASE_URL"), "/")
	if u, err := url.Parse(baseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("BASE_URL must be an absolute http(s) URL: %q", baseURL)
	}

	return &Config{
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		DBMaxOpenConns:    envOr("DB_MAX_OPEN_CONNS", 20, strconv.Atoi),
		DBMaxIdleConns:    envOr("DB_MAX_IDLE_CONNS", 5, strconv.Atoi),
		DBConnMaxLifetime: envOr("DB_CONN_MAX_LIFETIME", 30*time.Minute, time.ParseDuration),

		GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		GoogleRedirectURL:  os.Getenv("GOOGLE_REDIRECT_URL"),

		SessionSecret:          os.Getenv("SESSION_SECRET"),
		SessionMaxAge:          envOr("SESSION_MAX_AGE", 86400, strconv.Atoi),
		SessionCleanupInterval: envOr("SESSION_CLEANUP_INTERVAL", time.Hour, time.ParseDuration),

		StorageDir:          envOr("STORAGE_DIR", "./data/storage", asString),
		StoragePublicURL:    strings.TrimRight(envOr("STORAGE_PUBLIC_URL", baseURL, asString), "/"),
		UploadMaxImageBytes: envOr("UPLOAD_MAX_IMAGE_BYTES", int64(5<<20), parseInt64),
		UploadMaxCVBytes:    envOr("UPLOAD_MAX_CV_BYTES", int64(10<<20), parseInt64),
		AvatarImportHosts:   getEnvList("AVATAR_IMPORT_HOSTS", []string{"googleusercontent.com"}),
		OrphanGracePeriod:   envOr("ORPHAN_GRACE_PERIOD", 24*time.Hour, time.ParseDuration),

		RateLimitGeneral: envOr("RATE_LIMIT_GENERAL", 120, strconv.Atoi),
		RateLimitWrite:   envOr("RATE_LIMIT_WRITE", 30, strconv.Atoi),

		LogLevel:   envOr("LOG_LEVEL", "info", asString),
		ServerPort:        envOr("SERVER_PORT", "8080", asString),
		BaseURL:           baseURL,
		WorkerMetricsPort: envOr("WORKER_METRICS_PORT", "9091", asString),

		CookieSecure:      strings.HasPrefix(baseURL, "https://"),
		CookieDomain:      os.Getenv("COOKIE_DOMAIN"),
		CORSAllowedOrigin: envOr("CORS_ALLOWED_ORIGIN", "http://localhost:3000", asString),
	}, nil
}

// MaxUploadBytes はアップロード可能な最大サイズ（画像と履歴書の上限の大きい方）を返す。
func (c *Config) MaxUploadBytes() int64 {
	return max(c.UploadMaxImageBytes, c.UploadMaxCVBytes)
}

// envOr はkeyの値をparseで解釈して返す。未設定か解釈できない場合はdefaultVal。
func envOr[T any](key string, defaultVal T, parse func(string) (T, error)) T {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	parsed, err := parse(v)
	if err != nil {
		return defaultVal
	}
	return parsed
}

func asString(s string) (string, error) { return s, nil }

func parseInt64(s string) (int64, error) { return strconv.ParseInt(s, 10, 64) }

// getEnvList はカンマ区切りの値を返す。"-"を指定すると空リストになる。
func getEnvList(key string, defaultVal []string) []string {
	v := os.Getenv(key)
	switch v {
	case "":
		return defaultVal
	case "-":
		return nil
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
