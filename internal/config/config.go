package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/riskibarqy/matchpoint/internal/platform/logging"
)

// Config stores runtime configuration for the service.
type Config struct {
	AppEnv         string
	ServiceName    string
	ServiceVersion string
	HTTPAddr       string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	LogLevel       logging.Level

	DefaultTimezone       string
	PollEnabled           bool
	PollInterval          time.Duration
	CycleTimeout          time.Duration
	WorkerConcurrency     int
	NotifiedRetentionDays int

	StorageDriver string
	SQLitePath    string
	DBURL         string

	TelegramEnabled               bool
	TelegramBotToken              string
	TelegramAPIBaseURL            string
	TelegramWebhookURL            string
	TelegramWebhookSecret         string
	TelegramTimeout               time.Duration
	TelegramMaxRetries            int
	TelegramCircuitEnabled        bool
	TelegramCircuitFailureCount   int
	TelegramCircuitOpenTimeout    time.Duration
	TelegramCircuitHalfOpenMaxReq int
	AdminChatID                   int64

	SofaScoreBaseURLs              []string
	SofaScoreTimeout               time.Duration
	SofaScoreMaxRetries            int
	SofaScoreRateLimit             float64
	SofaScoreRateBurst             int
	SofaScoreCircuitEnabled        bool
	SofaScoreCircuitFailureCount   int
	SofaScoreCircuitOpenTimeout    time.Duration
	SofaScoreCircuitHalfOpenMaxReq int
	ScheduleCacheTTL               time.Duration

	InternalJobToken string

	BetterStackEnabled  bool
	BetterStackEndpoint string
	BetterStackToken    string
	BetterStackTimeout  time.Duration
	BetterStackMinLevel logging.Level

	UptraceEnabled             bool
	UptraceDSN                 string
	UptraceLogsEnabled         bool
	PyroscopeEnabled           bool
	PyroscopeServerAddress     string
	PyroscopeAppName           string
	PyroscopeAuthToken         string
	PyroscopeBasicAuthUser     string
	PyroscopeBasicAuthPassword string
	PyroscopeUploadRate        time.Duration
	PprofEnabled               bool
	PprofAddr                  string
}

const (
	StorageDriverSQLite   = "sqlite"
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"
)

func Load() (Config, error) {
	// .env overlay for local runs; absent file is fine.
	_ = godotenv.Load()

	appEnv, err := parseAppEnv(getEnv("APP_ENV", EnvDev))
	if err != nil {
		return Config{}, err
	}

	defaultTZ := strings.TrimSpace(getEnv("DEFAULT_TZ", "Europe/Helsinki"))
	if _, err := time.LoadLocation(defaultTZ); err != nil {
		return Config{}, fmt.Errorf("parse DEFAULT_TZ: %w", err)
	}

	pollEnabled, err := strconv.ParseBool(getEnv("POLL_ENABLED", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse POLL_ENABLED: %w", err)
	}
	pollInterval, err := time.ParseDuration(getEnv("POLL_INTERVAL", "75s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse POLL_INTERVAL: %w", err)
	}
	if pollInterval <= 0 {
		return Config{}, fmt.Errorf("POLL_INTERVAL must be > 0")
	}
	cycleTimeout, err := time.ParseDuration(getEnv("CYCLE_TIMEOUT", "60s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse CYCLE_TIMEOUT: %w", err)
	}
	if cycleTimeout <= 0 {
		return Config{}, fmt.Errorf("CYCLE_TIMEOUT must be > 0")
	}
	workerConcurrency, err := getEnvAsInt("WORKER_CONCURRENCY", 8)
	if err != nil {
		return Config{}, fmt.Errorf("parse WORKER_CONCURRENCY: %w", err)
	}
	if workerConcurrency < 1 {
		return Config{}, fmt.Errorf("WORKER_CONCURRENCY must be >= 1")
	}
	retentionDays, err := getEnvAsInt("NOTIFIED_RETENTION_DAYS", 3)
	if err != nil {
		return Config{}, fmt.Errorf("parse NOTIFIED_RETENTION_DAYS: %w", err)
	}
	if retentionDays < 1 {
		return Config{}, fmt.Errorf("NOTIFIED_RETENTION_DAYS must be >= 1")
	}

	storageDriver, err := parseStorageDriver(getEnv("STORAGE_DRIVER", StorageDriverSQLite))
	if err != nil {
		return Config{}, err
	}
	sqlitePath := strings.TrimSpace(getEnv("SQLITE_PATH", "bot.db"))
	dbURL := strings.TrimSpace(getEnv("DATABASE_URL", ""))
	if storageDriver == StorageDriverPostgres && dbURL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL is required when STORAGE_DRIVER=postgres")
	}
	if storageDriver == StorageDriverSQLite && sqlitePath == "" {
		return Config{}, fmt.Errorf("SQLITE_PATH is required when STORAGE_DRIVER=sqlite")
	}

	telegramEnabled, err := strconv.ParseBool(getEnv("TELEGRAM_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse TELEGRAM_ENABLED: %w", err)
	}
	telegramToken := strings.TrimSpace(getEnv("TELEGRAM_BOT_TOKEN", ""))
	if telegramEnabled && telegramToken == "" {
		return Config{}, fmt.Errorf("TELEGRAM_BOT_TOKEN is required when TELEGRAM_ENABLED=true")
	}
	telegramTimeout, err := time.ParseDuration(getEnv("TELEGRAM_TIMEOUT", "10s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse TELEGRAM_TIMEOUT: %w", err)
	}
	if telegramTimeout <= 0 {
		return Config{}, fmt.Errorf("TELEGRAM_TIMEOUT must be > 0")
	}
	telegramMaxRetries, err := getEnvAsInt("TELEGRAM_MAX_RETRIES", 1)
	if err != nil {
		return Config{}, fmt.Errorf("parse TELEGRAM_MAX_RETRIES: %w", err)
	}
	if telegramMaxRetries < 0 {
		return Config{}, fmt.Errorf("TELEGRAM_MAX_RETRIES must be >= 0")
	}
	telegramCircuitEnabled, err := strconv.ParseBool(getEnv("TELEGRAM_CIRCUIT_ENABLED", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse TELEGRAM_CIRCUIT_ENABLED: %w", err)
	}
	telegramCircuitFailureCount, err := getEnvAsInt("TELEGRAM_CIRCUIT_FAILURE_COUNT", 5)
	if err != nil {
		return Config{}, fmt.Errorf("parse TELEGRAM_CIRCUIT_FAILURE_COUNT: %w", err)
	}
	if telegramCircuitFailureCount < 1 {
		return Config{}, fmt.Errorf("TELEGRAM_CIRCUIT_FAILURE_COUNT must be >= 1")
	}
	telegramCircuitOpenTimeout, err := time.ParseDuration(getEnv("TELEGRAM_CIRCUIT_OPEN_TIMEOUT", "15s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse TELEGRAM_CIRCUIT_OPEN_TIMEOUT: %w", err)
	}
	if telegramCircuitOpenTimeout <= 0 {
		return Config{}, fmt.Errorf("TELEGRAM_CIRCUIT_OPEN_TIMEOUT must be > 0")
	}
	telegramCircuitHalfOpenMaxReq, err := getEnvAsInt("TELEGRAM_CIRCUIT_HALF_OPEN_MAX_REQ", 2)
	if err != nil {
		return Config{}, fmt.Errorf("parse TELEGRAM_CIRCUIT_HALF_OPEN_MAX_REQ: %w", err)
	}
	if telegramCircuitHalfOpenMaxReq < 1 {
		return Config{}, fmt.Errorf("TELEGRAM_CIRCUIT_HALF_OPEN_MAX_REQ must be >= 1")
	}
	adminChatID, err := getEnvAsInt64("ADMIN_CHAT_ID", 0)
	if err != nil {
		return Config{}, fmt.Errorf("parse ADMIN_CHAT_ID: %w", err)
	}

	sofaBaseURLs := splitCSV(getEnv("SOFASCORE_BASE_URLS",
		"https://api.sofascore.com/api/v1,https://www.sofascore.com/api/v1"))
	if len(sofaBaseURLs) == 0 {
		return Config{}, fmt.Errorf("SOFASCORE_BASE_URLS cannot be empty")
	}
	sofaTimeout, err := time.ParseDuration(getEnv("SOFASCORE_TIMEOUT", "10s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse SOFASCORE_TIMEOUT: %w", err)
	}
	if sofaTimeout <= 0 {
		return Config{}, fmt.Errorf("SOFASCORE_TIMEOUT must be > 0")
	}
	sofaMaxRetries, err := getEnvAsInt("SOFASCORE_MAX_RETRIES", 1)
	if err != nil {
		return Config{}, fmt.Errorf("parse SOFASCORE_MAX_RETRIES: %w", err)
	}
	if sofaMaxRetries < 0 {
		return Config{}, fmt.Errorf("SOFASCORE_MAX_RETRIES must be >= 0")
	}
	sofaRateLimit, err := getEnvAsFloat("SOFASCORE_RATE_LIMIT", 2)
	if err != nil {
		return Config{}, fmt.Errorf("parse SOFASCORE_RATE_LIMIT: %w", err)
	}
	if sofaRateLimit <= 0 {
		return Config{}, fmt.Errorf("SOFASCORE_RATE_LIMIT must be > 0")
	}
	sofaRateBurst, err := getEnvAsInt("SOFASCORE_RATE_BURST", 4)
	if err != nil {
		return Config{}, fmt.Errorf("parse SOFASCORE_RATE_BURST: %w", err)
	}
	if sofaRateBurst < 1 {
		return Config{}, fmt.Errorf("SOFASCORE_RATE_BURST must be >= 1")
	}
	sofaCircuitEnabled, err := strconv.ParseBool(getEnv("SOFASCORE_CIRCUIT_ENABLED", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse SOFASCORE_CIRCUIT_ENABLED: %w", err)
	}
	sofaCircuitFailureCount, err := getEnvAsInt("SOFASCORE_CIRCUIT_FAILURE_COUNT", 5)
	if err != nil {
		return Config{}, fmt.Errorf("parse SOFASCORE_CIRCUIT_FAILURE_COUNT: %w", err)
	}
	if sofaCircuitFailureCount < 1 {
		return Config{}, fmt.Errorf("SOFASCORE_CIRCUIT_FAILURE_COUNT must be >= 1")
	}
	sofaCircuitOpenTimeout, err := time.ParseDuration(getEnv("SOFASCORE_CIRCUIT_OPEN_TIMEOUT", "15s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse SOFASCORE_CIRCUIT_OPEN_TIMEOUT: %w", err)
	}
	if sofaCircuitOpenTimeout <= 0 {
		return Config{}, fmt.Errorf("SOFASCORE_CIRCUIT_OPEN_TIMEOUT must be > 0")
	}
	sofaCircuitHalfOpenMaxReq, err := getEnvAsInt("SOFASCORE_CIRCUIT_HALF_OPEN_MAX_REQ", 2)
	if err != nil {
		return Config{}, fmt.Errorf("parse SOFASCORE_CIRCUIT_HALF_OPEN_MAX_REQ: %w", err)
	}
	if sofaCircuitHalfOpenMaxReq < 1 {
		return Config{}, fmt.Errorf("SOFASCORE_CIRCUIT_HALF_OPEN_MAX_REQ must be >= 1")
	}
	scheduleCacheTTL, err := time.ParseDuration(getEnv("SCHEDULE_CACHE_TTL", "60s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse SCHEDULE_CACHE_TTL: %w", err)
	}
	if scheduleCacheTTL <= 0 {
		return Config{}, fmt.Errorf("SCHEDULE_CACHE_TTL must be > 0")
	}

	betterStackEnabled, err := strconv.ParseBool(getEnv("BETTERSTACK_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse BETTERSTACK_ENABLED: %w", err)
	}
	betterStackEndpoint := strings.TrimSpace(getEnv("BETTERSTACK_ENDPOINT", ""))
	if betterStackEnabled && betterStackEndpoint == "" {
		return Config{}, fmt.Errorf("BETTERSTACK_ENDPOINT is required when BETTERSTACK_ENABLED=true")
	}
	betterStackTimeout, err := time.ParseDuration(getEnv("BETTERSTACK_TIMEOUT", "3s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse BETTERSTACK_TIMEOUT: %w", err)
	}
	if betterStackTimeout <= 0 {
		return Config{}, fmt.Errorf("BETTERSTACK_TIMEOUT must be > 0")
	}

	uptraceEnabled, err := strconv.ParseBool(getEnv("UPTRACE_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse UPTRACE_ENABLED: %w", err)
	}
	uptraceDSN := strings.TrimSpace(getEnv("UPTRACE_DSN", ""))
	if uptraceDSN == "" {
		uptraceDSN = parseUptraceDSNFromOTLPHeaders(getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""))
	}
	if uptraceEnabled && uptraceDSN == "" {
		return Config{}, fmt.Errorf("UPTRACE_DSN is required when UPTRACE_ENABLED=true")
	}
	uptraceLogsEnabled, err := strconv.ParseBool(getEnv("UPTRACE_LOGS_ENABLED", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse UPTRACE_LOGS_ENABLED: %w", err)
	}

	pyroscopeEnabled, err := strconv.ParseBool(getEnv("PYROSCOPE_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PYROSCOPE_ENABLED: %w", err)
	}
	pyroscopeServerAddress := strings.TrimSpace(getEnv("PYROSCOPE_SERVER_ADDRESS", ""))
	if pyroscopeEnabled && pyroscopeServerAddress == "" {
		return Config{}, fmt.Errorf("PYROSCOPE_SERVER_ADDRESS is required when PYROSCOPE_ENABLED=true")
	}
	pyroscopeUploadRate, err := time.ParseDuration(getEnv("PYROSCOPE_UPLOAD_RATE", "15s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PYROSCOPE_UPLOAD_RATE: %w", err)
	}
	if pyroscopeUploadRate <= 0 {
		return Config{}, fmt.Errorf("PYROSCOPE_UPLOAD_RATE must be > 0")
	}

	pprofEnabled, err := strconv.ParseBool(getEnv("PPROF_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PPROF_ENABLED: %w", err)
	}
	pprofAddr := strings.TrimSpace(getEnv("PPROF_ADDR", ":6060"))
	if pprofEnabled && pprofAddr == "" {
		return Config{}, fmt.Errorf("PPROF_ADDR is required when PPROF_ENABLED=true")
	}

	readTimeout, err := time.ParseDuration(getEnv("APP_READ_TIMEOUT", "10s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse APP_READ_TIMEOUT: %w", err)
	}
	writeTimeout, err := time.ParseDuration(getEnv("APP_WRITE_TIMEOUT", "15s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse APP_WRITE_TIMEOUT: %w", err)
	}

	cfg := Config{
		AppEnv:         appEnv,
		ServiceName:    getEnv("APP_SERVICE_NAME", "matchpoint-bot"),
		ServiceVersion: getEnv("APP_SERVICE_VERSION", "dev"),
		HTTPAddr:       getEnv("APP_HTTP_ADDR", ":8080"),
		ReadTimeout:    readTimeout,
		WriteTimeout:   writeTimeout,
		LogLevel:       parseLogLevel(getEnv("APP_LOG_LEVEL", "info")),

		DefaultTimezone:       defaultTZ,
		PollEnabled:           pollEnabled,
		PollInterval:          pollInterval,
		CycleTimeout:          cycleTimeout,
		WorkerConcurrency:     workerConcurrency,
		NotifiedRetentionDays: retentionDays,

		StorageDriver: storageDriver,
		SQLitePath:    sqlitePath,
		DBURL:         dbURL,

		TelegramEnabled:               telegramEnabled,
		TelegramBotToken:              telegramToken,
		TelegramAPIBaseURL:            strings.TrimSpace(getEnv("TELEGRAM_API_BASE_URL", "https://api.telegram.org")),
		TelegramWebhookURL:            strings.TrimSpace(getEnv("TELEGRAM_WEBHOOK_URL", "")),
		TelegramWebhookSecret:         strings.TrimSpace(getEnv("TELEGRAM_WEBHOOK_SECRET", "")),
		TelegramTimeout:               telegramTimeout,
		TelegramMaxRetries:            telegramMaxRetries,
		TelegramCircuitEnabled:        telegramCircuitEnabled,
		TelegramCircuitFailureCount:   telegramCircuitFailureCount,
		TelegramCircuitOpenTimeout:    telegramCircuitOpenTimeout,
		TelegramCircuitHalfOpenMaxReq: telegramCircuitHalfOpenMaxReq,
		AdminChatID:                   adminChatID,

		SofaScoreBaseURLs:              sofaBaseURLs,
		SofaScoreTimeout:               sofaTimeout,
		SofaScoreMaxRetries:            sofaMaxRetries,
		SofaScoreRateLimit:             sofaRateLimit,
		SofaScoreRateBurst:             sofaRateBurst,
		SofaScoreCircuitEnabled:        sofaCircuitEnabled,
		SofaScoreCircuitFailureCount:   sofaCircuitFailureCount,
		SofaScoreCircuitOpenTimeout:    sofaCircuitOpenTimeout,
		SofaScoreCircuitHalfOpenMaxReq: sofaCircuitHalfOpenMaxReq,
		ScheduleCacheTTL:               scheduleCacheTTL,

		InternalJobToken: strings.TrimSpace(getEnv("INTERNAL_JOB_TOKEN", "")),

		BetterStackEnabled:  betterStackEnabled,
		BetterStackEndpoint: betterStackEndpoint,
		BetterStackToken:    strings.TrimSpace(getEnv("BETTERSTACK_TOKEN", "")),
		BetterStackTimeout:  betterStackTimeout,
		BetterStackMinLevel: parseLogLevel(getEnv("BETTERSTACK_MIN_LEVEL", "error")),

		UptraceEnabled:             uptraceEnabled,
		UptraceDSN:                 uptraceDSN,
		UptraceLogsEnabled:         uptraceLogsEnabled,
		PyroscopeEnabled:           pyroscopeEnabled,
		PyroscopeServerAddress:     pyroscopeServerAddress,
		PyroscopeAuthToken:         strings.TrimSpace(getEnv("PYROSCOPE_AUTH_TOKEN", "")),
		PyroscopeBasicAuthUser:     strings.TrimSpace(getEnv("PYROSCOPE_BASIC_AUTH_USER", "")),
		PyroscopeBasicAuthPassword: strings.TrimSpace(getEnv("PYROSCOPE_BASIC_AUTH_PASSWORD", "")),
		PyroscopeUploadRate:        pyroscopeUploadRate,
		PprofEnabled:               pprofEnabled,
		PprofAddr:                  pprofAddr,
	}
	cfg.PyroscopeAppName = strings.TrimSpace(getEnv("PYROSCOPE_APP_NAME", cfg.ServiceName))
	if cfg.PyroscopeEnabled && cfg.PyroscopeAppName == "" {
		return Config{}, fmt.Errorf("PYROSCOPE_APP_NAME cannot be empty when PYROSCOPE_ENABLED=true")
	}

	return cfg, nil
}

func parseLogLevel(v string) logging.Level {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "debug":
		return logging.LevelDebug
	case "warn", "warning":
		return logging.LevelWarn
	case "error":
		return logging.LevelError
	default:
		return logging.LevelInfo
	}
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if strings.TrimSpace(value) == "" {
		return fallback
	}

	return value
}

func getEnvAsInt(key string, fallback int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}

	out, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}

	return out, nil
}

func getEnvAsInt64(key string, fallback int64) (int64, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}

	out, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, err
	}

	return out, nil
}

func getEnvAsFloat(key string, fallback float64) (float64, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}

	out, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, err
	}

	return out, nil
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		item := strings.TrimSpace(part)
		if item == "" {
			continue
		}
		out = append(out, item)
	}

	return out
}

func parseUptraceDSNFromOTLPHeaders(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}

	items := strings.Split(raw, ",")
	for _, item := range items {
		parts := strings.SplitN(strings.TrimSpace(item), "=", 2)
		if len(parts) != 2 {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(parts[0]), "uptrace-dsn") {
			value := strings.TrimSpace(parts[1])
			return strings.Trim(value, "\"'")
		}
	}

	return ""
}

const (
	EnvDev   = "dev"
	EnvStage = "stage"
	EnvProd  = "prod"
)

func parseAppEnv(v string) (string, error) {
	value := strings.ToLower(strings.TrimSpace(v))
	switch value {
	case EnvDev, EnvStage, EnvProd:
		return value, nil
	default:
		return "", fmt.Errorf("invalid APP_ENV %q: valid values are %s, %s, %s", v, EnvDev, EnvStage, EnvProd)
	}
}

func parseStorageDriver(v string) (string, error) {
	value := strings.ToLower(strings.TrimSpace(v))
	switch value {
	case StorageDriverSQLite, StorageDriverPostgres, StorageDriverMemory:
		return value, nil
	default:
		return "", fmt.Errorf("invalid STORAGE_DRIVER %q: valid values are %s, %s, %s",
			v, StorageDriverSQLite, StorageDriverPostgres, StorageDriverMemory)
	}
}
