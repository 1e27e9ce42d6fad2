package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/riskibarqy/sports-tracker/internal/platform/logging"
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

	CORSAllowedOrigins   []string
	RateLimitWindow      time.Duration
	RateLimitMaxRequests int

	RedisURL     string
	CacheTTL     time.Duration
	LongCacheTTL time.Duration

	ESPNBaseURL                   string
	MLBBaseURL                    string
	UpstreamTimeout               time.Duration
	UpstreamMaxRetries            int
	UpstreamCircuitEnabled        bool
	UpstreamCircuitFailureCount   int
	UpstreamCircuitOpenTimeout    time.Duration
	UpstreamCircuitHalfOpenMaxReq int
	SoccerLeagues                 []string
	NFLSeasonStart                time.Time

	VAPIDPublicKey  string
	VAPIDPrivateKey string
	VAPIDSubject    string

	SchedulerEnabled        bool
	NotificationWorkers     int
	JobLiveGamesInterval    time.Duration
	JobUpcomingInterval     time.Duration
	JobNotificationInterval time.Duration
	JobSummaryInterval      time.Duration
	JobCleanupInterval      time.Duration

	MetricsEnabled             bool
	PprofEnabled               bool
	PprofAddr                  string
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
}

// PushEnabled is true when both VAPID keys and a usable subject are present.
func (c Config) PushEnabled() bool {
	return c.VAPIDPublicKey != "" && c.VAPIDPrivateKey != "" && c.VAPIDSubject != ""
}

func Load() (Config, error) {
	appEnv, err := parseAppEnv(getEnv("APP_ENV", EnvDev))
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppEnv:             appEnv,
		ServiceName:        getEnv("SERVICE_NAME", "sports-tracker-api"),
		ServiceVersion:     getEnv("SERVICE_VERSION", "dev"),
		HTTPAddr:           getEnv("HTTP_ADDR", ":"+getEnv("PORT", "3001")),
		LogLevel:           logging.ParseLevel(getEnv("LOG_LEVEL", "info")),
		CORSAllowedOrigins: splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		RedisURL:           strings.TrimSpace(getEnv("REDIS_URL", "")),
		ESPNBaseURL:        strings.TrimRight(getEnv("ESPN_BASE_URL", "https://site.api.espn.com"), "/"),
		MLBBaseURL:         strings.TrimRight(getEnv("MLB_BASE_URL", "https://statsapi.mlb.com"), "/"),
		SoccerLeagues:      splitCSV(getEnv("SOCCER_LEAGUES", "eng.1,esp.1,ita.1,ger.1,fra.1,usa.1,uefa.champions")),
		VAPIDPublicKey:     strings.TrimSpace(getEnv("VAPID_PUBLIC_KEY", "")),
		VAPIDPrivateKey:    strings.TrimSpace(getEnv("VAPID_PRIVATE_KEY", "")),
		VAPIDSubject:       getEnv("VAPID_SUBJECT", getEnv("VAPID_EMAIL", "")),
		PprofAddr:          strings.TrimSpace(getEnv("PPROF_ADDR", ":6060")),
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		return Config{}, fmt.Errorf("CORS_ALLOWED_ORIGINS cannot be empty")
	}

	durations := []struct {
		key      string
		fallback string
		target   *time.Duration
	}{
		{"APP_READ_TIMEOUT", "15s", &cfg.ReadTimeout},
		{"APP_WRITE_TIMEOUT", "30s", &cfg.WriteTimeout},
		{"UPSTREAM_TIMEOUT", "5s", &cfg.UpstreamTimeout},
		{"UPSTREAM_CIRCUIT_OPEN_TIMEOUT", "15s", &cfg.UpstreamCircuitOpenTimeout},
		{"JOB_LIVE_GAMES_INTERVAL", "30s", &cfg.JobLiveGamesInterval},
		{"JOB_UPCOMING_GAMES_INTERVAL", "5m", &cfg.JobUpcomingInterval},
		{"JOB_NOTIFICATION_INTERVAL", "1m", &cfg.JobNotificationInterval},
		{"JOB_SUMMARY_INTERVAL", "2m", &cfg.JobSummaryInterval},
		{"JOB_CLEANUP_INTERVAL", "1h", &cfg.JobCleanupInterval},
		{"PYROSCOPE_UPLOAD_RATE", "15s", &cfg.PyroscopeUploadRate},
	}
	for _, d := range durations {
		value, err := time.ParseDuration(getEnv(d.key, d.fallback))
		if err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", d.key, err)
		}
		if value <= 0 {
			return Config{}, fmt.Errorf("%s must be > 0", d.key)
		}
		*d.target = value
	}

	seconds := []struct {
		key      string
		fallback int
		target   *time.Duration
	}{
		{"CACHE_TTL_SECONDS", 30, &cfg.CacheTTL},
		{"LONG_CACHE_TTL_SECONDS", 300, &cfg.LongCacheTTL},
	}
	for _, s := range seconds {
		value, err := getEnvAsInt(s.key, s.fallback)
		if err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", s.key, err)
		}
		if value <= 0 {
			return Config{}, fmt.Errorf("%s must be > 0", s.key)
		}
		*s.target = time.Duration(value) * time.Second
	}

	windowMS, err := getEnvAsInt("RATE_LIMIT_WINDOW_MS", 900000)
	if err != nil {
		return Config{}, fmt.Errorf("parse RATE_LIMIT_WINDOW_MS: %w", err)
	}
	if windowMS <= 0 {
		return Config{}, fmt.Errorf("RATE_LIMIT_WINDOW_MS must be > 0")
	}
	cfg.RateLimitWindow = time.Duration(windowMS) * time.Millisecond

	if cfg.RateLimitMaxRequests, err = getEnvAsInt("RATE_LIMIT_MAX_REQUESTS", 100); err != nil {
		return Config{}, fmt.Errorf("parse RATE_LIMIT_MAX_REQUESTS: %w", err)
	}
	if cfg.RateLimitMaxRequests < 0 {
		return Config{}, fmt.Errorf("RATE_LIMIT_MAX_REQUESTS must be >= 0")
	}

	if cfg.UpstreamMaxRetries, err = getEnvAsInt("UPSTREAM_MAX_RETRIES", 1); err != nil {
		return Config{}, fmt.Errorf("parse UPSTREAM_MAX_RETRIES: %w", err)
	}
	if cfg.UpstreamMaxRetries < 0 {
		return Config{}, fmt.Errorf("UPSTREAM_MAX_RETRIES must be >= 0")
	}
	if cfg.UpstreamCircuitFailureCount, err = getEnvAsInt("UPSTREAM_CIRCUIT_FAILURE_COUNT", 5); err != nil {
		return Config{}, fmt.Errorf("parse UPSTREAM_CIRCUIT_FAILURE_COUNT: %w", err)
	}
	if cfg.UpstreamCircuitFailureCount < 1 {
		return Config{}, fmt.Errorf("UPSTREAM_CIRCUIT_FAILURE_COUNT must be >= 1")
	}
	if cfg.UpstreamCircuitHalfOpenMaxReq, err = getEnvAsInt("UPSTREAM_CIRCUIT_HALF_OPEN_MAX_REQ", 2); err != nil {
		return Config{}, fmt.Errorf("parse UPSTREAM_CIRCUIT_HALF_OPEN_MAX_REQ: %w", err)
	}
	if cfg.UpstreamCircuitHalfOpenMaxReq < 1 {
		return Config{}, fmt.Errorf("UPSTREAM_CIRCUIT_HALF_OPEN_MAX_REQ must be >= 1")
	}
	if cfg.NotificationWorkers, err = getEnvAsInt("NOTIFICATION_WORKERS", 8); err != nil {
		return Config{}, fmt.Errorf("parse NOTIFICATION_WORKERS: %w", err)
	}
	if cfg.NotificationWorkers < 1 {
		return Config{}, fmt.Errorf("NOTIFICATION_WORKERS must be >= 1")
	}

	cfg.NFLSeasonStart, err = time.Parse(time.DateOnly, getEnv("NFL_SEASON_START", "2025-09-04"))
	if err != nil {
		return Config{}, fmt.Errorf("parse NFL_SEASON_START: %w", err)
	}

	flags := []struct {
		key      string
		fallback string
		target   *bool
	}{
		{"UPSTREAM_CIRCUIT_ENABLED", "true", &cfg.UpstreamCircuitEnabled},
		{"SCHEDULER_ENABLED", "true", &cfg.SchedulerEnabled},
		{"METRICS_ENABLED", "true", &cfg.MetricsEnabled},
		{"PPROF_ENABLED", "false", &cfg.PprofEnabled},
		{"UPTRACE_ENABLED", "false", &cfg.UptraceEnabled},
		{"UPTRACE_LOGS_ENABLED", "true", &cfg.UptraceLogsEnabled},
		{"PYROSCOPE_ENABLED", "false", &cfg.PyroscopeEnabled},
	}
	for _, f := range flags {
		value, err := strconv.ParseBool(getEnv(f.key, f.fallback))
		if err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", f.key, err)
		}
		*f.target = value
	}

	if cfg.PprofEnabled && cfg.PprofAddr == "" {
		return Config{}, fmt.Errorf("PPROF_ADDR is required when PPROF_ENABLED=true")
	}

	cfg.UptraceDSN = strings.TrimSpace(getEnv("UPTRACE_DSN", ""))
	if cfg.UptraceDSN == "" {
		cfg.UptraceDSN = parseUptraceDSNFromOTLPHeaders(getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""))
	}
	if cfg.UptraceEnabled && cfg.UptraceDSN == "" {
		return Config{}, fmt.Errorf("UPTRACE_DSN is required when UPTRACE_ENABLED=true")
	}

	cfg.PyroscopeServerAddress = strings.TrimSpace(getEnv("PYROSCOPE_SERVER_ADDRESS", ""))
	if cfg.PyroscopeEnabled && cfg.PyroscopeServerAddress == "" {
		return Config{}, fmt.Errorf("PYROSCOPE_SERVER_ADDRESS is required when PYROSCOPE_ENABLED=true")
	}
	cfg.PyroscopeAppName = strings.TrimSpace(getEnv("PYROSCOPE_APP_NAME", cfg.ServiceName))
	cfg.PyroscopeAuthToken = strings.TrimSpace(getEnv("PYROSCOPE_AUTH_TOKEN", ""))
	cfg.PyroscopeBasicAuthUser = strings.TrimSpace(getEnv("PYROSCOPE_BASIC_AUTH_USER", ""))
	cfg.PyroscopeBasicAuthPassword = strings.TrimSpace(getEnv("PYROSCOPE_BASIC_AUTH_PASSWORD", ""))

	return cfg, nil
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

	for _, item := range strings.Split(raw, ",") {
		parts := strings.SplitN(strings.TrimSpace(item), "=", 2)
		if len(parts) != 2 {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(parts[0]), "uptrace-dsn") {
			return strings.Trim(strings.TrimSpace(parts[1]), "\"'")
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
	case "development":
		return EnvDev, nil
	case "production":
		return EnvProd, nil
	default:
		return "", fmt.Errorf("invalid APP_ENV %q: valid values are %s, %s, %s", v, EnvDev, EnvStage, EnvProd)
	}
}
