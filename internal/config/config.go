package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// Config captures runtime configuration for the dashboard service.
type Config struct {
	HTTP      HTTPConfig
	Backend   BackendConfig
	Cache     CacheConfig
	Dashboard DashboardConfig
	RateLimit RateLimitConfig
	Telemetry TelemetryConfig
	Service   ServiceConfig
}

type HTTPConfig struct {
	Port          int
	MetricsPath   string
	ShutdownGrace int
	// TrustProxy reads client addresses from X-Forwarded-For / X-Real-IP.
	TrustProxy bool
}

type BackendConfig struct {
	BaseURL string
}

type CacheConfig struct {
	StaleTime time.Duration
	GCTime    time.Duration
}

type DashboardConfig struct {
	RenderWait      time.Duration
	RefreshInterval time.Duration
	ShowErrors      bool
}

// RateLimitConfig limits dashboard requests per client. RPS of 0 disables
// limiting.
type RateLimitConfig struct {
	RPS   float64
	Burst int
}

type TelemetryConfig struct {
	LogLevel      string
	OTelEndpoint  string
	EnableTracing bool
	EnableMetrics bool
	SampleRate    float64
}

type ServiceConfig struct {
	Name        string
	Version     string
	Environment string
}

const (
	defaultHTTPPort        = 8080
	defaultMetricsPath     = "/metrics"
	defaultShutdownGrace   = 15
	defaultBackendBaseURL  = "http://localhost:5000/api"
	defaultStaleTime       = "0s"
	defaultGCTime          = "5m"
	defaultRenderWait      = "3s"
	defaultRefreshInterval = "2s"
	defaultRateLimitBurst  = 10
	defaultServiceName     = "ticketboard"
	defaultServiceVersion  = "0.1.0"
	defaultEnvironment     = "development"
	defaultLogLevel        = "info"
	defaultOTelSampleRate  = 1.0
)

// setting binds one config key to its environment variables. The first
// variable set wins.
type setting struct {
	key      string
	envs     []string
	fallback any
}

var settings = []setting{
	{key: "http.port", envs: []string{"API_HTTP_PORT"}, fallback: defaultHTTPPort},
	{key: "http.metrics_path", envs: []string{"API_METRICS_PATH"}, fallback: defaultMetricsPath},
	{key: "http.shutdown_grace", envs: []string{"API_SHUTDOWN_GRACE_SECONDS"}, fallback: defaultShutdownGrace},
	{key: "http.trust_proxy", envs: []string{"API_TRUST_PROXY"}, fallback: false},
	{key: "backend.base_url", envs: []string{"API_BASE_URL", "VITE_API_URL"}, fallback: defaultBackendBaseURL},
	{key: "cache.stale_time", envs: []string{"QUERY_STALE_TIME"}, fallback: defaultStaleTime},
	{key: "cache.gc_time", envs: []string{"QUERY_GC_TIME"}, fallback: defaultGCTime},
	{key: "dashboard.render_wait", envs: []string{"DASHBOARD_RENDER_WAIT"}, fallback: defaultRenderWait},
	{key: "dashboard.refresh_interval", envs: []string{"DASHBOARD_REFRESH_INTERVAL"}, fallback: defaultRefreshInterval},
	{key: "dashboard.show_errors", envs: []string{"DASHBOARD_SHOW_ERRORS"}, fallback: false},
	{key: "rate_limit.rps", envs: []string{"RATE_LIMIT_RPS"}, fallback: 0.0},
	{key: "rate_limit.burst", envs: []string{"RATE_LIMIT_BURST"}, fallback: defaultRateLimitBurst},
	{key: "telemetry.log_level", envs: []string{"LOG_LEVEL"}, fallback: defaultLogLevel},
	{key: "telemetry.otlp_endpoint", envs: []string{"OTEL_EXPORTER_OTLP_ENDPOINT"}, fallback: ""},
	{key: "telemetry.enable_tracing", envs: []string{"OTEL_ENABLE_TRACING"}, fallback: false},
	{key: "telemetry.enable_metrics", envs: []string{"OTEL_ENABLE_METRICS"}, fallback: false},
	{key: "telemetry.sample_rate", envs: []string{"OTEL_SAMPLE_RATE"}, fallback: defaultOTelSampleRate},
	{key: "service.name", envs: []string{"API_SERVICE_NAME"}, fallback: defaultServiceName},
	{key: "service.version", envs: []string{"SERVICE_VERSION"}, fallback: defaultServiceVersion},
	{key: "service.environment", envs: []string{"ENVIRONMENT"}, fallback: defaultEnvironment},
}

// Load reads configuration from environment variables, applying defaults when needed.
func Load() (*Config, error) {
	v := viper.New()
	for _, s := range settings {
		v.SetDefault(s.key, s.fallback)
		if err := v.BindEnv(append([]string{s.key}, s.envs...)...); err != nil {
			return nil, fmt.Errorf("binding %s: %w", s.key, err)
		}
	}

	r := reader{v: v}
	cfg := &Config{
		HTTP: HTTPConfig{
			Port:          r.int("http.port"),
			MetricsPath:   r.string("http.metrics_path"),
			ShutdownGrace: r.int("http.shutdown_grace"),
			TrustProxy:    r.bool("http.trust_proxy"),
		},
		Backend: BackendConfig{
			BaseURL: strings.TrimRight(r.string("backend.base_url"), "/"),
		},
		Cache: CacheConfig{
			StaleTime: r.duration("cache.stale_time"),
			GCTime:    r.duration("cache.gc_time"),
		},
		Dashboard: DashboardConfig{
			RenderWait:      r.duration("dashboard.render_wait"),
			RefreshInterval: r.duration("dashboard.refresh_interval"),
			ShowErrors:      r.bool("dashboard.show_errors"),
		},
		RateLimit: RateLimitConfig{
			RPS:   r.float("rate_limit.rps"),
			Burst: r.int("rate_limit.burst"),
		},
		Telemetry: TelemetryConfig{
			LogLevel:      strings.ToLower(r.string("telemetry.log_level")),
			OTelEndpoint:  r.string("telemetry.otlp_endpoint"),
			EnableTracing: r.bool("telemetry.enable_tracing"),
			EnableMetrics: r.bool("telemetry.enable_metrics"),
			SampleRate:    r.float("telemetry.sample_rate"),
		},
		Service: ServiceConfig{
			Name:        r.string("service.name"),
			Version:     r.string("service.version"),
			Environment: r.string("service.environment"),
		},
	}
	if r.err != nil {
		return nil, r.err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.HTTP.Port < 1 || c.HTTP.Port > 65535 {
		return fmt.Errorf("%w: API_HTTP_PORT %d out of range", ErrInvalidConfig, c.HTTP.Port)
	}
	if !strings.HasPrefix(c.HTTP.MetricsPath, "/") || c.HTTP.MetricsPath == "/" {
		return fmt.Errorf("%w: API_METRICS_PATH %q must be an absolute path other than /", ErrInvalidConfig, c.HTTP.MetricsPath)
	}
	if c.HTTP.ShutdownGrace < 0 {
		return fmt.Errorf("%w: API_SHUTDOWN_GRACE_SECONDS must not be negative", ErrInvalidConfig)
	}
	if c.Backend.BaseURL == "" {
		return fmt.Errorf("%w: API_BASE_URL is empty", ErrInvalidConfig)
	}
	if c.Cache.StaleTime < 0 || c.Cache.GCTime < 0 {
		return fmt.Errorf("%w: query cache durations must not be negative", ErrInvalidConfig)
	}
	if c.Dashboard.RenderWait < 0 || c.Dashboard.RefreshInterval < 0 {
		return fmt.Errorf("%w: dashboard durations must not be negative", ErrInvalidConfig)
	}
	if c.RateLimit.RPS < 0 {
		return fmt.Errorf("%w: RATE_LIMIT_RPS must not be negative", ErrInvalidConfig)
	}
	if c.RateLimit.RPS > 0 && c.RateLimit.Burst < 1 {
		return fmt.Errorf("%w: RATE_LIMIT_BURST must be at least 1", ErrInvalidConfig)
	}
	switch c.Telemetry.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: LOG_LEVEL %q", ErrInvalidConfig, c.Telemetry.LogLevel)
	}
	return nil
}

// reader converts viper values and keeps the first conversion error.
type reader struct {
	v   *viper.Viper
	err error
}

func (r *reader) fail(key string, err error) {
	if r.err == nil {
		r.err = fmt.Errorf("invalid %s: %w", envName(key), err)
	}
}

func (r *reader) string(key string) string {
	s, err := cast.ToStringE(r.v.Get(key))
	if err != nil {
		r.fail(key, err)
	}
	return strings.TrimSpace(s)
}

func (r *reader) int(key string) int {
	n, err := cast.ToIntE(r.v.Get(key))
	if err != nil {
		r.fail(key, err)
	}
	return n
}

func (r *reader) float(key string) float64 {
	f, err := cast.ToFloat64E(r.v.Get(key))
	if err != nil {
		r.fail(key, err)
	}
	return f
}

func (r *reader) bool(key string) bool {
	b, err := cast.ToBoolE(r.v.Get(key))
	if err != nil {
		r.fail(key, err)
	}
	return b
}

// duration requires a unit ("30s", "5m"). A bare number other than 0 is
// rejected instead of being read as nanoseconds.
func (r *reader) duration(key string) time.Duration {
	raw := r.v.Get(key)
	if s, ok := raw.(string); ok {
		s = strings.TrimSpace(s)
		if n, err := strconv.ParseFloat(s, 64); err == nil && n != 0 {
			r.fail(key, fmt.Errorf("duration %q has no unit", s))
			return 0
		}
	}
	d, err := cast.ToDurationE(raw)
	if err != nil {
		r.fail(key, err)
	}
	return d
}

func envName(key string) string {
	for _, s := range settings {
		if s.key == key {
			return s.envs[0]
		}
	}
	return key
}
