package domain

import "time"

// Config holds the complete Kestrel configuration.
type Config struct {
	// Server settings
	Server ServerConfig `json:"server"`

	// Tier determines infrastructure wiring
	Tier Tier `json:"tier"`

	// Component configurations
	Repository RepositoryConfig `json:"repository"`
	Cache      CacheConfig      `json:"cache"`
	EventBus   EventBusConfig   `json:"eventBus"`
	Sweeper    SweeperConfig    `json:"sweeper"`

	// Analytics thresholds and lookup tables
	Analytics AnalyticsConfig `json:"analytics"`

	// Observability
	Logging LoggingConfig `json:"logging"`
	Tracing TracingConfig `json:"tracing"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string `json:"host"`
	Port         int    `json:"port"`
	ReadTimeout  int    `json:"readTimeout"`  // seconds
	WriteTimeout int    `json:"writeTimeout"` // seconds
}

// SweeperConfig holds background alert-sweep settings.
type SweeperConfig struct {
	Enabled  bool          `json:"enabled"`
	Interval time.Duration `json:"interval"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // json, text
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	Enabled     bool   `json:"enabled"`
	ServiceName string `json:"serviceName"`
}

// Tier represents the deployment tier.
type Tier string

const (
	// TierCommunity is SQLite + in-memory cache + channel bus.
	TierCommunity Tier = "community"

	// TierPro is PostgreSQL + Redis + NATS.
	TierPro Tier = "pro"
)

// CustomAlertRule is an operator-defined alert rule. The CEL expression is
// evaluated per merchant over {merchant_id, merchant_name, ratio,
// transactions, chargebacks} and must return bool.
type CustomAlertRule struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Severity   string `json:"severity"`
	Expression string `json:"expression"`
}

// AnalyticsConfig holds the immutable thresholds and lookup tables the
// engines are constructed with. Tests substitute alternate tables here
// instead of patching globals.
type AnalyticsConfig struct {
	// CurrencyRates maps a currency code to units per 1 USD.
	// Codes absent from the map convert at rate 1.0.
	CurrencyRates map[string]float64 `json:"currencyRates"`

	// SegmentRatioThreshold is the default high-risk segment cutoff (%).
	SegmentRatioThreshold float64 `json:"segmentRatioThreshold"`

	// MerchantRatioAlertThreshold is the HIGH_CHARGEBACK_RATIO cutoff (%).
	MerchantRatioAlertThreshold float64 `json:"merchantRatioAlertThreshold"`

	// HighValueThresholdUSD is the HIGH_VALUE_DISPUTE cutoff in USD.
	HighValueThresholdUSD float64 `json:"highValueThresholdUsd"`

	// RepeatOffenderMinDisputes is the repeat-offender qualification count.
	RepeatOffenderMinDisputes int `json:"repeatOffenderMinDisputes"`

	// BINClusterWindowHours is the BIN-pattern pairwise proximity window.
	BINClusterWindowHours int `json:"binClusterWindowHours"`

	// Recommendations maps a reason code to its remediation message.
	Recommendations map[string]string `json:"recommendations"`

	// FallbackRecommendation is used for codes absent from the table.
	FallbackRecommendation string `json:"fallbackRecommendation"`

	// CustomAlertRules are optional CEL merchant rules.
	CustomAlertRules []CustomAlertRule `json:"customAlertRules,omitempty"`
}

// DefaultAnalyticsConfig returns the built-in thresholds and tables.
func DefaultAnalyticsConfig() AnalyticsConfig {
	return AnalyticsConfig{
		CurrencyRates: map[string]float64{
			"MXN": 17.0,
			"COP": 4000.0,
			"CLP": 950.0,
		},
		SegmentRatioThreshold:       1.5,
		MerchantRatioAlertThreshold: 1.5,
		HighValueThresholdUSD:       500.0,
		RepeatOffenderMinDisputes:   3,
		BINClusterWindowHours:       48,
		Recommendations: map[string]string{
			"10.4": "Implement 3D Secure authentication to reduce card-not-present fraud. Review your fraud scoring rules.",
			"13.1": "Improve delivery confirmation and tracking. Use signed delivery for high-value orders.",
			"13.3": "Strengthen product descriptions and quality control. Implement return policies.",
			"12.6": "Ensure transaction receipts match billed amounts. Review duplicate transaction prevention logic.",
			"13.2": "Clarify subscription cancellation policy. Send reminders before recurring charges.",
		},
		FallbackRecommendation: "Review chargeback patterns and implement additional fraud prevention measures.",
	}
}

// DefaultConfig returns a default configuration for Community tier.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30,
			WriteTimeout: 30,
		},
		Tier: TierCommunity,
		Repository: RepositoryConfig{
			Driver:     "sqlite",
			SQLitePath: "./kestrel.db",
		},
		Cache: CacheConfig{
			Type:         "memory",
			LocalMaxSize: 10000,
			ResponseTTL:  60 * time.Second,
		},
		EventBus: EventBusConfig{
			Type:              "channel",
			ChannelBufferSize: 1000,
		},
		Sweeper: SweeperConfig{
			Enabled:  true,
			Interval: 15 * time.Minute,
		},
		Analytics: DefaultAnalyticsConfig(),
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			Enabled:     false,
			ServiceName: "kestrel",
		},
	}
}

// ProConfig returns a configuration for Pro tier.
func ProConfig() *Config {
	cfg := DefaultConfig()
	cfg.Tier = TierPro
	cfg.Repository = RepositoryConfig{
		Driver:       "postgres",
		PostgresHost: "localhost",
		PostgresPort: 5432,
		PostgresDB:   "kestrel",
	}
	cfg.Cache = CacheConfig{
		Type:        "redis",
		RedisAddr:   "localhost:6379",
		ResponseTTL: 60 * time.Second,
	}
	cfg.EventBus = EventBusConfig{
		Type:              "nats",
		NATSUrl:           "nats://localhost:4222",
		NATSMaxReconnects: 10,
		NATSReconnectWait: 5,
	}
	cfg.Tracing.Enabled = true
	return cfg
}
