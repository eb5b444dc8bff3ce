package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML values like "30s" or "5m" decode.
type Duration struct {
	time.Duration
}

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	d.Duration = parsed
	return nil
}

// Config holds all runtime configuration
type Config struct {
	Server struct {
		Port         int    `yaml:"port"`
		AllowOrigins string `yaml:"allow_origins"`
	} `yaml:"server"`

	// StoreA and StoreB are the two independent backing stores the
	// dual-store gateway fans writes and reads across.
	StoreA StoreConfig `yaml:"store_a"`
	StoreB StoreConfig `yaml:"store_b"`

	Redis struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		PoolSize int    `yaml:"pool_size"`
	} `yaml:"redis"`

	Admission struct {
		DefaultQuota int      `yaml:"default_quota"`
		MaxWords     int      `yaml:"max_words"`
		OwnerIPs     []string `yaml:"owner_ips"`
	} `yaml:"admission"`

	RateLimit struct {
		SubmitPerWindow int      `yaml:"submit_per_window"`
		Window          Duration `yaml:"window"`
		BlockDuration   Duration `yaml:"block_duration"`
	} `yaml:"rate_limit"`

	Cache struct {
		MaxAge               Duration `yaml:"max_age"`
		StaleWhileRevalidate Duration `yaml:"stale_while_revalidate"`
		MaxEntries           int      `yaml:"max_entries"`
		PrefetchDepth        int      `yaml:"prefetch_depth"`
		Persist              bool     `yaml:"persist"`
	} `yaml:"cache"`

	Admin struct {
		Username      string `yaml:"username"`
		PasswordHash  string `yaml:"password_hash"`
		StepUpSecret  string `yaml:"step_up_secret"`
		SessionMaxAge Duration `yaml:"session_max_age"`
	} `yaml:"admin"`

	GeoIP struct {
		Endpoint string   `yaml:"endpoint"`
		Timeout  Duration `yaml:"timeout"`
	} `yaml:"geoip"`

	Sweep struct {
		PinInterval       Duration `yaml:"pin_interval"`
		RateLimitInterval Duration `yaml:"rate_limit_interval"`
	} `yaml:"sweep"`

	StoreTimeout Duration `yaml:"store_timeout"`
}

// StoreConfig is the connection config for one backing store
type StoreConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// DSN builds a MySQL DSN for the store
func (s StoreConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		s.User, s.Password, s.Host, s.Port, s.Database)
}

// Load reads the YAML config file and applies environment overrides.
// Secrets (store passwords, admin credentials, step-up secret) should come
// from the environment in production, never from source constants.
func Load(path string) (*Config, error) {
	cfg := defaults()

	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if cfg.Admission.DefaultQuota <= 0 {
		cfg.Admission.DefaultQuota = 2
	}
	return cfg, nil
}

func defaults() *Config {
	cfg := &Config{}
	cfg.Server.Port = 8080
	cfg.Redis.Port = 6379
	cfg.Redis.PoolSize = 10
	cfg.Admission.DefaultQuota = 2
	cfg.Admission.MaxWords = 200
	cfg.RateLimit.SubmitPerWindow = 5
	cfg.RateLimit.Window = Duration{time.Minute}
	cfg.RateLimit.BlockDuration = Duration{10 * time.Minute}
	cfg.Cache.MaxAge = Duration{30 * time.Second}
	cfg.Cache.StaleWhileRevalidate = Duration{5 * time.Minute}
	cfg.Cache.MaxEntries = 200
	cfg.Cache.PrefetchDepth = 2
	cfg.Admin.SessionMaxAge = Duration{365 * 24 * time.Hour}
	cfg.GeoIP.Endpoint = "http://ip-api.com/json"
	cfg.GeoIP.Timeout = Duration{3 * time.Second}
	cfg.Sweep.PinInterval = Duration{time.Minute}
	cfg.Sweep.RateLimitInterval = Duration{5 * time.Minute}
	cfg.StoreTimeout = Duration{5 * time.Second}
	return cfg
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = p
		}
	}
	overrideStore(&cfg.StoreA, "STORE_A")
	overrideStore(&cfg.StoreB, "STORE_B")
	if v := os.Getenv("REDIS_HOST"); v != "" {
		cfg.Redis.Host = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("ADMIN_USERNAME"); v != "" {
		cfg.Admin.Username = v
	}
	if v := os.Getenv("ADMIN_PASSWORD_HASH"); v != "" {
		cfg.Admin.PasswordHash = v
	}
	if v := os.Getenv("STEP_UP_SECRET"); v != "" {
		cfg.Admin.StepUpSecret = v
	}
	if v := os.Getenv("OWNER_IPS"); v != "" {
		cfg.Admission.OwnerIPs = splitAndTrim(v)
	}
}

func overrideStore(s *StoreConfig, prefix string) {
	if v := os.Getenv(prefix + "_HOST"); v != "" {
		s.Host = v
	}
	if v := os.Getenv(prefix + "_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			s.Port = p
		}
	}
	if v := os.Getenv(prefix + "_USER"); v != "" {
		s.User = v
	}
	if v := os.Getenv(prefix + "_PASSWORD"); v != "" {
		s.Password = v
	}
	if v := os.Getenv(prefix + "_DATABASE"); v != "" {
		s.Database = v
	}
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
