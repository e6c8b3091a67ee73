package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
)

// Config is centralized process configuration.
// Keep infra values here and pass typed config into builders.
type Config struct {
	ServiceName string `yaml:"serviceName" envconfig:"SERVICE_NAME"`
	HTTPPort    string `yaml:"httpPort"    envconfig:"HTTP_PORT"`
	Store       string `yaml:"store"       envconfig:"STORE"`
	PostgresDSN string `yaml:"postgresDsn" envconfig:"POSTGRES_DSN"`
	SQLitePath  string `yaml:"sqlitePath"  envconfig:"SQLITE_PATH"`
	RedisAddr   string `yaml:"redisAddr"   envconfig:"REDIS_ADDR"`
	// ReferenceFile lists party standing, case targets and committee rosters
	// loaded into the store at startup.
	ReferenceFile string `yaml:"referenceFile" envconfig:"REFERENCE_FILE"`

	EventBusBuffer int           `yaml:"eventBusBuffer" envconfig:"EVENT_BUS_BUFFER"`
	PollInterval   time.Duration `yaml:"pollInterval"   envconfig:"WORKER_POLL_INTERVAL"`
	TraceStdout    bool          `yaml:"traceStdout"    envconfig:"TRACE_STDOUT"`
	Debug          bool          `yaml:"debug"          envconfig:"DEBUG"`

	Statute Statute `yaml:"statute" envconfig:"STATUTE"`

	// Feature flags accept the loose boolean spellings of envBool.
	EnableCaseConcludedConsumer bool `yaml:"enableCaseConcludedConsumer" ignored:"true"`
	EnableAppealWindowSweeper   bool `yaml:"enableAppealWindowSweeper"   ignored:"true"`
	EnableOutboxRelay           bool `yaml:"enableOutboxRelay"           ignored:"true"`
}

// Statute holds the procedural parameters of the electoral rules.
type Statute struct {
	DefenseDays           int      `yaml:"defenseDays"           envconfig:"DEFENSE_DAYS"`
	EvidenceDays          int      `yaml:"evidenceDays"          envconfig:"EVIDENCE_DAYS"`
	AllegationDays        int      `yaml:"allegationDays"        envconfig:"ALLEGATION_DAYS"`
	CounterAllegationDays int      `yaml:"counterAllegationDays" envconfig:"COUNTER_ALLEGATION_DAYS"`
	AppealDays            int      `yaml:"appealDays"            envconfig:"APPEAL_DAYS"`
	CalendarMode          string   `yaml:"calendarMode"          envconfig:"CALENDAR_MODE"`
	QuorumFraction        float64  `yaml:"quorumFraction"        envconfig:"QUORUM_FRACTION"`
	MaxTier               int      `yaml:"maxTier"               envconfig:"MAX_TIER"`
	Holidays              []string `yaml:"holidays"              envconfig:"HOLIDAYS"`
}

func defaults() Config {
	return Config{
		ServiceName:    "eleitoral",
		HTTPPort:       "8080",
		Store:          StoreMemory,
		SQLitePath:     "eleitoral.db",
		EventBusBuffer: 128,
		PollInterval:   2 * time.Second,
		Statute: Statute{
			DefenseDays:           5,
			EvidenceDays:          5,
			AllegationDays:        5,
			CounterAllegationDays: 5,
			AppealDays:            5,
			CalendarMode:          "calendar",
			QuorumFraction:        0.5,
			MaxTier:               2,
		},
		EnableCaseConcludedConsumer: true,
		EnableAppealWindowSweeper:   true,
		EnableOutboxRelay:           true,
	}
}

// Load reads the file named by CONFIG_FILE, when set, then the environment.
func Load() (Config, error) {
	return LoadFile(os.Getenv("CONFIG_FILE"))
}

// LoadFile layers defaults, the optional YAML file and the environment, in
// that order.
func LoadFile(path string) (Config, error) {
	cfg := defaults()

	if path = strings.TrimSpace(path); path != "" {
		buf, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(buf, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("process environment: %w", err)
	}

	cfg.EnableCaseConcludedConsumer = envBool("ENABLE_CASE_CONCLUDED_CONSUMER", cfg.EnableCaseConcludedConsumer)
	cfg.EnableAppealWindowSweeper = envBool("ENABLE_APPEAL_WINDOW_SWEEPER", cfg.EnableAppealWindowSweeper)
	cfg.EnableOutboxRelay = envBool("ENABLE_OUTBOX_RELAY", cfg.EnableOutboxRelay)

	cfg.Store = strings.ToLower(strings.TrimSpace(cfg.Store))
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.Store {
	case StoreMemory, StoreSQLite:
	case StorePostgres:
		if strings.TrimSpace(c.PostgresDSN) == "" {
			return errors.New("POSTGRES_DSN is required for the postgres store")
		}
	default:
		return fmt.Errorf("unknown store %q", c.Store)
	}
	if c.Statute.QuorumFraction <= 0 || c.Statute.QuorumFraction > 1 {
		return fmt.Errorf("quorum fraction %v must be in (0, 1]", c.Statute.QuorumFraction)
	}
	switch c.Statute.CalendarMode {
	case "calendar", "business":
	default:
		return fmt.Errorf("unknown calendar mode %q", c.Statute.CalendarMode)
	}
	if c.Statute.MaxTier < 1 {
		return errors.New("max tier must be at least 1")
	}
	return nil
}

func envBool(name string, fallback bool) bool {
	raw := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		return fallback
	}
}
