package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

type Configs struct {
	Env string

	Log          LogConfigs
	Database     DatabaseConfigs
	ApiServer    ServerConfigs
	Redis        RedisConfigs
	Kafka        KafkaConfigs
	Storage      S3Configs
	Classifier   ClassifierConfigs
	Verification VerificationConfigs
	Ledger       LedgerConfigs
}

type LogConfigs struct {
	Level string
}

type DatabaseConfigs struct {
	Host     string
	Port     string
	Database string
	User     string
	Password string
}

func (d *DatabaseConfigs) ConnectionString() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		d.User,
		d.Password,
		d.Host,
		d.Port,
		d.Database,
	)
}

// MigrationURL returns the database url in golang-migrate format.
func (d *DatabaseConfigs) MigrationURL() string {
	return fmt.Sprintf("mysql://%s:%s@tcp(%s:%s)/%s?multiStatements=true",
		d.User,
		d.Password,
		d.Host,
		d.Port,
		d.Database,
	)
}

type ServerConfigs struct {
	Host           string
	Port           string
	AllowedOrigins []string
}

type RedisConfigs struct {
	// Leave Addr empty to use in-process locks, only valid for a single
	// instance deployment.
	Addr    string
	LockTTL Duration
}

type KafkaConfigs struct {
	Addr                  string
	ClientID              string
	GroupID               string
	VerificationTopic     string
	SubmissionEventsTopic string
}

type S3Configs struct {
	Region      string
	Endpoint    string
	AccessKey   string
	SecretKey   string
	SSLDisabled bool
}

type ClassifierConfigs struct {
	Endpoints []string
	APIKey    string
}

type VerificationConfigs struct {
	// Async publishes submissions to kafka and verifies them in the worker
	// instead of inside the submitProof request.
	Async bool

	HighConfidence float64
	LowConfidence  float64

	DefaultRadiusM   float64
	HammingThreshold int
	DuplicateScope   string

	CaptureWindow Duration
	ClockSkew     Duration

	ClassifyTimeout   Duration
	CapabilityRetries int
	RetryBackoff      Duration

	MediaCacheSize    int
	PendingSweepAfter Duration

	// ReindexWindow is how far back the reindex job looks for accepted
	// submissions missing from the duplicate index.
	ReindexWindow Duration

	// CategoryVocabulary holds the default expected labels of each quest
	// category, merged with the labels declared by the quest itself.
	CategoryVocabulary map[string][]string
}

type LedgerConfigs struct {
	Timezone string

	DifficultyMultipliers map[string]float64
	StreakMultipliers     []StreakMultiplier

	MaxRetries int
}

// StreakMultiplier applies Multiplier once the streak reaches MinStreak days.
type StreakMultiplier struct {
	MinStreak  int
	Multiplier float64
}

// Location returns the timezone used to cut calendar days for streaks.
func (c LedgerConfigs) Location() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}

	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}

	return loc
}

type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

func Default() Configs {
	return Configs{
		Env: "local",
		Log: LogConfigs{Level: "info"},
		Database: DatabaseConfigs{
			Host:     "localhost",
			Port:     "3306",
			Database: "terraed",
			User:     "terraed",
		},
		ApiServer: ServerConfigs{Port: "8080", AllowedOrigins: []string{"http://localhost:3000"}},
		Redis:     RedisConfigs{LockTTL: Duration{10 * time.Second}},
		Kafka: KafkaConfigs{
			ClientID:              "terraed-verification",
			GroupID:               "terraed-verification-worker",
			VerificationTopic:     "verification_request",
			SubmissionEventsTopic: "submission_event",
		},
		Verification: VerificationConfigs{
			HighConfidence:    0.85,
			LowConfidence:     0.3,
			DefaultRadiusM:    500,
			HammingThreshold:  3,
			DuplicateScope:    "quest_user",
			CaptureWindow:     Duration{72 * time.Hour},
			ClockSkew:         Duration{10 * time.Minute},
			ClassifyTimeout:   Duration{5 * time.Second},
			CapabilityRetries: 3,
			RetryBackoff:      Duration{200 * time.Millisecond},
			MediaCacheSize:    256,
			PendingSweepAfter: Duration{10 * time.Minute},
			ReindexWindow:     Duration{24 * time.Hour},
			CategoryVocabulary: map[string][]string{
				"waste":        {"trash", "litter", "recycling", "waste", "bin"},
				"energy":       {"solar panel", "light bulb", "switch", "energy"},
				"water":        {"water", "tap", "river", "rain barrel"},
				"biodiversity": {"plant", "tree", "sapling", "flower", "bird", "insect"},
				"transport":    {"bicycle", "bus", "walking", "train"},
			},
		},
		Ledger: LedgerConfigs{
			Timezone:              "UTC",
			DifficultyMultipliers: map[string]float64{"easy": 1, "medium": 1, "hard": 1},
			MaxRetries:            3,
		},
	}
}

// Load reads the toml file at path on top of the defaults, then applies the
// environment (and .env file if any) overrides.
func Load(path string) (Configs, error) {
	cfg := Default()
	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("decode config file %s: %w", path, err)
		}
	}

	// A missing .env file is normal outside of local development.
	_ = godotenv.Load()

	override(&cfg.Env, "ENV")
	override(&cfg.Log.Level, "LOG_LEVEL")
	override(&cfg.Database.Host, "DB_HOST")
	override(&cfg.Database.Port, "DB_PORT")
	override(&cfg.Database.Database, "DB_DATABASE")
	override(&cfg.Database.User, "DB_USER")
	override(&cfg.Database.Password, "DB_PASSWORD")
	override(&cfg.ApiServer.Port, "API_PORT")
	override(&cfg.Redis.Addr, "REDIS_ADDR")
	override(&cfg.Kafka.Addr, "KAFKA_ADDR")
	override(&cfg.Storage.AccessKey, "S3_ACCESS_KEY")
	override(&cfg.Storage.SecretKey, "S3_SECRET_KEY")
	override(&cfg.Classifier.APIKey, "CLASSIFIER_API_KEY")

	if v := os.Getenv("CLASSIFIER_ENDPOINTS"); v != "" {
		cfg.Classifier.Endpoints = strings.Split(v, ",")
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

func (c Configs) Validate() error {
	v := c.Verification
	if v.LowConfidence < 0 || v.HighConfidence > 1 || v.LowConfidence > v.HighConfidence {
		return fmt.Errorf("invalid confidence thresholds low=%v high=%v", v.LowConfidence, v.HighConfidence)
	}

	if v.HammingThreshold < 0 || v.HammingThreshold > 64 {
		return fmt.Errorf("hamming threshold must be in [0, 64], got %d", v.HammingThreshold)
	}

	switch v.DuplicateScope {
	case "quest_user", "quest", "global":
	default:
		return fmt.Errorf("unknown duplicate scope %q", v.DuplicateScope)
	}

	if v.CapabilityRetries < 1 {
		return fmt.Errorf("capability retries must be positive")
	}

	return nil
}

func override(field *string, env string) {
	if v := os.Getenv(env); v != "" {
		*field = v
	}
}
