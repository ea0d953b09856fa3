// Package config loads service configuration from the environment so main
// stays lean. Policy knobs live here too: the aggregator and classifier are
// parameterised, never hard-coded.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"paygate/pkg/domain"
	pstrings "paygate/pkg/platform/strings"
)

// Config is the full service configuration.
type Config struct {
	Addr        string
	PostgresURL string
	Redis       RedisConfig
	Kafka       KafkaConfig

	// AcceptanceThreshold is the minimum verification score accepted
	// without manual review.
	AcceptanceThreshold int
	// ExpiringSoonDays is the width of the expiring_soon window.
	ExpiringSoonDays int
	// MandatoryTypes lists document types every contractor must hold.
	MandatoryTypes []domain.DocumentType
	// EmployersLiabilityWhenStaffed adds employers_liability for
	// contractors that declare employees.
	EmployersLiabilityWhenStaffed bool
	// MinimumCoverage maps insurance types to minimum coverage in pence.
	MinimumCoverage map[domain.DocumentType]int64

	// SweepInterval is how often the daily sweep ticker fires. The sweep is
	// idempotent, so a shorter interval in staging is harmless.
	SweepInterval time.Duration
	// SweepConcurrency bounds how many contractors the sweep works on at
	// once. Cross-contractor work is independent.
	SweepConcurrency int
	// SweepLockTTL is the per-contractor advisory lock lifetime.
	SweepLockTTL time.Duration

	// VerifyLinkSigningKey signs public verification share tokens.
	VerifyLinkSigningKey string
	// VerifyLinkTTL bounds how long a share token stays resolvable.
	VerifyLinkTTL time.Duration
}

// RedisConfig holds Redis connectivity settings. An empty URL disables Redis
// and the service falls back to in-process locking and no aggregate cache.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig holds event publishing settings. Empty brokers disable the
// Kafka publishers; audit events then go to the log only.
type KafkaConfig struct {
	Brokers       []string
	AuditTopic    string
	DispatchTopic string
}

// FromEnv builds a Config from environment variables with development
// defaults.
func FromEnv() Config {
	return Config{
		Addr:        envString("PAYGATE_ADDR", ":8080"),
		PostgresURL: envString("PAYGATE_POSTGRES_URL", ""),
		Redis: RedisConfig{
			URL:          envString("PAYGATE_REDIS_URL", ""),
			PoolSize:     envInt("PAYGATE_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("PAYGATE_REDIS_MIN_IDLE", 2),
			DialTimeout:  envDuration("PAYGATE_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("PAYGATE_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("PAYGATE_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:       envList("PAYGATE_KAFKA_BROKERS"),
			AuditTopic:    envString("PAYGATE_KAFKA_AUDIT_TOPIC", "paygate.compliance-events"),
			DispatchTopic: envString("PAYGATE_KAFKA_DISPATCH_TOPIC", "paygate.notification-dispatch"),
		},
		AcceptanceThreshold:           envInt("PAYGATE_ACCEPTANCE_THRESHOLD", 50),
		ExpiringSoonDays:              envInt("PAYGATE_EXPIRING_SOON_DAYS", 30),
		MandatoryTypes:                mandatoryTypes(),
		EmployersLiabilityWhenStaffed: envString("PAYGATE_EMPLOYERS_LIABILITY_WHEN_STAFFED", "true") == "true",
		MinimumCoverage:               minimumCoverage(),
		SweepInterval:                 envDuration("PAYGATE_SWEEP_INTERVAL", 24*time.Hour),
		SweepConcurrency:              envInt("PAYGATE_SWEEP_CONCURRENCY", 8),
		SweepLockTTL:                  envDuration("PAYGATE_SWEEP_LOCK_TTL", 2*time.Minute),
		VerifyLinkSigningKey:          envString("PAYGATE_VERIFY_LINK_KEY", "dev-verify-link-key-change-in-production"),
		VerifyLinkTTL:                 envDuration("PAYGATE_VERIFY_LINK_TTL", 30*24*time.Hour),
	}
}

func mandatoryTypes() []domain.DocumentType {
	raw := envList("PAYGATE_MANDATORY_TYPES")
	if len(raw) == 0 {
		return []domain.DocumentType{domain.DocTypePublicLiability}
	}
	var types []domain.DocumentType
	for _, entry := range pstrings.DedupeAndTrimLower(raw) {
		if dt, err := domain.ParseDocumentType(entry); err == nil {
			types = append(types, dt)
		}
	}
	if len(types) == 0 {
		return []domain.DocumentType{domain.DocTypePublicLiability}
	}
	return types
}

// minimumCoverage defaults to the UK construction norms the product ships
// with: £1m public liability, £5m employers liability.
func minimumCoverage() map[domain.DocumentType]int64 {
	return map[domain.DocumentType]int64{
		domain.DocTypePublicLiability:    envInt64("PAYGATE_MIN_COVER_PUBLIC_LIABILITY", 100_000_000),
		domain.DocTypeEmployersLiability: envInt64("PAYGATE_MIN_COVER_EMPLOYERS_LIABILITY", 500_000_000),
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	return pstrings.DedupeAndTrim(strings.Split(v, ","))
}
