package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/edudash-core/internal/domain"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort string
	AppEnv  string

	UpstreamBaseURL string
	// ServiceToken is the bearer credential the background feeds poll with.
	// Requests arriving on the local API carry their own bearer, which takes
	// precedence for user-initiated calls.
	ServiceToken string
	PollInterval time.Duration
	Scopes       []domain.Scope
	// EmptyOnErrorScopes lists scopes whose notification endpoint is known to
	// 404 when nothing is configured; their feeds clear to empty on fetch
	// failure instead of keeping stale data.
	EmptyOnErrorScopes []domain.Scope

	JWTPublicKeyPath string // optional; claims are decoded unverified when empty

	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string
	DynamoTables   DynamoTables
	S3BucketName   string

	SNSRegion       string
	EscalationPhone string // empty disables SMS escalation

	AllowedOrigins []string // CORS allowed origins
}

// DynamoTables holds the DynamoDB table name for each locally stored entity.
type DynamoTables struct {
	AlignmentDrafts string
	AuditEvents     string
}

// Load reads all configuration from environment variables.
func Load() *Config {
	return &Config{
		AppPort: getEnv("APP_PORT", "3000"),
		AppEnv:  getEnv("APP_ENV", "development"),

		UpstreamBaseURL:    getEnv("UPSTREAM_BASE_URL", "http://localhost:8080/api"),
		ServiceToken:       getEnv("UPSTREAM_SERVICE_TOKEN", ""),
		PollInterval:       time.Duration(getEnvInt("POLL_INTERVAL_SECONDS", 5)) * time.Second,
		Scopes:             parseScopes(getEnv("FEED_SCOPES", "state,center,card-admin,coordinator")),
		EmptyOnErrorScopes: parseScopes(getEnv("FEED_EMPTY_ON_ERROR_SCOPES", "coordinator")),

		JWTPublicKeyPath: getEnv("JWT_PUBLIC_KEY_PATH", ""),

		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		DynamoTables: DynamoTables{
			AlignmentDrafts: getEnv("DYNAMO_TABLE_ALIGNMENT_DRAFTS", "alignment_drafts"),
			AuditEvents:     getEnv("DYNAMO_TABLE_AUDIT_EVENTS", "audit_events"),
		},
		S3BucketName: getEnv("S3_BUCKET_NAME", "edudash-certificates"),

		SNSRegion:       getEnv("SNS_REGION", "us-east-1"),
		EscalationPhone: getEnv("ESCALATION_PHONE", ""),

		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
	}
}

func parseScopes(raw string) []domain.Scope {
	var scopes []domain.Scope
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			scopes = append(scopes, domain.Scope(s))
		}
	}
	return scopes
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
