package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// MinIO holds the object storage settings used when IMAGE_STORE=minio.
type MinIO struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	Region    string
	PublicURL string
}

// Redis holds the submission cache settings. An empty Addr disables it.
type Redis struct {
	Addr     string
	Password string
	DB       int `validate:"min=0"`
}

// AppConfig is built once at startup and handed to every component.
type AppConfig struct {
	ListenAddr    string
	Port          string
	GinMode       string
	LogLevel      string `validate:"oneof=debug info warn error"`
	SessionSecret string
	AllowedOrigin string

	Token      string
	RepoOwner  string `validate:"required"`
	RepoName   string `validate:"required"`
	APIBaseURL string `validate:"required,url"`
	IssueLabel string

	PublishOwner  string `validate:"required"`
	PublishRepo   string `validate:"required"`
	PublishPath   string `validate:"required"`
	PublishBranch string

	DirectDeployEnabled bool
	MaxEntries          int `validate:"min=1"`
	EntriesPath         string
	LedgerPath          string

	HostedImagePrefixes []string
	ImageStore          string `validate:"oneof=local minio"`
	ImageDir            string
	ImageBaseURL        string
	MinIO               MinIO

	Redis         Redis
	SubmissionTTL time.Duration `validate:"gt=0"`

	ModeratorKeyHash  string
	ReconcileSchedule string
}

// ErrTokenMissing is returned by RequireToken when GITHUB_TOKEN is unset.
var ErrTokenMissing = errors.New("GITHUB_TOKEN is not set")

// Load reads .env when present, then the process environment, falling
// back to defaults for anything missing or unparsable.
func Load() AppConfig {
	_ = godotenv.Load()

	port := getEnv("PORT", "8787")
	owner := getEnv("GITHUB_OWNER", "CollectifIleFeydeau")
	repo := getEnv("GITHUB_REPO", "community-content")

	return AppConfig{
		ListenAddr:    getEnv("LISTEN_ADDR", fmt.Sprintf(":%s", port)),
		Port:          port,
		GinMode:       getEnv("GIN_MODE", "release"),
		LogLevel:      strings.ToLower(getEnv("LOG_LEVEL", "info")),
		SessionSecret: getEnv("SESSION_SECRET", "community-content-dev-secret"),
		AllowedOrigin: getEnv("ALLOWED_ORIGIN", "*"),

		Token:      getEnv("GITHUB_TOKEN", ""),
		RepoOwner:  owner,
		RepoName:   repo,
		APIBaseURL: strings.TrimRight(getEnv("GITHUB_API_URL", "https://api.github.com"), "/"),
		IssueLabel: getEnv("ISSUE_LABEL", ""),

		PublishOwner:  getEnv("PUBLISH_OWNER", owner),
		PublishRepo:   getEnv("PUBLISH_REPO", "1Hall1Artiste"),
		PublishPath:   getEnv("PUBLISH_PATH", "data/community-content.json"),
		PublishBranch: getEnv("PUBLISH_BRANCH", "gh-pages"),

		// only the literal "true" turns direct deploy on
		DirectDeployEnabled: getEnv("ENABLE_DIRECT_DEPLOY", "") == "true",
		MaxEntries:          getEnvAsInt("MAX_ENTRIES", 100),
		EntriesPath:         getEnv("ENTRIES_PATH", "entries.json"),
		LedgerPath:          getEnv("LEDGER_PATH", ""),

		HostedImagePrefixes: splitCSV(getEnv("HOSTED_IMAGE_PREFIXES", "https://res.cloudinary.com/")),
		ImageStore:          strings.ToLower(getEnv("IMAGE_STORE", "local")),
		ImageDir:            getEnv("IMAGE_DIR", "."),
		ImageBaseURL:        strings.TrimRight(getEnv("IMAGE_BASE_URL", fmt.Sprintf("https://github.com/%s/%s/raw/main", owner, repo)), "/"),
		MinIO: MinIO{
			Endpoint:  getEnv("MINIO_ENDPOINT", "localhost:9000"),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", "community-content"),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
			Region:    getEnv("MINIO_REGION", ""),
			PublicURL: strings.TrimRight(getEnv("MINIO_PUBLIC_URL", ""), "/"),
		},

		Redis: Redis{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		SubmissionTTL: getEnvAsDuration("SUBMISSION_TTL", 24*time.Hour),

		ModeratorKeyHash:  getEnv("MODERATOR_KEY_HASH", ""),
		ReconcileSchedule: getEnv("RECONCILE_SCHEDULE", ""),
	}
}

// Validate checks value ranges and enumerations.
func (c AppConfig) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			first := verrs[0]
			return fmt.Errorf("invalid config %s: failed %q", first.Namespace(), first.Tag())
		}
		return err
	}
	return nil
}

// RequireToken fails when no GitHub token is configured.
func (c AppConfig) RequireToken() error {
	if strings.TrimSpace(c.Token) == "" {
		return ErrTokenMissing
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvBool(key string, fallback bool) bool {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func splitCSV(value string) []string {
	raw := strings.Split(value, ",")
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		trimmed := strings.TrimSpace(item)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}
	return out
}
