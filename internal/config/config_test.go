package config

import (
	"errors"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "LISTEN_ADDR", "GITHUB_OWNER", "GITHUB_REPO", "PUBLISH_OWNER", "MAX_ENTRIES", "ENABLE_DIRECT_DEPLOY", "HOSTED_IMAGE_PREFIXES", "SUBMISSION_TTL", "IMAGE_STORE", "LOG_LEVEL"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.ListenAddr != ":8787" {
		t.Fatalf("unexpected listen addr %q", cfg.ListenAddr)
	}
	if cfg.RepoOwner != "CollectifIleFeydeau" || cfg.PublishOwner != cfg.RepoOwner {
		t.Fatalf("unexpected owners %q / %q", cfg.RepoOwner, cfg.PublishOwner)
	}
	if cfg.MaxEntries != 100 {
		t.Fatalf("expected default max entries 100, got %d", cfg.MaxEntries)
	}
	if cfg.DirectDeployEnabled {
		t.Fatalf("direct deploy must default to off")
	}
	if len(cfg.HostedImagePrefixes) != 1 || cfg.HostedImagePrefixes[0] != "https://res.cloudinary.com/" {
		t.Fatalf("unexpected hosted prefixes %v", cfg.HostedImagePrefixes)
	}
	if cfg.SubmissionTTL != 24*time.Hour {
		t.Fatalf("unexpected ttl %v", cfg.SubmissionTTL)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("MAX_ENTRIES", " 50 ")
	t.Setenv("ENABLE_DIRECT_DEPLOY", "true")
	t.Setenv("HOSTED_IMAGE_PREFIXES", "https://cdn.example.com/, https://img.example.org/")
	t.Setenv("MINIO_USE_SSL", "true")
	t.Setenv("GITHUB_API_URL", "https://ghe.example.com/api/v3/")

	cfg := Load()
	if cfg.ListenAddr != ":9000" {
		t.Fatalf("unexpected listen addr %q", cfg.ListenAddr)
	}
	if cfg.MaxEntries != 50 {
		t.Fatalf("expected 50, got %d", cfg.MaxEntries)
	}
	if !cfg.DirectDeployEnabled {
		t.Fatalf("expected direct deploy enabled")
	}
	if len(cfg.HostedImagePrefixes) != 2 || cfg.HostedImagePrefixes[1] != "https://img.example.org/" {
		t.Fatalf("unexpected prefixes %v", cfg.HostedImagePrefixes)
	}
	if !cfg.MinIO.UseSSL {
		t.Fatalf("expected minio ssl")
	}
	if cfg.APIBaseURL != "https://ghe.example.com/api/v3" {
		t.Fatalf("unexpected api url %q", cfg.APIBaseURL)
	}
}

func TestDirectDeployRequiresLiteralTrue(t *testing.T) {
	t.Setenv("ENABLE_DIRECT_DEPLOY", "1")
	if Load().DirectDeployEnabled {
		t.Fatalf("only \"true\" enables direct deploy")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	t.Setenv("IMAGE_STORE", "s3")
	if err := Load().Validate(); err == nil {
		t.Fatalf("expected invalid image store to fail validation")
	}

	t.Setenv("IMAGE_STORE", "local")
	t.Setenv("MAX_ENTRIES", "0")
	if err := Load().Validate(); err == nil {
		t.Fatalf("expected max entries 0 to fail validation")
	}
}

func TestRequireToken(t *testing.T) {
	if err := (AppConfig{}).RequireToken(); !errors.Is(err, ErrTokenMissing) {
		t.Fatalf("expected ErrTokenMissing, got %v", err)
	}
	if err := (AppConfig{Token: "abc"}).RequireToken(); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
}
