package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	Env         string
	DatabaseURL string
	// CORSOrigins limits browser origins; empty allows any.
	CORSOrigins []string
	LLM         LLMConfig
	Mentor      MentorConfig
	Session     SessionConfig
	Artifact    ArtifactConfig
	Log         LogConfig
}

type LLMConfig struct {
	APIKey        string
	AnalysisModel string
	TutorModel    string
	// Fake swaps both models for the offline client.
	Fake    bool
	Timeout time.Duration
	// RPS caps model calls per second per client; 0 disables the limit.
	RPS   float64
	Burst int
}

type MentorConfig struct {
	MatchPolicy       string
	Monotonic         bool
	ManualToggle      bool
	TutorHistory      string
	RequirementRender string
}

type SessionConfig struct {
	CatalogPath string
	MaxSessions int
	TTL         time.Duration
}

type ArtifactConfig struct {
	// Backend is memory, s3 or postgres.
	Backend   string
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	URLExpiry time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	env := firstNonEmpty(strings.TrimSpace(os.Getenv("APP_ENV")), "local")

	llmTimeout, err := durationEnv("LLM_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, err
	}
	ttl, err := durationEnv("SESSION_TTL", 2*time.Hour)
	if err != nil {
		return nil, err
	}
	maxSessions, err := intEnv("SESSION_MAX", 1024)
	if err != nil {
		return nil, err
	}
	rps, err := floatEnv("LLM_RPS", 0)
	if err != nil {
		return nil, err
	}
	burst, err := intEnv("LLM_BURST", 1)
	if err != nil {
		return nil, err
	}
	expiry, err := durationEnv("ARTIFACT_URL_EXPIRY", time.Hour)
	if err != nil {
		return nil, err
	}
	databaseURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	artifact, err := loadArtifactConfig(env, databaseURL)
	if err != nil {
		return nil, err
	}
	artifact.URLExpiry = expiry

	cfg := &Config{
		Port:        NormalizePort(firstNonEmpty(strings.TrimSpace(os.Getenv("PORT")), ":8081")),
		Env:         env,
		DatabaseURL: databaseURL,
		CORSOrigins: splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),
		LLM: LLMConfig{
			APIKey:        firstNonEmpty(strings.TrimSpace(os.Getenv("GEMINI_API_KEY")), strings.TrimSpace(os.Getenv("API_KEY"))),
			AnalysisModel: firstNonEmpty(strings.TrimSpace(os.Getenv("ANALYSIS_MODEL")), "gemini-3-pro-preview"),
			TutorModel:    firstNonEmpty(strings.TrimSpace(os.Getenv("TUTOR_MODEL")), "gemini-3-flash-preview"),
			Fake:          boolEnv("LLM_FAKE", false),
			Timeout:       llmTimeout,
			RPS:           rps,
			Burst:         burst,
		},
		Mentor: MentorConfig{
			MatchPolicy:       firstNonEmpty(strings.ToLower(strings.TrimSpace(os.Getenv("MATCH_POLICY"))), "exact"),
			Monotonic:         boolEnv("MONOTONIC_PROGRESS", true),
			ManualToggle:      boolEnv("MANUAL_TOGGLE", true),
			TutorHistory:      firstNonEmpty(strings.ToLower(strings.TrimSpace(os.Getenv("TUTOR_HISTORY"))), "history"),
			RequirementRender: firstNonEmpty(strings.ToLower(strings.TrimSpace(os.Getenv("REQUIREMENT_RENDER"))), "flat"),
		},
		Session: SessionConfig{
			CatalogPath: strings.TrimSpace(os.Getenv("CATALOG_PATH")),
			MaxSessions: maxSessions,
			TTL:         ttl,
		},
		Artifact: artifact,
		Log: LogConfig{
			Level:  firstNonEmpty(strings.ToLower(strings.TrimSpace(os.Getenv("LOG_LEVEL"))), "info"),
			Format: firstNonEmpty(strings.ToLower(strings.TrimSpace(os.Getenv("LOG_FORMAT"))), defaultLogFormat(env)),
		},
	}
	return cfg, nil
}

// NormalizePort accepts "8081" or ":8081".
func NormalizePort(port string) string {
	port = strings.TrimSpace(port)
	if port == "" || strings.Contains(port, ":") {
		return port
	}
	return ":" + port
}

func defaultLogFormat(env string) string {
	if strings.EqualFold(env, "local") {
		return "console"
	}
	return "json"
}

func loadArtifactConfig(env, databaseURL string) (ArtifactConfig, error) {
	local := strings.EqualFold(strings.TrimSpace(env), "local")
	cfg := ArtifactConfig{
		Endpoint: strings.TrimSpace(os.Getenv("ARTIFACT_S3_ENDPOINT")),
		Region:   firstNonEmpty(strings.TrimSpace(os.Getenv("ARTIFACT_S3_REGION")), "us-east-1"),
		Bucket:   firstNonEmpty(strings.TrimSpace(os.Getenv("ARTIFACT_S3_BUCKET")), "pymentor-reports"),
		UseSSL:   resolveArtifactUseSSL(local),
	}
	if local {
		cfg.Endpoint = firstNonEmpty(strings.TrimSpace(os.Getenv("ARTIFACT_MINIO_ENDPOINT")), cfg.Endpoint)
		cfg.AccessKey = firstNonEmpty(strings.TrimSpace(os.Getenv("ARTIFACT_S3_ACCESS_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_USER")), "pymentor")
		cfg.SecretKey = firstNonEmpty(strings.TrimSpace(os.Getenv("ARTIFACT_S3_SECRET_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_PASSWORD")), "pymentor123")
	} else {
		cfg.AccessKey = firstNonEmpty(strings.TrimSpace(os.Getenv("ARTIFACT_S3_ACCESS_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_USER")))
		cfg.SecretKey = firstNonEmpty(strings.TrimSpace(os.Getenv("ARTIFACT_S3_SECRET_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_PASSWORD")))
	}

	backend := strings.ToLower(strings.TrimSpace(os.Getenv("ARTIFACT_BACKEND")))
	if backend == "" {
		switch {
		case cfg.Endpoint != "":
			backend = "s3"
		default:
			backend = "memory"
		}
	}
	switch backend {
	case "memory":
	case "s3", "minio":
		backend = "s3"
		if cfg.Endpoint == "" {
			return ArtifactConfig{}, fmt.Errorf("config: ARTIFACT_BACKEND=s3 needs ARTIFACT_S3_ENDPOINT")
		}
	case "postgres":
		if databaseURL == "" {
			return ArtifactConfig{}, fmt.Errorf("config: ARTIFACT_BACKEND=postgres needs DATABASE_URL")
		}
	default:
		return ArtifactConfig{}, fmt.Errorf("config: unknown ARTIFACT_BACKEND %q", backend)
	}
	cfg.Backend = backend
	return cfg, nil
}

func resolveArtifactUseSSL(local bool) bool {
	if local {
		return false
	}
	return boolEnv("ARTIFACT_S3_USE_SSL", true)
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func boolEnv(key string, def bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return v
}

func intEnv(key string, def int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return v, nil
}

func floatEnv(key string, def float64) (float64, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return v, nil
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return v, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
