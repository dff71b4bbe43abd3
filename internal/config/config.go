package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// EnvProduction is the CLASSBOOK_ENV value that enables production checks.
const EnvProduction = "production"

// Config holds process configuration.
type Config struct {
	Addr          string
	DBPath        string
	Env           string
	CSRFKey       []byte
	ResendKey     string
	SendGridKey   string
	EmailFrom     string
	ReplyTo       string
	AdminEmail    string
	AdminPassword string
	SlowQueryMs   int
	SlowRequestMs int
}

// IsProduction reports whether production checks apply.
func (c Config) IsProduction() bool {
	return c.Env == EnvProduction
}

var (
	ErrCSRFKeyRequired = errors.New("CLASSBOOK_CSRF_KEY is required in production")
	ErrCSRFKeyInvalid  = errors.New("CLASSBOOK_CSRF_KEY must be 64 hex characters (32 bytes)")
)

// Load reads dotEnvPath if it exists, then the CLASSBOOK_* environment.
// Variables already set in the environment win over the file.
// PRE: dotEnvPath may be empty or point at a missing file
// POST: Returns a complete Config or the first invalid setting
func Load(dotEnvPath string) (Config, error) {
	if dotEnvPath != "" {
		if err := godotenv.Load(dotEnvPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", dotEnvPath, err)
		}
	}

	cfg := Config{
		Addr:          envOrDefault("CLASSBOOK_ADDR", ":8080"),
		DBPath:        envOrDefault("CLASSBOOK_DB_PATH", "classbook.db"),
		Env:           envOrDefault("CLASSBOOK_ENV", "development"),
		ResendKey:     os.Getenv("CLASSBOOK_RESEND_KEY"),
		SendGridKey:   os.Getenv("CLASSBOOK_SENDGRID_KEY"),
		EmailFrom:     envOrDefault("CLASSBOOK_RESEND_FROM", "Classbook <noreply@classbook.local>"),
		ReplyTo:       os.Getenv("CLASSBOOK_REPLY_TO"),
		AdminEmail:    envOrDefault("CLASSBOOK_ADMIN_EMAIL", "admin@classbook.local"),
		AdminPassword: envOrDefault("CLASSBOOK_ADMIN_PASSWORD", "change me please"),
	}

	var err error
	if cfg.SlowQueryMs, err = envInt("CLASSBOOK_SLOW_QUERY_MS", 50); err != nil {
		return Config{}, err
	}
	if cfg.SlowRequestMs, err = envInt("CLASSBOOK_SLOW_REQUEST_MS", 500); err != nil {
		return Config{}, err
	}
	if cfg.CSRFKey, err = csrfKey(cfg.IsProduction()); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// csrfKey decodes CLASSBOOK_CSRF_KEY. Outside production a random key is
// generated per startup.
func csrfKey(production bool) ([]byte, error) {
	if keyHex := os.Getenv("CLASSBOOK_CSRF_KEY"); keyHex != "" {
		key, err := hex.DecodeString(keyHex)
		if err != nil || len(key) != 32 {
			return nil, ErrCSRFKeyInvalid
		}
		return key, nil
	}
	if production {
		return nil, ErrCSRFKeyRequired
	}
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate CSRF key: %w", err)
	}
	slog.Warn("csrf_key_random", "hint", "set CLASSBOOK_CSRF_KEY so form tokens survive restarts")
	return key, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer, got %q", key, v)
	}
	return n, nil
}
