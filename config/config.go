package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StorageMongo    = "mongo"
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

type Config struct {
	Port           string
	GinMode        string
	CORSOrigins    []string
	SiteURL        string
	LoginRateLimit int

	Storage       string
	MongoURI      string
	MongoDatabase string
	DatabaseURL   string
	DatabaseDebug bool

	JWTSecret string
	JWTTTL    time.Duration

	CloudinaryURL       string
	CloudinaryCloudName string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string
	MediaFolderRoot     string
	MediaUploadTimeout  time.Duration
	MaxUploadMB         int64

	VAPIDPublicKey  string
	VAPIDPrivateKey string
	VAPIDSubject    string
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("⚠️ could not read .env: %v", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function so tests can supply their own environment.
func FromEnv(getenv func(string) string) (*Config, error) {
	p := parser{getenv: getenv}
	cfg := &Config{
		Port:           p.str("PORT", "8080"),
		GinMode:        p.str("GIN_MODE", "debug"),
		CORSOrigins:    p.list("CORS_ORIGINS", []string{"http://localhost:3000", "http://localhost:5173"}),
		SiteURL:        strings.TrimRight(p.str("SITE_URL", "http://localhost:3000"), "/"),
		LoginRateLimit: int(p.int("LOGIN_RATE_LIMIT", 10)),

		Storage:       strings.ToLower(p.str("STORAGE", StorageMongo)),
		MongoURI:      p.str("MONGODB_URI", ""),
		MongoDatabase: p.str("MONGODB_DATABASE", "newgenmusic"),
		DatabaseURL:   p.str("DATABASE_URL", ""),
		DatabaseDebug: p.str("DATABASE_DEBUG", "") == "true",

		JWTSecret: p.str("JWT_SECRET", ""),
		JWTTTL:    p.duration("JWT_TTL", 24*time.Hour),

		CloudinaryURL:       p.str("CLOUDINARY_URL", ""),
		CloudinaryCloudName: p.str("CLOUDINARY_CLOUD_NAME", ""),
		CloudinaryAPIKey:    p.str("CLOUDINARY_API_KEY", ""),
		CloudinaryAPISecret: p.str("CLOUDINARY_API_SECRET", ""),
		MediaFolderRoot:     p.str("MEDIA_FOLDER_ROOT", "new-gen-music"),
		MediaUploadTimeout:  p.duration("MEDIA_UPLOAD_TIMEOUT", 60*time.Second),
		MaxUploadMB:         p.int("MAX_UPLOAD_MB", 50),

		VAPIDPublicKey:  p.str("VAPID_PUBLIC_KEY", ""),
		VAPIDPrivateKey: p.str("VAPID_PRIVATE_KEY", ""),
		VAPIDSubject:    p.str("VAPID_SUBJECT", "mailto:admin@newgenmusic.com"),
	}
	if len(p.errs) > 0 {
		return nil, errors.Join(p.errs...)
	}
	return cfg, nil
}

// Validate reports every missing or inconsistent setting at once.
func (c *Config) Validate() error {
	var errs []error
	switch c.Storage {
	case StorageMongo:
		if c.MongoURI == "" {
			errs = append(errs, errors.New("MONGODB_URI must be set when STORAGE=mongo"))
		}
	case StoragePostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL must be set when STORAGE=postgres"))
		}
	case StorageMemory:
	default:
		errs = append(errs, fmt.Errorf("STORAGE must be one of mongo, postgres, memory (got %q)", c.Storage))
	}
	if c.JWTSecret == "" && c.Storage != StorageMemory {
		errs = append(errs, errors.New("JWT_SECRET must be set"))
	}
	if c.Storage != StorageMemory && !c.CloudinaryConfigured() {
		errs = append(errs, errors.New("CLOUDINARY_URL or CLOUDINARY_CLOUD_NAME/API_KEY/API_SECRET must be set"))
	}
	if c.MaxUploadMB <= 0 {
		errs = append(errs, errors.New("MAX_UPLOAD_MB must be positive"))
	}
	if c.LoginRateLimit <= 0 {
		errs = append(errs, errors.New("LOGIN_RATE_LIMIT must be positive"))
	}
	return errors.Join(errs...)
}

func (c *Config) CloudinaryConfigured() bool {
	return c.CloudinaryURL != "" ||
		(c.CloudinaryCloudName != "" && c.CloudinaryAPIKey != "" && c.CloudinaryAPISecret != "")
}

func (c *Config) PushEnabled() bool {
	return c.VAPIDPublicKey != "" && c.VAPIDPrivateKey != ""
}

// MaxUploadBytes is the multipart memory limit.
func (c *Config) MaxUploadBytes() int64 {
	return c.MaxUploadMB << 20
}

type parser struct {
	getenv func(string) string
	errs   []error
}

func (p *parser) str(key, def string) string {
	if v := strings.TrimSpace(p.getenv(key)); v != "" {
		return v
	}
	return def
}

func (p *parser) list(key string, def []string) []string {
	raw := p.getenv(key)
	if strings.TrimSpace(raw) == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if v := strings.TrimSpace(part); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func (p *parser) int(key string, def int64) int64 {
	raw := strings.TrimSpace(p.getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return n
}

func (p *parser) duration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(p.getenv(key))
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return d
}
