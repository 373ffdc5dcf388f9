package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	LabelStrategyRecreate = "recreate"
	LabelStrategyArchive  = "archive"

	StorageLocal = "local"
	StorageGCS   = "gcs"

	defaultJWTSecret = "supersecretkey"
)

type Config struct {
	Addr                     string           `yaml:"addr"`
	Environment              string           `yaml:"environment"`
	JWTSecret                string           `yaml:"jwt_secret"`
	APITimeout               time.Duration    `yaml:"timeout"`
	TokenDuration            time.Duration    `yaml:"token_duration"`
	RememberMeDuration       time.Duration    `yaml:"remember_me_duration"`
	ResetTokenDuration       time.Duration    `yaml:"reset_token_duration"`
	AllowlistDSN             string           `yaml:"allowlist_dsn"`
	Allowlist                []AllowlistEntry `yaml:"allowlist"`
	CORSOrigins              []string         `yaml:"cors_origins"`
	MaxUploadBytes           int64            `yaml:"max_upload_bytes"`
	MaxProvisionsPerCategory int              `yaml:"max_provisions_per_category"`
	CRM                      CRMConfig        `yaml:"crm"`
	Storage                  StorageConfig    `yaml:"storage"`
	Mail                     MailConfig       `yaml:"mail"`
}

// AllowlistEntry is a statically configured authorized user, used when no
// allow-list database is configured.
type AllowlistEntry struct {
	Email        string `yaml:"email"`
	Name         string `yaml:"name"`
	Company      string `yaml:"company"`
	CompanyID    string `yaml:"company_id"`
	ContactID    string `yaml:"contact_id"`
	PasswordHash string `yaml:"password_hash"`
	Disabled     bool   `yaml:"disabled"`
}

type CRMConfig struct {
	BaseURL     string        `yaml:"base_url"`
	AccessToken string        `yaml:"access_token"`
	Timeout     time.Duration `yaml:"timeout"`
	Objects     ObjectTypes   `yaml:"objects"`
	Labels      Labels        `yaml:"labels"`
	// LabelStrategy selects how a decision label replaces the previous one:
	// "recreate" deletes the edge and writes it back, "archive" removes only
	// the stale label.
	LabelStrategy       string    `yaml:"label_strategy"`
	Workflows           Workflows `yaml:"workflows"`
	CompanyNameProperty string    `yaml:"company_name_property"`
	FilesFolder         string    `yaml:"files_folder"`
	FetchConcurrency    int       `yaml:"fetch_concurrency"`
}

// ObjectTypes holds the tenant specific object type ids.
type ObjectTypes struct {
	JobOrders    string `yaml:"job_orders"`
	Applications string `yaml:"applications"`
	Candidates   string `yaml:"candidates"`
	Documents    string `yaml:"documents"`
	Provisions   string `yaml:"provisions"`
	Assessments  string `yaml:"assessments"`
	Activities   string `yaml:"activities"`
	Tickets      string `yaml:"tickets"`
}

type Label struct {
	Name   string `yaml:"name"`
	TypeID int    `yaml:"type_id"`
}

type Labels struct {
	Recommended Label `yaml:"recommended"`
	Selected    Label `yaml:"selected"`
	Rejected    Label `yaml:"rejected"`
}

type Workflows struct {
	Approve string `yaml:"approve"`
	Reject  string `yaml:"reject"`
}

type StorageConfig struct {
	Driver        string `yaml:"driver"`
	Dir           string `yaml:"dir"`
	Bucket        string `yaml:"bucket"`
	PublicBaseURL string `yaml:"public_base_url"`
}

type MailConfig struct {
	SendGridAPIKey string `yaml:"sendgrid_api_key"`
	SendGridHost   string `yaml:"sendgrid_host"`
	FromEmail      string `yaml:"from_email"`
	FromName       string `yaml:"from_name"`
	ResetURL       string `yaml:"reset_url"`
}

// LoadConfig builds the configuration from defaults, then the environment
// (a .env file in the working directory is honoured), then the YAML file at
// path when path is not empty.
func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	addr := getEnv("PORTAL_ADDR", ":8080")
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}

	cfg := &Config{
		Addr:                     addr,
		Environment:              strings.ToLower(getEnv("PORTAL_ENV", EnvDevelopment)),
		JWTSecret:                getEnv("PORTAL_JWT_SECRET", defaultJWTSecret),
		APITimeout:               15 * time.Second,
		TokenDuration:            24 * time.Hour,
		RememberMeDuration:       30 * 24 * time.Hour,
		ResetTokenDuration:       30 * time.Minute,
		AllowlistDSN:             os.Getenv("PORTAL_ALLOWLIST_DSN"),
		MaxUploadBytes:           10 << 20,
		MaxProvisionsPerCategory: 5,
		CRM: CRMConfig{
			BaseURL:             getEnv("CRM_BASE_URL", "https://api.hubapi.com"),
			AccessToken:         os.Getenv("CRM_ACCESS_TOKEN"),
			Timeout:             30 * time.Second,
			LabelStrategy:       LabelStrategyRecreate,
			CompanyNameProperty: "company_name",
			FilesFolder:         "/client-portal",
			FetchConcurrency:    8,
			Objects: ObjectTypes{
				Candidates:  "candidates",
				Documents:   "documents",
				Provisions:  "provisions",
				Assessments: "assessments",
				Activities:  "activities",
				Tickets:     "tickets",
			},
			Labels: Labels{
				Recommended: Label{Name: "Recommended"},
				Selected:    Label{Name: "Selected"},
				Rejected:    Label{Name: "Rejected"},
			},
		},
		Storage: StorageConfig{
			Driver: StorageLocal,
			Dir:    getEnv("PORTAL_UPLOAD_DIR", "uploads"),
		},
		Mail: MailConfig{
			SendGridAPIKey: os.Getenv("SENDGRID_API_KEY"),
			SendGridHost:   "https://api.sendgrid.com",
			FromName:       "Client Portal",
		},
	}
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		dec := yaml.NewDecoder(f)
		if err := dec.Decode(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// IsDevelopment reports whether the development environment is selected.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "" || c.Environment == EnvDevelopment
}

// AllowedOrigins returns the cross-origin allow-list for the environment.
// Explicit cors_origins win over the built-in defaults.
func (c *Config) AllowedOrigins() []string {
	if len(c.CORSOrigins) > 0 {
		return c.CORSOrigins
	}
	if !c.IsDevelopment() {
		return nil
	}
	return []string{"http://localhost:5000", "http://localhost:8080", "http://127.0.0.1:5000"}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return def
}
