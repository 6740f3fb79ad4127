package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/inkwell/internal/auth"
	"github.com/starford/inkwell/internal/dualwrite"
)

// Remote providers.
const (
	RemoteNone   = "none"
	RemoteGitHub = "github"
	RemoteMemory = "memory"
)

// Config represents the application configuration.
type Config struct {
	App       ApplicationConfig `yaml:"app"`
	Store     StoreConfig       `yaml:"store"`
	Remote    RemoteConfig      `yaml:"remote"`
	SQLite    SQLiteConfig      `yaml:"sqlite"`
	Auth      AuthConfig        `yaml:"auth"`
	Tracing   TracingConfig     `yaml:"tracing"`
	Reconcile ReconcileConfig   `yaml:"reconcile"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Store.Validate(); err != nil {
		return err
	}
	if err := c.Remote.Validate(); err != nil {
		return err
	}
	if c.Store.Mode == string(dualwrite.ModeRemote) && !c.Remote.Enabled() {
		return fmt.Errorf("store: mode %q requires a remote provider", c.Store.Mode)
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	if err := c.Tracing.Validate(); err != nil {
		return err
	}
	return c.Reconcile.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// StoreConfig selects the authoritative store and locates the queue table
// and content directory inside it.
type StoreConfig struct {
	Mode       string           `yaml:"mode"`
	Local      LocalStoreConfig `yaml:"local"`
	TablePath  string           `yaml:"table_path"`
	ContentDir string           `yaml:"content_dir"`
	Collection string           `yaml:"collection"`
}

// LocalStoreConfig holds the working-copy location.
type LocalStoreConfig struct {
	Root     string `yaml:"root"`
	LockFile string `yaml:"lock_file"`
}

// Validate validates the store configuration.
func (c *StoreConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required,
			validation.In(string(dualwrite.ModeLocal), string(dualwrite.ModeRemote))),
		validation.Field(&c.TablePath, validation.Required),
		validation.Field(&c.ContentDir, validation.Required),
		validation.Field(&c.Collection, validation.Required),
		validation.Field(&c.Local, validation.By(func(any) error {
			if c.Mode == string(dualwrite.ModeLocal) && c.Local.Root == "" {
				return fmt.Errorf("root is required in local mode")
			}
			return nil
		})),
	)
}

// RemoteConfig holds the remote repository connection.
type RemoteConfig struct {
	Provider string        `yaml:"provider"`
	Owner    string        `yaml:"owner"`
	Repo     string        `yaml:"repo"`
	Branch   string        `yaml:"branch"`
	Token    string        `yaml:"token"`
	BaseURL  string        `yaml:"base_url"`
	Timeout  time.Duration `yaml:"timeout"`
}

// Enabled reports whether a remote provider is configured.
func (c *RemoteConfig) Enabled() bool {
	return c.Provider != "" && c.Provider != RemoteNone
}

// Validate validates the remote configuration.
func (c *RemoteConfig) Validate() error {
	if c.Provider == "" {
		c.Provider = RemoteNone
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Provider, validation.In(RemoteNone, RemoteGitHub, RemoteMemory)),
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
	); err != nil {
		return err
	}
	if c.Provider != RemoteGitHub {
		return nil
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Owner, validation.Required),
		validation.Field(&c.Repo, validation.Required),
		validation.Field(&c.Token, validation.Required),
	)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): every caller acts as the system administrator.
//   - "token": Bearer token authentication; Token must be non-empty.
//   - "jwt": HS256 bearer tokens; the "admin" claim grants write access.
type AuthConfig struct {
	Mode      string `yaml:"mode"`
	Token     string `yaml:"token"`
	JWTSecret string `yaml:"jwt_secret"`
	JWTIssuer string `yaml:"jwt_issuer"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = string(auth.ModeDisabled)
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required,
			validation.In(string(auth.ModeDisabled), string(auth.ModeToken), string(auth.ModeJWT))),
	); err != nil {
		return err
	}
	if c.Mode == string(auth.ModeToken) && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", c.Mode)
	}
	if c.Mode == string(auth.ModeJWT) && c.JWTSecret == "" {
		return fmt.Errorf("auth: mode is %q but jwt_secret is empty", c.Mode)
	}
	return nil
}

// Verifier converts the section into an auth.Config.
func (c *AuthConfig) Verifier() auth.Config {
	return auth.Config{
		Mode:      auth.Mode(c.Mode),
		Token:     c.Token,
		JWTSecret: c.JWTSecret,
		JWTIssuer: c.JWTIssuer,
	}
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Endpoint    string `yaml:"endpoint"`
	ServiceName string `yaml:"service_name"`
}

// Validate validates the tracing configuration.
func (c *TracingConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.ServiceName, validation.When(c.Enabled, validation.Required)),
	)
}

// ReconcileConfig tunes the publication reconciler.
type ReconcileConfig struct {
	Concurrency int `yaml:"concurrency"`
}

// Validate validates the reconcile configuration.
func (c *ReconcileConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Concurrency, validation.Min(0), validation.Max(64)),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Store: StoreConfig{
			Mode:       string(dualwrite.ModeLocal),
			Local:      LocalStoreConfig{Root: "./site"},
			TablePath:  "data/keywords.csv",
			ContentDir: "content/blog",
			Collection: "blog",
		},
		Remote: RemoteConfig{
			Provider: RemoteNone,
			Branch:   "main",
			Timeout:  15 * time.Second,
		},
		SQLite: SQLiteConfig{
			Path: "./inkwell.db",
		},
		Auth: AuthConfig{
			Mode: string(auth.ModeDisabled),
		},
		Tracing: TracingConfig{
			ServiceName: "inkwell",
		},
		Reconcile: ReconcileConfig{
			Concurrency: 8,
		},
	}
}
