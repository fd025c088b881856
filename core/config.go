package core

import (
	"fmt"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// store backends
const (
	StorePostgres = "postgres"
	StoreMongo    = "mongo"
	StoreMemory   = "memory"
)

// email backends
const (
	EmailConsole  = "console"
	EmailSendgrid = "sendgrid"
	EmailSMTP     = "smtp"
)

type (
	ServerConfig struct {
		Address                   string
		DebugAddress              string
		Host                      string
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
		AllowedOrigins            []string
		DisableReqLogs            bool
	}

	DatabaseConfig struct {
		Driver        string // postgres (lib/pq) | pgx (pgx/v5 stdlib)
		Host          string
		Port          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		Name          string
		DisableTLS    bool
	}

	MongoConfig struct {
		URI      string
		Database string
	}

	SMTPConfig struct {
		Host     string
		Port     int
		User     string
		Password string
	}

	Config struct {
		AppName  string
		Build    string
		Env      string
		Debug    bool
		TestMode bool

		SecretKey       string
		LMSLoginURL     string
		FrontendBaseURL string
		fromEmail       string

		Server   ServerConfig
		Store    string
		Database DatabaseConfig
		Mongo    MongoConfig
		Redis    string // address; empty disables the processing lock

		EmailBackend   string
		SendgridAPIKey string
		SMTP           SMTPConfig

		RollbarToken string
		WorkDir      string
	}
)

// Address returns the database host:port.
func (db DatabaseConfig) Address() string {
	return net.JoinHostPort(db.Host, db.Port)
}

// DefaultFromEmail parses the configured sender address, falling back to a bare address.
func (c *Config) DefaultFromEmail() mail.Address {
	addr, err := mail.ParseAddress(c.fromEmail)
	if err != nil {
		return mail.Address{Name: c.AppName, Address: c.fromEmail}
	}
	if addr.Name == "" {
		addr.Name = c.AppName
	}
	return *addr
}

// NewConfig loads configuration from the environment.
// ENV selects the profile: DEV (local; default), TEST, QA, PROD.
// Every key is read with the profile as prefix, eg. DEV_LMS_LOGIN_URL.
func NewConfig() *Config {
	conf, err := LoadConfig(os.Getenv("ENV"), Getwd())
	if err != nil {
		panic(err)
	}
	return conf
}

// LoadConfig builds a Config for the given profile, loading `<workDir>/config/.env.<env>` if it exists.
func LoadConfig(env, workDir string) (*Config, error) {
	env = strings.ToUpper(CleanString(env))
	if env == "" {
		env = "DEV"
	}

	v := viper.New()
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", env == "DEV")
	v.SetDefault("test_mode", env == "TEST")
	v.SetDefault("app_name", "Academia")
	v.SetDefault("build", "develop")
	v.SetDefault("secret_key", "poq5-wer)enb$+57=dz&uoxh2(h!x)#*c2(#yg4h^$cegm2emy")
	v.SetDefault("lms_login_url", "http://localhost:3000/login")
	v.SetDefault("frontend_base_url", "http://localhost:3000")
	v.SetDefault("default_from_email", "noreply@localhost")

	v.SetDefault("server_address", ":8000")
	v.SetDefault("server_debug_address", ":4000")
	v.SetDefault("server_host", "localhost")
	v.SetDefault("server_shutdown_timeout", 5*time.Second)
	v.SetDefault("jwt_expiration_delta", 7*24*time.Hour)
	v.SetDefault("jwt_refresh_expiration_delta", 4*time.Hour)
	v.SetDefault("allowed_origins", "http://localhost:3000")
	v.SetDefault("disable_req_logs", false)

	v.SetDefault("store", StorePostgres)
	v.SetDefault("db_driver", "postgres")
	v.SetDefault("db_host", "localhost")
	v.SetDefault("db_port", "5432")
	v.SetDefault("db_user", "academia")
	v.SetDefault("db_password", "academia")
	v.SetDefault("db_admin_user", "")
	v.SetDefault("db_admin_password", "")
	v.SetDefault("db_name", "academia")
	v.SetDefault("db_disable_tls", env == "DEV" || env == "TEST")
	v.SetDefault("mongo_uri", "mongodb://localhost:27017/?replicaSet=rs0")
	v.SetDefault("mongo_database", "academia")
	v.SetDefault("redis_addr", "")

	v.SetDefault("email_backend", EmailConsole)
	v.SetDefault("sendgrid_api_key", "")
	v.SetDefault("smtp_host", "localhost")
	v.SetDefault("smtp_port", 587)
	v.SetDefault("smtp_user", "")
	v.SetDefault("smtp_password", "")
	v.SetDefault("rollbar_token", "")

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(workDir, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			return nil, errors.Wrapf(err, "loading %s", dotEnvPath)
		}
	} else if !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "stat %s", dotEnvPath)
	}
	v.SetEnvPrefix(env)
	v.AutomaticEnv()

	conf := &Config{
		AppName:         v.GetString("app_name"),
		Build:           v.GetString("build"),
		Env:             env,
		Debug:           v.GetBool("debug"),
		TestMode:        v.GetBool("test_mode"),
		SecretKey:       v.GetString("secret_key"),
		LMSLoginURL:     v.GetString("lms_login_url"),
		FrontendBaseURL: v.GetString("frontend_base_url"),
		fromEmail:       v.GetString("default_from_email"),
		Server: ServerConfig{
			Address:                   v.GetString("server_address"),
			DebugAddress:              v.GetString("server_debug_address"),
			Host:                      v.GetString("server_host"),
			ShutdownTimeout:           v.GetDuration("server_shutdown_timeout"),
			JWTExpirationDelta:        v.GetDuration("jwt_expiration_delta"),
			JWTRefreshExpirationDelta: v.GetDuration("jwt_refresh_expiration_delta"),
			AllowedOrigins:            splitList(v.GetString("allowed_origins")),
			DisableReqLogs:            v.GetBool("disable_req_logs"),
		},
		Store: strings.ToLower(v.GetString("store")),
		Database: DatabaseConfig{
			Driver:        v.GetString("db_driver"),
			Host:          v.GetString("db_host"),
			Port:          v.GetString("db_port"),
			User:          v.GetString("db_user"),
			Password:      v.GetString("db_password"),
			AdminUser:     v.GetString("db_admin_user"),
			AdminPassword: v.GetString("db_admin_password"),
			Name:          v.GetString("db_name"),
			DisableTLS:    v.GetBool("db_disable_tls"),
		},
		Mongo: MongoConfig{
			URI:      v.GetString("mongo_uri"),
			Database: v.GetString("mongo_database"),
		},
		Redis:          v.GetString("redis_addr"),
		EmailBackend:   strings.ToLower(v.GetString("email_backend")),
		SendgridAPIKey: v.GetString("sendgrid_api_key"),
		SMTP: SMTPConfig{
			Host:     v.GetString("smtp_host"),
			Port:     v.GetInt("smtp_port"),
			User:     v.GetString("smtp_user"),
			Password: v.GetString("smtp_password"),
		},
		RollbarToken: v.GetString("rollbar_token"),
		WorkDir:      workDir,
	}
	if err := conf.validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

func (c *Config) validate() error {
	switch c.Store {
	case StorePostgres, StoreMongo, StoreMemory:
	default:
		return fmt.Errorf("config: unknown store %q", c.Store)
	}
	switch c.EmailBackend {
	case EmailConsole, EmailSMTP:
	case EmailSendgrid:
		if c.SendgridAPIKey == "" {
			return fmt.Errorf("config: sendgrid email backend requires %s_SENDGRID_API_KEY", c.Env)
		}
	default:
		return fmt.Errorf("config: unknown email backend %q", c.EmailBackend)
	}
	if c.LMSLoginURL == "" {
		return fmt.Errorf("config: %s_LMS_LOGIN_URL is required", c.Env)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = CleanString(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
