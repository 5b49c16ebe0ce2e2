package core

import (
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Storage engines
const (
	EngineMongoDB  = "mongodb"
	EnginePostgres = "postgres"
	EngineMemory   = "memory"
)

type (
	Config struct {
		Debug                     bool
		TestMode                  bool
		AppName                   string
		Env                       string
		Build                     string
		WorkDir                   string
		SecretKey                 string
		RefreshSecretKey          string
		RollbarToken              string
		SendgridApiKey            string
		FrontendBaseURL           string
		PasswordResetTimeoutDelta time.Duration

		defaultFromEmail string

		Server   ServerConfig
		Database DatabaseConfig
		Uploads  UploadsConfig
	}

	ServerConfig struct {
		Host                      string
		DebugHost                 string
		APIPrefix                 string
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
		CORSAllowOrigins          []string
	}

	DatabaseConfig struct {
		Engine        string
		URI           string // mongodb connection string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		Host          string
		Port          string
		Name          string
		DisableTLS    bool
	}

	UploadsConfig struct {
		Dir           string
		MaxSize       int64 // bytes
		SweepSchedule string
	}
)

// Address returns the host:port of the database server.
func (c DatabaseConfig) Address() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// DefaultFromEmail parses the configured sender address.
func (c *Config) DefaultFromEmail() mail.Address {
	addr, err := mail.ParseAddress(c.defaultFromEmail)
	if err != nil {
		return mail.Address{Name: c.AppName, Address: "noreply@localhost"}
	}
	return *addr
}

// NewConfig reads the app configuration from the environment.
//
// ENV selects the environment (DEV by default, TEST, QA or PROD) and is used as the
// variable prefix: DEV_SECRET_KEY, PROD_DATABASE_ENGINE... A `config/.env.<env>` file is
// loaded first when present.
func NewConfig() *Config {
	v := viper.New()

	env := strings.ToUpper(os.Getenv("ENV"))
	if env == "" {
		env = "DEV"
	}
	wd := Getwd()
	loadDotEnv(filepath.Join(wd, "config", ".env."+strings.ToLower(env)))

	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, env)

	return &Config{
		Debug:                     v.GetBool("debug"),
		TestMode:                  env == "TEST",
		AppName:                   v.GetString("app_name"),
		Env:                       env,
		Build:                     v.GetString("build"),
		WorkDir:                   wd,
		SecretKey:                 v.GetString("secret_key"),
		RefreshSecretKey:          v.GetString("refresh_secret_key"),
		RollbarToken:              v.GetString("rollbar_token"),
		SendgridApiKey:            v.GetString("sendgrid_api_key"),
		FrontendBaseURL:           v.GetString("frontend_base_url"),
		PasswordResetTimeoutDelta: v.GetDuration("password_reset_timeout_delta"),
		defaultFromEmail:          v.GetString("default_from_email"),
		Server: ServerConfig{
			Host:                      v.GetString("server.host"),
			DebugHost:                 v.GetString("server.debug_host"),
			APIPrefix:                 strings.Trim(v.GetString("server.api_prefix"), "/"),
			ShutdownTimeout:           v.GetDuration("server.shutdown_timeout"),
			JWTExpirationDelta:        v.GetDuration("server.jwt_expiration_delta"),
			JWTRefreshExpirationDelta: v.GetDuration("server.jwt_refresh_expiration_delta"),
			CORSAllowOrigins:          v.GetStringSlice("server.cors_allow_origins"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("database.engine"),
			URI:           v.GetString("database.uri"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			AdminUser:     v.GetString("database.admin_user"),
			AdminPassword: v.GetString("database.admin_password"),
			Host:          v.GetString("database.host"),
			Port:          v.GetString("database.port"),
			Name:          v.GetString("database.name"),
			DisableTLS:    v.GetBool("database.disable_tls"),
		},
		Uploads: UploadsConfig{
			Dir:           v.GetString("uploads.dir"),
			MaxSize:       v.GetInt64("uploads.max_size"),
			SweepSchedule: v.GetString("uploads.sweep_schedule"),
		},
	}
}

func setDefaults(v *viper.Viper, env string) {
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", env == "DEV" || env == "TEST")
	v.SetDefault("app_name", "EduCryption")
	v.SetDefault("build", "develop")
	v.SetDefault("secret_key", "n8#kd0-q!v2ts6x=aj@z5&m(w3e9c$h7p4lr+yfub1g*o_")
	v.SetDefault("refresh_secret_key", "r3fr35h-7x$k2!pq9=vd(0a@w6m&ze+h4jc8t*1yobl5gs_")
	v.SetDefault("default_from_email", "EduCryption <noreply@localhost>")
	v.SetDefault("frontend_base_url", "http://localhost:8080")
	v.SetDefault("password_reset_timeout_delta", 3*24*time.Hour)

	v.SetDefault("server.host", ":3000")
	v.SetDefault("server.debug_host", ":4000")
	v.SetDefault("server.api_prefix", "api")
	v.SetDefault("server.shutdown_timeout", 5*time.Second)
	v.SetDefault("server.jwt_expiration_delta", 15*time.Minute)
	v.SetDefault("server.jwt_refresh_expiration_delta", 10*24*time.Hour)
	v.SetDefault("server.cors_allow_origins", []string{"*"})

	engine := EngineMongoDB
	if env == "TEST" {
		engine = EngineMemory
	}
	v.SetDefault("database.engine", engine)
	v.SetDefault("database.uri", "mongodb://localhost:27017")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.name", "educryption")
	v.SetDefault("database.disable_tls", env == "DEV" || env == "TEST")

	v.SetDefault("uploads.dir", "uploads")
	v.SetDefault("uploads.max_size", int64(10<<20))
	v.SetDefault("uploads.sweep_schedule", "0 3 * * *")
}

// loadDotEnv loads the .env file at path if it exists (ignored if it does not).
func loadDotEnv(path string) {
	if _, err := os.Stat(path); err == nil {
		if err := godotenv.Load(path); err != nil {
			log.Fatalf("config.godotenv(%s): %v", path, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", path, err)
	}
}
