package config

import (
	"fmt"
	"os"
	"path"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v2"
)

type Config struct {
	Public  Public
	Private Private
}

type Public struct {
	HttpPort       int           `yaml:"http_port" validate:"required"`
	LogLevel       string        `yaml:"log_level"`
	LogJSON        bool          `yaml:"log_json"`
	JwtTTL         time.Duration `yaml:"jwt_ttl" validate:"required"`
	ReauthWindow   time.Duration `yaml:"reauth_window"` // how long a re-authentication unlocks password/email changes
	CodeTTL        time.Duration `yaml:"code_ttl"`      // verification and email change codes
	Docstore       string        `yaml:"docstore" validate:"required,oneof=memory pg"`
	LocalStorePath string        `yaml:"local_store_path" validate:"required"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
	SecureCookies  bool          `yaml:"secure_cookies"`

	CategoryCacheSize int           `yaml:"category_cache_size"`
	CategoryCacheTTL  time.Duration `yaml:"category_cache_ttl"`

	SignInAttemptsPerMinute float64 `yaml:"sign_in_attempts_per_minute"`
	SignInBurst             float64 `yaml:"sign_in_burst"`
}

type Pg struct {
	URL      string `yaml:"url"` // takes precedence over the fields below
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Dbname   string `yaml:"dbname"`
}

type Email struct {
	SMTPServer  string `yaml:"smtp_server"`
	SMTPPort    int    `yaml:"smtp_port"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	SenderName  string `yaml:"sender_name"`
	SenderEmail string `yaml:"sender_email"`
	Timeout     int    `yaml:"timeout"` // seconds
}

type Private struct {
	JwtKey string `yaml:"jwt_key" validate:"required"`
	Pg     Pg     `yaml:"pg"`
	Email  Email  `yaml:"email"`
}

func (c *Config) JwtKey() string {
	return c.Private.JwtKey
}

func (c *Config) JwtTTL() time.Duration {
	return c.Public.JwtTTL
}

func defaultPublic() Public {
	return Public{
		LogLevel:                "info",
		ReauthWindow:            5 * time.Minute,
		CodeTTL:                 24 * time.Hour,
		CategoryCacheSize:       128,
		CategoryCacheTTL:        time.Minute,
		SignInAttemptsPerMinute: 10,
		SignInBurst:             5,
	}
}

func mustLoadPath(configPath string, output interface{}) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("config file does not exist: " + configPath)
	}
	configFile, err := os.ReadFile(configPath)
	if err != nil {
		panic("can't read config file")
	}

	if err := yaml.Unmarshal(configFile, output); err != nil {
		panic(fmt.Sprintf("can't unmarshal config file %s: %v", configPath, err))
	}
}

func MustLoad(configFolder string) *Config {
	public := defaultPublic()
	mustLoadPath(path.Join(configFolder, "public.yaml"), &public)

	var private Private
	mustLoadPath(path.Join(configFolder, "private.yaml"), &private)

	cfg := &Config{Public: public, Private: private}
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(cfg); err != nil {
		panic(fmt.Sprintf("invalid config: %v", err))
	}
	return cfg
}
