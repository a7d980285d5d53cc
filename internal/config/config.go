package config

import (
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	BackendPGX  = "pgx"
	BackendGorm = "gorm"

	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

var defaultCORSOrigins = []string{
	"http://localhost:3000",
	"http://localhost:3001",
	"https://anycomp.netlify.app",
}

type DBConfig struct {
	URL             string `yaml:"url"`
	Host            string `yaml:"host"`
	Port            int    `yaml:"port"`
	User            string `yaml:"user"`
	Password        string `yaml:"password"`
	Name            string `yaml:"name"`
	SSLMode         string `yaml:"sslmode"`
	MaxConns        int    `yaml:"max_conns"`
	MinConns        int    `yaml:"min_conns"`
	ConnMaxLifeTime int    `yaml:"conn_max_lifetime_min"` // minutes

	Backend    string `yaml:"backend"`
	Dialect    string `yaml:"dialect"`
	SQLitePath string `yaml:"sqlite_path"`
}

// DSN returns DATABASE_URL when set, otherwise a postgres URL built from the parts.
func (c DBConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.Name,
		RawQuery: "sslmode=" + url.QueryEscape(c.SSLMode),
	}
	return u.String()
}

type CloudinaryConfig struct {
	CloudName string `yaml:"cloud_name"`
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	Folder    string `yaml:"folder"`
}

// Enabled reports whether all three credentials are present.
func (c CloudinaryConfig) Enabled() bool {
	return c.CloudName != "" && c.APIKey != "" && c.APISecret != ""
}

type Config struct {
	Env         string           `yaml:"env"`
	Port        string           `yaml:"port"`
	DB          DBConfig         `yaml:"database"`
	Cloudinary  CloudinaryConfig `yaml:"cloudinary"`
	UploadDir   string           `yaml:"upload_dir"`
	CORSOrigins []string         `yaml:"cors_origins"`
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Load reads .env (if any), the optional YAML file named by CONFIG_FILE and then
// environment variables, in that order of increasing precedence.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("config: .env not loaded: %v", err)
	}

	cfg := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadYAML(path, cfg); err != nil {
			return nil, err
		}
	}

	applyEnv(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Env:  "development",
		Port: "5000",
		DB: DBConfig{
			Host:            "localhost",
			Port:            5432,
			User:            "postgres",
			Name:            "stcomp_holdings",
			SSLMode:         "disable",
			MaxConns:        10,
			ConnMaxLifeTime: 30,
			Backend:         BackendPGX,
			Dialect:         DialectPostgres,
			SQLitePath:      "specialists.db",
		},
		Cloudinary: CloudinaryConfig{Folder: "anycomp/specialists"},
		UploadDir:  "uploads",
	}
}

func loadYAML(path string, cfg *Config) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config file: %w", err)
	}
	defer file.Close()

	if err := yaml.NewDecoder(file).Decode(cfg); err != nil {
		return fmt.Errorf("decode config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.Env = getEnv("APP_ENV", cfg.Env)
	cfg.Port = getEnv("PORT", cfg.Port)

	cfg.DB.URL = getEnv("DATABASE_URL", cfg.DB.URL)
	cfg.DB.Host = getEnv("DB_HOST", cfg.DB.Host)
	cfg.DB.Port = getEnvInt("DB_PORT", cfg.DB.Port)
	cfg.DB.User = getEnv("DB_USERNAME", cfg.DB.User)
	cfg.DB.Password = getEnv("DB_PASSWORD", cfg.DB.Password)
	cfg.DB.Name = getEnv("DB_NAME", cfg.DB.Name)
	cfg.DB.SSLMode = getEnv("DB_SSLMODE", cfg.DB.SSLMode)
	cfg.DB.MaxConns = getEnvInt("DB_MAX_CONNS", cfg.DB.MaxConns)
	cfg.DB.MinConns = getEnvInt("DB_MIN_CONNS", cfg.DB.MinConns)
	cfg.DB.ConnMaxLifeTime = getEnvInt("DB_CONN_MAX_LIFETIME_MIN", cfg.DB.ConnMaxLifeTime)
	cfg.DB.Backend = strings.ToLower(getEnv("STORE_BACKEND", cfg.DB.Backend))
	cfg.DB.Dialect = strings.ToLower(getEnv("GORM_DIALECT", cfg.DB.Dialect))
	cfg.DB.SQLitePath = getEnv("SQLITE_PATH", cfg.DB.SQLitePath)

	cfg.Cloudinary.CloudName = getEnv("CLOUDINARY_CLOUD_NAME", cfg.Cloudinary.CloudName)
	cfg.Cloudinary.APIKey = getEnv("CLOUDINARY_API_KEY", cfg.Cloudinary.APIKey)
	cfg.Cloudinary.APISecret = getEnv("CLOUDINARY_API_SECRET", cfg.Cloudinary.APISecret)
	cfg.Cloudinary.Folder = getEnv("CLOUDINARY_FOLDER", cfg.Cloudinary.Folder)

	cfg.UploadDir = getEnv("UPLOAD_DIR", cfg.UploadDir)

	origins := append([]string{}, defaultCORSOrigins...)
	origins = append(origins, cfg.CORSOrigins...)
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
	}
	cfg.CORSOrigins = origins
}

func (c *Config) validate() error {
	switch c.DB.Backend {
	case BackendPGX:
		if c.DB.URL == "" && (c.DB.Host == "" || c.DB.Name == "") {
			return fmt.Errorf("invalid DB config: DATABASE_URL or DB_HOST/DB_NAME must be set")
		}
	case BackendGorm:
		switch c.DB.Dialect {
		case DialectPostgres:
			if c.DB.URL == "" && (c.DB.Host == "" || c.DB.Name == "") {
				return fmt.Errorf("invalid DB config: DATABASE_URL or DB_HOST/DB_NAME must be set")
			}
		case DialectSQLite:
			if c.DB.SQLitePath == "" {
				return fmt.Errorf("invalid DB config: SQLITE_PATH must not be empty")
			}
		default:
			return fmt.Errorf("invalid DB config: unknown GORM_DIALECT %q", c.DB.Dialect)
		}
	default:
		return fmt.Errorf("invalid DB config: unknown STORE_BACKEND %q", c.DB.Backend)
	}
	if c.Port == "" {
		return fmt.Errorf("invalid config: PORT must not be empty")
	}
	return nil
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
		log.Printf("config: %s=%q is not an integer, using %d", key, v, def)
	}
	return def
}
