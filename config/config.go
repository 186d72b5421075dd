package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
)

// Environment variables read by LoadConfig. Values from the process environment
// win over values from the .env file.
const (
	EnvGithubToken  = "GITHUB_TOKEN"
	EnvGithubAPIURL = "GITHUB_API_URL"
	EnvDBDriver     = "DB_DRIVER"
	EnvDBName       = "DB_NAME"
	EnvDBUser       = "DB_USER"
	EnvDBPassword   = "DB_PASSWORD"
	EnvDBHost       = "DB_HOST"
	EnvDBPort       = "DB_PORT"
	EnvDBPath       = "DB_PATH"
)

const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite3"
)

// Config represents the application configuration
type Config struct {
	// GitHub API token, sent as "Authorization: token <token>"
	GitHubToken string `json:"github_token"`

	// GitHub REST API root, empty for api.github.com
	GitHubAPIURL string `json:"github_api_url"`

	Database DatabaseConfig `json:"database"`
}

// DatabaseConfig holds the connection parameters of the mirror database
type DatabaseConfig struct {
	// Driver is "mysql" or "sqlite3"
	Driver string `json:"driver"`

	// MySQL connection
	Name     string `json:"name"`
	User     string `json:"user"`
	Password string `json:"password"`
	Host     string `json:"host"`
	Port     int    `json:"port"`

	// Path to the SQLite database file
	Path string `json:"path"`
}

// DefaultConfig returns the configuration used when nothing overrides it
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver: DriverMySQL,
			Host:   "127.0.0.1",
			Port:   3306,
			Path:   "github_issues.db",
		},
	}
}

// LoadConfig builds the configuration from defaults, then the optional JSON
// file at configPath, then the optional .env file at envFile, then the process
// environment. A missing envFile is not an error.
func LoadConfig(configPath, envFile string) (*Config, error) {
	config := DefaultConfig()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := json.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	fileVars := map[string]string{}
	if envFile != "" {
		vars, err := godotenv.Read(envFile)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read env file %s: %w", envFile, err)
		}
		if err == nil {
			fileVars = vars
		}
	}

	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			return v, true
		}
		v, ok := fileVars[key]
		return v, ok && v != ""
	}

	overrides := map[string]*string{
		EnvGithubToken:  &config.GitHubToken,
		EnvGithubAPIURL: &config.GitHubAPIURL,
		EnvDBDriver:     &config.Database.Driver,
		EnvDBName:       &config.Database.Name,
		EnvDBUser:       &config.Database.User,
		EnvDBPassword:   &config.Database.Password,
		EnvDBHost:       &config.Database.Host,
		EnvDBPath:       &config.Database.Path,
	}
	for key, dest := range overrides {
		if v, ok := lookup(key); ok {
			*dest = v
		}
	}

	if v, ok := lookup(EnvDBPort); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", EnvDBPort, v, err)
		}
		config.Database.Port = port
	}

	// A relative SQLite path in a config file is relative to that file
	if configPath != "" && config.Database.Path != "" && !filepath.IsAbs(config.Database.Path) {
		configDir := filepath.Dir(configPath)
		config.Database.Path = filepath.Join(configDir, config.Database.Path)
	}

	return config, nil
}

// Validate checks that a sync can be attempted with this configuration
func (c *Config) Validate() error {
	if c.GitHubToken == "" {
		return fmt.Errorf("missing GitHub token, set %s", EnvGithubToken)
	}
	return c.Database.Validate()
}

// Validate checks the connection parameters of the selected driver
func (d DatabaseConfig) Validate() error {
	switch d.Driver {
	case DriverMySQL:
		if d.Name == "" {
			return fmt.Errorf("missing database name, set %s", EnvDBName)
		}
		if d.Host == "" {
			return fmt.Errorf("missing database host, set %s", EnvDBHost)
		}
		if d.Port <= 0 || d.Port > 65535 {
			return fmt.Errorf("invalid database port %d", d.Port)
		}
	case DriverSQLite:
		if d.Path == "" {
			return fmt.Errorf("missing database path, set %s", EnvDBPath)
		}
	default:
		return fmt.Errorf("unsupported database driver %q, expected %q or %q", d.Driver, DriverMySQL, DriverSQLite)
	}

	return nil
}

// DSN returns the data source name for the configured driver
func (d DatabaseConfig) DSN() string {
	if d.Driver == DriverSQLite {
		return d.Path
	}

	mc := mysql.NewConfig()
	mc.User = d.User
	mc.Passwd = d.Password
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(d.Host, strconv.Itoa(d.Port))
	mc.DBName = d.Name
	mc.ParseTime = true
	mc.Loc = time.UTC
	mc.Params = map[string]string{"charset": "utf8mb4"}
	return mc.FormatDSN()
}
