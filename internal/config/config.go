package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	RepositoryInMemory = "inmemory"
	RepositoryFile     = "file"
	RepositoryPostgres = "postgres"

	EnvPrefix = "TASKMANAGER"
)

type Config struct {
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Database   DatabaseConfig   `yaml:"database" mapstructure:"database"`
	Logging    LoggingConfig    `yaml:"logging" mapstructure:"logging"`
	Repository RepositoryConfig `yaml:"repository" mapstructure:"repository"`
}

type ServerConfig struct {
	Port            string        `yaml:"port" mapstructure:"port"`
	Host            string        `yaml:"host" mapstructure:"host"`
	ReadTimeout     time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
	RateLimit       int           `yaml:"rate_limit" mapstructure:"rate_limit"` // запросов в минуту с одного адреса, 0 - без ограничения
	CORSOrigins     []string      `yaml:"cors_origins" mapstructure:"cors_origins"`
}

type DatabaseConfig struct {
	URL            string        `yaml:"url" mapstructure:"url"`
	MaxConnections int           `yaml:"max_connections" mapstructure:"max_connections"`
	MinConnections int           `yaml:"min_connections" mapstructure:"min_connections"`
	IdleTimeout    time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout"`
	ConnectRetry   time.Duration `yaml:"connect_retry" mapstructure:"connect_retry"`
}

type LoggingConfig struct {
	Development bool `yaml:"development" mapstructure:"development"`
}

type RepositoryConfig struct {
	Type          string        `yaml:"type" mapstructure:"type"` // "inmemory", "file" или "postgres"
	FilePath      string        `yaml:"file_path" mapstructure:"file_path"`
	FlushInterval time.Duration `yaml:"flush_interval" mapstructure:"flush_interval"` // 0 - сохранение после каждой мутации
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "8080",
			Host:            "",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			RateLimit:       100,
			CORSOrigins:     []string{"*"},
		},
		Database: DatabaseConfig{
			MaxConnections: 10,
			MinConnections: 2,
			IdleTimeout:    5 * time.Minute,
			ConnectRetry:   30 * time.Second,
		},
		Logging: LoggingConfig{
			Development: false,
		},
		Repository: RepositoryConfig{
			Type:     RepositoryInMemory,
			FilePath: "tasks.csv",
		},
	}
}

// Load собирает конфиг: значения по умолчанию, затем файл (если он есть), затем переменные
// окружения вида TASKMANAGER_SERVER_PORT.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			v.SetConfigType("yaml")
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("ошибка парсинга %s: %w", path, err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("не могу открыть %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("разбор конфига: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("server.port", cfg.Server.Port)
	v.SetDefault("server.host", cfg.Server.Host)
	v.SetDefault("server.read_timeout", cfg.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", cfg.Server.WriteTimeout)
	v.SetDefault("server.shutdown_timeout", cfg.Server.ShutdownTimeout)
	v.SetDefault("server.rate_limit", cfg.Server.RateLimit)
	v.SetDefault("server.cors_origins", cfg.Server.CORSOrigins)

	v.SetDefault("database.url", cfg.Database.URL)
	v.SetDefault("database.max_connections", cfg.Database.MaxConnections)
	v.SetDefault("database.min_connections", cfg.Database.MinConnections)
	v.SetDefault("database.idle_timeout", cfg.Database.IdleTimeout)
	v.SetDefault("database.connect_retry", cfg.Database.ConnectRetry)

	v.SetDefault("logging.development", cfg.Logging.Development)

	v.SetDefault("repository.type", cfg.Repository.Type)
	v.SetDefault("repository.file_path", cfg.Repository.FilePath)
	v.SetDefault("repository.flush_interval", cfg.Repository.FlushInterval)
}

func (c *Config) Validate() error {
	switch c.Repository.Type {
	case RepositoryInMemory:
	case RepositoryFile:
		if c.Repository.FilePath == "" {
			return errors.New("repository.file_path обязателен для типа file")
		}
	case RepositoryPostgres:
		if c.Database.URL == "" {
			return errors.New("database.url обязателен для типа postgres")
		}
	default:
		return fmt.Errorf("неизвестный тип репозитория %q", c.Repository.Type)
	}
	if c.Repository.FlushInterval < 0 {
		return errors.New("repository.flush_interval не может быть отрицательным")
	}
	return nil
}

func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}

// Dump возвращает итоговый конфиг в YAML.
func (c *Config) Dump() ([]byte, error) {
	out, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("сериализация конфига: %w", err)
	}
	return out, nil
}
