package config

import (
	"os"
	"time"

	"github.com/go-yaml/yaml"
	"github.com/pkg/errors"

	"github.com/totegamma/concrnt-journal/internal/domain"
)

const DefaultPath = "/etc/journal/config.yaml"

type Config struct {
	NodeInfo NodeInfo `yaml:"nodeInfo"`
	Server   Server   `yaml:"server"`
}

type NodeInfo struct {
	FQDN string `yaml:"fqdn"`
}

type Server struct {
	PostgresDsn   string `yaml:"postgresDsn"`
	RedisAddr     string `yaml:"redisAddr"`
	RedisDB       int    `yaml:"redisDB"`
	MemcachedAddr string `yaml:"memcachedAddr"`
	EnableTrace   bool   `yaml:"enableTrace"`
	TraceEndpoint string `yaml:"traceEndpoint"`
	JwtSecret     string `yaml:"jwtSecret"`
	LocalePath    string `yaml:"localePath"`
	CacheTTL      string `yaml:"cacheTTL"` // e.g. "5m"
	Listen        string `yaml:"listen"`
}

// Path returns $JOURNAL_CONFIG or DefaultPath.
func Path() string {
	if p := os.Getenv("JOURNAL_CONFIG"); p != "" {
		return p
	}
	return DefaultPath
}

func Load(path string) (Config, error) {

	file, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer file.Close()

	var config Config
	err = yaml.NewDecoder(file).Decode(&config)
	if err != nil {
		return Config{}, errors.Wrap(err, "failed to decode config")
	}

	if config.Server.JwtSecret == "" {
		return Config{}, errors.New("server.jwtSecret is required")
	}
	if config.Server.Listen == "" {
		config.Server.Listen = ":8000"
	}

	return config, nil
}

// Domain projects the settings the usecase layer needs.
func (c Config) Domain() (domain.Config, error) {
	ttl := time.Minute
	if c.Server.CacheTTL != "" {
		parsed, err := time.ParseDuration(c.Server.CacheTTL)
		if err != nil {
			return domain.Config{}, errors.Wrap(err, "invalid server.cacheTTL")
		}
		ttl = parsed
	}
	return domain.Config{
		FQDN:       c.NodeInfo.FQDN,
		JwtSecret:  c.Server.JwtSecret,
		LocalePath: c.Server.LocalePath,
		CacheTTL:   ttl,
	}, nil
}
