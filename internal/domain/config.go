package domain

import "time"

type Config struct {
	FQDN       string        `yaml:"fqdn"`
	JwtSecret  string        `yaml:"jwtSecret"`
	LocalePath string        `yaml:"localePath"`
	CacheTTL   time.Duration `yaml:"cacheTTL"`
}
