package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Log struct {
		Mode string `yaml:"mode"`
	} `yaml:"log"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Quiz struct {
		Cap       int    `yaml:"cap"`
		AnswerTTL string `yaml:"answerTtl"`
	} `yaml:"quiz"`
	Progress struct {
		ToleranceSeconds int `yaml:"toleranceSeconds"`
	} `yaml:"progress"`
	Certificate struct {
		IssuedBy          string `yaml:"issuedBy"`
		ArtifactDir       string `yaml:"artifactDir"`
		ArtifactBaseURL   string `yaml:"artifactBaseUrl"`
		RequireCompletion bool   `yaml:"requireCompletion"`
	} `yaml:"certificate"`
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// TTLDuration parses a duration string or returns the fallback if empty or
// malformed.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
