package config

import (
	"fmt"
	"net/url"
	"os"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Addr   string `yaml:"addr"`    // local facade bind address
	DBPath string `yaml:"db_path"` // SautAlQuranDB file

	API struct {
		BaseURL        string `yaml:"base_url"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
	} `yaml:"api"`

	Probe struct {
		Addr            string `yaml:"addr"` // host:port dialed to check reachability
		IntervalSeconds int    `yaml:"interval_seconds"`
		TimeoutSeconds  int    `yaml:"timeout_seconds"`
	} `yaml:"probe"`

	Sync struct {
		Schedule string `yaml:"schedule"` // cron spec for trigger redelivery
	} `yaml:"sync"`

	Assets struct {
		Origin         string   `yaml:"origin"`
		Dir            string   `yaml:"dir"`
		Version        string   `yaml:"version"`
		Manifest       []string `yaml:"manifest"`
		TimeoutSeconds int      `yaml:"timeout_seconds"`
	} `yaml:"assets"`
}

// Load reads the optional YAML config file and applies defaults. An empty
// path yields a fully-defaulted config.
func Load(path string) (*Config, error) {
	var c Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, err
		}
	}

	if c.Addr == "" {
		c.Addr = ":8080"
	}
	if c.DBPath == "" {
		c.DBPath = "saut_al_quran.db"
	}
	if c.API.BaseURL == "" {
		c.API.BaseURL = "http://localhost:8000"
	}
	if c.API.TimeoutSeconds <= 0 {
		c.API.TimeoutSeconds = 30
	}
	if c.Probe.Addr == "" {
		addr, err := hostPort(c.API.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("cannot derive probe addr from api.base_url: %w", err)
		}
		c.Probe.Addr = addr
	}
	if c.Probe.IntervalSeconds <= 0 {
		c.Probe.IntervalSeconds = 15
	}
	if c.Probe.TimeoutSeconds <= 0 {
		c.Probe.TimeoutSeconds = 3
	}
	if c.Sync.Schedule == "" {
		c.Sync.Schedule = "@every 2m"
	}
	if _, err := cron.ParseStandard(c.Sync.Schedule); err != nil {
		return nil, fmt.Errorf("invalid sync.schedule %q: %w", c.Sync.Schedule, err)
	}
	if c.Assets.Origin == "" {
		c.Assets.Origin = "http://localhost:3000"
	}
	if c.Assets.Dir == "" {
		c.Assets.Dir = "asset-cache"
	}
	if c.Assets.Version == "" {
		c.Assets.Version = "saut-al-quran-v1"
	}
	if len(c.Assets.Manifest) == 0 {
		c.Assets.Manifest = []string{
			"/",
			"/static/js/bundle.js",
			"/static/css/main.css",
			"/manifest.json",
			"/favicon.ico",
		}
	}
	if c.Assets.TimeoutSeconds <= 0 {
		c.Assets.TimeoutSeconds = 15
	}
	return &c, nil
}

func hostPort(base string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	if u.Host == "" {
		return "", fmt.Errorf("no host in %q", base)
	}
	if u.Port() != "" {
		return u.Host, nil
	}
	if u.Scheme == "https" {
		return u.Host + ":443", nil
	}
	return u.Host + ":80", nil
}
