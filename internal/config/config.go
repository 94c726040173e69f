package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type Server struct {
	Port              string `json:"port" yaml:"port"`
	RequestTimeoutSec int    `json:"request_timeout_sec" yaml:"request_timeout_sec"`
}

type VCI struct {
	BaseURL               string `json:"base_url" yaml:"base_url"`
	Referer               string `json:"referer" yaml:"referer"`
	RandomAgent           bool   `json:"random_agent" yaml:"random_agent"`
	MaxRequestsPerMinute  int    `json:"max_requests_per_minute" yaml:"max_requests_per_minute"`
	MinRequestIntervalSec int    `json:"min_request_interval_sec" yaml:"min_request_interval_sec"`
	Burst                 int    `json:"burst" yaml:"burst"`
	CacheTTLSeconds       int    `json:"cache_ttl_sec" yaml:"cache_ttl_sec"`
	CacheMaxItems         int    `json:"cache_max_items" yaml:"cache_max_items"`
	LogLevel              string `json:"log_level" yaml:"log_level"`
}

// Proxy is passed through to the transport unchanged; nothing here is
// interpreted by the provider client.
type Proxy struct {
	ProxyList   []string `json:"proxy_list" yaml:"proxy_list"`
	ProxyMode   string   `json:"proxy_mode" yaml:"proxy_mode"`
	RequestMode string   `json:"request_mode" yaml:"request_mode"`
	ForwardURL  string   `json:"forward_url" yaml:"forward_url"`
}

type Config struct {
	Server Server `json:"server" yaml:"server"`
	VCI    VCI    `json:"vci" yaml:"vci"`
	Proxy  Proxy  `json:"proxy" yaml:"proxy"`
}

func Default() Config {
	return Config{
		Server: Server{Port: "8080", RequestTimeoutSec: 10},
		VCI: VCI{
			BaseURL:              "https://trading.vietcap.com.vn/api/",
			Referer:              "https://trading.vietcap.com.vn/",
			MaxRequestsPerMinute: 60,
			Burst:                10,
			CacheTTLSeconds:      30,
			CacheMaxItems:        1000,
			LogLevel:             "info",
		},
	}
}

// Load reads config from path. JSON and YAML files are accepted; if path is
// empty it probes config.json and config.yaml. A missing file returns
// defaults. Environment variables override select fields.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		for _, candidate := range []string{"config.json", "config.yaml", "config.yml"} {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err == nil {
			if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
				if err := yaml.Unmarshal(b, &cfg); err != nil {
					return cfg, fmt.Errorf("parse config: %w", err)
				}
			} else if err := json.Unmarshal(b, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config: %w", err)
			}
		}
	}
	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Port = v
	}
	if v := os.Getenv("REQUEST_TIMEOUT_SEC"); v != "" {
		var x int
		fmt.Sscanf(v, "%d", &x)
		if x > 0 {
			cfg.Server.RequestTimeoutSec = x
		}
	}
	if v := os.Getenv("VCI_BASE_URL"); v != "" {
		cfg.VCI.BaseURL = v
	}
	if v := os.Getenv("VCI_RANDOM_AGENT"); v != "" {
		switch strings.ToLower(v) {
		case "1", "true", "yes", "y":
			cfg.VCI.RandomAgent = true
		case "0", "false", "no", "n":
			cfg.VCI.RandomAgent = false
		}
	}
	if v := os.Getenv("VCI_MAX_RPM"); v != "" {
		var x int
		fmt.Sscanf(v, "%d", &x)
		if x >= 0 {
			cfg.VCI.MaxRequestsPerMinute = x
		}
	}
	if v := os.Getenv("VCI_MIN_INTERVAL_SEC"); v != "" {
		var x int
		fmt.Sscanf(v, "%d", &x)
		if x >= 0 {
			cfg.VCI.MinRequestIntervalSec = x
		}
	}
	if v := os.Getenv("VCI_BURST"); v != "" {
		var x int
		fmt.Sscanf(v, "%d", &x)
		if x > 0 {
			cfg.VCI.Burst = x
		}
	}
	if v := os.Getenv("VCI_CACHE_TTL_SEC"); v != "" {
		var x int
		fmt.Sscanf(v, "%d", &x)
		if x >= 0 {
			cfg.VCI.CacheTTLSeconds = x
		}
	}
	if v := os.Getenv("VCI_CACHE_MAX_ITEMS"); v != "" {
		var x int
		fmt.Sscanf(v, "%d", &x)
		if x > 0 {
			cfg.VCI.CacheMaxItems = x
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.VCI.LogLevel = v
	}
	if v := os.Getenv("PROXY_LIST"); v != "" {
		cfg.Proxy.ProxyList = splitCSV(v)
	}
	if v := os.Getenv("PROXY_MODE"); v != "" {
		cfg.Proxy.ProxyMode = v
	}
	if v := os.Getenv("REQUEST_MODE"); v != "" {
		cfg.Proxy.RequestMode = v
	}
	if v := os.Getenv("FORWARD_PROXY_URL"); v != "" {
		cfg.Proxy.ForwardURL = v
	}
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
