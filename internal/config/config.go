package config

import (
	"fmt"
	"os"
	"time"

	yaml "gopkg.in/yaml.v3"
)

// Duration is a time.Duration that reads and writes the human form ("30s",
// "1h") in YAML. Bare integers are accepted as nanoseconds.
type Duration time.Duration

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var n int64
	if err := value.Decode(&n); err == nil {
		*d = Duration(n)
		return nil
	}
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("invalid duration %q", value.Value)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

type Config struct {
	Global   GlobalConfig   `yaml:"global"`
	Fetch    FetchConfig    `yaml:"fetch"`
	Analysis AnalysisConfig `yaml:"analysis"`
	Cache    CacheConfig    `yaml:"cache"`
}

type GlobalConfig struct {
	GitHubToken string        `yaml:"github_token,omitempty"`
	MaxRepos    int           `yaml:"max_repos"` // 0 = no cap
	BatchSize   int           `yaml:"batch_size"`
	BatchDelay  Duration      `yaml:"batch_delay"`
}

type FetchConfig struct {
	PageSize      int `yaml:"page_size"`
	MaxRepoPages  int `yaml:"max_repo_pages"` // 0 = all pages
	MaxIssuePages int `yaml:"max_issue_pages"`
	MaxPRPages    int `yaml:"max_pr_pages"`

	RetryMaxAttempts int           `yaml:"retry_max_attempts"`
	RetryBackoffBase Duration      `yaml:"retry_backoff_base"`
}

type AnalysisConfig struct {
	LookbackWeeks    int          `yaml:"lookback_weeks"`
	CommitSampleSize int          `yaml:"commit_sample_size"`
	Stress           StressConfig `yaml:"stress"`
}

type StressConfig struct {
	Enabled bool `yaml:"enabled"`
}

type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	Dir     string        `yaml:"dir,omitempty"`
	TTL     Duration      `yaml:"ttl"`
}

func GetConfigPath() (string, error) {
	// Respect XDG_CONFIG_HOME if set (useful for testing and Linux users)
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return xdgConfig + "/gh-pulse/config.yaml", nil
	}

	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return configDir + "/gh-pulse/config.yaml", nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Global: GlobalConfig{
			MaxRepos:   0,
			BatchSize:  5,
			BatchDelay: Duration(time.Second),
		},
		Fetch: FetchConfig{
			PageSize:         100,
			MaxRepoPages:     0,
			MaxIssuePages:    2,
			MaxPRPages:       2,
			RetryMaxAttempts: 3,
			RetryBackoffBase: Duration(2 * time.Second),
		},
		Analysis: AnalysisConfig{
			LookbackWeeks:    12,
			CommitSampleSize: 20,
			Stress: StressConfig{
				Enabled: true,
			},
		},
		Cache: CacheConfig{
			Enabled: true,
			TTL:     Duration(time.Hour),
		},
	}
}

func Load() (*Config, error) {
	cfg := Default()

	// Try loading from file
	// Priorities: ./config.yaml, $XDG_CONFIG_HOME/gh-pulse/config.yaml, $HOME/.gh-pulse.yaml
	configDirs := []string{"config.yaml"} // Local override

	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		configDirs = append(configDirs, xdgConfig+"/gh-pulse/config.yaml")
	} else if userConfigDir, err := os.UserConfigDir(); err == nil {
		configDirs = append(configDirs, userConfigDir+"/gh-pulse/config.yaml")
	}

	// Legacy fallback
	if home := os.Getenv("HOME"); home != "" {
		configDirs = append(configDirs, home+"/.gh-pulse.yaml")
	}

	for _, p := range configDirs {
		if _, err := os.Stat(p); err == nil {
			data, err := os.ReadFile(p)
			if err != nil {
				return nil, err
			}
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("error parsing %s: %w", p, err)
			}
			return cfg, nil
		}
	}

	return cfg, nil
}

// Save writes the configuration to the user's config file
func Save(cfg *Config) error {
	configPath, err := GetConfigPath()
	if err != nil {
		return fmt.Errorf("error getting config path: %w", err)
	}

	// Ensure the directory exists
	configDir := configPath[:len(configPath)-len("/config.yaml")]
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}
