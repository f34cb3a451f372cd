package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

type Config struct {
	AI       AI       `yaml:"ai"`
	Annotate Annotate `yaml:"annotate"`
	Alerts   Alerts   `yaml:"alerts"`
	Ignore   Ignore   `yaml:"ignore"`
	Severity string   `yaml:"severity"`
	DryRun   bool     `yaml:"-"`
	Force    bool     `yaml:"-"`
	Verbose  bool     `yaml:"-"`
	Output   string   `yaml:"-"`
	Repo     string   `yaml:"-"`
	Token    string   `yaml:"-"`
}

type AI struct {
	Provider string        `yaml:"provider"`
	Model    string        `yaml:"model"`
	Timeout  time.Duration `yaml:"timeout"`
}

type Annotate struct {
	Body    bool `yaml:"body"`
	Comment bool `yaml:"comment"`
}

type Alerts struct {
	State string `yaml:"state"`
}

type Ignore struct {
	Advisories []string `yaml:"advisories"`
	Packages   []string `yaml:"packages"`
}

func Default() *Config {
	return &Config{
		AI: AI{
			Provider: "none",
			Timeout:  5 * time.Minute,
		},
		Annotate: Annotate{
			Body:    true,
			Comment: true,
		},
		Alerts: Alerts{
			State: "open",
		},
		Output: "table",
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadEnv reads a .env file into the process environment if one exists.
// Variables already set are left alone.
func LoadEnv(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	return godotenv.Load(path)
}

func MergeFlags(cfg *Config, flags *pflag.FlagSet) *Config {
	if v, err := flags.GetString("ai-provider"); err == nil && v != "" {
		cfg.AI.Provider = v
	}
	if v, err := flags.GetString("ai-model"); err == nil && v != "" {
		cfg.AI.Model = v
	}
	if v, err := flags.GetDuration("ai-timeout"); err == nil && flags.Changed("ai-timeout") {
		cfg.AI.Timeout = v
	}
	if v, err := flags.GetBool("no-comment"); err == nil && v {
		cfg.Annotate.Comment = false
	}
	if v, err := flags.GetBool("dry-run"); err == nil {
		cfg.DryRun = v
	}
	if v, err := flags.GetBool("force"); err == nil {
		cfg.Force = v
	}
	if v, err := flags.GetBool("verbose"); err == nil {
		cfg.Verbose = v
	}
	if v, err := flags.GetString("output"); err == nil && v != "" {
		cfg.Output = v
	}
	if v, err := flags.GetString("repo"); err == nil && v != "" {
		cfg.Repo = v
	}
	if v, err := flags.GetString("github-token"); err == nil && v != "" {
		cfg.Token = v
	}
	if v, err := flags.GetString("severity"); err == nil && v != "" {
		cfg.Severity = v
	}
	if v, err := flags.GetStringSlice("ignore-advisory"); err == nil && len(v) > 0 {
		cfg.Ignore.Advisories = append(cfg.Ignore.Advisories, v...)
	}
	return cfg
}

// IsIgnored reports whether an advisory id or alias, or the package itself,
// is on the ignore lists.
func (c *Config) IsIgnored(pkg string, ids ...string) bool {
	for _, p := range c.Ignore.Packages {
		if p == pkg {
			return true
		}
	}
	for _, ignored := range c.Ignore.Advisories {
		for _, id := range ids {
			if ignored == id {
				return true
			}
		}
	}
	return false
}
