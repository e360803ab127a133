package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Console is the pointsctl profile. It is read from a YAML file and then
// overridden by POINTSCTL_* environment variables.
type Console struct {
	APIURL           string        `yaml:"api_url"`
	Ledger           string        `yaml:"ledger"`
	PageSize         int           `yaml:"page_size"`
	SearchDebounce   time.Duration `yaml:"search_debounce"`
	BatchConcurrency int           `yaml:"batch_concurrency"`
	Token            string        `yaml:"token"`
	Env              string        `yaml:"env"`
}

func defaultConsole() Console {
	return Console{
		APIURL:           "http://localhost:8080",
		Ledger:           "points",
		PageSize:         20,
		SearchDebounce:   300 * time.Millisecond,
		BatchConcurrency: 8,
		Env:              "dev",
	}
}

// DefaultConsolePath is ~/.pointsctl.yaml.
func DefaultConsolePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".pointsctl.yaml"
	}
	return filepath.Join(home, ".pointsctl.yaml")
}

// LoadConsole reads path if it exists. A missing file is not an error.
func LoadConsole(path string) (Console, error) {
	c := defaultConsole()
	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(b, &c); err != nil {
				return Console{}, fmt.Errorf("parse %s: %w", path, err)
			}
		case !errors.Is(err, os.ErrNotExist):
			return Console{}, fmt.Errorf("read %s: %w", path, err)
		}
	}
	c.APIURL = get("POINTSCTL_API_URL", c.APIURL)
	c.Ledger = get("POINTSCTL_LEDGER", c.Ledger)
	c.Token = get("POINTSCTL_TOKEN", c.Token)
	c.Env = get("POINTSCTL_ENV", c.Env)
	c.PageSize = getInt("POINTSCTL_PAGE_SIZE", c.PageSize)
	c.BatchConcurrency = getInt("POINTSCTL_BATCH_CONCURRENCY", c.BatchConcurrency)
	c.SearchDebounce = getDuration("POINTSCTL_SEARCH_DEBOUNCE", c.SearchDebounce)
	return c, nil
}

// SaveConsole writes c to path with owner-only permissions since it may
// carry a token.
func SaveConsole(path string, c Console) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o600)
}
