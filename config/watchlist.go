package config

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v4"
)

// Watch is one route to scan on every run.
type Watch struct {
	Name        string `yaml:"name"`
	Origin      string `yaml:"origin"`
	Destination string `yaml:"destination"`
	StartDate   string `yaml:"start_date"`
	Days        int    `yaml:"days"`
	TargetPrice string `yaml:"target_price"`
}

type watchList struct {
	Watches []Watch `yaml:"watches"`
}

// LoadWatchList reads the YAML watch list at path.
func LoadWatchList(filename string) ([]Watch, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read watch list: %w", err)
	}

	var wl watchList
	if err := yaml.Unmarshal(data, &wl); err != nil {
		return nil, fmt.Errorf("failed to unmarshal YAML: %w", err)
	}

	for i := range wl.Watches {
		if wl.Watches[i].Name == "" {
			wl.Watches[i].Name = wl.Watches[i].Origin + "-" + wl.Watches[i].Destination
		}
	}
	return wl.Watches, nil
}

// Watches returns the configured watch list, or a single watch built from
// ORIGIN / DESTINATION / START_DATE / WINDOW_DAYS / TARGET_PRICE when no list is set.
func (c *Config) Watches() ([]Watch, error) {
	if c.WatchListPath != "" {
		return LoadWatchList(c.WatchListPath)
	}
	return []Watch{{
		Name:        c.Origin + "-" + c.Destination,
		Origin:      c.Origin,
		Destination: c.Destination,
		StartDate:   c.StartDate,
		Days:        c.WindowDays,
		TargetPrice: c.TargetPrice,
	}}, nil
}
