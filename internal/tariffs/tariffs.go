// Package tariffs holds the named slab schedules the estimator can bill with.
package tariffs

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/bher20/slabbiller/pkg/slab"
)

// DefaultKey is the tariff used when a caller does not name one.
const DefaultKey = "pk-residential"

const tariffsEnv = "SLABBILLER_TARIFFS_JSON"

// ErrTariffNotFound is wrapped by every lookup that names an unknown key.
var ErrTariffNotFound = errors.New("tariff not found")

// Descriptor names a slab schedule in its compact boundaries/rates form.
type Descriptor struct {
	Key        string    `json:"key" yaml:"key"`
	Name       string    `json:"name" yaml:"name"`
	Currency   string    `json:"currency" yaml:"currency"`
	Notes      string    `json:"notes,omitempty" yaml:"notes,omitempty"`
	Boundaries []float64 `json:"boundaries" yaml:"boundaries"`
	Rates      []float64 `json:"rates" yaml:"rates"`
}

// Schedule builds the validated slab schedule for the descriptor.
func (d Descriptor) Schedule() (*slab.Schedule, error) {
	s, err := slab.ScheduleConfig{Boundaries: d.Boundaries, Rates: d.Rates}.Schedule()
	if err != nil {
		return nil, fmt.Errorf("tariff %s: %w", d.Key, err)
	}
	return s, nil
}

func defaultTariffs() []Descriptor {
	cfg := slab.DefaultConfig()
	return []Descriptor{
		{
			Key:        DefaultKey,
			Name:       "Residential slab tariff",
			Currency:   "Rs.",
			Notes:      "Estimated residential slab rates; actual bills may vary",
			Boundaries: cfg.Boundaries,
			Rates:      cfg.Rates,
		},
	}
}

// All returns the configured tariffs. SLABBILLER_TARIFFS_JSON replaces the
// built-in list; empty or unparsable JSON falls back to the defaults.
func All() []Descriptor {
	raw := os.Getenv(tariffsEnv)
	if raw == "" {
		return defaultTariffs()
	}
	var out []Descriptor
	if err := json.Unmarshal([]byte(raw), &out); err != nil || len(out) == 0 {
		return defaultTariffs()
	}
	return out
}

type file struct {
	Tariffs []Descriptor `yaml:"tariffs"`
}

// LoadFile reads tariffs from a YAML document with a top-level "tariffs"
// list. Every tariff must describe a valid schedule.
func LoadFile(path string) ([]Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading tariff file: %w", err)
	}
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing tariff file: %w", err)
	}
	if len(f.Tariffs) == 0 {
		return nil, fmt.Errorf("tariff file %s defines no tariffs", path)
	}
	for _, d := range f.Tariffs {
		if d.Key == "" {
			return nil, fmt.Errorf("tariff file %s: tariff without key", path)
		}
		if _, err := d.Schedule(); err != nil {
			return nil, err
		}
	}
	return f.Tariffs, nil
}
