package usage

import (
	"sort"
	"strings"
	"sync"
)

// Appliance describes a household device and its power draw.
type Appliance struct {
	Name  string  `json:"name" yaml:"name" mapstructure:"name"`
	Watts float64 `json:"watts" yaml:"watts" mapstructure:"watts"`
	// AlwaysOn appliances run 24 hours a day whenever present.
	AlwaysOn bool `json:"always_on,omitempty" yaml:"always_on,omitempty" mapstructure:"always_on"`
}

// Catalog is a set of appliances keyed by case-insensitive name.
type Catalog struct {
	mu    sync.RWMutex
	items map[string]Appliance
}

// NewCatalog returns a catalog holding the given appliances.
func NewCatalog(list ...Appliance) *Catalog {
	c := &Catalog{items: make(map[string]Appliance)}
	for _, a := range list {
		c.Register(a)
	}
	return c
}

// DefaultCatalog returns the built-in appliance ratings.
func DefaultCatalog() *Catalog {
	return NewCatalog(
		Appliance{Name: "Fan", Watts: 120},
		Appliance{Name: "Light", Watts: 20},
		Appliance{Name: "AC", Watts: 1800},
		Appliance{Name: "Refrigerator", Watts: 200, AlwaysOn: true},
		Appliance{Name: "Water Pump", Watts: 1500},
		Appliance{Name: "TV", Watts: 100},
		Appliance{Name: "Iron", Watts: 1000},
		Appliance{Name: "Washing Machine", Watts: 500},
	)
}

// Register adds or replaces an appliance.
func (c *Catalog) Register(a Appliance) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key(a.Name)] = a
}

// Lookup returns an appliance by name, ignoring case and surrounding spaces.
func (c *Catalog) Lookup(name string) (Appliance, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	a, ok := c.items[key(name)]
	return a, ok
}

// All returns every appliance sorted by name.
func (c *Catalog) All() []Appliance {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Appliance, 0, len(c.items))
	for _, a := range c.items {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func key(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
