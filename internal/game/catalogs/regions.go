package catalogs

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// RegionDef is one claimable map area.
type RegionDef struct {
	ID    string `yaml:"id" json:"id"`
	Name  string `yaml:"name" json:"name"`
	Label int    `yaml:"label" json:"label"`
}

type Regions struct {
	ByID  map[string]RegionDef
	Order []string
}

type regionsFile struct {
	Regions []RegionDef `yaml:"regions"`
}

func LoadRegions(path string) (*Regions, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f regionsFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("regions.yaml: %w", err)
	}
	return NewRegions(f.Regions)
}

func NewRegions(defs []RegionDef) (*Regions, error) {
	r := &Regions{ByID: make(map[string]RegionDef, len(defs))}
	for i, d := range defs {
		d.ID = strings.TrimSpace(d.ID)
		if d.ID == "" {
			return nil, fmt.Errorf("regions[%d]: missing id", i)
		}
		if _, dup := r.ByID[d.ID]; dup {
			return nil, fmt.Errorf("regions[%d]: duplicate id %q", i, d.ID)
		}
		if d.Name == "" {
			d.Name = d.ID
		}
		r.ByID[d.ID] = d
		r.Order = append(r.Order, d.ID)
	}
	if len(r.Order) == 0 {
		return nil, fmt.Errorf("regions: empty catalog")
	}
	return r, nil
}

// List returns the definitions in file order.
func (r *Regions) List() []RegionDef {
	out := make([]RegionDef, 0, len(r.Order))
	for _, id := range r.Order {
		out = append(out, r.ByID[id])
	}
	return out
}
