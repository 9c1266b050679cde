package tuning

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	Players []Player `yaml:"players"`

	StartingPoints int `yaml:"starting_points"`
	MinPointValue  int `yaml:"min_point_value"`

	Weights   Weights   `yaml:"weights"`
	Opacities Opacities `yaml:"opacities"`

	UnclaimedFill string `yaml:"unclaimed_fill"`

	// CSV export: label of the synthetic zero column and layout of time headers.
	CSVStartLabel string `yaml:"csv_start_label"`
	CSVTimeLayout string `yaml:"csv_time_layout"`

	AssertInvariants bool `yaml:"assert_invariants"`
}

type Player struct {
	ID    string `yaml:"id"`
	Name  string `yaml:"name"`
	Color string `yaml:"color"`
}

type Weights struct {
	Normal          int `yaml:"normal"`
	RecentlyClaimed int `yaml:"recently_claimed"`
}

type Opacities struct {
	Unclaimed float64 `yaml:"unclaimed"`
	Claimed   float64 `yaml:"claimed"`
	Hovering  float64 `yaml:"hovering"`
}

func Defaults() Tuning {
	return Tuning{
		Players: []Player{
			{ID: "name1", Name: "Player 1", Color: "orange"},
			{ID: "name2", Name: "Player 2", Color: "yellow"},
			{ID: "name3", Name: "Player 3", Color: "blue"},
			{ID: "name4", Name: "Player 4", Color: "purple"},
		},
		StartingPoints:   4,
		MinPointValue:    1,
		Weights:          Weights{Normal: 1, RecentlyClaimed: 3},
		Opacities:        Opacities{Unclaimed: 0.5, Claimed: 0.8, Hovering: 0.2},
		UnclaimedFill:    "lightgrey",
		CSVStartLabel:    "12:15",
		CSVTimeLayout:    "15:04",
		AssertInvariants: true,
	}
}

// Load reads path over Defaults; fields absent from the file keep their default.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("game.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("game.yaml: %w", err)
	}
	return t, nil
}

func (t Tuning) Validate() error {
	if len(t.Players) == 0 {
		return fmt.Errorf("players: at least one player required")
	}
	seen := map[string]bool{}
	for i, p := range t.Players {
		id := strings.TrimSpace(p.ID)
		if id == "" {
			return fmt.Errorf("players[%d]: missing id", i)
		}
		if seen[id] {
			return fmt.Errorf("players[%d]: duplicate id %q", i, id)
		}
		seen[id] = true
	}
	if t.MinPointValue < 1 {
		return fmt.Errorf("min_point_value must be >= 1")
	}
	if t.StartingPoints < t.MinPointValue {
		return fmt.Errorf("starting_points (%d) below min_point_value (%d)", t.StartingPoints, t.MinPointValue)
	}
	if t.Weights.Normal <= 0 || t.Weights.RecentlyClaimed <= 0 {
		return fmt.Errorf("weights must be positive")
	}
	return nil
}

// PlayerColor returns the configured color for id.
func (t Tuning) PlayerColor(id string) string {
	for _, p := range t.Players {
		if p.ID == id {
			return p.Color
		}
	}
	return ""
}
