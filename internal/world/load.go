package world

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type worldFile struct {
	Maps []mapFile `yaml:"maps"`
}

type mapFile struct {
	Key    string   `yaml:"key"`
	Label  string   `yaml:"label"`
	Zones  []*Zone  `yaml:"zones"`
	Things []*Thing `yaml:"things"`
}

// Parse builds a world from its YAML description.
func Parse(data []byte) (*World, error) {
	var f worldFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse world: %w", err)
	}

	w := New()
	for _, mf := range f.Maps {
		if mf.Key == "" {
			return nil, fmt.Errorf("map without key")
		}
		label := mf.Label
		if label == "" {
			label = mf.Key
		}
		m := NewMap(mf.Key, label)
		for _, z := range mf.Zones {
			m.AddZone(z)
		}
		for i, t := range mf.Things {
			if t.ThingID == "" {
				t.ThingID = fmt.Sprintf("%s-%s-%d", mf.Key, t.Def, i)
			}
			m.AddThing(t)
		}
		if err := w.AddMap(m); err != nil {
			return nil, err
		}
	}
	return w, nil
}

// LoadFile reads a YAML world file.
func LoadFile(path string) (*World, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read world file: %w", err)
	}
	return Parse(data)
}
