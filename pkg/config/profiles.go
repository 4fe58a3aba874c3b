package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/user/riskscope/pkg/engine"
)

// Profile is a named scoring context, e.g. one per business unit.
type Profile struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Context     engine.Context `yaml:"context"`
}

// Profiles indexes loaded profiles by name.
type Profiles map[string]Profile

// LoadProfiles reads every .yaml/.yml file in dir. A file without a name is
// registered under its base name.
func LoadProfiles(dir string) (Profiles, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	profiles := make(Profiles)
	for _, entry := range entries {
		ext := filepath.Ext(entry.Name())
		if entry.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}

		var p Profile
		if err := yaml.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", entry.Name(), err)
		}
		if p.Name == "" {
			p.Name = entry.Name()[:len(entry.Name())-len(ext)]
		}
		if _, dup := profiles[p.Name]; dup {
			return nil, fmt.Errorf("duplicate profile %q in %s", p.Name, entry.Name())
		}
		profiles[p.Name] = p
		slog.Debug("loaded context profile", "name", p.Name, "file", entry.Name())
	}
	return profiles, nil
}

// Names returns the profile names in sorted order.
func (p Profiles) Names() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (p Profiles) Get(name string) (Profile, bool) {
	prof, ok := p[name]
	return prof, ok
}
