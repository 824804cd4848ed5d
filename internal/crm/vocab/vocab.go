// Package vocab carries the recommended sector/subsector vocabulary for
// establishments. The vocabulary is advisory: free text is accepted
// everywhere, this package only normalizes recognizable hints.
package vocab

import (
	_ "embed"
	"sync"

	"gopkg.in/yaml.v3"

	"crm_assistant_backend/platform/textnorm"
)

//go:embed sectors.yaml
var raw []byte

// Sector is one entry of the recommended vocabulary.
type Sector struct {
	Name       string   `yaml:"name"`
	Label      string   `yaml:"label"`
	Subsectors []string `yaml:"subsectors"`
}

type catalog struct {
	Sectors []Sector `yaml:"sectors"`
}

var (
	loadOnce sync.Once
	loaded   catalog
)

func load() catalog {
	loadOnce.Do(func() {
		if err := yaml.Unmarshal(raw, &loaded); err != nil {
			// Embedded data, failure is a programming error.
			panic("vocab: invalid sectors.yaml: " + err.Error())
		}
	})
	return loaded
}

// Sectors returns the full recommended vocabulary.
func Sectors() []Sector {
	return load().Sectors
}

// Canonical maps a free-text sector hint to a vocabulary entry. The second
// return value is the matched subsector when the hint named one. Returns
// ok=false when the hint matches nothing; callers keep the raw text then.
func Canonical(hint string) (sector, subsector string, ok bool) {
	key := textnorm.Normalize(hint)
	if key == "" {
		return "", "", false
	}

	for _, s := range load().Sectors {
		if key == textnorm.Normalize(s.Name) || key == textnorm.Normalize(s.Label) {
			return s.Name, "", true
		}
		for _, sub := range s.Subsectors {
			if key == textnorm.Normalize(sub) {
				return s.Name, sub, true
			}
		}
	}
	return "", "", false
}
