package seed

import (
	_ "embed"
	"errors"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogYAML []byte

// Catalog is the static reference data the seeder draws from.
type Catalog struct {
	ProgramTypes []ProgramSeed `yaml:"program_types"`
	Schools      []string      `yaml:"schools"`
	Sites        []SiteSeed    `yaml:"sites"`
	FirstNames   []string      `yaml:"first_names"`
	LastNames    []string      `yaml:"last_names"`
	Comments     []string      `yaml:"comments"`
}

// ProgramSeed is one program type with the rotation and experience types scoped to it.
type ProgramSeed struct {
	Name            string           `yaml:"name"`
	Abbreviation    string           `yaml:"abbreviation"`
	YearLabels      []string         `yaml:"year_labels"`
	ExperienceTypes []ExperienceSeed `yaml:"experience_types"`
	RotationTypes   []string         `yaml:"rotation_types"`
}

type ExperienceSeed struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

type SiteSeed struct {
	Name  string `yaml:"name"`
	City  string `yaml:"city"`
	State string `yaml:"state"`
}

var loadEmbedded = sync.OnceValues(func() (*Catalog, error) {
	return ParseCatalog(catalogYAML)
})

// LoadCatalog returns the embedded catalog. It is parsed once per process.
func LoadCatalog() (*Catalog, error) {
	return loadEmbedded()
}

// ParseCatalog decodes and checks a catalog document.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse seed catalog: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, fmt.Errorf("invalid seed catalog: %w", err)
	}
	return &c, nil
}

func (c *Catalog) validate() error {
	switch {
	case len(c.ProgramTypes) == 0:
		return errors.New("no program types")
	case len(c.Schools) == 0:
		return errors.New("no schools")
	case len(c.Sites) == 0:
		return errors.New("no sites")
	case len(c.FirstNames) == 0 || len(c.LastNames) == 0:
		return errors.New("no preceptor names")
	}
	for _, p := range c.ProgramTypes {
		if p.Name == "" {
			return errors.New("program type without a name")
		}
		if len(p.YearLabels) == 0 || len(p.RotationTypes) == 0 || len(p.ExperienceTypes) == 0 {
			return fmt.Errorf("program type %q is incomplete", p.Name)
		}
	}
	return nil
}
