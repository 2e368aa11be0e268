// Package curriculum holds the fixed syllabus catalogs and the learner's
// progression through the selected one.
package curriculum

import (
	_ "embed"
	"errors"
	"fmt"

	"github.com/phrazzld/chemlab/internal/domain"
	"gopkg.in/yaml.v3"
)

//go:embed syllabi.yaml
var defaultSyllabi []byte

// ErrUnknownSyllabus is returned when a syllabus name is not in the catalog.
var ErrUnknownSyllabus = errors.New("unknown syllabus")

// Syllabus is a named, ordered module catalog.
type Syllabus struct {
	Name    string          `yaml:"name" json:"name"`
	Title   string          `yaml:"title" json:"title"`
	Modules []domain.Module `yaml:"modules" json:"modules"`
}

// Catalog is the immutable set of syllabi available for selection.
type Catalog struct {
	order   []string
	syllabi map[string]Syllabus
}

type catalogFile struct {
	Syllabi []Syllabus `yaml:"syllabi"`
}

// DefaultCatalog parses the embedded syllabus catalog.
func DefaultCatalog() (*Catalog, error) {
	return LoadCatalog(defaultSyllabi)
}

// LoadCatalog parses a YAML catalog. Every syllabus needs a unique name and
// at least one module; module ids must be unique within their syllabus.
func LoadCatalog(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing syllabus catalog: %w", err)
	}
	if len(file.Syllabi) == 0 {
		return nil, errors.New("syllabus catalog is empty")
	}

	c := &Catalog{syllabi: make(map[string]Syllabus, len(file.Syllabi))}
	for _, s := range file.Syllabi {
		if s.Name == "" {
			return nil, errors.New("syllabus without a name")
		}
		if _, dup := c.syllabi[s.Name]; dup {
			return nil, fmt.Errorf("duplicate syllabus %q", s.Name)
		}
		if len(s.Modules) == 0 {
			return nil, fmt.Errorf("syllabus %q has no modules", s.Name)
		}

		seen := make(map[string]struct{}, len(s.Modules))
		for _, m := range s.Modules {
			if m.ID == "" || m.Topic == "" {
				return nil, fmt.Errorf("syllabus %q has a module without id or topic", s.Name)
			}
			if _, dup := seen[m.ID]; dup {
				return nil, fmt.Errorf("syllabus %q repeats module %q", s.Name, m.ID)
			}
			seen[m.ID] = struct{}{}
		}

		c.order = append(c.order, s.Name)
		c.syllabi[s.Name] = s
	}
	return c, nil
}

// Names returns the syllabus names in catalog order.
func (c *Catalog) Names() []string {
	return append([]string(nil), c.order...)
}

// Syllabi returns every syllabus in catalog order with fresh initial statuses.
func (c *Catalog) Syllabi() []Syllabus {
	out := make([]Syllabus, 0, len(c.order))
	for _, name := range c.order {
		s := c.syllabi[name]
		s.Modules = initialModules(s.Modules)
		out = append(out, s)
	}
	return out
}

// Modules returns the named syllabus's modules with the first active and
// the rest locked. Statuses in the catalog source are ignored.
func (c *Catalog) Modules(name string) ([]domain.Module, error) {
	s, ok := c.syllabi[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSyllabus, name)
	}
	return initialModules(s.Modules), nil
}

func initialModules(src []domain.Module) []domain.Module {
	out := make([]domain.Module, len(src))
	for i, m := range src {
		m = m.Clone()
		m.Score = nil
		m.Status = domain.ModuleLocked
		if i == 0 {
			m.Status = domain.ModuleActive
		}
		out[i] = m
	}
	return out
}
