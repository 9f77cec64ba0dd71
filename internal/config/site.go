package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"gopkg.in/yaml.v3"
)

// Site configuration file names inside Storage.SiteConfigDir.
const (
	ContentTypesFile = "contenttypes.yml"
	TaxonomyFile     = "taxonomy.yml"
)

// ContentType describes one kind of content record.
type ContentType struct {
	Key          string `yaml:"-" json:"key"`
	Name         string `yaml:"name" json:"name"`
	SingularName string `yaml:"singular_name" json:"singular_name"`
	Slug         string `yaml:"slug" json:"slug"`
	SingularSlug string `yaml:"singular_slug" json:"singular_slug"`
	IconMany     string `yaml:"icon_many" json:"icon_many"`
	IconOne      string `yaml:"icon_one" json:"icon_one"`
	Viewless     bool   `yaml:"viewless" json:"viewless"`
}

// Option is one term of a taxonomy.
type Option struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// Options keeps taxonomy terms in file order. It reads either a mapping of key
// to label or a plain list, where each entry is its own key.
type Options []Option

// UnmarshalYAML implements yaml.Unmarshaler.
func (o *Options) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.MappingNode:
		out := make(Options, 0, len(value.Content)/2)
		for i := 0; i+1 < len(value.Content); i += 2 {
			var label string
			if err := value.Content[i+1].Decode(&label); err != nil {
				return fmt.Errorf("line %d: taxonomy option must be a scalar: %w", value.Content[i+1].Line, err)
			}
			out = append(out, Option{Key: value.Content[i].Value, Label: label})
		}
		*o = out
	case yaml.SequenceNode:
		out := make(Options, 0, len(value.Content))
		for _, n := range value.Content {
			var label string
			if err := n.Decode(&label); err != nil {
				return fmt.Errorf("line %d: taxonomy option must be a scalar: %w", n.Line, err)
			}
			out = append(out, Option{Key: label, Label: label})
		}
		*o = out
	case yaml.ScalarNode:
		if value.ShortTag() != "!!null" {
			return fmt.Errorf("line %d: taxonomy options must be a mapping or a list", value.Line)
		}
		*o = nil
	default:
		return fmt.Errorf("line %d: taxonomy options must be a mapping or a list", value.Line)
	}
	return nil
}

// Taxonomy is a grouping vocabulary such as categories or tags.
type Taxonomy struct {
	Key          string  `yaml:"-" json:"key"`
	Name         string  `yaml:"name" json:"name"`
	SingularName string  `yaml:"singular_name" json:"singular_name"`
	Slug         string  `yaml:"slug" json:"slug"`
	Icon         string  `yaml:"icon" json:"icon,omitempty"`
	Options      Options `yaml:"options" json:"options,omitempty"`
}

// Site is the content model of the site, in file order.
type Site struct {
	ContentTypes []ContentType `json:"contenttypes"`
	Taxonomies   []Taxonomy    `json:"taxonomies"`
}

// ParseContentTypes reads a contenttypes.yml document.
func ParseContentTypes(data []byte) ([]ContentType, error) {
	var out []ContentType
	err := eachEntry(data, func(key string, n *yaml.Node) error {
		var ct ContentType
		if err := n.Decode(&ct); err != nil {
			return err
		}
		ct.Key = key
		if ct.Slug == "" {
			ct.Slug = key
		}
		if ct.Name == "" {
			ct.Name = key
		}
		if ct.SingularSlug == "" {
			ct.SingularSlug = ct.Slug
		}
		if ct.SingularName == "" {
			ct.SingularName = ct.Name
		}
		out = append(out, ct)
		return nil
	})
	return out, err
}

// ParseTaxonomies reads a taxonomy.yml document.
func ParseTaxonomies(data []byte) ([]Taxonomy, error) {
	var out []Taxonomy
	err := eachEntry(data, func(key string, n *yaml.Node) error {
		var tax Taxonomy
		if err := n.Decode(&tax); err != nil {
			return err
		}
		tax.Key = key
		if tax.Slug == "" {
			tax.Slug = key
		}
		if tax.Name == "" {
			tax.Name = key
		}
		out = append(out, tax)
		return nil
	})
	return out, err
}

// eachEntry calls fn for every top-level mapping entry in order.
func eachEntry(data []byte, fn func(key string, n *yaml.Node) error) error {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return err
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return nil
	}
	root := doc.Content[0]
	if root.Kind == yaml.ScalarNode && root.ShortTag() == "!!null" {
		return nil
	}
	if root.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: expected a mapping", root.Line)
	}
	for i := 0; i+1 < len(root.Content); i += 2 {
		key := root.Content[i].Value
		if err := fn(key, root.Content[i+1]); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}
	return nil
}

// LoadSite reads contenttypes.yml and taxonomy.yml from dir. Missing files
// yield an empty model.
func LoadSite(dir string) (*Site, error) {
	site := &Site{ContentTypes: []ContentType{}, Taxonomies: []Taxonomy{}}

	data, err := readOptional(filepath.Join(dir, ContentTypesFile))
	if err != nil {
		return nil, err
	}
	if cts, err := ParseContentTypes(data); err != nil {
		return nil, fmt.Errorf("parse %s: %w", ContentTypesFile, err)
	} else if cts != nil {
		site.ContentTypes = cts
	}

	data, err = readOptional(filepath.Join(dir, TaxonomyFile))
	if err != nil {
		return nil, err
	}
	if taxes, err := ParseTaxonomies(data); err != nil {
		return nil, fmt.Errorf("parse %s: %w", TaxonomyFile, err)
	} else if taxes != nil {
		site.Taxonomies = taxes
	}
	return site, nil
}

func readOptional(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

// SiteStore publishes the current site model to concurrent readers.
type SiteStore struct {
	current atomic.Pointer[Site]
}

// NewSiteStore creates a store holding initial.
func NewSiteStore(initial *Site) *SiteStore {
	s := &SiteStore{}
	if initial == nil {
		initial = &Site{}
	}
	s.current.Store(initial)
	return s
}

// Site returns the current model.
func (s *SiteStore) Site() *Site {
	return s.current.Load()
}

// Store replaces the current model.
func (s *SiteStore) Store(site *Site) {
	s.current.Store(site)
}
