package schema

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/dolmen-go/contextio"
	"gopkg.in/yaml.v3"

	"github.com/vinicius-lino-figueiredo/godm/domain"
)

// definitionYAML is one collection of a schema file:
//
//	User:
//	  required_vars: [name, email]
//	  admissible_vars: [age, loc]
//	  unique_indexes: [email]
//	  regular_indexes: [age]
//	  location_index: loc
type definitionYAML struct {
	RequiredVars   []string `yaml:"required_vars"`
	AdmissibleVars []string `yaml:"admissible_vars"`
	UniqueIndexes  []string `yaml:"unique_indexes"`
	RegularIndexes []string `yaml:"regular_indexes"`
	LocationIndex  string   `yaml:"location_index"`
}

var knownKeys = []string{
	"required_vars", "admissible_vars", "unique_indexes", "regular_indexes", "location_index",
}

func (d definitionYAML) definition(collection string) domain.ModelDefinition {
	def := domain.ModelDefinition{
		Collection: collection,
		Required:   d.RequiredVars,
		Admissible: d.AdmissibleVars,
	}
	for _, f := range d.UniqueIndexes {
		def.Indexes = append(def.Indexes, domain.IndexSpec{Field: f, Kind: domain.IndexUnique})
	}
	for _, f := range d.RegularIndexes {
		def.Indexes = append(def.Indexes, domain.IndexSpec{Field: f, Kind: domain.IndexRegular})
	}
	if d.LocationIndex != "" {
		def.Indexes = append(def.Indexes, domain.IndexSpec{Field: d.LocationIndex, Kind: domain.IndexGeospatial})
	}
	return def
}

// Parse reads a schema document mapping collection names to their
// definitions. Collections are returned in the order they appear and the
// indexes of each are ordered unique, regular, then location. Semantic
// checks are left to [Registry.RegisterType].
func Parse(r io.Reader) ([]domain.ModelDefinition, error) {
	var root yaml.Node
	if err := yaml.NewDecoder(r).Decode(&root); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("parse schema: %w", err)
	}

	doc := &root
	if doc.Kind == yaml.DocumentNode {
		if len(doc.Content) == 0 {
			return nil, nil
		}
		doc = doc.Content[0]
	}
	if doc.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("parse schema: line %d: expected a mapping of collections", doc.Line)
	}

	defs := make([]domain.ModelDefinition, 0, len(doc.Content)/2)
	seen := make(map[string]struct{}, len(doc.Content)/2)
	for i := 0; i+1 < len(doc.Content); i += 2 {
		key, value := doc.Content[i], doc.Content[i+1]
		name := key.Value
		if _, ok := seen[name]; ok {
			return nil, fmt.Errorf("parse schema: line %d: collection %q declared twice", key.Line, name)
		}
		seen[name] = struct{}{}

		if value.Kind == yaml.MappingNode {
			for j := 0; j < len(value.Content); j += 2 {
				k := value.Content[j]
				if !slices.Contains(knownKeys, k.Value) {
					return nil, fmt.Errorf("parse schema: line %d: unknown key %q in %q", k.Line, k.Value, name)
				}
			}
		}

		var d definitionYAML
		if err := value.Decode(&d); err != nil {
			return nil, fmt.Errorf("parse schema: collection %q: %w", name, err)
		}
		defs = append(defs, d.definition(name))
	}
	return defs, nil
}

// LoadFile reads and parses the schema file at path.
func LoadFile(ctx context.Context, path string) ([]domain.ModelDefinition, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	defs, err := Parse(contextio.NewReader(ctx, f))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return defs, nil
}

// LoadGlob parses every file matching pattern, which may use "**", in
// lexical order, and returns their definitions concatenated.
func LoadGlob(ctx context.Context, pattern string) ([]domain.ModelDefinition, error) {
	paths, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		return nil, fmt.Errorf("schema pattern %q: %w", pattern, err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("schema pattern %q matches no file", pattern)
	}
	slices.Sort(paths)

	var defs []domain.ModelDefinition
	for _, p := range paths {
		d, err := LoadFile(ctx, p)
		if err != nil {
			return nil, err
		}
		defs = append(defs, d...)
	}
	return defs, nil
}
