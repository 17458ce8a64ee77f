// Package schema holds the static per-category form definitions and the
// validator that enforces required fields at ticket creation.
package schema

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/spec-kit/request-desk/internal/domain"
	apperrors "github.com/spec-kit/request-desk/pkg/util"
)

//go:embed categories.yaml
var defaultDefinitions []byte

// knownCategories is the closed category set; definitions outside it are rejected.
var knownCategories = []domain.TicketCategory{
	domain.CategoryPADE,
	domain.CategoryMETA,
	domain.CategoryExceptionPortfolioAssignment,
}

type document struct {
	Categories []domain.FieldSchema `yaml:"categories"`
}

// Registry maps categories to their field schemas. It is immutable after construction.
type Registry struct {
	order   []domain.TicketCategory
	schemas map[domain.TicketCategory]domain.FieldSchema
}

// NewDefaultRegistry parses the embedded category definitions.
func NewDefaultRegistry() (*Registry, error) {
	return Parse(defaultDefinitions)
}

// LoadFile parses definitions from path, falling back to the embedded set when path is empty.
func LoadFile(path string) (*Registry, error) {
	if strings.TrimSpace(path) == "" {
		return NewDefaultRegistry()
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema file: %w", err)
	}
	return Parse(content)
}

// Parse builds a registry from a YAML document. Every known category must be defined exactly once.
func Parse(content []byte) (*Registry, error) {
	var doc document
	if err := yaml.Unmarshal(content, &doc); err != nil {
		return nil, fmt.Errorf("decode schema definitions: %w", err)
	}

	known := make(map[domain.TicketCategory]bool, len(knownCategories))
	for _, c := range knownCategories {
		known[c] = true
	}

	reg := &Registry{schemas: make(map[domain.TicketCategory]domain.FieldSchema, len(doc.Categories))}
	for _, s := range doc.Categories {
		if !known[s.Category] {
			return nil, fmt.Errorf("category %q is not part of the closed set", s.Category)
		}
		if _, dup := reg.schemas[s.Category]; dup {
			return nil, fmt.Errorf("category %q defined twice", s.Category)
		}
		seen := make(map[string]bool, len(s.Fields))
		for _, f := range s.Fields {
			if f.Name == "" {
				return nil, fmt.Errorf("category %q has a field without a name", s.Category)
			}
			if seen[f.Name] {
				return nil, fmt.Errorf("category %q declares field %q twice", s.Category, f.Name)
			}
			seen[f.Name] = true
			switch f.InputKind {
			case domain.InputText, domain.InputNumber, domain.InputTextarea, domain.InputSelect:
			default:
				return nil, fmt.Errorf("field %q of %q has unknown input kind %q", f.Name, s.Category, f.InputKind)
			}
		}
		reg.schemas[s.Category] = s
		reg.order = append(reg.order, s.Category)
	}
	for _, c := range knownCategories {
		if _, ok := reg.schemas[c]; !ok {
			return nil, fmt.Errorf("category %q has no schema", c)
		}
	}
	return reg, nil
}

// Categories returns the categories in definition order.
func (r *Registry) Categories() []domain.TicketCategory {
	return append([]domain.TicketCategory(nil), r.order...)
}

// SchemaFor returns the schema of category or an UnknownCategory error.
func (r *Registry) SchemaFor(category domain.TicketCategory) (domain.FieldSchema, error) {
	s, ok := r.schemas[category]
	if !ok {
		return domain.FieldSchema{}, apperrors.NewUnknownCategory(string(category))
	}
	return s, nil
}

// Validate checks fields against the category schema and returns the normalized map.
// Required fields must be present and non-blank; undeclared keys are rejected;
// blank optional values are dropped. Values are trimmed but otherwise opaque.
func (r *Registry) Validate(category domain.TicketCategory, fields map[string]string) (map[string]string, error) {
	s, err := r.SchemaFor(category)
	if err != nil {
		return nil, err
	}

	normalized := make(map[string]string, len(fields))
	var missing, unknown []string
	for key, value := range fields {
		if _, ok := s.Field(key); !ok {
			unknown = append(unknown, key)
			continue
		}
		if v := strings.TrimSpace(value); v != "" {
			normalized[key] = v
		}
	}
	for _, name := range s.RequiredFields() {
		if _, ok := normalized[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 || len(unknown) > 0 {
		return nil, apperrors.NewSchemaViolation(string(category), missing, unknown)
	}
	return normalized, nil
}
