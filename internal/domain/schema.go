package domain

// InputKind tells presentation collaborators which control to render.
type InputKind string

const (
	InputText     InputKind = "text"
	InputNumber   InputKind = "number"
	InputTextarea InputKind = "textarea"
	InputSelect   InputKind = "select"
)

// FieldOption is a selectable value for select inputs.
type FieldOption struct {
	Value string `json:"value" yaml:"value"`
	Label string `json:"label" yaml:"label"`
}

// FieldDefinition describes one named input of a category form.
type FieldDefinition struct {
	Name        string        `json:"name" yaml:"name"`
	Label       string        `json:"label" yaml:"label"`
	InputKind   InputKind     `json:"input_kind" yaml:"input_kind"`
	Required    bool          `json:"required" yaml:"required"`
	Placeholder string        `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
	Options     []FieldOption `json:"options,omitempty" yaml:"options,omitempty"`
}

// FieldSchema is the ordered set of inputs a category declares.
type FieldSchema struct {
	Category    TicketCategory    `json:"category" yaml:"category"`
	Name        string            `json:"name" yaml:"name"`
	Description string            `json:"description" yaml:"description"`
	Fields      []FieldDefinition `json:"fields" yaml:"fields"`
}

// Field looks up a definition by name.
func (s FieldSchema) Field(name string) (FieldDefinition, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldDefinition{}, false
}

// RequiredFields lists the names declared required, in schema order.
func (s FieldSchema) RequiredFields() []string {
	names := make([]string, 0, len(s.Fields))
	for _, f := range s.Fields {
		if f.Required {
			names = append(names, f.Name)
		}
	}
	return names
}
