package catalog

// Catalog describes the application form for clients that render it.
type Catalog struct {
	Version  string    `json:"version"`
	Title    string    `json:"title"`
	Sections []Section `json:"sections"`
}

type Section struct {
	Index    int         `json:"index"`
	Title    string      `json:"title"`
	Progress float64     `json:"progress"`
	Fields   []FieldSpec `json:"fields"`
}

type FieldSpec struct {
	Key       string   `json:"key"`
	Label     string   `json:"label"`
	Kind      Kind     `json:"kind"`
	Required  bool     `json:"required"`
	Options   []Option `json:"options,omitempty"`
	MinLength int      `json:"minLength,omitempty"`
	MaxLength int      `json:"maxLength,omitempty"`
	// ShowWhen is a human-readable visibility condition for conditional fields.
	ShowWhen string `json:"showWhen,omitempty"`
}

type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

type Kind string

const (
	KindText     Kind = "text"
	KindTextarea Kind = "textarea"
	KindEmail    Kind = "email"
	KindPhone    Kind = "tel"
	KindDate     Kind = "date"
	KindURL      Kind = "url"
	KindSelect   Kind = "select"
	KindRadio    Kind = "radio"
	KindCheckbox Kind = "checkbox"
	KindMulti    Kind = "multi-select"
)
