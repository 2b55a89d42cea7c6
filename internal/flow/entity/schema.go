package entity

import "fmt"

// FieldType 表单字段类型
type FieldType string

const (
	FieldText        FieldType = "TEXT"
	FieldTextarea    FieldType = "TEXTAREA"
	FieldSelect      FieldType = "SELECT"
	FieldMultiselect FieldType = "MULTISELECT"
	FieldRadio       FieldType = "RADIO"
	FieldCheckbox    FieldType = "CHECKBOX"
	FieldNumber      FieldType = "NUMBER"
	FieldDate        FieldType = "DATE"
)

// Valid 是否为已知字段类型
func (t FieldType) Valid() bool {
	switch t {
	case FieldText, FieldTextarea, FieldSelect, FieldMultiselect,
		FieldRadio, FieldCheckbox, FieldNumber, FieldDate:
		return true
	}
	return false
}

// FormField 表单字段
type FormField struct {
	Key      string    `json:"key" yaml:"key"`
	Label    string    `json:"label" yaml:"label"`
	Type     FieldType `json:"type" yaml:"type"`
	Required bool      `json:"required" yaml:"required"`
	Options  []string  `json:"options,omitempty" yaml:"options,omitempty"`
}

// FormSection 表单分区
type FormSection struct {
	Key    string      `json:"key" yaml:"key"`
	Title  string      `json:"title" yaml:"title"`
	Fields []FormField `json:"fields" yaml:"fields"`
}

// FormSchema 表单结构（按版本存储，不可变）
type FormSchema struct {
	Sections []FormSection `json:"sections" yaml:"sections"`
}

// RequiredFields returns the required fields in section then field order.
func (s FormSchema) RequiredFields() []FormField {
	var out []FormField
	for _, sec := range s.Sections {
		for _, f := range sec.Fields {
			if f.Required {
				out = append(out, f)
			}
		}
	}
	return out
}

// Validate checks field keys are present and unique across sections and
// every field carries a known type.
func (s FormSchema) Validate() error {
	seen := make(map[string]bool)
	for i, sec := range s.Sections {
		for j, f := range sec.Fields {
			if f.Key == "" {
				return fmt.Errorf("section %d field %d: key is required", i, j)
			}
			if seen[f.Key] {
				return fmt.Errorf("duplicate field key %q", f.Key)
			}
			seen[f.Key] = true
			if !f.Type.Valid() {
				return fmt.Errorf("field %q: unknown type %q", f.Key, f.Type)
			}
		}
	}
	return nil
}
