package engine

import (
	"time"

	"github.com/bitfantasy/wrapflow/internal/flow/entity"
)

// CompletionResult is the verdict of the completion evaluator for one
// form response.
type CompletionResult struct {
	Complete bool     `json:"complete"`
	Missing  []string `json:"missing"`
	Invalid  []string `json:"invalid"`
}

// dateLayouts accepted for DATE fields submitted as strings.
var dateLayouts = []string{time.RFC3339, "2006-01-02"}

// Evaluate checks every required field of schema against payload. A nil
// payload means no response has been submitted.
func Evaluate(schema entity.FormSchema, payload entity.Payload) CompletionResult {
	res := CompletionResult{Missing: []string{}, Invalid: []string{}}
	for _, f := range schema.RequiredFields() {
		v, ok := payload[f.Key]
		if !ok || v.IsEmpty() {
			res.Missing = append(res.Missing, f.Key)
			continue
		}
		if !fits(f.Type, v) {
			res.Invalid = append(res.Invalid, f.Key)
		}
	}
	res.Complete = len(res.Missing) == 0 && len(res.Invalid) == 0
	return res
}

// IsComplete reports whether the response satisfies the schema. A nil
// response is complete only for a schema without required fields.
func IsComplete(schema entity.FormSchema, response *entity.FormResponse) bool {
	var payload entity.Payload
	if response != nil {
		payload = response.Payload.Data()
	}
	return Evaluate(schema, payload).Complete
}

// fits reports whether a non-empty value has a kind the field type accepts.
func fits(t entity.FieldType, v entity.Value) bool {
	switch t {
	case entity.FieldText, entity.FieldTextarea, entity.FieldSelect, entity.FieldRadio:
		return v.Kind == entity.KindString
	case entity.FieldMultiselect:
		if v.Kind == entity.KindString {
			return true
		}
		if v.Kind != entity.KindList {
			return false
		}
		for _, item := range v.List {
			if item.Kind != entity.KindString || item.IsEmpty() {
				return false
			}
		}
		return true
	case entity.FieldCheckbox:
		return v.Kind == entity.KindBool || v.Kind == entity.KindList
	case entity.FieldNumber:
		return v.Kind == entity.KindNumber
	case entity.FieldDate:
		if v.Kind == entity.KindDate {
			return true
		}
		if v.Kind == entity.KindString {
			for _, layout := range dateLayouts {
				if _, err := time.Parse(layout, v.Str); err == nil {
					return true
				}
			}
		}
		return false
	}
	return false
}
