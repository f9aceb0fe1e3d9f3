// Package forms compiles a stored form structure into a validator for the
// flat answer object a client submits. Structures are author-defined per
// consultation type, so validation rules live in data, not code.
package forms

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/medrec/medrec/internal/platform/apperr"
)

var dateFormat = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// Option is one selectable value of a choice field. Reveal fields attach
// follow-up fields to an option.
type Option struct {
	Value  any     `json:"value"`
	Fields []Field `json:"fields,omitempty"`
}

// Field is one entry of a form section.
type Field struct {
	Type      string   `json:"type"`
	Name      string   `json:"name"`
	Required  bool     `json:"required,omitempty"`
	InputType string   `json:"inputType,omitempty"`
	Options   []Option `json:"options,omitempty"`
	Steps     []string `json:"steps,omitempty"`
	Fields    []Field  `json:"fields,omitempty"`
}

// Section groups fields for display; validation ignores the grouping.
type Section struct {
	Title  string  `json:"title,omitempty"`
	Fields []Field `json:"fields"`
}

// Structure is the stored form definition of a consultation template.
type Structure struct {
	Sections []Section `json:"sections"`
}

type compiledField struct {
	name     string
	required bool
	check    func(any) error
}

// Validator checks a flat answer object against a compiled structure.
// Unknown keys are ignored, matching how clients send partial drafts.
type Validator struct {
	fields []compiledField
}

// StructureToValidator compiles the structure into a validator. Nested fields
// (reveal follow-ups and sub-fields) are flattened into the same answer
// object with requiredness relaxed, since they only appear when their parent
// option is selected.
func StructureToValidator(s Structure) *Validator {
	var compiled []compiledField

	var recurse func(fields []Field, nested bool)
	recurse = func(fields []Field, nested bool) {
		for _, f := range fields {
			required := f.Required && !nested
			compiled = append(compiled, compiledField{
				name:     f.Name,
				required: required,
				check:    fieldCheck(f),
			})
			if len(f.Fields) > 0 {
				recurse(f.Fields, true)
			}
			for _, opt := range f.Options {
				if len(opt.Fields) > 0 {
					recurse(opt.Fields, true)
				}
			}
		}
	}
	for _, section := range s.Sections {
		recurse(section.Fields, false)
	}

	return &Validator{fields: compiled}
}

// Validate checks the answers and returns a Validation error naming every
// failing field, or nil.
func (v *Validator) Validate(answers map[string]any) error {
	var problems []string
	for _, f := range v.fields {
		value, present := answers[f.name]
		if !present || value == nil || isEmptyString(value) {
			if f.required {
				problems = append(problems, fmt.Sprintf("%s: required", f.name))
			}
			continue
		}
		if err := f.check(value); err != nil {
			problems = append(problems, fmt.Sprintf("%s: %v", f.name, err))
		}
	}
	if len(problems) > 0 {
		return apperr.Newf(apperr.KindValidation, "invalid form data: %s", strings.Join(problems, "; "))
	}
	return nil
}

func isEmptyString(v any) bool {
	s, ok := v.(string)
	return ok && s == ""
}

func fieldCheck(f Field) func(any) error {
	switch f.Type {
	case "Input":
		switch f.InputType {
		case "number":
			return checkNumber
		case "date":
			return checkDate
		default:
			return checkString
		}
	case "Checkbox":
		return checkBool
	case "Radio":
		if len(f.Options) > 0 {
			if hasBooleanOptions(f.Options) {
				return checkLooseBool
			}
			return checkEnum(optionValues(f.Options))
		}
		return checkString
	case "CheckboxGroup":
		return checkStringSlice
	case "Select":
		if len(f.Options) > 0 {
			return checkEnum(optionValues(f.Options))
		}
		return checkString
	case "Range":
		if len(f.Steps) > 0 {
			return checkEnum(f.Steps)
		}
		return checkString
	case "RevealRadio", "RevealCheckBox":
		if len(f.Options) > 0 {
			return checkEnum(optionValues(f.Options))
		}
		return checkBool
	default:
		// Unknown and freeform component types accept anything.
		return func(any) error { return nil }
	}
}

func hasBooleanOptions(opts []Option) bool {
	for _, o := range opts {
		if _, ok := o.Value.(bool); ok {
			return true
		}
	}
	return false
}

func optionValues(opts []Option) []string {
	values := make([]string, 0, len(opts))
	for _, o := range opts {
		values = append(values, fmt.Sprint(o.Value))
	}
	return values
}

func checkString(v any) error {
	if _, ok := v.(string); !ok {
		return fmt.Errorf("expected a string")
	}
	return nil
}

// checkNumber accepts JSON numbers and numeric strings, matching what HTML
// number inputs actually submit.
func checkNumber(v any) error {
	switch n := v.(type) {
	case float64, float32, int, int32, int64:
		return nil
	case string:
		if _, err := strconv.ParseFloat(n, 64); err != nil {
			return fmt.Errorf("expected a number")
		}
		return nil
	default:
		return fmt.Errorf("expected a number")
	}
}

func checkDate(v any) error {
	s, ok := v.(string)
	if !ok || !dateFormat.MatchString(s) {
		return fmt.Errorf("expected a date (YYYY-MM-DD)")
	}
	return nil
}

func checkBool(v any) error {
	if _, ok := v.(bool); !ok {
		return fmt.Errorf("expected a boolean")
	}
	return nil
}

// checkLooseBool also accepts the strings "true" and "false", which radio
// groups with boolean options submit.
func checkLooseBool(v any) error {
	switch val := v.(type) {
	case bool:
		return nil
	case string:
		if val == "true" || val == "false" {
			return nil
		}
	}
	return fmt.Errorf("expected a boolean")
}

func checkStringSlice(v any) error {
	items, ok := v.([]any)
	if !ok {
		return fmt.Errorf("expected a list of strings")
	}
	for _, item := range items {
		if _, ok := item.(string); !ok {
			return fmt.Errorf("expected a list of strings")
		}
	}
	return nil
}

func checkEnum(allowed []string) func(any) error {
	set := make(map[string]struct{}, len(allowed))
	for _, a := range allowed {
		set[a] = struct{}{}
	}
	return func(v any) error {
		if _, ok := set[fmt.Sprint(v)]; !ok {
			return fmt.Errorf("value not in %v", allowed)
		}
		return nil
	}
}
