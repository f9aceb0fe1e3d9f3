package forms

import (
	"testing"

	"github.com/medrec/medrec/internal/platform/apperr"
)

func structureWith(fields ...Field) Structure {
	return Structure{Sections: []Section{{Fields: fields}}}
}

func expectValid(t *testing.T, v *Validator, answers map[string]any) {
	t.Helper()
	if err := v.Validate(answers); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func expectInvalid(t *testing.T, v *Validator, answers map[string]any) {
	t.Helper()
	err := v.Validate(answers)
	if !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestInputFields(t *testing.T) {
	t.Run("text", func(t *testing.T) {
		v := StructureToValidator(structureWith(Field{Type: "Input", Name: "notes", Required: true}))
		expectValid(t, v, map[string]any{"notes": "RAS"})
		expectInvalid(t, v, map[string]any{"notes": 42})
		expectInvalid(t, v, map[string]any{})
	})

	t.Run("number", func(t *testing.T) {
		v := StructureToValidator(structureWith(Field{Type: "Input", Name: "weight", InputType: "number", Required: true}))
		expectValid(t, v, map[string]any{"weight": float64(72)})
		expectValid(t, v, map[string]any{"weight": "72.5"})
		expectInvalid(t, v, map[string]any{"weight": "heavy"})
		expectInvalid(t, v, map[string]any{"weight": ""})
	})

	t.Run("date", func(t *testing.T) {
		v := StructureToValidator(structureWith(Field{Type: "Input", Name: "last_visit", InputType: "date", Required: true}))
		expectValid(t, v, map[string]any{"last_visit": "2024-03-01"})
		expectInvalid(t, v, map[string]any{"last_visit": "01/03/2024"})
		expectInvalid(t, v, map[string]any{"last_visit": ""})
	})

	t.Run("optional empty is fine", func(t *testing.T) {
		v := StructureToValidator(structureWith(Field{Type: "Input", Name: "notes"}))
		expectValid(t, v, map[string]any{})
		expectValid(t, v, map[string]any{"notes": ""})
	})
}

func TestChoiceFields(t *testing.T) {
	t.Run("checkbox", func(t *testing.T) {
		v := StructureToValidator(structureWith(Field{Type: "Checkbox", Name: "fasting", Required: true}))
		expectValid(t, v, map[string]any{"fasting": true})
		expectInvalid(t, v, map[string]any{"fasting": "yes"})
	})

	t.Run("radio with string options", func(t *testing.T) {
		v := StructureToValidator(structureWith(Field{
			Type: "Radio", Name: "asa", Required: true,
			Options: []Option{{Value: "1"}, {Value: "2"}, {Value: "3"}},
		}))
		expectValid(t, v, map[string]any{"asa": "2"})
		expectInvalid(t, v, map[string]any{"asa": "5"})
	})

	t.Run("radio with boolean options coerces strings", func(t *testing.T) {
		v := StructureToValidator(structureWith(Field{
			Type: "Radio", Name: "smoker", Required: true,
			Options: []Option{{Value: true}, {Value: false}},
		}))
		expectValid(t, v, map[string]any{"smoker": true})
		expectValid(t, v, map[string]any{"smoker": "false"})
		expectInvalid(t, v, map[string]any{"smoker": "maybe"})
	})

	t.Run("checkbox group", func(t *testing.T) {
		v := StructureToValidator(structureWith(Field{Type: "CheckboxGroup", Name: "allergies", Required: true}))
		expectValid(t, v, map[string]any{"allergies": []any{"latex", "pénicilline"}})
		expectInvalid(t, v, map[string]any{"allergies": []any{"latex", 3}})
		expectInvalid(t, v, map[string]any{"allergies": "latex"})
	})

	t.Run("select", func(t *testing.T) {
		v := StructureToValidator(structureWith(Field{
			Type: "Select", Name: "anesthesia", Required: true,
			Options: []Option{{Value: "general"}, {Value: "local"}},
		}))
		expectValid(t, v, map[string]any{"anesthesia": "local"})
		expectInvalid(t, v, map[string]any{"anesthesia": "hypnosis"})
	})

	t.Run("range with steps", func(t *testing.T) {
		v := StructureToValidator(structureWith(Field{
			Type: "Range", Name: "pain", Required: true,
			Steps: []string{"0", "1", "2", "3"},
		}))
		expectValid(t, v, map[string]any{"pain": "2"})
		expectInvalid(t, v, map[string]any{"pain": "9"})
	})
}

func TestRevealFields(t *testing.T) {
	structure := structureWith(Field{
		Type: "RevealRadio", Name: "diabetic", Required: true,
		Options: []Option{
			{Value: "yes", Fields: []Field{
				{Type: "Input", Name: "diabetes_type", Required: true},
			}},
			{Value: "no"},
		},
	})
	v := StructureToValidator(structure)

	t.Run("nested fields lose requiredness", func(t *testing.T) {
		expectValid(t, v, map[string]any{"diabetic": "no"})
	})

	t.Run("nested fields still type-checked when present", func(t *testing.T) {
		expectValid(t, v, map[string]any{"diabetic": "yes", "diabetes_type": "type 2"})
		expectInvalid(t, v, map[string]any{"diabetic": "yes", "diabetes_type": 2})
	})

	t.Run("parent value still constrained", func(t *testing.T) {
		expectInvalid(t, v, map[string]any{"diabetic": "perhaps"})
	})

	t.Run("reveal without options is a boolean", func(t *testing.T) {
		v := StructureToValidator(structureWith(Field{Type: "RevealCheckBox", Name: "pregnant", Required: true}))
		expectValid(t, v, map[string]any{"pregnant": true})
		expectInvalid(t, v, map[string]any{"pregnant": "yes"})
	})
}

func TestUnknownFieldTypesAndKeys(t *testing.T) {
	v := StructureToValidator(structureWith(Field{Type: "TeethSelector", Name: "teeth", Required: true}))

	t.Run("freeform component accepts anything", func(t *testing.T) {
		expectValid(t, v, map[string]any{"teeth": map[string]any{"18": "missing"}})
	})

	t.Run("unknown answer keys are ignored", func(t *testing.T) {
		expectValid(t, v, map[string]any{"teeth": "x", "stray": 1})
	})
}
