package csvimport

import (
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FieldType represents the expected type of a field
type FieldType string

const (
	TypeString  FieldType = "string"
	TypeDecimal FieldType = "decimal"
	TypeUUID    FieldType = "uuid"
)

// FieldRule defines validation rules for a column
type FieldRule struct {
	Column     string
	Type       FieldType
	Required   bool
	MaxLength  int
	MinValue   *decimal.Decimal
	OneOf      []string
	CustomFunc func(value string) error
}

// FieldRuleBuilder helps build field rules fluently
type FieldRuleBuilder struct {
	rule FieldRule
}

// Field starts a string rule for column
func Field(column string) *FieldRuleBuilder {
	return &FieldRuleBuilder{rule: FieldRule{Column: column, Type: TypeString}}
}

// Required marks the field as required
func (b *FieldRuleBuilder) Required() *FieldRuleBuilder {
	b.rule.Required = true
	return b
}

// Decimal sets the field type to decimal
func (b *FieldRuleBuilder) Decimal() *FieldRuleBuilder {
	b.rule.Type = TypeDecimal
	return b
}

// UUID sets the field type to UUID
func (b *FieldRuleBuilder) UUID() *FieldRuleBuilder {
	b.rule.Type = TypeUUID
	return b
}

// MaxLength caps the value length in runes
func (b *FieldRuleBuilder) MaxLength(n int) *FieldRuleBuilder {
	b.rule.MaxLength = n
	return b
}

// MinValue sets the minimum numeric value
func (b *FieldRuleBuilder) MinValue(v decimal.Decimal) *FieldRuleBuilder {
	b.rule.MinValue = &v
	return b
}

// OneOf restricts the value to a fixed set, compared case-insensitively
func (b *FieldRuleBuilder) OneOf(values ...string) *FieldRuleBuilder {
	b.rule.OneOf = values
	return b
}

// Custom sets a custom validation function
func (b *FieldRuleBuilder) Custom(fn func(value string) error) *FieldRuleBuilder {
	b.rule.CustomFunc = fn
	return b
}

// Build returns the built field rule
func (b *FieldRuleBuilder) Build() FieldRule {
	return b.rule
}

// FieldValidator checks rows against a rule set and collects the failures
type FieldValidator struct {
	rules  []FieldRule
	errors *ErrorCollection
}

// NewFieldValidator creates a new field validator
func NewFieldValidator(rules []FieldRule, maxErrors int) *FieldValidator {
	return &FieldValidator{rules: rules, errors: NewErrorCollection(maxErrors)}
}

// RequiredColumns lists the columns a file must carry
func (v *FieldValidator) RequiredColumns() []string {
	var cols []string
	for _, r := range v.rules {
		if r.Required {
			cols = append(cols, r.Column)
		}
	}
	return cols
}

// ValidateRow reports whether every rule held for row
func (v *FieldValidator) ValidateRow(row *Row) bool {
	valid := true
	for _, rule := range v.rules {
		if !v.validateField(row, rule) {
			valid = false
		}
	}
	return valid
}

func (v *FieldValidator) validateField(row *Row, rule FieldRule) bool {
	value := row.Get(rule.Column)
	line := row.LineNumber
	if value == "" {
		if rule.Required {
			v.errors.add(line, rule.Column, ErrCodeImportRequiredField,
				fmt.Sprintf("field '%s' is required", rule.Column), "")
			return false
		}
		return true
	}

	switch rule.Type {
	case TypeDecimal:
		d, err := decimal.NewFromString(value)
		if err != nil {
			v.errors.add(line, rule.Column, ErrCodeImportInvalidType, "expected decimal", value)
			return false
		}
		if rule.MinValue != nil && d.LessThan(*rule.MinValue) {
			v.errors.add(line, rule.Column, ErrCodeImportInvalidRange,
				fmt.Sprintf("value must be at least %s", rule.MinValue.String()), value)
			return false
		}
	case TypeUUID:
		if _, err := uuid.Parse(value); err != nil {
			v.errors.add(line, rule.Column, ErrCodeImportInvalidType, "expected uuid", value)
			return false
		}
	}

	if rule.MaxLength > 0 && len([]rune(value)) > rule.MaxLength {
		v.errors.add(line, rule.Column, ErrCodeImportInvalidLength,
			fmt.Sprintf("length must be at most %d", rule.MaxLength), "")
		return false
	}
	if len(rule.OneOf) > 0 && !slices.Contains(rule.OneOf, strings.ToUpper(value)) {
		v.errors.add(line, rule.Column, ErrCodeImportInvalidValue,
			fmt.Sprintf("must be one of %s", strings.Join(rule.OneOf, ", ")), value)
		return false
	}
	if rule.CustomFunc != nil {
		if err := rule.CustomFunc(value); err != nil {
			v.errors.add(line, rule.Column, ErrCodeImportInvalidValue, err.Error(), value)
			return false
		}
	}
	return true
}

// Errors returns the error collection
func (v *FieldValidator) Errors() *ErrorCollection {
	return v.errors
}
