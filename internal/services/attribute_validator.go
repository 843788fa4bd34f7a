package services

import (
	"fmt"
	"math"
	"strings"

	"catalog_backend/internal/models"
)

// The attribute schema validator converts the raw attribute map of one variant
// into validated, typed rows. All type dispatch lives here: TEXT, NUMBER,
// SELECT and MULTI_SELECT each produce exactly one populated field of the
// resulting VariantAttributeValue, and a required definition with no usable
// value fails the whole mutation.

// ValidateVariantAttributes checks the supplied attributes against the
// organization's definitions and returns the row set to persist. Attributes
// without a matching definition are ignored.
func ValidateVariantAttributes(definitions []models.AttributeDefinition, attributes map[string]interface{}) ([]models.VariantAttributeValue, error) {
	values := make([]models.VariantAttributeValue, 0, len(definitions))
	for _, definition := range definitions {
		raw, supplied := attributes[definition.AttrKey]
		value, ok, err := convertAttributeValue(definition, raw, supplied)
		if err != nil {
			return nil, err
		}
		if !ok {
			if definition.Required {
				return nil, fmt.Errorf("%w: attribute '%s'", ErrAttributeRequired, definition.AttrKey)
			}
			continue
		}
		values = append(values, value)
	}
	return values, nil
}

// convertAttributeValue is the single dispatch point from a raw value to a
// typed representation. ok=false means no usable value was supplied.
func convertAttributeValue(definition models.AttributeDefinition, raw interface{}, supplied bool) (models.VariantAttributeValue, bool, error) {
	value := models.VariantAttributeValue{
		AttrKey:  definition.AttrKey,
		AttrType: definition.AttrType,
	}
	if !supplied || raw == nil {
		return value, false, nil
	}

	switch definition.AttrType {
	case models.AttributeTypeText:
		text, ok := raw.(string)
		if !ok {
			return value, false, fmt.Errorf("%w: attribute '%s' expects text", ErrAttributeValueInvalid, definition.AttrKey)
		}
		text = strings.TrimSpace(text)
		if text == "" {
			return value, false, nil
		}
		value.TextValue = &text
		return value, true, nil

	case models.AttributeTypeNumber:
		number, ok := toFloat(raw)
		if !ok {
			return value, false, fmt.Errorf("%w: attribute '%s' expects a number", ErrAttributeNumberInvalid, definition.AttrKey)
		}
		if math.IsNaN(number) || math.IsInf(number, 0) {
			return value, false, fmt.Errorf("%w: attribute '%s' is not finite", ErrAttributeNumberInvalid, definition.AttrKey)
		}
		value.NumberValue = &number
		return value, true, nil

	case models.AttributeTypeSelect:
		selection, ok := raw.(string)
		if !ok {
			return value, false, fmt.Errorf("%w: attribute '%s' expects an option value", ErrAttributeValueInvalid, definition.AttrKey)
		}
		selection = strings.TrimSpace(selection)
		if selection == "" {
			return value, false, nil
		}
		if !optionAllowed(definition, selection) {
			return value, false, fmt.Errorf("%w: '%s' is not an option of attribute '%s'", ErrAttributeValueInvalid, selection, definition.AttrKey)
		}
		value.TextValue = &selection
		return value, true, nil

	case models.AttributeTypeMultiSelect:
		selections, err := toStringSlice(raw)
		if err != nil {
			return value, false, fmt.Errorf("%w: attribute '%s' expects a list of option values", ErrAttributeValueInvalid, definition.AttrKey)
		}
		deduped := make([]string, 0, len(selections))
		seen := make(map[string]bool, len(selections))
		for _, selection := range selections {
			selection = strings.TrimSpace(selection)
			if selection == "" || seen[selection] {
				continue
			}
			if !optionAllowed(definition, selection) {
				return value, false, fmt.Errorf("%w: '%s' is not an option of attribute '%s'", ErrAttributeValueInvalid, selection, definition.AttrKey)
			}
			seen[selection] = true
			deduped = append(deduped, selection)
		}
		if len(deduped) == 0 {
			return value, false, nil
		}
		value.Selections = deduped
		return value, true, nil

	default:
		return value, false, fmt.Errorf("%w: attribute '%s' has unknown type '%s'", ErrAttributeValueInvalid, definition.AttrKey, definition.AttrType)
	}
}

// optionAllowed accepts a value appearing in the option list of any locale.
func optionAllowed(definition models.AttributeDefinition, candidate string) bool {
	for _, option := range definition.Options {
		if option.Value == candidate {
			return true
		}
	}
	return false
}

func toFloat(raw interface{}) (float64, bool) {
	switch typed := raw.(type) {
	case float64:
		return typed, true
	case float32:
		return float64(typed), true
	case int:
		return float64(typed), true
	case int64:
		return float64(typed), true
	default:
		return 0, false
	}
}

func toStringSlice(raw interface{}) ([]string, error) {
	switch typed := raw.(type) {
	case []string:
		return typed, nil
	case []interface{}:
		out := make([]string, 0, len(typed))
		for _, item := range typed {
			text, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("non-string element in list")
			}
			out = append(out, text)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("not a list")
	}
}
