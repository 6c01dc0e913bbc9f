package transforms

import (
	"fmt"
	"reflect"
	"strings"
)

// TransformDefinition overwrites the Data fields of every value of Type whose Match
// fields all equal the given strings
type TransformDefinition struct {
	Type  string                 `yaml:"type"`
	Match map[string]string      `yaml:"match"`
	Data  map[string]interface{} `yaml:"data"`
}

func (t *TransformDefinition) validate(name string, inputType reflect.Type) error {
	for key := range t.Match {
		field, exists := inputType.FieldByName(key)
		if !exists || field.Type.Kind() != reflect.String {
			return fmt.Errorf("%s has no string field %s to match on", name, key)
		}
	}

	for key, value := range t.Data {
		field, exists := inputType.FieldByName(key)
		if !exists {
			return fmt.Errorf("%s has no field %s", name, key)
		}
		if value == nil {
			continue
		}

		valueType := reflect.TypeOf(value)
		isString := valueType.Kind() == reflect.String
		if isString != (field.Type.Kind() == reflect.String) || !valueType.ConvertibleTo(field.Type) {
			return fmt.Errorf("cannot set %s.%s (%s) to %v", name, key, field.Type, value)
		}
	}

	return nil
}

func (t *TransformDefinition) Transform(inputValue reflect.Value) bool {
	if !inputValue.IsValid() || inputValue.Kind() != reflect.Struct {
		return false
	}

	for key, value := range t.Match {
		field := inputValue.FieldByName(key)
		if !field.IsValid() || field.Kind() != reflect.String || field.String() != value {
			return false
		}
	}

	for key, value := range t.Data {
		field := inputValue.FieldByName(key)
		if !field.IsValid() || !field.CanSet() {
			continue
		}

		if value == nil {
			field.Set(reflect.Zero(field.Type()))
		} else {
			field.Set(reflect.ValueOf(value).Convert(field.Type()))
		}
	}

	return true
}

// Transform applies the loaded definitions to a pointer to a struct or to a slice of
// structs or struct pointers. It returns how many values were changed.
func Transform(input interface{}) int {
	inputValue := reflect.ValueOf(input)

	transformed := 0
	switch inputValue.Kind() {
	case reflect.Slice:
		for i := 0; i < inputValue.Len(); i++ {
			element := inputValue.Index(i)
			if element.Kind() == reflect.Pointer {
				element = element.Elem()
			}
			if transformValue(element) {
				transformed++
			}
		}
	case reflect.Pointer:
		if transformValue(inputValue.Elem()) {
			transformed++
		}
	}

	return transformed
}

func typeName(inputType reflect.Type) string {
	return strings.TrimPrefix(inputType.String(), "*")
}

func transformValue(inputValue reflect.Value) bool {
	if !inputValue.IsValid() {
		return false
	}

	inputTypeName := typeName(inputValue.Type())
	changed := false

	for _, transformDef := range transforms {
		if inputTypeName != transformDef.Type {
			continue
		}

		if transformDef.Transform(inputValue) {
			changed = true
		}
	}

	return changed
}
