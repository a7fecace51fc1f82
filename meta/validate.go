package meta

import (
	"fmt"
	"reflect"
)

// ValidateRequired checks if all required fields of the entity are filled
// and returns an error if not
func (s Struct) ValidateRequired(entity any) error {
	v := reflect.ValueOf(entity)
	if v.Type() != s.Type {
		panicf("expected struct type %v", s.Type)
	}
	for _, field := range s.Fields {
		if !field.Required {
			continue
		}
		if v.FieldByIndex(field.Index).IsZero() {
			return fmt.Errorf("%s validation failed: missing required field %s", s, field)
		}
	}
	return nil
}

// ValidateConst checks that no const field differs between the stored
// version of an entity and its replacement
func (s Struct) ValidateConst(before, after any) error {
	v1 := reflect.ValueOf(before)
	v2 := reflect.ValueOf(after)
	if v1.Type() != s.Type || v2.Type() != s.Type {
		panicf("expected struct type %v", s.Type)
	}
	for _, field := range s.Fields {
		if !field.Const {
			continue
		}
		if !reflect.DeepEqual(v1.FieldByIndex(field.Index).Interface(), v2.FieldByIndex(field.Index).Interface()) {
			return fmt.Errorf("%s validation failed: const field %s modified", s, field)
		}
	}
	return nil
}
