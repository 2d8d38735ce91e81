// Package hydrate moves data between domain structs and the raw value bags a
// graph store returns. Populate fills a fresh (or existing) entity from a
// bag; Dehydrate extracts the bag an entity would persist as. The identity
// field is never part of the bag, it travels through the statement layer.
//
// The mapper does not interpret field contents beyond scalar coercion; what
// the store hands back is what lands in the struct, and a value that cannot
// be coerced is always an error, never silently dropped.
package hydrate

import (
	"fmt"
	"reflect"
	"time"

	"github.com/graphom/graphom/metadata"
)

// Mapper is a reflection-based hydrator/dehydrator driven by class metadata.
type Mapper struct{}

// NewMapper creates a Mapper.
func NewMapper() *Mapper {
	return &Mapper{}
}

// Populate assigns every mapped property present in the bag onto the entity.
// Properties absent from the bag leave the field untouched; a present
// property that cannot be coerced into the field type is an error.
func (m *Mapper) Populate(md *metadata.Metadata, entity interface{}, bag map[string]interface{}) error {
	v := reflect.ValueOf(entity)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return fmt.Errorf("entity must be a non-nil pointer, got %T", entity)
	}
	v = v.Elem()
	if v.Type() != md.Type() {
		return fmt.Errorf("entity type mismatch: want *%s, got %T", md.Type().Name(), entity)
	}

	for _, f := range md.Fields() {
		raw, ok := bag[f.Name]
		if !ok || raw == nil {
			continue
		}
		field := v.Field(f.Index)
		if err := assign(field, raw); err != nil {
			return fmt.Errorf("failed to hydrate %s.%s: %w", md.Label, f.Name, err)
		}
	}
	return nil
}

// Dehydrate extracts the entity's mapped properties as a bag. Zero-valued
// fields are included; the store, not the mapper, decides what a write
// touches.
func (m *Mapper) Dehydrate(md *metadata.Metadata, entity interface{}) (map[string]interface{}, error) {
	v := reflect.ValueOf(entity)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return nil, fmt.Errorf("entity must be a non-nil pointer, got %T", entity)
	}
	v = v.Elem()
	if v.Type() != md.Type() {
		return nil, fmt.Errorf("entity type mismatch: want *%s, got %T", md.Type().Name(), entity)
	}

	bag := make(map[string]interface{}, len(md.Fields()))
	for _, f := range md.Fields() {
		bag[f.Name] = v.Field(f.Index).Interface()
	}
	return bag, nil
}

func assign(field reflect.Value, raw interface{}) error {
	rv := reflect.ValueOf(raw)
	ft := field.Type()

	if rv.Type().AssignableTo(ft) {
		field.Set(rv)
		return nil
	}

	switch ft.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if n, ok := asInt64(raw); ok {
			field.SetInt(n)
			return nil
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if n, ok := asInt64(raw); ok && n >= 0 {
			field.SetUint(uint64(n))
			return nil
		}
	case reflect.Float32, reflect.Float64:
		switch n := raw.(type) {
		case float64:
			field.SetFloat(n)
			return nil
		case int64:
			field.SetFloat(float64(n))
			return nil
		}
	case reflect.String:
		if s, ok := raw.(string); ok {
			field.SetString(s)
			return nil
		}
	case reflect.Bool:
		if b, ok := raw.(bool); ok {
			field.SetBool(b)
			return nil
		}
	case reflect.Slice:
		if items, ok := raw.([]interface{}); ok {
			out := reflect.MakeSlice(ft, len(items), len(items))
			for i, item := range items {
				if err := assign(out.Index(i), item); err != nil {
					return err
				}
			}
			field.Set(out)
			return nil
		}
	case reflect.Struct:
		if ft == reflect.TypeOf(time.Time{}) {
			if ts, ok := raw.(time.Time); ok {
				field.Set(reflect.ValueOf(ts))
				return nil
			}
		}
	}

	return fmt.Errorf("cannot coerce %T into %s", raw, ft)
}

func asInt64(raw interface{}) (int64, bool) {
	switch n := raw.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case float64:
		if n == float64(int64(n)) {
			return int64(n), true
		}
	}
	return 0, false
}
