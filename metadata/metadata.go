// Package metadata describes how a mapped Go struct projects onto a graph
// node: its label, the identifier used for it in generated statements, the
// field carrying the store-assigned identity, and the property fields.
//
// Mapping is declared with `graph:` struct tags:
//
//	type Person struct {
//		ID   *int64 `graph:"id"`      // store-assigned identity, nil until first insert
//		Name string `graph:"name"`    // explicit property name
//		Age  int    // untagged exported fields map to snake_case ("age")
//		Temp string `graph:"-"`       // excluded from mapping
//	}
//
// The identity field is a *int64 because store identities are zero-based:
// a nil pointer is the only unambiguous "never persisted" marker.
//
// Descriptors are built once at registration and are read-only afterwards;
// the Registry caches them for the process lifetime.
package metadata

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
)

const tagKey = "graph"

// Field maps one struct field onto a node property.
type Field struct {
	// Name is the property name in the store.
	Name string

	// Index is the field's index within the struct.
	Index int
}

// Metadata is the per-class descriptor consumed by the repository core and
// the statement builder. Instances are immutable after construction.
type Metadata struct {
	// Label is the node label in the store.
	Label string

	// NodeIdentifier is the identifier the builder uses for this class in
	// generated statements; result columns follow the
	// <NodeIdentifier>_value / <NodeIdentifier>_id convention.
	NodeIdentifier string

	typ     reflect.Type
	fields  []Field
	idIndex int
}

// Type returns the mapped struct type.
func (m *Metadata) Type() reflect.Type { return m.typ }

// ValueColumn is the result column carrying the raw value bag for hydration.
func (m *Metadata) ValueColumn() string { return m.NodeIdentifier + "_value" }

// IDColumn is the result column carrying a newly assigned identity.
func (m *Metadata) IDColumn() string { return m.NodeIdentifier + "_id" }

// CountColumn is the result column carrying a scalar count.
func (m *Metadata) CountColumn() string { return m.NodeIdentifier + "_count" }

// DeletedColumn is the result column carrying the deleted-records counter.
func (m *Metadata) DeletedColumn() string { return m.NodeIdentifier + "_deleted" }

// Fields returns the mapped property fields, identity excluded.
func (m *Metadata) Fields() []Field { return m.fields }

// HasIdentity reports whether the class declares an identity field.
func (m *Metadata) HasIdentity() bool { return m.idIndex >= 0 }

// IDValue reads the entity's identity. The second return is false while the
// identity is unset, i.e. before the first successful insert.
func (m *Metadata) IDValue(entity interface{}) (int64, bool) {
	v, err := m.structValue(entity)
	if err != nil || m.idIndex < 0 {
		return 0, false
	}
	f := v.Field(m.idIndex)
	if f.IsNil() {
		return 0, false
	}
	return f.Elem().Int(), true
}

// SetIDValue assigns the store-assigned identity onto the entity.
func (m *Metadata) SetIDValue(entity interface{}, id int64) error {
	v, err := m.structValue(entity)
	if err != nil {
		return err
	}
	if m.idIndex < 0 {
		return fmt.Errorf("%s has no identity field", m.Label)
	}
	v.Field(m.idIndex).Set(reflect.ValueOf(&id))
	return nil
}

func (m *Metadata) structValue(entity interface{}) (reflect.Value, error) {
	v := reflect.ValueOf(entity)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return reflect.Value{}, fmt.Errorf("entity must be a non-nil *%s, got %T", m.typ.Name(), entity)
	}
	v = v.Elem()
	if v.Type() != m.typ {
		return reflect.Value{}, fmt.Errorf("entity type mismatch: want *%s, got %T", m.typ.Name(), entity)
	}
	return v, nil
}

func describe(t reflect.Type) (*Metadata, error) {
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("mapped class must be a struct, got %s", t.Kind())
	}

	md := &Metadata{
		Label:   t.Name(),
		typ:     t,
		idIndex: -1,
	}

	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}

		tag := f.Tag.Get(tagKey)
		switch tag {
		case "-":
			continue
		case "id":
			if f.Type.Kind() != reflect.Ptr || f.Type.Elem().Kind() != reflect.Int64 {
				return nil, fmt.Errorf("%s.%s: identity field must be *int64, got %s", t.Name(), f.Name, f.Type)
			}
			if md.idIndex >= 0 {
				return nil, fmt.Errorf("%s declares more than one identity field", t.Name())
			}
			md.idIndex = i
			continue
		}

		name := tag
		if name == "" {
			name = snakeCase(f.Name)
		}
		md.fields = append(md.fields, Field{Name: name, Index: i})
	}

	md.NodeIdentifier = identifierFor(md.Label)
	return md, nil
}

// identifierFor derives the statement identifier from the label, e.g.
// "Person" -> "person". Each statement involves a single class, so the
// identifier only has to be stable, not unique across classes.
func identifierFor(label string) string {
	return strings.ToLower(label)
}

func snakeCase(name string) string {
	var b strings.Builder
	for i, r := range name {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r - 'A' + 'a')
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Registry resolves mapped types to their descriptors. Registration is
// explicit; lookups of unregistered types fail rather than mapping
// implicitly.
type Registry struct {
	mu      sync.RWMutex
	byType  map[reflect.Type]*Metadata
	byLabel map[string]*Metadata
}

// NewRegistry creates an empty metadata registry.
func NewRegistry() *Registry {
	return &Registry{
		byType:  make(map[reflect.Type]*Metadata),
		byLabel: make(map[string]*Metadata),
	}
}

// Register maps the prototype's struct type and returns its descriptor.
// Registering the same type twice returns the cached descriptor.
func (r *Registry) Register(prototype interface{}) (*Metadata, error) {
	t := reflect.TypeOf(prototype)
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t == nil {
		return nil, fmt.Errorf("cannot register nil prototype")
	}

	r.mu.RLock()
	if md, ok := r.byType[t]; ok {
		r.mu.RUnlock()
		return md, nil
	}
	r.mu.RUnlock()

	md, err := describe(t)
	if err != nil {
		return nil, fmt.Errorf("failed to register %s: %w", t.Name(), err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.byType[t]; ok {
		return existing, nil
	}
	if other, ok := r.byLabel[md.Label]; ok && other.typ != t {
		return nil, fmt.Errorf("label %q already registered for %s", md.Label, other.typ.Name())
	}
	r.byType[t] = md
	r.byLabel[md.Label] = md
	return md, nil
}

// Lookup returns the descriptor for a previously registered type.
func (r *Registry) Lookup(t reflect.Type) (*Metadata, error) {
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	md, ok := r.byType[t]
	if !ok {
		return nil, fmt.Errorf("type %s is not registered", t)
	}
	return md, nil
}
