package goprojection

import (
	"errors"
	"reflect"
	"sync"
)

// StructRegistry derives serializers from Go types by reflection.
//
//   - structs describe their exported members; element names follow
//     ResolveElementName and members tagged "-" are hidden
//   - slices and arrays describe their elements
//   - maps and interfaces are untyped documents without member metadata
//   - everything else is a scalar
//
// Pointers are dereferenced. Serializers are cached per type, so a
// StructRegistry is safe for concurrent use.
type StructRegistry struct {
	cache sync.Map // reflect.Type -> Serializer
}

// NewStructRegistry returns an empty StructRegistry.
func NewStructRegistry() *StructRegistry { return &StructRegistry{} }

// SerializerFor returns the serializer for t.
func (r *StructRegistry) SerializerFor(t reflect.Type) (Serializer, error) {
	if t == nil {
		return nil, errors.New("goprojection: serializer for nil type")
	}
	if s, ok := r.cache.Load(t); ok {
		return s.(Serializer), nil
	}
	s := r.build(t)
	actual, _ := r.cache.LoadOrStore(t, s)
	return actual.(Serializer), nil
}

func (r *StructRegistry) build(t reflect.Type) Serializer {
	base := t
	for base.Kind() == reflect.Pointer {
		base = base.Elem()
	}
	switch base.Kind() {
	case reflect.Struct:
		return newStructSerializer(t, base)
	case reflect.Slice, reflect.Array:
		if base.Elem().Kind() == reflect.Uint8 {
			// []byte is binary data, not an array
			return scalarSerializer{typ: t}
		}
		return &sliceSerializer{typ: t, elem: base.Elem(), reg: r}
	case reflect.Map, reflect.Interface:
		return untypedSerializer{typ: t}
	default:
		return scalarSerializer{typ: t}
	}
}

type structSerializer struct {
	typ      reflect.Type
	members  map[string]MemberInfo // by Go field name
	elements map[string]MemberInfo // by element name
}

func newStructSerializer(t, base reflect.Type) *structSerializer {
	s := &structSerializer{
		typ:      t,
		members:  map[string]MemberInfo{},
		elements: map[string]MemberInfo{},
	}
	for i := 0; i < base.NumField(); i++ {
		sf := base.Field(i)
		if !sf.IsExported() {
			continue
		}
		name := ResolveElementName(sf)
		if name == "" || name == "-" {
			continue
		}
		// member serializers are looked up lazily so recursive types work
		info := MemberInfo{ElementName: name, Type: sf.Type}
		s.members[sf.Name] = info
		s.elements[name] = info
	}
	return s
}

func (s *structSerializer) ValueType() reflect.Type { return s.typ }

func (s *structSerializer) Member(name string) (MemberInfo, bool) {
	info, ok := s.members[name]
	return info, ok
}

func (s *structSerializer) Element(name string) (MemberInfo, bool) {
	info, ok := s.elements[name]
	return info, ok
}

type sliceSerializer struct {
	typ  reflect.Type
	elem reflect.Type
	reg  Registry

	once sync.Once
	item Serializer
}

func (s *sliceSerializer) ValueType() reflect.Type { return s.typ }

func (s *sliceSerializer) ItemSerializer() Serializer {
	s.once.Do(func() {
		// StructRegistry only fails for a nil type
		s.item, _ = s.reg.SerializerFor(s.elem)
	})
	return s.item
}

type untypedSerializer struct{ typ reflect.Type }

func (s untypedSerializer) ValueType() reflect.Type { return s.typ }

type scalarSerializer struct{ typ reflect.Type }

func (s scalarSerializer) ValueType() reflect.Type { return s.typ }
