package goprojection

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Field identifies a field of documents of type T, either by a literal
// dotted path or by a typed selector. A Field carries no resolved path:
// Resolve maps it to a document path against the serializer it is rendered
// with, every time.
type Field[T any] struct {
	path    string
	members func() ([]string, error)
}

// ResolvedField is the outcome of resolving a Field. Serializer is nil when
// the path was taken verbatim and no metadata describes it.
type ResolvedField struct {
	Path       string
	Serializer Serializer
}

// Path builds a Field from a literal dotted path. The path is rendered
// verbatim, which makes it usable for fields no serializer describes.
func Path[T any](path string) Field[T] {
	return Field[T]{path: path}
}

// FieldOf builds a Field for a (possibly nested) struct member of T.
// The selector must return the address of the member, e.g.:
//
//	FieldOf(func(o *Order) *string { return &o.Customer.Name })
//
// The selector is not evaluated here. Render walks it and fails with
// CodeFieldNotResolvable when it does not address exactly one member.
// Pointer-to-struct members are descended, except a pointer back to a type
// already on the path (recursive types).
func FieldOf[T, F any](selector func(*T) *F) Field[T] {
	return Field[T]{
		members: func() ([]string, error) { return memberChain(selector) },
	}
}

// IsTyped reports whether f was built from a selector.
func (f Field[T]) IsTyped() bool { return f.members != nil }

// String returns the literal path, or a placeholder for typed fields.
func (f Field[T]) String() string {
	if f.members != nil {
		return "<" + typeName[T]() + " selector>"
	}
	return f.path
}

// Resolve maps f to its document path and field serializer.
func (f Field[T]) Resolve(src Serializer, reg Registry) (ResolvedField, error) {
	if f.members == nil {
		return resolvePath(f.path, src, reg)
	}
	names, err := f.members()
	if err != nil {
		return ResolvedField{}, err
	}
	return resolveMembers(names, src, reg)
}

// ArrayField is a Field whose declared type is a slice of E.
type ArrayField[T, E any] struct {
	Field[T]
}

// ArrayOf builds an ArrayField from a selector returning a slice member.
func ArrayOf[T, E any](selector func(*T) *[]E) ArrayField[T, E] {
	return ArrayField[T, E]{Field: FieldOf(selector)}
}

// ArrayPath builds an ArrayField from a literal path. Whether the field
// really holds an array is only known once it is rendered.
func ArrayPath[T, E any](path string) ArrayField[T, E] {
	return ArrayField[T, E]{Field: Path[T](path)}
}

func (f ArrayField[T, E]) declaredType() reflect.Type { return reflect.TypeFor[[]E]() }

func resolvePath(path string, src Serializer, reg Registry) (ResolvedField, error) {
	if path == "" {
		return ResolvedField{}, fieldNotResolvable("", `""`, serializerTypeName(src), "empty field path")
	}
	return ResolvedField{Path: path, Serializer: lookupPath(path, src, reg)}, nil
}

// lookupPath walks path through element metadata. It never fails: a segment
// nothing describes ends the walk with a nil serializer.
func lookupPath(path string, src Serializer, reg Registry) Serializer {
	cur := src
	for _, seg := range strings.Split(path, ".") {
		if cur == nil {
			return nil
		}
		if arr, ok := cur.(ArraySerializer); ok && isArrayStep(seg) {
			cur = arr.ItemSerializer()
			continue
		}
		el, ok := cur.(ElementLookup)
		if !ok {
			return nil
		}
		info, ok := el.Element(seg)
		if !ok {
			return nil
		}
		next, err := memberSerializer(info, reg)
		if err != nil {
			return nil
		}
		cur = next
	}
	return cur
}

func isArrayStep(seg string) bool {
	if seg == "$" || seg == "$[]" {
		return true
	}
	_, err := strconv.Atoi(seg)
	return err == nil
}

func resolveMembers(names []string, src Serializer, reg Registry) (ResolvedField, error) {
	cur := src
	parts := make([]string, 0, len(names))
	for _, name := range names {
		prefix := strings.Join(parts, ".")
		ds, ok := cur.(DocumentSerializer)
		if !ok {
			return ResolvedField{}, fieldNotResolvable(prefix, name, serializerTypeName(cur),
				"serializer does not support member lookup")
		}
		info, ok := ds.Member(name)
		if !ok {
			return ResolvedField{}, fieldNotResolvable(prefix, name, serializerTypeName(cur), "unknown member")
		}
		next, err := memberSerializer(info, reg)
		if err != nil {
			return ResolvedField{}, fmt.Errorf("serializer for member %s: %w", name, err)
		}
		parts = append(parts, info.ElementName)
		cur = next
	}
	return ResolvedField{Path: strings.Join(parts, "."), Serializer: cur}, nil
}

// memberChain evaluates selector against a zero T and reports the Go member
// names leading to the address it returns. Nil pointer-to-struct members of
// the zero value are allocated first so selectors may step through them.
func memberChain[T, F any](selector func(*T) *F) (names []string, err error) {
	if selector == nil {
		return nil, fieldNotResolvable("", "<nil>", typeName[T](), "selector must not be nil")
	}
	defer func() {
		if r := recover(); r != nil {
			names = nil
			err = fieldNotResolvable("", "<selector>", typeName[T](), fmt.Sprintf("selector panicked: %v", r))
		}
	}()
	var zero T
	root := reflect.ValueOf(&zero).Elem()
	allocPointers(root, map[reflect.Type]bool{}, 0)
	p := selector(&zero)
	if p == nil {
		return nil, fieldNotResolvable("", "<selector>", typeName[T](), "selector returned nil")
	}
	target := reflect.ValueOf(p).Pointer()
	matches := findMembers(root, target, reflect.TypeFor[F](), nil, nil, 0)
	switch len(matches) {
	case 0:
		return nil, fieldNotResolvable("", "<selector>", typeName[T](),
			"selector must return the address of a struct member")
	case 1:
		return matches[0], nil
	default:
		return nil, fieldNotResolvable("", "<selector>", typeName[T](), fmt.Sprintf(
			"selector address is shared by members %s and %s",
			strings.Join(matches[0], "."), strings.Join(matches[1], ".")))
	}
}

const _maxPathDepth = 32

// allocPointers fills nil pointer-to-struct members of v. Types already on
// the current path stay nil, so recursive types terminate.
func allocPointers(v reflect.Value, onPath map[reflect.Type]bool, depth int) {
	if depth > _maxPathDepth || v.Kind() != reflect.Struct {
		return
	}
	t := v.Type()
	onPath[t] = true
	defer delete(onPath, t)
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		fv := v.Field(i)
		switch {
		case fv.Kind() == reflect.Struct:
			allocPointers(fv, onPath, depth+1)
		case fv.Kind() == reflect.Pointer && sf.Type.Elem().Kind() == reflect.Struct:
			if onPath[sf.Type.Elem()] || !fv.CanSet() {
				continue
			}
			if fv.IsNil() {
				fv.Set(reflect.New(sf.Type.Elem()))
			}
			allocPointers(fv.Elem(), onPath, depth+1)
		}
	}
}

// findMembers returns every member chain whose address and type match. A
// struct and its first member share an address, so the type is part of the
// match; zero-size members may still collide and yield several chains.
func findMembers(v reflect.Value, target uintptr, want reflect.Type, prefix []string, out [][]string, depth int) [][]string {
	if depth > _maxPathDepth || v.Kind() != reflect.Struct {
		return out
	}
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		fv := v.Field(i)
		if !fv.CanAddr() {
			continue
		}
		chain := append(append([]string{}, prefix...), sf.Name)
		if fv.Addr().Pointer() == target && sf.Type == want {
			out = append(out, chain)
		}
		switch {
		case fv.Kind() == reflect.Struct:
			out = findMembers(fv, target, want, chain, out, depth+1)
		case fv.Kind() == reflect.Pointer && !fv.IsNil() && fv.Elem().Kind() == reflect.Struct:
			out = findMembers(fv.Elem(), target, want, chain, out, depth+1)
		}
	}
	return out
}

func typeName[T any]() string { return reflect.TypeFor[T]().String() }

func serializerTypeName(s Serializer) string {
	if s == nil || s.ValueType() == nil {
		return "<unknown>"
	}
	return s.ValueType().String()
}
