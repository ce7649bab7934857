package goprojection

import "reflect"

// Projection is an immutable projection definition over documents of type
// T. Values are built with a Builder and consumed by Render; the zero value
// renders to an empty document.
type Projection[T any] struct {
	n node[T]
}

// Kind names the operator at the root of p ("combined" for the zero value).
func (p Projection[T]) Kind() string {
	if p.n == nil {
		return kindCombined
	}
	return p.n.kind()
}

// Render renders p against the serializer of T and the registry.
func (p Projection[T]) Render(src Serializer, reg Registry) (Document, error) {
	return Render(p, src, reg)
}

// Include returns Combine(p, Include(field)).
func (p Projection[T]) Include(field Field[T]) Projection[T] {
	var b Builder[T]
	return b.Combine(p, b.Include(field))
}

// Exclude returns Combine(p, Exclude(field)).
func (p Projection[T]) Exclude(field Field[T]) Projection[T] {
	var b Builder[T]
	return b.Combine(p, b.Exclude(field))
}

// MetaTextScore returns Combine(p, MetaTextScore(name)).
func (p Projection[T]) MetaTextScore(name string) Projection[T] {
	var b Builder[T]
	return b.Combine(p, b.MetaTextScore(name))
}

// Slice returns Combine(p, Slice(field, skip)).
func (p Projection[T]) Slice(field Field[T], skip int) Projection[T] {
	var b Builder[T]
	return b.Combine(p, b.Slice(field, skip))
}

// SliceLimit returns Combine(p, SliceLimit(field, skip, limit)).
func (p Projection[T]) SliceLimit(field Field[T], skip, limit int) Projection[T] {
	var b Builder[T]
	return b.Combine(p, b.SliceLimit(field, skip, limit))
}

// Positional returns Combine(p, Positional(field)).
func (p Projection[T]) Positional(field Field[T]) Projection[T] {
	var b Builder[T]
	return b.Combine(p, b.Positional(field))
}

// ElemMatch returns Combine(p, ElemMatch(field, filter)).
func (p Projection[T]) ElemMatch(field Field[T], filter Filter) Projection[T] {
	var b Builder[T]
	return b.Combine(p, b.ElemMatch(field, filter))
}

// AndElemMatch returns Combine(p, ElemMatchOf(field, filter)).
func AndElemMatch[T, E any](p Projection[T], field ArrayField[T, E], filter Filter) Projection[T] {
	var b Builder[T]
	return b.Combine(p, ElemMatchOf(field, filter))
}

// Filter is a filter over array items, rendered against the item
// serializer.
type Filter interface {
	RenderFilter(item Serializer, reg Registry) (Document, error)
}

// FilterFunc adapts a function to Filter.
type FilterFunc func(item Serializer, reg Registry) (Document, error)

// RenderFilter calls f.
func (f FilterFunc) RenderFilter(item Serializer, reg Registry) (Document, error) {
	return f(item, reg)
}

const (
	kindInclude       = "include"
	kindExclude       = "exclude"
	kindMetaTextScore = "meta_text_score"
	kindSlice         = "slice"
	kindPositional    = "positional"
	kindElemMatch     = "elem_match"
	kindCombined      = "combined"
)

// node is the closed set of projection operators. Render switches over the
// concrete types below; adding a variant means adding a case there.
type node[T any] interface {
	kind() string
}

type includeNode[T any] struct {
	field Field[T]
}

type excludeNode[T any] struct {
	field Field[T]
}

// metaTextScoreNode names an output field; it never refers to a source field.
type metaTextScoreNode[T any] struct {
	name string
}

type sliceNode[T any] struct {
	field    Field[T]
	skip     int
	limit    int
	hasLimit bool
}

type positionalNode[T any] struct {
	field Field[T]
}

type elemMatchNode[T any] struct {
	field  Field[T]
	filter Filter
	// declared is the field's static type when known (a slice type), used
	// when the path itself carries no metadata.
	declared reflect.Type
}

type combinedNode[T any] struct {
	children []Projection[T]
}

func (includeNode[T]) kind() string       { return kindInclude }
func (excludeNode[T]) kind() string       { return kindExclude }
func (metaTextScoreNode[T]) kind() string { return kindMetaTextScore }
func (sliceNode[T]) kind() string         { return kindSlice }
func (positionalNode[T]) kind() string    { return kindPositional }
func (elemMatchNode[T]) kind() string     { return kindElemMatch }
func (combinedNode[T]) kind() string      { return kindCombined }
