package goprojection

// Builder creates projections over documents of type T. It holds no state:
// the zero value is ready to use and any two Builders are interchangeable.
type Builder[T any] struct{}

// Build returns a Builder for T.
func Build[T any]() Builder[T] { return Builder[T]{} }

// Combine merges projections left to right. When two of them render the
// same key the later one wins and the key moves to the end of the document.
// It always returns a combined projection, even for zero or one input.
func (Builder[T]) Combine(projections ...Projection[T]) Projection[T] {
	children := make([]Projection[T], len(projections))
	copy(children, projections)
	return Projection[T]{n: combinedNode[T]{children: children}}
}

// Include renders {path: 1}.
func (Builder[T]) Include(field Field[T]) Projection[T] {
	return Projection[T]{n: includeNode[T]{field: field}}
}

// Exclude renders {path: 0}.
func (Builder[T]) Exclude(field Field[T]) Projection[T] {
	return Projection[T]{n: excludeNode[T]{field: field}}
}

// MetaTextScore renders {name: {"$meta": "textScore"}}. name is the output
// field and is used verbatim.
func (Builder[T]) MetaTextScore(name string) Projection[T] {
	return Projection[T]{n: metaTextScoreNode[T]{name: name}}
}

// Slice renders {path: {"$slice": skip}}.
func (Builder[T]) Slice(field Field[T], skip int) Projection[T] {
	return Projection[T]{n: sliceNode[T]{field: field, skip: skip}}
}

// SliceLimit renders {path: {"$slice": [skip, limit]}}.
func (Builder[T]) SliceLimit(field Field[T], skip, limit int) Projection[T] {
	return Projection[T]{n: sliceNode[T]{field: field, skip: skip, limit: limit, hasLimit: true}}
}

// Positional renders {"path.$": 1}. The field is not checked for being an
// array.
func (Builder[T]) Positional(field Field[T]) Projection[T] {
	return Projection[T]{n: positionalNode[T]{field: field}}
}

// ElemMatch renders {path: {"$elemMatch": filter}}. The field's serializer
// must describe array elements; that is checked when rendering.
func (Builder[T]) ElemMatch(field Field[T], filter Filter) Projection[T] {
	return Projection[T]{n: elemMatchNode[T]{field: field, filter: filter}}
}

// ElemMatchOf is ElemMatch for fields declared as []E. When the path has no
// serializer metadata the registry's serializer for []E is used.
func ElemMatchOf[T, E any](field ArrayField[T, E], filter Filter) Projection[T] {
	return Projection[T]{n: elemMatchNode[T]{field: field.Field, filter: filter, declared: field.declaredType()}}
}
