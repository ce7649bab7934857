// Package filter builds filters over array items for $elemMatch projections.
// Fields are resolved against the item serializer, so typed selectors over
// the item type E work the same way they do for projections.
package filter

import (
	"fmt"

	gp "github.com/reoring/goprojection"
)

// Definition is a filter over items of type E. The zero value renders to an
// empty document.
type Definition[E any] struct {
	render func(item gp.Serializer, reg gp.Registry) (gp.Document, error)
}

var _ gp.Filter = Definition[struct{}]{}

// RenderFilter renders d against the item serializer.
func (d Definition[E]) RenderFilter(item gp.Serializer, reg gp.Registry) (gp.Document, error) {
	if d.render == nil {
		return gp.Document{}, nil
	}
	return d.render(item, reg)
}

// Eq renders {path: v}.
func Eq[E any](field gp.Field[E], v any) Definition[E] {
	return fieldDef(field, func(path string) gp.Document {
		return gp.Document{{Key: path, Value: v}}
	})
}

// Ne renders {path: {"$ne": v}}.
func Ne[E any](field gp.Field[E], v any) Definition[E] { return operator(field, "$ne", v) }

// Gt renders {path: {"$gt": v}}.
func Gt[E any](field gp.Field[E], v any) Definition[E] { return operator(field, "$gt", v) }

// Gte renders {path: {"$gte": v}}.
func Gte[E any](field gp.Field[E], v any) Definition[E] { return operator(field, "$gte", v) }

// Lt renders {path: {"$lt": v}}.
func Lt[E any](field gp.Field[E], v any) Definition[E] { return operator(field, "$lt", v) }

// Lte renders {path: {"$lte": v}}.
func Lte[E any](field gp.Field[E], v any) Definition[E] { return operator(field, "$lte", v) }

// In renders {path: {"$in": [vs...]}}.
func In[E any](field gp.Field[E], vs ...any) Definition[E] {
	return operator(field, "$in", append([]any{}, vs...))
}

// Nin renders {path: {"$nin": [vs...]}}.
func Nin[E any](field gp.Field[E], vs ...any) Definition[E] {
	return operator(field, "$nin", append([]any{}, vs...))
}

// Exists renders {path: {"$exists": exists}}.
func Exists[E any](field gp.Field[E], exists bool) Definition[E] {
	return operator(field, "$exists", exists)
}

// Raw wraps an already rendered filter document.
func Raw[E any](doc gp.Document) Definition[E] {
	return Definition[E]{render: func(gp.Serializer, gp.Registry) (gp.Document, error) {
		return doc, nil
	}}
}

// And renders the conjunction of defs. Children are merged into one
// document when their keys are distinct; otherwise they are listed under
// "$and".
func And[E any](defs ...Definition[E]) Definition[E] {
	defs = append([]Definition[E]{}, defs...)
	return Definition[E]{render: func(item gp.Serializer, reg gp.Registry) (gp.Document, error) {
		docs, err := renderAll(defs, item, reg)
		if err != nil {
			return nil, err
		}
		merged := gp.Document{}
		seen := map[string]bool{}
		for _, d := range docs {
			for _, e := range d {
				if seen[e.Key] {
					return gp.Document{{Key: "$and", Value: docsToArray(docs)}}, nil
				}
				seen[e.Key] = true
				merged = merged.With(e.Key, e.Value)
			}
		}
		return merged, nil
	}}
}

// Or renders {"$or": [defs...]}.
func Or[E any](defs ...Definition[E]) Definition[E] {
	defs = append([]Definition[E]{}, defs...)
	return Definition[E]{render: func(item gp.Serializer, reg gp.Registry) (gp.Document, error) {
		docs, err := renderAll(defs, item, reg)
		if err != nil {
			return nil, err
		}
		return gp.Document{{Key: "$or", Value: docsToArray(docs)}}, nil
	}}
}

func operator[E any](field gp.Field[E], op string, v any) Definition[E] {
	return fieldDef(field, func(path string) gp.Document {
		return gp.Document{{Key: path, Value: gp.Document{{Key: op, Value: v}}}}
	})
}

func fieldDef[E any](field gp.Field[E], build func(path string) gp.Document) Definition[E] {
	return Definition[E]{render: func(item gp.Serializer, reg gp.Registry) (gp.Document, error) {
		rf, err := field.Resolve(item, reg)
		if err != nil {
			return nil, err
		}
		return build(rf.Path), nil
	}}
}

func renderAll[E any](defs []Definition[E], item gp.Serializer, reg gp.Registry) ([]gp.Document, error) {
	docs := make([]gp.Document, 0, len(defs))
	for i, d := range defs {
		doc, err := d.RenderFilter(item, reg)
		if err != nil {
			return nil, fmt.Errorf("filter %d: %w", i, err)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func docsToArray(docs []gp.Document) []any {
	arr := make([]any, 0, len(docs))
	for _, d := range docs {
		arr = append(arr, d)
	}
	return arr
}
