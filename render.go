package goprojection

import (
	"fmt"
	"reflect"
)

const arrayElementCapability = "array element serialization"

// Render turns p into the document sent to the query engine. src is the
// serializer of T and reg provides serializers for member types. Render has
// no side effects beyond querying reg; it returns either a complete document
// or an error.
func Render[T any](p Projection[T], src Serializer, reg Registry) (Document, error) {
	doc, err := render[T](p.n, src, reg)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// RenderFor renders p using reg's serializer for T as source serializer.
func RenderFor[T any](p Projection[T], reg Registry) (Document, error) {
	src, err := reg.SerializerFor(reflect.TypeFor[T]())
	if err != nil {
		return nil, fmt.Errorf("serializer for %s: %w", typeName[T](), err)
	}
	return Render(p, src, reg)
}

func render[T any](n node[T], src Serializer, reg Registry) (Document, error) {
	switch n := n.(type) {
	case nil:
		return Document{}, nil
	case includeNode[T]:
		return renderValue(n.field, src, reg, 1)
	case excludeNode[T]:
		return renderValue(n.field, src, reg, 0)
	case metaTextScoreNode[T]:
		return Document{{Key: n.name, Value: Document{{Key: "$meta", Value: "textScore"}}}}, nil
	case sliceNode[T]:
		var v any = n.skip
		if n.hasLimit {
			v = []any{n.skip, n.limit}
		}
		return renderValue(n.field, src, reg, Document{{Key: "$slice", Value: v}})
	case positionalNode[T]:
		rf, err := n.field.Resolve(src, reg)
		if err != nil {
			return nil, err
		}
		return Document{{Key: rf.Path + ".$", Value: 1}}, nil
	case elemMatchNode[T]:
		return renderElemMatch(n, src, reg)
	case combinedNode[T]:
		out := Document{}
		for _, child := range n.children {
			doc, err := render[T](child.n, src, reg)
			if err != nil {
				return nil, err
			}
			for _, e := range doc {
				// last one wins and moves to the end
				out.set(e.Key, e.Value)
			}
		}
		return out, nil
	default:
		return nil, Issues{{Code: CodeUnknownNode, Message: fmt.Sprintf("unknown projection node %T", n)}}
	}
}

func renderValue[T any](field Field[T], src Serializer, reg Registry, v any) (Document, error) {
	rf, err := field.Resolve(src, reg)
	if err != nil {
		return nil, err
	}
	return Document{{Key: rf.Path, Value: v}}, nil
}

func renderElemMatch[T any](n elemMatchNode[T], src Serializer, reg Registry) (Document, error) {
	rf, err := n.field.Resolve(src, reg)
	if err != nil {
		return nil, err
	}
	ser := rf.Serializer
	if ser == nil && n.declared != nil {
		if ser, err = reg.SerializerFor(n.declared); err != nil {
			return nil, fmt.Errorf("serializer for field '%s': %w", rf.Path, err)
		}
	}
	arr, ok := ser.(ArraySerializer)
	if !ok {
		return nil, invalidProjectionTarget(rf.Path, arrayElementCapability)
	}
	if n.filter == nil {
		return Document{{Key: rf.Path, Value: Document{{Key: "$elemMatch", Value: Document{}}}}}, nil
	}
	filter, err := n.filter.RenderFilter(arr.ItemSerializer(), reg)
	if err != nil {
		return nil, fmt.Errorf("render $elemMatch filter for field '%s': %w", rf.Path, err)
	}
	return Document{{Key: rf.Path, Value: Document{{Key: "$elemMatch", Value: filter}}}}, nil
}
