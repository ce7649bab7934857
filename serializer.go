package goprojection

import "reflect"

// Serializer describes how values of one type are laid out in a document.
// Projections only read serializer metadata; they never encode values.
type Serializer interface {
	ValueType() reflect.Type
}

// MemberInfo is the serialization metadata of one member of a document type.
// Serializer may be nil, in which case the Registry is asked for the
// serializer of Type.
type MemberInfo struct {
	ElementName string
	Type        reflect.Type
	Serializer  Serializer
}

// DocumentSerializer is implemented by serializers that can map a member
// name of their type to its element name in the document.
type DocumentSerializer interface {
	Serializer
	Member(name string) (MemberInfo, bool)
}

// ElementLookup is implemented by serializers that can describe a member by
// its element name. Literal paths use it to discover field serializers.
type ElementLookup interface {
	Serializer
	Element(name string) (MemberInfo, bool)
}

// ArraySerializer is implemented by serializers that describe array
// elements.
type ArraySerializer interface {
	Serializer
	ItemSerializer() Serializer
}

// Registry provides serializers for runtime types. Implementations must be
// safe for concurrent reads.
type Registry interface {
	SerializerFor(t reflect.Type) (Serializer, error)
}

// SerializerOf returns the serializer for T.
func SerializerOf[T any](reg Registry) (Serializer, error) {
	return reg.SerializerFor(reflect.TypeFor[T]())
}

// memberSerializer returns the serializer carried by info or asks reg.
func memberSerializer(info MemberInfo, reg Registry) (Serializer, error) {
	if info.Serializer != nil {
		return info.Serializer, nil
	}
	if info.Type == nil {
		return nil, nil
	}
	return reg.SerializerFor(info.Type)
}
