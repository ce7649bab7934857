package goprojection

import (
	"errors"
	"reflect"

	js "github.com/reoring/goprojection/jsonschema"
)

// SchemaRegistry describes dynamic documents (map[string]any) with a JSON
// Schema. Object nodes act as document serializers over their properties,
// array nodes as array serializers over their items. Member names and
// element names coincide. Other types are served by a StructRegistry.
type SchemaRegistry struct {
	root     Serializer
	fallback Registry
}

// NewSchemaRegistry returns a registry rooted at root.
func NewSchemaRegistry(root *js.Schema) *SchemaRegistry {
	return &SchemaRegistry{root: schemaSerializer(root), fallback: NewStructRegistry()}
}

// LoadSchemaJSON builds a SchemaRegistry from a JSON Schema document.
func LoadSchemaJSON(data []byte) (*SchemaRegistry, error) {
	s, err := js.Parse(data)
	if err != nil {
		return nil, err
	}
	return NewSchemaRegistry(s), nil
}

// LoadSchemaYAML builds a SchemaRegistry from a JSON Schema written in YAML.
func LoadSchemaYAML(data []byte) (*SchemaRegistry, error) {
	s, err := js.ParseYAML(data)
	if err != nil {
		return nil, err
	}
	return NewSchemaRegistry(s), nil
}

// Root returns the serializer of the root schema.
func (r *SchemaRegistry) Root() Serializer { return r.root }

var _documentType = reflect.TypeFor[map[string]any]()

// SerializerFor returns the root serializer for map[string]any.
func (r *SchemaRegistry) SerializerFor(t reflect.Type) (Serializer, error) {
	if t == nil {
		return nil, errors.New("goprojection: serializer for nil type")
	}
	if t == _documentType {
		return r.root, nil
	}
	return r.fallback.SerializerFor(t)
}

func schemaSerializer(s *js.Schema) Serializer {
	switch {
	case s.IsObject():
		return objectSchemaSerializer{schema: s}
	case s.IsArray():
		return arraySchemaSerializer{schema: s}
	default:
		return scalarSchemaSerializer{schema: s}
	}
}

func schemaValueType(s *js.Schema) reflect.Type {
	switch {
	case s.IsObject():
		return _documentType
	case s.IsArray():
		return reflect.TypeFor[[]any]()
	}
	if s == nil {
		return reflect.TypeFor[any]()
	}
	switch s.Type {
	case "string":
		return reflect.TypeFor[string]()
	case "integer":
		return reflect.TypeFor[int64]()
	case "number":
		return reflect.TypeFor[float64]()
	case "boolean":
		return reflect.TypeFor[bool]()
	default:
		return reflect.TypeFor[any]()
	}
}

type objectSchemaSerializer struct{ schema *js.Schema }

func (s objectSchemaSerializer) ValueType() reflect.Type { return _documentType }

func (s objectSchemaSerializer) Member(name string) (MemberInfo, bool) {
	prop, ok := s.schema.Properties[name]
	if !ok || prop == nil {
		return MemberInfo{}, false
	}
	return MemberInfo{ElementName: name, Type: schemaValueType(prop), Serializer: schemaSerializer(prop)}, true
}

func (s objectSchemaSerializer) Element(name string) (MemberInfo, bool) { return s.Member(name) }

type arraySchemaSerializer struct{ schema *js.Schema }

func (s arraySchemaSerializer) ValueType() reflect.Type { return reflect.TypeFor[[]any]() }

func (s arraySchemaSerializer) ItemSerializer() Serializer { return schemaSerializer(s.schema.Items) }

type scalarSchemaSerializer struct{ schema *js.Schema }

func (s scalarSchemaSerializer) ValueType() reflect.Type { return schemaValueType(s.schema) }
