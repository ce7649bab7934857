package goprojection

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"reflect"

	gojson "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// Elem is one key/value pair of a Document.
type Elem struct {
	Key   string
	Value any
}

// Document is an ordered key/value tree as sent to the query engine. Each
// key appears at most once. Values are scalars, nested Documents or []any.
type Document []Elem

// Len returns the number of keys.
func (d Document) Len() int { return len(d) }

// Keys returns the keys in document order.
func (d Document) Keys() []string {
	keys := make([]string, 0, len(d))
	for _, e := range d {
		keys = append(keys, e.Key)
	}
	return keys
}

// Get returns the value stored under key.
func (d Document) Get(key string) (any, bool) {
	if i := d.index(key); i >= 0 {
		return d[i].Value, true
	}
	return nil, false
}

// With returns a copy of d where key maps to v. An existing key is removed
// first, so the written key always ends up last.
func (d Document) With(key string, v any) Document {
	out := make(Document, 0, len(d)+1)
	out = append(out, d...)
	out.set(key, v)
	return out
}

// Equal reports whether d and o hold the same keys in the same order with
// deeply equal values.
func (d Document) Equal(o Document) bool {
	if len(d) != len(o) {
		return false
	}
	for i := range d {
		if d[i].Key != o[i].Key || !reflect.DeepEqual(d[i].Value, o[i].Value) {
			return false
		}
	}
	return true
}

// String renders d as compact JSON.
func (d Document) String() string {
	b, err := d.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("<invalid document: %v>", err)
	}
	return string(b)
}

func (d Document) index(key string) int {
	for i := range d {
		if d[i].Key == key {
			return i
		}
	}
	return -1
}

// set removes key if present and appends it. d is modified in place.
func (d *Document) set(key string, v any) {
	if i := d.index(key); i >= 0 {
		*d = append((*d)[:i], (*d)[i+1:]...)
	}
	*d = append(*d, Elem{Key: key, Value: v})
}

// MarshalJSON writes d as a JSON object preserving key order.
func (d Document) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range d {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := gojson.Marshal(e.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		v, err := gojson.Marshal(e.Value)
		if err != nil {
			return nil, fmt.Errorf("marshal %q: %w", e.Key, err)
		}
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object preserving key order.
func (d *Document) UnmarshalJSON(data []byte) error {
	doc, err := ParseDocument(data)
	if err != nil {
		return err
	}
	*d = doc
	return nil
}

// ParseDocument decodes a JSON object into a Document. Integral numbers
// become int, other numbers float64. A repeated key keeps its last value.
func ParseDocument(data []byte) (Document, error) {
	dec := gojson.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	if delim, ok := tok.(gojson.Delim); !ok || delim != '{' {
		return nil, errors.New("parse document: expected a JSON object")
	}
	doc, err := decodeObject(dec)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("parse document: trailing data after object")
	}
	return doc, nil
}

func decodeObject(dec *gojson.Decoder) (Document, error) {
	doc := Document{}
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		if delim, ok := tok.(gojson.Delim); ok && delim == '}' {
			return doc, nil
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected token %v, expected key", tok)
		}
		vtok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		v, err := decodeValue(dec, vtok)
		if err != nil {
			return nil, err
		}
		doc.set(key, v)
	}
}

func decodeValue(dec *gojson.Decoder, tok any) (any, error) {
	switch v := tok.(type) {
	case gojson.Delim:
		switch v {
		case '{':
			return decodeObject(dec)
		case '[':
			arr := []any{}
			for {
				next, err := dec.Token()
				if err != nil {
					return nil, err
				}
				if d, ok := next.(gojson.Delim); ok && d == ']' {
					return arr, nil
				}
				item, err := decodeValue(dec, next)
				if err != nil {
					return nil, err
				}
				arr = append(arr, item)
			}
		default:
			return nil, fmt.Errorf("unexpected delimiter %v", v)
		}
	case gojson.Number:
		if i, err := v.Int64(); err == nil {
			return int(i), nil
		}
		f, err := v.Float64()
		if err != nil {
			return nil, err
		}
		return f, nil
	case float64:
		if v == float64(int(v)) {
			return int(v), nil
		}
		return v, nil
	default:
		// string, bool, nil
		return v, nil
	}
}

// MarshalYAML emits d as an ordered YAML mapping.
func (d Document) MarshalYAML() (any, error) {
	n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, e := range d {
		k := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: e.Key}
		v := &yaml.Node{}
		if err := v.Encode(e.Value); err != nil {
			return nil, fmt.Errorf("marshal %q: %w", e.Key, err)
		}
		n.Content = append(n.Content, k, v)
	}
	return n, nil
}

// UnmarshalYAML decodes an ordered YAML mapping.
func (d *Document) UnmarshalYAML(n *yaml.Node) error {
	v, err := decodeYAML(n)
	if err != nil {
		return err
	}
	doc, ok := v.(Document)
	if !ok {
		return fmt.Errorf("line %d: expected a mapping", n.Line)
	}
	*d = doc
	return nil
}

func decodeYAML(n *yaml.Node) (any, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return Document{}, nil
		}
		return decodeYAML(n.Content[0])
	case yaml.AliasNode:
		return decodeYAML(n.Alias)
	case yaml.MappingNode:
		doc := Document{}
		for i := 0; i+1 < len(n.Content); i += 2 {
			var key string
			if err := n.Content[i].Decode(&key); err != nil {
				return nil, fmt.Errorf("line %d: %w", n.Content[i].Line, err)
			}
			v, err := decodeYAML(n.Content[i+1])
			if err != nil {
				return nil, err
			}
			doc.set(key, v)
		}
		return doc, nil
	case yaml.SequenceNode:
		arr := make([]any, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := decodeYAML(c)
			if err != nil {
				return nil, err
			}
			arr = append(arr, v)
		}
		return arr, nil
	default:
		var v any
		if err := n.Decode(&v); err != nil {
			return nil, fmt.Errorf("line %d: %w", n.Line, err)
		}
		return v, nil
	}
}
