package dsl

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"

	gp "github.com/reoring/goprojection"
	"github.com/reoring/goprojection/filter"
	js "github.com/reoring/goprojection/jsonschema"
)

// Doc is the record type of declarative projections.
type Doc = map[string]any

// Operation names accepted in a projection list.
const (
	OpInclude       = "include"
	OpExclude       = "exclude"
	OpPositional    = "positional"
	OpMetaTextScore = "metaTextScore"
	OpSlice         = "slice"
	OpElemMatch     = "elemMatch"
)

// Op is one entry of a projection list. Exactly one field is set.
type Op struct {
	Include       string
	Exclude       string
	Positional    string
	MetaTextScore string
	Slice         *SliceOp
	ElemMatch     *ElemMatchOp
}

// SliceOp is the argument of a slice operation. A nil Limit selects the
// single-value $slice form.
type SliceOp struct {
	Field string `yaml:"field"`
	Skip  int    `yaml:"skip"`
	Limit *int   `yaml:"limit"`
}

// ElemMatchOp is the argument of an elemMatch operation.
type ElemMatchOp struct {
	Field  string      `yaml:"field"`
	Filter gp.Document `yaml:"filter"`
}

// Program is a decoded projection file.
type Program struct {
	Schema *js.Schema
	Ops    []Op
}

// Load reads and parses a projection file.
func Load(path string) (Program, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Program{}, fmt.Errorf("read projection file %s: %w", path, err)
	}
	p, err := Parse(data)
	if err != nil {
		return Program{}, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// Parse decodes a projection file. The root is either a mapping with
// "projection" (and optionally "schema") or a bare projection list.
func Parse(data []byte) (Program, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return Program{}, fmt.Errorf("parse projection: %w", err)
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return Program{}, fmt.Errorf("parse projection: empty document")
	}
	top := root.Content[0]

	var p Program
	var list *yaml.Node
	switch top.Kind {
	case yaml.SequenceNode:
		list = top
	case yaml.MappingNode:
		for i := 0; i+1 < len(top.Content); i += 2 {
			key, val := top.Content[i].Value, top.Content[i+1]
			switch key {
			case "projection":
				list = val
			case "schema":
				var s js.Schema
				if err := val.Decode(&s); err != nil {
					return Program{}, fmt.Errorf("line %d: schema: %w", val.Line, err)
				}
				p.Schema = &s
			default:
				return Program{}, fmt.Errorf("line %d: unknown key %q", top.Content[i].Line, key)
			}
		}
		if list == nil {
			return Program{}, fmt.Errorf("line %d: missing \"projection\"", top.Line)
		}
	default:
		return Program{}, fmt.Errorf("line %d: expected a mapping or a list", top.Line)
	}
	if list.Kind != yaml.SequenceNode {
		return Program{}, fmt.Errorf("line %d: \"projection\" must be a list", list.Line)
	}

	p.Ops = make([]Op, 0, len(list.Content))
	for i, entry := range list.Content {
		op, err := parseOp(entry)
		if err != nil {
			return Program{}, fmt.Errorf("projection[%d] (line %d): %w", i, entry.Line, err)
		}
		p.Ops = append(p.Ops, op)
	}
	return p, nil
}

func parseOp(n *yaml.Node) (Op, error) {
	if n.Kind != yaml.MappingNode || len(n.Content) != 2 {
		return Op{}, fmt.Errorf("an operation must be a mapping with exactly one key")
	}
	name, arg := n.Content[0].Value, n.Content[1]
	var op Op
	switch name {
	case OpInclude, OpExclude, OpPositional, OpMetaTextScore:
		var field string
		if err := arg.Decode(&field); err != nil {
			return Op{}, fmt.Errorf("%s: %w", name, err)
		}
		if field == "" {
			return Op{}, fmt.Errorf("%s: field is required", name)
		}
		switch name {
		case OpInclude:
			op.Include = field
		case OpExclude:
			op.Exclude = field
		case OpPositional:
			op.Positional = field
		default:
			op.MetaTextScore = field
		}
	case OpSlice:
		if err := checkKeys(name, arg, "field", "skip", "limit"); err != nil {
			return Op{}, err
		}
		var s SliceOp
		if err := arg.Decode(&s); err != nil {
			return Op{}, fmt.Errorf("%s: %w", name, err)
		}
		if s.Field == "" {
			return Op{}, fmt.Errorf("%s: field is required", name)
		}
		op.Slice = &s
	case OpElemMatch:
		if err := checkKeys(name, arg, "field", "filter"); err != nil {
			return Op{}, err
		}
		var em ElemMatchOp
		if err := arg.Decode(&em); err != nil {
			return Op{}, fmt.Errorf("%s: %w", name, err)
		}
		if em.Field == "" {
			return Op{}, fmt.Errorf("%s: field is required", name)
		}
		op.ElemMatch = &em
	default:
		return Op{}, fmt.Errorf("unknown operation %q", name)
	}
	return op, nil
}

// checkKeys rejects argument keys outside allowed.
func checkKeys(op string, arg *yaml.Node, allowed ...string) error {
	if arg.Kind != yaml.MappingNode {
		return fmt.Errorf("%s: argument must be a mapping (line %d)", op, arg.Line)
	}
	for i := 0; i+1 < len(arg.Content); i += 2 {
		key := arg.Content[i]
		if !slices.Contains(allowed, key.Value) {
			return fmt.Errorf("%s: unknown key %q (line %d)", op, key.Value, key.Line)
		}
	}
	return nil
}

// Compile builds the projection described by p, in list order.
func (p Program) Compile() gp.Projection[Doc] {
	b := gp.Build[Doc]()
	parts := make([]gp.Projection[Doc], 0, len(p.Ops))
	for _, op := range p.Ops {
		parts = append(parts, compileOp(b, op))
	}
	return b.Combine(parts...)
}

func compileOp(b gp.Builder[Doc], op Op) gp.Projection[Doc] {
	switch {
	case op.Include != "":
		return b.Include(gp.Path[Doc](op.Include))
	case op.Exclude != "":
		return b.Exclude(gp.Path[Doc](op.Exclude))
	case op.Positional != "":
		return b.Positional(gp.Path[Doc](op.Positional))
	case op.MetaTextScore != "":
		return b.MetaTextScore(op.MetaTextScore)
	case op.Slice != nil:
		if op.Slice.Limit != nil {
			return b.SliceLimit(gp.Path[Doc](op.Slice.Field), op.Slice.Skip, *op.Slice.Limit)
		}
		return b.Slice(gp.Path[Doc](op.Slice.Field), op.Slice.Skip)
	case op.ElemMatch != nil:
		f := op.ElemMatch.Filter
		if f == nil {
			f = gp.Document{}
		}
		return gp.ElemMatchOf(gp.ArrayPath[Doc, any](op.ElemMatch.Field), filter.Raw[any](f))
	default:
		return b.Combine()
	}
}

// Registry returns a registry for the embedded schema, or nil when the
// program has none.
func (p Program) Registry() gp.Registry {
	if p.Schema == nil {
		return nil
	}
	return gp.NewSchemaRegistry(p.Schema)
}

// Render compiles p and renders it with r. reg takes precedence over the
// embedded schema; with neither, documents carry no metadata.
func (p Program) Render(r gp.Renderer, reg gp.Registry) (gp.Document, error) {
	if reg == nil {
		reg = p.Registry()
	}
	if reg == nil {
		reg = gp.NewStructRegistry()
	}
	src, err := gp.SerializerOf[Doc](reg)
	if err != nil {
		return nil, err
	}
	return r.Render(p.Compile(), src, reg)
}
