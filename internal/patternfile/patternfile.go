// Package patternfile decodes YAML pattern documents into matcher
// patterns.
//
// A document declares optional atoms and a single pattern tree. Every
// node carries a kind selector:
//
//	atoms: [red]
//	pattern:
//	  kind: seq
//	  elems:
//	    - kind: bind
//	      name: user
//	      where: {op: type_is, value: string}
//	    - kind: record
//	      fields:
//	        - key: color
//	          pattern: {kind: atom, name: red}
//	    - kind: template
//	      greedy: false
//	      parts:
//	        - text: "hello "
//	        - pattern: {kind: bind, name: who}
//	    - kind: lit
//	      value: 42
//	    - kind: any
//
// String keys beginning with ":" reference declared atoms. Predicates
// attach to placeholders via `where`, selecting exactly one of an
// operator form (op/value), an expression (expr), or a JSONPath query
// (path).
package patternfile

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/jacoelho/pmatch/internal/pattern"
	"github.com/jacoelho/pmatch/internal/predicate"
	"github.com/jacoelho/pmatch/internal/value"
)

// ErrInvalidDocument reports a pattern document that does not describe a
// well-formed pattern.
var ErrInvalidDocument = errors.New("invalid pattern document")

// Node kinds accepted in pattern documents.
const (
	kindAny      = "any"
	kindBind     = "bind"
	kindSeq      = "seq"
	kindRecord   = "record"
	kindTemplate = "template"
	kindLit      = "lit"
	kindAtom     = "atom"
)

// Document is the decoded form of one pattern file.
type Document struct {
	Atoms   []string `yaml:"atoms,omitempty"`
	Pattern *Node    `yaml:"pattern"`
}

// Node is one pattern tree node.
type Node struct {
	Kind   string         `yaml:"kind"`
	Name   string         `yaml:"name,omitempty"`
	Where  *PredicateSpec `yaml:"where,omitempty"`
	Elems  []*Node        `yaml:"elems,omitempty"`
	Fields []FieldSpec    `yaml:"fields,omitempty"`
	Parts  []PartSpec     `yaml:"parts,omitempty"`
	Greedy bool           `yaml:"greedy,omitempty"`
	Value  optionalValue  `yaml:"value,omitempty"`
}

// FieldSpec is one declared record field.
type FieldSpec struct {
	Key     optionalValue `yaml:"key"`
	Pattern *Node         `yaml:"pattern"`
}

// PartSpec is one template interleaving entry: literal text or a gap
// sub-pattern.
type PartSpec struct {
	Text    *string `yaml:"text,omitempty"`
	Pattern *Node   `yaml:"pattern,omitempty"`
}

// PredicateSpec selects one predicate form for a placeholder.
type PredicateSpec struct {
	Op    string        `yaml:"op,omitempty"`
	Value optionalValue `yaml:"value,omitempty"`
	Expr  string        `yaml:"expr,omitempty"`
	Path  string        `yaml:"path,omitempty"`
}

// optionalValue distinguishes an explicit null from an absent field.
type optionalValue struct {
	set bool
	val any
}

func (o *optionalValue) UnmarshalYAML(unmarshal func(any) error) error {
	o.set = true
	return unmarshal(&o.val)
}

// Parse decodes a single pattern document.
func Parse(r io.Reader) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read pattern document: %w", err)
	}

	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}

	if doc.Pattern == nil {
		return nil, fmt.Errorf("%w: missing pattern", ErrInvalidDocument)
	}

	return &doc, nil
}

// Compile builds the matcher pattern and the declared atom table.
func (d *Document) Compile() (pattern.Pattern, map[string]*value.Atom, error) {
	atoms := make(map[string]*value.Atom, len(d.Atoms))
	for _, name := range d.Atoms {
		if name == "" {
			return nil, nil, fmt.Errorf("%w: empty atom name", ErrInvalidDocument)
		}
		if _, ok := atoms[name]; ok {
			return nil, nil, fmt.Errorf("%w: duplicate atom %q", ErrInvalidDocument, name)
		}
		atoms[name] = value.NewAtom(name)
	}

	compiled, err := compileNode(d.Pattern, atoms)
	if err != nil {
		return nil, nil, err
	}

	return compiled, atoms, nil
}

func compileNode(node *Node, atoms map[string]*value.Atom) (pattern.Pattern, error) {
	if node == nil {
		return nil, fmt.Errorf("%w: missing pattern node", ErrInvalidDocument)
	}

	switch node.Kind {
	case kindAny:
		pred, err := compilePredicate(node.Where)
		if err != nil {
			return nil, err
		}
		return &pattern.Any{Pred: pred}, nil

	case kindBind:
		if node.Name == "" {
			return nil, fmt.Errorf("%w: bind requires a name", ErrInvalidDocument)
		}
		pred, err := compilePredicate(node.Where)
		if err != nil {
			return nil, err
		}
		key, err := compileKey(node.Name, atoms)
		if err != nil {
			return nil, err
		}
		return &pattern.Bind{Name: key, Pred: pred}, nil

	case kindSeq:
		elems := make([]pattern.Pattern, len(node.Elems))
		for i, elem := range node.Elems {
			compiled, err := compileNode(elem, atoms)
			if err != nil {
				return nil, err
			}
			elems[i] = compiled
		}
		return &pattern.Seq{Elems: elems}, nil

	case kindRecord:
		fields := make([]pattern.Field, len(node.Fields))
		for i, field := range node.Fields {
			if !field.Key.set {
				return nil, fmt.Errorf("%w: record field %d missing key", ErrInvalidDocument, i)
			}
			key, err := compileFieldKey(field.Key.val, atoms)
			if err != nil {
				return nil, err
			}
			sub, err := compileNode(field.Pattern, atoms)
			if err != nil {
				return nil, err
			}
			fields[i] = pattern.Field{Key: key, Sub: sub}
		}
		return &pattern.Record{Fields: fields}, nil

	case kindTemplate:
		return compileTemplate(node, atoms)

	case kindLit:
		if !node.Value.set {
			return nil, fmt.Errorf("%w: lit requires a value", ErrInvalidDocument)
		}
		lit, err := compileLiteral(node.Value.val, atoms)
		if err != nil {
			return nil, err
		}
		return &pattern.Lit{Value: lit}, nil

	case kindAtom:
		atom, ok := atoms[node.Name]
		if !ok {
			return nil, fmt.Errorf("%w: undeclared atom %q", ErrInvalidDocument, node.Name)
		}
		return &pattern.Lit{Value: value.AtomValue(atom)}, nil

	case "":
		return nil, fmt.Errorf("%w: node missing kind", ErrInvalidDocument)

	default:
		return nil, fmt.Errorf("%w: unknown node kind %q", ErrInvalidDocument, node.Kind)
	}
}

// compileTemplate normalizes the interleaving into n+1 literal fragments
// around n gap sub-patterns. Adjacent text parts concatenate; adjacent
// pattern parts produce a zero-width literal between them.
func compileTemplate(node *Node, atoms map[string]*value.Atom) (pattern.Pattern, error) {
	if len(node.Parts) == 0 {
		return nil, fmt.Errorf("%w: template requires parts", ErrInvalidDocument)
	}

	literals := []string{""}
	var subs []pattern.Pattern

	for i, part := range node.Parts {
		switch {
		case part.Text != nil && part.Pattern != nil:
			return nil, fmt.Errorf("%w: template part %d sets both text and pattern", ErrInvalidDocument, i)
		case part.Text != nil:
			literals[len(literals)-1] += *part.Text
		case part.Pattern != nil:
			sub, err := compileNode(part.Pattern, atoms)
			if err != nil {
				return nil, err
			}
			subs = append(subs, sub)
			literals = append(literals, "")
		default:
			return nil, fmt.Errorf("%w: template part %d sets neither text nor pattern", ErrInvalidDocument, i)
		}
	}

	compiled, err := pattern.NewTemplate(literals, subs, node.Greedy)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	return compiled, nil
}

func compilePredicate(spec *PredicateSpec) (pattern.Predicate, error) {
	if spec == nil {
		return nil, nil
	}

	selected := 0
	if spec.Op != "" {
		selected++
	}
	if spec.Expr != "" {
		selected++
	}
	if spec.Path != "" {
		selected++
	}
	if selected != 1 {
		return nil, fmt.Errorf("%w: predicate must select exactly one of op, expr, path", ErrInvalidDocument)
	}

	switch {
	case spec.Expr != "":
		return predicate.Expression(spec.Expr)
	case spec.Path != "":
		return predicate.JSONPath(spec.Path)
	default:
		op, err := predicate.ParseOperator(spec.Op)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
		}
		return predicate.FromExpr(predicate.Expr{
			Op:       op,
			Value:    spec.Value.val,
			HasValue: spec.Value.set,
		})
	}
}

// compileKey resolves a capture or bind name: a leading ":" references a
// declared atom, anything else is a string key.
func compileKey(name string, atoms map[string]*value.Atom) (value.Key, error) {
	if strings.HasPrefix(name, ":") {
		atom, ok := atoms[strings.TrimPrefix(name, ":")]
		if !ok {
			return value.Key{}, fmt.Errorf("%w: undeclared atom %q", ErrInvalidDocument, name)
		}
		return value.AtomKey(atom), nil
	}
	return value.StringKey(name), nil
}

// compileFieldKey resolves a record field key: strings (with the ":"
// atom convention) or numbers.
func compileFieldKey(raw any, atoms map[string]*value.Atom) (value.Key, error) {
	switch current := raw.(type) {
	case string:
		return compileKey(current, atoms)
	}

	classified := value.FromAny(raw)
	if classified.Kind() == value.KindNumber {
		return value.NumberKey(classified.NumberValue()), nil
	}

	return value.Key{}, fmt.Errorf("%w: unsupported record key %v (%T)", ErrInvalidDocument, raw, raw)
}

// compileLiteral classifies a document literal. Scalars only: container
// shapes are expressed with seq/record nodes, never as literals.
func compileLiteral(raw any, atoms map[string]*value.Atom) (value.Value, error) {
	if current, ok := raw.(string); ok && strings.HasPrefix(current, ":") {
		atom, ok := atoms[strings.TrimPrefix(current, ":")]
		if !ok {
			return value.Value{}, fmt.Errorf("%w: undeclared atom %q", ErrInvalidDocument, current)
		}
		return value.AtomValue(atom), nil
	}

	classified := value.FromAny(raw)
	switch classified.Kind() {
	case value.KindNull, value.KindBool, value.KindNumber, value.KindString:
		return classified, nil
	default:
		return value.Value{}, fmt.Errorf("%w: literal must be a scalar, got %s", ErrInvalidDocument, classified.Kind())
	}
}
