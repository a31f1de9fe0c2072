// Package value defines the dynamic value model the matcher operates on.
//
// Every host value entering the engine is classified exactly once, at the
// boundary, into one of the fixed kinds below. The matcher never inspects
// host types directly.
package value

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/jacoelho/pmatch/internal/number"
)

// Kind identifies the classification of a Value.
type Kind int

const (
	KindNull Kind = iota
	KindMissing
	KindBool
	KindNumber
	KindString
	KindAtom
	KindSequence
	KindRecord
	KindOpaque
)

var kindNames = map[Kind]string{
	KindNull:     "null",
	KindMissing:  "missing",
	KindBool:     "bool",
	KindNumber:   "number",
	KindString:   "string",
	KindAtom:     "atom",
	KindSequence: "sequence",
	KindRecord:   "record",
	KindOpaque:   "opaque",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Value is a fully materialized datum being tested against a pattern.
// Values are immutable for the duration of a match.
type Value struct {
	kind Kind
	data any
}

// Kind reports the classification of v.
func (v Value) Kind() Kind {
	return v.kind
}

// Null returns the null value. Null is distinct from Missing.
func Null() Value {
	return Value{kind: KindNull}
}

// Missing returns the absence marker. Missing is distinct from Null.
func Missing() Value {
	return Value{kind: KindMissing}
}

// Bool wraps a boolean.
func Bool(b bool) Value {
	return Value{kind: KindBool, data: b}
}

// Number wraps a numeric value.
func Number(f float64) Value {
	return Value{kind: KindNumber, data: f}
}

// String wraps a string.
func String(s string) Value {
	return Value{kind: KindString, data: s}
}

// AtomValue wraps an atom identity token.
func AtomValue(a *Atom) Value {
	return Value{kind: KindAtom, data: a}
}

// Sequence wraps an ordered list of values.
func Sequence(elems ...Value) Value {
	return Value{kind: KindSequence, data: elems}
}

// Record wraps an unordered key-to-value mapping.
func Record(fields map[Key]Value) Value {
	return Value{kind: KindRecord, data: fields}
}

// Opaque wraps a host value that is neither sequence- nor record-classified.
// Opaque values compare by identity only.
func Opaque(host any) Value {
	return Value{kind: KindOpaque, data: host}
}

// BoolValue returns the wrapped boolean; false for any other kind.
func (v Value) BoolValue() bool {
	b, _ := v.data.(bool)
	return b
}

// NumberValue returns the wrapped number; 0 for any other kind.
func (v Value) NumberValue() float64 {
	f, _ := v.data.(float64)
	return f
}

// StringValue returns the wrapped string; "" for any other kind.
func (v Value) StringValue() string {
	s, _ := v.data.(string)
	return s
}

// AtomRef returns the wrapped atom; nil for any other kind.
func (v Value) AtomRef() *Atom {
	a, _ := v.data.(*Atom)
	return a
}

// Elements returns the wrapped sequence; nil for any other kind.
func (v Value) Elements() []Value {
	elems, _ := v.data.([]Value)
	return elems
}

// Fields returns the wrapped record mapping; nil for any other kind.
func (v Value) Fields() map[Key]Value {
	fields, _ := v.data.(map[Key]Value)
	return fields
}

// Host returns the wrapped opaque host value; nil for any other kind.
func (v Value) Host() any {
	if v.kind != KindOpaque {
		return nil
	}
	return v.data
}

// FromAny classifies an arbitrary host value into exactly one kind.
//
// nil maps to Null; booleans, strings and every numeric type map to their
// scalar kinds; *Atom maps to Atom; slices and arrays map to Sequence;
// maps with string or numeric keys map to Record; a Value passes through
// unchanged; everything else is Opaque.
func FromAny(host any) Value {
	if host == nil {
		return Null()
	}

	switch current := host.(type) {
	case Value:
		return current
	case bool:
		return Bool(current)
	case string:
		return String(current)
	case *Atom:
		return AtomValue(current)
	case []Value:
		return Sequence(current...)
	case map[Key]Value:
		return Record(current)
	case []any:
		elems := make([]Value, len(current))
		for i, elem := range current {
			elems[i] = FromAny(elem)
		}
		return Sequence(elems...)
	case map[string]any:
		fields := make(map[Key]Value, len(current))
		for k, elem := range current {
			fields[StringKey(k)] = FromAny(elem)
		}
		return Record(fields)
	}

	if f, ok := number.ToFloat64(host); ok {
		return Number(f)
	}

	return fromReflect(host)
}

func fromReflect(host any) Value {
	rv := reflect.ValueOf(host)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		elems := make([]Value, rv.Len())
		for i := range elems {
			elems[i] = FromAny(rv.Index(i).Interface())
		}
		return Sequence(elems...)
	case reflect.Map:
		fields := make(map[Key]Value, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			key, ok := keyFromHost(iter.Key().Interface())
			if !ok {
				return Opaque(host)
			}
			fields[key] = FromAny(iter.Value().Interface())
		}
		return Record(fields)
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return Null()
		}
		return Opaque(host)
	default:
		return Opaque(host)
	}
}

func keyFromHost(host any) (Key, bool) {
	switch current := host.(type) {
	case string:
		return StringKey(current), true
	case *Atom:
		return AtomKey(current), true
	}
	if f, ok := number.ToFloat64(host); ok {
		return NumberKey(f), true
	}
	return Key{}, false
}

// ToAny renders v back into a plain host value, suitable for handing to
// external predicate engines. Records render with stringified keys,
// Missing renders as nil, and Opaque values pass through unchanged.
func ToAny(v Value) any {
	switch v.kind {
	case KindNull, KindMissing:
		return nil
	case KindBool:
		return v.BoolValue()
	case KindNumber:
		return v.NumberValue()
	case KindString:
		return v.StringValue()
	case KindAtom:
		return v.AtomRef()
	case KindSequence:
		elems := v.Elements()
		out := make([]any, len(elems))
		for i, elem := range elems {
			out[i] = ToAny(elem)
		}
		return out
	case KindRecord:
		fields := v.Fields()
		out := make(map[string]any, len(fields))
		for key, field := range fields {
			out[key.String()] = ToAny(field)
		}
		return out
	default:
		return v.data
	}
}

// RecordShaped reports whether v supports field lookup: a plain record, or
// an opaque host exposing struct fields.
func (v Value) RecordShaped() bool {
	switch v.kind {
	case KindRecord:
		return true
	case KindOpaque:
		rv := reflect.ValueOf(v.data)
		for rv.Kind() == reflect.Ptr {
			if rv.IsNil() {
				return false
			}
			rv = rv.Elem()
		}
		return rv.Kind() == reflect.Struct
	default:
		return false
	}
}

// Field looks up a field on a record-shaped value. For plain records the
// key is looked up directly; for opaque struct hosts a string key selects
// the exported field of that name.
func (v Value) Field(key Key) (Value, bool) {
	switch v.kind {
	case KindRecord:
		field, ok := v.Fields()[key]
		return field, ok
	case KindOpaque:
		if key.kind != KindString {
			return Value{}, false
		}
		rv := reflect.ValueOf(v.data)
		for rv.Kind() == reflect.Ptr {
			if rv.IsNil() {
				return Value{}, false
			}
			rv = rv.Elem()
		}
		if rv.Kind() != reflect.Struct {
			return Value{}, false
		}
		field := rv.FieldByName(key.str)
		if !field.IsValid() || !field.CanInterface() {
			return Value{}, false
		}
		return FromAny(field.Interface()), true
	default:
		return Value{}, false
	}
}

// Identical reports whether two values are the same under the literal
// comparison rule: scalar kinds compare by value, atoms by token identity,
// and opaque hosts by reference identity only. Containers never compare
// identical; they are decomposed by the matcher instead.
func Identical(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}

	switch a.kind {
	case KindNull, KindMissing:
		return true
	case KindBool:
		return a.BoolValue() == b.BoolValue()
	case KindNumber:
		return a.NumberValue() == b.NumberValue()
	case KindString:
		return a.StringValue() == b.StringValue()
	case KindAtom:
		return a.AtomRef() == b.AtomRef()
	case KindOpaque:
		return identicalHosts(a.data, b.data)
	default:
		return false
	}
}

// identicalHosts compares opaque hosts by reference. Two structurally
// equal but independently constructed hosts are not identical.
func identicalHosts(a, b any) bool {
	ra := reflect.ValueOf(a)
	rb := reflect.ValueOf(b)
	if ra.Kind() != rb.Kind() {
		return false
	}

	switch ra.Kind() {
	case reflect.Ptr, reflect.Chan, reflect.Func, reflect.Map, reflect.UnsafePointer:
		return ra.Pointer() == rb.Pointer()
	case reflect.Slice:
		return ra.Len() == rb.Len() && ra.Pointer() == rb.Pointer()
	default:
		return false
	}
}

// String renders a compact human-readable form, used by diagnostics.
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindMissing:
		return "missing"
	case KindBool:
		return fmt.Sprintf("%t", v.BoolValue())
	case KindNumber:
		return fmt.Sprintf("%g", v.NumberValue())
	case KindString:
		return fmt.Sprintf("%q", v.StringValue())
	case KindAtom:
		return v.AtomRef().String()
	case KindSequence:
		parts := make([]string, len(v.Elements()))
		for i, elem := range v.Elements() {
			parts[i] = elem.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case KindRecord:
		fields := v.Fields()
		parts := make([]string, 0, len(fields))
		for key, field := range fields {
			parts = append(parts, key.String()+": "+field.String())
		}
		sort.Strings(parts)
		return "{" + strings.Join(parts, ", ") + "}"
	default:
		return fmt.Sprintf("opaque(%T)", v.data)
	}
}
