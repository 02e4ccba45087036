package soap

import (
	"fmt"
	"sort"
	"strconv"
)

// Value types carried in envelopes.
const (
	TypeNull   = "null"
	TypeString = "string"
	TypeInt    = "int"
	TypeBool   = "boolean"
	TypeList   = "list"
	TypeMap    = "map"
	TypeBase64 = "base64"
)

// Value is a typed management value: a scalar, a list of values, or a
// map of named values (an attribute list).
type Value struct {
	Type    string       `xml:"type,attr"`
	Text    string       `xml:",chardata"`
	Items   []Value      `xml:"item"`
	Entries []NamedValue `xml:"entry"`
}

// NamedValue is one entry of a map value.
type NamedValue struct {
	Name string `xml:"name,attr"`
	Value
}

// String returns a string value.
func String(s string) Value { return Value{Type: TypeString, Text: s} }

// Int returns an int value.
func Int(i int) Value { return Value{Type: TypeInt, Text: strconv.Itoa(i)} }

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{Type: TypeBool, Text: strconv.FormatBool(b)} }

// Null returns the null value.
func Null() Value { return Value{Type: TypeNull} }

// List returns a list value.
func List(items ...Value) Value { return Value{Type: TypeList, Items: items} }

// Map returns a map value with entries sorted by name.
func Map(entries map[string]Value) Value {
	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)
	v := Value{Type: TypeMap}
	for _, name := range names {
		v.Entries = append(v.Entries, NamedValue{Name: name, Value: entries[name]})
	}
	return v
}

// Interface converts v to string, int, bool, []any, map[string]any or nil.
func (v Value) Interface() (any, error) {
	switch v.Type {
	case TypeNull, "":
		if v.Type == "" && v.Text != "" {
			return v.Text, nil
		}
		return nil, nil
	case TypeString, TypeBase64:
		return v.Text, nil
	case TypeInt:
		i, err := strconv.Atoi(v.Text)
		if err != nil {
			return nil, fmt.Errorf("invalid int value %q", v.Text)
		}
		return i, nil
	case TypeBool:
		b, err := strconv.ParseBool(v.Text)
		if err != nil {
			return nil, fmt.Errorf("invalid boolean value %q", v.Text)
		}
		return b, nil
	case TypeList:
		out := make([]any, 0, len(v.Items))
		for _, item := range v.Items {
			x, err := item.Interface()
			if err != nil {
				return nil, err
			}
			out = append(out, x)
		}
		return out, nil
	case TypeMap:
		out := make(map[string]any, len(v.Entries))
		for _, e := range v.Entries {
			x, err := e.Value.Interface()
			if err != nil {
				return nil, err
			}
			out[e.Name] = x
		}
		return out, nil
	}
	return nil, fmt.Errorf("unknown value type %q", v.Type)
}
