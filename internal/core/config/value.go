package config

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

type Kind int

const (
	KindNone Kind = iota
	KindBool
	KindNumber
	KindString
	KindList
	KindDict
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindDict:
		return "dict"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Value is a free-form option value: none, bool, number, string, list or
// dict. Lists and dicts own copies of their children, so a Value never
// shares storage with the data it was built from. The zero Value is None.
type Value struct {
	kind Kind
	b    bool
	n    float64
	s    string
	list []Value
	dict map[string]Value
}

func None() Value { return Value{} }

func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

func Number(n float64) Value { return Value{kind: KindNumber, n: n} }

func String(s string) Value { return Value{kind: KindString, s: s} }

func List(items ...Value) Value {
	owned := make([]Value, len(items))
	for i, item := range items {
		owned[i] = item.clone()
	}
	return Value{kind: KindList, list: owned}
}

func Dict(entries map[string]Value) Value {
	owned := make(map[string]Value, len(entries))
	for k, v := range entries {
		owned[k] = v.clone()
	}
	return Value{kind: KindDict, dict: owned}
}

func (v Value) clone() Value {
	switch v.kind {
	case KindList:
		return List(v.list...)
	case KindDict:
		return Dict(v.dict)
	default:
		return v
	}
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNone() bool { return v.kind == KindNone }

func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

func (v Value) AsNumber() (float64, bool) { return v.n, v.kind == KindNumber }

func (v Value) AsString() (string, bool) { return v.s, v.kind == KindString }

// AsList returns a copy of the list items.
func (v Value) AsList() ([]Value, bool) {
	if v.kind != KindList {
		return nil, false
	}
	return List(v.list...).list, true
}

// Get looks key up in a dict value.
func (v Value) Get(key string) (Value, bool) {
	if v.kind != KindDict {
		return None(), false
	}
	child, ok := v.dict[key]
	return child.clone(), ok
}

// Keys returns the keys of a dict value in sorted order.
func (v Value) Keys() []string {
	keys := make([]string, 0, len(v.dict))
	for k := range v.dict {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// StringOr returns the string at key, or def when it is missing or not a
// string.
func (v Value) StringOr(key, def string) string {
	child, ok := v.Get(key)
	if !ok {
		return def
	}
	if s, ok := child.AsString(); ok {
		return s
	}
	return def
}

// Strings returns the string items of the list at key. Non-string items are
// skipped.
func (v Value) Strings(key string) []string {
	child, ok := v.Get(key)
	if !ok {
		return nil
	}
	items, ok := child.AsList()
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.AsString(); ok {
			out = append(out, s)
		}
	}
	return out
}

func (v Value) String() string {
	switch v.kind {
	case KindBool:
		return fmt.Sprint(v.b)
	case KindNumber:
		return fmt.Sprint(v.n)
	case KindString:
		return fmt.Sprintf("%q", v.s)
	case KindList:
		parts := make([]string, len(v.list))
		for i, item := range v.list {
			parts[i] = item.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case KindDict:
		keys := v.Keys()
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + " = " + v.dict[k].String()
		}
		return "{" + strings.Join(parts, ", ") + "}"
	default:
		return "none"
	}
}

// FromAny converts decoded TOML data into a Value.
func FromAny(data any) (Value, error) {
	switch x := data.(type) {
	case nil:
		return None(), nil
	case bool:
		return Bool(x), nil
	case int64:
		return Number(float64(x)), nil
	case int:
		return Number(float64(x)), nil
	case float64:
		return Number(x), nil
	case string:
		return String(x), nil
	case time.Time:
		return String(x.Format(time.RFC3339Nano)), nil
	case []any:
		items := make([]Value, 0, len(x))
		for i, item := range x {
			v, err := FromAny(item)
			if err != nil {
				return None(), fmt.Errorf("[%d]: %w", i, err)
			}
			items = append(items, v)
		}
		return Value{kind: KindList, list: items}, nil
	case []map[string]any:
		items := make([]Value, 0, len(x))
		for i, item := range x {
			v, err := FromAny(item)
			if err != nil {
				return None(), fmt.Errorf("[%d]: %w", i, err)
			}
			items = append(items, v)
		}
		return Value{kind: KindList, list: items}, nil
	case map[string]any:
		entries := make(map[string]Value, len(x))
		for k, item := range x {
			v, err := FromAny(item)
			if err != nil {
				return None(), fmt.Errorf("%s: %w", k, err)
			}
			entries[k] = v
		}
		return Value{kind: KindDict, dict: entries}, nil
	default:
		return None(), fmt.Errorf("unsupported option value of type %T", data)
	}
}

// UnmarshalTOML lets option tables decode straight into a Value.
func (v *Value) UnmarshalTOML(data any) error {
	decoded, err := FromAny(data)
	if err != nil {
		return err
	}
	*v = decoded
	return nil
}
