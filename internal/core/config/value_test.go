package config

import (
	"testing"

	"github.com/BurntSushi/toml"
)

func TestValue_ZeroIsNone(t *testing.T) {
	var v Value
	if !v.IsNone() || v.Kind() != KindNone {
		t.Fatalf("zero value kind = %s", v.Kind())
	}
	if _, ok := v.Get("x"); ok {
		t.Fatal("Get on none should miss")
	}
}

func TestValue_Accessors(t *testing.T) {
	v := Dict(map[string]Value{
		"enabled": Bool(true),
		"ratio":   Number(0.5),
		"name":    String("py"),
		"names":   List(String("a"), Number(1), String("b")),
	})

	if b, ok := mustGet(t, v, "enabled").AsBool(); !ok || !b {
		t.Error("enabled should be true")
	}
	if n, ok := mustGet(t, v, "ratio").AsNumber(); !ok || n != 0.5 {
		t.Errorf("ratio = %v", n)
	}
	if _, ok := mustGet(t, v, "ratio").AsString(); ok {
		t.Error("number must not read as string")
	}
	if got := v.StringOr("name", "x"); got != "py" {
		t.Errorf("StringOr = %q", got)
	}
	if got := v.StringOr("missing", "x"); got != "x" {
		t.Errorf("StringOr default = %q", got)
	}
	if got := v.Strings("names"); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("Strings = %v", got)
	}
	if got := v.String(); got != `{enabled = true, name = "py", names = ["a", 1, "b"], ratio = 0.5}` {
		t.Errorf("String = %s", got)
	}
}

func TestValue_OwnsChildren(t *testing.T) {
	items := []Value{String("a")}
	v := List(items...)
	items[0] = String("changed")

	got, _ := v.AsList()
	if s, _ := got[0].AsString(); s != "a" {
		t.Fatalf("list shares storage with its input: %q", s)
	}

	got[0] = String("mutated")
	again, _ := v.AsList()
	if s, _ := again[0].AsString(); s != "a" {
		t.Fatalf("AsList exposes internal storage: %q", s)
	}
}

func TestValue_DecodesFromTOML(t *testing.T) {
	var doc struct {
		Opts map[string]Value `toml:"opts"`
	}
	data := `
[opts.python]
builtins = ["Model", "Base"]
strict = false
depth = 3

[[opts.python.rules]]
name = "x"
`
	if _, err := toml.Decode(data, &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	py := doc.Opts["python"]
	if py.Kind() != KindDict {
		t.Fatalf("kind = %s", py.Kind())
	}
	if got := py.Strings("builtins"); len(got) != 2 || got[0] != "Model" {
		t.Errorf("builtins = %v", got)
	}
	if n, ok := mustGet(t, py, "depth").AsNumber(); !ok || n != 3 {
		t.Errorf("depth = %v", n)
	}
	rules, ok := mustGet(t, py, "rules").AsList()
	if !ok || len(rules) != 1 || rules[0].StringOr("name", "") != "x" {
		t.Errorf("rules = %v", rules)
	}
}

func TestFromAny_Unsupported(t *testing.T) {
	if _, err := FromAny(struct{}{}); err == nil {
		t.Fatal("expected error for unsupported type")
	}
}

func mustGet(t *testing.T, v Value, key string) Value {
	t.Helper()
	child, ok := v.Get(key)
	if !ok {
		t.Fatalf("missing key %q in %s", key, v)
	}
	return child
}
