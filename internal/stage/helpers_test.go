package stage

import (
	"encoding/json"
	"testing"
)

func TestStringField(t *testing.T) {
	p := Payload{
		"text":   "value",
		"float":  42.5,
		"int":    7,
		"number": json.Number("12"),
		"bool":   true,
	}
	if got := StringField(p, "text"); got != "value" {
		t.Fatalf("text = %q", got)
	}
	if got := StringField(p, "float"); got != "42.5" {
		t.Fatalf("float = %q", got)
	}
	if got := StringField(p, "int"); got != "7" {
		t.Fatalf("int = %q", got)
	}
	if got := StringField(p, "number"); got != "12" {
		t.Fatalf("number = %q", got)
	}
	if got := StringField(p, "bool"); got != "" {
		t.Fatalf("bool = %q, want empty", got)
	}
	if got := StringField(nil, "text"); got != "" {
		t.Fatalf("nil payload = %q, want empty", got)
	}
}

func TestIntField(t *testing.T) {
	p := Payload{
		"int":    3,
		"float":  9.0,
		"string": " 21 ",
		"bad":    "x",
	}
	if got, ok := IntField(p, "int"); !ok || got != 3 {
		t.Fatalf("int = %d, %v", got, ok)
	}
	if got, ok := IntField(p, "float"); !ok || got != 9 {
		t.Fatalf("float = %d, %v", got, ok)
	}
	if got, ok := IntField(p, "string"); !ok || got != 21 {
		t.Fatalf("string = %d, %v", got, ok)
	}
	if _, ok := IntField(p, "bad"); ok {
		t.Fatal("bad value parsed")
	}
	if _, ok := IntField(p, "missing"); ok {
		t.Fatal("missing key parsed")
	}
}

func TestMapFieldHandlesBothShapes(t *testing.T) {
	p := Payload{
		"native": Payload{"a": 1},
		"json":   map[string]any{"b": 2},
		"other":  "nope",
	}
	if got := MapField(p, "native"); got == nil || got["a"] != 1 {
		t.Fatalf("native = %v", got)
	}
	if got := MapField(p, "json"); got == nil || got["b"] != 2 {
		t.Fatalf("json = %v", got)
	}
	if got := MapField(p, "other"); got != nil {
		t.Fatalf("other = %v, want nil", got)
	}
}

func TestSliceField(t *testing.T) {
	p := Payload{"list": []any{1, 2}, "scalar": 3}
	if got := SliceField(p, "list"); len(got) != 2 {
		t.Fatalf("list = %v", got)
	}
	if got := SliceField(p, "scalar"); got != nil {
		t.Fatalf("scalar = %v, want nil", got)
	}
}

func TestRequestInput(t *testing.T) {
	req := &Request{Inputs: map[string]Payload{"validation": {"status": "validated"}}}
	if got := req.Input("validation"); got == nil {
		t.Fatal("validation input missing")
	}
	if got := req.Input("processing"); got != nil {
		t.Fatalf("processing = %v, want nil", got)
	}
	var empty *Request
	if got := empty.Input("validation"); got != nil {
		t.Fatal("nil request returned input")
	}
}
