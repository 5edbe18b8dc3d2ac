package dotted

import "testing"

func TestGet_ObjectAndIndexPaths(t *testing.T) {
	root := map[string]any{
		"data": map[string]any{
			"id": float64(42),
			"items": []any{
				map[string]any{"name": "a"},
				map[string]any{"name": "b"},
			},
		},
	}

	if got, ok := Get(root, "data.id"); !ok || got != float64(42) {
		t.Fatalf("data.id got %#v ok=%v", got, ok)
	}
	if got, ok := Get(root, "$.data.items[1].name"); !ok || got != "b" {
		t.Fatalf("index access got %#v ok=%v", got, ok)
	}
	if got, ok := Get(root, "data.items.0.name"); !ok || got != "a" {
		t.Fatalf("numeric segment got %#v ok=%v", got, ok)
	}
	names, ok := Get(root, "data.items[*].name")
	if !ok {
		t.Fatalf("wildcard should resolve")
	}
	list, _ := names.([]any)
	if len(list) != 2 || list[0] != "a" || list[1] != "b" {
		t.Fatalf("wildcard got %#v", names)
	}
}

func TestGet_EmptyPathReturnsRoot(t *testing.T) {
	root := map[string]any{"x": 1}
	got, ok := Get(root, "")
	if !ok {
		t.Fatalf("empty path should resolve")
	}
	if m, _ := got.(map[string]any); m["x"] != 1 {
		t.Fatalf("unexpected root: %#v", got)
	}
	if _, ok := Get(root, "$"); !ok {
		t.Fatalf("bare $ should resolve to root")
	}
}

func TestGet_Misses(t *testing.T) {
	root := map[string]any{"a": []any{1}}
	for _, p := range []string{"b", "a[3]", "a.x", "a..b", "a[0].c"} {
		if v, ok := Get(root, p); ok {
			t.Fatalf("path %q should miss, got %#v", p, v)
		}
	}
	if Has(root, "b") {
		t.Fatalf("Has should be false for missing key")
	}
}

func TestGet_YAMLStyleMaps(t *testing.T) {
	root := map[any]any{"a": map[any]any{"b": "c"}}
	if got, ok := Get(root, "a.b"); !ok || got != "c" {
		t.Fatalf("got %#v ok=%v", got, ok)
	}
}

func TestCoerceInt(t *testing.T) {
	cases := []struct {
		in   any
		want int
		ok   bool
	}{
		{404, 404, true},
		{float64(200), 200, true},
		{float64(2.5), 0, false},
		{" 500 ", 500, true},
		{"x", 0, false},
		{nil, 0, false},
	}
	for _, c := range cases {
		got, ok := CoerceInt(c.in)
		if got != c.want || ok != c.ok {
			t.Fatalf("CoerceInt(%#v) = %d,%v want %d,%v", c.in, got, ok, c.want, c.ok)
		}
	}
}

func TestFormatScalar(t *testing.T) {
	if got := FormatScalar(float64(0.0000012)); got != "0.0000012" {
		t.Fatalf("float got %q", got)
	}
	if got := FormatScalar(map[any]any{"k": []any{1, "v"}}); got != `{"k":[1,"v"]}` {
		t.Fatalf("composite got %q", got)
	}
	if got := FormatScalar(nil); got != "" {
		t.Fatalf("nil got %q", got)
	}
}
