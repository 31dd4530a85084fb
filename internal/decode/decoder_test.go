package decode

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestJSONKeepsDocumentOrder(t *testing.T) {
	input := `{"zeta": 1, "alpha": {"b": true, "a": null}, "list": [1, "two", {"x": 3}]}`

	doc, err := NewDecoder().JSON(Context{Source: "inline"}, strings.NewReader(input))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	want := Document{
		{Key: "zeta", Value: float64(1)},
		{Key: "alpha", Value: Document{{Key: "b", Value: true}, {Key: "a", Value: nil}}},
		{Key: "list", Value: []any{float64(1), "two", Document{{Key: "x", Value: float64(3)}}}},
	}
	if diff := cmp.Diff(want, doc); diff != "" {
		t.Fatalf("document mismatch (-want +got):\n%s", diff)
	}
}

func TestJSONUseNumber(t *testing.T) {
	doc, err := NewDecoder(WithUseNumber()).JSON(Context{}, strings.NewReader(`{"n": 12345678901234567890}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	value, _ := doc.Lookup("n")
	if _, ok := value.(json.Number); !ok {
		t.Fatalf("expected json.Number, got %T", value)
	}
}

func TestJSONRejectsNonObject(t *testing.T) {
	_, err := NewDecoder().JSON(Context{Source: "list.json"}, strings.NewReader(`[1, 2]`))
	if !errors.Is(err, ErrNotMapping) {
		t.Fatalf("expected ErrNotMapping, got %v", err)
	}
	if !strings.Contains(err.Error(), `"list.json"`) {
		t.Fatalf("expected source in error, got %v", err)
	}
}

func TestJSONRejectsTrailingData(t *testing.T) {
	_, err := NewDecoder().JSON(Context{}, strings.NewReader(`{"a": 1} {"b": 2}`))
	if err == nil || !strings.Contains(err.Error(), "trailing data") {
		t.Fatalf("expected trailing data error, got %v", err)
	}
}

func TestJSONSyntaxError(t *testing.T) {
	if _, err := NewDecoder().JSON(Context{}, strings.NewReader(`{"a": }`)); err == nil {
		t.Fatalf("expected syntax error")
	}
}

func TestYAMLKeepsDocumentOrderAndResolvesAliases(t *testing.T) {
	input := `
base: &base
  host: localhost
  port: 8080
service:
  <<: *base
  name: api
tags:
  - a
  - b
`
	doc, err := NewDecoder().YAML(Context{Source: "app.yaml"}, []byte(input))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	base := Document{{Key: "host", Value: "localhost"}, {Key: "port", Value: 8080}}
	want := Document{
		{Key: "base", Value: base},
		{Key: "service", Value: append(append(Document{}, base...), Entry{Key: "name", Value: "api"})},
		{Key: "tags", Value: []any{"a", "b"}},
	}
	if diff := cmp.Diff(want, doc); diff != "" {
		t.Fatalf("document mismatch (-want +got):\n%s", diff)
	}
}

func TestYAMLEmptyPayload(t *testing.T) {
	for _, input := range []string{"", "# only a comment\n", "~"} {
		doc, err := NewDecoder().YAML(Context{}, []byte(input))
		if err != nil {
			t.Fatalf("decode %q: %v", input, err)
		}
		if len(doc) != 0 {
			t.Fatalf("expected empty document for %q, got %v", input, doc)
		}
	}
}

func TestYAMLRejectsSequenceRoot(t *testing.T) {
	_, err := NewDecoder().YAML(Context{}, []byte("- a\n- b\n"))
	if !errors.Is(err, ErrNotMapping) {
		t.Fatalf("expected ErrNotMapping, got %v", err)
	}
}

func TestMapSortsKeysAndConvertsNested(t *testing.T) {
	doc, err := NewDecoder().Map(Context{}, map[string]any{
		"b": map[string]any{"y": 1, "x": 2},
		"a": []any{map[any]any{"k": "v"}},
	})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := Document{
		{Key: "a", Value: []any{Document{{Key: "k", Value: "v"}}}},
		{Key: "b", Value: Document{{Key: "x", Value: 2}, {Key: "y", Value: 1}}},
	}
	if diff := cmp.Diff(want, doc); diff != "" {
		t.Fatalf("document mismatch (-want +got):\n%s", diff)
	}
}

func TestMapRejectsNil(t *testing.T) {
	if _, err := NewDecoder().Map(Context{}, nil); err == nil {
		t.Fatalf("expected error for nil payload")
	}
}

func TestPreHooksRunInOrder(t *testing.T) {
	var seen []string
	upper := func(ctx Context, doc Document) (Document, error) {
		seen = append(seen, "upper:"+string(ctx.Format))
		out := make(Document, len(doc))
		for i, entry := range doc {
			out[i] = Entry{Key: strings.ToUpper(entry.Key), Value: entry.Value}
		}
		return out, nil
	}
	keep := func(Context, Document) (Document, error) {
		seen = append(seen, "keep")
		return nil, nil
	}

	doc, err := NewDecoder(WithPreHook(upper), WithPreHook(keep)).JSON(Context{}, strings.NewReader(`{"a": 1}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if diff := cmp.Diff([]string{"upper:json", "keep"}, seen); diff != "" {
		t.Fatalf("hook order mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"A"}, doc.Keys()); diff != "" {
		t.Fatalf("keys mismatch (-want +got):\n%s", diff)
	}
}

func TestPreHookErrorIsWrapped(t *testing.T) {
	boom := errors.New("boom")
	_, err := NewDecoder(WithPreHook(func(Context, Document) (Document, error) {
		return nil, boom
	})).Map(Context{Source: "env"}, map[string]any{})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped hook error, got %v", err)
	}
}

func TestDocumentMap(t *testing.T) {
	doc := Document{
		{Key: "a", Value: Document{{Key: "b", Value: 1}}},
		{Key: "l", Value: []any{Document{{Key: "c", Value: 2}}}},
		{Key: "a2", Value: "x"},
	}
	want := map[string]any{
		"a":  map[string]any{"b": 1},
		"l":  []any{map[string]any{"c": 2}},
		"a2": "x",
	}
	if diff := cmp.Diff(want, doc.Map()); diff != "" {
		t.Fatalf("map mismatch (-want +got):\n%s", diff)
	}
}
