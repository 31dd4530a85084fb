// Package decode turns JSON, YAML and map payloads into ordered documents so
// loaders can replay keys in the order they were written.
package decode

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"

	"gopkg.in/yaml.v3"
)

// Format names the syntax a document was decoded from.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatMap  Format = "map"
)

// Context identifies the payload being decoded in hook calls and errors.
type Context struct {
	Source string
	Format Format
}

func (c Context) String() string {
	if c.Source == "" {
		return string(c.Format)
	}
	return fmt.Sprintf("%s %q", c.Format, c.Source)
}

// Entry is one key of a mapping.
type Entry struct {
	Key   string
	Value any
}

// Document is a mapping that keeps key order. Nested mappings are Documents,
// sequences are []any.
type Document []Entry

// Lookup returns the value of the first entry named key.
func (d Document) Lookup(key string) (any, bool) {
	for _, entry := range d {
		if entry.Key == key {
			return entry.Value, true
		}
	}
	return nil, false
}

// Keys returns the entry keys in document order.
func (d Document) Keys() []string {
	keys := make([]string, 0, len(d))
	for _, entry := range d {
		keys = append(keys, entry.Key)
	}
	return keys
}

// Map converts d into nested plain maps. Later duplicates win.
func (d Document) Map() map[string]any {
	out := make(map[string]any, len(d))
	for _, entry := range d {
		out[entry.Key] = Plain(entry.Value)
	}
	return out
}

// Plain converts Documents nested anywhere in value into plain maps.
func Plain(value any) any {
	switch typed := value.(type) {
	case Document:
		return typed.Map()
	case []any:
		out := make([]any, len(typed))
		for i, item := range typed {
			out[i] = Plain(item)
		}
		return out
	default:
		return value
	}
}

// ErrNotMapping indicates a payload whose top level is not a mapping.
var ErrNotMapping = errors.New("decode: top level must be a mapping")

// PreHook lets callers mutate or normalise the document before it is handed
// to the loader.
type PreHook func(Context, Document) (Document, error)

// Option configures a Decoder instance.
type Option func(*Decoder)

// Decoder converts payloads into ordered Documents.
type Decoder struct {
	preHooks  []PreHook
	useNumber bool
}

// WithPreHook applies hook after decoding.
func WithPreHook(hook PreHook) Option {
	return func(d *Decoder) {
		if hook != nil {
			d.preHooks = append(d.preHooks, hook)
		}
	}
}

// WithUseNumber keeps JSON numbers as json.Number.
func WithUseNumber() Option {
	return func(d *Decoder) {
		d.useNumber = true
	}
}

// NewDecoder builds a Decoder.
func NewDecoder(opts ...Option) *Decoder {
	d := &Decoder{}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// JSON decodes a single JSON object from r.
func (d *Decoder) JSON(ctx Context, r io.Reader) (Document, error) {
	ctx.Format = FormatJSON
	if r == nil {
		return nil, fmt.Errorf("decode: %s: reader is nil", ctx)
	}
	dec := json.NewDecoder(r)
	if d.useNumber {
		dec.UseNumber()
	}

	value, err := decodeJSONValue(dec)
	if err != nil {
		return nil, fmt.Errorf("decode: %s: %w", ctx, err)
	}
	doc, ok := value.(Document)
	if !ok {
		return nil, fmt.Errorf("decode: %s: %w", ctx, ErrNotMapping)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("decode: %s: trailing data after object", ctx)
	}
	return d.finish(ctx, doc)
}

func decodeJSONValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	delim, ok := tok.(json.Delim)
	if !ok {
		return tok, nil
	}

	switch delim {
	case '{':
		doc := Document{}
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return nil, err
			}
			key, ok := keyTok.(string)
			if !ok {
				return nil, fmt.Errorf("unexpected object key %v", keyTok)
			}
			value, err := decodeJSONValue(dec)
			if err != nil {
				return nil, err
			}
			doc = append(doc, Entry{Key: key, Value: value})
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return doc, nil
	case '[':
		list := []any{}
		for dec.More() {
			value, err := decodeJSONValue(dec)
			if err != nil {
				return nil, err
			}
			list = append(list, value)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return list, nil
	default:
		return nil, fmt.Errorf("unexpected delimiter %q", delim)
	}
}

// YAML decodes the first document of data. An empty payload yields an empty
// Document.
func (d *Decoder) YAML(ctx Context, data []byte) (Document, error) {
	ctx.Format = FormatYAML
	var root yaml.Node
	if err := yaml.NewDecoder(bytes.NewReader(data)).Decode(&root); err != nil {
		if errors.Is(err, io.EOF) {
			return d.finish(ctx, Document{})
		}
		return nil, fmt.Errorf("decode: %s: %w", ctx, err)
	}

	node := &root
	if node.Kind == yaml.DocumentNode {
		if len(node.Content) == 0 {
			return d.finish(ctx, Document{})
		}
		node = node.Content[0]
	}
	value, err := convertYAML(node)
	if err != nil {
		return nil, fmt.Errorf("decode: %s: %w", ctx, err)
	}
	doc, ok := value.(Document)
	if !ok {
		if value == nil {
			return d.finish(ctx, Document{})
		}
		return nil, fmt.Errorf("decode: %s: %w", ctx, ErrNotMapping)
	}
	return d.finish(ctx, doc)
}

func convertYAML(node *yaml.Node) (any, error) {
	switch node.Kind {
	case yaml.AliasNode:
		return convertYAML(node.Alias)
	case yaml.MappingNode:
		doc := make(Document, 0, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			key, valueNode := node.Content[i], node.Content[i+1]
			value, err := convertYAML(valueNode)
			if err != nil {
				return nil, err
			}
			if key.Tag == "!!merge" {
				merged, ok := value.(Document)
				if !ok {
					return nil, fmt.Errorf("line %d: merge value must be a mapping", key.Line)
				}
				doc = append(doc, merged...)
				continue
			}
			doc = append(doc, Entry{Key: key.Value, Value: value})
		}
		return doc, nil
	case yaml.SequenceNode:
		list := make([]any, 0, len(node.Content))
		for _, item := range node.Content {
			value, err := convertYAML(item)
			if err != nil {
				return nil, err
			}
			list = append(list, value)
		}
		return list, nil
	case yaml.ScalarNode:
		var value any
		if err := node.Decode(&value); err != nil {
			return nil, fmt.Errorf("line %d: %w", node.Line, err)
		}
		return value, nil
	default:
		return nil, fmt.Errorf("line %d: unsupported node kind %d", node.Line, node.Kind)
	}
}

// Map converts payload into a Document. Keys are ordered lexically since Go
// maps carry no order.
func (d *Decoder) Map(ctx Context, payload map[string]any) (Document, error) {
	ctx.Format = FormatMap
	if payload == nil {
		return nil, fmt.Errorf("decode: %s: payload is nil", ctx)
	}
	return d.finish(ctx, FromMap(payload))
}

// FromMap converts payload into a Document with lexically sorted keys.
func FromMap(payload map[string]any) Document {
	keys := make([]string, 0, len(payload))
	for key := range payload {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	doc := make(Document, 0, len(keys))
	for _, key := range keys {
		doc = append(doc, Entry{Key: key, Value: fromAny(payload[key])})
	}
	return doc
}

func fromAny(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		return FromMap(typed)
	case map[any]any:
		converted := make(map[string]any, len(typed))
		for key, item := range typed {
			converted[fmt.Sprint(key)] = item
		}
		return FromMap(converted)
	case []any:
		out := make([]any, len(typed))
		for i, item := range typed {
			out[i] = fromAny(item)
		}
		return out
	default:
		return value
	}
}

func (d *Decoder) finish(ctx Context, doc Document) (Document, error) {
	for _, hook := range d.preHooks {
		next, err := hook(ctx, doc)
		if err != nil {
			return nil, fmt.Errorf("decode: %s: pre-hook failed: %w", ctx, err)
		}
		if next != nil {
			doc = next
		}
	}
	return doc, nil
}
