// Package loader fills a hive tree from JSON, YAML, plain maps or viper
// settings. Loaders only use Node.Set and Node.Node, so declarations and
// observers on the target tree apply to loaded values like to any other
// write.
package loader

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/goliatone/go-hive"
	"github.com/goliatone/go-hive/internal/decode"
	"github.com/spf13/viper"
)

// ValueAsIs prefixes keys whose mapping or sequence is stored as one value
// instead of being expanded into child nodes.
const ValueAsIs = hive.ValueAsIs

// ErrNoSource indicates a loader was built without anything to load.
var ErrNoSource = errors.New("loader: no source")

// Loader injects its data into a node.
type Loader interface {
	InjectInto(node hive.Node) error
}

// Option configures how payloads are read and decoded.
type Option func(*options)

type options struct {
	readFile  func(name string) ([]byte, error)
	useNumber bool
}

// WithFS reads files from fsys instead of the operating system.
func WithFS(fsys fs.FS) Option {
	return func(o *options) {
		if fsys == nil {
			return
		}
		o.readFile = func(name string) ([]byte, error) {
			return fs.ReadFile(fsys, name)
		}
	}
}

// WithUseNumber keeps JSON numbers as json.Number.
func WithUseNumber() Option {
	return func(o *options) {
		o.useNumber = true
	}
}

func applyOptions(opts []Option) options {
	o := options{readFile: os.ReadFile}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

func (o options) decoder() *decode.Decoder {
	var decodeOpts []decode.Option
	if o.useNumber {
		decodeOpts = append(decodeOpts, decode.WithUseNumber())
	}
	return decode.NewDecoder(decodeOpts...)
}

// documentLoader replays a decoded document into a node.
type documentLoader struct {
	doc decode.Document
}

func (l documentLoader) InjectInto(node hive.Node) error {
	if !node.Valid() {
		return fmt.Errorf("loader: inject: %w", hive.ErrUnknownEntity)
	}
	return inject(node, l.doc)
}

// Map loads data in lexical key order. Nested map[string]any values become
// nodes.
func Map(data map[string]any) Loader {
	if data == nil {
		return documentLoader{}
	}
	return documentLoader{doc: decode.FromMap(data)}
}

// JSON decodes a JSON object.
func JSON(data []byte, opts ...Option) (Loader, error) {
	o := applyOptions(opts)
	doc, err := o.decoder().JSON(decode.Context{}, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return documentLoader{doc: doc}, nil
}

// JSONFile reads and decodes the JSON file at path. When path does not exist
// the same path with a ".json" suffix is tried.
func JSONFile(path string, opts ...Option) (Loader, error) {
	o := applyOptions(opts)
	data, source, err := readWithFallback(o, path, ".json")
	if err != nil {
		return nil, err
	}
	doc, err := o.decoder().JSON(decode.Context{Source: source}, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return documentLoader{doc: doc}, nil
}

// YAML decodes the first document of a YAML payload.
func YAML(data []byte, opts ...Option) (Loader, error) {
	o := applyOptions(opts)
	doc, err := o.decoder().YAML(decode.Context{}, data)
	if err != nil {
		return nil, err
	}
	return documentLoader{doc: doc}, nil
}

// YAMLFile reads and decodes the YAML file at path, trying ".yaml" and ".yml"
// suffixes when path does not exist.
func YAMLFile(path string, opts ...Option) (Loader, error) {
	o := applyOptions(opts)
	data, source, err := readWithFallback(o, path, ".yaml", ".yml")
	if err != nil {
		return nil, err
	}
	doc, err := o.decoder().YAML(decode.Context{Source: source}, data)
	if err != nil {
		return nil, err
	}
	return documentLoader{doc: doc}, nil
}

// File picks JSONFile or YAMLFile from the extension of path. Paths without a
// known extension are treated as JSON.
func File(path string, opts ...Option) (Loader, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return YAMLFile(path, opts...)
	default:
		return JSONFile(path, opts...)
	}
}

// Viper loads v.AllSettings() when InjectInto runs. Nested sections become
// nodes.
func Viper(v *viper.Viper) Loader {
	return viperLoader{v: v}
}

type viperLoader struct {
	v *viper.Viper
}

func (l viperLoader) InjectInto(node hive.Node) error {
	if l.v == nil {
		return fmt.Errorf("loader: viper: %w", ErrNoSource)
	}
	return Map(l.v.AllSettings()).InjectInto(node)
}

func readWithFallback(o options, path string, suffixes ...string) ([]byte, string, error) {
	if strings.TrimSpace(path) == "" {
		return nil, "", fmt.Errorf("loader: %w: empty path", ErrNoSource)
	}
	data, err := o.readFile(path)
	if err == nil {
		return data, path, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, "", fmt.Errorf("loader: read %q: %w", path, err)
	}
	for _, suffix := range suffixes {
		candidate := path + suffix
		if data, retryErr := o.readFile(candidate); retryErr == nil {
			return data, candidate, nil
		}
	}
	return nil, "", fmt.Errorf("loader: read %q: %w", path, err)
}

func inject(node hive.Node, doc decode.Document) error {
	for _, entry := range doc {
		if err := injectEntry(node, entry.Key, entry.Value); err != nil {
			return err
		}
	}
	return nil
}

func injectEntry(node hive.Node, rawKey string, value any) error {
	key := strings.ReplaceAll(rawKey, hive.RootSigil, "")
	asIs := strings.HasPrefix(key, ValueAsIs)

	if !asIs {
		switch typed := value.(type) {
		case decode.Document:
			child, err := materialize(node, rawKey, key)
			if err != nil {
				return err
			}
			return inject(child, typed)
		case []any:
			child, err := materialize(node, rawKey, key)
			if err != nil {
				return err
			}
			for i, item := range typed {
				if err := injectEntry(child, strconv.Itoa(i), item); err != nil {
					return err
				}
			}
			return nil
		}
	}

	if err := node.Set(strings.TrimPrefix(key, ValueAsIs), decode.Plain(value)); err != nil {
		return fmt.Errorf("loader: key %q: %w", rawKey, err)
	}
	return nil
}

func materialize(node hive.Node, rawKey, key string) (hive.Node, error) {
	child, _, err := node.Node(key, true)
	if err != nil {
		return hive.Node{}, fmt.Errorf("loader: key %q: %w", rawKey, err)
	}
	return child, nil
}
