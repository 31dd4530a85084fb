package hive

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// ValueAsIs prefixes snapshot keys whose content is one stored value even
// though it looks like a subtree (a map) or starts with the marker itself.
const ValueAsIs = "!"

// Snapshot returns the subtree rooted at n as nested maps that Import can
// restore without loss. It differs from Export in one way: value keys holding
// a map[string]any, or starting with ValueAsIs, carry the ValueAsIs prefix so
// they are not mistaken for child nodes.
func (n Node) Snapshot() (map[string]any, error) {
	if !n.Valid() {
		return nil, wrapQueryError("snapshot", "", errDetached)
	}
	return n.snapshot()
}

func (n Node) snapshot() (map[string]any, error) {
	e := n.entry()
	out := make(map[string]any, len(e.values)+len(e.children))
	for name, id := range e.children {
		child, err := n.at(id).snapshot()
		if err != nil {
			return nil, err
		}
		out[name] = child
	}
	for key, value := range e.values {
		resolved, err := value.resolve()
		if err != nil {
			return nil, fmt.Errorf("hive: snapshot %s: %w", joinPath(n.Path(), key), err)
		}
		if _, isMap := resolved.(map[string]any); isMap || strings.HasPrefix(key, ValueAsIs) {
			key = ValueAsIs + key
		}
		out[key] = resolved
	}
	return out, nil
}

// Import stores snapshot below n. Maps become child nodes, keys prefixed with
// ValueAsIs are stored as one value under the unprefixed key, and Callables
// are stored secured. Declarations are not run: the snapshot holds values
// that were already validated when they were first set. Observers are
// notified as for any write.
func (n Node) Import(snapshot map[string]any) error {
	if !n.Valid() {
		return wrapQueryError("import", "", errDetached)
	}
	start := time.Now()
	err := n.importMap(snapshot)
	n.arena.log("import", n.Path(), start, err)
	return err
}

func (n Node) importMap(snapshot map[string]any) error {
	keys := make([]string, 0, len(snapshot))
	for key := range snapshot {
		keys = append(keys, key)
	}
	slices.Sort(keys)

	for _, key := range keys {
		raw := snapshot[key]
		if token, asIs := strings.CutPrefix(key, ValueAsIs); asIs {
			if err := n.importValue(token, raw); err != nil {
				return err
			}
			continue
		}
		if nested, ok := raw.(map[string]any); ok {
			token, err := importToken(key)
			if err != nil {
				return err
			}
			child, err := n.materialize(token)
			if err != nil {
				return wrapQueryError("import", key, err)
			}
			if err := child.importMap(nested); err != nil {
				return err
			}
			continue
		}
		if err := n.importValue(key, raw); err != nil {
			return err
		}
	}
	return nil
}

func (n Node) importValue(key string, raw any) error {
	token, err := importToken(key)
	if err != nil {
		return err
	}
	value := Plain(raw)
	if fn, ok := raw.(Callable); ok {
		value = Secure(fn)
	}
	n.store(token, value)
	return nil
}

func importToken(key string) (string, error) {
	token := NormalizeKey(key)
	if token == "" || strings.Contains(token, Divider) || strings.HasPrefix(token, RootSigil) {
		return "", wrapQueryError("import", key, fmt.Errorf("%w: snapshot keys must be single tokens", ErrInvalidQuery))
	}
	return token, nil
}
