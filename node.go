package hive

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

type nodeID int

const noParent nodeID = -1

// arena owns every node entry of one tree. Entries reference their parent by
// index and own their children through the children map.
type arena struct {
	entries      []*entry
	declarative  bool
	logger       Logger
	evaluator    Evaluator
	programCache ProgramCache
	functions    *FunctionRegistry
	functionsErr error
}

type entry struct {
	name         string
	parent       nodeID
	children     map[string]nodeID
	values       map[string]Value
	observers    *ObserverQueue
	declarations map[string]Validator
	fallback     Validator
}

func (a *arena) allocate(name string, parent nodeID, observers *ObserverQueue, fallback Validator) nodeID {
	a.entries = append(a.entries, &entry{
		name:      name,
		parent:    parent,
		children:  map[string]nodeID{},
		values:    map[string]Value{},
		observers: observers,
		fallback:  fallback,
	})
	return nodeID(len(a.entries) - 1)
}

// Node is a handle on one node of a tree. Handles are small values; two
// handles are equal when they address the same node. The zero Node is not
// attached to any tree.
type Node struct {
	arena *arena
	id    nodeID
}

// Valid reports whether n is attached to a tree.
func (n Node) Valid() bool {
	return n.arena != nil && int(n.id) >= 0 && int(n.id) < len(n.arena.entries)
}

func (n Node) entry() *entry {
	return n.arena.entries[n.id]
}

func (n Node) at(id nodeID) Node {
	return Node{arena: n.arena, id: id}
}

// Has reports whether path addresses a stored value. Missing intermediate
// nodes resolve to false.
func (n Node) Has(path string) (bool, error) {
	if !n.Valid() {
		return false, wrapQueryError("has", path, errDetached)
	}
	start := time.Now()
	ok, err := n.has(path)
	err = wrapQueryError("has", path, err)
	n.arena.log("has", path, start, err)
	return ok, err
}

// Get resolves path to its value. Deferred values are invoked, secured values
// are returned as their Callable.
func (n Node) Get(path string) (any, error) {
	if !n.Valid() {
		return nil, wrapQueryError("get", path, errDetached)
	}
	start := time.Now()
	value, err := n.get(path)
	err = wrapQueryError("get", path, err)
	n.arena.log("get", path, start, err)
	return value, err
}

// Set stores value under path, creating intermediate nodes as needed. Values
// that are not a Value are stored as plain values. Errors raised by
// validators are returned unmodified.
func (n Node) Set(path string, value any) error {
	if !n.Valid() {
		return wrapQueryError("set", path, errDetached)
	}
	start := time.Now()
	err := n.setAny(path, value)
	err = wrapQueryError("set", path, err)
	n.arena.log("set", path, start, err)
	return err
}

// Node returns the node addressed by path. When createIfNotExists is false a
// missing node yields ok == false and no error; otherwise missing nodes are
// materialized along the way.
func (n Node) Node(path string, createIfNotExists bool) (Node, bool, error) {
	if !n.Valid() {
		return Node{}, false, wrapQueryError("node", path, errDetached)
	}
	start := time.Now()
	node, ok, err := n.node(path, createIfNotExists)
	err = wrapQueryError("node", path, err)
	n.arena.log("node", path, start, err)
	return node, ok, err
}

// Delete removes the value stored under path and reports whether one existed.
func (n Node) Delete(path string) (bool, error) {
	if !n.Valid() {
		return false, wrapQueryError("delete", path, errDetached)
	}
	start := time.Now()
	ok, err := n.delete(path)
	err = wrapQueryError("delete", path, err)
	n.arena.log("delete", path, start, err)
	return ok, err
}

// Secure wraps fn so it is stored and returned uninvoked.
func (n Node) Secure(fn Callable) Value {
	return Secure(fn)
}

var errDetached = fmt.Errorf("%w: node is not attached to a tree", ErrUnknownEntity)

func (n Node) query(path string) (Query, error) {
	return ParseQuery(path, Divider, RootSigil)
}

func (n Node) child(token string) (Node, bool) {
	id, ok := n.entry().children[token]
	if !ok {
		return Node{}, false
	}
	return n.at(id), true
}

func (n Node) has(path string) (bool, error) {
	q, err := n.query(path)
	if err != nil {
		return false, err
	}
	if q.Root {
		return n.Root().has(q.Rootless)
	}
	if !q.IsTerminal() {
		child, ok := n.child(q.First)
		if !ok {
			return false, nil
		}
		return child.has(q.Rest)
	}
	_, ok := n.entry().values[q.First]
	return ok, nil
}

func (n Node) get(path string) (any, error) {
	q, err := n.query(path)
	if err != nil {
		return nil, err
	}
	if q.Root {
		return n.Root().get(q.Rootless)
	}
	if !q.IsTerminal() {
		child, ok := n.child(q.First)
		if !ok {
			return nil, fmt.Errorf("%w: node %q", ErrUnknownEntity, q.First)
		}
		return child.get(q.Rest)
	}

	value, ok := n.entry().values[q.First]
	if !ok {
		return nil, fmt.Errorf("%w: value key %q", ErrUnknownEntity, q.First)
	}
	resolved, err := value.resolve()
	if err != nil {
		return nil, &callbackError{err: err}
	}

	n.update(StageGet, func(o *Observation) {
		o.Token = q.First
		o.Value = resolved
	})
	return resolved, nil
}

func (n Node) setAny(path string, value any) error {
	if _, isNode := value.(Node); isNode {
		return fmt.Errorf("%w: nodes are materialized through Node, not stored as values", ErrIncompatibleValue)
	}
	if _, isNode := value.(*Node); isNode {
		return fmt.Errorf("%w: nodes are materialized through Node, not stored as values", ErrIncompatibleValue)
	}
	return n.set(path, ValueOf(value))
}

func (n Node) set(path string, value Value) error {
	q, err := n.query(path)
	if err != nil {
		return err
	}
	if q.Root {
		return n.Root().set(q.Rootless, value)
	}
	if !q.IsTerminal() {
		child, err := n.materialize(q.First)
		if err != nil {
			return err
		}
		return child.set(q.Rest, value)
	}

	covered, err := n.cover(q.First, value)
	if err != nil {
		return err
	}
	n.store(q.First, covered)
	return nil
}

// store notifies observers about the write and assigns the value.
func (n Node) store(token string, value Value) {
	e := n.entry()
	previous, exists := e.values[token]
	stage := StageSet
	if exists {
		stage = StageReplace
	}
	n.update(stage, func(o *Observation) {
		o.Token = token
		o.Value = value.Raw()
		if exists {
			o.Previous = previous.Raw()
		}
	})
	e.values[token] = value
}

func (n Node) delete(path string) (bool, error) {
	q, err := n.query(path)
	if err != nil {
		return false, err
	}
	if q.Root {
		return n.Root().delete(q.Rootless)
	}
	if !q.IsTerminal() {
		child, ok := n.child(q.First)
		if !ok {
			return false, nil
		}
		return child.delete(q.Rest)
	}

	e := n.entry()
	previous, ok := e.values[q.First]
	if !ok {
		return false, nil
	}
	n.update(StageDelete, func(o *Observation) {
		o.Token = q.First
		o.Previous = previous.Raw()
	})
	delete(e.values, q.First)
	return true, nil
}

func (n Node) node(path string, create bool) (Node, bool, error) {
	q, err := n.query(path)
	if err != nil {
		return Node{}, false, err
	}
	if q.Root {
		return n.Root().node(q.Rootless, create)
	}

	var child Node
	if create {
		child, err = n.materialize(q.First)
		if err != nil {
			return Node{}, false, err
		}
	} else {
		var ok bool
		if child, ok = n.child(q.First); !ok {
			return Node{}, false, nil
		}
	}

	if q.IsTerminal() {
		return child, true, nil
	}
	return child.node(q.Rest, create)
}

// materialize returns the child named token, creating it through an Identity
// when missing. New children share this node's observer queue and inherit
// its current default validator.
func (n Node) materialize(token string) (Node, error) {
	if child, ok := n.child(token); ok {
		return child, nil
	}

	e := n.entry()
	identity, err := NewIdentity(n, token, e.fallback)
	if err != nil {
		return Node{}, fmt.Errorf("%w: %w", ErrInvalidQuery, err)
	}
	child, err := FromIdentity(identity, e.observers)
	if err != nil {
		return Node{}, err
	}
	e.children[token] = child.id

	n.update(StageCreate, func(o *Observation) {
		o.Token = token
		o.Value = child
	})
	return child, nil
}

// update notifies the node's observers. Nothing is allocated when the queue
// is empty.
func (n Node) update(stage Stage, populate func(*Observation)) {
	queue := n.entry().observers
	if queue.Len() == 0 {
		return
	}
	observation := Observation{Source: n, Stage: stage}
	if populate != nil {
		populate(&observation)
	}
	queue.Notify(observation)
}

// Root walks parent links up to the node without a parent.
func (n Node) Root() Node {
	id := n.id
	for {
		parent := n.arena.entries[id].parent
		if parent == noParent {
			return n.at(id)
		}
		id = parent
	}
}

// IsRoot reports whether n is the root of its tree.
func (n Node) IsRoot() bool {
	return n.Root() == n
}

// HasRoot reports whether other is the root of n's tree.
func (n Node) HasRoot(other Node) bool {
	return n.Root() == other
}

// HasParent reports whether n has a parent node.
func (n Node) HasParent() bool {
	return n.entry().parent != noParent
}

// IsParent reports whether other is n's parent.
func (n Node) IsParent(other Node) bool {
	parent, ok := n.Parent()
	return ok && parent == other
}

// Parent returns n's parent node.
func (n Node) Parent() (Node, bool) {
	parent := n.entry().parent
	if parent == noParent {
		return Node{}, false
	}
	return n.at(parent), true
}

// Name returns the node name. The root is anonymous.
func (n Node) Name() string {
	return n.entry().name
}

// Path joins the names from the root down to n. The root has an empty path.
func (n Node) Path() string {
	var names []string
	for id := n.id; id != noParent; id = n.arena.entries[id].parent {
		if name := n.arena.entries[id].name; name != "" {
			names = append(names, name)
		}
	}
	slices.Reverse(names)
	return strings.Join(names, Divider)
}

// Keys returns the value keys stored on n, sorted.
func (n Node) Keys() []string {
	keys := make([]string, 0, len(n.entry().values))
	for key := range n.entry().values {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys
}

// Children returns the names of n's child nodes, sorted.
func (n Node) Children() []string {
	names := make([]string, 0, len(n.entry().children))
	for name := range n.entry().children {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Observers returns the queue n notifies.
func (n Node) Observers() *ObserverQueue {
	return n.entry().observers
}

// WithObservers replaces n's queue. Existing nodes keep their queue; nodes
// materialized from n afterwards share the new one.
func (n Node) WithObservers(queue *ObserverQueue) Node {
	if queue == nil {
		queue = NewObserverQueue()
	}
	n.entry().observers = queue
	return n
}

// Attach adds observer to n's queue and returns a function detaching it.
func (n Node) Attach(observer Observer) func() {
	return n.entry().observers.Attach(observer)
}

// Detach removes observer from n's queue.
func (n Node) Detach(observer Observer) bool {
	return n.entry().observers.Detach(observer)
}

func (n Node) String() string {
	if !n.Valid() {
		return "hive.Node(<detached>)"
	}
	if path := n.Path(); path != "" {
		return fmt.Sprintf("hive.Node(%s)", path)
	}
	return "hive.Node(<root>)"
}
