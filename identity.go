package hive

import (
	"fmt"
	"strings"
)

// Identity binds a node that is about to be created to its parent and name.
// It is consumed by FromIdentity and cannot be reused afterwards.
type Identity struct {
	parent   Node
	name     string
	fallback Validator
	consumed bool
}

// NewIdentity prepares the identity of a child of parent. The name is trimmed
// and must not be empty. fallback is the default validator handed down to
// the child; it may be nil.
func NewIdentity(parent Node, name string, fallback Validator) (*Identity, error) {
	if !parent.Valid() {
		return nil, fmt.Errorf("%w: identity requires a parent node", ErrUnknownEntity)
	}
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return nil, ErrEmptyNodeName
	}
	return &Identity{
		parent:   parent,
		name:     trimmed,
		fallback: fallback,
	}, nil
}

// Parent returns the node the identity binds to.
func (i *Identity) Parent() Node { return i.parent }

// Name returns the trimmed node name.
func (i *Identity) Name() string { return i.name }

// DefaultValidator returns the validator inherited from the parent, if any.
func (i *Identity) DefaultValidator() Validator { return i.fallback }

// Consumed reports whether a node was already built from this identity.
func (i *Identity) Consumed() bool { return i.consumed }

func (i *Identity) consume() error {
	if i.consumed {
		return fmt.Errorf("%w: %q", ErrIdentityConsumed, i.name)
	}
	i.consumed = true
	return nil
}

// FromIdentity builds the node described by identity inside its parent's
// tree. The node is linked to the parent but not registered as one of its
// children; Node(path, true) does that when it materializes a path. A nil
// observers queue gives the node a fresh, empty queue.
func FromIdentity(identity *Identity, observers *ObserverQueue) (Node, error) {
	if identity == nil {
		return Node{}, ErrEmptyNodeName
	}
	if err := identity.consume(); err != nil {
		return Node{}, err
	}
	if observers == nil {
		observers = NewObserverQueue()
	}
	parent := identity.parent
	id := parent.arena.allocate(identity.name, parent.id, observers, identity.fallback)
	return Node{arena: parent.arena, id: id}, nil
}
