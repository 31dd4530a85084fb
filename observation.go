package hive

import (
	"reflect"
)

// Stage tags the lifecycle event an Observation was produced for.
type Stage string

const (
	// StageGet fires after a value was resolved by Get.
	StageGet Stage = "get"
	// StageSet fires when Set stores a key that did not exist yet.
	StageSet Stage = "set"
	// StageReplace fires when Set overwrites an existing key.
	StageReplace Stage = "replace"
	// StageDelete fires when Delete removes a key.
	StageDelete Stage = "delete"
	// StageCreate fires when a child node is materialized.
	StageCreate Stage = "create"
	// StageDeclaration fires after a validator accepted a value.
	StageDeclaration Stage = "declaration"
)

// Observation is the payload handed to observers. It is built once per
// notification and passed by value.
type Observation struct {
	Source   Node
	Stage    Stage
	Token    string
	Value    any
	Previous any
}

// Path returns the absolute path of the observed key or node.
func (o Observation) Path() string {
	if !o.Source.Valid() {
		return o.Token
	}
	base := o.Source.Path()
	switch {
	case base == "":
		return o.Token
	case o.Token == "":
		return base
	default:
		return base + Divider + o.Token
	}
}

// Context returns the contextual data as a map, mirroring what the stage
// carries: token and value, plus the previous value for replacements and
// deletions.
func (o Observation) Context() map[string]any {
	ctx := map[string]any{"value": o.Value}
	if o.Token != "" {
		ctx["token"] = o.Token
	}
	if o.Stage == StageReplace || o.Stage == StageDelete {
		ctx["previous"] = o.Previous
	}
	return ctx
}

// Observer reacts to observations. Observers inspect Stage to decide whether
// an observation is relevant to them.
type Observer interface {
	Observe(Observation)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Observation)

// Observe implements Observer.
func (f ObserverFunc) Observe(o Observation) {
	if f != nil {
		f(o)
	}
}

type queueEntry struct {
	id       uint64
	observer Observer
}

// ObserverQueue is an ordered set of observers shared by every node of a tree.
// It is not safe for concurrent use.
type ObserverQueue struct {
	entries []queueEntry
	nextID  uint64
}

// NewObserverQueue returns a queue holding observers in attachment order.
func NewObserverQueue(observers ...Observer) *ObserverQueue {
	q := &ObserverQueue{}
	for _, observer := range observers {
		q.Attach(observer)
	}
	return q
}

// Attach appends observer and returns a function detaching exactly this
// attachment. Nil observers are ignored.
func (q *ObserverQueue) Attach(observer Observer) func() {
	if q == nil || observer == nil {
		return func() {}
	}
	q.nextID++
	id := q.nextID
	q.entries = append(q.entries, queueEntry{id: id, observer: observer})
	return func() {
		q.remove(func(entry queueEntry) bool { return entry.id == id })
	}
}

// Detach removes the first attachment of observer. Observers that are not
// comparable (plain ObserverFunc values) can only be removed through the
// function returned by Attach.
func (q *ObserverQueue) Detach(observer Observer) bool {
	if q == nil || observer == nil {
		return false
	}
	return q.remove(func(entry queueEntry) bool { return sameObserver(entry.observer, observer) })
}

// Len returns the number of attached observers. A nil queue is empty.
func (q *ObserverQueue) Len() int {
	if q == nil {
		return 0
	}
	return len(q.entries)
}

// Notify hands observation to every observer in attachment order. Observers
// attached or detached while notifying take effect on the next notification.
func (q *ObserverQueue) Notify(observation Observation) {
	if q.Len() == 0 {
		return
	}
	snapshot := make([]queueEntry, len(q.entries))
	copy(snapshot, q.entries)
	for _, entry := range snapshot {
		entry.observer.Observe(observation)
	}
}

func (q *ObserverQueue) remove(match func(queueEntry) bool) bool {
	for i, entry := range q.entries {
		if match(entry) {
			q.entries = append(q.entries[:i:i], q.entries[i+1:]...)
			return true
		}
	}
	return false
}

func sameObserver(a, b Observer) bool {
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || !ta.Comparable() {
		return false
	}
	return a == b
}

// CaptureObserver records observations for assertions in tests and examples.
type CaptureObserver struct {
	Observations []Observation
}

// Observe records the observation.
func (c *CaptureObserver) Observe(o Observation) {
	c.Observations = append(c.Observations, o)
}

// Count returns how many observations carried stage. An empty stage counts
// every observation.
func (c *CaptureObserver) Count(stage Stage) int {
	if stage == "" {
		return len(c.Observations)
	}
	total := 0
	for _, o := range c.Observations {
		if o.Stage == stage {
			total++
		}
	}
	return total
}

// Reset drops recorded observations.
func (c *CaptureObserver) Reset() {
	c.Observations = nil
}
