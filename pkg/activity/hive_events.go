package activity

import (
	"strings"
	"time"
)

const (
	// VerbValueCreated is emitted when a key is stored for the first time.
	VerbValueCreated = "hive.value.created"
	// VerbValueUpdated is emitted when an existing key is overwritten.
	VerbValueUpdated = "hive.value.updated"
	// VerbValueDeleted is emitted when a key is removed.
	VerbValueDeleted = "hive.value.deleted"
	// VerbNodeCreated is emitted when a node is materialized.
	VerbNodeCreated = "hive.node.created"

	// ObjectTypeValue tags events about value keys.
	ObjectTypeValue = "hive.value"
	// ObjectTypeNode tags events about nodes.
	ObjectTypeNode = "hive.node"
)

// ValueEventInput describes the common fields for tree lifecycle events.
type ValueEventInput struct {
	Actor      Actor
	Channel    string
	Path       string
	Token      string
	OldValue   any
	NewValue   any
	Metadata   map[string]any
	OccurredAt time.Time
}

// BuildValueCreatedEvent constructs an event for a key stored for the first time.
func BuildValueCreatedEvent(input ValueEventInput) Event {
	return buildHiveEvent(VerbValueCreated, ObjectTypeValue, input)
}

// BuildValueUpdatedEvent constructs an event for an overwritten key.
func BuildValueUpdatedEvent(input ValueEventInput) Event {
	return buildHiveEvent(VerbValueUpdated, ObjectTypeValue, input)
}

// BuildValueDeletedEvent constructs an event for a removed key.
func BuildValueDeletedEvent(input ValueEventInput) Event {
	return buildHiveEvent(VerbValueDeleted, ObjectTypeValue, input)
}

// BuildNodeCreatedEvent constructs an event for a materialized node.
func BuildNodeCreatedEvent(input ValueEventInput) Event {
	return buildHiveEvent(VerbNodeCreated, ObjectTypeNode, input)
}

func buildHiveEvent(verb, objectType string, input ValueEventInput) Event {
	metadata := CloneMetadata(input.Metadata)
	if input.Path != "" {
		metadata = ensureMetadata(metadata)
		metadata["path"] = input.Path
	}
	if input.Token != "" {
		metadata = ensureMetadata(metadata)
		metadata["token"] = input.Token
	}
	if input.OldValue != nil {
		metadata = ensureMetadata(metadata)
		metadata["old_value"] = input.OldValue
	}
	if input.NewValue != nil {
		metadata = ensureMetadata(metadata)
		metadata["new_value"] = input.NewValue
	}

	objectID := strings.TrimSpace(input.Path)
	if objectID == "" {
		objectID = strings.TrimSpace(input.Token)
	}
	if objectID == "" {
		objectID = objectType
	}

	return Event{
		Verb:       verb,
		ActorID:    strings.TrimSpace(input.Actor.ActorID),
		UserID:     strings.TrimSpace(input.Actor.UserID),
		TenantID:   strings.TrimSpace(input.Actor.TenantID),
		ObjectType: objectType,
		ObjectID:   objectID,
		Channel:    strings.TrimSpace(input.Channel),
		Metadata:   metadata,
		OccurredAt: input.OccurredAt,
	}
}

func ensureMetadata(meta map[string]any) map[string]any {
	if meta == nil {
		return map[string]any{}
	}
	return meta
}
