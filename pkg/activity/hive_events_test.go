package activity

import "testing"

func TestBuildValueUpdatedEventCarriesValues(t *testing.T) {
	meta := map[string]any{"custom": "value"}
	input := ValueEventInput{
		Actor:    Actor{ActorID: " actor ", UserID: " user ", TenantID: " tenant "},
		Channel:  " hive ",
		Path:     "app.name",
		Token:    "name",
		OldValue: "old",
		NewValue: "new",
		Metadata: meta,
	}

	event := BuildValueUpdatedEvent(input)

	if event.Verb != VerbValueUpdated {
		t.Fatalf("expected verb %s got %s", VerbValueUpdated, event.Verb)
	}
	if event.ObjectType != ObjectTypeValue || event.ObjectID != "app.name" {
		t.Fatalf("unexpected object fields: %+v", event)
	}
	if event.ActorID != "actor" || event.UserID != "user" || event.TenantID != "tenant" || event.Channel != "hive" {
		t.Fatalf("unexpected identity fields: %+v", event)
	}
	if event.Metadata["path"] != "app.name" || event.Metadata["token"] != "name" {
		t.Fatalf("expected path metadata, got %+v", event.Metadata)
	}
	if event.Metadata["old_value"] != "old" || event.Metadata["new_value"] != "new" {
		t.Fatalf("expected old/new values, got %+v", event.Metadata)
	}
	if event.Metadata["custom"] != "value" {
		t.Fatalf("expected custom metadata passthrough, got %+v", event.Metadata)
	}
	event.Metadata["custom"] = "changed"
	if meta["custom"] != "value" {
		t.Fatalf("expected input metadata untouched")
	}
}

func TestBuildValueDeletedEventOmitsNilValues(t *testing.T) {
	event := BuildValueDeletedEvent(ValueEventInput{Path: "a.b", OldValue: 1})
	if _, ok := event.Metadata["new_value"]; ok {
		t.Fatalf("expected new_value omitted, got %+v", event.Metadata)
	}
	if event.Metadata["old_value"] != 1 {
		t.Fatalf("expected old_value, got %+v", event.Metadata)
	}
}

func TestBuildNodeCreatedEventFallbackObjectID(t *testing.T) {
	event := BuildNodeCreatedEvent(ValueEventInput{})
	if event.ObjectType != ObjectTypeNode || event.ObjectID != ObjectTypeNode {
		t.Fatalf("expected fallback object ID %q, got %+v", ObjectTypeNode, event)
	}
	if event.Verb != VerbNodeCreated {
		t.Fatalf("unexpected verb %q", event.Verb)
	}
	if event.Metadata != nil {
		t.Fatalf("expected nil metadata, got %+v", event.Metadata)
	}
}

func TestBuildValueCreatedEventUsesTokenWhenPathMissing(t *testing.T) {
	event := BuildValueCreatedEvent(ValueEventInput{Token: "name", NewValue: "x"})
	if event.ObjectID != "name" || event.Verb != VerbValueCreated {
		t.Fatalf("unexpected event: %+v", event)
	}
}
