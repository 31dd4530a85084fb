package usersink_test

import (
	"context"
	"testing"
	"time"

	"github.com/goliatone/go-hive/pkg/activity"
	"github.com/goliatone/go-hive/pkg/activity/usersink"
	usertypes "github.com/goliatone/go-users/pkg/types"
	"github.com/google/uuid"
)

type recordingSink struct {
	records []usertypes.ActivityRecord
	err     error
}

func (s *recordingSink) Log(_ context.Context, record usertypes.ActivityRecord) error {
	s.records = append(s.records, record)
	return s.err
}

func TestHookNotifyMapsEvent(t *testing.T) {
	sink := &recordingSink{}
	hook := usersink.Hook{Sink: sink}

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	actorID := uuid.New()
	userID := uuid.New()
	tenantID := uuid.New()

	event := activity.BuildValueUpdatedEvent(activity.ValueEventInput{
		Actor: activity.Actor{
			ActorID:  actorID.String(),
			UserID:   userID.String(),
			TenantID: tenantID.String(),
		},
		Channel:    "hive",
		Path:       "feature.flag",
		OldValue:   false,
		NewValue:   true,
		OccurredAt: now,
	})

	if err := hook.Notify(context.Background(), event); err != nil {
		t.Fatalf("notify: %v", err)
	}

	if len(sink.records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(sink.records))
	}
	record := sink.records[0]
	if record.ActorID != actorID || record.UserID != userID || record.TenantID != tenantID {
		t.Fatalf("unexpected identity: %+v", record)
	}
	if record.Verb != activity.VerbValueUpdated || record.ObjectType != activity.ObjectTypeValue || record.ObjectID != "feature.flag" {
		t.Fatalf("unexpected record payload: %+v", record)
	}
	if record.Channel != "hive" {
		t.Fatalf("expected channel hive got %q", record.Channel)
	}
	if !record.OccurredAt.Equal(now) {
		t.Fatalf("expected occurred_at %v got %v", now, record.OccurredAt)
	}
	if record.Data["path"] != "feature.flag" || record.Data["new_value"] != true {
		t.Fatalf("expected metadata passthrough got %+v", record.Data)
	}
	if _, ok := record.Data["actor_ref"]; ok {
		t.Fatalf("expected no actor_ref for uuid actors, got %+v", record.Data)
	}
}

func TestHookNotifyKeepsNonUUIDActor(t *testing.T) {
	sink := &recordingSink{}
	hook := usersink.Hook{Sink: sink}

	err := hook.Notify(context.Background(), activity.Event{
		Verb:       activity.VerbNodeCreated,
		ObjectType: activity.ObjectTypeNode,
		ObjectID:   "app",
		ActorID:    "hivectl",
	})
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	record := sink.records[0]
	if record.ActorID != uuid.Nil {
		t.Fatalf("expected nil actor uuid, got %s", record.ActorID)
	}
	if record.Data["actor_ref"] != "hivectl" {
		t.Fatalf("expected actor_ref metadata, got %+v", record.Data)
	}
}

func TestHookNotifySkipsMissingVerb(t *testing.T) {
	sink := &recordingSink{}
	hook := usersink.Hook{Sink: sink}

	_ = hook.Notify(context.Background(), activity.Event{})

	if len(sink.records) != 0 {
		t.Fatalf("expected no records for empty event, got %d", len(sink.records))
	}
}

func TestHookNotifyWithoutSink(t *testing.T) {
	hook := usersink.Hook{}
	if err := hook.Notify(context.Background(), activity.Event{Verb: "x", ObjectType: "y", ObjectID: "z"}); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
}
