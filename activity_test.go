package hive

import (
	"context"
	"errors"
	"testing"

	"github.com/goliatone/go-hive/pkg/activity"
)

func TestActivityHooksReceiveMutations(t *testing.T) {
	capture := &activity.CaptureHook{}
	root := New(
		WithActivityHooks(activity.Hooks{capture, nil}),
		WithActivityChannel("config"),
		WithActivityActor(activity.Actor{ActorID: "svc", TenantID: "acme"}),
	)

	_ = root.Set("app.name", "hive")
	_ = root.Set("app.name", "hive2")
	_, _ = root.Get("app.name")
	_, _ = root.Delete("app.name")

	want := []string{
		activity.VerbNodeCreated,
		activity.VerbValueCreated,
		activity.VerbValueUpdated,
		activity.VerbValueDeleted,
	}
	got := capture.Verbs()
	if len(got) != len(want) {
		t.Fatalf("expected verbs %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected verbs %v, got %v", want, got)
		}
	}

	node := capture.Events[0]
	if node.ObjectType != activity.ObjectTypeNode || node.ObjectID != "app" {
		t.Fatalf("unexpected node event %+v", node)
	}
	updated := capture.Events[2]
	if updated.ObjectID != "app.name" || updated.Channel != "config" {
		t.Fatalf("unexpected update event %+v", updated)
	}
	if updated.ActorID != "svc" || updated.TenantID != "acme" {
		t.Fatalf("expected actor applied, got %+v", updated)
	}
	if updated.Metadata["old_value"] != "hive" || updated.Metadata["new_value"] != "hive2" {
		t.Fatalf("unexpected update metadata %+v", updated.Metadata)
	}
	if capture.Events[3].Metadata["old_value"] != "hive2" {
		t.Fatalf("unexpected delete metadata %+v", capture.Events[3].Metadata)
	}
}

func TestActivityDefaultChannelAndCallables(t *testing.T) {
	capture := &activity.CaptureHook{}
	root := New(WithActivityHooks(activity.Hooks{capture}))

	_ = root.Set("factory", Secure(func() (any, error) { return 1, nil }))

	event := capture.Events[0]
	if event.Channel != activity.DefaultChannel {
		t.Fatalf("expected default channel, got %q", event.Channel)
	}
	if event.Metadata["new_value"] != "<callable>" {
		t.Fatalf("expected callable placeholder, got %+v", event.Metadata)
	}
}

func TestActivityHookErrorsAreLogged(t *testing.T) {
	boom := errors.New("sink down")
	var logged []LogEvent
	root := New(
		WithActivityHooks(activity.Hooks{activity.HookFunc(func(context.Context, activity.Event) error {
			return boom
		})}),
		WithLogger(LoggerFunc(func(event LogEvent) {
			if event.Op == "activity" {
				logged = append(logged, event)
			}
		})),
	)

	if err := root.Set("a", 1); err != nil {
		t.Fatalf("expected hook error not returned, got %v", err)
	}
	if len(logged) != 1 || !errors.Is(logged[0].Err, boom) || logged[0].Path != "a" {
		t.Fatalf("expected hook error logged, got %+v", logged)
	}
}

func TestActivityDisabledWithoutHooks(t *testing.T) {
	root := New(WithActivityHooks(activity.Hooks{nil}))
	if root.Observers().Len() != 0 {
		t.Fatalf("expected no activity observer without hooks")
	}
}
