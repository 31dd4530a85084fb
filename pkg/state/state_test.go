package state_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	hive "github.com/goliatone/go-hive"
	"github.com/goliatone/go-hive/pkg/state"
)

func TestRefIdentifier(t *testing.T) {
	cases := []struct {
		name    string
		ref     state.Ref
		want    string
		wantErr bool
	}{
		{name: "system", ref: state.Ref{Domain: "billing", Scope: state.System()}, want: "system/billing"},
		{name: "tenant", ref: state.Ref{Domain: "billing", Scope: state.Tenant("acme")}, want: "tenant/acme/billing"},
		{name: "user", ref: state.Ref{Domain: "billing", Scope: state.User("u42")}, want: "user/u42/billing"},
		{name: "missing id", ref: state.Ref{Domain: "billing", Scope: state.Scope{Name: "user"}}, wantErr: true},
		{name: "missing domain", ref: state.Ref{Scope: state.System()}, wantErr: true},
		{name: "missing scope", ref: state.Ref{Domain: "billing"}, wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.ref.Identifier()
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("identifier: %v", err)
			}
			if got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestMemoryStoreCopiesSnapshots(t *testing.T) {
	ctx := context.Background()
	store := state.NewMemoryStore()
	ref := state.Ref{Domain: "billing", Scope: state.System()}

	snapshot := state.Snapshot{"limits": map[string]any{"daily": 10}}
	if _, err := store.Save(ctx, ref, snapshot, state.Meta{ETag: "v1", Extra: map[string]string{"by": "ops"}}); err != nil {
		t.Fatalf("save: %v", err)
	}
	snapshot["limits"].(map[string]any)["daily"] = 99

	loaded, meta, ok, err := store.Load(ctx, ref)
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if diff := cmp.Diff(state.Snapshot{"limits": map[string]any{"daily": 10}}, loaded); diff != "" {
		t.Fatalf("snapshot mismatch (-want +got):\n%s", diff)
	}
	meta.Extra["by"] = "someone else"

	_, again, _, _ := store.Load(ctx, ref)
	if again.ETag != "v1" || again.Extra["by"] != "ops" {
		t.Fatalf("stored meta was mutated: %+v", again)
	}

	_, _, ok, err = store.Load(ctx, state.Ref{Domain: "billing", Scope: state.Tenant("acme")})
	if err != nil || ok {
		t.Fatalf("expected missing record, ok=%v err=%v", ok, err)
	}
}

func TestResolverLayersScopesByPriority(t *testing.T) {
	ctx := context.Background()
	store := state.NewMemoryStore()
	save := func(scope state.Scope, snapshot state.Snapshot) {
		t.Helper()
		if _, err := store.Save(ctx, state.Ref{Domain: "billing", Scope: scope}, snapshot, state.Meta{}); err != nil {
			t.Fatalf("save %s: %v", scope.Name, err)
		}
	}
	save(state.System(), state.Snapshot{
		"currency": "usd",
		"limits":   map[string]any{"daily": 10, "monthly": 100},
	})
	save(state.User("u42"), state.Snapshot{
		"limits": map[string]any{"daily": 50},
	})
	save(state.Tenant("acme"), state.Snapshot{
		"currency": "eur",
		"limits":   map[string]any{"daily": 20},
	})

	resolver := state.Resolver{Store: store}
	root, err := resolver.Resolve(ctx, "billing", state.User("u42"), state.System(), state.Tenant("acme"), state.Tenant("missing"))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	got, err := root.Export()
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	want := map[string]any{
		"currency": "eur",
		"limits":   map[string]any{"daily": 50, "monthly": 100},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("resolved tree mismatch (-want +got):\n%s", diff)
	}
}

func TestResolverResolveWithoutSnapshots(t *testing.T) {
	resolver := state.Resolver{Store: state.NewMemoryStore()}
	_, err := resolver.Resolve(context.Background(), "billing", state.System())
	if !errors.Is(err, state.ErrNoSnapshot) {
		t.Fatalf("expected ErrNoSnapshot, got %v", err)
	}
}

func TestResolverSaveStampsMeta(t *testing.T) {
	ctx := context.Background()
	store := state.NewMemoryStore()
	resolver := state.Resolver{Store: store}
	ref := state.Ref{Domain: "billing", Scope: state.System()}

	root := hive.New()
	if err := root.Set("limits.daily", 10); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := root.Set("token", hive.Secure(func() (any, error) { return "s3cret", nil })); err != nil {
		t.Fatalf("set secured: %v", err)
	}

	meta, err := resolver.Save(ctx, ref, root, state.Meta{})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if meta.SnapshotID == "" || meta.ETag == "" || meta.UpdatedAt.IsZero() {
		t.Fatalf("expected stamped meta, got %+v", meta)
	}

	restored, err := resolver.Resolve(ctx, "billing", state.System())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	token, err := restored.Get("token")
	if err != nil {
		t.Fatalf("get token: %v", err)
	}
	fn, ok := token.(hive.Callable)
	if !ok {
		t.Fatalf("expected secured callable, got %T", token)
	}
	if secret, _ := fn(); secret != "s3cret" {
		t.Fatalf("expected secret, got %v", secret)
	}
}

func TestResolverMutate(t *testing.T) {
	ctx := context.Background()
	store := state.NewMemoryStore()
	ref := state.Ref{Domain: "billing", Scope: state.Tenant("acme")}
	initial, err := store.Save(ctx, ref, state.Snapshot{"limits": map[string]any{"daily": 10}}, state.Meta{ETag: "v1"})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	resolver := state.Resolver{Store: store}
	root, meta, err := resolver.Mutate(ctx, ref, state.Meta{ETag: initial.ETag}, func(n hive.Node) error {
		return n.Set("limits.daily", 25)
	})
	if err != nil {
		t.Fatalf("mutate: %v", err)
	}
	if meta.ETag == "" || meta.ETag == "v1" {
		t.Fatalf("expected a fresh etag, got %q", meta.ETag)
	}
	if got, _ := root.Get("limits.daily"); got != 25 {
		t.Fatalf("expected mutated tree, got %v", got)
	}

	snapshot, _, _, _ := store.Load(ctx, ref)
	if diff := cmp.Diff(state.Snapshot{"limits": map[string]any{"daily": 25}}, snapshot); diff != "" {
		t.Fatalf("stored snapshot mismatch (-want +got):\n%s", diff)
	}

	_, _, err = resolver.Mutate(ctx, ref, state.Meta{ETag: "v1"}, func(hive.Node) error { return nil })
	if !errors.Is(err, state.ErrETagMismatch) {
		t.Fatalf("expected ErrETagMismatch, got %v", err)
	}
}

func TestResolverMutateRejectedWriteDoesNotSave(t *testing.T) {
	ctx := context.Background()
	store := state.NewMemoryStore()
	ref := state.Ref{Domain: "billing", Scope: state.User("u42")}
	if _, err := store.Save(ctx, ref, state.Snapshot{"limits": map[string]any{"daily": 10}}, state.Meta{ETag: "v1"}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	resolver := state.Resolver{
		Store:   store,
		Options: []hive.Option{hive.WithDeclarations()},
		Prepare: func(root hive.Node) error {
			return root.EntityAssert("limits.daily", "value >= 0")
		},
	}
	_, meta, err := resolver.Mutate(ctx, ref, state.Meta{}, func(n hive.Node) error {
		return n.Set("limits.daily", -1)
	})
	if !errors.Is(err, hive.ErrRejected) {
		t.Fatalf("expected ErrRejected, got %v", err)
	}
	if meta.ETag != "v1" {
		t.Fatalf("expected loaded meta on failure, got %+v", meta)
	}

	snapshot, stored, _, _ := store.Load(ctx, ref)
	if stored.ETag != "v1" {
		t.Fatalf("expected untouched record, got %+v", stored)
	}
	if diff := cmp.Diff(state.Snapshot{"limits": map[string]any{"daily": 10}}, snapshot); diff != "" {
		t.Fatalf("snapshot mismatch (-want +got):\n%s", diff)
	}
}

func TestResolverRestoreSkipsDeclarations(t *testing.T) {
	ctx := context.Background()
	store := state.NewMemoryStore()
	ref := state.Ref{Domain: "catalog", Scope: state.System()}
	resolver := state.Resolver{
		Store:   store,
		Options: []hive.Option{hive.WithDeclarations()},
		Prepare: func(root hive.Node) error {
			return root.EntityTransform("price", "value * 100")
		},
	}

	root := hive.New(resolver.Options...)
	if err := resolver.Prepare(root); err != nil {
		t.Fatalf("prepare: %v", err)
	}
	if err := root.Set("price", 5); err != nil {
		t.Fatalf("set price: %v", err)
	}
	if _, err := resolver.Save(ctx, ref, root, state.Meta{}); err != nil {
		t.Fatalf("save: %v", err)
	}

	for i, name := range []string{"widget", "gadget"} {
		if _, _, err := resolver.Mutate(ctx, ref, state.Meta{}, func(n hive.Node) error {
			return n.Set("name", name)
		}); err != nil {
			t.Fatalf("mutate %d: %v", i, err)
		}
	}

	resolved, err := resolver.Resolve(ctx, "catalog", state.System())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got, _ := resolved.Get("price"); got != 500 {
		t.Fatalf("expected price 500 after restores, got %v", got)
	}
	if got, _ := resolved.Get("name"); got != "gadget" {
		t.Fatalf("expected name gadget, got %v", got)
	}

	if err := resolved.Set("price", 7); err != nil {
		t.Fatalf("set after restore: %v", err)
	}
	if got, _ := resolved.Get("price"); got != 700 {
		t.Fatalf("expected declarations to apply to new writes, got %v", got)
	}
}

func TestResolverKeepsMapValues(t *testing.T) {
	ctx := context.Background()
	resolver := state.Resolver{Store: state.NewMemoryStore()}
	ref := state.Ref{Domain: "services", Scope: state.Tenant("acme")}

	root := hive.New()
	if err := root.Set("db", map[string]any{"host": "h"}); err != nil {
		t.Fatalf("set db: %v", err)
	}
	if err := root.Set("cache.host", "c"); err != nil {
		t.Fatalf("set cache: %v", err)
	}
	if _, err := resolver.Save(ctx, ref, root, state.Meta{}); err != nil {
		t.Fatalf("save: %v", err)
	}

	resolved, err := resolver.Resolve(ctx, "services", state.Tenant("acme"))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	db, err := resolved.Get("db")
	if err != nil {
		t.Fatalf("get db: %v", err)
	}
	if diff := cmp.Diff(map[string]any{"host": "h"}, db); diff != "" {
		t.Fatalf("db value mismatch (-want +got):\n%s", diff)
	}
	if got, _ := resolved.Get("cache.host"); got != "c" {
		t.Fatalf("expected cache node restored, got %v", got)
	}
	if _, ok, _ := resolved.Node("db", false); ok {
		t.Fatalf("expected db to stay a value, not a node")
	}
}
