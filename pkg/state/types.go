package state

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	hive "github.com/goliatone/go-hive"
	"github.com/google/uuid"
)

var (
	ErrETagMismatch = errors.New("state: etag mismatch")
	ErrNoSnapshot   = errors.New("state: no snapshot found")
)

// Recommended priorities for common scopes. Higher numbers win.
const (
	PrioritySystem = 100
	PriorityTenant = 200
	PriorityUser   = 300
)

// Snapshot is the form of a tree produced by hive.Node.Snapshot and read
// back by hive.Node.Import.
type Snapshot = map[string]any

// Scope names a precedence bucket. ID identifies the owner for every scope
// but "system".
type Scope struct {
	Name     string
	ID       string
	Priority int
}

// System returns the system scope.
func System() Scope {
	return Scope{Name: "system", Priority: PrioritySystem}
}

// Tenant returns the scope of tenant id.
func Tenant(id string) Scope {
	return Scope{Name: "tenant", ID: id, Priority: PriorityTenant}
}

// User returns the scope of user id.
func User(id string) Scope {
	return Scope{Name: "user", ID: id, Priority: PriorityUser}
}

// Ref identifies one persisted snapshot for one domain.
type Ref struct {
	Domain string
	Scope  Scope
}

// Identifier renders the canonical storage key of r.
func (r Ref) Identifier() (string, error) {
	if r.Domain == "" {
		return "", fmt.Errorf("state: domain is required")
	}
	switch r.Scope.Name {
	case "":
		return "", fmt.Errorf("state: scope name is required")
	case "system":
		return fmt.Sprintf("system/%s", r.Domain), nil
	default:
		if r.Scope.ID == "" {
			return "", fmt.Errorf("state: missing id for scope %q", r.Scope.Name)
		}
		return fmt.Sprintf("%s/%s/%s", r.Scope.Name, r.Scope.ID, r.Domain), nil
	}
}

// Meta is storage-owned metadata used for audit and concurrency control.
type Meta struct {
	SnapshotID string            `json:"snapshot_id,omitempty"`
	ETag       string            `json:"etag,omitempty"`
	UpdatedAt  time.Time         `json:"updated_at,omitempty"`
	Extra      map[string]string `json:"extra,omitempty"`
}

// Store loads and saves one snapshot for a single Ref.
type Store interface {
	Load(ctx context.Context, ref Ref) (snapshot Snapshot, meta Meta, ok bool, err error)
	Save(ctx context.Context, ref Ref, snapshot Snapshot, meta Meta) (Meta, error)
}

// Mutator edits a restored tree before it is saved again.
type Mutator func(hive.Node) error

// Resolver rebuilds trees from a Store. Options configure every tree it
// creates; Prepare runs on the fresh root before any snapshot is restored,
// which is where declarations belong. Restored values skip declarations, so
// they only apply to writes made after the restore.
type Resolver struct {
	Store   Store
	Options []hive.Option
	Prepare func(hive.Node) error
}

// Resolve restores the snapshots of scopes into one tree, weakest scope
// first. Scopes without a snapshot are skipped; ErrNoSnapshot is returned
// when none has one.
func (r Resolver) Resolve(ctx context.Context, domain string, scopes ...Scope) (hive.Node, error) {
	if r.Store == nil {
		return hive.Node{}, fmt.Errorf("state: store is required")
	}
	if domain == "" {
		return hive.Node{}, fmt.Errorf("state: domain is required")
	}

	ordered := slices.Clone(scopes)
	slices.SortStableFunc(ordered, func(a, b Scope) int { return a.Priority - b.Priority })

	root, err := r.newTree()
	if err != nil {
		return hive.Node{}, err
	}
	found := false
	for _, scope := range ordered {
		snapshot, _, ok, err := r.Store.Load(ctx, Ref{Domain: domain, Scope: scope})
		if err != nil {
			return hive.Node{}, fmt.Errorf("state: load %q for scope %q: %w", domain, scope.Name, err)
		}
		if !ok {
			continue
		}
		found = true
		if err := root.Import(snapshot); err != nil {
			return hive.Node{}, fmt.Errorf("state: restore %q for scope %q: %w", domain, scope.Name, err)
		}
	}
	if !found {
		return hive.Node{}, fmt.Errorf("%w: domain %q", ErrNoSnapshot, domain)
	}
	return root, nil
}

// Save snapshots node and stores it under ref. Missing SnapshotID, ETag and
// UpdatedAt are filled in.
func (r Resolver) Save(ctx context.Context, ref Ref, node hive.Node, meta Meta) (Meta, error) {
	if r.Store == nil {
		return Meta{}, fmt.Errorf("state: store is required")
	}
	if _, err := ref.Identifier(); err != nil {
		return Meta{}, err
	}
	snapshot, err := node.Snapshot()
	if err != nil {
		return Meta{}, err
	}
	saved, err := r.Store.Save(ctx, ref, snapshot, stamp(meta))
	if err != nil {
		return Meta{}, fmt.Errorf("state: save %q for scope %q: %w", ref.Domain, ref.Scope.Name, err)
	}
	return saved, nil
}

// Mutate loads the snapshot of ref into a fresh tree, applies fn and saves
// the result. When meta carries an ETag it must match the stored one.
// Validation errors raised while fn writes abort the mutation and nothing is
// saved.
func (r Resolver) Mutate(ctx context.Context, ref Ref, meta Meta, fn Mutator) (hive.Node, Meta, error) {
	if r.Store == nil {
		return hive.Node{}, Meta{}, fmt.Errorf("state: store is required")
	}
	if _, err := ref.Identifier(); err != nil {
		return hive.Node{}, Meta{}, err
	}
	if fn == nil {
		return hive.Node{}, Meta{}, fmt.Errorf("state: mutator is required")
	}

	snapshot, loaded, ok, err := r.Store.Load(ctx, ref)
	if err != nil {
		return hive.Node{}, Meta{}, fmt.Errorf("state: load %q for scope %q: %w", ref.Domain, ref.Scope.Name, err)
	}
	if !ok {
		loaded = Meta{}
	}
	if meta.ETag != "" && loaded.ETag != "" && meta.ETag != loaded.ETag {
		return hive.Node{}, loaded, fmt.Errorf("%w: expected %q, got %q", ErrETagMismatch, meta.ETag, loaded.ETag)
	}

	root, err := r.newTree()
	if err != nil {
		return hive.Node{}, loaded, err
	}
	if err := root.Import(snapshot); err != nil {
		return hive.Node{}, loaded, fmt.Errorf("state: restore %q for scope %q: %w", ref.Domain, ref.Scope.Name, err)
	}
	if err := fn(root); err != nil {
		return hive.Node{}, loaded, err
	}

	saved, err := r.Save(ctx, ref, root, Meta{Extra: mergeExtra(loaded.Extra, meta.Extra)})
	if err != nil {
		return hive.Node{}, loaded, err
	}
	return root, saved, nil
}

func (r Resolver) newTree() (hive.Node, error) {
	root := hive.New(r.Options...)
	if r.Prepare != nil {
		if err := r.Prepare(root); err != nil {
			return hive.Node{}, fmt.Errorf("state: prepare: %w", err)
		}
	}
	return root, nil
}

func stamp(meta Meta) Meta {
	if meta.SnapshotID == "" {
		meta.SnapshotID = uuid.NewString()
	}
	if meta.ETag == "" {
		meta.ETag = uuid.NewString()
	}
	if meta.UpdatedAt.IsZero() {
		meta.UpdatedAt = time.Now().UTC()
	}
	return meta
}

// mergeExtra keeps the stored extras unless the caller supplied its own.
func mergeExtra(stored, override map[string]string) map[string]string {
	if override != nil {
		return override
	}
	return stored
}
