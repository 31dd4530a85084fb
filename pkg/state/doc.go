// Package state persists hive tree snapshots and rebuilds trees from them.
//
// A Store loads and saves one snapshot for one Ref. Snapshots are the nested
// maps produced by hive.Node.Snapshot and restored with hive.Node.Import,
// which stores values without running declarations again. The Resolver rebuilds a tree from the
// snapshots of several scopes, weakest first, so stronger scopes overwrite
// the keys they set and inherit everything else.
//
// Data flow:
//
//	Store -> Resolver.Resolve -> hive.Node
//	hive.Node -> Resolver.Save / Resolver.Mutate -> Store
//
// Deterministic keys:
//
//	Ref.Identifier() renders "system/<domain>" for the system scope and
//	"<scope>/<id>/<domain>" for every other scope.
package state
