// Package hive implements a hierarchical, path-addressed value store.
//
// A hive is a tree of named nodes. Every node owns its child nodes and a map
// of keys to values, and every operation is addressed through a dotted query
// string:
//
//	root := hive.New()
//	_ = root.Set("database.primary.host", "db.local")
//	host, _ := root.Get("database.primary.host")
//
// Queries are case-insensitive and surrounding dividers or whitespace are
// ignored. A query starting with the root sigil (~) is resolved against the
// root of the tree, regardless of the node it was issued on:
//
//	child, _, _ := root.Node("database", true)
//	_ = child.Set("~debug", true) // stored on root, not on database
//
// Two behaviours are layered on top of raw storage. Observers attached to a
// tree receive an Observation for reads, writes, replacements, deletions,
// node creation and applied declarations. Declarative trees (NewDeclarative)
// route every incoming value through a per-key Validator, or the node's
// default one, before it is stored.
//
// Values are either plain, deferred (invoked on every Get, never cached) or
// secured (the callable itself is returned by Get). Zero argument functions
// handed to Set are deferred:
//
//	_ = root.Set("now", func() any { return time.Now() })
//	_ = root.Set("factory", hive.Secure(newClient))
//
// A hive is not safe for concurrent use.
package hive
