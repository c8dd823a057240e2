// Package invalidation keeps live query results current without callers polling.
//
// # Model
//
// A [Query] declares the set of tables it reads and joins the [Tracker] on its
// first subscription. The tracker indexes
// queries by table name. After every committed write the writer calls
// [Tracker.Notify] with the tables it touched; dependent queries are marked dirty
// immediately and those with listeners are queued for re-execution on the
// tracker's own goroutine, so the committing caller never waits for recomputation.
//
// Observed queries are deduplicated by key (SQL text plus arguments): every
// listener of the same query shares one cached result and one execution.
//
// # Delivery
//
// Each [Subscription] first receives the current result, then one further
// [Snapshot] per re-execution. Snapshots are coalesced: a subscriber that falls
// behind only ever sees the latest value, never a backlog, and never a result
// computed before a commit that happened before it subscribed.
//
// # Lifecycle
//
//	unsubscribed -> subscribed(valid) -> subscribed(dirty) -> subscribed(valid) ...
//
// A query with no listeners is not in the registry and holds no cache; [Query.Get]
// executes it directly. When the last listener closes, the query leaves the
// registry and drops its cached rows, so a retained handle never serves rows
// from before a later commit.
package invalidation
