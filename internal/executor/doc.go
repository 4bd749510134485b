// Package executor implements a concurrent GraphQL executor with support for
// incremental delivery (@defer/@stream) and subscription mapping.
//
// # Overview
//
// The executor walks a parsed operation document against a schema and
// produces a {data, errors} result. It is designed to:
//   - Resolve sibling fields of an object concurrently, one goroutine per
//     response key, while mutation root fields run strictly in document order.
//   - Complete values per the GraphQL rules (lists, leafs, objects, abstract
//     types), including Non-Null null-propagation to the nearest nullable
//     ancestor.
//   - Accumulate located errors {message, locations, path} while allowing
//     partial success; error order is deterministic regardless of resolver
//     completion order.
//   - Preserve response key order: object keys appear exactly in the order
//     the merged selection set first names them.
//
// # Preparation
//
// Before execution, the executor:
//  1. Chooses the operation (by name, or by uniqueness when unnamed).
//  2. Coerces variables against the operation's variable definitions.
//     Errors here are request errors: nothing executes and data is null.
//  3. Builds an execution context: schema, document, coerced variables, root
//     value and, for incremental requests, the patch publisher.
//
// # Field Collection
//
// collectFields groups a selection set by response key, evaluating
// @skip/@include against coerced variables, inlining fragment spreads and
// inline fragments whose type condition matches, and deduplicating fragment
// spreads per level. Under ExecuteIncremental, fragments carrying a live
// @defer are split into separate bundles that execute after the initial
// payload is complete.
//
// # Incremental Delivery
//
// ExecuteIncremental returns an initial result plus a pull-based patch
// sequence. Each deferred fragment and each streamed list item becomes a
// record in a forest owned by the request's publisher; a record's patch is
// emitted only after its parent's patch (the initial payload for top-level
// records), and stream items are released strictly in index order. The final
// patch carries hasNext=false. Closing the sequence cancels outstanding
// work without invoking further resolvers.
//
// ExecuteRequest ignores @defer and @stream entirely; they are delivery
// hints and never change the final data shape.
//
// # Subscriptions
//
// Subscribe resolves the single subscription root field's event source
// once, then maps each source event to one complete execution of the
// selection set with the event as the root value. Events are pulled
// lazily and per-event errors do not terminate the stream.
package executor
