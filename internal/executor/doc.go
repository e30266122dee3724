// Package executor coordinates one script execution against a graph
// database: it binds the graph, runs the evaluator, normalizes the result and
// owns the transaction boundary.
//
// # Transactions
//
// A Coordinator never holds locks of its own. When the context passed to
// Execute carries a transaction (see graph.NewContext), the script joins it
// and the caller decides whether to commit. Otherwise the coordinator opens a
// transaction on the database, commits it after a successful normalization
// and rolls it back on any failure, so a failed script leaves no partial
// writes behind. Reads never block: every transaction starts from the latest
// committed snapshot, and only the first write waits for the store's single
// writer slot.
//
// # Lifecycle
//
// Each execution moves through
//
//	Idle -> Bound -> Evaluating -> Normalizing -> Done
//
// and may move to Failed from any state before Done. Transitions outside this
// graph are programming errors and panic. A panic anywhere in an execution
// is recovered into a failure whose kind follows the phase that panicked.
//
// # Failures
//
// Failures never escape as Go errors. They are reported on the
// ExecutionResult with one of four kinds:
//
//   - EvaluationError: the script did not parse, raised a runtime error, was
//     empty, was cancelled, or panicked.
//   - NotFoundError: a step was applied to a vertex or edge id that does not
//     exist. A bare lookup of a missing id is not a failure; it yields null.
//   - UnrepresentableResultError: the result has no canonical form, such as a
//     closure.
//   - TransactionError: the auto-commit transaction could not be opened or
//     committed, or its commit hook panicked.
//
// # Concurrency
//
// A Coordinator keeps no per-execution state and may be shared by any number
// of goroutines. Each execution gets a fresh binding namespace, so variables
// assigned by one script are never visible to another.
package executor
