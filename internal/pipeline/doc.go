// Package pipeline sequences a load run over yearly trending sources.
//
// For each source the Orchestrator resolves the year, asks the Guard whether
// the year is already present, loads and appends the batch, then logs the
// Validator's per-date counts. After the last source it exports the whole
// table once.
//
// Failure scope:
//
//   - a bad row is rejected and counted; the source still loads
//   - a bad source (no year, unreadable, missing columns, failed append) is
//     marked failed; the run continues with the next source
//   - an unreachable store, an unwritable export or a cancelled context
//     aborts the run
//
// Every component receives the store handle through its constructor.
package pipeline
