// Package store persists trending aggregates in a relational database.
//
// Two backends implement Store:
//
//   - SQLite (default): a single file under a storage directory that is
//     created on first use
//   - PostgreSQL: selected when a database URL is configured
//
// Append is all-or-nothing per batch. Every write runs in one transaction
// together with its load_history row, so a failed or cancelled batch leaves
// no trace and its year stays eligible for the next run.
//
// Records are never updated or deleted by this package.
package store
