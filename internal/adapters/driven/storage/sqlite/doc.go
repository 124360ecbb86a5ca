// Package sqlite provides the SQLite-backed batch ledger.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. It implements two store interfaces
// through a single database connection:
//
//   - BatchRunStore: one row per batch run, updated on every state change
//   - DeliveryLedger: one row per delivery attempt
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
//
// # Data Location
//
// By default, the database is stored at ~/.lettermerge/data/ledger.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode, so delivery workers can record outcomes while a batch
// is still saving its state.
package sqlite
