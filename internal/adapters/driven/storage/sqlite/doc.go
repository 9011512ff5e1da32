// Package sqlite provides the persistent index store.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. One database file backs two port
// interfaces:
//
//   - IndexStore: encoded documents with their embeddings and metadata
//   - FingerprintStore: the snapshot digest recorded after the last full reindex
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
//
// # Data Location
//
// By default, the database is stored at ~/.quasar/data/index.db
//
// # Thread Safety
//
// Replace runs as a single transaction. In WAL mode readers keep seeing the
// previous document set until it commits, so a query never observes a
// half-built index.
package sqlite
