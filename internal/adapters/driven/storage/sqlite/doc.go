// Package sqlite provides a SQLite-backed implementation of driven.DocumentIndex.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. Knowledge rows and their embeddings
// live in a single table; nearest-neighbour search is a brute-force cosine scan
// over the rows that pass the title filter.
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
//
// # Data Location
//
// By default, the database is stored at ~/.bidscribe/data/knowledge.db
//
// # Thread Safety
//
// All operations are thread-safe. The store runs SQLite in WAL mode; Flush
// checkpoints the write-ahead log so that readers on other connections see
// every committed write.
package sqlite
