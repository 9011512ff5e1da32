// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - DatasetProvider: Loads a snapshot of tabular records (Google Sheets, CSV)
//   - IndexStore: Document and vector persistence with similarity query
//   - FingerprintStore: Last indexed snapshot digest
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - EmbeddingService: Generates vector embeddings. Without it, context building
//     is deterministic-only and reindexing is refused.
//   - DatasetWatcher: Change notifications. Without it, reloads happen on demand.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
