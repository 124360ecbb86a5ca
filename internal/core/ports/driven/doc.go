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
//   - LayoutEngine / LayoutDocument: Positional find, blank and insert over a fixed-layout template
//   - TableReader / TableReaderRegistry: Input spreadsheet decoding
//   - ArchiveSink / ArchiveWriter: Named-blob archive packaging
//   - BatchRunStore / DeliveryLedger: Batch and delivery history
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - Sender: Mail transport. Without it, batches produce archives only.
//   - ArchivePublisher: Publishes archives after packaging.
//   - Authorizer: Credential gate for the HTTP surface. Without it, the surface is closed.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
