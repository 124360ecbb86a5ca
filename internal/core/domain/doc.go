// Package domain defines the core business entities for lettermerge.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Record / Table: Rows read from the input spreadsheet
//   - FieldMapping: How input columns reach template tokens
//   - SubstitutionPlan: Everything needed to render one record
//   - Region: A located piece of text on a fixed-layout page
//   - BatchRun: One execution of the generator, as recorded in the ledger
//   - DeliveryTask: A rendered document waiting to be mailed
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
