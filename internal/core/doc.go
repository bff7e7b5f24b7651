// Package core provides the record-table engine behind the plan editor.
//
// It holds all domain logic independent of any UI or transport layer. The
// web server, the REST client and the CLI drive the same controllers, so a
// row added through any of them is sanitized, derived and checked the same
// way.
//
// # Architecture
//
// The package is organized around several key concepts:
//
//   - Table Definitions: Registered via the registry, each table has columns,
//     duplicate rules and an optional row ceiling.
//   - Table Controller: Sorting, filtering, column visibility and the
//     add/edit/delete pipeline over a [TableAdapter].
//   - Single-Entry Controller: Dirty tracking for free-text fields over a
//     [SingleEntryAdapter].
//   - Service: Server-side entry point binding controllers to a [Store].
//   - Audit: Logging of every data modification.
//
// # Table Registry
//
// Tables are registered at init time using [Register], normally from the
// YAML catalog in package tables:
//
//	core.Register(TableDefinition{
//	    Info: TableInfo{Section: "M9", Key: "risk_register", Label: "Risk Register",
//	        UniqueFields: []string{"risk_id"}},
//	    Columns: []Column{
//	        {Key: "risk_id", Label: "Risk ID", Kind: KindNumeric},
//	        {Key: "probability", Kind: KindDecimal},
//	    },
//	})
//
// # Write Pipeline
//
// Every add or edit runs the same steps before reaching the adapter:
//
//  1. Date columns are normalized to YYYY-MM-DD
//  2. Numeric and decimal columns are sanitized
//  3. Derived columns are recomputed
//  4. The duplicate guard checks unique fields, whole rows and sequential IDs
//
// A failure at any step leaves the controller's state unchanged.
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each error category has a unique code for support reference:
//
//   - DB001-DB007: Database errors (constraints, connections, timeouts)
//   - VAL001-VAL005: Validation errors (duplicates, values, request bodies)
//   - TBL001-TBL006: Table errors (missing rows, row limits, editor state)
//   - REQ001-REQ002: Cancelled or timed-out requests
//   - RATE001-RATE002: Too many requests or concurrent writes
//   - PRJ001-PRJ002: Unknown or already existing projects
//
// # Audit Logging
//
// All data modifications are recorded in the audit log with severity levels:
//
//   - Low: Single-entry saves
//   - Medium: Row creates and updates
//   - High: Batch edits, row deletions
//
// Entries older than the configured retention are purged by
// [Service.StartAuditPurgeScheduler].
package core
