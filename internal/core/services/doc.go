// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// The aggregation engine reads the live snapshot directly and never touches
// the index, so aggregate answers stay correct while an index is stale.
// Services are pure Go with no CGO and no adapter imports.
package services
