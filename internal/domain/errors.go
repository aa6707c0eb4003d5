/**
 * @description
 * Typed error taxonomy shared by the service and API layers. Every operation
 * either returns a success value or one of these error kinds, so handlers can
 * map failures to HTTP statuses with errors.As and nothing gets swallowed.
 */

package domain

import "fmt"

// ConfigurationError indicates required configuration (aggregation
// credentials, database URL) was missing at startup. It is fatal; the process
// must not proceed into any aggregation-service call.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Reason
}

// ValidationError indicates caller-supplied input violated a stated
// constraint. Nothing is persisted when one is returned.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

// ExternalServiceError wraps a failed call to the aggregation service.
type ExternalServiceError struct {
	Op  string
	Err error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("aggregation service %s failed: %v", e.Op, e.Err)
}

func (e *ExternalServiceError) Unwrap() error { return e.Err }

// PersistenceError wraps a storage-layer failure. The operation's
// transactional scope has been rolled back by the time it is returned.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s failed: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// PartialSyncFailure indicates one or more accounts failed during a sync run
// that still completed for the unaffected accounts. The embedded report
// distinguishes succeeded from failed accounts.
type PartialSyncFailure struct {
	Report SyncReport
}

func (e *PartialSyncFailure) Error() string {
	return fmt.Sprintf("sync completed with %d of %d accounts failed",
		e.Report.AccountsFailed, e.Report.AccountsAttempted)
}
