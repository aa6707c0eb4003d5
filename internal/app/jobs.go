/**
 * @description
 * Scheduled job implementations.
 */
package app

import (
	"context"
	"errors"
	"log/slog"

	"github.com/Adamhepburn/WealthWise/internal/domain"
)

// Jobs contains the logic for all scheduled tasks.
type Jobs struct {
	service *Service
	logger  *slog.Logger
}

// NewJobs creates a new Jobs runner.
func NewJobs(service *Service, logger *slog.Logger) *Jobs {
	return &Jobs{service: service, logger: logger}
}

// RunTransactionSync runs one full synchronization pass over all linked
// accounts. A partial failure is logged but does not abort the schedule.
func (j *Jobs) RunTransactionSync() {
	j.logger.Info("starting scheduled transaction sync")
	ctx := context.Background()

	report, err := j.service.SyncTransactions(ctx)
	if err != nil {
		var partial *domain.PartialSyncFailure
		if errors.As(err, &partial) {
			j.logger.Warn("scheduled transaction sync completed with failures",
				"accounts_attempted", report.AccountsAttempted,
				"accounts_failed", report.AccountsFailed,
				"transactions_inserted", report.TransactionsInserted)
			return
		}
		j.logger.Error("scheduled transaction sync failed", "error", err)
		return
	}

	j.logger.Info("scheduled transaction sync finished",
		"accounts_attempted", report.AccountsAttempted,
		"transactions_inserted", report.TransactionsInserted)
}
