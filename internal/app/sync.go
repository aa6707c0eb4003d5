/**
 * @description
 * Transaction synchronizer. Every run walks all linked accounts, fetches the
 * rolling lookback window from the aggregation service, and inserts only
 * transactions whose external id has not been seen before. One account
 * failing never stops the run; failures are collected into the report.
 */

package app

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Adamhepburn/WealthWise/internal/domain"
	"github.com/Adamhepburn/WealthWise/internal/store"
	"github.com/Adamhepburn/WealthWise/pkg/aggclient"
	"github.com/Adamhepburn/WealthWise/pkg/rabbitmq"
)

// SyncTransactions synchronizes all linked accounts. It returns the run
// report together with a *domain.PartialSyncFailure when at least one
// account failed; the report is valid in both cases.
func (s *Service) SyncTransactions(ctx context.Context) (domain.SyncReport, error) {
	s.syncMu.Lock()
	defer s.syncMu.Unlock()

	var report domain.SyncReport

	creds, err := s.repo.ListAccountCredentials(ctx)
	if err != nil {
		return report, &domain.PersistenceError{Op: "list_account_credentials", Err: err}
	}

	end := s.now().UTC()
	start := end.AddDate(0, 0, -s.lookbackDays)

	for _, cred := range creds {
		report.AccountsAttempted++

		inserted, err := s.syncAccount(ctx, cred, start, end)
		if err != nil {
			report.AccountsFailed++
			report.Failures = append(report.Failures, domain.AccountSyncFailure{
				AccountID:  cred.AccountID,
				ExternalID: cred.ExternalID,
				Error:      err.Error(),
			})
			s.logger.Error("account sync failed", "external_id", cred.ExternalID, "error", err)
			continue
		}
		report.TransactionsInserted += inserted
	}

	s.publishSyncReport(ctx, report)

	if report.AccountsFailed > 0 {
		return report, &domain.PartialSyncFailure{Report: report}
	}
	return report, nil
}

// syncAccount fetches and stores one account's window. The insert batch and
// the last_sync stamp share one storage transaction; last_sync advances even
// when nothing new was found.
func (s *Service) syncAccount(ctx context.Context, cred store.AccountCredential, start, end time.Time) (int, error) {
	external, err := s.agg.GetTransactions(ctx, cred.AccessToken, start, end)
	if err != nil {
		return 0, &domain.ExternalServiceError{Op: "get_transactions", Err: err}
	}

	txs := make([]domain.Transaction, 0, len(external))
	for _, e := range external {
		t, err := convertExternalTransaction(e)
		if err != nil {
			return 0, &domain.ExternalServiceError{Op: "get_transactions", Err: err}
		}
		txs = append(txs, t)
	}

	inserted, err := s.repo.StoreAccountTransactions(ctx, cred.AccountID, txs, s.now().UTC())
	if err != nil {
		return 0, &domain.PersistenceError{Op: "store_account_transactions", Err: err}
	}
	return inserted, nil
}

// convertExternalTransaction maps one aggregation-service transaction to the
// domain model. An absent category list becomes the Uncategorized bucket;
// merchant falls back to the transaction name when the service sends none.
func convertExternalTransaction(e aggclient.ExternalTransaction) (domain.Transaction, error) {
	date, err := time.Parse("2006-01-02", e.Date)
	if err != nil {
		return domain.Transaction{}, err
	}
	amount, err := decimal.NewFromString(e.Amount.String())
	if err != nil {
		return domain.Transaction{}, err
	}

	category := domain.Uncategorized
	if len(e.Category) > 0 && e.Category[0] != "" {
		category = e.Category[0]
	}

	merchant := e.MerchantName
	if merchant == "" {
		merchant = e.Name
	}

	return domain.Transaction{
		ExternalID:  e.ID,
		Date:        date,
		Amount:      amount,
		Category:    category,
		Merchant:    merchant,
		Description: e.Name,
	}, nil
}

func (s *Service) publishSyncReport(ctx context.Context, report domain.SyncReport) {
	if s.producer == nil || s.eventExchange == "" {
		return
	}
	event := rabbitmq.SyncReportEvent{
		AccountsAttempted:    report.AccountsAttempted,
		AccountsFailed:       report.AccountsFailed,
		TransactionsInserted: report.TransactionsInserted,
		Timestamp:            s.now().UTC(),
	}
	if err := s.producer.Publish(ctx, s.eventExchange, s.eventRoutingKey, event); err != nil {
		s.logger.Warn("sync report publish failed", "error", err)
	}
}
