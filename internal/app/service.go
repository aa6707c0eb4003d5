/**
 * @description
 * This file contains the core application service for the ledger. It owns
 * the account-linking flow (link token issuance and public-token exchange)
 * and holds the dependencies shared by the synchronizer, aggregator, and
 * manual-entry writers defined in the sibling files.
 *
 * @dependencies
 * - context, sync, time: Standard Go libraries.
 * - internal/domain, internal/store: Domain models and persistence contract.
 * - pkg/aggclient, pkg/rabbitmq: External collaborators.
 */

package app

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/Adamhepburn/WealthWise/internal/domain"
	"github.com/Adamhepburn/WealthWise/internal/store"
	"github.com/Adamhepburn/WealthWise/pkg/aggclient"
	"github.com/Adamhepburn/WealthWise/pkg/rabbitmq"
)

// ErrLinkTokenRateLimited is returned when a user exceeds the configured
// link-token issuance rate.
var ErrLinkTokenRateLimited = errors.New("link token requests rate limited")

// AggregationClient is the subset of the aggregation-service client used by
// the service. Declared here so tests can substitute a stub.
type AggregationClient interface {
	CreateLinkToken(ctx context.Context, userID string) (string, error)
	ExchangePublicToken(ctx context.Context, publicToken string) (string, error)
	GetTransactions(ctx context.Context, accessToken string, start, end time.Time) ([]aggclient.ExternalTransaction, error)
}

// RateLimiter counts requests per scope/subject within a window. A nil
// limiter disables rate limiting.
type RateLimiter interface {
	ConsumeRateLimit(ctx context.Context, scope, subject string, limit int, window time.Duration) (count int, retryAfterSeconds int, err error)
}

// Service implements the ledger core: account linking, transaction
// synchronization, aggregates, and manual entries.
type Service struct {
	repo     store.Repository
	agg      AggregationClient
	producer rabbitmq.Publisher
	logger   *slog.Logger

	lookbackDays int
	now          func() time.Time

	eventExchange   string
	eventRoutingKey string

	linkRateLimiter   RateLimiter
	linkRatePerMinute int

	// Serializes sync runs within the process to preserve the dedup
	// invariant under concurrent triggers (HTTP endpoint + cron job).
	syncMu sync.Mutex
}

// NewService creates the ledger service. producer may be nil when event
// publishing is disabled.
func NewService(repo store.Repository, agg AggregationClient, producer rabbitmq.Publisher, logger *slog.Logger, lookbackDays int) *Service {
	if lookbackDays <= 0 {
		lookbackDays = 30
	}
	return &Service{
		repo:         repo,
		agg:          agg,
		producer:     producer,
		logger:       logger,
		lookbackDays: lookbackDays,
		now:          time.Now,
	}
}

// SetEventRouting configures where sync-report events are published.
func (s *Service) SetEventRouting(exchange, routingKey string) {
	s.eventExchange = exchange
	s.eventRoutingKey = routingKey
}

// SetLinkTokenRateLimiter enables per-user rate limiting on link-token
// issuance.
func (s *Service) SetLinkTokenRateLimiter(limiter RateLimiter, perMinute int) {
	s.linkRateLimiter = limiter
	s.linkRatePerMinute = perMinute
}

// CreateLinkToken requests a short-lived link token for the given user from
// the aggregation service and returns it unchanged.
func (s *Service) CreateLinkToken(ctx context.Context, userID string) (string, error) {
	if strings.TrimSpace(userID) == "" {
		return "", &domain.ValidationError{Field: "user_id", Reason: "must not be empty"}
	}

	if s.linkRateLimiter != nil && s.linkRatePerMinute > 0 {
		count, _, err := s.linkRateLimiter.ConsumeRateLimit(ctx, "link_token", userID, s.linkRatePerMinute, time.Minute)
		if err != nil {
			s.logger.Warn("link token rate limit check failed, allowing request", "user_id", userID, "error", err)
		} else if count > s.linkRatePerMinute {
			return "", ErrLinkTokenRateLimited
		}
	}

	token, err := s.agg.CreateLinkToken(ctx, userID)
	if err != nil {
		return "", &domain.ExternalServiceError{Op: "create_link_token", Err: err}
	}
	return token, nil
}

// ExchangeAndLink exchanges a public token once for a durable access
// credential and persists one LinkedAccount per metadata entry, atomically.
// If persistence fails after a successful exchange the credential is still
// valid upstream; the failure is reported rather than accounts being
// silently dropped.
func (s *Service) ExchangeAndLink(ctx context.Context, publicToken string, accountsMeta []domain.AccountMetadata) ([]domain.LinkedAccount, error) {
	if strings.TrimSpace(publicToken) == "" {
		return nil, &domain.ValidationError{Field: "public_token", Reason: "must not be empty"}
	}
	if len(accountsMeta) == 0 {
		return nil, &domain.ValidationError{Field: "accounts", Reason: "must not be empty"}
	}
	for _, meta := range accountsMeta {
		if strings.TrimSpace(meta.ExternalID) == "" {
			return nil, &domain.ValidationError{Field: "accounts", Reason: "every account needs an external id"}
		}
	}

	accessToken, err := s.agg.ExchangePublicToken(ctx, publicToken)
	if err != nil {
		return nil, &domain.ExternalServiceError{Op: "exchange_public_token", Err: err}
	}

	accounts := make([]domain.LinkedAccount, 0, len(accountsMeta))
	for _, meta := range accountsMeta {
		accounts = append(accounts, domain.LinkedAccount{
			ExternalID:  meta.ExternalID,
			Name:        meta.Name,
			AccountType: meta.AccountType,
			Institution: meta.Institution,
		})
	}

	created, err := s.repo.CreateLinkedAccounts(ctx, accessToken, accounts)
	if err != nil {
		// The exchange already consumed the public token; record that no
		// account row was written so the caller can retry linking cleanly.
		s.logger.Error("token exchanged but no accounts persisted",
			"accounts_requested", len(accountsMeta), "accounts_persisted", 0, "error", err)
		return nil, &domain.PersistenceError{Op: "create_linked_accounts", Err: err}
	}

	s.logger.Info("accounts linked", "count", len(created))
	return created, nil
}

// ListLinkedAccounts returns all linked accounts, without credentials.
func (s *Service) ListLinkedAccounts(ctx context.Context) ([]domain.LinkedAccount, error) {
	accounts, err := s.repo.ListLinkedAccounts(ctx)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "list_linked_accounts", Err: err}
	}
	return accounts, nil
}
