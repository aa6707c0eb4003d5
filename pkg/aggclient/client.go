/**
 * @description
 * This package provides a client for the external financial-data aggregation
 * service. It encapsulates the logic for making authenticated HTTP requests
 * to the service's link-token, token-exchange, and transactions endpoints,
 * handling request body construction and response parsing.
 *
 * The two API credentials are validated eagerly at construction; a missing
 * credential is a configuration fault that must stop the process before any
 * remote call is attempted.
 *
 * @dependencies
 * - bytes, context, encoding/json, fmt, net/http, time: Standard Go libraries.
 */
package aggclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrMissingCredentials is returned by NewClient when either API credential
// is absent.
var ErrMissingCredentials = errors.New("aggregation client id and secret must be configured")

const (
	clientName = "WealthWise"
	dateLayout = "2006-01-02"
)

// Client is a client for the aggregation service API.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client

	clientID string
	secret   string
}

// NewClient creates a new aggregation service client. The credentials are
// checked here, not on first use.
func NewClient(baseURL, clientID, secret string) (*Client, error) {
	if strings.TrimSpace(clientID) == "" || strings.TrimSpace(secret) == "" {
		return nil, ErrMissingCredentials
	}
	return &Client{
		BaseURL:  strings.TrimRight(baseURL, "/"),
		clientID: clientID,
		secret:   secret,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

// ExternalTransaction is one transaction as reported by the aggregation
// service. Amount is kept as a json.Number so no precision is lost before it
// becomes a decimal.
type ExternalTransaction struct {
	ID           string      `json:"transaction_id"`
	AccountID    string      `json:"account_id"`
	Date         string      `json:"date"`
	Amount       json.Number `json:"amount"`
	Category     []string    `json:"category"`
	MerchantName string      `json:"merchant_name"`
	Name         string      `json:"name"`
}

// ErrorResponse represents an error payload from the aggregation service.
type ErrorResponse struct {
	ErrorType    string `json:"error_type"`
	ErrorCode    string `json:"error_code"`
	ErrorMessage string `json:"error_message"`
}

func (e *ErrorResponse) Error() string {
	if e.ErrorCode == "" && e.ErrorMessage == "" {
		return "unknown aggregation api error"
	}
	return fmt.Sprintf("aggregation api error: %s - %s", e.ErrorCode, e.ErrorMessage)
}

type linkTokenCreateRequest struct {
	ClientID     string        `json:"client_id"`
	Secret       string        `json:"secret"`
	ClientName   string        `json:"client_name"`
	User         linkTokenUser `json:"user"`
	Products     []string      `json:"products"`
	CountryCodes []string      `json:"country_codes"`
	Language     string        `json:"language"`
}

type linkTokenUser struct {
	ClientUserID string `json:"client_user_id"`
}

type linkTokenCreateResponse struct {
	LinkToken string `json:"link_token"`
}

// CreateLinkToken requests a short-lived link token scoped to the fixed
// product set, to be handed to the client-side link widget.
func (c *Client) CreateLinkToken(ctx context.Context, userID string) (string, error) {
	payload := linkTokenCreateRequest{
		ClientID:     c.clientID,
		Secret:       c.secret,
		ClientName:   clientName,
		User:         linkTokenUser{ClientUserID: userID},
		Products:     []string{"auth", "transactions"},
		CountryCodes: []string{"US"},
		Language:     "en",
	}

	var resp linkTokenCreateResponse
	if err := c.post(ctx, "/link/token/create", payload, &resp); err != nil {
		return "", err
	}
	if resp.LinkToken == "" {
		return "", fmt.Errorf("malformed link token response: empty link_token")
	}
	return resp.LinkToken, nil
}

type exchangeRequest struct {
	ClientID    string `json:"client_id"`
	Secret      string `json:"secret"`
	PublicToken string `json:"public_token"`
}

type exchangeResponse struct {
	AccessToken string `json:"access_token"`
	ItemID      string `json:"item_id"`
}

// ExchangePublicToken exchanges the temporary public token returned by the
// link widget for a durable access token.
func (c *Client) ExchangePublicToken(ctx context.Context, publicToken string) (string, error) {
	payload := exchangeRequest{
		ClientID:    c.clientID,
		Secret:      c.secret,
		PublicToken: publicToken,
	}

	var resp exchangeResponse
	if err := c.post(ctx, "/item/public_token/exchange", payload, &resp); err != nil {
		return "", err
	}
	if resp.AccessToken == "" {
		return "", fmt.Errorf("malformed exchange response: empty access_token")
	}
	return resp.AccessToken, nil
}

type transactionsGetRequest struct {
	ClientID    string `json:"client_id"`
	Secret      string `json:"secret"`
	AccessToken string `json:"access_token"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
}

type transactionsGetResponse struct {
	Transactions []ExternalTransaction `json:"transactions"`
}

// GetTransactions fetches all transactions for the access token within the
// given date window.
func (c *Client) GetTransactions(ctx context.Context, accessToken string, start, end time.Time) ([]ExternalTransaction, error) {
	payload := transactionsGetRequest{
		ClientID:    c.clientID,
		Secret:      c.secret,
		AccessToken: accessToken,
		StartDate:   start.Format(dateLayout),
		EndDate:     end.Format(dateLayout),
	}

	var resp transactionsGetResponse
	if err := c.post(ctx, "/transactions/get", payload, &resp); err != nil {
		return nil, err
	}
	return resp.Transactions, nil
}

// post executes one JSON request against the aggregation API and decodes the
// response into out. Non-2xx responses are returned as *ErrorResponse.
func (c *Client) post(ctx context.Context, path string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s request: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute %s request: %w", path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read %s response: %w", path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr ErrorResponse
		if jsonErr := json.Unmarshal(respBody, &apiErr); jsonErr == nil && (apiErr.ErrorCode != "" || apiErr.ErrorMessage != "") {
			return &apiErr
		}
		return fmt.Errorf("aggregation api returned status %d for %s", resp.StatusCode, path)
	}

	dec := json.NewDecoder(bytes.NewReader(respBody))
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}
