package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"hhn/ledger-bridge/internal/etlerror"
	"hhn/ledger-bridge/internal/logging"
	"hhn/ledger-bridge/internal/models"

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

// maxResponseSize caps how much of a ledger response is read.
const maxResponseSize = 10 << 20

// HTTPConfig configures an HTTPClient.
type HTTPConfig struct {
	BaseURL           string
	RealmID           string
	AccessToken       string
	MinorVersion      int
	Timeout           time.Duration
	RequestsPerMinute int
}

// HTTPClient implements Gateway against the ledger REST API.
type HTTPClient struct {
	baseURL      string
	realmID      string
	minorVersion int
	httpClient   *http.Client
	limiter      *rate.Limiter
	logger       logging.Logger
}

// NewHTTPClient creates an HTTPClient authenticating with a bearer token.
func NewHTTPClient(cfg HTTPConfig, logger logging.Logger) (*HTTPClient, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("ledger base URL is required")
	}
	if cfg.RealmID == "" {
		return nil, fmt.Errorf("ledger realm id is required")
	}
	if logger == nil {
		logger = logging.NewLogrusAdapter("info", "text")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	limit := rate.Inf
	if cfg.RequestsPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(cfg.RequestsPerMinute))
	}

	tokens := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.AccessToken, TokenType: "Bearer"})
	return &HTTPClient{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		realmID:      cfg.RealmID,
		minorVersion: cfg.MinorVersion,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: &oauth2.Transport{Source: tokens, Base: http.DefaultTransport},
		},
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger,
	}, nil
}

type queryEnvelope struct {
	QueryResponse map[string]json.RawMessage `json:"QueryResponse"`
	Fault         *fault                     `json:"Fault"`
}

type fault struct {
	Type   string `json:"type"`
	Errors []struct {
		Message string `json:"Message"`
		Detail  string `json:"Detail"`
		Code    string `json:"code"`
	} `json:"Error"`
}

func (f *fault) Error() string {
	msgs := make([]string, 0, len(f.Errors))
	for _, e := range f.Errors {
		msg := e.Message
		if e.Detail != "" {
			msg += ": " + e.Detail
		}
		if e.Code != "" {
			msg += " (code " + e.Code + ")"
		}
		msgs = append(msgs, msg)
	}
	if len(msgs) == 0 {
		return f.Type
	}
	return f.Type + ": " + strings.Join(msgs, "; ")
}

// Query runs q and decodes the matching records into out.
func (c *HTTPClient) Query(ctx context.Context, q Query, out interface{}) error {
	params := url.Values{}
	params.Set("query", q.String())
	body, err := c.doRequest(ctx, http.MethodGet, "query", params, nil, "query", string(q.Entity))
	if err != nil {
		return err
	}

	var env queryEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return &etlerror.LedgerError{Operation: "query", Entity: string(q.Entity), Err: fmt.Errorf("failed to parse response: %w", err)}
	}
	if env.Fault != nil {
		return &etlerror.LedgerError{Operation: "query", Entity: string(q.Entity), Err: env.Fault}
	}
	raw, ok := env.QueryResponse[string(q.Entity)]
	if !ok {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &etlerror.LedgerError{Operation: "query", Entity: string(q.Entity), Err: fmt.Errorf("failed to decode records: %w", err)}
	}
	return nil
}

// AddCustomer creates a customer.
func (c *HTTPClient) AddCustomer(ctx context.Context, customer models.TargetCustomer) (models.TargetCustomer, error) {
	var created models.TargetCustomer
	if err := c.create(ctx, EntityCustomer, customer, &created); err != nil {
		return models.TargetCustomer{}, err
	}
	return created, nil
}

// AddSalesReceipt creates a sales receipt.
func (c *HTTPClient) AddSalesReceipt(ctx context.Context, txn models.TargetTransaction) (models.TargetTransaction, error) {
	var created models.TargetTransaction
	if err := c.create(ctx, EntitySalesReceipt, txn, &created); err != nil {
		return models.TargetTransaction{}, err
	}
	return created, nil
}

func (c *HTTPClient) create(ctx context.Context, entity Entity, record, out interface{}) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return &etlerror.LedgerError{Operation: "create", Entity: string(entity), Err: fmt.Errorf("failed to encode record: %w", err)}
	}

	body, err := c.doRequest(ctx, http.MethodPost, strings.ToLower(string(entity)), url.Values{}, payload, "create", string(entity))
	if err != nil {
		return err
	}

	var env map[string]json.RawMessage
	if err := json.Unmarshal(body, &env); err != nil {
		return &etlerror.LedgerError{Operation: "create", Entity: string(entity), Err: fmt.Errorf("failed to parse response: %w", err)}
	}
	if raw, ok := env["Fault"]; ok {
		var f fault
		if err := json.Unmarshal(raw, &f); err == nil {
			return &etlerror.LedgerError{Operation: "create", Entity: string(entity), Err: &f}
		}
	}
	raw, ok := env[string(entity)]
	if !ok {
		return &etlerror.LedgerError{Operation: "create", Entity: string(entity), Err: fmt.Errorf("response has no %s record", entity)}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &etlerror.LedgerError{Operation: "create", Entity: string(entity), Err: fmt.Errorf("failed to decode record: %w", err)}
	}
	return nil
}

func (c *HTTPClient) doRequest(ctx context.Context, method, resource string, params url.Values, payload []byte, operation, entity string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &etlerror.LedgerError{Operation: operation, Entity: entity, Err: err}
	}

	if c.minorVersion > 0 {
		params.Set("minorversion", strconv.Itoa(c.minorVersion))
	}
	endpoint := fmt.Sprintf("%s/v3/company/%s/%s", c.baseURL, url.PathEscape(c.realmID), resource)
	if encoded := params.Encode(); encoded != "" {
		endpoint += "?" + encoded
	}

	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, &etlerror.LedgerError{Operation: operation, Entity: entity, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &etlerror.LedgerError{Operation: operation, Entity: entity, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, &etlerror.LedgerError{Operation: operation, Entity: entity, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	c.logger.Debug("Ledger request completed",
		logging.Field{Key: logging.FieldOperation, Value: operation},
		logging.Field{Key: logging.FieldEntity, Value: entity},
		logging.Field{Key: logging.FieldStatus, Value: resp.StatusCode},
		logging.Field{Key: logging.FieldDuration, Value: time.Since(start).Milliseconds()})

	if resp.StatusCode >= 300 {
		var env struct {
			Fault *fault `json:"Fault"`
		}
		if err := json.Unmarshal(body, &env); err == nil && env.Fault != nil {
			return nil, &etlerror.LedgerError{Operation: operation, Entity: entity, StatusCode: resp.StatusCode, Err: env.Fault}
		}
		return nil, &etlerror.LedgerError{Operation: operation, Entity: entity, StatusCode: resp.StatusCode, Err: fmt.Errorf("HTTP %d", resp.StatusCode)}
	}
	return body, nil
}
