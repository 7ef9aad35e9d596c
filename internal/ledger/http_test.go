package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"hhn/ledger-bridge/internal/etlerror"
	"hhn/ledger-bridge/internal/logging"
	"hhn/ledger-bridge/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *HTTPClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewHTTPClient(HTTPConfig{
		BaseURL:      server.URL + "/",
		RealmID:      "realm-1",
		AccessToken:  "secret-token",
		MinorVersion: 65,
		Timeout:      5 * time.Second,
	}, logging.NewMockLogger())
	require.NoError(t, err)
	return client
}

func TestNewHTTPClient_Validation(t *testing.T) {
	_, err := NewHTTPClient(HTTPConfig{RealmID: "1"}, nil)
	assert.EqualError(t, err, "ledger base URL is required")

	_, err = NewHTTPClient(HTTPConfig{BaseURL: "http://x"}, nil)
	assert.EqualError(t, err, "ledger realm id is required")
}

func TestHTTPClient_Query(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v3/company/realm-1/query", r.URL.Path)
		assert.Equal(t, "SELECT * FROM Class WHERE Name = 'Online'", r.URL.Query().Get("query"))
		assert.Equal(t, "65", r.URL.Query().Get("minorversion"))
		assert.Equal(t, "Bearer secret-token", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"QueryResponse":{"Class":[{"Id":"7","Name":"Online"}],"startPosition":1,"maxResults":1},"time":"2021-06-01T00:00:00Z"}`)
	})

	var out []models.LedgerClass
	require.NoError(t, client.Query(context.Background(), Select(EntityClass).Where("Name", "Online"), &out))
	require.Len(t, out, 1)
	assert.Equal(t, models.ReferenceID("7"), out[0].ID)
}

func TestHTTPClient_QueryNoMatches(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"QueryResponse":{},"time":"2021-06-01T00:00:00Z"}`)
	})

	var out []models.LedgerItem
	require.NoError(t, client.Query(context.Background(), Select(EntityItem), &out))
	assert.Empty(t, out)
}

func TestHTTPClient_Faults(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantStatus int
		wantText   string
	}{
		{
			name:       "authentication fault",
			status:     http.StatusUnauthorized,
			body:       `{"Fault":{"Error":[{"Message":"AuthenticationFailed","Detail":"Token expired","code":"3200"}],"type":"AUTHENTICATION"}}`,
			wantStatus: http.StatusUnauthorized,
			wantText:   "AUTHENTICATION: AuthenticationFailed: Token expired (code 3200)",
		},
		{
			name:       "fault with success status",
			status:     http.StatusOK,
			body:       `{"Fault":{"Error":[{"Message":"QueryParserError"}],"type":"ValidationFault"}}`,
			wantStatus: 0,
			wantText:   "ValidationFault: QueryParserError",
		},
		{
			name:       "plain server error",
			status:     http.StatusBadGateway,
			body:       `upstream unavailable`,
			wantStatus: http.StatusBadGateway,
			wantText:   "HTTP 502",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})

			var out []models.LedgerClass
			err := client.Query(context.Background(), Select(EntityClass), &out)
			require.Error(t, err)

			var ledgerErr *etlerror.LedgerError
			require.True(t, errors.As(err, &ledgerErr))
			assert.Equal(t, tt.wantStatus, ledgerErr.StatusCode)
			assert.Equal(t, "Class", ledgerErr.Entity)
			assert.Contains(t, err.Error(), tt.wantText)
		})
	}
}

func TestHTTPClient_AddSalesReceipt(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v3/company/realm-1/salesreceipt", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var payload map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "100000007", payload["DocNumber"])
		assert.Equal(t, "2021-06-01", payload["TxnDate"])
		lines := payload["Line"].([]interface{})
		assert.Equal(t, 12.5, lines[0].(map[string]interface{})["Amount"], "amounts are JSON numbers")

		_, _ = io.WriteString(w, `{"SalesReceipt":{"Id":"88","DocNumber":"100000007","TxnDate":"2021-06-01","Line":[]}}`)
	})

	created, err := client.AddSalesReceipt(context.Background(), models.TargetTransaction{
		DocNumber: "100000007",
		TxnDate:   models.Date{Time: time.Date(2021, 6, 1, 9, 0, 0, 0, time.UTC)},
		Lines: []models.Line{{
			DetailType: models.SalesItemLineDetailType,
			Amount:     decimal.RequireFromString("12.50"),
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, models.ReferenceID("88"), created.ID)
}

func TestHTTPClient_AddCustomer(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v3/company/realm-1/customer", r.URL.Path)
		var payload models.TargetCustomer
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		payload.ID = "501"
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"Customer": payload})
	})

	created, err := client.AddCustomer(context.Background(), models.TargetCustomer{DisplayName: "Jane Doe #00001"})
	require.NoError(t, err)
	assert.Equal(t, models.ReferenceID("501"), created.ID)
	assert.Equal(t, "Jane Doe #00001", created.DisplayName)
}

func TestHTTPClient_MissingRecordInCreateResponse(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"time":"2021-06-01T00:00:00Z"}`)
	})

	_, err := client.AddCustomer(context.Background(), models.TargetCustomer{DisplayName: "X"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "response has no Customer record")
}

func TestHTTPClient_CancelledContext(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("request must not be sent")
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out []models.LedgerClass
	err := client.Query(ctx, Select(EntityClass), &out)
	require.Error(t, err)
	assert.True(t, etlerror.IsFatal(err))
}
