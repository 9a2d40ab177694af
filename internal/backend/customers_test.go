// ABOUTME: Tests for the CRM customer listing
// ABOUTME: Covers both row shapes, status derivation, errors and the shared breaker

package backend

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedNow(c *Client, day string) {
	ts, _ := time.Parse(time.DateOnly, day)
	c.now = func() time.Time { return ts }
}

func TestCustomers_SplitRowShape(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/crm-dashboard", r.URL.Path)
		replyJSON(w, http.StatusOK, map[string]any{
			"data": []map[string]any{
				{"name": "Asha Rao", "phone": "9876543210", "policy_type": "Health", "policy_id": "POL1001", "expiry": "2026-12-31", "premium": 12000},
				{"name": "Vikram Shah", "phone": "9123456780", "policy_type": "Motor", "policy_id": "POL1002", "expiry": "2026-01-15", "premium": 8450.5},
				{"name": "Meera Iyer", "phone": "9000000000", "policy_type": "Life", "policy_id": "POL1003", "expiry": "2027-03-01", "status": "Expiring"},
			},
			"total":   3,
			"updated": "2026-10-18",
		})
	})

	c := NewClient(Config{URL: srv.URL})
	fixedNow(c, "2026-10-18")
	list, err := c.Customers(t.Context())

	require.NoError(t, err)
	assert.Equal(t, 3, list.Total)
	assert.Equal(t, "2026-10-18", list.Updated)
	require.Len(t, list.Customers, 3)

	assert.Equal(t, Customer{
		Name: "Asha Rao", Phone: "9876543210", PolicyType: "Health", PolicyID: "POL1001",
		Expiry: "2026-12-31", Premium: "₹12,000", Status: StatusActive,
	}, list.Customers[0])
	assert.Equal(t, StatusExpired, list.Customers[1].Status, "past expiry without status")
	assert.Equal(t, "₹8,450", list.Customers[1].Premium)
	assert.Equal(t, "Expiring", list.Customers[2].Status, "explicit status wins")
	assert.Empty(t, list.Customers[2].Premium)
}

func TestCustomers_CombinedPolicyShape(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		replyJSON(w, http.StatusOK, map[string]any{
			"data": []map[string]any{
				{"name": "Asha Rao", "policy": "Health Plus (POL1001)", "expiry": "2027-01-01", "premium": "₹12,000"},
				{"name": "No Id", "policy": "Travel"},
			},
		})
	})

	c := NewClient(Config{URL: srv.URL})
	fixedNow(c, "2026-10-18")
	list, err := c.Customers(t.Context())

	require.NoError(t, err)
	require.Len(t, list.Customers, 2)
	assert.Equal(t, "Health Plus", list.Customers[0].PolicyType)
	assert.Equal(t, "POL1001", list.Customers[0].PolicyID)
	assert.Equal(t, "₹12,000", list.Customers[0].Premium)
	assert.Equal(t, "Travel", list.Customers[1].PolicyType)
	assert.Empty(t, list.Customers[1].PolicyID)
	assert.Equal(t, StatusActive, list.Customers[1].Status, "no expiry means active")

	assert.Equal(t, 2, list.Total, "total falls back to the row count")
	assert.Equal(t, "2026-10-18", list.Updated, "updated falls back to today")
}

func TestCustomers_EmptyData(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		replyJSON(w, http.StatusOK, map[string]any{"data": []any{}, "total": 0})
	})

	list, err := NewClient(Config{URL: srv.URL}).Customers(t.Context())

	require.NoError(t, err)
	assert.NotNil(t, list.Customers)
	assert.Empty(t, list.Customers)
}

func TestCustomers_ServerError(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		replyJSON(w, http.StatusBadGateway, map[string]string{"error": "supabase down"})
	})

	_, err := NewClient(Config{URL: srv.URL}).Customers(t.Context())

	var cmdErr *CommandError
	require.ErrorAs(t, err, &cmdErr)
	assert.Equal(t, http.StatusBadGateway, cmdErr.StatusCode)
	assert.Equal(t, "supabase down", cmdErr.Message)
}

func TestCustomers_InvalidJSON(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>oops</html>"))
	})

	_, err := NewClient(Config{URL: srv.URL}).Customers(t.Context())

	var cmdErr *CommandError
	require.ErrorAs(t, err, &cmdErr)
	assert.Contains(t, cmdErr.Message, "invalid crm reply")
}

func TestCustomers_TransportFailureIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewClient(Config{URL: url}).Customers(t.Context())

	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestCustomers_SharesCommandBreaker(t *testing.T) {
	var calls atomic.Int32
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	})

	c := NewClient(Config{URL: srv.URL, MaxFailures: 2, OpenTimeout: time.Minute})
	for i := 0; i < 2; i++ {
		_, err := c.Execute(t.Context(), "x")
		require.Error(t, err)
	}
	require.Equal(t, gobreaker.StateOpen, c.State())

	_, err := c.Customers(t.Context())
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int32(2), calls.Load())
}

func TestSplitPolicy(t *testing.T) {
	tests := []struct {
		in, typ, id string
	}{
		{"Health (POL1)", "Health", "POL1"},
		{"Term Life (T-9)", "Term Life", "T-9"},
		{"Motor", "Motor", ""},
		{"  Home ( H2 ) ", "Home", "H2"},
	}
	for _, tt := range tests {
		typ, id := splitPolicy(tt.in)
		assert.Equal(t, tt.typ, typ, tt.in)
		assert.Equal(t, tt.id, id, tt.in)
	}
}
