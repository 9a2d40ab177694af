// ABOUTME: CRM customer listing fetched from the backend's /crm-dashboard endpoint
// ABOUTME: Normalizes both row shapes the backend has served and derives policy status

package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Policy statuses shown in the customer table.
const (
	StatusActive  = "Active"
	StatusExpired = "Expired"
)

// CustomersRefreshInterval is how often the console re-polls the CRM view.
const CustomersRefreshInterval = 30 * time.Second

// Customer is one row of the CRM view: a policy joined with its holder.
type Customer struct {
	Name       string `json:"name"`
	Phone      string `json:"phone"`
	PolicyType string `json:"policy_type"`
	PolicyID   string `json:"policy_id"`
	Expiry     string `json:"expiry"`
	Premium    string `json:"premium"`
	Status     string `json:"status"`
}

// CustomerList is the normalized CRM view.
type CustomerList struct {
	Customers []Customer `json:"customers"`
	Total     int        `json:"total"`
	Updated   string     `json:"updated"`
}

type crmReply struct {
	Data    []crmRow `json:"data"`
	Total   int      `json:"total"`
	Updated string   `json:"updated"`
	Error   string   `json:"error"`
}

// crmRow accepts the split policy_type/policy_id form and the combined
// "Type (ID)" form.
type crmRow struct {
	Name       string          `json:"name"`
	Phone      string          `json:"phone"`
	PolicyType string          `json:"policy_type"`
	PolicyID   string          `json:"policy_id"`
	Policy     string          `json:"policy"`
	Expiry     string          `json:"expiry"`
	Premium    json.RawMessage `json:"premium"`
	Status     string          `json:"status"`
}

var premiumPrinter = message.NewPrinter(language.English)

// Customers fetches the CRM view. It shares the command breaker, so an
// unreachable backend trips both.
func (c *Client) Customers(ctx context.Context) (*CustomerList, error) {
	out, err := c.breaker.Execute(func() (any, error) {
		return c.fetchCustomers(ctx)
	})
	if err != nil {
		if breakerRefused(err) {
			return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		c.logger.Debug("crm fetch failed", "error", err)
		return nil, err
	}
	return out.(*CustomerList), nil
}

func (c *Client) fetchCustomers(ctx context.Context) (*CustomerList, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/crm-dashboard", nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxReplyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: reading reply: %w", ErrUnavailable, err)
	}

	var reply crmReply
	decodeErr := json.Unmarshal(data, &reply)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := reply.Error
		if decodeErr != nil || msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, &CommandError{StatusCode: resp.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return nil, &CommandError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("invalid crm reply: %v", decodeErr)}
	}

	today := c.now().Format(time.DateOnly)
	list := &CustomerList{
		Customers: make([]Customer, 0, len(reply.Data)),
		Total:     reply.Total,
		Updated:   reply.Updated,
	}
	for _, row := range reply.Data {
		list.Customers = append(list.Customers, row.normalize(today))
	}
	if list.Total < len(list.Customers) {
		list.Total = len(list.Customers)
	}
	if list.Updated == "" {
		list.Updated = today
	}
	return list, nil
}

func (r crmRow) normalize(today string) Customer {
	policyType, policyID := r.PolicyType, r.PolicyID
	if policyType == "" && policyID == "" && r.Policy != "" {
		policyType, policyID = splitPolicy(r.Policy)
	}

	status := strings.TrimSpace(r.Status)
	if status == "" {
		status = StatusActive
		// ISO dates order lexically.
		if r.Expiry != "" && r.Expiry < today {
			status = StatusExpired
		}
	}

	return Customer{
		Name:       r.Name,
		Phone:      r.Phone,
		PolicyType: policyType,
		PolicyID:   policyID,
		Expiry:     r.Expiry,
		Premium:    premiumText(r.Premium),
		Status:     status,
	}
}

// splitPolicy parses "Health (POL123)" into its type and id.
func splitPolicy(s string) (string, string) {
	s = strings.TrimSpace(s)
	open := strings.LastIndex(s, "(")
	if open < 0 || !strings.HasSuffix(s, ")") {
		return s, ""
	}
	return strings.TrimSpace(s[:open]), strings.TrimSpace(s[open+1 : len(s)-1])
}

// premiumText renders numeric premiums as rupees and passes strings through.
func premiumText(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(trimmed, &s); err == nil {
		return s
	}
	var n float64
	if err := json.Unmarshal(trimmed, &n); err == nil {
		return premiumPrinter.Sprintf("₹%d", int64(n))
	}
	return string(trimmed)
}
