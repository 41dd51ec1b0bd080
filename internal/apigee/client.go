package apigee

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

	"github.com/ayo6706/prepaid-recharge/internal/domain"
	"github.com/shopspring/decimal"
)

var (
	// ErrBalanceNotFound signals that no prepaid balance exists yet for the
	// requested currency. Callers treat this as a zero balance.
	ErrBalanceNotFound = errors.New("no balance for currency")

	// ErrAccountNotFound signals that a recipient identifier does not map to
	// a known developer or company account.
	ErrAccountNotFound = errors.New("account not found")
)

// BalanceController reads and mutates a prepaid balance by currency for one
// account scope (a developer or a company).
type BalanceController interface {
	// GetByCurrency returns the existing balance for the currency, or
	// ErrBalanceNotFound when none has been created yet.
	GetByCurrency(ctx context.Context, currencyCode string) (domain.Money, error)
	// TopUp applies an unsigned credit amount to the balance and returns the
	// balance object reported by the remote API.
	TopUp(ctx context.Context, amount decimal.Decimal, currencyCode string) (domain.Money, error)
}

// ControllerFactory resolves the balance controller for a job target.
type ControllerFactory interface {
	ForTarget(target domain.Target) BalanceController
}

// Client talks to the monetization management API of an Apigee-style
// organization. It hands out developer- and company-scoped balance
// controllers and resolves recipient identifiers to accounts.
type Client struct {
	baseURL string
	org     string
	token   string
	http    *http.Client
}

// NewClient creates a monetization API client for one organization.
func NewClient(baseURL, org, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		org:     org,
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// WithHTTPClient overrides the underlying HTTP client.
func (c *Client) WithHTTPClient(h *http.Client) *Client {
	if h != nil {
		c.http = h
	}
	return c
}

// ForTarget returns the balance controller scoped to the target account.
func (c *Client) ForTarget(target domain.Target) BalanceController {
	scope := "developers"
	if target.Kind == domain.TargetTeam {
		scope = "companies"
	}
	return &balanceController{
		client: c,
		path:   fmt.Sprintf("/mint/organizations/%s/%s/%s/developer-balances", c.org, scope, target.ID),
	}
}

// ResolveAccount maps a raw recipient identifier to a balance target.
// Identifiers containing "@" are looked up as developers, everything else as
// companies. Unknown identifiers yield ErrAccountNotFound.
func (c *Client) ResolveAccount(ctx context.Context, recipient string) (domain.Target, error) {
	var path string
	var target domain.Target
	if strings.Contains(recipient, "@") {
		path = fmt.Sprintf("/v1/organizations/%s/developers/%s", c.org, recipient)
		target = domain.DeveloperTarget(recipient)
	} else {
		path = fmt.Sprintf("/v1/organizations/%s/companies/%s", c.org, recipient)
		target = domain.TeamTarget(recipient)
	}

	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return domain.Target{}, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return domain.Target{}, fmt.Errorf("%w: %s", ErrAccountNotFound, recipient)
	case resp.StatusCode >= 300:
		return domain.Target{}, apiError(resp)
	}
	return target, nil
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return resp, nil
}

// balanceController is a Client bound to one account's balance collection.
type balanceController struct {
	client *Client
	path   string
}

// wireBalance mirrors the remote balance resource. Amounts travel as
// json.Number so decimal exactness survives the round trip.
type wireBalance struct {
	Amount            json.Number  `json:"amount"`
	SupportedCurrency wireCurrency `json:"supportedCurrency"`
}

type wireCurrency struct {
	ID string `json:"id"`
}

type wireBalanceList struct {
	DeveloperBalance []wireBalance `json:"developerBalance"`
}

func (b *balanceController) GetByCurrency(ctx context.Context, currencyCode string) (domain.Money, error) {
	resp, err := b.client.do(ctx, http.MethodGet, b.path, nil)
	if err != nil {
		return domain.Money{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return domain.Money{}, fmt.Errorf("%w: %s", ErrBalanceNotFound, currencyCode)
	}
	if resp.StatusCode >= 300 {
		return domain.Money{}, apiError(resp)
	}

	var list wireBalanceList
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return domain.Money{}, fmt.Errorf("decode balance list: %w", err)
	}
	for _, bal := range list.DeveloperBalance {
		if strings.EqualFold(bal.SupportedCurrency.ID, currencyCode) {
			return moneyFromWire(bal, currencyCode)
		}
	}
	return domain.Money{}, fmt.Errorf("%w: %s", ErrBalanceNotFound, currencyCode)
}

func (b *balanceController) TopUp(ctx context.Context, amount decimal.Decimal, currencyCode string) (domain.Money, error) {
	payload, err := json.Marshal(wireBalance{
		Amount:            json.Number(amount.String()),
		SupportedCurrency: wireCurrency{ID: strings.ToLower(currencyCode)},
	})
	if err != nil {
		return domain.Money{}, fmt.Errorf("encode top-up payload: %w", err)
	}

	resp, err := b.client.do(ctx, http.MethodPost, b.path, bytes.NewReader(payload))
	if err != nil {
		return domain.Money{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return domain.Money{}, apiError(resp)
	}

	var bal wireBalance
	if err := json.NewDecoder(resp.Body).Decode(&bal); err != nil {
		return domain.Money{}, fmt.Errorf("decode top-up response: %w", err)
	}
	return moneyFromWire(bal, currencyCode)
}

func moneyFromWire(bal wireBalance, fallbackCurrency string) (domain.Money, error) {
	amount, err := decimal.NewFromString(bal.Amount.String())
	if err != nil {
		return domain.Money{}, fmt.Errorf("parse balance amount %q: %w", bal.Amount.String(), err)
	}
	code := strings.ToUpper(bal.SupportedCurrency.ID)
	if code == "" {
		code = strings.ToUpper(fallbackCurrency)
	}
	return domain.NewMoney(amount, code), nil
}

func apiError(resp *http.Response) error {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("monetization api %s %s: status %d: %s",
		resp.Request.Method, resp.Request.URL.Path, resp.StatusCode, strings.TrimSpace(string(snippet)))
}
