// Package indexer implements component D of spec.md §4.D: a client that
// returns all withdraw events with ID >= start from the off-chain indexer
// service (out of scope to implement per spec.md §1; only its interface is
// modeled here).
package indexer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"

	"github.com/avast/retry-go/v4"
	"github.com/ethereum/go-ethereum/common"

	"github.com/timewave-computer/neutron-cross-chain-vault-strategist/internal/strategist/errs"
)

// WithdrawEvent is one entry the indexer has observed on the source chain.
type WithdrawEvent struct {
	ID       uint64         `json:"id"`
	Owner    common.Address `json:"owner"`
	Receiver string         `json:"receiver"`
	Shares   string         `json:"shares"` // decimal string; caller parses into math.Int
}

// Client queries the withdraw-request indexer over its HTTP API, per
// spec.md §6 (INDEXER_API_URL, INDEXER_API_KEY).
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	maxRetries uint
}

// NewClient builds an indexer client.
func NewClient(baseURL, apiKey string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: baseURL, apiKey: apiKey, httpClient: httpClient, maxRetries: 5}
}

// QueryWithdrawRequests returns every withdraw event with id >= start
// (start == nil means "from the beginning"), sorted ascending by id. A
// missing id is not an error; an empty result is a valid response (spec.md
// §8 scenario 6: empty indexer -> zero downstream side effects).
func (c *Client) QueryWithdrawRequests(ctx context.Context, start *uint64, includeUnfinalized bool) ([]WithdrawEvent, error) {
	q := url.Values{}
	if start != nil {
		q.Set("start_id", strconv.FormatUint(*start, 10))
	}
	q.Set("include_unfinalized", strconv.FormatBool(includeUnfinalized))

	var events []WithdrawEvent
	err := retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/withdraw_requests?"+q.Encode(), nil)
			if err != nil {
				return retry.Unrecoverable(err)
			}
			if c.apiKey != "" {
				req.Header.Set("Authorization", "Bearer "+c.apiKey)
			}
			resp, err := c.httpClient.Do(req)
			if err != nil {
				return fmt.Errorf("%w: %v", errs.Transport, err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("%w: indexer returned status %d", errs.Transport, resp.StatusCode)
			}
			var out []WithdrawEvent
			if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
				return retry.Unrecoverable(fmt.Errorf("%w: %v", errs.Deserialize, err))
			}
			events = out
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(c.maxRetries),
	)
	if err != nil {
		return nil, err
	}

	sort.Slice(events, func(i, j int) bool { return events[i].ID < events[j].ID })
	return events, nil
}
