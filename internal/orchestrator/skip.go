package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	sdkmath "cosmossdk.io/math"
	"github.com/avast/retry-go/v4"

	"github.com/timewave-computer/neutron-cross-chain-vault-strategist/internal/strategist/errs"
)

// HTTPSkipRouter fetches a route quote from the Skip API for an
// IBC-Eureka transfer, grounded on
// original_source/packages/src/utils/skip.rs: the off-chain strategist
// queries Skip for the operations array and picks out the eureka_transfer
// leg before handing the raw response to the coprocessor for proving.
type HTTPSkipRouter struct {
	baseURL     string
	sourceDenom string
	sourceChain string
	destChain   string
	httpClient  *http.Client
	maxRetries  uint
}

// NewHTTPSkipRouter builds a router against baseURL (EUREKA_API_URL)
// quoting routes from sourceChain/sourceDenom to destChain.
func NewHTTPSkipRouter(baseURL, sourceChain, sourceDenom, destChain string, httpClient *http.Client) *HTTPSkipRouter {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &HTTPSkipRouter{
		baseURL:     baseURL,
		sourceDenom: sourceDenom,
		sourceChain: sourceChain,
		destChain:   destChain,
		httpClient:  httpClient,
		maxRetries:  5,
	}
}

// GetRoute returns the raw Skip API route response for transferring amount
// of the source deposit asset, to be handed verbatim to the eureka-route
// circuit as its witness (spec.md §6's `{"skip_response": {...}}` schema).
func (r *HTTPSkipRouter) GetRoute(ctx context.Context, amount sdkmath.Int) (json.RawMessage, error) {
	q := url.Values{}
	q.Set("source_asset_denom", r.sourceDenom)
	q.Set("source_asset_chain_id", r.sourceChain)
	q.Set("dest_asset_chain_id", r.destChain)
	q.Set("amount_in", amount.String())

	var out json.RawMessage
	err := retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/v2/fungible/route?"+q.Encode(), nil)
			if err != nil {
				return retry.Unrecoverable(err)
			}
			resp, err := r.httpClient.Do(req)
			if err != nil {
				return fmt.Errorf("%w: %v", errs.Transport, err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("%w: skip api returned status %d", errs.Transport, resp.StatusCode)
			}
			var raw json.RawMessage
			if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
				return retry.Unrecoverable(fmt.Errorf("%w: %v", errs.Deserialize, err))
			}
			if _, err := getEurekaTransferOperation(raw); err != nil {
				return retry.Unrecoverable(err)
			}
			out = raw
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(r.maxRetries),
	)
	return out, err
}

// skipRouteFields is the subset of a Skip API route response the
// strategist reads off-chain before proving, per
// original_source/packages/src/utils/skip.rs (get_amount_out,
// get_operations_array, get_eureka_transfer_operation).
type skipRouteFields struct {
	AmountOut  string            `json:"amount_out"`
	Operations []json.RawMessage `json:"operations"`
}

// getAmountOut extracts the quoted output amount from a raw Skip response.
func getAmountOut(raw json.RawMessage) (sdkmath.Int, error) {
	var fields skipRouteFields
	if err := json.Unmarshal(raw, &fields); err != nil {
		return sdkmath.Int{}, fmt.Errorf("%w: decode skip response: %v", errs.Deserialize, err)
	}
	if fields.AmountOut == "" {
		return sdkmath.Int{}, fmt.Errorf("%w: skip response missing amount_out", errs.Deserialize)
	}
	amount, ok := sdkmath.NewIntFromString(fields.AmountOut)
	if !ok {
		return sdkmath.Int{}, fmt.Errorf("%w: skip response amount_out %q is not an integer", errs.Deserialize, fields.AmountOut)
	}
	return amount, nil
}

// getEurekaTransferOperation returns the single operation in the route's
// operations array that carries an "eureka_transfer" field, failing if the
// route does not go via IBC-Eureka.
func getEurekaTransferOperation(raw json.RawMessage) (json.RawMessage, error) {
	var fields skipRouteFields
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("%w: decode skip response: %v", errs.Deserialize, err)
	}
	for _, op := range fields.Operations {
		var tagged map[string]json.RawMessage
		if err := json.Unmarshal(op, &tagged); err != nil {
			continue
		}
		if _, ok := tagged["eureka_transfer"]; ok {
			return op, nil
		}
	}
	return nil, fmt.Errorf("%w: no eureka_transfer operation in skip response", errs.Deserialize)
}
