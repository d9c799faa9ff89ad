// Package coprocessor implements component C of spec.md §4.C: a client for
// the zk proving service. It submits JSON witnesses against a program
// identifier and receives a (program_proof, program_inputs, domain_proof,
// domain_inputs) quadruple, matching the way the teacher's
// e2e/interchaintestv8/attestor package wraps a remote attestation service
// behind a small typed client.
package coprocessor

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/avast/retry-go/v4"
	"go.uber.org/zap"

	"github.com/timewave-computer/neutron-cross-chain-vault-strategist/internal/strategist/errs"
)

// Encoded carries a proof and its public inputs as they come off the wire;
// Decode reifies the base64 wire strings into raw bytes.
type Encoded struct {
	ProofB64        string `json:"proof"`
	PublicInputsB64 string `json:"public_inputs"`
}

// Decode returns the raw (proof, public_inputs) byte pair.
func (e Encoded) Decode() (proof []byte, inputs []byte, err error) {
	proof, err = base64.StdEncoding.DecodeString(e.ProofB64)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: decode proof: %v", errs.Deserialize, err)
	}
	inputs, err = base64.StdEncoding.DecodeString(e.PublicInputsB64)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: decode public inputs: %v", errs.Deserialize, err)
	}
	return proof, inputs, nil
}

// ProofResp is the quadruple returned by Prove: a verification bundle for
// the circuit's own proof and one for the domain (aggregation) proof.
type ProofResp struct {
	Program Encoded `json:"program"`
	Domain  Encoded `json:"domain"`
}

// Client talks to the remote zk coprocessor service over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        *zap.Logger
	maxRetries uint
}

// NewClient builds a coprocessor client against baseURL (e.g. the value of
// the COPROCESSOR_CFG_PATH-resolved endpoint).
func NewClient(baseURL string, httpClient *http.Client, log *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: baseURL, httpClient: httpClient, log: log, maxRetries: 5}
}

type proveRequest struct {
	ProgramID ProgramID       `json:"program_id"`
	Input     json.RawMessage `json:"input"`
}

// Prove submits witness (a ClearingQueueWitness or EurekaRouteWitness) for
// program and returns the resulting proof quadruple. Transport failures are
// retried with bounded exponential backoff; a 202 response means the proof
// request was accepted but is not yet ready (errs.Pending, poll again
// later); a 422 means the circuit rejected the input (errs.ProverRejected,
// not retryable).
func (c *Client) Prove(ctx context.Context, program ProgramID, witness any) (ProofResp, error) {
	input, err := json.Marshal(witness)
	if err != nil {
		return ProofResp{}, fmt.Errorf("%w: marshal witness: %v", errs.Deserialize, err)
	}
	body, err := json.Marshal(proveRequest{ProgramID: program, Input: input})
	if err != nil {
		return ProofResp{}, fmt.Errorf("%w: marshal request: %v", errs.Deserialize, err)
	}

	var out ProofResp
	err = retry.Do(
		func() error {
			resp, perr := c.post(ctx, "/prove", body)
			if perr != nil {
				return perr
			}
			defer resp.Body.Close()

			switch resp.StatusCode {
			case http.StatusOK:
				if jerr := json.NewDecoder(resp.Body).Decode(&out); jerr != nil {
					return retry.Unrecoverable(fmt.Errorf("%w: decode prove response: %v", errs.Deserialize, jerr))
				}
				return nil
			case http.StatusAccepted:
				return retry.Unrecoverable(errs.Pending)
			case http.StatusUnprocessableEntity:
				return retry.Unrecoverable(errs.ProverRejected)
			default:
				return fmt.Errorf("%w: prove: unexpected status %d", errs.Transport, resp.StatusCode)
			}
		},
		retry.Context(ctx),
		retry.Attempts(c.maxRetries),
		retry.OnRetry(func(n uint, err error) {
			c.log.Warn("coprocessor prove retrying", zap.Uint("attempt", n), zap.Error(err))
		}),
	)
	return out, err
}

// GetVK returns the program's verifying key, used during deployment to
// pre-register it with the destination-chain authorization module.
func (c *Client) GetVK(ctx context.Context, program ProgramID) ([]byte, error) {
	return c.getBytes(ctx, fmt.Sprintf("/vk/%s", program))
}

// GetDomainVK returns the domain (aggregation) verifying key.
func (c *Client) GetDomainVK(ctx context.Context) ([]byte, error) {
	return c.getBytes(ctx, "/vk/domain")
}

type vkResponse struct {
	VKHex string `json:"vk"`
}

func (c *Client) getBytes(ctx context.Context, path string) ([]byte, error) {
	var out []byte
	err := retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
			if err != nil {
				return retry.Unrecoverable(err)
			}
			resp, err := c.httpClient.Do(req)
			if err != nil {
				return fmt.Errorf("%w: %v", errs.Transport, err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("%w: %s: unexpected status %d", errs.Transport, path, resp.StatusCode)
			}
			var v vkResponse
			if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
				return retry.Unrecoverable(fmt.Errorf("%w: %v", errs.Deserialize, err))
			}
			decoded, err := hexDecode(v.VKHex)
			if err != nil {
				return retry.Unrecoverable(fmt.Errorf("%w: %v", errs.Deserialize, err))
			}
			out = decoded
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(c.maxRetries),
	)
	return out, err
}

func (c *Client) post(ctx context.Context, path string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, retry.Unrecoverable(err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.Transport, err)
	}
	return resp, nil
}

func hexDecode(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	return hex.DecodeString(s)
}
