// The rubix package is responsible for interacting with the Rubix ledger node.
// It exposes a [NewClient] function to create a new client with the given config.
//
// Moving funds is a two-phase protocol: initiating a transfer returns a pending
// transaction id, which is then finalized by submitting the signature response.
// Neither phase is retried internally; a failed call is terminal for the caller.
package rubix

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

var (
	// ErrUnavailable indicates a transport-level failure reaching the node.
	ErrUnavailable = errors.New("rubix node unavailable")

	// ErrRejected indicates the node returned an explicit non-success status,
	// or a body the client could not interpret.
	ErrRejected = errors.New("rejected by rubix node")
)

// transferConfirmed is the substring the node puts in the signature-response
// message when a transfer has been finalized.
const transferConfirmed = "Transfer finished successfully"

type Client struct {
	http   http.Client
	config Config
}

// NewClient returns a client from the provided [Config], which is assumed to have been validated.
func NewClient(c Config) Client {
	return Client{
		http:   http.Client{Timeout: c.Timeout},
		config: c,
	}
}

// Confirmation is the outcome of the signature-response phase.
type Confirmation struct {
	Confirmed bool
	Message   string
}

type initiateRequest struct {
	Comment    string  `json:"comment"`
	Receiver   string  `json:"receiver"`
	Sender     string  `json:"sender"`
	TokenCount float64 `json:"tokenCount"`
	Type       int     `json:"type"`
}

type initiateResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Result  struct {
		ID string `json:"id"`
	} `json:"result"`
}

type signatureRequest struct {
	ID       string `json:"id"`
	Password string `json:"password"`
}

type signatureResponse struct {
	Message string `json:"message"`
}

type accountInfoResponse struct {
	AccountInfo []struct {
		RBTAmount float64 `json:"rbt_amount"`
	} `json:"account_info"`
}

type generateRequest struct {
	DID        string  `json:"did"`
	TokenCount float64 `json:"token_count"`
}

type generateResponse struct {
	Result struct {
		ID string `json:"id"`
	} `json:"result"`
}

// InitiateTransfer starts a transfer of amount RBT from sender to receiver.
// It returns the id of the pending transaction, to be finalized with [Client.ConfirmTransfer].
func (c Client) InitiateTransfer(ctx context.Context, receiver, sender string, amount float64) (string, error) {
	var res initiateResponse
	req := initiateRequest{
		Receiver:   receiver,
		Sender:     sender,
		TokenCount: amount,
		Type:       2,
	}

	if err := c.post(ctx, "/api/initiate-rbt-transfer", req, &res); err != nil {
		return "", fmt.Errorf("failed to initiate transfer: %w", err)
	}

	if !res.Status {
		return "", fmt.Errorf("failed to initiate transfer: %w: %s", ErrRejected, res.Message)
	}
	if res.Result.ID == "" {
		return "", fmt.Errorf("failed to initiate transfer: %w: missing transaction id", ErrRejected)
	}
	return res.Result.ID, nil
}

// ConfirmTransfer submits the signature response for the given pending transaction.
// A transfer is confirmed only when the node's message carries the canonical
// success phrase; any other message is a rejection, not an error.
func (c Client) ConfirmTransfer(ctx context.Context, id string) (Confirmation, error) {
	var res signatureResponse
	req := signatureRequest{
		ID:       id,
		Password: c.config.Password,
	}

	if err := c.post(ctx, "/api/signature-response", req, &res); err != nil {
		return Confirmation{}, fmt.Errorf("failed to confirm transfer %s: %w", id, err)
	}

	return Confirmation{
		Confirmed: strings.Contains(res.Message, transferConfirmed),
		Message:   res.Message,
	}, nil
}

// Balance returns the RBT balance of the given DID.
func (c Client) Balance(ctx context.Context, did string) (float64, error) {
	endpoint, err := url.JoinPath(c.config.NodeAddress, "/api/get-account-info")
	if err != nil {
		return 0, fmt.Errorf("failed to build account info URL: %w", err)
	}
	endpoint += "?did=" + url.QueryEscape(did)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	httpRes, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to get balance of %s: %w: %v", did, ErrUnavailable, err)
	}
	defer httpRes.Body.Close()

	if httpRes.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("failed to get balance of %s: %w: status %s", did, ErrUnavailable, httpRes.Status)
	}

	var res accountInfoResponse
	if err := json.NewDecoder(httpRes.Body).Decode(&res); err != nil {
		return 0, fmt.Errorf("failed to get balance of %s: %w: %v", did, ErrRejected, err)
	}
	if len(res.AccountInfo) == 0 {
		return 0, fmt.Errorf("failed to get balance of %s: %w: empty account info", did, ErrRejected)
	}
	return res.AccountInfo[0].RBTAmount, nil
}

// GenerateTestTokens starts minting amount test tokens for the given DID.
// It returns the id of the pending transaction, to be finalized with [Client.ConfirmTransfer].
func (c Client) GenerateTestTokens(ctx context.Context, did string, amount float64) (string, error) {
	var res generateResponse
	req := generateRequest{
		DID:        did,
		TokenCount: amount,
	}

	if err := c.post(ctx, "/api/generate-faucettest-token", req, &res); err != nil {
		return "", fmt.Errorf("failed to generate test tokens: %w", err)
	}

	if res.Result.ID == "" {
		return "", fmt.Errorf("failed to generate test tokens: %w: missing transaction id", ErrRejected)
	}
	return res.Result.ID, nil
}

// post sends body as JSON to the given path on the node and decodes the response into out.
func (c Client) post(ctx context.Context, path string, body, out any) error {
	endpoint, err := url.JoinPath(c.config.NodeAddress, path)
	if err != nil {
		return fmt.Errorf("failed to build URL for %s: %w", path, err)
	}

	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %s", ErrUnavailable, res.Status)
	}

	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrRejected, err)
	}
	return nil
}
