package payout

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"medrefBack/internal/models"
)

// Client is a minimal Jump payout API client.
type Client struct {
	httpClient *http.Client
	merchantID string
	secret     string
	callback   string
	baseURL    string
}

// NewClient constructs a new Jump client.
func NewClient(httpClient *http.Client, baseURL, merchantID, secret, callback string) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		httpClient: httpClient,
		merchantID: merchantID,
		secret:     secret,
		callback:   callback,
		baseURL:    baseURL,
	}
}

// Secret returns the configured API secret.
func (c *Client) Secret() string { return c.secret }

// CreatePayout registers a transfer with the provider and returns its
// external reference.
func (c *Client) CreatePayout(ctx context.Context, paymentID int, netAmount int64) (string, error) {
	payload := map[string]interface{}{
		"merchant_id":  c.merchantID,
		"payment_id":   paymentID,
		"amount":       netAmount,
		"currency":     "RUB",
		"callback_url": c.callback,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/payout", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Signature", c.sign(body))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("jump: unexpected status %s", resp.Status)
	}

	var apiResp struct {
		Success   bool   `json:"success"`
		Reference string `json:"reference"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return "", err
	}
	if !apiResp.Success {
		return "", fmt.Errorf("jump: unsuccessful response")
	}
	return apiResp.Reference, nil
}

func (c *Client) sign(body []byte) string {
	mac := hmac.New(sha256.New, []byte(c.secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyHMAC validates a callback signature using HMAC-SHA256.
func VerifyHMAC(body []byte, signature, secret string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := mac.Sum(nil)

	sigBytes, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	return hmac.Equal(expected, sigBytes)
}

// Jump routes payouts through the external provider. While the provider
// overlay status is present it takes display precedence over the machine.
type Jump struct {
	client *Client
}

func NewJump(client *Client) *Jump { return &Jump{client: client} }

func (*Jump) Route() models.PayoutRoute { return models.RouteProvider }

func (j *Jump) Initiate(ctx context.Context, p models.Payment) (string, error) {
	return j.client.CreatePayout(ctx, p.ID, p.Net)
}

func (*Jump) DisplayStatus(p models.Payment) string {
	if label, ok := JumpLabel(p.JumpStatus); ok {
		return label
	}
	return StatusLabel(p.Status)
}
