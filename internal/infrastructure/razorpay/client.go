package razorpay

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"
)

type Client struct {
	KeyID     string
	KeySecret string
	BaseURL   string
	Mock      bool
	HTTP      *http.Client
}

// GatewayOrder is the payment order returned by Razorpay. Amount is in
// paise; the rest of the system works in rupees.
type GatewayOrder struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

type createOrderReq struct {
	Amount         int64  `json:"amount"`
	Currency       string `json:"currency"`
	Receipt        string `json:"receipt"`
	PaymentCapture int    `json:"payment_capture"`
}

// CreateOrder registers a payment order with the gateway. Amount is in
// rupees and converted to paise on the wire.
func (c *Client) CreateOrder(ctx context.Context, amount float64, currency, receipt string) (GatewayOrder, error) {
	if amount <= 0 {
		return GatewayOrder{}, fmt.Errorf("invalid amount")
	}
	if currency == "" {
		currency = "INR"
	}
	if receipt == "" {
		receipt = "receipt_" + strconv.FormatInt(time.Now().UnixMilli(), 10)
	}
	paise := int64(math.Round(amount * 100))
	if c.Mock {
		return GatewayOrder{
			ID:       "order_mock_" + randomString(14),
			Amount:   paise,
			Currency: currency,
			Receipt:  receipt,
		}, nil
	}
	if c.KeyID == "" || c.KeySecret == "" {
		return GatewayOrder{}, fmt.Errorf("razorpay keys not configured")
	}
	raw, err := json.Marshal(createOrderReq{Amount: paise, Currency: currency, Receipt: receipt, PaymentCapture: 1})
	if err != nil {
		return GatewayOrder{}, err
	}
	base := c.BaseURL
	if base == "" {
		base = "https://api.razorpay.com"
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/v1/orders", bytes.NewReader(raw))
	if err != nil {
		return GatewayOrder{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.KeyID, c.KeySecret)
	hc := c.HTTP
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	resp, err := hc.Do(req)
	if err != nil {
		return GatewayOrder{}, err
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return GatewayOrder{}, fmt.Errorf("razorpay error: %s", strings.TrimSpace(string(body)))
	}
	var out GatewayOrder
	if err := json.Unmarshal(body, &out); err != nil {
		return GatewayOrder{}, err
	}
	if out.ID == "" {
		return GatewayOrder{}, fmt.Errorf("missing order id")
	}
	return out, nil
}

// VerifySignature checks the checkout callback signature: hex HMAC-SHA256
// of "<order_id>|<payment_id>" keyed with the API secret.
func (c *Client) VerifySignature(gatewayOrderID, paymentID, signature string) bool {
	if gatewayOrderID == "" || paymentID == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(c.KeySecret))
	mac.Write([]byte(gatewayOrderID + "|" + paymentID))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

func randomString(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return strconv.FormatInt(time.Now().UnixNano(), 10)
	}
	const letters = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	for i := range b {
		b[i] = letters[int(b[i])%len(letters)]
	}
	return string(b)
}
