package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"luckyspin/models"
	"luckyspin/utils"

	"github.com/shopspring/decimal"
)

type destinationKind string

const (
	destinationPhone  destinationKind = "phone"
	destinationWallet destinationKind = "wallet"
)

// PaymentMethod is a supported payout rail.
type PaymentMethod struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Currency    models.Currency `json:"currency"`
	FeePercent  decimal.Decimal `json:"fee_percent"`
	Destination destinationKind `json:"destination"`
}

var (
	phonePrefixes = []string{"2010", "2011", "2012", "2015"}
	tonAddress    = regexp.MustCompile(`^[A-Za-z0-9_-]{48}$`)
	tronAddress   = regexp.MustCompile(`^T[1-9A-HJ-NP-Za-km-z]{33}$`)
	allDigits     = regexp.MustCompile(`^[0-9]+$`)
)

const phoneLength = 11

var paymentMethods = []PaymentMethod{
	{ID: "tounes", Name: "Tounes Cash", Currency: models.CurrencyEGP, FeePercent: decimal.RequireFromString("2.0"), Destination: destinationPhone},
	{ID: "fawry", Name: "Fawry Cash", Currency: models.CurrencyEGP, FeePercent: decimal.RequireFromString("1.5"), Destination: destinationPhone},
	{ID: "ton_wallet", Name: "TON Wallet", Currency: models.CurrencyTON, FeePercent: decimal.Zero, Destination: destinationWallet},
	{ID: "usdt_trc20", Name: "USDT (TRC20)", Currency: models.CurrencyUSDT, FeePercent: decimal.Zero, Destination: destinationWallet},
}

// PaymentMethods lists the supported payout rails.
func PaymentMethods() []PaymentMethod {
	out := make([]PaymentMethod, len(paymentMethods))
	copy(out, paymentMethods)
	return out
}

func lookupPaymentMethod(id string) (PaymentMethod, bool) {
	for _, m := range paymentMethods {
		if m.ID == id {
			return m, true
		}
	}
	return PaymentMethod{}, false
}

// Fee is the method fee for amount, rounded to two places.
func (m PaymentMethod) Fee(amount decimal.Decimal) decimal.Decimal {
	return amount.Mul(m.FeePercent).Div(decimal.NewFromInt(100)).Round(2)
}

// ValidateDestination checks the destination format of the method.
func (m PaymentMethod) ValidateDestination(dest string) error {
	dest = strings.TrimSpace(dest)
	switch m.ID {
	case "tounes", "fawry":
		if len(dest) != phoneLength || !allDigits.MatchString(dest) {
			return ErrInvalidDest
		}
		for _, p := range phonePrefixes {
			if strings.HasPrefix(dest, p) {
				return nil
			}
		}
		return ErrInvalidDest
	case "ton_wallet":
		if !tonAddress.MatchString(dest) {
			return ErrInvalidDest
		}
		return nil
	case "usdt_trc20":
		if !tronAddress.MatchString(dest) {
			return ErrInvalidDest
		}
		return nil
	}
	return ErrInvalidMethod
}

// PaymentGateway is the outbound payout collaborator.
type PaymentGateway interface {
	ValidateDestination(method, destination string) error
	// SubmitWithdrawal pays out w and returns the provider reference. A
	// *PaymentDeclined error means the provider refused; anything else is
	// a delivery failure and the withdrawal stays pending.
	SubmitWithdrawal(ctx context.Context, w *models.Withdrawal) (string, error)
}

// PaymentDeclined is a definitive refusal by the provider.
type PaymentDeclined struct {
	Reason string
}

func (e *PaymentDeclined) Error() string { return "payment declined: " + e.Reason }

func validateWithMethods(method, destination string) error {
	m, ok := lookupPaymentMethod(method)
	if !ok {
		return ErrInvalidMethod
	}
	return m.ValidateDestination(destination)
}

// MockGateway accepts every payout.
type MockGateway struct {
	Clock func() time.Time
}

func (g *MockGateway) ValidateDestination(method, destination string) error {
	return validateWithMethods(method, destination)
}

func (g *MockGateway) SubmitWithdrawal(ctx context.Context, w *models.Withdrawal) (string, error) {
	now := time.Now
	if g.Clock != nil {
		now = g.Clock
	}
	return fmt.Sprintf("MOCK_TXN%d_%d", w.AccountID, now().Unix()), nil
}

// HTTPGateway posts payouts to a provider API.
type HTTPGateway struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

func NewHTTPGateway(baseURL, apiKey string) *HTTPGateway {
	return &HTTPGateway{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		Client:  utils.HTTPClient,
	}
}

func (g *HTTPGateway) ValidateDestination(method, destination string) error {
	return validateWithMethods(method, destination)
}

type payoutResponse struct {
	Success       bool   `json:"success"`
	TransactionID string `json:"transaction_id"`
	Message       string `json:"message"`
}

func (g *HTTPGateway) SubmitWithdrawal(ctx context.Context, w *models.Withdrawal) (string, error) {
	url := fmt.Sprintf("%s/%s/withdraw", g.BaseURL, w.PaymentMethod)

	reqBody := map[string]interface{}{
		"amount":      w.Amount.Sub(w.Fee).String(),
		"currency":    w.Currency,
		"destination": w.Destination,
		"reference":   w.ID,
	}
	jsonData, _ := json.Marshal(reqBody)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.APIKey)

	resp, err := g.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("payment provider unreachable: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))

	if resp.StatusCode >= 500 {
		return "", fmt.Errorf("payment provider returned %d: %s", resp.StatusCode, string(body))
	}

	var out payoutResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("payment provider response: %w", err)
	}
	if resp.StatusCode != http.StatusOK || !out.Success {
		reason := out.Message
		if reason == "" {
			reason = fmt.Sprintf("status %d", resp.StatusCode)
		}
		return "", &PaymentDeclined{Reason: reason}
	}
	if out.TransactionID == "" {
		return "", fmt.Errorf("payment provider returned no transaction id")
	}
	return out.TransactionID, nil
}
