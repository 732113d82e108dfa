package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"isp_billing_echo/internal/models"
)

// WahaConfig points at a WAHA (WhatsApp HTTP API) instance
type WahaConfig struct {
	BaseURL string
	APIKey  string
	Session string
}

// WahaService sends WhatsApp messages to customers through WAHA
type WahaService struct {
	cfg    WahaConfig
	client *http.Client
}

func NewWahaService(cfg WahaConfig) *WahaService {
	if cfg.Session == "" {
		cfg.Session = "default"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &WahaService{
		cfg:    cfg,
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

// Configured reports whether a WAHA endpoint is set
func (s *WahaService) Configured() bool {
	return s != nil && s.cfg.BaseURL != ""
}

func (s *WahaService) makeRequest(ctx context.Context, method, endpoint string, payload interface{}) error {
	var bodyReader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal payload: %w", err)
		}
		bodyReader = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.cfg.BaseURL+endpoint, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if s.cfg.APIKey != "" {
		req.Header.Set("X-Api-Key", s.cfg.APIKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(body))
	}

	return nil
}

// NormalizeChatID turns a customer phone number into a WhatsApp chat id.
// Local numbers starting with 0 get the 62 country code.
func NormalizeChatID(chatID string) string {
	chatID = strings.TrimSpace(chatID)

	if strings.HasSuffix(chatID, "@g.us") {
		return chatID
	}

	chatID = strings.TrimSuffix(chatID, "@c.us")
	chatID = strings.NewReplacer(" ", "", "-", "", "+", "").Replace(chatID)

	if strings.HasPrefix(chatID, "0") {
		chatID = "62" + strings.TrimPrefix(chatID, "0")
	}

	return chatID + "@c.us"
}

// SendMessage marks the chat as seen and then sends the text
func (s *WahaService) SendMessage(ctx context.Context, phone, text string) error {
	if !s.Configured() {
		return fmt.Errorf("WAHA base URL not configured")
	}
	chatID := NormalizeChatID(phone)

	if err := s.makeRequest(ctx, http.MethodPost, "/api/sendSeen", map[string]string{
		"chatId":  chatID,
		"session": s.cfg.Session,
	}); err != nil {
		return fmt.Errorf("failed to send seen: %w", err)
	}

	if err := s.makeRequest(ctx, http.MethodPost, "/api/sendText", map[string]string{
		"chatId":  chatID,
		"text":    text,
		"session": s.cfg.Session,
	}); err != nil {
		return fmt.Errorf("failed to send text: %w", err)
	}

	return nil
}

// ReceiptMessage renders the WhatsApp text confirming payments of one collection
func ReceiptMessage(customer models.Customer, payments []models.Payment) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s, we received your payment. Thank you!\n", customer.FullName)

	for _, p := range payments {
		label := fmt.Sprintf("invoice #%d", p.InvoiceID)
		if p.Invoice != nil && p.Invoice.Period != nil {
			label = fmt.Sprintf("%s %s", p.Invoice.Category, *p.Invoice.Period)
		}
		fmt.Fprintf(&b, "\n%s: %s (%s)", label, p.Amount.StringFixed(models.MoneyScale), p.ReceiptNo)
		if p.Invoice != nil && p.Invoice.Status != models.InvoiceStatusPaid {
			fmt.Fprintf(&b, ", remaining %s", p.Invoice.Outstanding().StringFixed(models.MoneyScale))
		}
	}
	if len(payments) > 0 {
		fmt.Fprintf(&b, "\n\nReceived on %s", payments[0].ReceivedAt.Format("02 Jan 2006 15:04"))
	}
	return b.String()
}
