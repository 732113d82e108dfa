package tasks

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"isp_billing_echo/internal/models"
	"isp_billing_echo/internal/services"
	"isp_billing_echo/internal/testutil"
)

func seedPayment(t *testing.T, db *gorm.DB, phone string) models.Payment {
	customer := seedCustomer(t, db)
	require.NoError(t, db.Model(&customer).Update("phone", phone).Error)

	period := "2024-04"
	invoice := models.Invoice{
		CustomerID: customer.ID,
		Period:     &period,
		Category:   models.InvoiceCategoryMonthly,
		Amount:     decimal.RequireFromString("150000"),
		PaidAmount: decimal.RequireFromString("150000"),
		Status:     models.InvoiceStatusPaid,
		DueDate:    runnerNow.AddDate(0, 0, 10),
	}
	require.NoError(t, db.Create(&invoice).Error)

	payment := models.Payment{
		ReceiptNo:     "RCPT-1711929600000-0A1B2C3D",
		Amount:        decimal.RequireFromString("150000"),
		CustomerID:    customer.ID,
		InvoiceID:     invoice.ID,
		CollectorID:   1,
		CashSessionID: 1,
		ReceivedAt:    runnerNow,
	}
	require.NoError(t, db.Create(&payment).Error)
	return payment
}

func TestReceiptQueueEnqueue(t *testing.T) {
	db := testutil.NewDB(t)
	queue := NewReceiptQueue(db)
	queue.now = func() time.Time { return runnerNow }

	require.NoError(t, queue.Enqueue(context.Background(), nil))
	require.NoError(t, queue.Enqueue(context.Background(), []models.Payment{{ID: 4}, {ID: 5}}))

	var queued []models.ScheduledTask
	require.NoError(t, db.Find(&queued).Error)
	require.Len(t, queued, 1)
	assert.Equal(t, "send_payment_receipt", queued[0].TaskName)
	assert.Equal(t, models.ScheduledTaskTypeOneTime, queued[0].TaskType)
	assert.Equal(t, []interface{}{float64(4), float64(5)}, queued[0].Arguments["payment_ids"])
}

func TestSendPaymentReceiptTask(t *testing.T) {
	var sent map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/sendText" {
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&sent))
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	tests := []struct {
		name     string
		phone    string
		baseURL  string
		wantSent bool
		reason   string
	}{
		{"delivers receipt", "0812345678", server.URL, true, ""},
		{"customer without phone", "", server.URL, false, "customer has no phone"},
		{"whatsapp not configured", "0812345678", "", false, "whatsapp not configured"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sent = nil
			db := testutil.NewDB(t)
			payment := seedPayment(t, db, tt.phone)
			deps := Deps{
				DB:       db,
				WhatsApp: services.NewWahaService(services.WahaConfig{BaseURL: tt.baseURL}),
				Log:      zap.NewNop(),
			}

			task, err := BuildScheduledTask(SendPaymentReceiptTask.TaskID(), SendPaymentReceiptArgs{PaymentIDs: []uint{payment.ID}}, runnerNow, nil, models.ScheduledTaskTypeOneTime, 1)
			require.NoError(t, err)

			result, err := SendPaymentReceiptTask.HandleExecution(context.Background(), deps, *task)
			require.NoError(t, err)
			assert.Equal(t, tt.wantSent, result["sent"])
			if tt.wantSent {
				require.NotNil(t, sent)
				assert.Equal(t, "62812345678@c.us", sent["chatId"])
				assert.Contains(t, sent["text"], payment.ReceiptNo)
				assert.Equal(t, []string{payment.ReceiptNo}, result["receipts"])
			} else {
				assert.Equal(t, tt.reason, result["reason"])
				assert.Nil(t, sent)
			}
		})
	}
}
