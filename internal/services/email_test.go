package services

import (
	"errors"
	"net/smtp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmailServiceSendEmail(t *testing.T) {
	tests := []struct {
		name    string
		cfg     SMTPConfig
		to      []string
		sendErr error
		wantErr bool
		wantMsg string
	}{
		{
			name:    "sends message",
			cfg:     SMTPConfig{Host: "smtp.local", Port: "587", User: "ops", Password: "pw", From: "billing@isp.local"},
			to:      []string{"ops@isp.local"},
			wantMsg: "From: billing@isp.local\r\nTo: ops@isp.local\r\nSubject: Pending cycles\r\n\r\nbody\r\n",
		},
		{
			name:    "missing credentials",
			cfg:     SMTPConfig{Host: "smtp.local"},
			to:      []string{"ops@isp.local"},
			wantErr: true,
		},
		{
			name:    "no recipients",
			cfg:     SMTPConfig{Host: "smtp.local", Port: "587", User: "ops", Password: "pw"},
			wantErr: true,
		},
		{
			name:    "transport failure",
			cfg:     SMTPConfig{Host: "smtp.local", Port: "587", User: "ops", Password: "pw"},
			to:      []string{"ops@isp.local"},
			sendErr: errors.New("connection refused"),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewEmailService(tt.cfg)
			var gotAddr, gotMsg string
			svc.send = func(addr string, _ smtp.Auth, _ string, _ []string, msg []byte) error {
				gotAddr, gotMsg = addr, string(msg)
				return tt.sendErr
			}

			err := svc.SendEmail(tt.to, "Pending cycles", "body")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "smtp.local:587", gotAddr)
			assert.Equal(t, tt.wantMsg, gotMsg)
		})
	}

	var nilSvc *EmailService
	assert.False(t, nilSvc.Configured())
}
