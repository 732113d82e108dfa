package services

import (
	"fmt"
	"net/smtp"
	"strings"
)

// SMTPConfig holds outgoing mail settings
type SMTPConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	From     string
}

// EmailService sends plain-text operational mail
type EmailService struct {
	cfg  SMTPConfig
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewEmailService(cfg SMTPConfig) *EmailService {
	return &EmailService{cfg: cfg, send: smtp.SendMail}
}

// Configured reports whether every SMTP setting is present
func (s *EmailService) Configured() bool {
	return s != nil && s.cfg.Host != "" && s.cfg.Port != "" && s.cfg.User != "" && s.cfg.Password != ""
}

func (s *EmailService) SendEmail(to []string, subject, body string) error {
	if !s.Configured() {
		return fmt.Errorf("SMTP credentials not fully configured")
	}
	if len(to) == 0 {
		return fmt.Errorf("no recipients")
	}

	auth := smtp.PlainAuth("", s.cfg.User, s.cfg.Password, s.cfg.Host)

	message := []byte(fmt.Sprintf("From: %s\r\n"+
		"To: %s\r\n"+
		"Subject: %s\r\n"+
		"\r\n"+
		"%s\r\n", s.cfg.From, strings.Join(to, ", "), subject, body))

	addr := fmt.Sprintf("%s:%s", s.cfg.Host, s.cfg.Port)

	if err := s.send(addr, auth, s.cfg.From, to, message); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	return nil
}
