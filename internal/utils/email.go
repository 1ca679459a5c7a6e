package utils

import (
	"crypto/tls"
	"fmt"
	"net/smtp"
	"os"

	"go.uber.org/zap"
)

type SMTPCfg struct {
	Host string
	Port string
	User string
	Pass string
	From string
}

func loadSMTP() (*SMTPCfg, error) {
	cfg := &SMTPCfg{
		Host: os.Getenv("SMTP_HOST"),
		Port: os.Getenv("SMTP_PORT"),
		User: os.Getenv("SMTP_USER"),
		Pass: os.Getenv("SMTP_PASS"),
		From: os.Getenv("SMTP_FROM"),
	}
	if cfg.Host == "" {
		cfg.Host = "smtp.gmail.com"
	}
	if cfg.Port == "" {
		cfg.Port = "587"
	}
	if cfg.From == "" {
		cfg.From = cfg.User
	}
	if cfg.User == "" || cfg.Pass == "" || cfg.From == "" {
		return nil, fmt.Errorf("SMTP not configured")
	}
	return cfg, nil
}

// SMTPConfigured reports whether invitation emails can be sent.
func SMTPConfigured() bool {
	_, err := loadSMTP()
	return err == nil
}

var sendMail = smtp.SendMail

func SendEmail(to, subject, body string) error {
	cfg, err := loadSMTP()
	if err != nil {
		return err
	}

	addr := cfg.Host + ":" + cfg.Port
	msg := []byte("From: \"Crisp Interviews\" <" + cfg.From + ">\r\n" +
		"To: " + to + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: text/plain; charset=\"utf-8\"\r\n\r\n" +
		body + "\r\n")

	if cfg.Port != "465" {
		auth := smtp.PlainAuth("", cfg.User, cfg.Pass, cfg.Host)
		if err := sendMail(addr, auth, cfg.From, []string{to}, msg); err != nil {
			GetLogger().Warn("failed to send email", zap.String("to", to), zap.Error(err))
			return err
		}
		return nil
	}

	// implicit TLS
	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: cfg.Host})
	if err != nil {
		return err
	}
	c, err := smtp.NewClient(conn, cfg.Host)
	if err != nil {
		return err
	}
	defer c.Quit()
	if err := c.Auth(smtp.PlainAuth("", cfg.User, cfg.Pass, cfg.Host)); err != nil {
		return err
	}
	if err := c.Mail(cfg.From); err != nil {
		return err
	}
	if err := c.Rcpt(to); err != nil {
		return err
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	return w.Close()
}
