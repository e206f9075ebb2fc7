package mail

import (
	"fmt"
	"log"
	"net/smtp"

	"github.com/bioping/bioping/internal/pkg/env"
)

// SendMail sends an HTML email via SMTP
func SendMail(to string, subject string, body string) error {
	host := env.GetEnv("SMTP_HOST", "")
	port := env.GetEnv("SMTP_PORT", "")
	username := env.GetEnv("SMTP_USERNAME", "")
	password := env.GetEnv("SMTP_PASSWORD", "")
	sender := env.GetEnv("SMTP_SENDER", "")

	if sender == "" {
		sender = fmt.Sprintf("no-reply@%s", "localhost")
		log.Printf("SMTP_SENDER not set, using default sender: %s", sender)
	}

	var auth smtp.Auth
	if username != "" && password != "" {
		auth = smtp.PlainAuth("", username, password, host)
	}

	addr := fmt.Sprintf("%s:%s", host, port)

	msg := []byte(
		fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n", sender, to, subject) +
			"MIME-Version: 1.0\r\n" +
			"Content-Type: text/html; charset=UTF-8\r\n\r\n" +
			body,
	)

	err := smtp.SendMail(addr, auth, sender, []string{to}, msg)
	if err != nil {
		log.Printf("SMTP send error: %v", err)
	} else {
		log.Printf("Email sent to %s via %s", to, addr)
	}
	return err
}

// SendVerificationCode mails the signup verification code.
func SendVerificationCode(to, name, code string) error {
	body := fmt.Sprintf(
		"Hi %s,<br><br>your BioPing verification code is <b>%s</b>. It expires in 10 minutes.",
		name, code,
	)
	return SendMail(to, "Verify your BioPing account", body)
}

// SendSuspensionNotice tells a user their account was suspended after
// repeated payment failures.
func SendSuspensionNotice(to, name string) error {
	body := fmt.Sprintf(
		"Hi %s,<br><br>we could not collect payment for your BioPing subscription after several attempts, "+
			"so your account has been suspended. Please update your payment method to restore access.",
		name,
	)
	return SendMail(to, "Action required: payment failed", body)
}
