// Package notify delivers out-of-band notifications to users who are not
// connected when a message arrives.
package notify

import (
	"fmt"
	"log"
	"net/smtp"
	"strings"
)

const previewLength = 100

// Notifier delivers a new-message notification to a single recipient.
// Implementations must be safe for concurrent use.
type Notifier interface {
	NotifyNewMessage(n MessageNotification) error
}

type MessageNotification struct {
	RecipientName  string
	RecipientEmail string
	SenderName     string
	RoomName       string
	Content        string
	IncludePreview bool
}

// Preview returns the first part of the message content, truncated the same
// way the notification email renders it.
func (n MessageNotification) Preview() string {
	if len(n.Content) <= previewLength {
		return n.Content
	}
	return n.Content[:previewLength] + "..."
}

// NopNotifier discards notifications. Used when no SMTP server is
// configured.
type NopNotifier struct{}

func (NopNotifier) NotifyNewMessage(MessageNotification) error { return nil }

type SmtpNotifier struct {
	addr   string
	from   string
	auth   smtp.Auth
	logger *log.Logger
}

func NewSmtpNotifier(addr, from, username, password string, logger *log.Logger) *SmtpNotifier {
	var auth smtp.Auth
	if username != "" {
		host := addr
		if i := strings.IndexByte(addr, ':'); i >= 0 {
			host = addr[:i]
		}
		auth = smtp.PlainAuth("", username, password, host)
	}

	return &SmtpNotifier{
		addr:   addr,
		from:   from,
		auth:   auth,
		logger: logger,
	}
}

func (s *SmtpNotifier) NotifyNewMessage(n MessageNotification) error {
	var body strings.Builder
	fmt.Fprintf(&body, "Hello, %s!\r\n\r\n", n.RecipientName)
	if n.RoomName != "" {
		fmt.Fprintf(&body, "%s sent a new message in %s", n.SenderName, n.RoomName)
	} else {
		fmt.Fprintf(&body, "%s sent you a new message", n.SenderName)
	}
	if n.IncludePreview {
		fmt.Fprintf(&body, ":\r\n%q\r\n", n.Preview())
	} else {
		body.WriteString(".\r\n")
	}
	body.WriteString("\r\nOpen the chat to reply.\r\n")

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: New chat message\r\n\r\n%s",
		s.from, n.RecipientEmail, body.String())

	if err := smtp.SendMail(s.addr, s.auth, s.from, []string{n.RecipientEmail}, []byte(msg)); err != nil {
		return fmt.Errorf("send notification mail: %w", err)
	}

	s.logger.Printf("sent new-message notification to %s", n.RecipientEmail)
	return nil
}
