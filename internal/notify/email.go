package notify

import (
	"context"
	"errors"
	"fmt"
	netmail "net/mail"
	"strings"
	"sync"

	"github.com/wolfman30/patient-intake/pkg/logging"
)

// EmailSender delivers a single email.
type EmailSender interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// EmailMessage is one outgoing email. Body is plain text; HTML is optional.
type EmailMessage struct {
	To      string
	ToName  string
	Subject string
	Body    string
	HTML    string
}

var ErrInvalidMessage = errors.New("notify: invalid email message")

const defaultFromName = "Patient Intake"

func (m EmailMessage) recipient() (*netmail.Address, error) {
	addr, err := netmail.ParseAddress(strings.TrimSpace(m.To))
	if err != nil {
		return nil, fmt.Errorf("%w: recipient %q: %v", ErrInvalidMessage, maskAddress(m.To), err)
	}
	if m.ToName != "" {
		addr.Name = m.ToName
	}
	if strings.TrimSpace(m.Body) == "" && strings.TrimSpace(m.HTML) == "" {
		return nil, fmt.Errorf("%w: empty body", ErrInvalidMessage)
	}
	return addr, nil
}

// maskAddress keeps the domain and the first letter of the mailbox so logs
// can tell recipients apart without carrying patient addresses.
func maskAddress(addr string) string {
	at := strings.LastIndex(addr, "@")
	if at <= 0 {
		return "***"
	}
	return addr[:1] + "***" + addr[at:]
}

// sender holds what every provider needs to stamp the From header.
type sender struct {
	from   netmail.Address
	logger *logging.Logger
}

func newSender(fromEmail, fromName string, logger *logging.Logger) sender {
	if logger == nil {
		logger = logging.Default()
	}
	if strings.TrimSpace(fromName) == "" {
		fromName = defaultFromName
	}
	return sender{from: netmail.Address{Name: fromName, Address: fromEmail}, logger: logger}
}

// StubEmailSender logs instead of sending and keeps what it was given.
type StubEmailSender struct {
	logger *logging.Logger

	mu   sync.Mutex
	sent []EmailMessage
}

func NewStubEmailSender(logger *logging.Logger) *StubEmailSender {
	if logger == nil {
		logger = logging.Default()
	}
	return &StubEmailSender{logger: logger}
}

func (s *StubEmailSender) Send(_ context.Context, msg EmailMessage) error {
	s.mu.Lock()
	s.sent = append(s.sent, msg)
	s.mu.Unlock()
	s.logger.Info("email not sent, stub provider", "to", maskAddress(msg.To), "subject", msg.Subject)
	return nil
}

// Sent returns a copy of every message passed to Send.
func (s *StubEmailSender) Sent() []EmailMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]EmailMessage(nil), s.sent...)
}

var _ EmailSender = (*StubEmailSender)(nil)
