// Package mail sends generated documents through the Gmail API.
package mail

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	gomail "github.com/wneessen/go-mail"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"invoicer/internal/logger"
)

// Scope allows sending only.
const Scope = gmail.GmailSendScope

// Service sends mail as the authorised user.
type Service struct {
	messages *gmail.UsersMessagesService
	from     string
	now      func() time.Time
	log      zerolog.Logger
}

// NewService creates a Gmail client sending from the given address. An
// empty from lets Gmail fill in the account address.
func NewService(ctx context.Context, from string, opts ...option.ClientOption) (*Service, error) {
	const op = "mail.NewService"

	svc, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create gmail service: %w", op, err)
	}
	return &Service{
		messages: svc.Users.Messages,
		from:     from,
		now:      time.Now,
		log:      logger.WithComponent("mail"),
	}, nil
}

// Send mails body with the files attached and returns the Gmail message id.
func (s *Service) Send(ctx context.Context, to []string, subject, body string, attachments []string) (string, error) {
	const op = "mail.Send"

	files := make([]Attachment, 0, len(attachments))
	for _, path := range attachments {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("%s: %w", op, err)
		}
		files = append(files, Attachment{Name: filepath.Base(path), Data: data})
	}

	raw, err := BuildMessage(Message{
		From:        s.from,
		To:          to,
		Subject:     subject,
		Body:        body,
		Date:        s.now(),
		Attachments: files,
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	sent, err := s.messages.Send("me", &gmail.Message{
		Raw: base64.URLEncoding.EncodeToString(raw),
	}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("%s: failed to send message: %w", op, err)
	}

	s.log.Info().
		Strs("to", to).
		Str("subject", subject).
		Int("attachments", len(files)).
		Str("message_id", sent.Id).
		Msg("Mail sent")
	return sent.Id, nil
}

// Attachment is a file added to a message.
type Attachment struct {
	Name string
	Data []byte
}

// Message is a plain-text mail with attachments.
type Message struct {
	From        string
	To          []string
	Subject     string
	Body        string
	Date        time.Time
	Attachments []Attachment
}

// BuildMessage renders m as an RFC 5322 message with a multipart/mixed body.
// Addresses are parsed, so a header cannot be smuggled in through them.
func BuildMessage(m Message) ([]byte, error) {
	if len(m.To) == 0 {
		return nil, fmt.Errorf("message has no recipients")
	}

	msg := gomail.NewMsg(gomail.WithEncoding(gomail.EncodingB64))
	if m.From != "" {
		if err := msg.From(m.From); err != nil {
			return nil, fmt.Errorf("invalid sender %q: %w", m.From, err)
		}
	}
	if err := msg.To(m.To...); err != nil {
		return nil, fmt.Errorf("invalid recipient in %q: %w", m.To, err)
	}
	msg.Subject(m.Subject)
	if !m.Date.IsZero() {
		msg.SetDateWithValue(m.Date)
	}
	msg.SetBodyString(gomail.TypeTextPlain, m.Body)

	for _, a := range m.Attachments {
		ct := mime.TypeByExtension(filepath.Ext(a.Name))
		if ct == "" {
			ct = "application/octet-stream"
		}
		err := msg.AttachReader(a.Name, bytes.NewReader(a.Data),
			gomail.WithFileContentType(gomail.ContentType(ct)))
		if err != nil {
			return nil, fmt.Errorf("failed to attach %s: %w", a.Name, err)
		}
	}

	var buf bytes.Buffer
	if _, err := msg.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
