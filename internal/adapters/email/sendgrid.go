package email

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/mail"
	"time"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

const (
	sendgridHost     = "https://api.sendgrid.com"
	sendgridEndpoint = "/v3/mail/send"
)

// SendGridSender sends emails via the SendGrid v3 mail API.
type SendGridSender struct {
	key     string
	from    string
	replyTo string
}

// NewSendGridSender creates a sender for the given API key and default addresses.
// PRE: apiKey is a valid SendGrid API key; from is a valid sender address
// POST: Returns a ready-to-use sender
func NewSendGridSender(apiKey, from, replyTo string) *SendGridSender {
	return &SendGridSender{key: apiKey, from: from, replyTo: replyTo}
}

// message builds the v3 payload for req.
// PRE: req has at least one recipient
// POST: Returns an error if any address fails to parse
func (s *SendGridSender) message(req SendRequest) (*sgmail.SGMailV3, error) {
	from := req.From
	if from == "" {
		from = s.from
	}
	fromAddr, err := sgAddress(from)
	if err != nil {
		return nil, err
	}

	p := sgmail.NewPersonalization()
	p.Subject = req.Subject
	for _, to := range req.To {
		addr, err := sgAddress(to)
		if err != nil {
			return nil, err
		}
		p.AddTos(addr)
	}

	m := sgmail.NewV3Mail()
	m.SetFrom(fromAddr)
	m.Subject = req.Subject
	m.AddPersonalizations(p)

	// SendGrid requires text/plain before text/html.
	if req.Text != "" {
		m.AddContent(sgmail.NewContent("text/plain", req.Text))
	}
	if req.HTML != "" {
		m.AddContent(sgmail.NewContent("text/html", req.HTML))
	}

	replyTo := req.ReplyTo
	if replyTo == "" {
		replyTo = s.replyTo
	}
	if replyTo != "" {
		addr, err := sgAddress(replyTo)
		if err != nil {
			return nil, err
		}
		m.SetReplyTo(addr)
	}
	return m, nil
}

func sgAddress(raw string) (*sgmail.Email, error) {
	addr, err := mail.ParseAddress(raw)
	if err != nil {
		return nil, fmt.Errorf("parse address %q: %w", raw, err)
	}
	return sgmail.NewEmail(addr.Name, addr.Address), nil
}

// Send sends a single email via SendGrid.
// PRE: req has at least one recipient and a subject
// POST: Email is accepted for delivery; returns the SendGrid message ID when present
func (s *SendGridSender) Send(ctx context.Context, req SendRequest) (SendResult, error) {
	if err := ctx.Err(); err != nil {
		return SendResult{}, err
	}
	m, err := s.message(req)
	if err != nil {
		return SendResult{}, fmt.Errorf("sendgrid message: %w", err)
	}

	r := sendgrid.GetRequest(s.key, sendgridEndpoint, sendgridHost)
	r.Method = http.MethodPost
	r.Body = sgmail.GetRequestBody(m)

	res, err := sendgrid.API(r)
	if err != nil {
		slog.Error("sendgrid_send_failed", "error", err, "to", req.To, "subject", req.Subject)
		return SendResult{}, fmt.Errorf("sendgrid send failed: %w", err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		slog.Error("sendgrid_send_rejected", "status", res.StatusCode, "body", res.Body, "subject", req.Subject)
		return SendResult{}, fmt.Errorf("sendgrid send rejected: status %d", res.StatusCode)
	}

	var id string
	if ids := res.Headers["X-Message-Id"]; len(ids) > 0 {
		id = ids[0]
	}
	slog.Info("sendgrid_sent", "message_id", id, "subject", req.Subject)
	return SendResult{MessageID: id, SentAt: time.Now()}, nil
}

// SendBatch sends each request in turn.
// POST: Returns results in request order; on error, results cover the requests already sent
func (s *SendGridSender) SendBatch(ctx context.Context, reqs []SendRequest) ([]SendResult, error) {
	results := make([]SendResult, 0, len(reqs))
	for _, req := range reqs {
		res, err := s.Send(ctx, req)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}
