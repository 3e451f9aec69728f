package production

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"strings"

	"github.com/resend/resend-go/v2"
	log "github.com/sirupsen/logrus"
)

// Message is an outbound operator email.
type Message struct {
	From    string
	To      []string
	Subject string
	HTML    string
}

// Mailer delivers operator email.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// ResendMailer sends through the Resend HTTP API.
type ResendMailer struct {
	client *resend.Client
}

// NewResendMailer builds a Resend-backed mailer.
func NewResendMailer(apiKey string) (*ResendMailer, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("resend: api key is required")
	}
	return &ResendMailer{client: resend.NewClient(apiKey)}, nil
}

// Send delivers msg.
func (m *ResendMailer) Send(ctx context.Context, msg Message) error {
	resp, err := m.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    msg.From,
		To:      msg.To,
		Subject: msg.Subject,
		Html:    msg.HTML,
	})
	if err != nil {
		return fmt.Errorf("resend: %w", err)
	}
	log.WithFields(log.Fields{"email_id": resp.Id, "recipients": len(msg.To)}).Debug("production email accepted")
	return nil
}

// LogMailer writes the email to the log instead of sending it.
type LogMailer struct{}

// Send logs msg.
func (LogMailer) Send(_ context.Context, msg Message) error {
	log.WithFields(log.Fields{
		"to":      strings.Join(msg.To, ","),
		"subject": msg.Subject,
		"bytes":   len(msg.HTML),
	}).Info("production email not sent: no mail provider configured")
	return nil
}

var summaryTemplate = template.Must(template.New("summary").Parse(`
<h2>New Order - Production Pack Ready</h2>
<p><strong>Order ID:</strong> <code>{{.OrderID}}</code></p>
<p><strong>Buyer:</strong> {{.Buyer.Name}} ({{.Buyer.Email}})</p>
{{- with .Buyer.Phone}}
<p><strong>Phone:</strong> {{.}}</p>
{{- end}}
<p><strong>Ship to:</strong><br/>{{range $i, $line := .AddressLines}}{{if $i}}<br/>{{end}}{{$line}}{{end}}</p>
{{- with .Buyer.MarketplaceOrderNumber}}
<p><strong>Etsy Order #:</strong> {{.}}</p>
{{- end}}
<p><strong>Download production pack (ZIP):</strong><br/>
  <a href="{{.PackURL}}">{{.PackURL}}</a>
</p>
<h3>Cards</h3>
<ol>
{{- range .Cards}}
  <li>
    <strong>Card {{.Index}}</strong><br/>
    Token: <code>{{.Token}}</code><br/>
    Setup code: <code>{{.SetupCode}}</code><br/>
    Wave template: {{.TemplateID}}<br/>
    {{- with .Message}}
    Message: {{.}}<br/>
    {{- end}}
    Token URL: {{.URL}}
  </li>
{{- end}}
</ol>
`))

type summaryCardView struct {
	MintedCard
	URL string
}

type summaryView struct {
	OrderID      string
	Buyer        Buyer
	AddressLines []string
	PackURL      string
	Cards        []summaryCardView
}

// RenderSummary renders the operator email body. Buyer supplied text is escaped.
func RenderSummary(orderID string, buyer Buyer, cards []MintedCard, packURL, baseURL string) (string, error) {
	view := summaryView{
		OrderID:      orderID,
		Buyer:        buyer,
		AddressLines: buyer.Address.Lines(),
		PackURL:      packURL,
		Cards:        make([]summaryCardView, 0, len(cards)),
	}
	for _, c := range cards {
		view.Cards = append(view.Cards, summaryCardView{MintedCard: c, URL: CardURL(baseURL, c.Token)})
	}
	var buf bytes.Buffer
	if err := summaryTemplate.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("render summary: %w", err)
	}
	return buf.String(), nil
}
