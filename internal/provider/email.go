package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/amyusif/madpc-notify/internal/domain"
	"github.com/go-resty/resty/v2"
)

const defaultEmailTimeout = 10 * time.Second

// Minimal HTML alternative wrapped around the plain-text body. The markup is
// deliberately small; clients that cannot render it fall back to the text part.
const emailHTMLTemplate = `<!doctype html>
<html>
<body style="margin:0;padding:16px;background:#f4f4f5">
<div style="font-family:Arial,Helvetica,sans-serif;max-width:600px;margin:0 auto;background:#ffffff;padding:24px;border-radius:6px">
<h2 style="color:#1a3c6e;margin-top:0">{{.Subject}}</h2>
<p>Dear {{.Name}},</p>
<p style="white-space:pre-line">{{.Body}}</p>
<p style="color:#6b7280;font-size:12px;margin-bottom:0">District Command Notification Service</p>
</div>
</body>
</html>`

type emailRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Text    string   `json:"text"`
	HTML    string   `json:"html"`
}

type emailResponse struct {
	ID string `json:"id"`
}

// EmailProvider wraps a transactional email HTTP API. Sends are one-shot;
// there is no retry inside the adapter.
type EmailProvider struct {
	client   *resty.Client
	endpoint string
	apiKey   string
	from     string
	html     *template.Template
}

func NewEmailProvider(endpoint, from, apiKey string) (*EmailProvider, error) {
	client := resty.New()
	client.SetTimeout(defaultEmailTimeout)
	client.SetRetryCount(0)

	return NewEmailProviderWithClient(endpoint, from, apiKey, client)
}

func NewEmailProviderWithClient(endpoint, from, apiKey string, client *resty.Client) (*EmailProvider, error) {
	trimmedEndpoint := strings.TrimSpace(endpoint)
	if trimmedEndpoint == "" {
		return nil, fmt.Errorf("email endpoint is required")
	}
	if _, err := url.ParseRequestURI(trimmedEndpoint); err != nil {
		return nil, fmt.Errorf("invalid email endpoint: %w", err)
	}
	if strings.TrimSpace(from) == "" {
		return nil, fmt.Errorf("email from address is required")
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("email api key is required")
	}
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}

	if client.GetClient().Timeout == 0 {
		client.SetTimeout(defaultEmailTimeout)
	}
	client.SetRetryCount(0)

	tmpl, err := template.New("email").Parse(emailHTMLTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse email template: %w", err)
	}

	return &EmailProvider{
		client:   client,
		endpoint: trimmedEndpoint,
		apiKey:   strings.TrimSpace(apiKey),
		from:     strings.TrimSpace(from),
		html:     tmpl,
	}, nil
}

func (p *EmailProvider) Channel() domain.Channel { return domain.ChannelEmail }

func (p *EmailProvider) Send(ctx context.Context, msg domain.Message, rcpt domain.Recipient) (*SendResult, error) {
	if p == nil || p.client == nil {
		return nil, fmt.Errorf("email provider is not initialized")
	}
	if rcpt.Email == "" {
		return nil, fmt.Errorf("recipient %s has no email address", rcpt.ID)
	}

	htmlBody, err := p.renderHTML(msg, rcpt)
	if err != nil {
		return nil, fmt.Errorf("failed to render email html: %w", err)
	}

	reqBody := emailRequest{
		From:    p.from,
		To:      []string{rcpt.Email},
		Subject: msg.Subject,
		Text:    msg.Body,
		HTML:    htmlBody,
	}

	response, err := p.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("Authorization", "Bearer "+p.apiKey).
		SetBody(reqBody).
		Post(p.endpoint)
	if err != nil {
		return nil, &ProviderError{
			Message: "email provider request failed",
			Cause:   err,
		}
	}

	statusCode := response.StatusCode()
	responseBody := strings.TrimSpace(response.String())

	if statusCode >= http.StatusOK && statusCode < http.StatusMultipleChoices {
		var parsed emailResponse
		_ = json.Unmarshal(response.Body(), &parsed)

		return &SendResult{
			StatusCode: statusCode,
			Body:       responseBody,
			MessageID:  parsed.ID,
		}, nil
	}

	return nil, &ProviderError{
		StatusCode: statusCode,
		Message:    responseBody,
	}
}

func (p *EmailProvider) renderHTML(msg domain.Message, rcpt domain.Recipient) (string, error) {
	name := strings.TrimSpace(rcpt.Name)
	if name == "" {
		name = "Officer"
	}

	var buf bytes.Buffer
	err := p.html.Execute(&buf, struct {
		Subject string
		Name    string
		Body    string
	}{
		Subject: msg.Subject,
		Name:    name,
		Body:    msg.Body,
	})
	if err != nil {
		return "", err
	}

	return buf.String(), nil
}
