package provider

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/amyusif/madpc-notify/internal/domain"
	"github.com/go-resty/resty/v2"
)

const (
	defaultArkeselEndpoint = "https://sms.arkesel.com/api/v2/sms/send"
	defaultSMSTimeout      = 10 * time.Second

	// Arkesel's expected scheduled_date layout, e.g. "2026-09-01 06:00 AM".
	arkeselScheduleLayout = "2006-01-02 03:04 PM"
)

type arkeselRequest struct {
	Sender        string   `json:"sender"`
	Message       string   `json:"message"`
	Recipients    []string `json:"recipients"`
	ScheduledDate string   `json:"scheduled_date,omitempty"`
}

type arkeselResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    []struct {
		ID        string `json:"id"`
		Recipient string `json:"recipient"`
	} `json:"data"`
}

// ArkeselSMSProvider sends through the Arkesel v2 SMS API, which returns a
// structured JSON status. Scheduled sends are supported natively.
type ArkeselSMSProvider struct {
	client   *resty.Client
	endpoint string
	apiKey   string
	senderID string
}

func NewArkeselSMSProvider(apiKey, senderID string) (*ArkeselSMSProvider, error) {
	client := resty.New()
	client.SetTimeout(defaultSMSTimeout)
	client.SetRetryCount(0)

	return NewArkeselSMSProviderWithClient(defaultArkeselEndpoint, apiKey, senderID, client)
}

func NewArkeselSMSProviderWithClient(endpoint, apiKey, senderID string, client *resty.Client) (*ArkeselSMSProvider, error) {
	if strings.TrimSpace(endpoint) == "" {
		return nil, fmt.Errorf("arkesel endpoint is required")
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("arkesel api key is required")
	}
	if strings.TrimSpace(senderID) == "" {
		return nil, fmt.Errorf("arkesel sender id is required")
	}
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}

	if client.GetClient().Timeout == 0 {
		client.SetTimeout(defaultSMSTimeout)
	}
	client.SetRetryCount(0)

	return &ArkeselSMSProvider{
		client:   client,
		endpoint: strings.TrimSpace(endpoint),
		apiKey:   strings.TrimSpace(apiKey),
		senderID: strings.TrimSpace(senderID),
	}, nil
}

func (p *ArkeselSMSProvider) Channel() domain.Channel { return domain.ChannelSMS }

func (p *ArkeselSMSProvider) Send(ctx context.Context, msg domain.Message, rcpt domain.Recipient) (*SendResult, error) {
	if p == nil || p.client == nil {
		return nil, fmt.Errorf("arkesel provider is not initialized")
	}
	if rcpt.Phone == "" {
		return nil, fmt.Errorf("recipient %s has no phone number", rcpt.ID)
	}

	reqBody := arkeselRequest{
		Sender:     p.senderID,
		Message:    smsText(msg.Subject, msg.Body),
		Recipients: []string{vendorPhoneNumber(rcpt.Phone)},
	}
	if msg.ScheduledAt != nil {
		reqBody.ScheduledDate = msg.ScheduledAt.Format(arkeselScheduleLayout)
	}

	var parsed arkeselResponse
	response, err := p.client.R().
		SetContext(ctx).
		SetHeader("api-key", p.apiKey).
		SetHeader("Content-Type", "application/json").
		SetBody(reqBody).
		SetResult(&parsed).
		Post(p.endpoint)
	if err != nil {
		return nil, &ProviderError{
			Message: "arkesel request failed",
			Cause:   err,
		}
	}

	statusCode := response.StatusCode()
	responseBody := strings.TrimSpace(response.String())

	if statusCode >= http.StatusOK && statusCode < http.StatusMultipleChoices &&
		strings.EqualFold(parsed.Status, "success") {
		messageID := ""
		if len(parsed.Data) > 0 {
			messageID = parsed.Data[0].ID
		}
		return &SendResult{
			StatusCode: statusCode,
			Body:       responseBody,
			MessageID:  messageID,
		}, nil
	}

	return nil, &ProviderError{
		StatusCode: statusCode,
		Message:    responseBody,
	}
}
