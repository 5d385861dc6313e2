package provider

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/amyusif/madpc-notify/internal/domain"
	"github.com/go-resty/resty/v2"
)

const defaultMNotifyEndpoint = "https://apps.mnotify.net/smsapi"

// mNotify's legacy gateway replies with plain text rather than structured
// JSON: usually a numeric code, sometimes followed by "|<detail>". 1000 is
// the documented accepted code; some deployments answer with free-form
// "message sent" text instead. The markers below are best-effort and must
// stay confined to this adapter.
var mnotifyAffirmativeMarkers = []string{"success", "sent"}

const mnotifyAcceptedCode = "1000"

// MNotifySMSProvider sends through the mNotify legacy SMS API. The gateway
// has no scheduled-send capability, so the schedule hint is ignored.
type MNotifySMSProvider struct {
	client   *resty.Client
	endpoint string
	apiKey   string
	senderID string
}

func NewMNotifySMSProvider(apiKey, senderID string) (*MNotifySMSProvider, error) {
	client := resty.New()
	client.SetTimeout(defaultSMSTimeout)
	client.SetRetryCount(0)

	return NewMNotifySMSProviderWithClient(defaultMNotifyEndpoint, apiKey, senderID, client)
}

func NewMNotifySMSProviderWithClient(endpoint, apiKey, senderID string, client *resty.Client) (*MNotifySMSProvider, error) {
	if strings.TrimSpace(endpoint) == "" {
		return nil, fmt.Errorf("mnotify endpoint is required")
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("mnotify api key is required")
	}
	if strings.TrimSpace(senderID) == "" {
		return nil, fmt.Errorf("mnotify sender id is required")
	}
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}

	if client.GetClient().Timeout == 0 {
		client.SetTimeout(defaultSMSTimeout)
	}
	client.SetRetryCount(0)

	return &MNotifySMSProvider{
		client:   client,
		endpoint: strings.TrimSpace(endpoint),
		apiKey:   strings.TrimSpace(apiKey),
		senderID: strings.TrimSpace(senderID),
	}, nil
}

func (p *MNotifySMSProvider) Channel() domain.Channel { return domain.ChannelSMS }

func (p *MNotifySMSProvider) Send(ctx context.Context, msg domain.Message, rcpt domain.Recipient) (*SendResult, error) {
	if p == nil || p.client == nil {
		return nil, fmt.Errorf("mnotify provider is not initialized")
	}
	if rcpt.Phone == "" {
		return nil, fmt.Errorf("recipient %s has no phone number", rcpt.ID)
	}

	response, err := p.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"key":       p.apiKey,
			"to":        vendorPhoneNumber(rcpt.Phone),
			"msg":       smsText(msg.Subject, msg.Body),
			"sender_id": p.senderID,
		}).
		Get(p.endpoint)
	if err != nil {
		return nil, &ProviderError{
			Message: "mnotify request failed",
			Cause:   err,
		}
	}

	statusCode := response.StatusCode()
	responseBody := strings.TrimSpace(response.String())

	if statusCode >= http.StatusOK && statusCode < http.StatusMultipleChoices &&
		isAffirmativeMNotifyResponse(responseBody) {
		return &SendResult{
			StatusCode: statusCode,
			Body:       responseBody,
		}, nil
	}

	return nil, &ProviderError{
		StatusCode: statusCode,
		Message:    responseBody,
	}
}

// isAffirmativeMNotifyResponse scans a plain-text gateway reply
// case-insensitively for known affirmative markers. Anything else, including
// an empty body, counts as a failure.
func isAffirmativeMNotifyResponse(body string) bool {
	normalized := strings.ToLower(strings.TrimSpace(body))
	if normalized == "" {
		return false
	}

	for _, marker := range mnotifyAffirmativeMarkers {
		if strings.Contains(normalized, marker) {
			return true
		}
	}

	code, _, _ := strings.Cut(normalized, "|")
	return strings.TrimSpace(code) == mnotifyAcceptedCode
}
