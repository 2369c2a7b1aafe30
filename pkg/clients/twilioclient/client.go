package twilioclient

import (
	"context"
	"errors"
	"fmt"

	"github.com/twilio/twilio-go"
	twilioclient "github.com/twilio/twilio-go/client"
	api "github.com/twilio/twilio-go/rest/api/v2010"
)

// retryableHTTPStatuses are transient transport-level failures
var retryableHTTPStatuses = map[int]bool{
	429: true,
	500: true,
	502: true,
	503: true,
}

// retryableCodes are Twilio error codes for transient conditions such as
// queue overflow and unreachable handsets
var retryableCodes = map[int]bool{
	20003: true,
	21610: true,
	30001: true,
	30002: true,
	30003: true,
	30004: true,
	30005: true,
	30006: true,
}

// permanentCodes are Twilio error codes that no retry can fix, such as
// invalid or unverified destination numbers
var permanentCodes = map[int]bool{
	21211: true,
	21408: true,
	21614: true,
	21217: true,
	21601: true,
}

// ProviderError wraps a Twilio API failure with its classification
type ProviderError struct {
	Code    int
	Status  int
	Message string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("twilio error %d (http %d): %s", e.Code, e.Status, e.Message)
}

// Retryable reports whether the failure is transient. Unknown codes are
// treated as permanent.
func (e *ProviderError) Retryable() bool {
	if permanentCodes[e.Code] {
		return false
	}
	if retryableCodes[e.Code] {
		return true
	}
	return retryableHTTPStatuses[e.Status]
}

// Client sends SMS messages through the Twilio REST API
type Client struct {
	api  *twilio.RestClient
	from string
}

// New creates a Twilio client from account credentials
func New(accountSID, authToken, fromNumber string) (*Client, error) {
	if accountSID == "" || authToken == "" {
		return nil, errors.New("twilio credentials are required")
	}
	if fromNumber == "" {
		return nil, errors.New("twilio from number is required")
	}

	rest := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})

	return &Client{api: rest, from: fromNumber}, nil
}

// Send delivers one SMS message and returns the provider message id and
// initial status. The Twilio SDK does not take a context; ctx is checked
// before the call so cancelled dispatch runs stop promptly.
func (c *Client) Send(ctx context.Context, to, body string) (string, string, error) {
	if err := ctx.Err(); err != nil {
		return "", "", err
	}

	params := &api.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(c.from)
	params.SetBody(body)

	resp, err := c.api.Api.CreateMessage(params)
	if err != nil {
		var restErr *twilioclient.TwilioRestError
		if errors.As(err, &restErr) {
			return "", "", &ProviderError{
				Code:    restErr.Code,
				Status:  restErr.Status,
				Message: restErr.Message,
			}
		}
		return "", "", fmt.Errorf("failed to send message: %w", err)
	}

	sid := ""
	if resp.Sid != nil {
		sid = *resp.Sid
	}
	status := ""
	if resp.Status != nil {
		status = normalizeStatus(*resp.Status)
	}
	return sid, status, nil
}

// normalizeStatus folds Twilio's queued/accepted/sending statuses into
// "sent"; delivered, failed and undelivered pass through
func normalizeStatus(s string) string {
	switch s {
	case "queued", "accepted", "sending", "sent":
		return "sent"
	default:
		return s
	}
}

// DeliveryStatus fetches the current delivery status of a previously sent
// message by its provider id
func (c *Client) DeliveryStatus(ctx context.Context, providerID string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	resp, err := c.api.Api.FetchMessage(providerID, &api.FetchMessageParams{})
	if err != nil {
		return "", fmt.Errorf("failed to fetch message status: %w", err)
	}
	if resp.Status == nil {
		return "", nil
	}
	return *resp.Status, nil
}
