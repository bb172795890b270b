// Package messenger implements the outbound SMS capability on top of the
// Twilio REST API.
package messenger

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultAPIBaseURL = "https://api.twilio.com"

// SendError reports a rejected send attempt. The HTTP status and the
// provider's response body are kept for logging; callers treat any
// SendError as a transport failure.
type SendError struct {
	Status int
	Body   string
}

func (e *SendError) Error() string {
	return fmt.Sprintf("twilio send failed with status %d: %s", e.Status, e.Body)
}

// TwilioClient sends SMS messages through the Twilio Messages endpoint.
// It implements smsapi.Messenger.
type TwilioClient struct {
	accountSID string
	authToken  string
	fromNumber string
	baseURL    string
	httpClient *http.Client
}

// NewTwilioClient creates a Twilio-backed messenger.
// All three credentials are required.
func NewTwilioClient(accountSID, authToken, fromNumber string) (*TwilioClient, error) {
	if accountSID == "" {
		return nil, fmt.Errorf("twilio account SID cannot be empty")
	}
	if authToken == "" {
		return nil, fmt.Errorf("twilio auth token cannot be empty")
	}
	if fromNumber == "" {
		return nil, fmt.Errorf("twilio from number cannot be empty")
	}
	return &TwilioClient{
		accountSID: accountSID,
		authToken:  authToken,
		fromNumber: fromNumber,
		baseURL:    defaultAPIBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}, nil
}

// Send posts one message to the Twilio Messages endpoint and returns the
// provider message SID. It makes exactly one attempt; there are no
// retries here.
func (t *TwilioClient) Send(ctx context.Context, to, body string) (string, error) {
	form := url.Values{}
	form.Set("From", t.fromNumber)
	form.Set("To", to)
	form.Set("Body", body)

	endpoint := t.baseURL + "/2010-04-01/Accounts/" + t.accountSID + "/Messages.json"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to build twilio request: %w", err)
	}
	req.SetBasicAuth(t.accountSID, t.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := t.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to call twilio: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode >= 300 {
		respBody, _ := io.ReadAll(res.Body)
		return "", &SendError{Status: res.StatusCode, Body: string(respBody)}
	}

	var payload struct {
		SID string `json:"sid"`
	}
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("failed to decode twilio response: %w", err)
	}
	return payload.SID, nil
}
