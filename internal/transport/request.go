package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/agentstation/casesync/pkg/errors"
	"github.com/agentstation/casesync/pkg/logging"
)

// Service names the remote system in API errors.
const Service = "crm"

// NewRequest builds a request whose body is body encoded as JSON. A nil body
// sends no payload.
func NewRequest(ctx context.Context, method, url string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, errors.WrapParse("json", "request", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, err
	}
	return req, nil
}

// DecodeResponse decodes a JSON response into target. Non-2xx responses
// become an APIError carrying the status code and the remote message. A nil
// target discards the body.
func DecodeResponse(ctx context.Context, resp *http.Response, target any) error {
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logging.FromContext(ctx).Warn().Err(err).Msg("Failed to close response body")
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.WrapIO("read", "response body", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		endpoint := ""
		if resp.Request != nil && resp.Request.URL != nil {
			endpoint = resp.Request.Method + " " + resp.Request.URL.Path
		}
		return &errors.APIError{
			Service:    Service,
			StatusCode: resp.StatusCode,
			Message:    remoteMessage(body),
			Endpoint:   endpoint,
		}
	}

	if target == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, target); err != nil {
		return errors.WrapParse("json", "response", err)
	}
	return nil
}

// remoteMessage extracts the messages of a REST error payload,
// [{"message": "...", "errorCode": "..."}], falling back to the raw body.
func remoteMessage(body []byte) string {
	var payload []struct {
		Message   string `json:"message"`
		ErrorCode string `json:"errorCode"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && len(payload) > 0 {
		msgs := make([]string, 0, len(payload))
		for _, p := range payload {
			if p.ErrorCode != "" {
				msgs = append(msgs, p.ErrorCode+": "+p.Message)
			} else {
				msgs = append(msgs, p.Message)
			}
		}
		return strings.Join(msgs, "; ")
	}
	return strings.TrimSpace(string(body))
}
