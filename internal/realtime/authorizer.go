package realtime

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// ErrAuthRejected means the authorization endpoint refused to vouch for
// this session on the requested channel.
var ErrAuthRejected = errors.New("realtime: channel authorization rejected")

// Authorizer exchanges (socket id, channel name) for an auth grant the
// broker will accept on a private-channel subscription.
type Authorizer interface {
	Authorize(ctx context.Context, socketID, channelName string) (string, error)
}

type authRequest struct {
	SocketID    string `json:"socket_id"`
	ChannelName string `json:"channel_name"`
}

type authResponse struct {
	Auth string `json:"auth"`
}

// HTTPAuthorizer calls the backend's channel authorization endpoint with
// the session's bearer token. No client-side timeout is set; callers
// cancel via ctx when the session changes mid-flight.
type HTTPAuthorizer struct {
	endpoint string
	token    func() string
	client   *http.Client
}

// NewHTTPAuthorizer builds an authorizer for the given endpoint URL.
// token is read per request so refreshed session tokens are picked up.
func NewHTTPAuthorizer(endpoint string, token func() string) *HTTPAuthorizer {
	return &HTTPAuthorizer{
		endpoint: endpoint,
		token:    token,
		client:   http.DefaultClient,
	}
}

func (a *HTTPAuthorizer) Authorize(ctx context.Context, socketID, channelName string) (string, error) {
	body, err := json.Marshal(authRequest{SocketID: socketID, ChannelName: channelName})
	if err != nil {
		return "", fmt.Errorf("realtime: encode auth request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("realtime: build auth request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if tok := a.token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("realtime: auth request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return "", fmt.Errorf("%w: status %d", ErrAuthRejected, resp.StatusCode)
	}

	var parsed authResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("%w: malformed response: %v", ErrAuthRejected, err)
	}
	if parsed.Auth == "" {
		return "", fmt.Errorf("%w: empty auth token", ErrAuthRejected)
	}
	return parsed.Auth, nil
}
