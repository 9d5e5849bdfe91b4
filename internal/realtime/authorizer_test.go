package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestAuthorizeSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer session-token" {
			t.Errorf("Authorization = %q", got)
		}

		var req struct {
			SocketID    string `json:"socket_id"`
			ChannelName string `json:"channel_name"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.SocketID != "sock-1" || req.ChannelName != "private-notifications-STAFF-42" {
			t.Errorf("unexpected request %+v", req)
		}

		json.NewEncoder(w).Encode(map[string]string{"auth": "grant-token"})
	}))
	defer srv.Close()

	a := NewHTTPAuthorizer(srv.URL, func() string { return "session-token" })
	got, err := a.Authorize(context.Background(), "sock-1", "private-notifications-STAFF-42")
	if err != nil {
		t.Fatalf("Authorize() error = %v", err)
	}
	if got != "grant-token" {
		t.Errorf("Authorize() = %q, want grant-token", got)
	}
}

func TestAuthorizeRejections(t *testing.T) {
	cases := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"http 401", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}},
		{"http 500", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}},
		{"malformed body", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("not json"))
		}},
		{"empty auth field", func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]string{"auth": ""})
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(tc.handler)
			defer srv.Close()

			a := NewHTTPAuthorizer(srv.URL, func() string { return "tok" })
			_, err := a.Authorize(context.Background(), "sock-1", "ch")
			if !errors.Is(err, ErrAuthRejected) {
				t.Errorf("error = %v, want ErrAuthRejected", err)
			}
		})
	}
}

func TestAuthorizeCancelledMidFlight(t *testing.T) {
	blocked := make(chan struct{})
	started := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// The server only watches for client disconnect once the request
		// body has been consumed, so drain it before waiting on the context.
		io.Copy(io.Discard, r.Body)
		close(started)
		<-r.Context().Done()
		close(blocked)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	a := NewHTTPAuthorizer(srv.URL, func() string { return "tok" })

	done := make(chan error, 1)
	go func() {
		_, err := a.Authorize(ctx, "sock-1", "ch")
		done <- err
	}()

	<-started
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Authorize did not return after cancellation")
	}
	<-blocked
}

func TestAuthorizeNetworkError(t *testing.T) {
	a := NewHTTPAuthorizer("http://127.0.0.1:1", func() string { return "" })
	_, err := a.Authorize(context.Background(), "sock-1", "ch")
	if err == nil {
		t.Fatal("expected a transport error")
	}
	if errors.Is(err, ErrAuthRejected) {
		t.Error("network failure should not classify as a rejection")
	}
}
