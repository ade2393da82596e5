package telegram

import (
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"
)

type scriptedTransport struct {
	errs  []error
	calls int
}

func (s *scriptedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	s.calls++
	if s.calls <= len(s.errs) && s.errs[s.calls-1] != nil {
		return nil, s.errs[s.calls-1]
	}
	return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader("{}")), Request: req}, nil
}

func dialErr() error {
	return &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}
}

func TestRetryTransportRetriesDialErrors(t *testing.T) {
	base := &scriptedTransport{errs: []error{dialErr(), dialErr()}}
	client := BuildHTTPClient(HTTPClientOptions{Base: base, MaxRetries: 3, RetryBackoff: time.Millisecond})

	resp, err := client.Get("https://api.telegram.org/botX/getMe")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if base.calls != 3 {
		t.Fatalf("calls = %d, want 3", base.calls)
	}
}

func TestRetryTransportGivesUpOnPermanentError(t *testing.T) {
	base := &scriptedTransport{errs: []error{errors.New("tls: bad certificate")}}
	client := BuildHTTPClient(HTTPClientOptions{Base: base, RetryBackoff: time.Millisecond})

	if _, err := client.Get("https://api.telegram.org/botX/getMe"); err == nil {
		t.Fatal("expected error")
	}
	if base.calls != 1 {
		t.Fatalf("calls = %d, want 1", base.calls)
	}
}

func TestBuildHTTPClientStretchesTimeoutForLongPoll(t *testing.T) {
	client := BuildHTTPClient(HTTPClientOptions{LongPollTimeout: 50 * time.Second})
	if client.Timeout != 60*time.Second {
		t.Fatalf("timeout = %s", client.Timeout)
	}
	if def := BuildHTTPClient(HTTPClientOptions{}); def.Timeout != defaultClientTimeout {
		t.Fatalf("default timeout = %s", def.Timeout)
	}
}
