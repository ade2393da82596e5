package netutil

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
)

type flaky struct{ retry bool }

func (f flaky) Error() string   { return "flaky" }
func (f flaky) Retryable() bool { return f.retry }

func TestShouldRetry(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"canceled", fmt.Errorf("send: %w", context.Canceled), false},
		{"plain", errors.New("bad request"), false},
		{"dial", &net.OpError{Op: "dial", Err: errors.New("refused")}, true},
		{"dns timeout", &net.DNSError{IsTimeout: true}, true},
		{"marked retryable", fmt.Errorf("smtp: %w", flaky{retry: true}), true},
		{"marked permanent", flaky{retry: false}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ShouldRetry(tc.err); got != tc.want {
				t.Fatalf("ShouldRetry(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}
