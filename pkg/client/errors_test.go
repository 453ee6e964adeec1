package client

import (
	"errors"
	"io"
	"net/http"
	"testing"
	"time"
)

func TestShouldRetry(t *testing.T) {
	tests := []struct {
		name       string
		errorClass ErrorClass
		expected   bool
	}{
		{"client error", ErrorClassClient, false},
		{"server error", ErrorClassServer, true},
		{"rate limit", ErrorClassRateLimit, true},
		{"network error", ErrorClassNetwork, true},
		{"unknown class", ErrorClass("unknown"), false},
		{"empty class", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := shouldRetry(tt.errorClass); got != tt.expected {
				t.Errorf("shouldRetry(%q) = %v, want %v", tt.errorClass, got, tt.expected)
			}
		})
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		err        error
		expected   ErrorClass
	}{
		{name: "network error", err: io.EOF, expected: ErrorClassNetwork},
		{
			name:     "wrapped api error",
			err:      &APIError{StatusCode: 503, ErrorClass: ErrorClassServer},
			expected: ErrorClassServer,
		},
		{name: "client error 404", statusCode: 404, expected: ErrorClassClient},
		{name: "client error 403", statusCode: 403, expected: ErrorClassClient},
		{name: "rate limit 429", statusCode: 429, expected: ErrorClassRateLimit},
		{name: "server error 500", statusCode: 500, expected: ErrorClassServer},
		{name: "server error 520", statusCode: 520, expected: ErrorClassServer},
		{name: "success 200", statusCode: 200, expected: ""},
		{name: "not modified 304", statusCode: 304, expected: ""},
		{name: "nothing", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var resp *http.Response
			if tt.statusCode > 0 {
				resp = &http.Response{StatusCode: tt.statusCode}
			}

			if got := classifyError(resp, tt.err); got != tt.expected {
				t.Errorf("classifyError() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestAPIError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *APIError
		expected string
	}{
		{
			name: "without wrapped error",
			err: &APIError{
				StatusCode: 404,
				ErrorClass: ErrorClassClient,
				Message:    "404 Not Found",
			},
			expected: "API client error (status 404): 404 Not Found",
		},
		{
			name: "with wrapped error",
			err: &APIError{
				StatusCode: 503,
				ErrorClass: ErrorClassServer,
				Message:    "503 Service Unavailable",
				Err:        io.ErrUnexpectedEOF,
			},
			expected: "API server error (status 503): 503 Service Unavailable: unexpected EOF",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestAPIError_Unwrap(t *testing.T) {
	err := &APIError{StatusCode: 500, ErrorClass: ErrorClassServer, Err: io.EOF}
	if !errors.Is(err, io.EOF) {
		t.Error("errors.Is should find the wrapped error")
	}

	bare := &APIError{StatusCode: 500, ErrorClass: ErrorClassServer}
	if bare.Unwrap() != nil {
		t.Error("Unwrap() should return nil without a wrapped error")
	}
}

func TestParseRetryAfter(t *testing.T) {
	tests := []struct {
		name  string
		value string
		min   time.Duration
		max   time.Duration
	}{
		{name: "empty", value: "", min: 0, max: 0},
		{name: "seconds", value: "3", min: 3 * time.Second, max: 3 * time.Second},
		{name: "negative", value: "-1", min: 0, max: 0},
		{name: "garbage", value: "soon", min: 0, max: 0},
		{
			name:  "http date",
			value: time.Now().Add(10 * time.Second).UTC().Format(http.TimeFormat),
			min:   8 * time.Second,
			max:   10 * time.Second,
		},
		{
			name:  "past http date",
			value: time.Now().Add(-time.Minute).UTC().Format(http.TimeFormat),
			min:   0,
			max:   0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseRetryAfter(tt.value)
			if got < tt.min || got > tt.max {
				t.Errorf("parseRetryAfter(%q) = %v, want between %v and %v", tt.value, got, tt.min, tt.max)
			}
		})
	}
}
