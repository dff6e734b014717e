package sync

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/oauth2"
)

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "nil error",
			err:  nil,
			want: false,
		},
		{
			name: "record not found",
			err:  ErrRecordNotFound,
			want: false,
		},
		{
			name: "quota exceeded",
			err:  ErrQuotaExceeded,
			want: false,
		},
		{
			name: "permission denied",
			err:  ErrPermissionDenied,
			want: false,
		},
		{
			name: "conflict",
			err:  &ConflictError{Server: Record{Type: RecordTypeFamily, Name: "x"}},
			want: false,
		},
		{
			name: "network error",
			err:  &TransportError{Op: "save", Err: errors.New("connection refused")},
			want: true,
		},
		{
			name: "server error",
			err:  &TransportError{Op: "save", StatusCode: http.StatusInternalServerError},
			want: true,
		},
		{
			name: "bad gateway",
			err:  &TransportError{Op: "fetch", StatusCode: http.StatusBadGateway},
			want: true,
		},
		{
			name: "throttled",
			err:  &TransportError{Op: "save", StatusCode: http.StatusTooManyRequests},
			want: true,
		},
		{
			name: "request timeout",
			err:  &TransportError{Op: "save", StatusCode: http.StatusRequestTimeout},
			want: true,
		},
		{
			name: "bad request",
			err:  &TransportError{Op: "save", StatusCode: http.StatusBadRequest},
			want: false,
		},
		{
			name: "unrelated error",
			err:  errors.New("something else"),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func newTestClient(t *testing.T, handler http.Handler) *HTTPClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewHTTPClient(server.URL, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "test-token"}))
}

func TestHTTPClientFetchRecord(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("authorization header = %q", got)
		}
		switch r.URL.Path {
		case "/records/family/fam-1":
			json.NewEncoder(w).Encode(Record{Type: RecordTypeFamily, Name: "fam-1", Fields: map[string]interface{}{"name": "The Smiths"}})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))

	rec, err := client.FetchRecord(context.Background(), RecordTypeFamily, "fam-1")
	if err != nil {
		t.Fatalf("FetchRecord() failed: %v", err)
	}
	if rec.Name != "fam-1" || rec.Fields["name"] != "The Smiths" {
		t.Errorf("unexpected record: %+v", rec)
	}

	if _, err := client.FetchRecord(context.Background(), RecordTypeFamily, "missing"); !errors.Is(err, ErrRecordNotFound) {
		t.Errorf("expected ErrRecordNotFound, got %v", err)
	}
}

func TestHTTPClientSaveConflict(t *testing.T) {
	server := Record{
		Type:       RecordTypeFamily,
		Name:       "fam-1",
		Fields:     map[string]interface{}{"name": "Server Copy"},
		ModifiedAt: testClock(),
	}
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("method = %s, want PUT", r.Method)
		}
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(server)
	}))

	_, err := client.SaveRecord(context.Background(), Record{Type: RecordTypeFamily, Name: "fam-1", Fields: map[string]interface{}{}})
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
	if conflict.Server.Fields["name"] != "Server Copy" {
		t.Errorf("conflict payload = %+v", conflict.Server)
	}
}

func TestHTTPClientSaveErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		check  func(error) bool
	}{
		{
			name:   "quota exceeded",
			status: http.StatusRequestEntityTooLarge,
			check:  func(err error) bool { return errors.Is(err, ErrQuotaExceeded) },
		},
		{
			name:   "permission denied",
			status: http.StatusForbidden,
			check:  func(err error) bool { return errors.Is(err, ErrPermissionDenied) },
		},
		{
			name:   "server error is transport error",
			status: http.StatusInternalServerError,
			check:  IsRetryable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			_, err := client.SaveRecord(context.Background(), Record{Type: RecordTypeFamily, Name: "fam-1"})
			if err == nil || !tt.check(err) {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestHTTPClientDeleteRecord(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Errorf("method = %s, want DELETE", r.Method)
		}
		w.WriteHeader(http.StatusNotFound)
	}))

	// Deleting an already-gone record is fine.
	if err := client.DeleteRecord(context.Background(), RecordTypeMembership, "mem-1"); err != nil {
		t.Errorf("DeleteRecord() on missing record should succeed: %v", err)
	}
}
