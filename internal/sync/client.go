package sync

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"
)

var (
	// ErrRecordNotFound indicates the remote store has no record under
	// the requested name.
	ErrRecordNotFound = errors.New("remote record not found")

	// ErrQuotaExceeded indicates the remote store refused the write for
	// capacity reasons. Retrying will not help until space is freed.
	ErrQuotaExceeded = errors.New("remote storage quota exceeded")

	// ErrPermissionDenied indicates the device credentials were
	// rejected by the remote store.
	ErrPermissionDenied = errors.New("remote permission denied")
)

// ConflictError is returned by SaveRecord when the remote record
// changed since it was last fetched. The server's current version is
// attached so the caller can resolve and retry.
type ConflictError struct {
	Server Record
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("remote record %s/%s was modified concurrently", e.Server.Type, e.Server.Name)
}

// TransportError wraps a failed exchange with the remote store.
type TransportError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("remote %s failed with status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("remote %s failed: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether the failure is transient. Network
// errors, timeouts, throttling and server errors are worth retrying;
// missing records, quota and credential failures are not.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrRecordNotFound) || errors.Is(err, ErrQuotaExceeded) || errors.Is(err, ErrPermissionDenied) {
		return false
	}
	var conflict *ConflictError
	if errors.As(err, &conflict) {
		return false
	}
	var transport *TransportError
	if errors.As(err, &transport) {
		switch {
		case transport.StatusCode == 0:
			return true
		case transport.StatusCode == http.StatusRequestTimeout:
			return true
		case transport.StatusCode == http.StatusTooManyRequests:
			return true
		case transport.StatusCode >= 500:
			return true
		}
		return false
	}
	return false
}

// RemoteClient is the transport to the remote record store.
type RemoteClient interface {
	FetchRecord(ctx context.Context, recordType, name string) (Record, error)
	SaveRecord(ctx context.Context, rec Record) (Record, error)
	DeleteRecord(ctx context.Context, recordType, name string) error
}

// HTTPClient talks to the remote record store over HTTP. Requests are
// authenticated by the token source, records travel as JSON under
// /records/{type}/{name}.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPClient builds a client whose requests carry bearer tokens
// from the given source.
func NewHTTPClient(baseURL string, source oauth2.TokenSource) *HTTPClient {
	client := oauth2.NewClient(context.Background(), source)
	client.Timeout = 30 * time.Second
	return &HTTPClient{baseURL: baseURL, client: client}
}

// FetchRecord retrieves the current remote version of a record.
func (c *HTTPClient) FetchRecord(ctx context.Context, recordType, name string) (Record, error) {
	resp, err := c.do(ctx, http.MethodGet, c.recordURL(recordType, name), nil)
	if err != nil {
		return Record{}, &TransportError{Op: "fetch", Err: err}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var rec Record
		if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
			return Record{}, &TransportError{Op: "fetch", Err: fmt.Errorf("failed to decode record: %w", err)}
		}
		return rec, nil
	case http.StatusNotFound:
		return Record{}, ErrRecordNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		return Record{}, ErrPermissionDenied
	default:
		return Record{}, &TransportError{Op: "fetch", StatusCode: resp.StatusCode}
	}
}

// SaveRecord writes a record to the remote store. The record's
// ModifiedAt acts as a change tag; a stale tag yields a ConflictError
// carrying the server's current version.
func (c *HTTPClient) SaveRecord(ctx context.Context, rec Record) (Record, error) {
	body, err := json.Marshal(rec)
	if err != nil {
		return Record{}, &TransportError{Op: "save", Err: fmt.Errorf("failed to encode record: %w", err)}
	}

	resp, err := c.do(ctx, http.MethodPut, c.recordURL(rec.Type, rec.Name), bytes.NewReader(body))
	if err != nil {
		return Record{}, &TransportError{Op: "save", Err: err}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		var saved Record
		if err := json.NewDecoder(resp.Body).Decode(&saved); err != nil {
			return Record{}, &TransportError{Op: "save", Err: fmt.Errorf("failed to decode record: %w", err)}
		}
		return saved, nil
	case http.StatusConflict:
		var server Record
		if err := json.NewDecoder(resp.Body).Decode(&server); err != nil {
			return Record{}, &TransportError{Op: "save", Err: fmt.Errorf("failed to decode conflicting record: %w", err)}
		}
		return Record{}, &ConflictError{Server: server}
	case http.StatusRequestEntityTooLarge:
		return Record{}, ErrQuotaExceeded
	case http.StatusUnauthorized, http.StatusForbidden:
		return Record{}, ErrPermissionDenied
	default:
		return Record{}, &TransportError{Op: "save", StatusCode: resp.StatusCode}
	}
}

// DeleteRecord removes a record from the remote store. Deleting a
// record that is already gone is not an error.
func (c *HTTPClient) DeleteRecord(ctx context.Context, recordType, name string) error {
	resp, err := c.do(ctx, http.MethodDelete, c.recordURL(recordType, name), nil)
	if err != nil {
		return &TransportError{Op: "delete", Err: err}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent, http.StatusNotFound:
		return nil
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrPermissionDenied
	default:
		return &TransportError{Op: "delete", StatusCode: resp.StatusCode}
	}
}

func (c *HTTPClient) recordURL(recordType, name string) string {
	return fmt.Sprintf("%s/records/%s/%s", c.baseURL, url.PathEscape(recordType), url.PathEscape(name))
}

func (c *HTTPClient) do(ctx context.Context, method, rawURL string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.client.Do(req)
}
