package submission

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/01moynul/bookshelf-admin/internal/models"
	"github.com/01moynul/bookshelf-admin/internal/variation"
)

// maxErrorBody caps how much of a failed response is kept in a TransportError.
const maxErrorBody = 512

// TransportError is any failure of the call itself: network, auth or server fault.
type TransportError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("submission transport: %v", e.Err)
	}
	return fmt.Sprintf("submission transport: status %d: %s", e.StatusCode, e.Body)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Client talks to the catalog backend.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

type validationBody struct {
	Message string          `json:"message"`
	Errors  json.RawMessage `json:"errors"`
}

// Submit sends an encoded form. A 422 answer becomes a *variation.FieldValidationError;
// any other failure becomes a *TransportError.
func (c *Client) Submit(ctx context.Context, bearer string, p *Payload) (*models.Book, error) {
	url := c.baseURL + "/books"
	if p.BookID != nil {
		url = fmt.Sprintf("%s/books/%d", c.baseURL, *p.BookID)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(p.Body))
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	req.Header.Set("Content-Type", p.ContentType)
	return c.doBook(req, bearer)
}

// FetchBook loads an existing book so its variations can be edited.
func (c *Client) FetchBook(ctx context.Context, bearer string, id int64) (*models.Book, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/books/%d", c.baseURL, id), nil)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	return c.doBook(req, bearer)
}

func (c *Client) doBook(req *http.Request, bearer string) (*models.Book, error) {
	req.Header.Set("Accept", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{StatusCode: resp.StatusCode, Err: err}
	}

	switch {
	case resp.StatusCode == http.StatusUnprocessableEntity:
		return nil, decodeValidation(body)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, &TransportError{StatusCode: resp.StatusCode, Body: truncate(string(body), maxErrorBody)}
	}
	return decodeBook(body)
}

func decodeBook(body []byte) (*models.Book, error) {
	var wrapped struct {
		Data *models.Book `json:"data"`
	}
	if err := json.Unmarshal(body, &wrapped); err == nil && wrapped.Data != nil {
		return wrapped.Data, nil
	}
	var b models.Book
	if err := json.Unmarshal(body, &b); err != nil {
		return nil, &TransportError{StatusCode: http.StatusOK, Err: fmt.Errorf("decode book: %w", err)}
	}
	return &b, nil
}

func decodeValidation(body []byte) error {
	var vb validationBody
	if err := json.Unmarshal(body, &vb); err != nil {
		return &TransportError{StatusCode: http.StatusUnprocessableEntity, Err: fmt.Errorf("decode validation errors: %w", err)}
	}
	flat := map[string][]string{}
	if len(vb.Errors) > 0 && string(vb.Errors) != "null" {
		decoded, err := variation.DecodeErrorMap(vb.Errors)
		if err != nil {
			return &TransportError{StatusCode: http.StatusUnprocessableEntity, Err: err}
		}
		flat = decoded
	}
	mapped := variation.MapErrors(flat)
	if mapped.Count() == 0 && vb.Message != "" {
		mapped.General["message"] = []string{vb.Message}
	}
	return &variation.FieldValidationError{Message: vb.Message, Errors: mapped}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
