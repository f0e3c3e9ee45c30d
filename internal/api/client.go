// Package api implements the raw HTTP client for the reMarkable's USB
// web interface. The device serves an unauthenticated REST API at
// http://10.11.99.1 while the "USB web interface" setting is enabled.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"

	"github.com/rmtools/rmusb/internal/logger"
)

const (
	// DefaultBaseURL is the device address over the USB network link.
	DefaultBaseURL = "http://10.11.99.1"

	// DefaultRetries is how often a failed request is retried. The USB
	// interface drops requests under load, so immediate retries are
	// usually enough.
	DefaultRetries = 3
)

// ErrMkdirUnsupported is returned by Mkdir: the USB web interface has no
// folder-creation endpoint, so folders must be created on the device.
var ErrMkdirUnsupported = errors.New("the device API cannot create folders")

// StatusError reports a non-success HTTP response from the device.
type StatusError struct {
	Method string
	URL    string
	Code   int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: device returned %d", e.Method, e.URL, e.Code)
}

// Client talks to the device's USB web interface.
type Client struct {
	baseURL    string
	httpClient *http.Client
	retries    int
}

// Option configures the client.
type Option func(*Client)

// WithBaseURL sets a custom device address.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRetries sets how often failed requests are retried.
func WithRetries(n int) Option {
	return func(c *Client) { c.retries = n }
}

// NewClient creates a client for the device's USB web interface.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		httpClient: http.DefaultClient,
		retries:    DefaultRetries,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the device address the client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

// ReadFolder lists the entries of one folder. An empty folderID lists
// the root folder. The call does not recurse.
func (c *Client) ReadFolder(ctx context.Context, folderID string) ([]DocumentInfo, error) {
	u := c.baseURL + "/documents/" + url.PathEscape(folderID)

	resp, err := c.doRetry(ctx, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodPost, u, nil)
	})
	if err != nil {
		return nil, fmt.Errorf("listing folder %q: %w", folderID, err)
	}
	defer resp.Body.Close()

	var docs []DocumentInfo
	if err := json.NewDecoder(resp.Body).Decode(&docs); err != nil {
		return nil, fmt.Errorf("listing folder %q: decoding response: %w", folderID, err)
	}
	return docs, nil
}

// DownloadDocument streams the rendered document (a PDF) to w.
func (c *Client) DownloadDocument(ctx context.Context, documentID string, w io.Writer) error {
	u := c.baseURL + "/download/" + url.PathEscape(documentID) + "/placeholder"

	resp, err := c.doRetry(ctx, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	})
	if err != nil {
		return fmt.Errorf("downloading %q: %w", documentID, err)
	}
	defer resp.Body.Close()

	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("downloading %q: %w", documentID, err)
	}
	return nil
}

// StatDocument checks that the document exists and is downloadable
// without transferring its content.
func (c *Client) StatDocument(ctx context.Context, documentID string) error {
	u := c.baseURL + "/download/" + url.PathEscape(documentID) + "/placeholder"

	resp, err := c.doRetry(ctx, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodHead, u, nil)
	})
	if err != nil {
		return fmt.Errorf("stat %q: %w", documentID, err)
	}
	resp.Body.Close()
	return nil
}

// UploadDocument uploads a file into the device's current upload folder.
// The device places uploads into whichever folder its web UI last
// listed, so callers must ReadFolder the target folder immediately
// before uploading. Uploads are not retried: a retried upload could
// duplicate the document.
func (c *Client) UploadDocument(ctx context.Context, name string, r io.Reader) error {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		part, err := mw.CreateFormFile("file", name)
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, r); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(mw.Close())
	}()

	u := c.baseURL + "/upload"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, pr)
	if err != nil {
		return fmt.Errorf("uploading %q: %w", name, err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("uploading %q: %w", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("uploading %q: %w", name, &StatusError{Method: http.MethodPost, URL: u, Code: resp.StatusCode})
	}
	return nil
}

// Mkdir always fails with ErrMkdirUnsupported. It exists so callers get
// a precise error naming the folder the user has to create on the device.
func (c *Client) Mkdir(ctx context.Context, path string) error {
	return fmt.Errorf("mkdir %q: %w; create the folder on the device", path, ErrMkdirUnsupported)
}

// doRetry issues the request and retries on transport errors or
// non-2xx responses, up to c.retries additional attempts. The request
// is rebuilt per attempt since a body-bearing request cannot be reused.
func (c *Client) doRetry(ctx context.Context, build func() (*http.Request, error)) (*http.Response, error) {
	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		req, err := build()
		if err != nil {
			return nil, err
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			logger.Debug("request %s %s failed (attempt %d/%d): %v", req.Method, req.URL, attempt+1, c.retries+1, err)
			continue
		}

		if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
			return resp, nil
		}

		resp.Body.Close()
		lastErr = &StatusError{Method: req.Method, URL: req.URL.String(), Code: resp.StatusCode}
		logger.Debug("request %s %s failed (attempt %d/%d): status %d", req.Method, req.URL, attempt+1, c.retries+1, resp.StatusCode)
	}
	return nil, lastErr
}
