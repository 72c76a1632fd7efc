package drive

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net"
	"net/http"
	"net/textproto"
	"net/url"
	"time"

	"github.com/drivekit/gdarch/internal/auth"
)

const (
	defaultBaseURL   = "https://www.googleapis.com/drive/v3"
	defaultUploadURL = "https://www.googleapis.com/upload/drive/v3"
	defaultPageSize  = 1000
	defaultMaxPages  = 10000
)

// Options configures a Client. Zero values fall back to the public
// Drive v3 endpoints and defaults.
type Options struct {
	BaseURL   string
	UploadURL string
	PageSize  int
	// MaxPages caps pagination per folder so a listing endpoint that
	// never stops returning a continuation token cannot loop forever.
	// Zero means the default ceiling; negative disables the ceiling.
	MaxPages int
}

// Client issues authenticated Drive v3 API calls.
type Client struct {
	httpClient *http.Client
	tokens     auth.TokenSource
	baseURL    string
	uploadURL  string
	pageSize   int
	maxPages   int
	logger     *slog.Logger
	userAgent  string
}

// NewClient creates a Drive client using tokens for authentication.
func NewClient(tokens auth.TokenSource, opts Options, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.UploadURL == "" {
		opts.UploadURL = defaultUploadURL
	}
	if opts.PageSize <= 0 {
		opts.PageSize = defaultPageSize
	}
	if opts.MaxPages == 0 {
		opts.MaxPages = defaultMaxPages
	}

	return &Client{
		httpClient: &http.Client{
			Transport: &http.Transport{
				DialContext:           (&net.Dialer{Timeout: 30 * time.Second}).DialContext,
				TLSHandshakeTimeout:   15 * time.Second,
				ResponseHeaderTimeout: 30 * time.Second,
				IdleConnTimeout:       90 * time.Second,
				MaxIdleConns:          100,
				MaxIdleConnsPerHost:   10,
			},
			// No overall Timeout — large content bodies can take as
			// long as they need. Context cancellation still applies.
		},
		tokens:    tokens,
		baseURL:   opts.BaseURL,
		uploadURL: opts.UploadURL,
		pageSize:  opts.PageSize,
		maxPages:  opts.MaxPages,
		logger:    logger,
		userAgent: "gdarch/1.0",
	}
}

// APIError represents a non-success Drive API response.
type APIError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("drive api error %d: %s", e.StatusCode, e.Status)
}

// newRequest builds a request with the bearer token and user agent set.
func (c *Client) newRequest(ctx context.Context, method, rawURL string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	tok, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("obtaining bearer token: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+tok)
	req.Header.Set("User-Agent", c.userAgent)
	return req, nil
}

// apiError drains up to a few KB of the body for diagnostics and
// returns the typed error.
func apiError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return &APIError{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Body:       string(body),
	}
}

// getJSON performs a GET and decodes a 200 response into out.
func (c *Client) getJSON(ctx context.Context, rawURL string, out any) error {
	req, err := c.newRequest(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return apiError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// GetMetadata fetches id, name and parents for a file or folder.
func (c *Client) GetMetadata(ctx context.Context, fileID string) (*Metadata, error) {
	q := url.Values{}
	q.Set("fields", "id,name,parents")
	var meta Metadata
	if err := c.getJSON(ctx, c.baseURL+"/files/"+url.PathEscape(fileID)+"?"+q.Encode(), &meta); err != nil {
		return nil, fmt.Errorf("fetching metadata for %s: %w", fileID, err)
	}
	return &meta, nil
}

// Fetch opens a streaming download of a file's content. The caller
// owns the returned body and must close it.
func (c *Client) Fetch(ctx context.Context, fileID string) (io.ReadCloser, error) {
	rawURL := c.baseURL + "/files/" + url.PathEscape(fileID) + "?alt=media"
	req, err := c.newRequest(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, apiError(resp)
	}
	return resp.Body, nil
}

// Upload streams content to Drive as a new file named name under
// parentID using a multipart/related request. It returns the created
// file's ID.
func (c *Client) Upload(ctx context.Context, name, parentID, contentType string, content io.Reader) (string, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		metaHdr := textproto.MIMEHeader{}
		metaHdr.Set("Content-Type", "application/json; charset=UTF-8")
		part, err := mw.CreatePart(metaHdr)
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		meta := map[string]any{"name": name, "parents": []string{parentID}}
		if err := json.NewEncoder(part).Encode(meta); err != nil {
			pw.CloseWithError(err)
			return
		}

		bodyHdr := textproto.MIMEHeader{}
		bodyHdr.Set("Content-Type", contentType)
		part, err = mw.CreatePart(bodyHdr)
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, content); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(mw.Close())
	}()

	req, err := c.newRequest(ctx, http.MethodPost, c.uploadURL+"/files?uploadType=multipart", pr)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "multipart/related; boundary="+mw.Boundary())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", apiError(resp)
	}

	var created struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", fmt.Errorf("decoding upload response: %w", err)
	}
	return created.ID, nil
}

// Delete removes a file or folder by ID.
func (c *Client) Delete(ctx context.Context, fileID string) error {
	req, err := c.newRequest(ctx, http.MethodDelete, c.baseURL+"/files/"+url.PathEscape(fileID), nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("delete request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return apiError(resp)
	}
	return nil
}
