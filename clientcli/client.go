package clientcli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	potatosync "github.com/broodroosterdev/potatosync-files"
)

// DefaultTimeout is the default HTTP client timeout.
const DefaultTimeout = 5 * time.Minute

// Client performs operations against a potatosync-files server.
type Client struct {
	config     *Config
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// New creates a new Client with the given config and options.
func New(cfg *Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, ErrConfigRequired
	}

	// Apply defaults
	cfg = cfg.WithDefaults()
	if err := cfg.ValidateWithAuth(); err != nil {
		return nil, err
	}

	c := &Client{
		config: &Config{
			Endpoint: strings.TrimSuffix(cfg.Endpoint, "/"),
			Token:    cfg.Token,
		},
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}

	// Apply options
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// newRequest builds an authenticated request for a server path.
func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.config.Endpoint+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.config.Token)
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// doJSON executes req and decodes a 200 response into out.
func (c *Client) doJSON(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return parseServerError(resp.StatusCode, body)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

func filePath(name string) string {
	return "/files/" + url.PathEscape(name)
}

// Quota returns the caller's usage and file limit.
func (c *Client) Quota(ctx context.Context) (*QuotaResult, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/limit", http.NoBody)
	if err != nil {
		return nil, err
	}

	var q QuotaResult
	if err := c.doJSON(req, &q); err != nil {
		return nil, err
	}
	return &q, nil
}

// Upload uploads a single file.
//
// The request asks for 100-continue, so a server that rejects the upload
// (quota, bad name, bad token) answers before the body is sent. When the
// server hands out a presigned URL instead of accepting the body, the file
// is sent to that URL.
func (c *Client) Upload(ctx context.Context, opts UploadOptions) (UploadResult, error) {
	if opts.LocalPath == "" {
		return UploadResult{}, fmt.Errorf("upload: %w", ErrEmptyPath)
	}

	name := opts.Name
	if name == "" {
		name = filepath.Base(opts.LocalPath)
	}
	if !potatosync.IsValidName(name) {
		return UploadResult{}, fmt.Errorf("upload %q: %w", name, ErrInvalidName)
	}

	contentType := opts.ContentType
	if contentType == "" {
		contentType = detectContentType(opts.LocalPath)
	}

	file, size, err := openUpload(opts.LocalPath)
	if err != nil {
		return UploadResult{}, err
	}

	req, err := c.newRequest(ctx, http.MethodPut, filePath(name), file)
	if err != nil {
		_ = file.Close()
		return UploadResult{}, err
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Expect", "100-continue")
	req.ContentLength = size

	// The transport closes file.
	var out serverUpload
	if err := c.doJSON(req, &out); err != nil {
		return UploadResult{}, err
	}

	result := UploadResult{
		LocalPath: opts.LocalPath,
		Name:      name,
		ETag:      out.ETag,
		Size:      out.Size,
	}

	switch out.Status {
	case statusUploadSuccess:
		return result, nil
	case statusUploadURL:
		etag, err := c.uploadPresigned(ctx, out.URL, opts.LocalPath, contentType)
		if err != nil {
			return UploadResult{}, fmt.Errorf("upload %s: %w", name, err)
		}
		result.ETag = etag
		result.Size = size
		result.Presigned = true
		return result, nil
	default:
		return UploadResult{}, fmt.Errorf("upload %s: unexpected status %q", name, out.Status)
	}
}

// uploadPresigned sends the file to a presigned PUT URL. The URL carries
// its own credentials; the bearer token is not sent.
func (c *Client) uploadPresigned(ctx context.Context, rawURL, localPath, contentType string) (string, error) {
	if rawURL == "" {
		return "", errors.New("server returned an empty upload url")
	}

	file, size, err := openUpload(localPath)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, rawURL, file)
	if err != nil {
		_ = file.Close()
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.ContentLength = size

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", parseServerError(resp.StatusCode, body)
	}

	return strings.Trim(resp.Header.Get("ETag"), `"`), nil
}

func openUpload(localPath string) (*os.File, int64, error) {
	file, err := os.Open(localPath) //#nosec G304 -- localPath is user-provided input
	if err != nil {
		return nil, 0, fmt.Errorf("open file: %w", err)
	}

	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, 0, fmt.Errorf("stat file: %w", err)
	}
	if !info.Mode().IsRegular() {
		_ = file.Close()
		return nil, 0, fmt.Errorf("upload %s: not a regular file", localPath)
	}

	return file, info.Size(), nil
}

// Download downloads a file from the server, following a presigned URL
// when the server returns one.
// If opts.LocalPath is "-", the content is returned via the io.ReadCloser and must be closed by the caller.
// Otherwise, the content is written to the file and the io.ReadCloser is nil.
func (c *Client) Download(ctx context.Context, opts DownloadOptions) (*DownloadResult, io.ReadCloser, error) {
	if opts.Name == "" {
		return nil, nil, fmt.Errorf("download: %w", ErrEmptyPath)
	}
	if !potatosync.IsValidName(opts.Name) {
		return nil, nil, fmt.Errorf("download %q: %w", opts.Name, ErrInvalidName)
	}

	req, err := c.newRequest(ctx, http.MethodGet, filePath(opts.Name), http.NoBody)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Del("Accept")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("do request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		return nil, nil, parseServerError(resp.StatusCode, body)
	}

	result := &DownloadResult{Name: opts.Name}

	if isURLResponse(resp) {
		resp, err = c.followDownload(ctx, resp)
		if err != nil {
			return nil, nil, fmt.Errorf("download %s: %w", opts.Name, err)
		}
		result.Presigned = true
	}

	result.ContentType = resp.Header.Get("Content-Type")
	result.Size = resp.ContentLength

	// If stdout requested, return the body for the caller to handle
	if opts.LocalPath == "-" {
		result.LocalPath = "-"
		return result, resp.Body, nil
	}

	localPath := opts.LocalPath
	if localPath == "" {
		localPath = opts.Name
	}
	result.LocalPath = localPath

	written, err := writeLocal(localPath, resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return nil, nil, err
	}

	result.Size = written
	return result, nil, nil
}

// isURLResponse reports whether a download response carries a presigned
// URL instead of file content. Streamed files are always sent as
// attachments.
func isURLResponse(resp *http.Response) bool {
	if resp.Header.Get("Content-Disposition") != "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	return err == nil && mediaType == "application/json"
}

// followDownload reads the URL from resp and fetches it. The bearer token
// is not sent to the object store.
func (c *Client) followDownload(ctx context.Context, resp *http.Response) (*http.Response, error) {
	var out serverURL
	err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&out)
	_ = resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if out.URL == "" {
		return nil, errors.New("server returned an empty download url")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, out.URL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	next, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	if next.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(next.Body)
		_ = next.Body.Close()
		return nil, parseServerError(next.StatusCode, body)
	}
	return next, nil
}

func writeLocal(localPath string, r io.Reader) (int64, error) {
	// Create parent directories if needed
	dir := filepath.Dir(localPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return 0, fmt.Errorf("create directory: %w", err)
		}
	}

	file, err := os.Create(localPath) //#nosec G304 -- localPath is user-provided input
	if err != nil {
		return 0, fmt.Errorf("create file: %w", err)
	}

	written, err := io.Copy(file, r)
	if err != nil {
		_ = file.Close()
		return 0, fmt.Errorf("write file: %w", err)
	}

	if err := file.Close(); err != nil {
		return 0, fmt.Errorf("close file: %w", err)
	}
	return written, nil
}

// Delete deletes one or more files from the server.
// Continues on error, collecting results for all names.
func (c *Client) Delete(ctx context.Context, opts DeleteOptions) ([]DeleteResult, error) {
	if len(opts.Names) == 0 {
		return nil, ErrNoNames
	}

	results := make([]DeleteResult, 0, len(opts.Names))

	for _, name := range opts.Names {
		// Check context cancellation
		if err := ctx.Err(); err != nil {
			return results, err
		}

		results = append(results, c.deleteSingle(ctx, name))
	}

	return results, nil
}

// deleteSingle deletes a single file from the server.
func (c *Client) deleteSingle(ctx context.Context, name string) DeleteResult {
	if !potatosync.IsValidName(name) {
		return DeleteResult{Name: name, Err: ErrInvalidName}
	}

	req, err := c.newRequest(ctx, http.MethodDelete, filePath(name), http.NoBody)
	if err != nil {
		return DeleteResult{Name: name, Err: err}
	}

	if err := c.doJSON(req, nil); err != nil {
		return DeleteResult{Name: name, Err: err}
	}
	return DeleteResult{Name: name, Deleted: true}
}

// DeleteAll deletes every file of the caller.
func (c *Client) DeleteAll(ctx context.Context) error {
	req, err := c.newRequest(ctx, http.MethodDelete, "/files", http.NoBody)
	if err != nil {
		return err
	}
	return c.doJSON(req, nil)
}

// HasDeleteErrors returns true if any delete operation failed.
func HasDeleteErrors(results []DeleteResult) bool {
	for _, r := range results {
		if r.Err != nil {
			return true
		}
	}
	return false
}

// List lists the caller's files.
func (c *Client) List(ctx context.Context) (*ListResult, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/files", http.NoBody)
	if err != nil {
		return nil, err
	}

	var result ListResult
	if err := c.doJSON(req, &result); err != nil {
		return nil, err
	}
	if result.Items == nil {
		result.Items = []ObjectInfo{}
	}
	return &result, nil
}

// TotalSize calculates the total size of all items in bytes.
func (r *ListResult) TotalSize() int64 {
	var total int64
	for _, item := range r.Items {
		total += item.Size
	}
	return total
}

// detectContentType returns MIME type based on file extension.
func detectContentType(path string) string {
	ext := filepath.Ext(path)
	if ext == "" {
		return "application/octet-stream"
	}

	mimeType := mime.TypeByExtension(ext)
	if mimeType == "" {
		return "application/octet-stream"
	}

	return mimeType
}

// parseServerError extracts the error code and message from a server
// response. Bodies that are not JSON (object store errors) are kept raw.
func parseServerError(statusCode int, body []byte) error {
	apiErr := &APIError{
		StatusCode: statusCode,
		Body:       string(body),
	}

	var se serverError
	if json.Unmarshal(body, &se) == nil {
		apiErr.Code = se.Error
		apiErr.Message = se.Message
	}
	return apiErr
}

// APIError represents an error response from the server.
type APIError struct {
	StatusCode int
	// Code and Message are set when the body is a server JSON error.
	Code    string
	Message string
	Body    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return "server error: " + strconv.Itoa(e.StatusCode) + " " + e.Code + " - " + e.Message
	}
	return "server error: " + strconv.Itoa(e.StatusCode) + " - " + e.Body
}

// Is reports whether target matches this error.
// It matches if target is an *APIError with the same StatusCode and, when
// target has a Code, the same Code.
func (e *APIError) Is(target error) bool {
	var t *APIError
	ok := errors.As(target, &t)
	if !ok {
		return false
	}
	if t.StatusCode != e.StatusCode {
		return false
	}
	return t.Code == "" || t.Code == e.Code
}

// IsNotFound returns true if the error is a 404.
func (e *APIError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// Sentinel errors for common API error conditions.
// Use errors.Is() to check for these conditions.
var (
	// ErrNotFound is returned when the requested file does not exist (404).
	ErrNotFound = &APIError{StatusCode: http.StatusNotFound}

	// ErrUnauthorized is returned when the token is missing, malformed,
	// expired or otherwise rejected (401).
	ErrUnauthorized = &APIError{StatusCode: http.StatusUnauthorized}

	// ErrLimitExceeded is returned when the caller already holds as many
	// files as the server allows.
	ErrLimitExceeded = &APIError{StatusCode: http.StatusBadRequest, Code: "ExceededLimit"}

	// ErrUnavailable is returned when the server cannot reach its identity
	// provider (503).
	ErrUnavailable = &APIError{StatusCode: http.StatusServiceUnavailable}
)
