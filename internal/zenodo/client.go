package zenodo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"zenodep/internal/config"
	zerrors "zenodep/internal/errors"
	"zenodep/internal/logging"
)

// Client talks to one Zenodo environment with one access token. All calls
// are sequential and blocking; transient failures are retried according to
// the injected retry policy.
type Client struct {
	baseURL string
	token   string
	httpc   *http.Client
	retry   zerrors.RetryConfig
	logger  logging.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(httpc *http.Client) Option {
	return func(c *Client) { c.httpc = httpc }
}

// WithRetryConfig replaces the retry policy.
func WithRetryConfig(retry zerrors.RetryConfig) Option {
	return func(c *Client) { c.retry = retry }
}

// WithLogger replaces the component logger.
func WithLogger(logger logging.Logger) Option {
	return func(c *Client) { c.logger = logging.OrNop(logger) }
}

// WithBaseURL overrides the environment base URL, mainly for tests.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(baseURL, "/") }
}

// New creates a client for env authenticated with token.
func New(env config.Environment, token string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(token) == "" {
		return nil, fmt.Errorf("%w for %s (%s)", ErrMissingCredentials, env, env.TokenKey())
	}
	c := &Client{
		baseURL: env.BaseURL(),
		token:   token,
		httpc:   &http.Client{Timeout: 5 * time.Minute},
		retry:   zerrors.DefaultRetryConfig(),
		logger:  logging.NewComponentLogger("zenodo"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// apiRequest describes one call to the remote API. Body is a factory so a
// retried attempt re-reads the payload from the start.
type apiRequest struct {
	method      string
	url         string
	query       url.Values
	body        func() (io.ReadCloser, error)
	contentType string
	// want is the sole success status code; any other 2xx is a protocol
	// error, anything else a StatusError.
	want int
}

func (c *Client) do(ctx context.Context, req apiRequest, out any) error {
	_, err := zerrors.RetryWithResultAndLog(ctx, c.retry, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, c.doOnce(ctx, req, out)
	}, c.logger)
	return err
}

func (c *Client) doOnce(ctx context.Context, req apiRequest, out any) error {
	query := url.Values{}
	for key, values := range req.query {
		query[key] = values
	}
	query.Set("access_token", c.token)

	var body io.ReadCloser
	if req.body != nil {
		var err error
		if body, err = req.body(); err != nil {
			// Factory errors keep their own classification: a network
			// failure or 5xx while fetching a source URL is transient and
			// retried, a vanished local file is not.
			return fmt.Errorf("preparing request body: %w", err)
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, req.url+"?"+query.Encode(), body)
	if err != nil {
		if body != nil {
			_ = body.Close()
		}
		return zerrors.NewPermanentError(err, fmt.Sprintf("building request: %v", err))
	}
	if req.contentType != "" {
		httpReq.Header.Set("Content-Type", req.contentType)
	}

	c.logger.Debug("%s %s (token %s)", req.method, req.url, config.RedactToken(c.token))

	resp, err := c.httpc.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.method, req.url, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s %s: reading response: %w", req.method, req.url, err)
	}
	c.logger.Debug("%s %s -> %d (%d bytes)", req.method, req.url, resp.StatusCode, len(respBody))

	if resp.StatusCode != req.want {
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return zerrors.NewPermanentError(
				fmt.Errorf("%s %s: status %d", req.method, req.url, resp.StatusCode),
				fmt.Sprintf("protocol error: %s %s returned %d, want %d", req.method, req.url, resp.StatusCode, req.want))
		}
		return zerrors.NewStatusError(resp.StatusCode, resp.Status, strings.TrimSpace(string(respBody)))
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return zerrors.NewPermanentError(err, fmt.Sprintf("decoding response from %s: %v", req.url, err))
		}
	}
	return nil
}

func jsonBody(v any) func() (io.ReadCloser, error) {
	data, err := json.Marshal(v)
	return func() (io.ReadCloser, error) {
		if err != nil {
			return nil, err
		}
		return io.NopCloser(bytes.NewReader(data)), nil
	}
}

// CreateDeposition creates a new empty draft deposition. The remote API
// defines 201 as the sole success code for creation.
func (c *Client) CreateDeposition(ctx context.Context) (*Deposition, error) {
	c.logger.Info("Creating new deposition")
	var dep Deposition
	err := c.do(ctx, apiRequest{
		method:      http.MethodPost,
		url:         c.baseURL + "/deposit/depositions",
		body:        jsonBody(struct{}{}),
		contentType: "application/json",
		want:        http.StatusCreated,
	}, &dep)
	if err != nil {
		return nil, fmt.Errorf("create deposition: %w", err)
	}
	return &dep, nil
}

// GetDeposition retrieves a deposition by id.
func (c *Client) GetDeposition(ctx context.Context, id int) (*Deposition, error) {
	var dep Deposition
	err := c.do(ctx, apiRequest{
		method: http.MethodGet,
		url:    fmt.Sprintf("%s/deposit/depositions/%d", c.baseURL, id),
		want:   http.StatusOK,
	}, &dep)
	if err != nil {
		return nil, fmt.Errorf("get deposition %d: %w", id, err)
	}
	return &dep, nil
}

// DeleteDeposition deletes a draft deposition. Published depositions cannot
// be deleted.
func (c *Client) DeleteDeposition(ctx context.Context, id int) error {
	err := c.do(ctx, apiRequest{
		method: http.MethodDelete,
		url:    fmt.Sprintf("%s/deposit/depositions/%d", c.baseURL, id),
		want:   http.StatusNoContent,
	}, nil)
	if err != nil {
		return fmt.Errorf("delete deposition %d: %w", id, err)
	}
	return nil
}

// ReplaceMetadata overwrites the deposition's metadata with m, verbatim.
func (c *Client) ReplaceMetadata(ctx context.Context, id int, m Metadata) (*Deposition, error) {
	c.logger.Info("Updating metadata for deposition %d", id)
	var dep Deposition
	err := c.do(ctx, apiRequest{
		method:      http.MethodPut,
		url:         fmt.Sprintf("%s/deposit/depositions/%d", c.baseURL, id),
		body:        jsonBody(map[string]Metadata{"metadata": m}),
		contentType: "application/json",
		want:        http.StatusOK,
	}, &dep)
	if err != nil {
		return nil, fmt.Errorf("update metadata on deposition %d: %w", id, err)
	}
	return &dep, nil
}

// MergeMetadata fetches the deposition's current metadata, merges m into it
// (see Merge), and writes the result back.
func (c *Client) MergeMetadata(ctx context.Context, id int, m Metadata) (*Deposition, error) {
	c.logger.Info("Adding metadata to deposition %d", id)
	existing, err := c.GetDeposition(ctx, id)
	if err != nil {
		return nil, err
	}
	return c.ReplaceMetadata(ctx, id, Merge(existing.Metadata, m))
}

// Publish transitions a draft deposition to published. The transition is
// irreversible.
func (c *Client) Publish(ctx context.Context, id int) (*Deposition, error) {
	c.logger.Info("Publishing deposition %d", id)
	var dep Deposition
	err := c.do(ctx, apiRequest{
		method: http.MethodPost,
		url:    fmt.Sprintf("%s/deposit/depositions/%d/actions/publish", c.baseURL, id),
		want:   http.StatusAccepted,
	}, &dep)
	if err != nil {
		return nil, fmt.Errorf("publish deposition %d: %w", id, err)
	}
	return &dep, nil
}

// NewVersion creates a new draft version of a published deposition. The new
// draft's id is carried in the response's latest_draft link.
func (c *Client) NewVersion(ctx context.Context, id int) (*Deposition, int, error) {
	c.logger.Info("Creating new version of deposition %d", id)
	var dep Deposition
	err := c.do(ctx, apiRequest{
		method: http.MethodPost,
		url:    fmt.Sprintf("%s/deposit/depositions/%d/actions/newversion", c.baseURL, id),
		want:   http.StatusCreated,
	}, &dep)
	if err != nil {
		return nil, 0, fmt.Errorf("new version of deposition %d: %w", id, err)
	}
	draftID, err := latestDraftID(dep.Links)
	if err != nil {
		return nil, 0, fmt.Errorf("new version of deposition %d: %w", id, err)
	}
	c.logger.Info("New version draft created with id %d", draftID)
	return &dep, draftID, nil
}

func latestDraftID(links Links) (int, error) {
	if links.LatestDraft == "" {
		return 0, fmt.Errorf("response carries no latest_draft link")
	}
	parts := strings.Split(strings.TrimRight(links.LatestDraft, "/"), "/")
	id, err := strconv.Atoi(parts[len(parts)-1])
	if err != nil {
		return 0, fmt.Errorf("malformed latest_draft link %q", links.LatestDraft)
	}
	return id, nil
}

// PutFile streams bytes to {bucket}/{filename}, overwriting any existing
// object of the same name. The open factory is called once per attempt so
// retried uploads restart from the beginning of the source.
func (c *Client) PutFile(ctx context.Context, bucketURL, filename string, open func() (io.ReadCloser, error)) (*FileReceipt, error) {
	var receipt FileReceipt
	err := c.do(ctx, apiRequest{
		method: http.MethodPut,
		url:    strings.TrimRight(bucketURL, "/") + "/" + url.PathEscape(filename),
		body:   open,
		want:   http.StatusOK,
	}, &receipt)
	if err != nil {
		return nil, fmt.Errorf("upload %s: %w", filename, err)
	}
	return &receipt, nil
}

// SearchOptions narrows a record search.
type SearchOptions struct {
	Size   int
	Page   int
	Status string // draft, published, or all
	Sort   string // bestmatch, mostrecent, -bestmatch, -mostrecent
}

var (
	searchStatuses = []string{"draft", "published", "all"}
	searchSorts    = []string{"bestmatch", "mostrecent", "-bestmatch", "-mostrecent"}
)

// Search queries published records. The raw response document is returned
// so callers can print it as-is.
func (c *Client) Search(ctx context.Context, query string, opts SearchOptions) (json.RawMessage, error) {
	params := url.Values{}
	params.Set("q", query)
	if opts.Size > 0 {
		params.Set("size", strconv.Itoa(opts.Size))
	}
	if opts.Page > 0 {
		params.Set("page", strconv.Itoa(opts.Page))
	}
	if opts.Status != "" {
		if !contains(searchStatuses, opts.Status) {
			return nil, fmt.Errorf("invalid status value %q, must be one of: %s", opts.Status, strings.Join(searchStatuses, ", "))
		}
		// "all" means no status filter on the wire.
		if opts.Status != "all" {
			params.Set("status", opts.Status)
		}
	}
	if opts.Sort != "" {
		if !contains(searchSorts, opts.Sort) {
			return nil, fmt.Errorf("invalid sort value %q, must be one of: %s", opts.Sort, strings.Join(searchSorts, ", "))
		}
		params.Set("sort", opts.Sort)
	}

	var results json.RawMessage
	err := c.do(ctx, apiRequest{
		method: http.MethodGet,
		url:    c.baseURL + "/records",
		query:  params,
		want:   http.StatusOK,
	}, &results)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	return results, nil
}

func contains(values []string, v string) bool {
	for _, known := range values {
		if known == v {
			return true
		}
	}
	return false
}
