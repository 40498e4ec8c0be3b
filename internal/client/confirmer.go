// Package client submits evidence files to a remote submit-evidence endpoint.
package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"evidence-registry/internal/evidence"
)

// SubmitPath is the upload route the registry server exposes.
const SubmitPath = "/api/submit-evidence"

// SubmitResponse is the JSON body of a successful submission.
type SubmitResponse struct {
	TxHash      string `json:"txHash,omitempty"`
	IpfsCid     string `json:"ipfsCid,omitempty"`
	Hash        string `json:"hash,omitempty"`
	BlockNumber uint64 `json:"blockNumber,omitempty"`
}

// Confirmer posts each file as the multipart field "file". When retries are
// enabled, transport errors are retried with exponential backoff; parse
// errors never are.
type Confirmer struct {
	url        string
	httpClient *http.Client
	maxRetries uint64
	backoff    time.Duration
	logger     *zap.Logger
}

type Option func(*Confirmer)

func WithHTTPClient(c *http.Client) Option {
	return func(cf *Confirmer) { cf.httpClient = c }
}

func WithMaxRetries(n int) Option {
	return func(cf *Confirmer) {
		if n < 0 {
			n = 0
		}
		cf.maxRetries = uint64(n)
	}
}

// WithInitialBackoff sets the first retry interval.
func WithInitialBackoff(d time.Duration) Option {
	return func(cf *Confirmer) { cf.backoff = d }
}

func WithLogger(l *zap.Logger) Option {
	return func(cf *Confirmer) { cf.logger = l }
}

// New returns a confirmer posting to rawURL. A URL without a path is taken as
// the registry's base URL and SubmitPath is appended. Retries are off unless
// WithMaxRetries is given.
func New(rawURL string, opts ...Option) *Confirmer {
	c := &Confirmer{
		url:        submitURL(rawURL),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		maxRetries: 0,
		backoff:    500 * time.Millisecond,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func submitURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" || strings.Trim(u.Path, "/") != "" {
		return rawURL
	}
	u.Path = SubmitPath
	return u.String()
}

func (c *Confirmer) Confirm(ctx context.Context, file evidence.SourceFile) (evidence.Proof, error) {
	resp, err := c.Submit(ctx, file)
	if err != nil {
		return evidence.Proof{}, err
	}
	return evidence.Proof{LedgerRef: resp.TxHash, StorageRef: resp.IpfsCid}, nil
}

// Submit uploads file and decodes the response.
func (c *Confirmer) Submit(ctx context.Context, file evidence.SourceFile) (*SubmitResponse, error) {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = c.backoff
	policy := backoff.WithContext(backoff.WithMaxRetries(eb, c.maxRetries), ctx)

	var out *SubmitResponse
	attempt := 0
	op := func() error {
		attempt++
		resp, err := c.submitOnce(ctx, file)
		if err == nil {
			out = resp
			return nil
		}
		var te *evidence.TransportError
		if !errors.As(err, &te) || ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		c.logger.Debug("submit attempt failed",
			zap.String("file", file.Name),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		return err
	}
	if err := backoff.Retry(op, policy); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}
	return out, nil
}

func (c *Confirmer) submitOnce(ctx context.Context, file evidence.SourceFile) (*SubmitResponse, error) {
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	part, err := mw.CreateFormFile("file", file.Name)
	if err != nil {
		return nil, fmt.Errorf("build form: %w", err)
	}
	if _, err := part.Write(file.Content); err != nil {
		return nil, fmt.Errorf("build form: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("build form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	res, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &evidence.TransportError{Err: err}
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, &evidence.TransportError{StatusCode: res.StatusCode, Err: err}
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, &evidence.TransportError{StatusCode: res.StatusCode, Err: errors.New("upload failed")}
	}

	var out SubmitResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, &evidence.ParseError{Err: err}
	}
	return &out, nil
}
