package fetch

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/bytedance/sonic"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/pkg/errors"
	"github.com/vscoffline/mirror-backend/internal/pkg/bufpool"
	"github.com/vscoffline/mirror-backend/internal/pkg/errs"
	"go.uber.org/zap"
)

const (
	// Ten attempts total per unit of work, matching the upstream client.
	maxRetries     = 9
	defaultTimeout = 12 * time.Second
)

type Client struct {
	rc     *retryablehttp.Client
	logger *zap.Logger
}

func NewClient(timeout time.Duration, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = maxRetries
	rc.HTTPClient.Timeout = timeout
	rc.Logger = leveledLogger{logger.Sugar()}
	// Transient transport failures (timeouts, proxy and connection
	// errors) are retried; HTTP error statuses are returned as-is.
	rc.CheckRetry = func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		return err != nil, nil
	}

	return &Client{rc: rc, logger: logger}
}

// Get performs a GET with bounded retries. The caller owns the response
// body. Exhausted retries surface as errs.ErrRetriesExhausted.
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	resp, err := c.rc.Do(req)
	if err != nil {
		return nil, errs.ErrRetriesExhausted.Wrap(err)
	}
	return resp, nil
}

// GetBytes drains a GET response and returns body plus status code.
func (c *Client) GetBytes(ctx context.Context, url string) ([]byte, int, error) {
	resp, err := c.Get(ctx, url)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, errors.Wrap(err, "read response body")
	}
	return body, resp.StatusCode, nil
}

// PostJSON sends a JSON payload and returns the response body and status.
func (c *Client) PostJSON(ctx context.Context, url string, headers map[string]string, payload any) ([]byte, int, error) {
	raw, err := sonic.Marshal(payload)
	if err != nil {
		return nil, 0, errors.Wrap(err, "marshal payload")
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return nil, 0, errors.Wrap(err, "build request")
	}
	req.Header.Set("content-type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.rc.Do(req)
	if err != nil {
		return nil, 0, errs.ErrRetriesExhausted.Wrap(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, errors.Wrap(err, "read response body")
	}
	return body, resp.StatusCode, nil
}

// DownloadFile streams a GET response straight to dest so large
// installer payloads never sit in memory. Non-2xx responses write
// nothing.
func (c *Client) DownloadFile(ctx context.Context, url, dest string) (int, error) {
	resp, err := c.Get(ctx, url)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return resp.StatusCode, nil
	}

	out, err := os.OpenFile(dest, os.O_RDWR|os.O_CREATE|os.O_TRUNC, os.ModePerm)
	if err != nil {
		return resp.StatusCode, errors.Wrap(err, "create download file")
	}

	buf := bufpool.GetBuffer()
	_, err = io.CopyBuffer(out, resp.Body, *buf)
	bufpool.PutBuffer(buf)

	if cerr := out.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(dest)
		return resp.StatusCode, errors.Wrap(err, "write download file")
	}
	return resp.StatusCode, nil
}

// leveledLogger adapts zap to retryablehttp's logging interface.
type leveledLogger struct {
	lg *zap.SugaredLogger
}

func (l leveledLogger) Error(msg string, kv ...any) { l.lg.Errorw(msg, kv...) }
func (l leveledLogger) Info(msg string, kv ...any)  { l.lg.Infow(msg, kv...) }
func (l leveledLogger) Debug(msg string, kv ...any) { l.lg.Debugw(msg, kv...) }
func (l leveledLogger) Warn(msg string, kv ...any)  { l.lg.Warnw(msg, kv...) }
