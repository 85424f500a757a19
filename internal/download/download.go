package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/schollz/progressbar/v3"

	"canvas-mirror/internal/domain"
	"canvas-mirror/internal/httpx"
)

// Fetcher streams course files to disk. Each download goes through a .part
// temp file and a rename, so an interrupted run never leaves a truncated
// artifact under the final name.
type Fetcher struct {
	Token        string
	HTTP         *http.Client
	MaxAttempts  int
	BaseDelay    time.Duration
	MaxDelay     time.Duration
	ShowProgress bool
	Log          zerolog.Logger
}

func New(token string) *Fetcher {
	tr := &http.Transport{
		MaxIdleConns:          200,
		MaxIdleConnsPerHost:   200,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
	}
	return &Fetcher{
		Token: token,
		// no overall client timeout, large files stream longer than any
		// fixed cap; cancellation comes from ctx
		HTTP:        &http.Client{Transport: tr},
		MaxAttempts: 8,
		BaseDelay:   700 * time.Millisecond,
		MaxDelay:    30 * time.Second,
		Log:         zerolog.Nop(),
	}
}

// Fetch downloads rawURL into dest, creating parent directories as needed
// and overwriting an existing file. sizeHint feeds the progress bar when the
// response carries no Content-Length; pass 0 when unknown.
// The returned kind classifies err and is meaningless when err is nil.
func (f *Fetcher) Fetch(ctx context.Context, rawURL, dest string, sizeHint int64) (int64, domain.ErrorKind, error) {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return 0, domain.KindIO, fmt.Errorf("download: mkdir for %s: %w", dest, err)
	}

	var (
		lastErr  error
		lastKind domain.ErrorKind
	)
	for attempt := 1; attempt <= f.maxAttempts(); attempt++ {
		written, kind, retryAfter, err := f.fetchOnce(ctx, rawURL, dest, sizeHint)
		if err == nil {
			return written, "", nil
		}

		lastErr, lastKind = err, kind
		if retryAfter < 0 || attempt == f.maxAttempts() {
			break
		}
		if serr := httpx.Backoff(ctx, attempt, f.baseDelay(), f.maxDelay(), retryAfter); serr != nil {
			return 0, domain.KindNetwork, serr
		}
	}
	return 0, lastKind, lastErr
}

// retryAfter follows the same convention as the page fetchers:
//   - <0 => no retry
//   - 0  => retry con backoff
//   - >0 => retry usando ese sleep (Retry-After)
func (f *Fetcher) fetchOnce(ctx context.Context, rawURL, dest string, sizeHint int64) (int64, domain.ErrorKind, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, domain.KindNetwork, -1, fmt.Errorf("download: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+f.Token)

	resp, err := f.HTTP.Do(req)
	if err != nil {
		if isNetRetryable(err) {
			return 0, domain.KindNetwork, 0, fmt.Errorf("download: request failed (retryable): %w", err)
		}
		return 0, domain.KindNetwork, -1, fmt.Errorf("download: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		err := fmt.Errorf("download failed: status=%d url=%s body=%s", resp.StatusCode, rawURL, strings.TrimSpace(string(body)))
		switch {
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			return 0, domain.KindAuth, -1, err
		case resp.StatusCode == http.StatusTooManyRequests:
			return 0, domain.KindRateLimit, httpx.ParseRetryAfter(resp), err
		case resp.StatusCode >= 500:
			return 0, domain.KindNetwork, 0, err
		default:
			return 0, domain.KindNetwork, -1, err
		}
	}

	part := dest + ".part"
	out, err := os.Create(part)
	if err != nil {
		return 0, domain.KindIO, -1, fmt.Errorf("download: create %s: %w", part, err)
	}

	var bar *progressbar.ProgressBar
	if f.ShowProgress {
		bar = progressbar.NewOptions64(
			totalSize(resp, sizeHint),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetDescription(filepath.Base(dest)),
			progressbar.OptionShowBytes(true),
			progressbar.OptionSetWidth(30),
			progressbar.OptionThrottle(100*time.Millisecond),
			progressbar.OptionClearOnFinish(),
		)
	}

	// read errors are transient network trouble, write errors are local
	buf := make([]byte, 32*1024)
	var written int64
	for {
		n, rerr := resp.Body.Read(buf)
		if n > 0 {
			if _, werr := out.Write(buf[:n]); werr != nil {
				out.Close()
				os.Remove(part)
				return written, domain.KindIO, -1, fmt.Errorf("download: write %s: %w", part, werr)
			}
			written += int64(n)
			if bar != nil {
				bar.Add(n)
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			out.Close()
			os.Remove(part)
			if isNetRetryable(rerr) {
				return written, domain.KindNetwork, 0, fmt.Errorf("download: read body: %w", rerr)
			}
			return written, domain.KindNetwork, -1, fmt.Errorf("download: read body: %w", rerr)
		}
	}

	if bar != nil {
		bar.Finish()
	}

	if err := out.Close(); err != nil {
		os.Remove(part)
		return written, domain.KindIO, -1, fmt.Errorf("download: close %s: %w", part, err)
	}
	if err := os.Rename(part, dest); err != nil {
		os.Remove(part)
		return written, domain.KindIO, -1, fmt.Errorf("download: rename to %s: %w", dest, err)
	}
	return written, "", 0, nil
}

func totalSize(resp *http.Response, hint int64) int64 {
	if resp.ContentLength > 0 {
		return resp.ContentLength
	}
	if hint > 0 {
		return hint
	}
	return -1 // spinner
}

func (f *Fetcher) maxAttempts() int {
	if f.MaxAttempts > 0 {
		return f.MaxAttempts
	}
	return 8
}

func (f *Fetcher) baseDelay() time.Duration {
	if f.BaseDelay > 0 {
		return f.BaseDelay
	}
	return 700 * time.Millisecond
}

func (f *Fetcher) maxDelay() time.Duration {
	if f.MaxDelay > 0 {
		return f.MaxDelay
	}
	return 30 * time.Second
}

func isNetRetryable(err error) bool {
	var nerr net.Error
	if errors.As(err, &nerr) {
		return nerr.Timeout() || nerr.Temporary()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	// algunos errores transitorios vienen solo como texto
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "connection reset") || strings.Contains(msg, "broken pipe") || strings.Contains(msg, "unexpected eof")
}
