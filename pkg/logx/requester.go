package logx

import (
	"bytes"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-pkgz/requester/middleware"
	"github.com/samber/lo"
	"golang.org/x/exp/slog"
)

// RoundTripperOpts contains options for client logger.
type RoundTripperOpts struct {
	Level         slog.Level
	SecretHeaders []string
	// TrimBodyAt limits the logged part of request and response bodies.
	// Default is 1024 bytes.
	TrimBodyAt int64
}

// LoggingRoundTripper logs every client request along with its response.
func LoggingRoundTripper(lg *slog.Logger, opts RoundTripperOpts) middleware.RoundTripperHandler {
	if opts.TrimBodyAt <= 0 {
		opts.TrimBodyAt = 1024
	}

	return func(next http.RoundTripper) http.RoundTripper {
		return middleware.RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			ctx := req.Context()
			if !lg.Handler().Enabled(ctx, opts.Level) {
				return next.RoundTrip(req)
			}

			sent := requestEntry{
				Method:  req.Method,
				URL:     req.URL.String(),
				Headers: maskHeaders(req.Header, opts.SecretHeaders),
			}
			req.Body, sent.Body = copyAndTrim(req.Body, opts.TrimBodyAt)

			lg.LogAttrs(ctx, opts.Level, "request sent", slog.Any("request", sent))

			start := time.Now()
			resp, err := next.RoundTrip(req)
			elapsed := time.Since(start)

			if err != nil {
				lg.LogAttrs(ctx, opts.Level, "request failed",
					slog.String("url", sent.URL),
					slog.Duration("elapsed", elapsed),
					slog.Any("err", err),
				)
				return resp, err
			}

			received := responseEntry{
				StatusCode: resp.StatusCode,
				Headers:    maskHeaders(resp.Header, opts.SecretHeaders),
			}
			resp.Body, received.Body = copyAndTrim(resp.Body, opts.TrimBodyAt)

			lg.LogAttrs(ctx, opts.Level, "response received",
				slog.String("url", sent.URL),
				slog.Any("response", received),
				slog.Duration("elapsed", elapsed),
			)

			return resp, nil
		})
	}
}

type requestEntry struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    string
}

type responseEntry struct {
	StatusCode int
	Headers    map[string]string
	Body       string
}

func maskHeaders(h http.Header, secret []string) map[string]string {
	res := make(map[string]string, len(h))
	for k, vals := range h {
		if lo.Contains(secret, k) {
			res[k] = "***"
			continue
		}
		res[k] = strings.Join(vals, ",")
	}
	return res
}

// copyAndTrim reads up to limit bytes of r for logging and returns
// a reader that still yields the whole body.
func copyAndTrim(r io.ReadCloser, limit int64) (rd io.ReadCloser, result string) {
	if r == nil || r == http.NoBody {
		return r, ""
	}

	buf := &bytes.Buffer{}
	read, err := io.CopyN(buf, r, limit)
	result = strings.NewReplacer("\n", "", "\t", "").Replace(buf.String())

	if err != nil {
		// body is shorter than limit and fully read
		return io.NopCloser(bytes.NewReader(buf.Bytes())), result
	}

	if read == limit {
		result += "..."
	}

	return &closer{rd: io.MultiReader(buf, r), closeFn: r.Close}, result
}

type closer struct {
	rd      io.Reader
	closeFn func() error
}

func (c *closer) Read(p []byte) (n int, err error) { return c.rd.Read(p) }
func (c *closer) Close() error                     { return c.closeFn() }
