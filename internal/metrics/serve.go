package metrics

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/klauspost/compress/gzip"
	"github.com/smazurov/metricsd/internal/logging"
	"golang.org/x/net/http/httpguts"
)

// Defaults for NewServe.
const (
	DefaultPath        = "/metrics"
	DefaultContentType = "text/plain"
	DefaultGzipLevel   = gzip.BestSpeed
)

// Serve answers scrapes for a single path with the rendered FmtMetrics.
// It holds no per-request state and is safe for concurrent use.
type Serve struct {
	metrics     FmtMetrics
	path        string
	contentType string
	gzipLevel   int
	logger      *slog.Logger
	gzipPool    sync.Pool
}

// Option configures a Serve.
type Option func(*Serve)

// WithPath sets the only path that is answered. Default is /metrics.
func WithPath(path string) Option {
	return func(s *Serve) {
		s.path = path
	}
}

// WithContentType overrides the Content-Type of successful responses.
func WithContentType(contentType string) Option {
	return func(s *Serve) {
		s.contentType = contentType
	}
}

// WithGzipLevel sets the compression level. Default is gzip.BestSpeed since
// scrapes arrive on a fixed interval and latency matters more than size.
func WithGzipLevel(level int) Option {
	return func(s *Serve) {
		s.gzipLevel = level
	}
}

// WithLogger sets the logger used for failed scrapes.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Serve) {
		s.logger = logger
	}
}

// NewServe creates a handler serving m.
func NewServe(m FmtMetrics, opts ...Option) *Serve {
	s := &Serve{
		metrics:     m,
		path:        DefaultPath,
		contentType: DefaultContentType,
		gzipLevel:   DefaultGzipLevel,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logging.GetLogger("metrics")
	}
	return s
}

// Path returns the path this handler answers.
func (s *Serve) Path() string {
	return s.path
}

// ServeHTTP implements http.Handler. Every request gets a well-formed
// response: 404 off-path, 200 with the snapshot, or an empty 500 when
// rendering fails.
func (s *Serve) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.respond(r).write(w)
}

func (s *Serve) respond(r *http.Request) *response {
	// Compared as sent: "/%6Detrics" is not "/metrics".
	if r.URL.EscapedPath() != s.path {
		return emptyResponse(http.StatusNotFound)
	}

	var (
		rsp *response
		err error
	)
	if IsGzip(r) {
		s.logger.Debug("gzipping metrics")
		rsp, err = s.gzipResponse()
	} else {
		rsp, err = s.plainResponse()
	}
	if err != nil {
		s.logger.Error("Failed to serve metrics", "error", err)
		return emptyResponse(http.StatusInternalServerError)
	}
	return rsp
}

func (s *Serve) plainResponse() (*response, error) {
	var buf bytes.Buffer
	if err := s.metrics.FmtMetrics(&buf); err != nil {
		return nil, writeError(err)
	}
	return newResponse(buf.Bytes(), header{"Content-Type", s.contentType})
}

func (s *Serve) gzipResponse() (*response, error) {
	var buf bytes.Buffer
	zw, err := s.gzipWriter(&buf)
	if err != nil {
		return nil, writeError(err)
	}
	defer s.gzipPool.Put(zw)

	if err := s.metrics.FmtMetrics(zw); err != nil {
		return nil, writeError(err)
	}
	if err := zw.Close(); err != nil {
		return nil, writeError(err)
	}
	return newResponse(buf.Bytes(),
		header{"Content-Encoding", "gzip"},
		header{"Content-Type", s.contentType},
	)
}

func (s *Serve) gzipWriter(buf *bytes.Buffer) (*gzip.Writer, error) {
	if zw, ok := s.gzipPool.Get().(*gzip.Writer); ok {
		zw.Reset(buf)
		return zw, nil
	}
	return gzip.NewWriterLevel(buf, s.gzipLevel)
}

// IsGzip reports whether any Accept-Encoding value mentions gzip. Values that
// are not valid UTF-8 never match. Quality values are not interpreted, so
// "gzip;q=0" still matches.
func IsGzip(r *http.Request) bool {
	for _, value := range r.Header.Values("Accept-Encoding") {
		if utf8.ValidString(value) && strings.Contains(value, "gzip") {
			return true
		}
	}
	return false
}

type header struct {
	name, value string
}

// response is fully built before anything reaches the ResponseWriter, so a
// failure at any step can still turn into a clean 500.
type response struct {
	status int
	header http.Header
	body   []byte
}

// emptyResponse builds a body-less response. It cannot fail.
func emptyResponse(status int) *response {
	return &response{status: status, header: http.Header{}}
}

func newResponse(body []byte, headers ...header) (*response, error) {
	rsp := emptyResponse(http.StatusOK)
	for _, h := range headers {
		if !httpguts.ValidHeaderFieldName(h.name) || !httpguts.ValidHeaderFieldValue(h.value) {
			return nil, buildError(fmt.Errorf("invalid header %s: %q", h.name, h.value))
		}
		rsp.header.Add(h.name, h.value)
	}
	rsp.header.Set("Content-Length", strconv.Itoa(len(body)))
	rsp.body = body
	return rsp, nil
}

func (rsp *response) write(w http.ResponseWriter) {
	dst := w.Header()
	for name, values := range rsp.header {
		dst[name] = values
	}
	w.WriteHeader(rsp.status)
	if len(rsp.body) > 0 {
		// The client may already be gone; there is nobody left to tell.
		_, _ = w.Write(rsp.body)
	}
}
