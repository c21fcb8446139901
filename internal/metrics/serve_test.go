package metrics

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/klauspost/compress/gzip"
)

const sample = "foo_total 1\n"

func staticSource(text string) FmtMetrics {
	return FmtFunc(func(w io.Writer) error {
		_, err := io.WriteString(w, text)
		return err
	})
}

func quietLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func newTestServe(src FmtMetrics, opts ...Option) (*Serve, *bytes.Buffer) {
	var logs bytes.Buffer
	opts = append([]Option{WithLogger(quietLogger(&logs))}, opts...)
	return NewServe(src, opts...), &logs
}

func scrape(h http.Handler, method, target string, acceptEncoding ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for _, v := range acceptEncoding {
		req.Header.Add("Accept-Encoding", v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func gunzip(t *testing.T, body []byte) string {
	t.Helper()
	zr, err := gzip.NewReader(bytes.NewReader(body))
	if err != nil {
		t.Fatalf("gzip.NewReader: %v", err)
	}
	defer zr.Close()
	out, err := io.ReadAll(zr)
	if err != nil {
		t.Fatalf("read gzip body: %v", err)
	}
	return string(out)
}

func TestServeNotFound(t *testing.T) {
	s, _ := newTestServe(staticSource(sample))

	paths := []string{"/healthz", "/", "/metrics/", "/METRICS", "/metrics/extra", "/metric", "/%6Detrics", "/metrics%2F"}
	methods := []string{http.MethodGet, http.MethodPost, http.MethodHead}

	for _, path := range paths {
		for _, method := range methods {
			t.Run(method+" "+path, func(t *testing.T) {
				rec := scrape(s, method, path, "gzip")
				if rec.Code != http.StatusNotFound {
					t.Errorf("status = %d, want 404", rec.Code)
				}
				if rec.Body.Len() != 0 {
					t.Errorf("body = %q, want empty", rec.Body.String())
				}
				if ce := rec.Header().Get("Content-Encoding"); ce != "" {
					t.Errorf("Content-Encoding = %q on 404", ce)
				}
			})
		}
	}
}

func TestServePlain(t *testing.T) {
	tests := []struct {
		name           string
		acceptEncoding []string
	}{
		{"no header", nil},
		{"identity", []string{"identity"}},
		{"other encodings", []string{"deflate, br"}},
		{"empty value", []string{""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestServe(staticSource(sample))
			rec := scrape(s, http.MethodGet, "/metrics", tt.acceptEncoding...)

			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", rec.Code)
			}
			if ct := rec.Header().Get("Content-Type"); ct != "text/plain" {
				t.Errorf("Content-Type = %q, want text/plain", ct)
			}
			if _, ok := rec.Header()["Content-Encoding"]; ok {
				t.Errorf("unexpected Content-Encoding header: %v", rec.Header()["Content-Encoding"])
			}
			if got := rec.Body.String(); got != sample {
				t.Errorf("body = %q, want %q", got, sample)
			}
		})
	}
}

func TestServeGzip(t *testing.T) {
	tests := []struct {
		name           string
		acceptEncoding []string
	}{
		{"gzip only", []string{"gzip"}},
		{"gzip among others", []string{"gzip, deflate"}},
		{"second header", []string{"identity", "br, gzip"}},
		{"quality zero still matches", []string{"gzip;q=0"}},
		{"x-gzip", []string{"x-gzip"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestServe(staticSource(sample))
			rec := scrape(s, http.MethodGet, "/metrics", tt.acceptEncoding...)

			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", rec.Code)
			}
			if ce := rec.Header().Get("Content-Encoding"); ce != "gzip" {
				t.Errorf("Content-Encoding = %q, want gzip", ce)
			}
			if ct := rec.Header().Get("Content-Type"); ct != "text/plain" {
				t.Errorf("Content-Type = %q, want text/plain", ct)
			}
			if got := gunzip(t, rec.Body.Bytes()); got != sample {
				t.Errorf("decompressed body = %q, want %q", got, sample)
			}
		})
	}
}

func TestServeInvalidHeaderValueDoesNotMatch(t *testing.T) {
	s, _ := newTestServe(staticSource(sample))
	rec := scrape(s, http.MethodGet, "/metrics", "\xffgzip\xfe")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Header().Get("Content-Encoding") != "" {
		t.Error("invalid UTF-8 header value must not select gzip")
	}
	if got := rec.Body.String(); got != sample {
		t.Errorf("body = %q, want %q", got, sample)
	}

	// A valid occurrence elsewhere still wins.
	rec = scrape(s, http.MethodGet, "/metrics", "\xffgzip", "gzip")
	if rec.Header().Get("Content-Encoding") != "gzip" {
		t.Error("valid gzip occurrence in a later header should select gzip")
	}
}

func TestServeQueryStringMatchesPath(t *testing.T) {
	s, _ := newTestServe(staticSource(sample))
	rec := scrape(s, http.MethodGet, "/metrics?debug=1")
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestServeEncodedPathIsNotDecoded(t *testing.T) {
	s, _ := newTestServe(staticSource(sample))
	if rec := scrape(s, http.MethodGet, "/%6Detrics"); rec.Code != http.StatusNotFound {
		t.Errorf("/%%6Detrics status = %d, want 404", rec.Code)
	}

	// A configured path containing reserved characters matches its escaped form.
	s, _ = newTestServe(staticSource(sample), WithPath("/-/stats"))
	if rec := scrape(s, http.MethodGet, "/-/stats?fmt=text"); rec.Code != http.StatusOK {
		t.Errorf("/-/stats status = %d, want 200", rec.Code)
	}
}

func TestServeIdempotent(t *testing.T) {
	s, _ := newTestServe(staticSource("a 1\nb 2\nc{x=\"y\"} 3\n"))

	for _, enc := range []string{"", "gzip"} {
		first := scrape(s, http.MethodGet, "/metrics", enc)
		second := scrape(s, http.MethodGet, "/metrics", enc)

		if !bytes.Equal(first.Body.Bytes(), second.Body.Bytes()) {
			t.Errorf("encoding %q: bodies differ between identical scrapes", enc)
		}
		if first.Header().Get("Content-Encoding") != second.Header().Get("Content-Encoding") {
			t.Errorf("encoding %q: headers differ between identical scrapes", enc)
		}
	}
}

func TestServeRenderFailure(t *testing.T) {
	boom := errors.New("registry exploded")
	failing := FmtFunc(func(w io.Writer) error {
		_, _ = io.WriteString(w, "partial_metric 1\n")
		return boom
	})

	for _, enc := range []string{"", "gzip"} {
		t.Run("encoding="+enc, func(t *testing.T) {
			s, logs := newTestServe(failing)
			rec := scrape(s, http.MethodGet, "/metrics", enc)

			if rec.Code != http.StatusInternalServerError {
				t.Fatalf("status = %d, want 500", rec.Code)
			}
			if rec.Body.Len() != 0 {
				t.Errorf("body = %q, want empty", rec.Body.String())
			}
			if rec.Header().Get("Content-Encoding") != "" {
				t.Error("500 must not carry Content-Encoding")
			}
			out := logs.String()
			if !strings.Contains(out, "error writing metrics") || !strings.Contains(out, "registry exploded") {
				t.Errorf("log does not carry the cause: %s", out)
			}
		})
	}
}

func TestServeInvalidContentType(t *testing.T) {
	s, logs := newTestServe(staticSource(sample), WithContentType("text/plain\r\nX-Injected: 1"))
	rec := scrape(s, http.MethodGet, "/metrics")

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if rec.Header().Get("X-Injected") != "" {
		t.Error("header injection reached the response")
	}
	if !strings.Contains(logs.String(), "error constructing HTTP response") {
		t.Errorf("expected response-construction error in log: %s", logs.String())
	}
}

func TestServeInvalidGzipLevel(t *testing.T) {
	s, logs := newTestServe(staticSource(sample), WithGzipLevel(42))

	rec := scrape(s, http.MethodGet, "/metrics", "gzip")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if !strings.Contains(logs.String(), "error writing metrics") {
		t.Errorf("expected write error in log: %s", logs.String())
	}

	// Plain scrapes do not touch the compressor.
	if rec := scrape(s, http.MethodGet, "/metrics"); rec.Code != http.StatusOK {
		t.Errorf("plain status = %d, want 200", rec.Code)
	}
}

func TestServeCustomPathAndContentType(t *testing.T) {
	const ct = "text/plain; version=0.0.4; charset=utf-8"
	s, _ := newTestServe(staticSource(sample), WithPath("/-/stats"), WithContentType(ct))

	if s.Path() != "/-/stats" {
		t.Errorf("Path() = %q", s.Path())
	}
	if rec := scrape(s, http.MethodGet, "/metrics"); rec.Code != http.StatusNotFound {
		t.Errorf("default path status = %d, want 404", rec.Code)
	}
	rec := scrape(s, http.MethodGet, "/-/stats")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != ct {
		t.Errorf("Content-Type = %q, want %q", got, ct)
	}
}

func TestServeConcurrentScrapes(t *testing.T) {
	var body strings.Builder
	for i := 0; i < 500; i++ {
		body.WriteString("series_total{i=\"x\"} 1\n")
	}
	want := body.String()
	s, _ := newTestServe(staticSource(want))

	var wg sync.WaitGroup
	errs := make(chan string, 64)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(gz bool) {
			defer wg.Done()
			enc := ""
			if gz {
				enc = "gzip"
			}
			rec := scrape(s, http.MethodGet, "/metrics", enc)
			got := rec.Body.String()
			if gz {
				zr, err := gzip.NewReader(rec.Body)
				if err != nil {
					errs <- err.Error()
					return
				}
				b, _ := io.ReadAll(zr)
				got = string(b)
			}
			if got != want {
				errs <- "body mismatch"
			}
		}(i%2 == 0)
	}
	wg.Wait()
	close(errs)

	for e := range errs {
		t.Error(e)
	}
}

func TestIsGzip(t *testing.T) {
	tests := []struct {
		values []string
		want   bool
	}{
		{nil, false},
		{[]string{"identity"}, false},
		{[]string{"GZIP"}, false},
		{[]string{"gzip"}, true},
		{[]string{"deflate", "gzip;q=0.5"}, true},
		{[]string{"\xc3\x28gzip"}, false},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
		for _, v := range tt.values {
			req.Header.Add("Accept-Encoding", v)
		}
		if got := IsGzip(req); got != tt.want {
			t.Errorf("IsGzip(%q) = %v, want %v", tt.values, got, tt.want)
		}
	}
}

func TestEmptyResponseHasNoBody(t *testing.T) {
	for _, status := range []int{http.StatusNotFound, http.StatusInternalServerError} {
		rsp := emptyResponse(status)
		rec := httptest.NewRecorder()
		rsp.write(rec)
		if rec.Code != status || rec.Body.Len() != 0 {
			t.Errorf("emptyResponse(%d) wrote %d %q", status, rec.Code, rec.Body.String())
		}
	}
}
