package response

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/corewire/httpd/pkg/policy"
)

type captureWriter struct {
	buf        bytes.Buffer
	sentFile   bool
	fileLength int64
}

func (c *captureWriter) WriteAll(b []byte) error {
	c.buf.Write(b)
	return nil
}

func (c *captureWriter) SendFile(f *os.File, n int64) error {
	c.sentFile = true
	c.fileLength = n
	return nil
}

func TestSendSimpleGetHeaders(t *testing.T) {
	a := New(policy.Default(), "corewire-httpd", "")
	w := &captureWriter{}
	err := a.Send(w, Options{
		Status:     Status200,
		Persistent: true,
		Path:       "/index.html",
		Body:       []byte("hi\n"),
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	out := w.buf.String()
	if !strings.HasPrefix(out, "HTTP/1.1 200 OK\r\n") {
		t.Fatalf("missing status line: %q", out)
	}
	if !strings.Contains(out, "Content-Length: 3\r\n") {
		t.Fatalf("missing Content-Length: %q", out)
	}
	if !strings.Contains(out, "Content-Type: text/html;charset=utf-8\r\n") {
		t.Fatalf("missing Content-Type: %q", out)
	}
	if !strings.Contains(out, "Connection: keep-alive\r\n") {
		t.Fatalf("missing Connection: %q", out)
	}
	if !strings.HasSuffix(out, "hi\n") {
		t.Fatalf("missing body: %q", out)
	}
}

func TestSendHeadSuppressesBody(t *testing.T) {
	a := New(policy.Default(), "corewire-httpd", "")
	w := &captureWriter{}
	err := a.Send(w, Options{
		Status:       Status200,
		Persistent:   true,
		Path:         "/index.html",
		Body:         []byte("hi\n"),
		SuppressBody: true,
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if strings.HasSuffix(w.buf.String(), "hi\n") {
		t.Fatalf("HEAD response must not include body: %q", w.buf.String())
	}
	if !strings.Contains(w.buf.String(), "Content-Length: 3\r\n") {
		t.Fatalf("HEAD response must still report body length: %q", w.buf.String())
	}
}

func TestSendHSTSOnlyWhenTLSActiveAndConfigured(t *testing.T) {
	a := New(policy.Default(), "corewire-httpd", "max-age=63072000")
	w := &captureWriter{}
	_ = a.Send(w, Options{Status: Status200, Persistent: true, TLSActive: false, Path: "/x.txt", Body: []byte("x")})
	if strings.Contains(w.buf.String(), "Strict-Transport-Security") {
		t.Fatalf("HSTS should be absent over plain transport")
	}

	w2 := &captureWriter{}
	_ = a.Send(w2, Options{Status: Status200, Persistent: true, TLSActive: true, Path: "/x.txt", Body: []byte("x")})
	if !strings.Contains(w2.buf.String(), "Strict-Transport-Security: max-age=63072000\r\n") {
		t.Fatalf("expected HSTS header over TLS: %q", w2.buf.String())
	}
}

func TestSendConnectionCloseWhenNotPersistent(t *testing.T) {
	a := New(policy.Default(), "corewire-httpd", "")
	w := &captureWriter{}
	_ = a.Send(w, Options{Status: Status400, Persistent: false, Body: []byte("bad"), MediaType: "text/plain", IsTextual: true})
	if !strings.Contains(w.buf.String(), "Connection: close\r\n") {
		t.Fatalf("expected Connection: close, got %q", w.buf.String())
	}
}

func TestSendExtraHeadersVerbatim(t *testing.T) {
	a := New(policy.Default(), "corewire-httpd", "")
	w := &captureWriter{}
	err := a.Send(w, Options{
		Status:       Status301,
		Persistent:   false,
		MediaType:    "text/plain",
		ExtraHeaders: []string{"Location: https://example.org/path"},
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if !strings.Contains(w.buf.String(), "Location: https://example.org/path\r\n") {
		t.Fatalf("missing Location header: %q", w.buf.String())
	}
}

func TestSendFileDelegatesToSendFile(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "body")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	a := New(policy.Default(), "corewire-httpd", "")
	w := &captureWriter{}
	if err := a.Send(w, Options{Status: Status200, Persistent: true, Path: "/a.txt", File: f, FileSize: 42}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if !w.sentFile || w.fileLength != 42 {
		t.Fatalf("SendFile not invoked correctly: sent=%v length=%d", w.sentFile, w.fileLength)
	}
}

func TestSecurityHeaderTogglesOff(t *testing.T) {
	pol := policy.Default()
	pol.DenyIFraming = false
	pol.EnableXSSProtectionHeader = false
	pol.EnableContentTypeNosniffing = false
	pol.DisableReferrer = false
	a := New(pol, "corewire-httpd", "")
	w := &captureWriter{}
	_ = a.Send(w, Options{Status: Status200, Persistent: true, Path: "/x.txt", Body: []byte("x")})
	out := w.buf.String()
	for _, h := range []string{"X-Frame-Options", "X-XSS-Protection", "X-Content-Type-Options", "Referrer-Policy"} {
		if strings.Contains(out, h) {
			t.Fatalf("expected %s to be absent when disabled: %q", h, out)
		}
	}
}
