// Package response implements the response assembler (C5): status line
// plus mandatory and policy-gated headers with exact size precomputation,
// followed by a single metadata write and a body write or sendfile.
package response

import (
	"fmt"
	"os"

	"github.com/corewire/httpd/pkg/mediatype"
	"github.com/corewire/httpd/pkg/policy"
)

// Writer is the subset of the transport the assembler needs: a
// short-write-safe bulk write and a file transfer. transport.Transport
// satisfies this.
type Writer interface {
	WriteAll([]byte) error
	SendFile(*os.File, int64) error
}

// StatusLine is a fixed (code, reason) pair used as the response's first
// line.
type StatusLine struct {
	Code   int
	Reason string
}

var (
	Status200 = StatusLine{200, "OK"}
	Status301 = StatusLine{301, "Moved Permanently"}
	Status400 = StatusLine{400, "Bad Request"}
	Status403 = StatusLine{403, "Forbidden"}
	Status404 = StatusLine{404, "Not Found"}
	Status413 = StatusLine{413, "Payload Too Large"}
	Status414 = StatusLine{414, "URI Too Long"}
	Status429 = StatusLine{429, "Too Many Requests"}
	Status503 = StatusLine{503, "Service Unavailable"}
	Status505 = StatusLine{505, "HTTP Version Not Supported"}
)

// Assembler builds and writes responses according to Policy's header
// toggles.
type Assembler struct {
	Policy      policy.Policy
	ServerToken string
	HSTSValue   string
}

// New returns an Assembler bound to pol, identifying itself as token in
// the Server header and advertising hstsValue when TLS is active (empty
// disables the header entirely).
func New(pol policy.Policy, token, hstsValue string) *Assembler {
	return &Assembler{Policy: pol, ServerToken: token, HSTSValue: hstsValue}
}

// Options describes one response. Exactly one of Body or File should be
// set; neither is required for a zero-length body (e.g. a 301 redirect).
type Options struct {
	Status       StatusLine
	TLSActive    bool
	Persistent   bool
	Path         string // consulted for Content-Type when MediaType is empty
	MediaType    string
	IsTextual    bool
	Body         []byte
	File         *os.File
	FileSize     int64
	ExtraHeaders []string // verbatim lines, e.g. "Location: https://example.org/x"
	SuppressBody bool      // HEAD requests never write a body
}

// Send writes the full response — headers in one WriteAll, then the body
// as a single WriteAll or a SendFile — to w.
func (a *Assembler) Send(w Writer, opts Options) error {
	mediaType, isTextual := opts.MediaType, opts.IsTextual
	if mediaType == "" {
		mediaType, isTextual = mediatype.Detect(opts.Path)
	}

	var contentLength int64
	if opts.File != nil {
		contentLength = opts.FileSize
	} else {
		contentLength = int64(len(opts.Body))
	}

	headers := a.buildHeaders(opts.Status, contentLength, mediaType, isTextual, opts.TLSActive, opts.Persistent, opts.ExtraHeaders)
	if err := w.WriteAll(headers); err != nil {
		return err
	}

	if opts.SuppressBody {
		return nil
	}
	if opts.File != nil {
		return w.SendFile(opts.File, opts.FileSize)
	}
	if len(opts.Body) > 0 {
		return w.WriteAll(opts.Body)
	}
	return nil
}

// buildHeaders assembles the header block in the fixed order the
// assembler's contract mandates, precomputing the exact byte length so
// the returned slice is allocated once.
func (a *Assembler) buildHeaders(status StatusLine, contentLength int64, mediaType string, isTextual, tlsActive, persistent bool, extra []string) []byte {
	lines := make([]string, 0, 12+len(extra))
	lines = append(lines, fmt.Sprintf("HTTP/1.1 %d %s", status.Code, status.Reason))
	lines = append(lines, fmt.Sprintf("Content-Length: %d", contentLength))
	lines = append(lines, fmt.Sprintf("Server: %s", a.ServerToken))

	connValue := "keep-alive"
	if !persistent {
		connValue = "close"
	}
	lines = append(lines, fmt.Sprintf("Connection: %s", connValue))

	if tlsActive && a.HSTSValue != "" {
		lines = append(lines, fmt.Sprintf("Strict-Transport-Security: %s", a.HSTSValue))
	}
	if a.Policy.EnableContentTypeNosniffing {
		lines = append(lines, "X-Content-Type-Options: nosniff")
	}
	if a.Policy.DenyIFraming {
		lines = append(lines, "X-Frame-Options: SAMEORIGIN")
	}
	if a.Policy.EnableXSSProtectionHeader {
		lines = append(lines, "X-XSS-Protection: 1; mode=block")
	}
	if a.Policy.ContentSecurityPolicy != "" {
		lines = append(lines, fmt.Sprintf("Content-Security-Policy: %s", a.Policy.ContentSecurityPolicy))
	}
	if a.Policy.DisableReferrer {
		lines = append(lines, "Referrer-Policy: no-referrer")
	}

	contentType := mediaType
	if isTextual {
		contentType += ";charset=utf-8"
	}
	lines = append(lines, fmt.Sprintf("Content-Type: %s", contentType))
	lines = append(lines, extra...)

	size := 2 // terminating CRLF
	for _, l := range lines {
		size += len(l) + 2
	}

	buf := make([]byte, 0, size)
	for _, l := range lines {
		buf = append(buf, l...)
		buf = append(buf, '\r', '\n')
	}
	buf = append(buf, '\r', '\n')
	return buf
}
