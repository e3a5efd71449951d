package validate

import (
	"testing"

	"github.com/corewire/httpd/pkg/errtype"
	"github.com/corewire/httpd/pkg/request"
)

func idn() Identity { return Identity{Hostname: "example.org", Port: 8080} }

func TestValidateOriginFormOK(t *testing.T) {
	req := &request.Request{Path: "/index.html", VersionMinor: 1}
	req.Headers.Add("host", "example.org:8080")
	if _, err := Validate(req, idn(), false); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidateAbsoluteFormStripsToPath(t *testing.T) {
	req := &request.Request{Path: "http://example.org:8080/a/b", VersionMinor: 1}
	req.Headers.Add("host", "example.org:8080")
	if _, err := Validate(req, idn(), false); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if req.Path != "/a/b" {
		t.Fatalf("Path = %q, want /a/b", req.Path)
	}
}

func TestValidateAbsoluteFormWrongSchemeRejected(t *testing.T) {
	req := &request.Request{Path: "https://example.org/a", VersionMinor: 1}
	req.Headers.Add("host", "example.org")
	_, err := Validate(req, idn(), false)
	code, ok := errtype.CodeOf(err)
	if !ok || code != errtype.CodeIncorrectAbsoluteForm {
		t.Fatalf("err = %v, want INCORRECT_PATH_ABSOLUTE_FORM", err)
	}
}

func TestValidateQuerySplit(t *testing.T) {
	req := &request.Request{Path: "/search?q=a&x=1", VersionMinor: 1}
	req.Headers.Add("host", "example.org:8080")
	if _, err := Validate(req, idn(), false); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if req.Path != "/search" || req.Query != "q=a&x=1" {
		t.Fatalf("Path/Query = %q/%q", req.Path, req.Query)
	}
}

func TestValidateMissingHost(t *testing.T) {
	req := &request.Request{Path: "/", VersionMinor: 1}
	_, err := Validate(req, idn(), false)
	code, ok := errtype.CodeOf(err)
	if !ok || code != errtype.CodeHostHeaderNone {
		t.Fatalf("err = %v, want HOST_HEADER_NONE", err)
	}
}

func TestValidateHostVersionZeroSkipsCheck(t *testing.T) {
	req := &request.Request{Path: "/", VersionMinor: 0}
	if _, err := Validate(req, idn(), false); err != nil {
		t.Fatalf("HTTP/1.0 without Host should be accepted: %v", err)
	}
}

func TestValidateLocalhostAcceptedWhenPeerLocal(t *testing.T) {
	req := &request.Request{Path: "/", VersionMinor: 1}
	req.Headers.Add("host", "localhost:8080")
	if _, err := Validate(req, idn(), true); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidateLocalhostRejectedWhenPeerRemote(t *testing.T) {
	req := &request.Request{Path: "/", VersionMinor: 1}
	req.Headers.Add("host", "localhost:8080")
	_, err := Validate(req, idn(), false)
	code, ok := errtype.CodeOf(err)
	if !ok || code != errtype.CodeHostHeaderIncorrect {
		t.Fatalf("err = %v, want HOST_HEADER_INCORRECT", err)
	}
}

func TestValidateIncorrectPort(t *testing.T) {
	req := &request.Request{Path: "/", VersionMinor: 1}
	req.Headers.Add("host", "example.org:9999")
	_, err := Validate(req, idn(), false)
	code, ok := errtype.CodeOf(err)
	if !ok || code != errtype.CodeHostHeaderIncorrectPort {
		t.Fatalf("err = %v, want HOST_HEADER_INCORRECT_PORT", err)
	}
}

func TestValidateUpgradeToHTTPS(t *testing.T) {
	req := &request.Request{Path: "/path", VersionMinor: 1}
	req.Headers.Add("host", "example.org")
	id := idn()
	id.UpgradeToHTTPS = true
	_, err := Validate(req, id, false)
	code, ok := errtype.CodeOf(err)
	if !ok || code != errtype.CodeUpgradeToHTTPS {
		t.Fatalf("err = %v, want UPGRADE_TO_HTTPS", err)
	}
}

func TestValidateConnectionClose(t *testing.T) {
	req := &request.Request{Path: "/", VersionMinor: 1}
	req.Headers.Add("host", "example.org:8080")
	req.Headers.Add("connection", "Close")
	res, err := Validate(req, idn(), false)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !res.ClosePersistent {
		t.Fatalf("expected ClosePersistent true for Connection: Close")
	}
}

func TestValidateEmptyPath(t *testing.T) {
	req := &request.Request{Path: "", VersionMinor: 1}
	_, err := Validate(req, idn(), false)
	code, ok := errtype.CodeOf(err)
	if !ok || code != errtype.CodeEmptyPath {
		t.Fatalf("err = %v, want INVALID_PATH_EMPTY", err)
	}
}
