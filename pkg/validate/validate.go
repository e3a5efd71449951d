// Package validate implements the request validator (C3): request-target
// form resolution, query splitting, Host-header semantics, the
// upgrade-to-HTTPS short circuit, and the Connection: close directive.
package validate

import (
	"strconv"
	"strings"

	"github.com/corewire/httpd/pkg/errtype"
	"github.com/corewire/httpd/pkg/request"
)

// Identity carries the server-side facts the validator checks the request
// against: the configured hostname/port, and whether this connection is
// TLS or plain (and therefore which scheme an absolute-form target must
// carry).
type Identity struct {
	Hostname       string
	Port           int
	TransportIsTLS bool
	UpgradeToHTTPS bool
}

// Result communicates validator-driven effects back to the exchange
// controller that plain parse errors don't carry.
type Result struct {
	ClosePersistent bool
}

// Validate performs the post-parse semantic checks from RFC 7230 §5.3 and
// this server's Host-header policy, mutating req.Path/req.Query in place.
func Validate(req *request.Request, id Identity, peerIsLocal bool) (Result, error) {
	var res Result

	if req.Path == "" {
		return res, errtype.New(errtype.ClassGrammar, errtype.CodeEmptyPath)
	}

	if req.Path[0] != '/' {
		path, ok := parseAbsoluteForm(req.Path, schemeFor(id.TransportIsTLS))
		if !ok {
			return res, errtype.New(errtype.ClassGrammar, errtype.CodeIncorrectAbsoluteForm)
		}
		req.Path = path
	}

	if idx := strings.IndexByte(req.Path, '?'); idx >= 0 {
		req.Query = req.Path[idx+1:]
		req.Path = req.Path[:idx]
	}

	if req.VersionMinor >= 1 {
		if err := validateHost(req, id, peerIsLocal); err != nil {
			return res, err
		}
	}

	if id.UpgradeToHTTPS && !id.TransportIsTLS {
		return res, errtype.New(errtype.ClassProtocol, errtype.CodeUpgradeToHTTPS)
	}

	if conn, ok := req.Headers.Get("connection"); ok && strings.EqualFold(strings.TrimSpace(conn), "close") {
		res.ClosePersistent = true
	}

	return res, nil
}

func schemeFor(tls bool) string {
	if tls {
		return "https"
	}
	return "http"
}

// parseAbsoluteForm implements the strict scheme "://" authority "/" path
// split called for by the documented deviation from the original's
// four-character scheme sniff.
func parseAbsoluteForm(raw, scheme string) (string, bool) {
	prefix := scheme + "://"
	if !strings.HasPrefix(raw, prefix) {
		return "", false
	}
	rest := raw[len(prefix):]
	idx := strings.IndexByte(rest, '/')
	if idx < 0 {
		return "", false
	}
	return rest[idx:], true
}

func validateHost(req *request.Request, id Identity, peerIsLocal bool) error {
	values := req.Headers.Values("host")
	switch len(values) {
	case 0:
		return errtype.Detailed(errtype.ClassSemantic, errtype.CodeHostHeaderNone, "no 'Host' header supplied")
	case 1:
		// fall through
	default:
		return errtype.Detailed(errtype.ClassSemantic, errtype.CodeHostHeaderMany, "multiple 'Host' headers supplied")
	}

	host, port := values[0], ""
	if idx := strings.IndexByte(host, ':'); idx >= 0 {
		host, port = host[:idx], host[idx+1:]
	}

	if port != "" {
		if len(port) < 1 || len(port) > 5 || !isAllDigits(port) {
			return errtype.Detailed(errtype.ClassSemantic, errtype.CodeHostHeaderIllegalPort, "illegal port in 'Host' header")
		}
		n, err := strconv.Atoi(port)
		if err != nil || n != id.Port {
			return errtype.Detailed(errtype.ClassSemantic, errtype.CodeHostHeaderIncorrectPort, "incorrect port in 'Host' header")
		}
	}

	if host == id.Hostname {
		return nil
	}
	if peerIsLocal {
		switch host {
		case "localhost", "127.0.0.1", "0.0.0.0":
			return nil
		}
	}
	return errtype.Detailed(errtype.ClassSemantic, errtype.CodeHostHeaderIncorrect, "incorrect 'Host' header")
}

func isAllDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return len(s) > 0
}
