// Package exchange implements the per-connection request/response state
// machine (C7): parse, validate, resolve, respond, reset, loop-or-close,
// plus the error-recovery mapping (C6) from a request/validator/resolver
// failure to a canned response.
package exchange

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/corewire/httpd/pkg/errtype"
	"github.com/corewire/httpd/pkg/log"
	"github.com/corewire/httpd/pkg/policy"
	"github.com/corewire/httpd/pkg/request"
	"github.com/corewire/httpd/pkg/resolver"
	"github.com/corewire/httpd/pkg/response"
	"github.com/corewire/httpd/pkg/transport"
	"github.com/corewire/httpd/pkg/validate"
)

// Settings is the per-connection view of the immutable server
// configuration: everything the exchange controller needs that isn't
// specific to one accepted socket.
type Settings struct {
	Hostname       string
	Port           int
	DocumentRoot   string // canonical, absolute
	UpgradeToHTTPS bool
	ServerToken    string
	HSTSValue      string
	Policy         policy.Policy
	Logger         *log.Logger
}

// Connection drives one accepted socket through repeated request cycles
// until persistence drops, the lifetime cap is hit, or a write fails.
type Connection struct {
	tr         *transport.Transport
	settings   Settings
	id         uint64
	persistent bool
	served     int
	startedAt  time.Time
	writeFail  bool
	peerLocal  bool
}

// NewConnection wraps tr, ready to Run. id identifies the connection in
// log lines (the registry's bookkeeping id); it carries no other meaning.
func NewConnection(tr *transport.Transport, settings Settings, id uint64) *Connection {
	return &Connection{
		tr:         tr,
		settings:   settings,
		id:         id,
		persistent: true,
		startedAt:  time.Now(),
		peerLocal:  transport.PeerIsLocal(tr.Conn()),
	}
}

// RequestsServed reports how many request cycles have completed, for
// diagnostics.
func (c *Connection) RequestsServed() int { return c.served }

// Run executes the SETUP→READING→RESPONDING/RECOVERY loop until the
// connection must close, then shuts the transport down. Cleanup is
// deferred, so it runs on every exit path, including a panic unwinding
// the worker goroutine.
func (c *Connection) Run() {
	defer c.tr.Shutdown()

	parser := request.New(c.settings.Policy)
	assembler := response.New(c.settings.Policy, c.settings.ServerToken, c.settings.HSTSValue)
	var req request.Request

	for {
		if c.settings.Policy.MaxConnectionLifetime > 0 && time.Since(c.startedAt) > c.settings.Policy.MaxConnectionLifetime {
			return
		}

		maxRequests := c.settings.Policy.MaxRequestsPerConnection
		if maxRequests > 0 && c.served >= maxRequests {
			if !c.settings.Policy.MaxRequestsCloseImmediately {
				c.respondError(assembler, errtype.New(errtype.ClassProtocol, errtype.CodeTooManyRequests), &req)
			}
			return
		}

		if c.settings.Policy.IdleReadTimeout > 0 {
			_ = c.tr.Conn().SetReadDeadline(time.Now().Add(c.settings.Policy.IdleReadTimeout))
		}

		req.Reset()
		if !c.cycle(parser, assembler, &req) {
			return
		}
		c.served++

		if c.writeFail || !c.persistent {
			return
		}
	}
}

// cycle runs one parse→validate→resolve→respond pass. It reports whether
// the connection should continue to the next cycle.
func (c *Connection) cycle(parser *request.Parser, assembler *response.Assembler, req *request.Request) bool {
	if err := parser.Parse(c.tr, req); err != nil {
		if class, _ := errtype.ClassOf(err); class == errtype.ClassIORead {
			return false
		}
		c.persistent = c.respondError(assembler, err, req)
		return true
	}

	id := validate.Identity{
		Hostname:       c.settings.Hostname,
		Port:           c.settings.Port,
		TransportIsTLS: c.tr.Mode() == transport.ModeTLS,
		UpgradeToHTTPS: c.settings.UpgradeToHTTPS,
	}
	result, err := validate.Validate(req, id, c.peerLocal)
	if err != nil {
		c.persistent = c.respondError(assembler, err, req)
		return true
	}
	if result.ClosePersistent {
		c.persistent = false
	}

	resolved, status := resolver.Open(c.settings.DocumentRoot, req.Path)
	if status != resolver.StatusOK {
		persist := c.respondError(assembler, resolverError(status), req)
		c.persistent = c.persistent && persist
		return true
	}
	defer resolved.File.Close()

	err = assembler.Send(c.tr, response.Options{
		Status:       response.Status200,
		TLSActive:    c.tr.Mode() == transport.ModeTLS,
		Persistent:   c.persistent,
		Path:         resolved.CanonicalPath,
		File:         resolved.File,
		FileSize:     resolved.Size,
		SuppressBody: req.IsHead,
	})
	if err != nil {
		c.writeFail = true
	}
	return true
}

// resolverError maps a resolver.Status to the matching error taxonomy
// code, so it can flow through the same recovery path as parser and
// validator errors.
func resolverError(status resolver.Status) error {
	switch status {
	case resolver.StatusInsufficientPermissions:
		return errtype.New(errtype.ClassResource, errtype.CodeInsufficientPerms)
	case resolver.StatusOverload:
		return errtype.New(errtype.ClassResource, errtype.CodeFileSystemOverload)
	case resolver.StatusPathEscape:
		return errtype.New(errtype.ClassResource, errtype.CodePathEscape)
	default:
		return errtype.New(errtype.ClassResource, errtype.CodeFileNotFound)
	}
}

// respondError is the error-recovery table (C6): it maps one error to a
// canned response, writes it, and returns whether the connection may stay
// persistent afterward. A write failure here is terminal and is recorded
// on the connection rather than retried — recovery is strictly
// non-recursive.
func (c *Connection) respondError(a *response.Assembler, err error, req *request.Request) bool {
	tlsActive := c.tr.Mode() == transport.ModeTLS
	code, _ := errtype.CodeOf(err)

	opts := response.Options{TLSActive: tlsActive, MediaType: "text/plain", IsTextual: true, SuppressBody: req.IsHead}
	persist := false

	switch code {
	case errtype.CodeFileNotFound:
		persist = true
		if req.Path == "/" || req.Path == "/index.html" {
			opts.Status = response.Status200
			opts.MediaType = "text/html"
			opts.Body = []byte(response.Homepage)
		} else {
			opts.Status = response.Status404
			opts.MediaType = "text/html"
			opts.Body = []byte(response.NotFoundBody)
		}
	case errtype.CodePathEscape:
		persist = true
		opts.Status = response.Status404
		opts.MediaType = "text/html"
		opts.Body = []byte(response.NotFoundBody)
	case errtype.CodeInsufficientPerms:
		persist = true
		opts.Status = response.Status403
		opts.MediaType = "text/html"
		opts.Body = []byte(response.ForbiddenBody)
	case errtype.CodeFileSystemOverload:
		persist = true
		opts.Status = response.Status503
		opts.Body = []byte(response.BodyOverloaded)
	case errtype.CodeTooLongMethod:
		opts.Status = response.Status413
		opts.Body = []byte(response.BodyMethodTooLong)
	case errtype.CodeTooLongHeaderName, errtype.CodeTooLongHeaderValue, errtype.CodeTooManyOWS:
		opts.Status = response.Status413
		opts.Body = []byte(response.BodyHeaderTooLong)
	case errtype.CodeTooLongTarget:
		opts.Status = response.Status414
		opts.Body = []byte(response.BodyTargetTooLong)
	case errtype.CodeTooManyRequests:
		persist = false
		opts.Status = response.Status429
		opts.Body = []byte(response.BodyTooManyRequests)
	case errtype.CodeUpgradeToHTTPS:
		opts.Status = response.Status301
		location := req.Path
		if req.Query != "" {
			location += "?" + req.Query
		}
		opts.ExtraHeaders = []string{fmt.Sprintf("Location: https://%s%s", c.settings.Hostname, location)}
	case errtype.CodeUnsupportedVersion:
		opts.Status = response.Status505
		opts.Body = []byte(response.BodyUnsupportedVer)
	default:
		opts.Status = response.Status400
		opts.Body = []byte("Malformed request: " + detailOf(err, code))
	}

	opts.Persistent = persist
	sendErr := a.Send(c.tr, opts)
	c.logRecovery(err, code, opts.Status.Code, persist)
	if sendErr != nil {
		c.writeFail = true
		return false
	}
	return persist
}

// logRecovery records the C6 decision once per error: connection id,
// error class, the resulting status code, and whether the connection
// stays persistent. It never logs the raw request bytes that caused the
// error, only the classified code, to avoid log injection from
// attacker-controlled header values.
func (c *Connection) logRecovery(err error, code errtype.Code, status int, persist bool) {
	if c.settings.Logger == nil {
		return
	}
	class, _ := errtype.ClassOf(err)
	c.settings.Logger.WithFields(logrus.Fields{
		"conn_id":    c.id,
		"class":      string(class),
		"code":       log.Sanitize(string(code)),
		"status":     status,
		"persistent": persist,
	}).Warn("request recovery")
}

func detailOf(err error, code errtype.Code) string {
	if e, ok := err.(*errtype.Error); ok && e.Detail != "" {
		return e.Detail
	}
	return string(code)
}
