package request

import (
	"golang.org/x/net/http/httpguts"

	"github.com/corewire/httpd/pkg/errtype"
	"github.com/corewire/httpd/pkg/policy"
)

const (
	cr byte = 0x0D
	lf byte = 0x0A
	sp byte = 0x20
	ht byte = 0x09
)

// ByteReader is the single-octet read primitive the parser drives. The
// transport package's Transport satisfies this directly.
type ByteReader interface {
	ReadOctet() (byte, error)
}

// Parser consumes one octet at a time per RFC 7230 §3.1.1/§3.2/§3.2.6 and
// enforces the caps carried in Policy.
type Parser struct {
	Policy policy.Policy
}

// New returns a Parser bound to pol.
func New(pol policy.Policy) *Parser {
	return &Parser{Policy: pol}
}

// Parse reads one full request (request-line plus header block) from r
// into req, which the caller owns and resets between cycles.
func (p *Parser) Parse(r ByteReader, req *Request) error {
	method, err := p.readMethod(r)
	if err != nil {
		return err
	}
	req.Method = method
	req.IsHead = method == "HEAD"

	target, err := p.readTarget(r)
	if err != nil {
		return err
	}
	req.TargetRaw = target
	req.Path = target

	minor, err := readVersion(r)
	if err != nil {
		return err
	}
	req.VersionMinor = minor

	if err := expectCRLF(r); err != nil {
		return err
	}

	return p.readHeaders(r, req)
}

func isTokenChar(b byte) bool {
	return b < 0x80 && httpguts.IsTokenRune(rune(b))
}

func isRequestTargetChar(b byte) bool {
	return b >= 0x21 && b <= 0x7E
}

func isFieldValueChar(b byte) bool {
	return b == sp || b == ht || (b >= 0x21 && b <= 0x7E) || b >= 0x80
}

func (p *Parser) readMethod(r ByteReader) (string, error) {
	var buf []byte
	max := p.Policy.MaxMethodLength
	for {
		b, err := r.ReadOctet()
		if err != nil {
			return "", err
		}
		if b == sp {
			if len(buf) == 0 {
				return "", errtype.New(errtype.ClassGrammar, errtype.CodeEmptyMethod)
			}
			return string(buf), nil
		}
		if !isTokenChar(b) {
			return "", errtype.New(errtype.ClassGrammar, errtype.CodeIncorrectMethod)
		}
		buf = append(buf, b)
		if max > 0 && len(buf) > max {
			return "", errtype.New(errtype.ClassPolicy, errtype.CodeTooLongMethod)
		}
	}
}

func (p *Parser) readTarget(r ByteReader) (string, error) {
	var buf []byte
	max := p.Policy.MaxRequestTargetLength
	for {
		b, err := r.ReadOctet()
		if err != nil {
			return "", err
		}
		if b == sp {
			return string(buf), nil
		}
		if !isRequestTargetChar(b) {
			return "", errtype.New(errtype.ClassGrammar, errtype.CodeIncorrectPath)
		}
		buf = append(buf, b)
		if max > 0 && len(buf) > max {
			return "", errtype.New(errtype.ClassPolicy, errtype.CodeTooLongTarget)
		}
	}
}

func readVersion(r ByteReader) (int, error) {
	literal := [5]byte{'H', 'T', 'T', 'P', '/'}
	for _, want := range literal {
		got, err := r.ReadOctet()
		if err != nil {
			return 0, err
		}
		if got != want {
			return 0, errtype.New(errtype.ClassGrammar, errtype.CodeIncorrectVersion)
		}
	}

	major, err := r.ReadOctet()
	if err != nil {
		return 0, err
	}
	if major != '1' {
		if major >= '0' && major <= '9' {
			return 0, errtype.New(errtype.ClassProtocol, errtype.CodeUnsupportedVersion)
		}
		return 0, errtype.New(errtype.ClassGrammar, errtype.CodeIncorrectVersion)
	}

	dot, err := r.ReadOctet()
	if err != nil {
		return 0, err
	}
	if dot != '.' {
		return 0, errtype.New(errtype.ClassGrammar, errtype.CodeIncorrectVersion)
	}

	minor, err := r.ReadOctet()
	if err != nil {
		return 0, err
	}
	if minor != '0' && minor != '1' {
		return 0, errtype.New(errtype.ClassGrammar, errtype.CodeIncorrectVersion)
	}
	return int(minor - '0'), nil
}

func expectCRLF(r ByteReader) error {
	b1, err := r.ReadOctet()
	if err != nil {
		return err
	}
	if b1 != cr {
		return errtype.New(errtype.ClassGrammar, errtype.CodeIncorrectCRLF)
	}
	b2, err := r.ReadOctet()
	if err != nil {
		return err
	}
	if b2 != lf {
		return errtype.New(errtype.ClassGrammar, errtype.CodeIncorrectCRLF)
	}
	return nil
}

func (p *Parser) readHeaders(r ByteReader, req *Request) error {
	for {
		c, err := r.ReadOctet()
		if err != nil {
			return err
		}
		if c == cr {
			end, err := r.ReadOctet()
			if err != nil {
				return err
			}
			if end != lf {
				return errtype.New(errtype.ClassGrammar, errtype.CodeIncorrectCRLF)
			}
			return nil
		}

		name, err := p.readHeaderName(r, c)
		if err != nil {
			return err
		}

		first, err := p.skipOWS(r)
		if err != nil {
			return err
		}

		value, err := p.readHeaderValue(r, first)
		if err != nil {
			return err
		}

		req.Headers.Add(name, value)
	}
}

func (p *Parser) readHeaderName(r ByteReader, first byte) (string, error) {
	buf := []byte{lowerASCII(first)}
	if !isTokenChar(first) {
		return "", errtype.New(errtype.ClassGrammar, errtype.CodeIncorrectHeaderName)
	}
	max := p.Policy.MaxHeaderFieldNameLength
	for {
		b, err := r.ReadOctet()
		if err != nil {
			return "", err
		}
		if b == ':' {
			return string(buf), nil
		}
		if !isTokenChar(b) {
			return "", errtype.New(errtype.ClassGrammar, errtype.CodeIncorrectHeaderName)
		}
		buf = append(buf, lowerASCII(b))
		if max > 0 && len(buf) > max {
			return "", errtype.New(errtype.ClassPolicy, errtype.CodeTooLongHeaderName)
		}
	}
}

// skipOWS consumes leading SP/HTAB after the ':' and returns the first
// non-whitespace octet (which may itself be CR, signalling an empty
// value).
func (p *Parser) skipOWS(r ByteReader) (byte, error) {
	max := p.Policy.MaxWhiteSpacesInHeaderField
	count := 0
	for {
		b, err := r.ReadOctet()
		if err != nil {
			return 0, err
		}
		if b != sp && b != ht {
			return b, nil
		}
		count++
		if max > 0 && count > max {
			return 0, errtype.New(errtype.ClassPolicy, errtype.CodeTooManyOWS)
		}
	}
}

func (p *Parser) readHeaderValue(r ByteReader, first byte) (string, error) {
	var buf []byte
	max := p.Policy.MaxHeaderFieldValueLength
	b := first
	for {
		if b == cr {
			end, err := r.ReadOctet()
			if err != nil {
				return "", err
			}
			if end != lf {
				return "", errtype.New(errtype.ClassGrammar, errtype.CodeIncorrectCRLF)
			}
			break
		}
		if !isFieldValueChar(b) {
			return "", errtype.New(errtype.ClassGrammar, errtype.CodeIncorrectHeaderVal)
		}
		buf = append(buf, b)
		if max > 0 && len(buf) > max {
			return "", errtype.New(errtype.ClassPolicy, errtype.CodeTooLongHeaderValue)
		}
		next, err := r.ReadOctet()
		if err != nil {
			return "", err
		}
		b = next
	}
	return string(trimTrailingOWS(buf)), nil
}

func trimTrailingOWS(b []byte) []byte {
	end := len(b)
	for end > 0 && (b[end-1] == sp || b[end-1] == ht) {
		end--
	}
	return b[:end]
}

func lowerASCII(b byte) byte {
	if b >= 'A' && b <= 'Z' {
		return b + ('a' - 'A')
	}
	return b
}
