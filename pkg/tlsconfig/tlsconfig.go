// Package tlsconfig builds the server-side *tls.Config used for every
// accepted TLS connection: certificate/key loading, a TLS 1.2 floor, and
// cipher-suite selection that defers to Go's own TLS 1.3 suite set.
package tlsconfig

import (
	"crypto/tls"
	"fmt"
)

// CipherSuitesSecure is the TLS 1.2 cipher list applied when the
// negotiated version is 1.2: ECDHE key exchange with AEAD ciphers only, no
// CBC-mode fallbacks.
var CipherSuitesSecure = []uint16{
	tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
	tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
	tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
	tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
	tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305_SHA256,
	tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305_SHA256,
}

// Material names the on-disk certificate, chain and private-key files the
// context is built from.
type Material struct {
	CertificateFile string
	ChainFile       string
	PrivateKeyFile  string
	CipherSuites    []uint16 // applied for TLS 1.2 only; nil selects CipherSuitesSecure
}

// Build loads the certificate/key pair once and returns a *tls.Config
// enforcing a TLS 1.2 minimum and no client certificate requirement. The
// chain file, if set, must already be concatenated after the leaf
// certificate on disk; tls.LoadX509KeyPair handles that transparently.
func Build(m Material) (*tls.Config, error) {
	certFile := m.CertificateFile
	if m.ChainFile != "" {
		certFile = m.ChainFile
	}
	cert, err := tls.LoadX509KeyPair(certFile, m.PrivateKeyFile)
	if err != nil {
		return nil, fmt.Errorf("tlsconfig: load key pair: %w", err)
	}

	suites := m.CipherSuites
	if suites == nil {
		suites = CipherSuitesSecure
	}

	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
		CipherSuites: suites,
		ClientAuth:   tls.NoClientCert,
	}, nil
}
