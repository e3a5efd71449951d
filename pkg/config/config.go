// Package config loads the immutable server configuration from a YAML
// document into ServerConfig, applying the policy catalogue's defaults
// for anything left unset (C12).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/corewire/httpd/pkg/policy"
	"github.com/corewire/httpd/pkg/privdrop"
	"github.com/corewire/httpd/pkg/tlsconfig"
	"gopkg.in/yaml.v3"
)

// TLSMaterial names the certificate, chain, and key files used to build
// the TLS context, plus the toggle for whether TLS is active at all.
type TLSMaterial struct {
	Enabled         bool   `yaml:"enabled"`
	CertificateFile string `yaml:"certificate_file"`
	ChainFile       string `yaml:"chain_file"`
	PrivateKeyFile  string `yaml:"private_key_file"`
}

// ServerConfig is the complete, immutable configuration for one server
// process, as loaded from YAML and possibly overridden by CLI flags.
type ServerConfig struct {
	Hostname       string `yaml:"hostname"`
	Port           int    `yaml:"port"`
	DocumentRoot   string `yaml:"document_root"`
	UpgradeToHTTPS bool   `yaml:"upgrade_to_https"`
	HSTSValue      string `yaml:"hsts_value"`
	ServerToken    string `yaml:"server_token"`

	TLS TLSMaterial `yaml:"tls"`

	PrivilegeDropUser  string `yaml:"privilege_drop_user"`
	PrivilegeDropGroup string `yaml:"privilege_drop_group"`

	MaxMethodLength             int    `yaml:"max_method_length"`
	MaxRequestTargetLength      int    `yaml:"max_request_target_length"`
	MaxHeaderFieldNameLength    int    `yaml:"max_header_field_name_length"`
	MaxHeaderFieldValueLength   int    `yaml:"max_header_field_value_length"`
	MaxWhiteSpacesInHeaderField int    `yaml:"max_whitespaces_in_header_field"`
	MaxRequestsPerConnection    int    `yaml:"max_requests_per_connection"`
	MaxRequestsCloseImmediately bool   `yaml:"max_requests_close_immediately"`
	MaxConnectionLifetime       string `yaml:"max_connection_lifetime"`
	IdleReadTimeout             string `yaml:"idle_read_timeout"`
	DenyIFraming                *bool  `yaml:"deny_iframing"`
	EnableXSSProtectionHeader   *bool  `yaml:"enable_xss_protection_header"`
	EnableContentTypeNosniffing *bool  `yaml:"enable_content_type_nosniffing"`
	DisableReferrer             *bool  `yaml:"disable_referrer"`
	ContentSecurityPolicy       string `yaml:"content_security_policy"`
}

// Load reads and validates a YAML configuration file at path.
func Load(path string) (*ServerConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	var cfg ServerConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate resolves the document root to a canonical absolute path,
// requires a hostname, and fills in the port (8080, or 8443 with TLS) and
// server-token defaults; the policy catalogue defaults are applied by
// Policy, not here. Call it again
// after applying CLI overrides that touch hostname, port, or document
// root, since those bypass the defaulting Load already performed.
func (c *ServerConfig) Validate() error {
	if c.DocumentRoot == "" {
		return fmt.Errorf("config: document_root is required")
	}
	abs, err := filepath.Abs(c.DocumentRoot)
	if err != nil {
		return fmt.Errorf("config: resolve document_root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return fmt.Errorf("config: document_root %s: %w", abs, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("config: document_root %s is not a directory", abs)
	}
	canonical, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return fmt.Errorf("config: canonicalize document_root: %w", err)
	}
	c.DocumentRoot = canonical

	if c.Hostname == "" {
		return fmt.Errorf("config: hostname is required")
	}
	if c.Port == 0 {
		c.Port = 8080
	}
	if c.ServerToken == "" {
		c.ServerToken = "corewire-httpd"
	}
	if c.TLS.Enabled && c.Port == 8080 {
		c.Port = 8443
	}
	return nil
}

// Policy builds a policy.Policy from the configured overrides, falling
// back to policy.Default() for anything left unset.
func (c *ServerConfig) Policy() (policy.Policy, error) {
	p := policy.Default()

	setIfPositive(&p.MaxMethodLength, c.MaxMethodLength)
	setIfPositive(&p.MaxRequestTargetLength, c.MaxRequestTargetLength)
	setIfPositive(&p.MaxHeaderFieldNameLength, c.MaxHeaderFieldNameLength)
	setIfPositive(&p.MaxHeaderFieldValueLength, c.MaxHeaderFieldValueLength)
	setIfPositive(&p.MaxWhiteSpacesInHeaderField, c.MaxWhiteSpacesInHeaderField)
	setIfPositive(&p.MaxRequestsPerConnection, c.MaxRequestsPerConnection)
	p.MaxRequestsCloseImmediately = c.MaxRequestsCloseImmediately

	if c.MaxConnectionLifetime != "" {
		d, err := time.ParseDuration(c.MaxConnectionLifetime)
		if err != nil {
			return policy.Policy{}, fmt.Errorf("config: max_connection_lifetime: %w", err)
		}
		p.MaxConnectionLifetime = d
	}
	if c.IdleReadTimeout != "" {
		d, err := time.ParseDuration(c.IdleReadTimeout)
		if err != nil {
			return policy.Policy{}, fmt.Errorf("config: idle_read_timeout: %w", err)
		}
		p.IdleReadTimeout = d
	}

	if c.DenyIFraming != nil {
		p.DenyIFraming = *c.DenyIFraming
	}
	if c.EnableXSSProtectionHeader != nil {
		p.EnableXSSProtectionHeader = *c.EnableXSSProtectionHeader
	}
	if c.EnableContentTypeNosniffing != nil {
		p.EnableContentTypeNosniffing = *c.EnableContentTypeNosniffing
	}
	if c.DisableReferrer != nil {
		p.DisableReferrer = *c.DisableReferrer
	}
	if c.ContentSecurityPolicy != "" {
		p.ContentSecurityPolicy = c.ContentSecurityPolicy
	}
	return p, nil
}

func setIfPositive(dst *int, v int) {
	if v > 0 {
		*dst = v
	}
}

// TLSConfig builds the tlsconfig.Material needed to construct a
// *tls.Config, when TLS is enabled.
func (c *ServerConfig) TLSConfig() tlsconfig.Material {
	return tlsconfig.Material{
		CertificateFile: c.TLS.CertificateFile,
		ChainFile:       c.TLS.ChainFile,
		PrivateKeyFile:  c.TLS.PrivateKeyFile,
	}
}

// PrivilegeDropTarget builds the privdrop.Target configured for this
// server, a no-op Target when unconfigured.
func (c *ServerConfig) PrivilegeDropTarget() privdrop.Target {
	return privdrop.Target{User: c.PrivilegeDropUser, Group: c.PrivilegeDropGroup}
}
