// Package serve wires the cobra root command: load configuration, build
// the TLS context, drop privileges, and run the acceptor loop until
// SIGINT/SIGTERM.
package serve

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/corewire/httpd/pkg/acceptor"
	"github.com/corewire/httpd/pkg/config"
	"github.com/corewire/httpd/pkg/exchange"
	"github.com/corewire/httpd/pkg/log"
	"github.com/corewire/httpd/pkg/privdrop"
	"github.com/corewire/httpd/pkg/tlsconfig"
)

type flags struct {
	configPath   string
	hostname     string
	port         int
	documentRoot string
	tlsEnabled   bool
	jsonLogs     bool
	verbose      bool
}

// NewRootCommand builds the httpd cobra command tree.
func NewRootCommand() *cobra.Command {
	f := &flags{}
	cmd := &cobra.Command{
		Use:           "httpd",
		Short:         "Serve a document root over HTTP/1.1",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), f)
		},
	}

	cmd.Flags().StringVarP(&f.configPath, "config", "c", "httpd.yaml", "path to the YAML configuration file")
	cmd.Flags().StringVar(&f.hostname, "host", "", "override the configured hostname")
	cmd.Flags().IntVar(&f.port, "port", 0, "override the configured listen port")
	cmd.Flags().StringVar(&f.documentRoot, "document-root", "", "override the configured document root")
	cmd.Flags().BoolVar(&f.tlsEnabled, "tls", false, "force TLS on regardless of configuration")
	cmd.Flags().BoolVar(&f.jsonLogs, "json-logs", true, "emit structured logs as JSON")
	cmd.Flags().BoolVarP(&f.verbose, "verbose", "v", false, "enable debug logging")

	return cmd
}

func run(ctx context.Context, f *flags) error {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return fmt.Errorf("startup: %w", err)
	}
	applyOverrides(cfg, f)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("startup: %w", err)
	}

	level := logrus.InfoLevel
	if f.verbose {
		level = logrus.DebugLevel
	}
	logger := log.New(os.Stderr, level, f.jsonLogs)

	pol, err := cfg.Policy()
	if err != nil {
		return fmt.Errorf("startup: %w", err)
	}

	var tlsCfg *tls.Config
	if cfg.TLS.Enabled {
		tlsCfg, err = tlsconfig.Build(cfg.TLSConfig())
		if err != nil {
			return fmt.Errorf("startup: tls: %w", err)
		}
	}

	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Port))
	if err != nil {
		return fmt.Errorf("startup: listen: %w", err)
	}

	if target := cfg.PrivilegeDropTarget(); target.Enabled() {
		if err := privdrop.Drop(target); err != nil {
			return fmt.Errorf("startup: %w", err)
		}
	}

	settings := exchange.Settings{
		Hostname:       cfg.Hostname,
		Port:           cfg.Port,
		DocumentRoot:   cfg.DocumentRoot,
		UpgradeToHTTPS: cfg.UpgradeToHTTPS,
		ServerToken:    cfg.ServerToken,
		HSTSValue:      cfg.HSTSValue,
		Policy:         pol,
	}

	a := acceptor.New(listener, tlsCfg, settings, logger)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Infof("shutdown signal received, closing listener")
		cancel()
	}()

	logger.Infof("listening on :%d document_root=%s tls=%v", cfg.Port, cfg.DocumentRoot, cfg.TLS.Enabled)
	return a.Run(runCtx)
}

func applyOverrides(cfg *config.ServerConfig, f *flags) {
	if f.hostname != "" {
		cfg.Hostname = f.hostname
	}
	if f.port != 0 {
		cfg.Port = f.port
	}
	if f.documentRoot != "" {
		cfg.DocumentRoot = f.documentRoot
	}
	if f.tlsEnabled {
		cfg.TLS.Enabled = true
	}
}
