// Command httpd serves static files over HTTP/1.1, with an optional TLS
// listener, defensive request limits, and security response headers.
package main

import (
	"os"

	"github.com/corewire/httpd/cmd/httpd/serve"
)

func main() {
	if err := serve.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
