//go:build !linux

package privdrop

import "fmt"

// Drop is unsupported outside Linux; a configured Target on any other
// platform is a startup error rather than a silent no-op.
func Drop(t Target) error {
	if !t.Enabled() {
		return nil
	}
	return fmt.Errorf("privdrop: dropping privileges is only supported on linux")
}
