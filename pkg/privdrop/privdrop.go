// Package privdrop drops process privileges from root to an unprivileged
// user/group after the listener and TLS material have been opened, so a
// compromised request handler never runs as root.
package privdrop

// Target names the user and group to drop into. Group may be empty, in
// which case the user's primary group is kept.
type Target struct {
	User  string
	Group string
}

// Enabled reports whether a Target names a user to drop into.
func (t Target) Enabled() bool { return t.User != "" }
