//go:build linux

package privdrop

import (
	"fmt"
	"os/user"
	"strconv"

	"golang.org/x/sys/unix"
)

// Drop sets the process's group and user IDs to t's and verifies root
// cannot be regained. It must run after every privileged resource (the
// listener socket, the TLS key file) has already been opened, since the
// process can no longer open new privileged files afterward.
func Drop(t Target) error {
	if !t.Enabled() {
		return nil
	}

	u, err := user.Lookup(t.User)
	if err != nil {
		return fmt.Errorf("privdrop: lookup user %q: %w", t.User, err)
	}
	uid, err := strconv.Atoi(u.Uid)
	if err != nil {
		return fmt.Errorf("privdrop: invalid uid for %q: %w", t.User, err)
	}

	gid, err := resolveGID(t, u)
	if err != nil {
		return err
	}

	if err := unix.Setgroups([]int{gid}); err != nil {
		return fmt.Errorf("privdrop: setgroups: %w", err)
	}
	if err := unix.Setgid(gid); err != nil {
		return fmt.Errorf("privdrop: setgid: %w", err)
	}
	if err := unix.Setuid(uid); err != nil {
		return fmt.Errorf("privdrop: setuid: %w", err)
	}

	if unix.Setuid(0) == nil {
		return fmt.Errorf("privdrop: privilege drop failed, root still reachable")
	}
	if unix.Setgid(0) == nil {
		return fmt.Errorf("privdrop: privilege drop failed, root group still reachable")
	}
	return nil
}

func resolveGID(t Target, u *user.User) (int, error) {
	if t.Group == "" {
		return strconv.Atoi(u.Gid)
	}
	g, err := user.LookupGroup(t.Group)
	if err != nil {
		return 0, fmt.Errorf("privdrop: lookup group %q: %w", t.Group, err)
	}
	return strconv.Atoi(g.Gid)
}
