//go:build linux

package txn

import "golang.org/x/sys/unix"

// statfsFree reports free bytes available to an unprivileged user on the
// filesystem containing root, via statfs(2) (spec §4.5 "Free-space
// precheck"). Falls back to 0 free (i.e. the precheck always fails
// closed) if root doesn't exist yet; callers needing a dry-run precheck
// against a not-yet-created root should pass an existing ancestor.
func statfsFree(root string) (uint64, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(root, &st); err != nil {
		return 0, err
	}
	return uint64(st.Bavail) * uint64(st.Bsize), nil
}
