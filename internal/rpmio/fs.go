// Package rpmio holds the filesystem primitives the transaction driver's
// commit phase needs beyond plain os calls: directory/regularity probes
// and a rename-with-copy-fallback for the final atomic move of a staged
// payload into place. Adapted from the teacher's internal/fs.go (IsDir,
// IsRegular, renameWithFallback), which golang-dep uses the same way: to
// move a freshly-written vendor tree into its final location without
// leaving a half-written directory behind if the rename can't be done
// in-place.
package rpmio

import (
	"os"
	"runtime"
	"syscall"

	"github.com/pkg/errors"
	shutil "github.com/termie/go-shutil"
)

// IsDir reports whether name exists and is a directory.
func IsDir(name string) (bool, error) {
	fi, err := os.Stat(name)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if !fi.IsDir() {
		return false, errors.Errorf("%q is not a directory", name)
	}
	return true, nil
}

// IsRegular reports whether name exists and is a regular file.
func IsRegular(name string) (bool, error) {
	fi, err := os.Stat(name)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if fi.IsDir() {
		return false, errors.Errorf("%q is a directory, should be a file", name)
	}
	return true, nil
}

// IsNonEmptyDir reports whether name is a directory with at least one
// entry, used by the cache-cleanup phase to decide whether a repo
// subdirectory is worth preserving.
func IsNonEmptyDir(name string) (bool, error) {
	isDir, err := IsDir(name)
	if !isDir || err != nil {
		return isDir, err
	}
	entries, err := os.ReadDir(name)
	if err != nil {
		return false, err
	}
	return len(entries) != 0, nil
}

// RenameWithFallback attempts to rename src to dest, falling back to a
// copy-then-remove when the rename fails across a device boundary
// (syscall.EXDEV), the same fallback the teacher's renameWithFallback
// performs, using termie/go-shutil for the copy instead of the teacher's
// hand-rolled CopyFile/CopyDir since this library already depends on
// go-shutil for the driver's staging copy.
func RenameWithFallback(src, dest string) error {
	fi, err := os.Lstat(src)
	if err != nil {
		return errors.Wrapf(err, "cannot stat %s", src)
	}

	err = os.Rename(src, dest)
	if err == nil {
		return nil
	}

	terr, ok := err.(*os.LinkError)
	if !ok {
		return errors.Wrapf(err, "cannot rename %s to %s", src, dest)
	}
	if terr.Err != syscall.EXDEV && runtime.GOOS != "windows" {
		return errors.Wrapf(err, "cannot rename %s to %s", src, dest)
	}

	if fi.IsDir() {
		return errors.Wrapf(shutil.CopyTree(src, dest, nil), "cannot copy-fallback %s to %s", src, dest)
	}
	if cerr := shutil.CopyFile(src, dest, true); cerr != nil {
		return errors.Wrapf(cerr, "cannot copy-fallback %s to %s", src, dest)
	}
	return errors.Wrapf(os.Remove(src), "cannot remove %s after copy-fallback", src)
}
