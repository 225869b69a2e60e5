package project

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// HasFilePathPrefix reports whether the filesystem path s
// begins with the elements in prefix.
//
// HasFilePathPrefix is case-sensitive (except for volume names) and assumes
// that all path separators are canonicalized to filepath.Separator.
func HasFilePathPrefix(s, prefix string) bool {
	sv := filepath.VolumeName(s)
	pv := filepath.VolumeName(prefix)
	s = s[len(sv):]
	prefix = prefix[len(pv):]

	// Windows volume names are case-insensitive.
	if sv != pv {
		sv = strings.ToUpper(sv)
		pv = strings.ToUpper(pv)
	}

	switch {
	default:
		return false
	case sv != pv:
		return false
	case len(s) == len(prefix):
		return s == prefix
	case prefix == "":
		return true
	case len(s) > len(prefix):
		if prefix[len(prefix)-1] == filepath.Separator {
			return strings.HasPrefix(s, prefix)
		}
		return s[len(prefix)] == filepath.Separator && s[:len(prefix)] == prefix
	}
}

// TrimFilePathPrefix returns s without the leading path elements in prefix,
// such that joining the string to prefix produces s.
// If s does not start with prefix, s is returned unchanged.
func TrimFilePathPrefix(s, prefix string) string {
	if prefix == "" {
		return s
	}
	if !HasFilePathPrefix(s, prefix) {
		return s
	}

	trimmed := s[len(prefix):]
	if len(trimmed) > 0 && os.IsPathSeparator(trimmed[0]) {
		// A bare Windows drive letter keeps its separator so the result
		// stays absolute when joined back.
		if !(runtime.GOOS == "windows" && prefix == filepath.VolumeName(prefix) && len(prefix) == 2 && prefix[1] == ':') {
			trimmed = trimmed[1:]
		}
	}
	return trimmed
}

// WithFilePathSeparator returns s with a trailing path separator, or the empty
// string if s is empty.
func WithFilePathSeparator(s string) string {
	if s == "" || os.IsPathSeparator(s[len(s)-1]) {
		return s
	}
	return s + string(filepath.Separator)
}

// isBadName reports whether name should never be treated as a project
// source: VCS metadata and names the output hash cannot record.
func isBadName(name string) bool {
	if strings.Contains(name, "\n") {
		return true
	}
	switch name {
	case "":
		return true
	case ".bzr", ".hg", ".git", ".svn":
		return true
	}
	return false
}
