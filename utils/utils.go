package utils

import (
	"net/url"
	"os"
	"strings"
)

// FileExist reports whether a regular file or directory exists at filePath.
func FileExist(filePath string) (bool, error) {
	_, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		return false, nil
	}

	if err != nil {
		return false, err
	}

	return true, nil
}

func CreateDirIfNotExist(dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return os.MkdirAll(dir, 0755)
	}

	return nil
}

// SafeRedirectPath returns target when it is a local absolute path
// (e.g. "/list_phone/3"), otherwise fallback. It keeps `next` query
// params from sending users to other hosts after login.
func SafeRedirectPath(target, fallback string) string {
	// Browsers read "/\\host" like "//host".
	if target == "" || !strings.HasPrefix(target, "/") || strings.ContainsRune(target, '\\') ||
		strings.HasPrefix(target, "//") {
		return fallback
	}

	u, err := url.Parse(target)
	if err != nil || u.IsAbs() || u.Host != "" {
		return fallback
	}

	return target
}
