package errors

import (
	"net/url"
	"regexp"
	"strings"
	"unicode"
)

// mNumberRegex matches product identifiers such as "M1001".
var mNumberRegex = regexp.MustCompile(`^M[0-9]{1,9}$`)

// ValidateMNumber validates a product M Number.
//
// M Numbers appear verbatim in object keys, ZIP paths and marketplace URLs,
// so only the canonical "M" + digits form is accepted.
func ValidateMNumber(m string) error {
	if m == "" {
		return New(ErrCodeInvalidInput, "m_number cannot be empty")
	}
	if !mNumberRegex.MatchString(m) {
		return New(ErrCodeInvalidInput, "invalid m_number: %q (expected M followed by digits)", m)
	}
	return nil
}

// ValidateAssetName validates an icon or template file reference.
// It rejects names that could escape the asset directory.
//
// The validation rules are intentionally conservative:
//   - No empty names
//   - No control characters or null bytes
//   - No path separators or traversal sequences
//   - No hidden files
//   - Maximum length of 256 characters
func ValidateAssetName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidPath, "asset name cannot be empty")
	}

	if len(name) > 256 {
		return New(ErrCodeInvalidPath, "asset name too long (max 256 characters)")
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "asset name contains invalid control characters")
		}
	}

	if strings.ContainsAny(name, "/\\") {
		return New(ErrCodeInvalidPath, "asset name cannot contain path separators: %q", name)
	}

	if strings.Contains(name, "..") {
		return New(ErrCodeInvalidPath, "asset name cannot contain path traversal sequences: %q", name)
	}

	if strings.HasPrefix(name, ".") {
		return New(ErrCodeInvalidPath, "asset name cannot be a hidden file: %q", name)
	}

	return nil
}

// ValidateArchivePath checks a slash-separated entry name for a ZIP bundle.
// Dots inside a name are fine ("Wait... aluminium sign"); only "." and ".."
// as whole segments are rejected, along with absolute names, backslashes,
// empty segments and control characters.
func ValidateArchivePath(name string) error {
	if name == "" {
		return New(ErrCodeInvalidPath, "archive path cannot be empty")
	}
	const maxArchivePath = 500
	if len(name) > maxArchivePath {
		return New(ErrCodeInvalidPath, "archive path too long (max %d characters)", maxArchivePath)
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "archive path contains control characters: %q", name)
		}
	}
	if strings.HasPrefix(name, "/") {
		return New(ErrCodeInvalidPath, "archive path must be relative: %q", name)
	}
	if strings.Contains(name, "\\") {
		return New(ErrCodeInvalidPath, "archive path cannot contain backslashes: %q", name)
	}
	for _, seg := range strings.Split(strings.TrimSuffix(name, "/"), "/") {
		switch seg {
		case "":
			return New(ErrCodeInvalidPath, "archive path has an empty segment: %q", name)
		case ".", "..":
			return New(ErrCodeInvalidPath, "archive path cannot contain %q segments: %q", seg, name)
		}
	}
	return nil
}

// ValidateURL checks that raw is an absolute http or https URL with a host.
func ValidateURL(raw string) error {
	if raw == "" {
		return New(ErrCodeInvalidInput, "URL cannot be empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return Wrap(ErrCodeInvalidInput, err, "invalid URL %q", raw)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return New(ErrCodeInvalidInput, "URL must use http or https: %q", raw)
	}
	if u.Host == "" {
		return New(ErrCodeInvalidInput, "URL has no host: %q", raw)
	}
	return nil
}
