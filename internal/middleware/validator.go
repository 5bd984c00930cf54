package middleware

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bryanwahyu/logtriage/internal/domain/logs"
)

// Input validation and sanitization utilities

// AllowedExtensions are the upload types accepted by the service.
var AllowedExtensions = []string{".log", ".txt", ".json"}

// ValidateFilename checks the upload name: non-empty, no directory parts,
// and one of AllowedExtensions.
func ValidateFilename(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("filename cannot be empty")
	}
	if len(name) > 255 {
		return fmt.Errorf("filename too long (max 255 chars)")
	}
	if strings.ContainsAny(name, "/\\\x00") || name == "." || name == ".." {
		return fmt.Errorf("filename must not contain path separators")
	}
	ext := strings.ToLower(filepath.Ext(name))
	for _, a := range AllowedExtensions {
		if ext == a {
			return nil
		}
	}
	return fmt.Errorf("invalid file type %q (allowed: %s)", ext, strings.Join(AllowedExtensions, ", "))
}

// ValidateFingerprint checks for a lowercase hex SHA-256 digest.
func ValidateFingerprint(fp string) error {
	if !logs.Fingerprint(fp).Valid() {
		return fmt.Errorf("invalid fingerprint format (64 lowercase hex chars)")
	}
	return nil
}

// SanitizeString removes dangerous characters from strings
func SanitizeString(input string) string {
	// Remove null bytes
	input = strings.ReplaceAll(input, "\x00", "")

	// Remove control characters
	var result strings.Builder
	for _, r := range input {
		if r >= 32 || r == '\t' || r == '\n' {
			result.WriteRune(r)
		}
	}

	return strings.TrimSpace(result.String())
}

// ValidateLimit parses a history limit. Omitting it means the full list,
// so only positive values are accepted and there is no upper cap.
func ValidateLimit(raw string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid limit %q (must be a positive integer)", raw)
	}
	return n, nil
}
