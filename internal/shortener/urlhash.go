package shortener

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"
)

// ValidateURL checks that rawURL is a well-formed absolute http(s) URL.
func ValidateURL(rawURL string) error {
	if strings.TrimSpace(rawURL) == "" {
		return fmt.Errorf("%w: url is required", ErrInvalidInput)
	}

	u, err := url.ParseRequestURI(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidInput, err.Error())
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: unsupported scheme %q", ErrInvalidInput, u.Scheme)
	}

	if u.Host == "" {
		return fmt.Errorf("%w: url has no host", ErrInvalidInput)
	}

	return nil
}

// HashURL computes the hex SHA-256 of the exact URL text.
func HashURL(rawURL string) URLHash {
	h := sha256.Sum256([]byte(rawURL))
	return URLHash(hex.EncodeToString(h[:]))
}
