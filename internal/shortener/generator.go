package shortener

import (
	"fmt"
	"strings"

	"github.com/jaevor/go-nanoid"
)

// Alphabet is the 62-symbol code alphabet.
const Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// DefaultCodeLength is used when no length is configured.
const DefaultCodeLength = 6

// CodeGenerator returns a random code. It does not guarantee uniqueness.
type CodeGenerator func() string

// NewCodeGenerator returns a generator of alphanumeric codes of the given length.
// Codes are short, not secret.
func NewCodeGenerator(length int) (CodeGenerator, error) {
	if length <= 0 {
		length = DefaultCodeLength
	}

	gen, err := nanoid.CustomASCII(Alphabet, length)
	if err != nil {
		return nil, fmt.Errorf("code generator: %w", err)
	}

	return gen, nil
}

// ExtractCode returns the trailing path segment of a short URL, or ref itself
// when it is already a bare code.
func ExtractCode(ref string) (Code, error) {
	ref = strings.TrimSpace(ref)
	if i := strings.IndexAny(ref, "?#"); i != -1 {
		ref = ref[:i]
	}

	ref = strings.TrimRight(ref, "/")
	if i := strings.LastIndex(ref, "/"); i != -1 {
		ref = ref[i+1:]
	}

	if ref == "" {
		return "", fmt.Errorf("%w: empty short code", ErrInvalidInput)
	}

	return Code(ref), nil
}
