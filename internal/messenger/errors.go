package messenger

import (
	"errors"
	"fmt"

	"github.com/Krakenied/MiniMessenger/internal/document"
)

var (
	// ErrInvalidArgument is returned by New when a required identifier is empty.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrBootstrap is returned when the backing file cannot be created from the
	// bundled default, or when the freshly copied default does not parse.
	ErrBootstrap = errors.New("could not copy default config file")
	// ErrIO is returned when the backing file cannot be read, checked or
	// quarantined.
	ErrIO = errors.New("config file i/o failed")
	// ErrParse is matched by reload errors caused by a malformed document.
	ErrParse = document.ErrParse
	// ErrInvalidConfig is returned when the prefix, the messages section or the
	// configured root are missing from an otherwise well-formed file.
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrMissingOrMistyped is matched by every *ValueError.
	ErrMissingOrMistyped = errors.New("value is missing or has the wrong type")
	// ErrInvalidMaterial is returned when a string is not a known material.
	ErrInvalidMaterial = errors.New("invalid material")
	// ErrNotLoaded is returned by getters before the first successful reload.
	ErrNotLoaded = errors.New("configuration not loaded")
)

// ValueError describes a typed lookup that found nothing, or found a value of
// another type.
type ValueError struct {
	// Path is the absolute path that was looked up.
	Path string
	// Expected is the requested type.
	Expected string
	// Actual is the kind found, "nil" when absent.
	Actual string
}

// Error implements the error interface.
func (e *ValueError) Error() string {
	if e.Actual == document.KindInvalid.String() {
		return fmt.Sprintf("%s is missing, expected %s", e.Path, e.Expected)
	}
	return fmt.Sprintf("%s is %s, expected %s", e.Path, e.Actual, e.Expected)
}

// Is implements error matching for ValueError.
func (e *ValueError) Is(target error) bool {
	return target == ErrMissingOrMistyped
}
