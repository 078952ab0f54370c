// Package generation turns uploaded images and random prompts into creature
// profiles. Every provider returns profiles already passed through
// character.Normalize.
package generation

import (
	"context"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/blake2b"

	"github.com/cory-johannsen/beastbattle/internal/game/character"
)

// Provider produces creature profiles.
//
// Implementations must be safe for concurrent use and must honour ctx
// cancellation on every call.
type Provider interface {
	// AcquireFromImage derives a profile from image bytes of the given MIME type.
	AcquireFromImage(ctx context.Context, image []byte, mimeType string) (character.Profile, error)
	// AcquireRandomOpponent produces a profile with no user input.
	AcquireRandomOpponent(ctx context.Context) (character.Profile, error)
}

// Operation names reported in GenerationError.Op.
const (
	OpImage    = "image"
	OpOpponent = "opponent"
)

// GenerationError wraps any failure raised while producing a profile.
type GenerationError struct {
	Op  string
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generating %s profile: %v", e.Op, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &GenerationError{Op: op, Err: err}
}

// Fingerprint returns the hex-encoded BLAKE2b-256 digest of image.
//
// Postcondition: equal inputs yield equal 64-character strings.
func Fingerprint(image []byte) string {
	sum := blake2b.Sum256(image)
	return hex.EncodeToString(sum[:])
}
