// Package codegen produces short random codes and guarantees uniqueness
// against a caller-supplied predicate, bounded by a fixed number of attempts.
//
// Organizations use 10-character invitation codes and events use 6-character
// join codes, both drawn from uppercase letters and digits.
package codegen

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"
)

// Alphanumeric is the default alphabet: uppercase letters and digits.
const Alphanumeric = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

const (
	// DefaultMaxAttempts bounds consecutive collisions before giving up.
	DefaultMaxAttempts = 10

	InvitationCodeLength = 10
	JoinCodeLength       = 6
)

// ErrExhausted is returned when every attempt collided with an existing code.
var ErrExhausted = errors.New("unique code attempts exhausted")

// TakenFunc reports whether code already exists in the relevant collection.
type TakenFunc func(ctx context.Context, code string) (bool, error)

// Generator draws codes of a fixed length from a fixed alphabet.
type Generator struct {
	length      int
	alphabet    []rune
	maxAttempts int
	rand        io.Reader
}

// New builds a Generator. length and maxAttempts must be positive and the
// alphabet must hold at least two distinct characters.
func New(length int, alphabet string, maxAttempts int) (*Generator, error) {
	if length <= 0 {
		return nil, fmt.Errorf("codegen: length must be positive, got %d", length)
	}
	if maxAttempts <= 0 {
		return nil, fmt.Errorf("codegen: maxAttempts must be positive, got %d", maxAttempts)
	}
	runes := []rune(alphabet)
	if len(runes) < 2 {
		return nil, errors.New("codegen: alphabet needs at least two characters")
	}
	return &Generator{
		length:      length,
		alphabet:    runes,
		maxAttempts: maxAttempts,
		rand:        rand.Reader,
	}, nil
}

// InvitationCodes returns the generator used for organization invitation codes.
func InvitationCodes() *Generator {
	g, _ := New(InvitationCodeLength, Alphanumeric, DefaultMaxAttempts)
	return g
}

// JoinCodes returns the generator used for event join codes.
func JoinCodes() *Generator {
	g, _ := New(JoinCodeLength, Alphanumeric, DefaultMaxAttempts)
	return g
}

// Length returns the number of characters in each generated code.
func (g *Generator) Length() int { return g.length }

// Generate draws one code uniformly at random from the alphabet.
func (g *Generator) Generate() (string, error) {
	size := big.NewInt(int64(len(g.alphabet)))
	out := make([]rune, g.length)
	for i := range out {
		n, err := rand.Int(g.rand, size)
		if err != nil {
			return "", fmt.Errorf("codegen: read random: %w", err)
		}
		out[i] = g.alphabet[n.Int64()]
	}
	return string(out), nil
}

// Unique draws codes until isTaken reports one as free. After maxAttempts
// consecutive collisions it fails with ErrExhausted. Errors from isTaken
// abort immediately.
func (g *Generator) Unique(ctx context.Context, isTaken TakenFunc) (string, error) {
	for attempt := 0; attempt < g.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		code, err := g.Generate()
		if err != nil {
			return "", err
		}
		taken, err := isTaken(ctx, code)
		if err != nil {
			return "", fmt.Errorf("codegen: uniqueness check: %w", err)
		}
		if !taken {
			return code, nil
		}
	}
	return "", fmt.Errorf("%w after %d attempts", ErrExhausted, g.maxAttempts)
}
