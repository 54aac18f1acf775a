package codegen_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/dalemusser/eventhub/internal/app/system/codegen"
)

func TestNew_RejectsBadParameters(t *testing.T) {
	tests := []struct {
		name     string
		length   int
		alphabet string
		attempts int
	}{
		{"zero length", 0, codegen.Alphanumeric, 10},
		{"negative attempts", 6, codegen.Alphanumeric, -1},
		{"zero attempts", 6, codegen.Alphanumeric, 0},
		{"single char alphabet", 6, "A", 10},
		{"empty alphabet", 6, "", 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := codegen.New(tt.length, tt.alphabet, tt.attempts); err == nil {
				t.Errorf("New(%d, %q, %d) expected error", tt.length, tt.alphabet, tt.attempts)
			}
		})
	}
}

func TestGenerate_LengthAndAlphabet(t *testing.T) {
	for _, g := range []*codegen.Generator{codegen.InvitationCodes(), codegen.JoinCodes()} {
		for i := 0; i < 200; i++ {
			code, err := g.Generate()
			if err != nil {
				t.Fatalf("Generate failed: %v", err)
			}
			if len(code) != g.Length() {
				t.Fatalf("len(%q) = %d, want %d", code, len(code), g.Length())
			}
			for _, r := range code {
				if !strings.ContainsRune(codegen.Alphanumeric, r) {
					t.Fatalf("code %q contains %q outside alphabet", code, r)
				}
			}
		}
	}
}

func TestInvitationCodes_Length(t *testing.T) {
	if got := codegen.InvitationCodes().Length(); got != 10 {
		t.Errorf("invitation code length = %d, want 10", got)
	}
	if got := codegen.JoinCodes().Length(); got != 6 {
		t.Errorf("join code length = %d, want 6", got)
	}
}

func TestUnique_ReturnsFirstFreeCode(t *testing.T) {
	g := codegen.InvitationCodes()
	calls := 0
	code, err := g.Unique(context.Background(), func(ctx context.Context, code string) (bool, error) {
		calls++
		return calls < 3, nil // first two collide
	})
	if err != nil {
		t.Fatalf("Unique failed: %v", err)
	}
	if calls != 3 {
		t.Errorf("isTaken called %d times, want 3", calls)
	}
	if len(code) != 10 {
		t.Errorf("len(code) = %d, want 10", len(code))
	}
}

func TestUnique_ExhaustsAfterMaxAttempts(t *testing.T) {
	g := codegen.InvitationCodes()
	calls := 0
	_, err := g.Unique(context.Background(), func(ctx context.Context, code string) (bool, error) {
		calls++
		return true, nil
	})
	if !errors.Is(err, codegen.ErrExhausted) {
		t.Fatalf("expected ErrExhausted, got %v", err)
	}
	if calls != codegen.DefaultMaxAttempts {
		t.Errorf("isTaken called %d times, want %d", calls, codegen.DefaultMaxAttempts)
	}
}

func TestUnique_CustomBound(t *testing.T) {
	g, err := codegen.New(4, "AB", 3)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	calls := 0
	_, err = g.Unique(context.Background(), func(ctx context.Context, code string) (bool, error) {
		calls++
		return true, nil
	})
	if !errors.Is(err, codegen.ErrExhausted) {
		t.Fatalf("expected ErrExhausted, got %v", err)
	}
	if calls != 3 {
		t.Errorf("isTaken called %d times, want 3", calls)
	}
}

func TestUnique_PropagatesPredicateError(t *testing.T) {
	boom := errors.New("db down")
	_, err := codegen.JoinCodes().Unique(context.Background(), func(ctx context.Context, code string) (bool, error) {
		return false, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped predicate error, got %v", err)
	}
	if errors.Is(err, codegen.ErrExhausted) {
		t.Error("predicate failure must not be reported as exhaustion")
	}
}

func TestUnique_StopsOnCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := codegen.JoinCodes().Unique(ctx, func(ctx context.Context, code string) (bool, error) {
		t.Fatal("isTaken should not be called after cancellation")
		return false, nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestUnique_DistinctCodes(t *testing.T) {
	g := codegen.InvitationCodes()
	seen := map[string]bool{}
	isTaken := func(ctx context.Context, code string) (bool, error) { return seen[code], nil }
	for i := 0; i < 500; i++ {
		code, err := g.Unique(context.Background(), isTaken)
		if err != nil {
			t.Fatalf("Unique failed: %v", err)
		}
		if seen[code] {
			t.Fatalf("duplicate code %q", code)
		}
		seen[code] = true
	}
}
