package membershipservice

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/dalemusser/eventhub/internal/app/system/apperr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestFail_LevelByCause(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		level zapcore.Level
		msg   string
	}{
		{"deadline", context.DeadlineExceeded, zapcore.WarnLevel, "membership store unavailable"},
		{"wrapped deadline", fmt.Errorf("find: %w", context.DeadlineExceeded), zapcore.WarnLevel, "membership store unavailable"},
		{"other", errors.New("bad bson"), zapcore.ErrorLevel, "membership store failure"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zap.DebugLevel)
			s := &Service{logger: zap.New(core)}

			err := s.fail("join", tt.err)
			if apperr.KindOf(err) != apperr.KindUnavailable {
				t.Errorf("kind = %s, want unavailable", apperr.KindOf(err))
			}
			if !errors.Is(err, tt.err) {
				t.Error("cause not wrapped")
			}

			entries := logs.All()
			if len(entries) != 1 {
				t.Fatalf("logged %d entries, want 1", len(entries))
			}
			if entries[0].Level != tt.level || entries[0].Message != tt.msg {
				t.Errorf("logged %s %q, want %s %q", entries[0].Level, entries[0].Message, tt.level, tt.msg)
			}
			if op := entries[0].ContextMap()["op"]; op != "join" {
				t.Errorf("op = %v", op)
			}
		})
	}
}
