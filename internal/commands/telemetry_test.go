package commands

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/goliatone/go-chansync/pkg/interfaces"
)

type levelRecorder struct {
	entries []string
}

func (r *levelRecorder) Trace(msg string, _ ...any) { r.add("TRACE", msg) }
func (r *levelRecorder) Debug(msg string, _ ...any) { r.add("DEBUG", msg) }
func (r *levelRecorder) Info(msg string, _ ...any)  { r.add("INFO", msg) }
func (r *levelRecorder) Warn(msg string, _ ...any)  { r.add("WARN", msg) }
func (r *levelRecorder) Error(msg string, _ ...any) { r.add("ERROR", msg) }
func (r *levelRecorder) Fatal(msg string, _ ...any) { r.add("FATAL", msg) }

func (r *levelRecorder) WithContext(context.Context) interfaces.Logger { return r }

func (r *levelRecorder) add(level, msg string) {
	r.entries = append(r.entries, level+" "+msg)
}

func TestDefaultTelemetryLogsCancellationAsWarning(t *testing.T) {
	rec := &levelRecorder{}
	telemetry := DefaultTelemetry[testMessage](rec)
	ctx := context.Background()

	telemetry(ctx, testMessage{}, TelemetryInfo{Status: TelemetryStatusSuccess})
	telemetry(ctx, testMessage{}, TelemetryInfo{
		Status: TelemetryStatusContextError,
		Error:  WrapContextError(fmt.Errorf("listen: %w", context.Canceled)),
	})
	telemetry(ctx, testMessage{}, TelemetryInfo{
		Status: TelemetryStatusContextError,
		Error:  context.DeadlineExceeded,
	})
	telemetry(ctx, testMessage{}, TelemetryInfo{
		Status: TelemetryStatusFailed,
		Error:  errors.New("push rejected"),
	})

	want := []string{
		"INFO command.execute.success",
		"WARN command.execute.cancelled",
		"ERROR command.execute.context_error",
		"ERROR command.execute.failed",
	}
	if len(rec.entries) != len(want) {
		t.Fatalf("expected %d entries, got %v", len(want), rec.entries)
	}
	for i := range want {
		if rec.entries[i] != want[i] {
			t.Fatalf("entry %d: expected %q, got %q", i, want[i], rec.entries[i])
		}
	}
}

func TestDefaultTelemetryToleratesNilLogger(t *testing.T) {
	telemetry := DefaultTelemetry[testMessage](nil)
	telemetry(context.Background(), testMessage{}, TelemetryInfo{Status: TelemetryStatusFailed, Error: errors.New("x")})
}
