package telemetry

import (
	"context"
	"testing"
)

func TestSetup(t *testing.T) {
	testCases := []struct {
		name          string
		cfg           Config
		wantTraceMode string
		wantDepSpans  bool
	}{
		{
			name:          "disabled_forces_off",
			cfg:           Config{Enabled: false, TraceMode: "detailed"},
			wantTraceMode: "off",
			wantDepSpans:  false,
		},
		{
			name:          "detailed_mode_traces_dependencies",
			cfg:           Config{Enabled: true, TraceMode: "detailed"},
			wantTraceMode: "detailed",
			wantDepSpans:  true,
		},
		{
			name:          "unknown_mode_falls_back_to_sampled",
			cfg:           Config{Enabled: true, TraceMode: "bogus", TraceSampleRatio: 0.5},
			wantTraceMode: "sampled",
			wantDepSpans:  false,
		},
		{
			name:          "empty_mode_defaults_to_sampled",
			cfg:           Config{Enabled: true, TraceSampleRatio: 2.5},
			wantTraceMode: "sampled",
			wantDepSpans:  false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			runtime, err := Setup(tc.cfg)
			if err != nil {
				t.Fatalf("Setup() unexpected error: %v", err)
			}
			t.Cleanup(func() {
				_ = runtime.Shutdown(context.Background())
			})

			if got := TraceMode(); got != tc.wantTraceMode {
				t.Fatalf("TraceMode() = %q, want %q", got, tc.wantTraceMode)
			}
			if got := ShouldTraceDependencies(); got != tc.wantDepSpans {
				t.Fatalf("ShouldTraceDependencies() = %v, want %v", got, tc.wantDepSpans)
			}
		})
	}
}

func TestClampRatio(t *testing.T) {
	t.Parallel()

	if got := clampRatio(-1); got != 0 {
		t.Fatalf("clampRatio(-1) = %v, want 0", got)
	}
	if got := clampRatio(1.5); got != 1 {
		t.Fatalf("clampRatio(1.5) = %v, want 1", got)
	}
	if got := clampRatio(0.25); got != 0.25 {
		t.Fatalf("clampRatio(0.25) = %v, want 0.25", got)
	}
}
