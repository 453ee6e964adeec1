package ratelimit

import (
	"testing"
	"time"
)

func TestState_Thresholds(t *testing.T) {
	tests := []struct {
		name           string
		remaining      int
		resetAt        time.Time
		expectBlock    bool
		expectThrottle bool
		expectHealthy  bool
	}{
		{name: "healthy", remaining: 100, expectHealthy: true},
		{name: "at healthy threshold", remaining: ThresholdHealthy, expectHealthy: true},
		{name: "between warning and healthy", remaining: 30},
		{name: "warning", remaining: 15, expectThrottle: true},
		{name: "at critical threshold", remaining: ThresholdCritical, expectThrottle: true},
		{name: "critical", remaining: 3, expectBlock: true},
		{name: "exhausted", remaining: 0, expectBlock: true},
		{
			name:      "exhausted but window already reset",
			remaining: 0,
			resetAt:   time.Now().Add(-time.Second),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetAt := tt.resetAt
			if resetAt.IsZero() {
				resetAt = time.Now().Add(time.Minute)
			}
			state := &State{Remaining: tt.remaining, ResetAt: resetAt, LastUpdate: time.Now()}
			state.UpdateHealth()

			if got := state.NeedsCriticalBlock(); got != tt.expectBlock {
				t.Errorf("NeedsCriticalBlock() = %v, want %v", got, tt.expectBlock)
			}
			if got := state.NeedsThrottling(); got != tt.expectThrottle {
				t.Errorf("NeedsThrottling() = %v, want %v", got, tt.expectThrottle)
			}
			if state.IsHealthy != tt.expectHealthy {
				t.Errorf("IsHealthy = %v, want %v", state.IsHealthy, tt.expectHealthy)
			}
		})
	}
}

func TestState_TimeUntilReset(t *testing.T) {
	future := &State{ResetAt: time.Now().Add(30 * time.Second)}
	if d := future.TimeUntilReset(); d <= 29*time.Second || d > 30*time.Second {
		t.Errorf("TimeUntilReset() = %v, want about 30s", d)
	}

	past := &State{ResetAt: time.Now().Add(-30 * time.Second)}
	if d := past.TimeUntilReset(); d != 0 {
		t.Errorf("TimeUntilReset() = %v, want 0", d)
	}
}
