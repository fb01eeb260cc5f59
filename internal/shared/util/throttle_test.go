package util

import (
	"context"
	"testing"
	"time"
)

func TestReanalysisThrottle(t *testing.T) {
	// 600 runs/minute = 10/second, burst of 2
	th := NewReanalysisThrottle(600, 2)

	if !th.AllowRun() {
		t.Error("expected first run to be allowed")
	}
	if !th.AllowRun() {
		t.Error("expected second run to be allowed (burst)")
	}
	if th.AllowRun() {
		t.Error("expected third run to be rejected (burst exhausted)")
	}

	time.Sleep(150 * time.Millisecond)
	if !th.AllowRun() {
		t.Error("expected a slot to be refilled after wait")
	}
}

func TestReanalysisThrottle_WaitRun(t *testing.T) {
	th := NewReanalysisThrottle(6000, 1)
	th.AllowRun() // consume burst

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	if err := th.WaitRun(ctx); err != nil {
		t.Fatalf("WaitRun failed: %v", err)
	}
	if time.Since(start) < 5*time.Millisecond {
		t.Error("WaitRun returned too early")
	}
}
