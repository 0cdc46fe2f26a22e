package main

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"
)

var initOnce sync.Once

func runCommand(t *testing.T, args ...string) string {
	t.Helper()
	initOnce.Do(initCmd)

	t.Setenv("STORAGE_BACKEND", "memory")
	t.Setenv("APP_TIMEZONE", "UTC")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"--env-file", t.TempDir() + "/missing.env"}, args...))
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("command %v returned error: %v\n%s", args, err, out.String())
	}
	return out.String()
}

func TestStreakCommand(t *testing.T) {
	out := runCommand(t, "streak", "--today", "2024-03-15", "2024-03-14", "2024-03-13", "2024-03-13", "2024-03-10", "2024-03-09")

	if !strings.Contains(out, "current: 2") {
		t.Fatalf("expected current streak 2, got:\n%s", out)
	}
	if !strings.Contains(out, "longest: 2") {
		t.Fatalf("expected longest streak 2, got:\n%s", out)
	}
}

func TestStreakCommandBrokenChain(t *testing.T) {
	out := runCommand(t, "streak", "--today", "2024-03-15", "2024-03-13", "2024-03-12", "2024-03-11")

	if !strings.Contains(out, "current: 0") || !strings.Contains(out, "longest: 3") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestRemindOnceWithoutAccounts(t *testing.T) {
	nowFunc = func() time.Time { return time.Date(2024, time.March, 15, 7, 30, 0, 0, time.UTC) }
	t.Cleanup(func() { nowFunc = time.Now })

	out := runCommand(t, "remind", "--once")
	if !strings.Contains(out, "Reminders sent: 0") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestSeedCommand(t *testing.T) {
	out := runCommand(t, "seed")
	if !strings.Contains(out, demoEmail) {
		t.Fatalf("unexpected output:\n%s", out)
	}
}
