package storage

import "testing"

func TestRewriteTokensWholeWordOnly(t *testing.T) {
	got := rewriteTokens("power_meter + power * 2", map[string]string{"power": "sensor.power"})
	want := "power_meter + sensor.power * 2"
	if got != want {
		t.Fatalf("rewriteTokens() = %q, want %q", got, want)
	}
}

func TestRewriteTokensLongestFirst(t *testing.T) {
	got := rewriteTokens("sensor.power_meter", map[string]string{
		"sensor.power":       "a",
		"sensor.power_meter": "b",
	})
	if got != "b" {
		t.Fatalf("rewriteTokens() = %q, want %q", got, "b")
	}
}

func TestRewriteTokensEmptyReplacements(t *testing.T) {
	got := rewriteTokens("raw_power * 2", nil)
	if got != "raw_power * 2" {
		t.Fatalf("rewriteTokens() = %q, want unchanged", got)
	}
}
