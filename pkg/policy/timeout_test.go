package policy

import (
	"testing"
	"time"
)

func TestTimeoutFormula(t *testing.T) {
	p, err := NewTimeoutPolicy(60*time.Second, 120*time.Second)
	if err != nil {
		t.Fatalf("new policy: %v", err)
	}

	if got := p.ForParagraphs(0); got != 60*time.Second {
		t.Fatalf("0 paragraphs: got %s, want 60s", got)
	}
	if got := p.ForParagraphs(60); got != 90*time.Second {
		t.Fatalf("60 paragraphs: got %s, want 90s", got)
	}
	if got := p.ForParagraphs(200); got != 120*time.Second {
		t.Fatalf("200 paragraphs: got %s, want clamped 120s", got)
	}
}

func TestTimeoutMonotonic(t *testing.T) {
	p, err := NewTimeoutPolicy(30*time.Second, 100*time.Second)
	if err != nil {
		t.Fatalf("new policy: %v", err)
	}

	prev := time.Duration(0)
	for n := 0; n <= 500; n += 7 {
		got := p.ForParagraphs(n)
		if got < prev {
			t.Fatalf("timeout decreased at n=%d: %s < %s", n, got, prev)
		}
		if got > p.Max {
			t.Fatalf("timeout exceeds max at n=%d: %s", n, got)
		}
		prev = got
	}
}

func TestTimeoutNegativeCountClamped(t *testing.T) {
	p, err := NewTimeoutPolicy(10*time.Second, 20*time.Second)
	if err != nil {
		t.Fatalf("new policy: %v", err)
	}
	if got := p.ForParagraphs(-5); got != 10*time.Second {
		t.Fatalf("negative count: got %s, want base", got)
	}
}

func TestTimeoutValidation(t *testing.T) {
	cases := []struct {
		name string
		p    TimeoutPolicy
	}{
		{"zero base", TimeoutPolicy{Base: 0, PerParagraph: time.Second, Max: time.Minute}},
		{"negative base", TimeoutPolicy{Base: -time.Second, PerParagraph: time.Second, Max: time.Minute}},
		{"zero max", TimeoutPolicy{Base: time.Second, PerParagraph: time.Second, Max: 0}},
		{"max below base", TimeoutPolicy{Base: time.Minute, PerParagraph: time.Second, Max: time.Second}},
		{"negative increment", TimeoutPolicy{Base: time.Second, PerParagraph: -time.Second, Max: time.Minute}},
	}
	for _, tc := range cases {
		if err := tc.p.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", tc.name)
		}
	}
}
