package reply

import (
	"math/rand"
	"strings"
	"testing"
)

func TestGenerateIsDeterministicForSeed(t *testing.T) {
	gen := New()

	a := gen.Generate("I have a headache", "", rand.New(rand.NewSource(7)))
	b := gen.Generate("I have a headache", "", rand.New(rand.NewSource(7)))
	if a != b {
		t.Fatal("same input and seed must produce the same reply")
	}
}

func TestGenerateQuotesUserInput(t *testing.T) {
	gen := New()
	out := gen.Generate("help me sleep", "", rand.New(rand.NewSource(1)))

	if !strings.Contains(out, `You said: "help me sleep".`) {
		t.Fatalf("reply does not quote the input:\n%s", out)
	}
}

func TestGenerateOmitsQuoteForEmptyInput(t *testing.T) {
	gen := New()
	out := gen.Generate("", "", rand.New(rand.NewSource(1)))

	if strings.Contains(out, "You said:") {
		t.Fatalf("empty input must not be quoted:\n%s", out)
	}
}

func TestGenerateIncludesContextNote(t *testing.T) {
	gen := New()
	note := "I also see you attached 1 file: report.pdf."
	out := gen.Generate("hello", note, rand.New(rand.NewSource(1)))

	if !strings.Contains(out, note) {
		t.Fatalf("reply does not carry the context note:\n%s", out)
	}
}

func TestGenerateAddsTopicGuidance(t *testing.T) {
	gen := New()

	out := gen.Generate("I caught a cold and have a fever", "", rand.New(rand.NewSource(1)))
	if !strings.Contains(out, "common cold") {
		t.Fatalf("expected cold guidance in reply:\n%s", out)
	}

	out = gen.Generate("what's the weather like", "", rand.New(rand.NewSource(1)))
	for _, block := range guidance {
		if strings.Contains(out, block) {
			t.Fatalf("off-topic input must not include a guidance block:\n%s", out)
		}
	}
}

func TestGenerateAlwaysCarriesDisclaimer(t *testing.T) {
	gen := New()

	for _, input := range []string{"", "hello", "my stomach hurts"} {
		out := gen.Generate(input, "", rand.New(rand.NewSource(1)))
		if !strings.Contains(out, disclaimer) {
			t.Fatalf("reply for %q is missing the disclaimer", input)
		}
		if !strings.Contains(out, "• Tip:") {
			t.Fatalf("reply for %q is missing the tips", input)
		}
	}
}

func TestGenerateEndsWithAKnownHint(t *testing.T) {
	gen := New()
	out := gen.Generate("hello", "", rand.New(rand.NewSource(3)))

	found := false
	for _, hint := range closingHints {
		if strings.HasSuffix(out, hint) {
			found = true
			break
		}
	}
	if !found {
		t.Fatalf("reply does not end with a closing hint:\n%s", out)
	}
}
