package core

import (
	"reflect"
	"testing"
)

func TestEscapeDelimiters_RoundTrip(t *testing.T) {
	cases := []string{
		"plain value",
		"semi;colon",
		"pipe|char",
		"key:value",
		"all;three|at:once",
		"",
	}
	for _, in := range cases {
		if got := RestoreDelimiters(EscapeDelimiters(in)); got != in {
			t.Errorf("round trip of %q = %q", in, got)
		}
	}
}

func TestEscapeDelimiters_Mapping(t *testing.T) {
	if got := EscapeDelimiters("a;b|c:d"); got != "a%3Bb%7Cc%3Ad" {
		t.Errorf("EscapeDelimiters = %q, want %q", got, "a%3Bb%7Cc%3Ad")
	}
}

func TestJoinEscaped_SplitEscaped(t *testing.T) {
	parts := []string{"plain", "has;semi", "has|pipe"}

	joined := JoinEscaped(parts, ArrayDelimiter)
	got := SplitEscaped(joined, ArrayDelimiter)

	if !reflect.DeepEqual(got, parts) {
		t.Errorf("SplitEscaped(JoinEscaped(%v)) = %v", parts, got)
	}
}

func TestJoinEscaped_Empty(t *testing.T) {
	if got := JoinEscaped(nil, ArrayDelimiter); got != "" {
		t.Errorf("JoinEscaped(nil) = %q, want empty", got)
	}
	if got := SplitEscaped("", ArrayDelimiter); got != nil {
		t.Errorf("SplitEscaped(empty) = %v, want nil", got)
	}
}

func TestSanitizeMessage(t *testing.T) {
	in := "fetch failed: timeout,\nretry later\r"
	want := "fetch failed: timeout  retry later"
	if got := SanitizeMessage(in); got != want {
		t.Errorf("SanitizeMessage = %q, want %q", got, want)
	}
}
