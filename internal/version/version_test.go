package version

import (
	"testing"

	"github.com/fatih/color"
)

func TestPlain(t *testing.T) {
	if got := Plain(); got != "0.3.0-dev" {
		t.Fatalf("Plain() = %q", got)
	}
}

func TestOverride(t *testing.T) {
	orig := [4]string{Major, Minor, Patch, Suffix}
	t.Cleanup(func() { Major, Minor, Patch, Suffix = orig[0], orig[1], orig[2], orig[3] })

	Major, Minor, Patch, Suffix = "1", "2", "3", ""
	if got := Plain(); got != "1.2.3" {
		t.Fatalf("Plain() = %q", got)
	}

	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })
	if got := Colored(); got != "1.2.3" {
		t.Fatalf("Colored() without color = %q", got)
	}
}
