package provider

import (
	"strings"
	"testing"
)

func TestEnrichmentPromptModes(t *testing.T) {
	cases := []struct {
		mode   Mode
		opts   ModeOptions
		needle string
	}{
		{ModeCleanup, ModeOptions{}, "clean"},
		{ModeStructuredNotes, ModeOptions{}, "notes"},
		{ModeTaskExtraction, ModeOptions{}, "- [ ]"},
		{ModeSummary, ModeOptions{}, "3 sentences"},
		{ModeSummary, ModeOptions{SummarySentences: 5}, "5 sentences"},
		{ModeCustom, ModeOptions{CustomPrompt: "translate to pirate speak"}, "pirate"},
	}
	for _, tc := range cases {
		t.Run(string(tc.mode), func(t *testing.T) {
			got, perr := enrichmentPrompt("some dictated text", tc.mode, tc.opts)
			if perr != nil {
				t.Fatalf("prompt: %v", perr)
			}
			if !strings.Contains(strings.ToLower(got), strings.ToLower(tc.needle)) {
				t.Errorf("prompt %q lacks %q", got, tc.needle)
			}
		})
	}
}

func TestEnrichmentPromptValidation(t *testing.T) {
	if _, perr := enrichmentPrompt("   ", ModeCleanup, ModeOptions{}); perr == nil || perr.Code != CodeValidationError {
		t.Errorf("empty text: got %v, want VALIDATION_ERROR", perr)
	}
	if _, perr := enrichmentPrompt("text", ModeCustom, ModeOptions{}); perr == nil || perr.Code != CodeValidationError {
		t.Errorf("custom without instruction: got %v, want VALIDATION_ERROR", perr)
	}
	if _, perr := enrichmentPrompt("text", Mode("bogus"), ModeOptions{}); perr == nil || perr.Code != CodeValidationError {
		t.Errorf("unknown mode: got %v, want VALIDATION_ERROR", perr)
	}
}

func TestModesValid(t *testing.T) {
	for _, m := range Modes() {
		if !m.Valid() {
			t.Errorf("%s reported invalid", m)
		}
	}
	if Mode("nope").Valid() {
		t.Error("unknown mode reported valid")
	}
}
