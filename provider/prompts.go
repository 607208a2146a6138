package provider

import (
	"fmt"
	"strings"
)

// Mode selects what a text-enrichment provider does with a transcript.
type Mode string

const (
	ModeCleanup         Mode = "clean-up"
	ModeStructuredNotes Mode = "structured-notes"
	ModeTaskExtraction  Mode = "task-extraction"
	ModeSummary         Mode = "summary"
	ModeCustom          Mode = "custom"
)

// ModeOptions carries the mode-specific parameters.
type ModeOptions struct {
	SummarySentences int    // summary; 0 means the default
	CustomPrompt     string // custom; required
}

const defaultSummarySentences = 3

func Modes() []Mode {
	return []Mode{ModeCleanup, ModeStructuredNotes, ModeTaskExtraction, ModeSummary, ModeCustom}
}

func (m Mode) Valid() bool {
	switch m {
	case ModeCleanup, ModeStructuredNotes, ModeTaskExtraction, ModeSummary, ModeCustom:
		return true
	}
	return false
}

// enrichmentPrompt validates the request and builds the instruction for the
// model. All enrichment providers share this, so a given mode behaves the
// same no matter which backend serves it. The returned Error has no provider
// name; the caller fills that in.
func enrichmentPrompt(text string, mode Mode, opts ModeOptions) (string, *Error) {
	if strings.TrimSpace(text) == "" {
		return "", New("", CodeValidationError, "nothing to process: the transcript is empty")
	}
	switch mode {
	case ModeCleanup:
		return "You clean up dictated text. Fix punctuation, capitalization and obvious " +
			"transcription mistakes, and remove filler words. Keep the meaning and wording " +
			"otherwise unchanged. Return only the cleaned text.", nil
	case ModeStructuredNotes:
		return "Turn the dictated text into structured notes with short headings and bullet " +
			"points. Keep every piece of information. Return only the notes.", nil
	case ModeTaskExtraction:
		return "Extract every task and action item from the dictated text as a markdown " +
			"checklist, one item per line starting with \"- [ ]\". If there are no tasks, " +
			"answer \"No tasks found.\"", nil
	case ModeSummary:
		n := opts.SummarySentences
		if n <= 0 {
			n = defaultSummarySentences
		}
		return fmt.Sprintf("Summarize the dictated text in at most %d sentences. "+
			"Return only the summary.", n), nil
	case ModeCustom:
		if strings.TrimSpace(opts.CustomPrompt) == "" {
			return "", New("", CodeValidationError, "custom mode needs an instruction")
		}
		return opts.CustomPrompt, nil
	default:
		return "", New("", CodeValidationError, fmt.Sprintf("unknown processing mode %q", mode))
	}
}
