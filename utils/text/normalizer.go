// Package text prepares LLM output for speech synthesis. Model replies often
// carry markdown and emoji that a TTS voice would read out loud; the
// normalizer strips them while keeping the spoken content intact.
package text

import (
	"regexp"
	"strings"
	"unicode"
)

type INormalizer interface {
	Normalize(text string) string
}

var (
	markdownLink   = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
	codeFence      = regexp.MustCompile("```[a-zA-Z0-9]*")
	inlineCode     = regexp.MustCompile("`([^`]*)`")
	boldItalic     = regexp.MustCompile(`(\*{1,3}|_{1,3})([^*_]+)(\*{1,3}|_{1,3})`)
	headingMarker  = regexp.MustCompile(`(?m)^#{1,6}\s*`)
	bulletMarker   = regexp.MustCompile(`(?m)^\s*[-*+]\s+`)
	whitespaceRuns = regexp.MustCompile(`\s+`)
)

// SpeechNormalizer cleans text for TTS input.
type SpeechNormalizer struct{}

// NewSpeechNormalizer creates a normalizer for TTS text cleanup.
func NewSpeechNormalizer() *SpeechNormalizer {
	return &SpeechNormalizer{}
}

// Normalize strips markdown structure, emoji, and other unspeakable symbols,
// then collapses whitespace runs into single spaces.
func (n *SpeechNormalizer) Normalize(input string) string {
	input = markdownLink.ReplaceAllString(input, "$1")
	input = codeFence.ReplaceAllString(input, " ")
	input = inlineCode.ReplaceAllString(input, "$1")
	input = boldItalic.ReplaceAllString(input, "$2")
	input = headingMarker.ReplaceAllString(input, "")
	input = bulletMarker.ReplaceAllString(input, "")

	var b strings.Builder
	b.Grow(len(input))
	for _, r := range input {
		if isSpeakable(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}

	return strings.TrimSpace(whitespaceRuns.ReplaceAllString(b.String(), " "))
}

// isSpeakable keeps letters, digits, spaces and common punctuation; emoji and
// symbol blocks are dropped.
func isSpeakable(r rune) bool {
	if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
		return true
	}
	switch r {
	case '.', ',', '!', '?', ';', ':', '\'', '"', '-', '(', ')', '%', '&', '/', '+':
		return true
	}
	return false
}
