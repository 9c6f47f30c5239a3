package agent

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bytedance/sonic"
)

// StyleLoader reads per-agent speaking-style transcripts from a directory.
// The snippets describe how an agent speaks, not what they talk about; they
// guide delivery and rhythm in the prompt.
type StyleLoader struct {
	dir string
}

// transcriptFile is the JSON transcript layout: a prose style guide plus
// short sample phrases.
type transcriptFile struct {
	StyleGuide    string   `json:"style_guide"`
	SamplePhrases []string `json:"sample_phrases"`
}

// NewStyleLoader reads transcripts from dir.
func NewStyleLoader(dir string) *StyleLoader {
	return &StyleLoader{dir: dir}
}

// LoadTranscript returns style text for the agent from <name>.json or
// <name>.txt, preferring JSON. Missing files yield an empty string; a JSON
// file that fails to parse is returned raw.
func (l *StyleLoader) LoadTranscript(name string) string {
	base := strings.ToLower(name)

	jsonPath := filepath.Join(l.dir, base+".json")
	if data, err := os.ReadFile(jsonPath); err == nil {
		var transcript transcriptFile
		if err := sonic.Unmarshal(data, &transcript); err != nil {
			return strings.TrimSpace(string(data))
		}
		var phrases []string
		for _, p := range transcript.SamplePhrases {
			phrases = append(phrases, fmt.Sprintf("- %s", p))
		}
		combined := transcript.StyleGuide
		if len(phrases) > 0 {
			combined += "\n" + strings.Join(phrases, "\n")
		}
		return strings.TrimSpace(combined)
	}

	txtPath := filepath.Join(l.dir, base+".txt")
	if data, err := os.ReadFile(txtPath); err == nil {
		return strings.TrimSpace(string(data))
	}
	return ""
}
