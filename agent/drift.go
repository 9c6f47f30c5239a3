package agent

import (
	"fmt"
	"strings"
)

// DriftConfig tunes conversational-fixation detection. An agent that keeps
// asking questions, reusing phrases, or drilling one topic gets a corrective
// note injected into its next prompt.
type DriftConfig struct {
	// Window is how many recent memory lines to inspect.
	Window int
	// MinUtterances is the minimum number of agent utterances in the window
	// before any pattern is reported.
	MinUtterances int

	QuestionThreshold     int
	PhraseRepeatThreshold int
	StructureThreshold    int
	TopicThreshold        int
}

// DefaultDriftConfig returns the thresholds tuned for short casual chats.
func DefaultDriftConfig() DriftConfig {
	return DriftConfig{
		Window:                8,
		MinUtterances:         3,
		QuestionThreshold:     3,
		PhraseRepeatThreshold: 2,
		StructureThreshold:    2,
		TopicThreshold:        3,
	}
}

func (c *DriftConfig) applyDefaults() {
	d := DefaultDriftConfig()
	if c.Window <= 0 {
		c.Window = d.Window
	}
	if c.MinUtterances <= 0 {
		c.MinUtterances = d.MinUtterances
	}
	if c.QuestionThreshold <= 0 {
		c.QuestionThreshold = d.QuestionThreshold
	}
	if c.PhraseRepeatThreshold <= 0 {
		c.PhraseRepeatThreshold = d.PhraseRepeatThreshold
	}
	if c.StructureThreshold <= 0 {
		c.StructureThreshold = d.StructureThreshold
	}
	if c.TopicThreshold <= 0 {
		c.TopicThreshold = d.TopicThreshold
	}
}

var questionOpeners = []string{"what", "how", "why", "can you", "tell me"}

// DetectFixation inspects the agent's own utterances inside the retrieved
// memory block and names the dominant repetitive pattern, or returns an empty
// string when the conversation looks healthy.
func DetectFixation(relevantMemories, agentName string, cfg DriftConfig) string {
	if relevantMemories == "" {
		return ""
	}
	cfg.applyDefaults()

	lines := strings.Split(relevantMemories, "\n")
	if len(lines) > cfg.Window {
		lines = lines[len(lines)-cfg.Window:]
	}

	marker := agentName + ":"
	var utterances []string
	for _, line := range lines {
		if idx := strings.Index(line, marker); idx >= 0 {
			response := strings.ToLower(strings.TrimSpace(line[idx+len(marker):]))
			utterances = append(utterances, response)
		}
	}
	if len(utterances) < cfg.MinUtterances {
		return ""
	}

	questions := 0
	similarStructure := 0
	topicDrilling := 0
	phraseCounts := map[string]int{}
	var phraseOrder []string

	for i, utterance := range utterances {
		if strings.Contains(utterance, "?") {
			questions++
		}

		words := strings.Fields(utterance)
		for j := 0; j+3 <= len(words); j++ {
			phrase := strings.Join(words[j:j+3], " ")
			if phraseCounts[phrase] == 0 {
				phraseOrder = append(phraseOrder, phrase)
			}
			phraseCounts[phrase]++
		}

		if i == 0 {
			continue
		}
		prev := utterances[i-1]
		if startsWithAny(utterance, questionOpeners) && startsWithAny(prev, questionOpeners) {
			similarStructure++
		}
		if sharesLongWord(utterance, prev) {
			topicDrilling++
		}
	}

	if questions >= cfg.QuestionThreshold {
		return "asking too many questions"
	}
	for _, phrase := range phraseOrder {
		if phraseCounts[phrase] >= cfg.PhraseRepeatThreshold {
			return fmt.Sprintf("repeating phrases like '%s'", phrase)
		}
	}
	if similarStructure >= cfg.StructureThreshold {
		return "using repetitive sentence structures"
	}
	if topicDrilling >= cfg.TopicThreshold {
		return "drilling down on the same topics"
	}
	return ""
}

func startsWithAny(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

// sharesLongWord reports whether the two utterances have a word longer than
// four characters in common.
func sharesLongWord(a, b string) bool {
	bWords := map[string]struct{}{}
	for _, w := range strings.Fields(b) {
		bWords[w] = struct{}{}
	}
	for _, w := range strings.Fields(a) {
		if len(w) <= 4 {
			continue
		}
		if _, ok := bWords[w]; ok {
			return true
		}
	}
	return false
}
