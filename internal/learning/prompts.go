package learning

import "strings"

// PromptManager assembles per-user prompt additions from cached learning
// signals. It only reads; the engine populates the cache as it processes
// corrections.
type PromptManager struct {
	cache Cache
}

// NewPromptManager creates a PromptManager over the shared learning cache.
func NewPromptManager(cache Cache) *PromptManager {
	return &PromptManager{cache: cache}
}

// Additions returns extraction-prompt guidance derived from the user's
// correction history, or "" when nothing has been learned yet.
func (m *PromptManager) Additions(userID string) string {
	var b strings.Builder

	if lines := m.cachedLines(patternKey(userID)); len(lines) > 0 {
		b.WriteString("Known correction patterns for this user:\n")
		for _, l := range lines {
			b.WriteString("- " + l + "\n")
		}
	}
	if lines := m.cachedLines(feedbackKey(userID)); len(lines) > 0 {
		b.WriteString("Recent reviewer feedback:\n")
		for _, l := range lines {
			b.WriteString("- " + l + "\n")
		}
	}

	return strings.TrimRight(b.String(), "\n")
}

func (m *PromptManager) cachedLines(key string) []string {
	v, ok := m.cache.Get(key)
	if !ok {
		return nil
	}
	lines, ok := v.([]string)
	if !ok {
		return nil
	}
	return lines
}
