package merge

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/geniusreads/lattice/internal/core/model"
)

type Merger struct {
	Logger *zap.Logger
}

func NewMerger(logger *zap.Logger) *Merger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Merger{Logger: logger}
}

// Merge collapses a candidate into a single representative concept. Fails
// soft: any internal fault returns the primary concept unchanged.
func (m *Merger) Merge(candidate model.ConceptMergeCandidate) (merged model.Concept) {
	merged = candidate.Primary
	defer func() {
		if r := recover(); r != nil {
			m.Logger.Error("merge failed, keeping primary unchanged",
				zap.String("primary", candidate.Primary.Name),
				zap.Any("fault", r))
			merged = candidate.Primary
		}
	}()

	out := candidate.Primary
	description := out.Description
	tags := out.Tags
	related := out.RelatedConcepts
	chatCount := out.SourceChatCount
	confidenceSum := out.ConfidenceScore
	var absorbed []string

	for _, s := range candidate.Secondaries {
		// Naive textual dedup: only append a description not already
		// present as a substring of the accumulated text.
		if s.Description != "" && !strings.Contains(description, s.Description) {
			description = appendSentence(description, s.Description)
		}
		tags = unionSorted(tags, s.Tags)
		related = unionSorted(related, s.RelatedConcepts)
		chatCount += s.SourceChatCount
		confidenceSum += s.ConfidenceScore
		absorbed = append(absorbed, s.Key())
	}

	meanConfidence := confidenceSum / float64(len(candidate.Secondaries)+1)

	out.Description = description
	out.Tags = tags
	out.RelatedConcepts = related
	out.SourceChatCount = chatCount
	out.ConfidenceScore = math.Min(1.0, meanConfidence*1.1)
	out.MergedFrom = absorbed
	out.MergeRationale = fmt.Sprintf("[%s] %s", time.Now().UTC().Format(time.RFC3339), candidate.MergeRationale)
	out.UpdatedAt = time.Now().UTC()

	return out
}

func appendSentence(text, sentence string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return sentence
	}
	if !strings.HasSuffix(text, ".") && !strings.HasSuffix(text, "!") && !strings.HasSuffix(text, "?") {
		text += "."
	}
	return text + " " + sentence
}

// unionSorted merges two label sets into a sorted slice for deterministic
// output.
func unionSorted(a, b []string) []string {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}

	set := make(map[string]bool, len(a)+len(b))
	for _, v := range a {
		set[v] = true
	}
	for _, v := range b {
		set[v] = true
	}

	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
