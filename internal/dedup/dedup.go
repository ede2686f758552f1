// Package dedup flags likely repeat reports of the same problem. It never
// blocks a submission: any store failure degrades to "no duplicate found".
package dedup

import (
	"context"
	"strings"
	"time"

	"github.com/campusfix/campusfix/internal/classify"
	"github.com/campusfix/campusfix/internal/models"
	"github.com/campusfix/campusfix/internal/store"
)

const (
	// DefaultThreshold is the minimum Jaccard similarity for a duplicate
	// flag. Tuned so paraphrased hazard reports match after
	// canonicalization while reports sharing only stop-words do not.
	DefaultThreshold = 0.45

	// Comparison window and candidate cap.
	window        = 12 * time.Hour
	maxCandidates = 25

	// statusMerged marks rows grouped by earlier offline tooling; the
	// lifecycle machine never produces it, but merged rows must not be
	// offered as duplicate targets again.
	statusMerged = models.IssueStatus("merged")
)

// Candidate is a not-yet-persisted submission being checked for duplicates.
type Candidate struct {
	Category    models.IssueCategory
	Location    string
	Title       string
	Description string
}

// electricitySynonyms canonicalizes lexically different reports of the same
// electrical hazard to one token before comparison. Multi-word phrases
// first so "burning smell" doesn't partially rewrite.
var electricitySynonyms = []struct{ from, to string }{
	{"short circuit", "spark"},
	{"burning smell", "spark"},
	{"sparking", "spark"},
	{"sparks", "spark"},
	{"shock", "spark"},
}

// FindDuplicate scans recent issues with the same category and location and
// returns the id and score of the best match at or above threshold, or
// ("", 0) if none. Store errors are swallowed; submission always proceeds.
// Merged rows are excluded before the candidate cap is applied, so they
// never consume cap slots.
func FindDuplicate(ctx context.Context, s store.Store, c Candidate, now time.Time, threshold float64) (string, float64) {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	recent, err := s.ListIssues(ctx, store.IssueFilter{
		Category:     c.Category,
		Location:     c.Location,
		CreatedAfter: now.Add(-window),
	})
	if err != nil {
		return "", 0
	}

	candidateText := c.Title + " " + c.Description

	bestID := ""
	bestScore := 0.0
	checked := 0
	for _, issue := range recent {
		if issue.Status == statusMerged {
			continue
		}
		if checked == maxCandidates {
			break
		}
		checked++
		score := Similarity(candidateText, issue.Title+" "+issue.Description, c.Category)
		if score > bestScore {
			bestID = issue.ID
			bestScore = score
		}
	}

	if bestScore >= threshold {
		return bestID, bestScore
	}
	return "", 0
}

// Similarity computes the Jaccard index over the two texts' word sets:
// |intersection| / max(|A|, |B|, 1). Texts are normalized first, and
// electricity reports are canonicalized so hazard synonyms compare equal.
func Similarity(a, b string, category models.IssueCategory) float64 {
	setA := wordSet(a, category)
	setB := wordSet(b, category)

	shared := 0
	for w := range setA {
		if setB[w] {
			shared++
		}
	}

	denom := len(setA)
	if len(setB) > denom {
		denom = len(setB)
	}
	if denom < 1 {
		denom = 1
	}
	return float64(shared) / float64(denom)
}

func wordSet(text string, category models.IssueCategory) map[string]bool {
	normalized := classify.Normalize(text)
	if category == models.CategoryElectricity {
		for _, syn := range electricitySynonyms {
			normalized = strings.ReplaceAll(normalized, syn.from, syn.to)
		}
	}

	set := make(map[string]bool)
	for _, w := range strings.Fields(normalized) {
		set[w] = true
	}
	return set
}

// GroupFingerprint derives the offline clustering key for a submission:
// category, normalized location, and the first six normalized words of
// length >= 4 from title+description. It is stored for later analytics and
// is independent of the similarity detector.
func GroupFingerprint(category models.IssueCategory, location, title, description string) string {
	var words []string
	for _, w := range classify.Words(title + " " + description) {
		if len(w) >= 4 {
			words = append(words, w)
			if len(words) == 6 {
				break
			}
		}
	}
	return string(category) + "|" + classify.Normalize(location) + "|" + strings.Join(words, "-")
}
