// Package stats aggregates issue data for the weekly operations report.
// The aggregation runs locally; only the finished numbers are ever handed
// to the narration service.
package stats

import (
	"sort"
	"time"

	"github.com/campusfix/campusfix/internal/models"
	"github.com/campusfix/campusfix/internal/sla"
)

// resolvedWindow is the trailing window for the resolved count.
const resolvedWindow = 7 * 24 * time.Hour

// Hotspot is a location ranked by issue volume.
type Hotspot struct {
	Location string `json:"location"`
	Count    int    `json:"count"`
}

// Weekly holds the aggregated numbers for one report. Soft-deleted issues
// are excluded throughout.
type Weekly struct {
	Total       int            `json:"total"`
	ByCategory  map[string]int `json:"by_category"`
	ByUrgency   map[string]int `json:"by_urgency"`
	ByLocation  map[string]int `json:"by_location"`
	ByStatus    map[string]int `json:"by_status"`
	SLABreaches int            `json:"sla_breaches"`
	Hotspots    []Hotspot      `json:"hotspots"`
	Resolved7d  int            `json:"resolved_last_7_days"`
	GeneratedAt time.Time      `json:"generated_at"`
}

// Compute aggregates the given issues as of now.
func Compute(issues []*models.Issue, now time.Time) *Weekly {
	w := &Weekly{
		ByCategory:  make(map[string]int),
		ByUrgency:   make(map[string]int),
		ByLocation:  make(map[string]int),
		ByStatus:    make(map[string]int),
		GeneratedAt: now.UTC(),
	}

	cutoff := now.Add(-resolvedWindow)
	for _, issue := range issues {
		if issue.IsDeleted {
			continue
		}

		w.Total++
		w.ByCategory[string(issue.Category)]++
		w.ByUrgency[string(issue.Urgency)]++
		w.ByStatus[string(issue.Status)]++
		if issue.Location != "" {
			w.ByLocation[issue.Location]++
		}

		if sla.Evaluate(issue, now) != sla.FlagOnTime {
			w.SLABreaches++
		}

		if issue.Status == models.IssueStatusResolved {
			if at, ok := issue.HistoryAt(models.IssueStatusResolved); ok && at.After(cutoff) {
				w.Resolved7d++
			}
		}
	}

	w.Hotspots = topLocations(w.ByLocation, 3)
	return w
}

// topLocations returns the n busiest locations, ties broken by name for
// deterministic output.
func topLocations(byLocation map[string]int, n int) []Hotspot {
	spots := make([]Hotspot, 0, len(byLocation))
	for loc, count := range byLocation {
		spots = append(spots, Hotspot{Location: loc, Count: count})
	}
	sort.Slice(spots, func(i, j int) bool {
		if spots[i].Count != spots[j].Count {
			return spots[i].Count > spots[j].Count
		}
		return spots[i].Location < spots[j].Location
	})
	if len(spots) > n {
		spots = spots[:n]
	}
	return spots
}
