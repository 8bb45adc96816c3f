package audit

import (
	"encoding/json"
	"os"
	"time"
)

// DefaultReportPath is the report file name in the working directory.
const DefaultReportPath = "benchmark-report.json"

// Recommendation lists the trade-offs of one backend.
type Recommendation struct {
	Pros []string `json:"pros"`
	Cons []string `json:"cons"`
}

// Recommendations holds the trade-offs per backend.
type Recommendations struct {
	Redux Recommendation `json:"redux"`
	Alt   Recommendation `json:"alt"`
}

// Report is the JSON document written per auditor invocation.
type Report struct {
	Timestamp       string          `json:"timestamp"`
	BundleAnalysis  *BundleAnalysis `json:"bundleAnalysis"`
	Lighthouse      *Scores         `json:"lighthouse,omitempty"`
	Recommendations Recommendations `json:"recommendations"`
}

// isoMillis matches the ISO-8601 form with millisecond precision.
const isoMillis = "2006-01-02T15:04:05.000Z07:00"

// NewReport returns a report stamped with t in UTC.
func NewReport(t time.Time, bundle *BundleAnalysis, scores *Scores) Report {
	return Report{
		Timestamp:       t.UTC().Format(isoMillis),
		BundleAnalysis:  bundle,
		Lighthouse:      scores,
		Recommendations: DefaultRecommendations(),
	}
}

// DefaultRecommendations returns the fixed trade-off summary.
func DefaultRecommendations() Recommendations {
	return Recommendations{
		Redux: Recommendation{
			Pros: []string{
				"More mature and widely adopted",
				"Robust developer tooling",
				"Well-established patterns",
				"Excellent for large applications",
			},
			Cons: []string{
				"Larger bundle size",
				"More verbose boilerplate",
				"Steeper learning curve",
			},
		},
		Alt: Recommendation{
			Pros: []string{
				"Extremely lightweight (2.1KB vs 13.5KB)",
				"Simple and intuitive API",
				"Optimized performance",
				"Smaller bundle size",
			},
			Cons: []string{
				"Less mature",
				"Limited developer tooling",
				"Smaller community",
			},
		},
	}
}

// WriteReport writes r as indented JSON to path, replacing any prior file.
func WriteReport(path string, r Report) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// ReadReport loads a report written by WriteReport.
func ReadReport(path string) (Report, error) {
	var r Report
	data, err := os.ReadFile(path)
	if err != nil {
		return r, err
	}
	err = json.Unmarshal(data, &r)
	return r, err
}
