package suite

import (
	"time"

	"github.com/xkilldash9x/formcheck/internal/cases"
)

// CaseResult is the outcome of one case.
type CaseResult struct {
	Name      string
	Row       cases.Row
	SessionID string
	Duration  time.Duration
	Err       error
}

func (c CaseResult) Passed() bool { return c.Err == nil }

// Summary aggregates a run.
type Summary struct {
	Results  []CaseResult
	Passed   int
	Failed   int
	Duration time.Duration
}

func newSummary(results []CaseResult, d time.Duration) Summary {
	s := Summary{Results: results, Duration: d}
	for _, r := range results {
		if r.Passed() {
			s.Passed++
		} else {
			s.Failed++
		}
	}
	return s
}

// OK reports whether every case passed.
func (s Summary) OK() bool { return s.Failed == 0 }

// Failures returns the failed cases in run order.
func (s Summary) Failures() []CaseResult {
	var out []CaseResult
	for _, r := range s.Results {
		if !r.Passed() {
			out = append(out, r)
		}
	}
	return out
}
