package session

import "math"

// Summary aggregates a session's entries for the submit confirmation.
// Exactly one of the kind-specific sections is set.
type Summary struct {
	Kind       Kind               `json:"kind"`
	Total      int                `json:"total"`
	Attendance *AttendanceSummary `json:"attendance,omitempty"`
	Score      *ScoreSummary      `json:"score,omitempty"`
	Review     *ReviewSummary     `json:"review,omitempty"`
}

// AttendanceSummary counts marks.
type AttendanceSummary struct {
	Present int `json:"present"`
	Absent  int `json:"absent"`
	Leave   int `json:"leave"`
}

// ScoreSummary describes grading progress.
// INVARIANT: Entered + Pending == Summary.Total
type ScoreSummary struct {
	MaxScore       int `json:"max_score"`
	Entered        int `json:"entered"`
	Pending        int `json:"pending"`
	AveragePercent int `json:"average_percent"`
}

// ReviewSummary counts review statuses. WithFeedback is tracked
// independently of the status counts.
type ReviewSummary struct {
	Checked      int `json:"checked"`
	Pending      int `json:"pending"`
	WithFeedback int `json:"with_feedback"`
}

// Summarize derives the aggregate for a list of entries.
// PRE: entries all have kind k; maxScore > 0 for score sessions
// POST: Returns counts over entries; the score average ignores ungraded entries
func Summarize(k Kind, maxScore int, entries []Entry) Summary {
	sum := Summary{Kind: k, Total: len(entries)}
	switch k {
	case KindAttendance:
		a := &AttendanceSummary{}
		for _, e := range entries {
			switch e.Value.mark {
			case MarkPresent:
				a.Present++
			case MarkAbsent:
				a.Absent++
			case MarkLeave:
				a.Leave++
			}
		}
		sum.Attendance = a
	case KindScore:
		s := &ScoreSummary{MaxScore: maxScore}
		var pct float64
		for _, e := range entries {
			v, graded := e.Value.Score()
			if !graded {
				continue
			}
			s.Entered++
			if maxScore > 0 {
				pct += v * 100 / float64(maxScore)
			}
		}
		s.Pending = len(entries) - s.Entered
		if s.Entered > 0 {
			s.AveragePercent = int(math.Round(pct / float64(s.Entered)))
		}
		sum.Score = s
	case KindReview:
		r := &ReviewSummary{}
		for _, e := range entries {
			switch e.Value.review {
			case ReviewChecked:
				r.Checked++
			case ReviewPending:
				r.Pending++
			}
			if e.Feedback != "" {
				r.WithFeedback++
			}
		}
		sum.Review = r
	}
	return sum
}
