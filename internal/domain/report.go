package domain

// ReportRow pairs one question with the answer the taker gave it.
type ReportRow struct {
	Index         int    `json:"index"`
	Question      string `json:"question"`
	Selected      string `json:"selected,omitempty"`
	Answered      bool   `json:"answered"`
	CorrectAnswer string `json:"correctAnswer"`
	Correct       bool   `json:"correct"`
}

// Report is the scored summary of a session. It is derived on demand and
// never stored.
type Report struct {
	Email       string      `json:"email"`
	Total       int         `json:"total"`
	Attempted   int         `json:"attempted"`
	Correct     int         `json:"correct"`
	SubmittedAt *int64      `json:"submittedAt"`
	Rows        []ReportRow `json:"rows"`
}

// Attempted reports whether the answer slot at index i is set.
func (s Session) Attempted(i int) bool {
	return i >= 0 && i < len(s.SelectedAnswers) && s.SelectedAnswers[i] != nil
}

// AttemptedFlags returns a per-question attempted marker, one per question.
func (s Session) AttemptedFlags() []bool {
	flags := make([]bool, len(s.SelectedAnswers))
	for i, a := range s.SelectedAnswers {
		flags[i] = a != nil
	}
	return flags
}

// AttemptedCount counts the non-nil answer slots.
func (s Session) AttemptedCount() int {
	count := 0
	for _, a := range s.SelectedAnswers {
		if a != nil {
			count++
		}
	}
	return count
}

// Score counts the answers that exactly match the correct option text.
func (s Session) Score() int {
	score := 0
	for i, q := range s.Questions {
		if i < len(s.SelectedAnswers) && s.SelectedAnswers[i] != nil && *s.SelectedAnswers[i] == q.CorrectAnswer {
			score++
		}
	}
	return score
}

// BuildReport assembles the scored per-question breakdown.
func (s Session) BuildReport() Report {
	rows := make([]ReportRow, len(s.Questions))
	for i, q := range s.Questions {
		row := ReportRow{
			Index:         i,
			Question:      q.Text,
			CorrectAnswer: q.CorrectAnswer,
		}
		if s.Attempted(i) {
			row.Answered = true
			row.Selected = *s.SelectedAnswers[i]
			row.Correct = row.Selected == q.CorrectAnswer
		}
		rows[i] = row
	}
	return Report{
		Email:       s.Email,
		Total:       len(s.Questions),
		Attempted:   s.AttemptedCount(),
		Correct:     s.Score(),
		SubmittedAt: s.SubmittedAt,
		Rows:        rows,
	}
}
