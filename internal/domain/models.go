package domain

import (
	"regexp"
	"strings"
)

// DefaultTimeLimit is the countdown granted to a fresh quiz, in seconds.
const DefaultTimeLimit = 30 * 60

// DefaultQuestionCount is how many questions a session requests from the provider.
const DefaultQuestionCount = 15

// Status enumerates the session lifecycle states.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusLoading   Status = "loading"
	StatusReady     Status = "ready"
	StatusError     Status = "error"
	StatusSubmitted Status = "submitted"
)

// Question is an MCQ question, immutable once built. Options contains
// CorrectAnswer somewhere inside, in an order fixed at creation time.
type Question struct {
	ID            string   `json:"id"`
	Text          string   `json:"text"`
	CorrectAnswer string   `json:"correctAnswer"`
	Options       []string `json:"options"`
}

// Session is the complete mutable state of one quiz attempt. SelectedAnswers
// and Visited always have the same length as Questions; unanswered slots are
// nil so persisted snapshots keep the null shape.
type Session struct {
	Email           string     `json:"email"`
	Questions       []Question `json:"questions"`
	CurrentIndex    int        `json:"currentIndex"`
	SelectedAnswers []*string  `json:"selectedAnswers"`
	Visited         []bool     `json:"visited"`
	RemainingTime   int        `json:"remainingTime"`
	Status          Status     `json:"status"`
	Error           string     `json:"error,omitempty"`
	SubmittedAt     *int64     `json:"submittedAt"` // unix milliseconds
}

// NewSession returns the default session, optionally carrying a previously
// saved email.
func NewSession(email string) Session {
	return Session{
		Email:         email,
		RemainingTime: DefaultTimeLimit,
		Status:        StatusIdle,
	}
}

// Clone deep-copies the session so callers can hand out snapshots without
// exposing internal slices.
func (s Session) Clone() Session {
	out := s
	if s.Questions != nil {
		out.Questions = make([]Question, len(s.Questions))
		for i, q := range s.Questions {
			out.Questions[i] = q
			out.Questions[i].Options = append([]string(nil), q.Options...)
		}
	}
	if s.SelectedAnswers != nil {
		out.SelectedAnswers = make([]*string, len(s.SelectedAnswers))
		for i, a := range s.SelectedAnswers {
			if a != nil {
				v := *a
				out.SelectedAnswers[i] = &v
			}
		}
	}
	if s.Visited != nil {
		out.Visited = append([]bool(nil), s.Visited...)
	}
	if s.SubmittedAt != nil {
		v := *s.SubmittedAt
		out.SubmittedAt = &v
	}
	return out
}

// Empty reports whether the session carries nothing worth persisting.
func (s Session) Empty() bool {
	return s.Email == "" && len(s.Questions) == 0
}

// Restore sanitizes a deserialized snapshot. Snapshots that violate the
// session invariants are discarded in favor of defaults (keeping the email),
// and a snapshot persisted mid-load degrades to idle so the load path is
// re-entered instead of wedging in a state nobody can leave.
func Restore(saved Session, email string) Session {
	if saved.Email == "" {
		saved.Email = email
	}
	n := len(saved.Questions)
	if len(saved.SelectedAnswers) != n || len(saved.Visited) != n {
		return NewSession(saved.Email)
	}
	if n > 0 && (saved.CurrentIndex < 0 || saved.CurrentIndex >= n) {
		return NewSession(saved.Email)
	}
	if saved.RemainingTime < 0 {
		saved.RemainingTime = 0
	}
	switch saved.Status {
	case StatusIdle, StatusReady, StatusError, StatusSubmitted:
	case StatusLoading:
		saved.Status = StatusIdle
		saved.Error = ""
	default:
		return NewSession(saved.Email)
	}
	if (saved.SubmittedAt != nil) != (saved.Status == StatusSubmitted) {
		return NewSession(saved.Email)
	}
	if saved.Status == StatusReady && n == 0 {
		return NewSession(saved.Email)
	}
	return saved
}

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidEmail reports whether addr looks like an email address after trimming.
func ValidEmail(addr string) bool {
	return emailPattern.MatchString(strings.TrimSpace(addr))
}
