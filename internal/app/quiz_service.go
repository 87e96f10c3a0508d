package app

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"trivia-quiz/internal/domain"
)

// Provider fetches trivia questions. Implementations issue exactly one
// request per call and never retry on their own; retry is a user decision.
type Provider interface {
	FetchQuestions(ctx context.Context, amount int) ([]domain.Question, error)
}

// SessionStore mirrors session snapshots to durable storage. All methods are
// best-effort: storage failures are swallowed and the in-memory session stays
// authoritative for the process lifetime.
type SessionStore interface {
	Load() domain.Session
	Save(session domain.Session)
	Clear()
}

// Settings tunes a quiz service. Zero values fall back to the defaults.
type Settings struct {
	QuestionAmount int
	TimeLimit      int           // seconds
	TickInterval   time.Duration // countdown cadence, one second unless overridden
}

// QuizService owns one quiz session and is its only mutation path. Every
// state change goes through a named, guarded transition; transitions are
// applied atomically under the mutex and mirrored to the store.
type QuizService struct {
	provider Provider
	store    SessionStore
	amount   int
	limit    int
	interval time.Duration
	now      func() time.Time

	sf singleflight.Group

	mu            sync.Mutex
	state         domain.Session
	countdownStop chan struct{}
	subscribers   map[chan domain.Session]struct{}
}

// NewQuizService restores any saved session from the store and returns a
// service ready to accept transitions.
func NewQuizService(provider Provider, store SessionStore, settings Settings) *QuizService {
	return NewQuizServiceWithClock(provider, store, settings, time.Now)
}

// NewQuizServiceWithClock is test-only for deterministic timestamps.
func NewQuizServiceWithClock(provider Provider, store SessionStore, settings Settings, now func() time.Time) *QuizService {
	if settings.QuestionAmount <= 0 {
		settings.QuestionAmount = domain.DefaultQuestionCount
	}
	if settings.TimeLimit <= 0 {
		settings.TimeLimit = domain.DefaultTimeLimit
	}
	if settings.TickInterval <= 0 {
		settings.TickInterval = time.Second
	}
	s := &QuizService{
		provider:    provider,
		store:       store,
		amount:      settings.QuestionAmount,
		limit:       settings.TimeLimit,
		interval:    settings.TickInterval,
		now:         now,
		subscribers: make(map[chan domain.Session]struct{}),
	}
	s.state = store.Load()
	if s.state.Status == domain.StatusReady {
		s.mu.Lock()
		s.startCountdownLocked()
		s.mu.Unlock()
	}
	return s
}

// Snapshot returns a deep copy of the current session.
func (s *QuizService) Snapshot() domain.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Report builds the scored summary for the current session.
func (s *QuizService) Report() domain.Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.BuildReport()
}

// SetEmail stores the trimmed address. Changing the email while a saved quiz
// exists discards that quiz first, so one taker's progress never leaks into
// another's attempt.
func (s *QuizService) SetEmail(addr string) {
	trimmed := strings.TrimSpace(addr)
	s.mu.Lock()
	defer s.mu.Unlock()
	if trimmed != s.state.Email && len(s.state.Questions) > 0 {
		s.resetLocked()
	}
	s.state.Email = trimmed
	s.persistLocked()
	s.broadcastLocked()
}

// BeginLoad moves the session into loading and runs the provider fetch.
// Valid only when no questions are loaded, an email is set, and no load is
// already in flight; concurrent callers that race past the guard collapse
// onto a single fetch.
func (s *QuizService) BeginLoad(ctx context.Context) error {
	s.mu.Lock()
	switch {
	case s.state.Status == domain.StatusLoading:
		s.mu.Unlock()
		return domain.ErrLoadInFlight
	case len(s.state.Questions) > 0:
		s.mu.Unlock()
		return domain.ErrQuestionsLoaded
	case s.state.Email == "":
		s.mu.Unlock()
		return domain.ErrEmailRequired
	}
	s.state.Status = domain.StatusLoading
	s.state.Error = ""
	s.persistLocked()
	s.broadcastLocked()
	s.mu.Unlock()

	_, err, _ := s.sf.Do("load", func() (interface{}, error) {
		questions, err := s.provider.FetchQuestions(ctx, s.amount)
		if err != nil {
			s.loadFailed(err)
			return nil, err
		}
		s.questionsLoaded(questions)
		return nil, nil
	})
	return err
}

// questionsLoaded installs the fetched questions and enters ready. A reset
// that happened while the fetch was in flight wins: the result is dropped.
func (s *QuizService) questionsLoaded(questions []domain.Question) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Status != domain.StatusLoading {
		return
	}
	s.state.Questions = questions
	s.state.SelectedAnswers = make([]*string, len(questions))
	s.state.Visited = make([]bool, len(questions))
	s.state.CurrentIndex = 0
	s.state.RemainingTime = s.limit
	s.state.Status = domain.StatusReady
	s.state.Error = ""
	s.state.SubmittedAt = nil
	if len(s.state.Visited) > 0 {
		// Entering ready lands the taker on question 0.
		s.state.Visited[0] = true
	}
	s.startCountdownLocked()
	s.persistLocked()
	s.broadcastLocked()
}

func (s *QuizService) loadFailed(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Status != domain.StatusLoading {
		return
	}
	s.state.Error = err.Error()
	s.state.Status = domain.StatusError
	s.persistLocked()
	s.broadcastLocked()
}

// Retry clears a load failure and returns to idle so the load path can be
// re-entered.
func (s *QuizService) Retry() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Status != domain.StatusError {
		return domain.ErrInvalidTransition
	}
	s.state.Error = ""
	s.state.Status = domain.StatusIdle
	s.persistLocked()
	s.broadcastLocked()
	return nil
}

// Navigate makes index the current question and marks it visited.
func (s *QuizService) Navigate(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Status != domain.StatusReady {
		return domain.ErrInvalidTransition
	}
	if index < 0 || index >= len(s.state.Questions) {
		return domain.ErrIndexOutOfRange
	}
	s.state.CurrentIndex = index
	s.state.Visited[index] = true
	s.persistLocked()
	s.broadcastLocked()
	return nil
}

// SelectAnswer records value for the question at index. Re-selecting
// overwrites the previous answer.
func (s *QuizService) SelectAnswer(index int, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Status != domain.StatusReady {
		return domain.ErrInvalidTransition
	}
	if index < 0 || index >= len(s.state.Questions) {
		return domain.ErrIndexOutOfRange
	}
	if !containsOption(s.state.Questions[index].Options, value) {
		return domain.ErrOptionNotFound
	}
	v := value
	s.state.SelectedAnswers[index] = &v
	s.persistLocked()
	s.broadcastLocked()
	return nil
}

// Tick decrements the countdown by one second, floored at zero. Hitting zero
// submits as part of the same transition, so expiry needs no user action.
func (s *QuizService) Tick() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Status != domain.StatusReady {
		return domain.ErrInvalidTransition
	}
	if s.state.RemainingTime > 0 {
		s.state.RemainingTime--
	}
	if s.state.RemainingTime == 0 {
		s.submitLocked()
		return nil
	}
	s.persistLocked()
	s.broadcastLocked()
	return nil
}

// Submit finalizes the session. The ready-state guard makes it one-shot: a
// second call, including a timer firing against a manual submit, is rejected.
func (s *QuizService) Submit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Status != domain.StatusReady {
		return domain.ErrInvalidTransition
	}
	s.submitLocked()
	return nil
}

func (s *QuizService) submitLocked() {
	ts := s.now().UnixMilli()
	s.state.Status = domain.StatusSubmitted
	s.state.SubmittedAt = &ts
	s.stopCountdownLocked()
	s.persistLocked()
	s.broadcastLocked()
}

// Reset restores defaults and clears persisted storage.
func (s *QuizService) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
	s.broadcastLocked()
}

func (s *QuizService) resetLocked() {
	s.stopCountdownLocked()
	s.state = domain.NewSession("")
	s.store.Clear()
}

// Close cancels the countdown. The session itself stays valid.
func (s *QuizService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopCountdownLocked()
}

// persistLocked mirrors the session to the store, except when it is entirely
// empty; a fresh default session is not worth persisting.
func (s *QuizService) persistLocked() {
	if s.state.Empty() {
		return
	}
	s.store.Save(s.state.Clone())
}

func containsOption(options []string, value string) bool {
	for _, opt := range options {
		if opt == value {
			return true
		}
	}
	return false
}
