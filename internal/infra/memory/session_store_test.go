package memory

import (
	"reflect"
	"testing"

	"trivia-quiz/internal/domain"
)

func TestSessionStoreRoundTrip(t *testing.T) {
	store := NewSessionStore()

	answer := "4"
	session := domain.NewSession("taker@example.com")
	session.Questions = []domain.Question{{
		ID:            "0-What is 2 + 2?",
		Text:          "What is 2 + 2?",
		CorrectAnswer: "4",
		Options:       []string{"3", "4", "5"},
	}}
	session.SelectedAnswers = []*string{&answer}
	session.Visited = []bool{true}
	session.Status = domain.StatusReady
	session.RemainingTime = 42
	store.Save(session)

	got := store.Load()
	if !reflect.DeepEqual(got, session) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, session)
	}

	// The stored snapshot is a copy; mutating the original must not leak in.
	session.Visited[0] = false
	if !store.Load().Visited[0] {
		t.Fatalf("store aliased the caller's slices")
	}
}

func TestLoadWithoutSnapshotKeepsEmail(t *testing.T) {
	store := NewSessionStore()
	store.Save(domain.NewSession("taker@example.com"))

	// Overwrite with a snapshot that lost its email; the email key fills it.
	anonymous := domain.NewSession("")
	anonymous.Status = domain.StatusError
	anonymous.Error = "boom"
	store.Save(anonymous)

	got := store.Load()
	if got.Email != "taker@example.com" {
		t.Fatalf("expected email merged back, got %q", got.Email)
	}
	if got.Status != domain.StatusError {
		t.Fatalf("expected snapshot preserved, got %+v", got)
	}
}

func TestClearDropsSessionAndEmail(t *testing.T) {
	store := NewSessionStore()
	store.Save(domain.NewSession("taker@example.com"))

	store.Clear()
	if got := store.Load(); !got.Empty() {
		t.Fatalf("expected empty defaults after clear, got %+v", got)
	}
}
