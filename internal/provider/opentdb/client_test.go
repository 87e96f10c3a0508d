package opentdb

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"trivia-quiz/internal/domain"
)

func fixedClock() time.Time { return time.UnixMilli(1756600000000) }

func newTestClient(url string) *Client {
	return NewClientWithRand(url, rand.New(rand.NewSource(1)), fixedClock)
}

func TestFetchQuestionsDecodesAndShuffles(t *testing.T) {
	var gotAmount, gotTimestamp string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAmount = r.URL.Query().Get("amount")
		gotTimestamp = r.URL.Query().Get("timestamp")
		fmt.Fprint(w, `{
			"response_code": 0,
			"results": [
				{
					"question": "Who wrote &quot;Hamlet&quot;?",
					"correct_answer": "Shakespeare",
					"incorrect_answers": ["Marlowe", "Jonson", "Bacon"]
				},
				{
					"question": "What is 5 &times; 3?",
					"correct_answer": "15",
					"incorrect_answers": ["8", "53"]
				}
			]
		}`)
	}))
	defer server.Close()

	questions, err := newTestClient(server.URL).FetchQuestions(context.Background(), 2)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if gotAmount != "2" {
		t.Fatalf("expected amount=2, got %q", gotAmount)
	}
	if gotTimestamp == "" {
		t.Fatalf("expected cache-busting timestamp parameter")
	}
	if len(questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(questions))
	}

	first := questions[0]
	if first.Text != `Who wrote "Hamlet"?` {
		t.Fatalf("expected decoded question text, got %q", first.Text)
	}
	if first.CorrectAnswer != "Shakespeare" {
		t.Fatalf("unexpected correct answer %q", first.CorrectAnswer)
	}
	wantOptions := []string{"Bacon", "Jonson", "Marlowe", "Shakespeare"}
	gotOptions := append([]string(nil), first.Options...)
	sort.Strings(gotOptions)
	for i, opt := range wantOptions {
		if gotOptions[i] != opt {
			t.Fatalf("expected options %v (in some order), got %v", wantOptions, first.Options)
		}
	}
	if questions[1].Text != "What is 5 × 3?" {
		t.Fatalf("expected decoded entity in %q", questions[1].Text)
	}
}

func TestFetchQuestionsShuffleIsSeedDeterministic(t *testing.T) {
	payload := `{
		"response_code": 0,
		"results": [{
			"question": "Pick one",
			"correct_answer": "a",
			"incorrect_answers": ["b", "c", "d"]
		}]
	}`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, payload)
	}))
	defer server.Close()

	one, err := newTestClient(server.URL).FetchQuestions(context.Background(), 1)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	two, err := newTestClient(server.URL).FetchQuestions(context.Background(), 1)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	for i := range one[0].Options {
		if one[0].Options[i] != two[0].Options[i] {
			t.Fatalf("same seed produced different orders: %v vs %v", one[0].Options, two[0].Options)
		}
	}
}

func TestFetchQuestionsMapsProviderCodes(t *testing.T) {
	cases := []struct {
		code    int
		kind    domain.ProviderErrorKind
		message string
	}{
		{1, domain.ProviderNoResults, "No results found for the quiz request."},
		{2, domain.ProviderInvalidParameters, "Invalid parameters sent to the quiz API."},
		{3, domain.ProviderTokenNotFound, "Session token not found by the quiz API."},
		{4, domain.ProviderTokenExhausted, "Session token has no remaining questions."},
		{7, domain.ProviderUnknown, "Unable to load quiz questions."},
	}
	for _, tc := range cases {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprintf(w, `{"response_code": %d, "results": []}`, tc.code)
		}))
		_, err := newTestClient(server.URL).FetchQuestions(context.Background(), 15)
		server.Close()

		var provErr *domain.ProviderError
		if !errors.As(err, &provErr) {
			t.Fatalf("code %d: expected ProviderError, got %v", tc.code, err)
		}
		if provErr.Kind != tc.kind || provErr.Message != tc.message {
			t.Fatalf("code %d: got kind=%v message=%q", tc.code, provErr.Kind, provErr.Message)
		}
	}
}

func TestFetchQuestionsHTTPFailureIsNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).FetchQuestions(context.Background(), 15)
	var netErr *domain.NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("expected NetworkError, got %v", err)
	}
}

func TestFetchQuestionsMalformedPayloadIsNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"response_code": 0, "results": [`)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).FetchQuestions(context.Background(), 15)
	var netErr *domain.NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("expected NetworkError for malformed payload, got %v", err)
	}
}

func TestFetchQuestionsDoesNotRetry(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, _ = newTestClient(server.URL).FetchQuestions(context.Background(), 15)
	if calls != 1 {
		t.Fatalf("expected exactly one request, got %d", calls)
	}
}
