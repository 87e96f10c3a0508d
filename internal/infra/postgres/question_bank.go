package postgres

import (
	"context"
	"fmt"
	"html"
	"math/rand"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/pkg/errors"

	"trivia-quiz/internal/domain"
)

// QuestionBank serves quiz questions from a local Postgres bank instead of
// the remote trivia API. Rows carry the same JSONB shape the provider wire
// format uses, so banks can be seeded straight from recorded responses.
type QuestionBank struct {
	pool *pgxpool.Pool

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewQuestionBank(pool *pgxpool.Pool) *QuestionBank {
	return NewQuestionBankWithRand(pool, rand.New(rand.NewSource(time.Now().UnixNano())))
}

// NewQuestionBankWithRand lets tests seed the sampling and option shuffle.
func NewQuestionBankWithRand(pool *pgxpool.Pool, rnd *rand.Rand) *QuestionBank {
	return &QuestionBank{pool: pool, rnd: rnd}
}

type bankRow struct {
	Question         string   `json:"question"`
	CorrectAnswer    string   `json:"correct_answer"`
	IncorrectAnswers []string `json:"incorrect_answers"`
}

// FetchQuestions samples amount random questions from the bank.
func (b *QuestionBank) FetchQuestions(ctx context.Context, amount int) ([]domain.Question, error) {
	rows, err := b.pool.Query(ctx, `SELECT data FROM questions ORDER BY random() LIMIT $1`, amount)
	if err != nil {
		return nil, &domain.NetworkError{Err: errors.Wrap(err, "query question bank")}
	}
	defer rows.Close()

	questions := make([]domain.Question, 0, amount)
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, &domain.NetworkError{Err: errors.Wrap(err, "scan question row")}
		}
		var row bankRow
		if err := json.Unmarshal(raw, &row); err != nil {
			return nil, &domain.NetworkError{Err: errors.Wrap(err, "unmarshal question row")}
		}
		questions = append(questions, b.build(len(questions), row))
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.NetworkError{Err: errors.Wrap(err, "read question rows")}
	}
	if len(questions) == 0 {
		return nil, &domain.ProviderError{Kind: domain.ProviderNoResults, Message: "No results found for the quiz request."}
	}
	return questions, nil
}

func (b *QuestionBank) build(index int, row bankRow) domain.Question {
	text := html.UnescapeString(row.Question)
	correct := html.UnescapeString(row.CorrectAnswer)
	options := make([]string, 0, len(row.IncorrectAnswers)+1)
	options = append(options, correct)
	for _, wrong := range row.IncorrectAnswers {
		options = append(options, html.UnescapeString(wrong))
	}

	b.mu.Lock()
	for i := len(options) - 1; i > 0; i-- {
		j := b.rnd.Intn(i + 1)
		options[i], options[j] = options[j], options[i]
	}
	b.mu.Unlock()

	return domain.Question{
		ID:            fmt.Sprintf("%d-%s", index, text),
		Text:          text,
		CorrectAnswer: correct,
		Options:       options,
	}
}
