package opentdb

import (
	"context"
	"fmt"
	"html"
	"math/rand"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/imroc/req/v3"
	"github.com/pkg/errors"

	"trivia-quiz/internal/domain"
)

// DefaultBaseURL is the Open Trivia Database endpoint.
const DefaultBaseURL = "https://opentdb.com/api.php"

const requestTimeout = 10 * time.Second

// Client fetches trivia questions from an Open Trivia DB compatible endpoint.
// It issues exactly one request per FetchQuestions call and never retries;
// retrying is a user-initiated transition in the session state machine.
type Client struct {
	baseURL string
	httpc   *req.Client
	now     func() time.Time

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewClient builds a client against baseURL (DefaultBaseURL when empty).
func NewClient(baseURL string) *Client {
	return NewClientWithRand(baseURL, rand.New(rand.NewSource(time.Now().UnixNano())), time.Now)
}

// NewClientWithRand lets tests seed the option shuffle and pin the
// cache-busting timestamp.
func NewClientWithRand(baseURL string, rnd *rand.Rand, now func() time.Time) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	httpc := req.C().SetTimeout(requestTimeout)
	httpc.SetJsonMarshal(json.Marshal)
	httpc.SetJsonUnmarshal(json.Unmarshal)
	return &Client{baseURL: baseURL, httpc: httpc, now: now, rnd: rnd}
}

type apiResponse struct {
	ResponseCode int         `json:"response_code"`
	Results      []apiResult `json:"results"`
}

type apiResult struct {
	Question         string   `json:"question"`
	CorrectAnswer    string   `json:"correct_answer"`
	IncorrectAnswers []string `json:"incorrect_answers"`
}

var providerMessages = map[int]struct {
	kind    domain.ProviderErrorKind
	message string
}{
	1: {domain.ProviderNoResults, "No results found for the quiz request."},
	2: {domain.ProviderInvalidParameters, "Invalid parameters sent to the quiz API."},
	3: {domain.ProviderTokenNotFound, "Session token not found by the quiz API."},
	4: {domain.ProviderTokenExhausted, "Session token has no remaining questions."},
}

// FetchQuestions requests amount questions, decodes the entity-escaped text
// fields, and shuffles each question's options into a fixed random order.
func (c *Client) FetchQuestions(ctx context.Context, amount int) ([]domain.Question, error) {
	resp, err := c.httpc.R().
		SetContext(ctx).
		SetQueryParam("amount", strconv.Itoa(amount)).
		SetQueryParam("timestamp", strconv.FormatInt(c.now().UnixMilli(), 10)).
		SetHeader("Accept", "application/json").
		SetHeader("Cache-Control", "no-cache, no-store, must-revalidate").
		Get(c.baseURL)
	if err != nil {
		return nil, &domain.NetworkError{Err: errors.Wrap(err, "failed to fetch questions")}
	}
	if resp.GetStatusCode() != http.StatusOK {
		return nil, &domain.NetworkError{Err: errors.Errorf("unexpected status %d from question provider", resp.GetStatusCode())}
	}
	body, err := resp.ToBytes()
	if err != nil {
		return nil, &domain.NetworkError{Err: errors.Wrap(err, "failed to read provider response")}
	}

	var payload apiResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, &domain.NetworkError{Err: errors.Wrap(err, "malformed provider response")}
	}
	if payload.ResponseCode != 0 {
		if m, ok := providerMessages[payload.ResponseCode]; ok {
			return nil, &domain.ProviderError{Kind: m.kind, Message: m.message}
		}
		return nil, &domain.ProviderError{Kind: domain.ProviderUnknown, Message: "Unable to load quiz questions."}
	}

	questions := make([]domain.Question, 0, len(payload.Results))
	for i, result := range payload.Results {
		text := html.UnescapeString(result.Question)
		correct := html.UnescapeString(result.CorrectAnswer)
		options := make([]string, 0, len(result.IncorrectAnswers)+1)
		options = append(options, correct)
		for _, wrong := range result.IncorrectAnswers {
			options = append(options, html.UnescapeString(wrong))
		}
		questions = append(questions, domain.Question{
			ID:            fmt.Sprintf("%d-%s", i, text),
			Text:          text,
			CorrectAnswer: correct,
			Options:       c.shuffle(options),
		})
	}
	return questions, nil
}

// shuffle returns a Fisher-Yates shuffled copy; each question gets its own
// independent order.
func (c *Client) shuffle(options []string) []string {
	shuffled := append([]string(nil), options...)
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(shuffled) - 1; i > 0; i-- {
		j := c.rnd.Intn(i + 1)
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}
	return shuffled
}
