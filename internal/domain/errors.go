package domain

import "errors"

var (
	// ErrInvalidTransition is returned when a transition is requested from a
	// state that does not permit it. The session is left untouched.
	ErrInvalidTransition = errors.New("transition not allowed in current state")
	// ErrEmailRequired is returned when a load is requested without an email.
	ErrEmailRequired = errors.New("email required before loading questions")
	// ErrEmailInvalid indicates the supplied address failed validation.
	ErrEmailInvalid = errors.New("invalid email address")
	// ErrQuestionsLoaded rejects a load when questions are already present.
	ErrQuestionsLoaded = errors.New("questions already loaded")
	// ErrLoadInFlight rejects a second load while one is pending.
	ErrLoadInFlight = errors.New("question load already in flight")
	// ErrIndexOutOfRange indicates a question index outside the session.
	ErrIndexOutOfRange = errors.New("question index out of range")
	// ErrOptionNotFound indicates a selected answer is not one of the options.
	ErrOptionNotFound = errors.New("option not found")
)

// ProviderErrorKind classifies structured rejections from the question source.
type ProviderErrorKind int

const (
	ProviderUnknown ProviderErrorKind = iota
	ProviderNoResults
	ProviderInvalidParameters
	ProviderTokenNotFound
	ProviderTokenExhausted
)

// ProviderError is an application-level rejection from the question source.
// Message is the fixed user-facing text for the kind.
type ProviderError struct {
	Kind    ProviderErrorKind
	Message string
}

func (e *ProviderError) Error() string { return e.Message }

// NetworkError wraps a transport or payload failure during a question fetch.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string { return e.Err.Error() }

func (e *NetworkError) Unwrap() error { return e.Err }
