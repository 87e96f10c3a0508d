package redis

import (
	"context"
	"log"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"trivia-quiz/internal/domain"
)

const (
	// sessionKey holds the serialized session snapshot.
	sessionKey = "quiz:session:v1"
	// emailKey holds the bare last-used email; it outlives session overwrites
	// so a cleared or corrupt snapshot still restores the address.
	emailKey = "quiz:email:v1"
)

// SessionStore mirrors quiz sessions to Redis. Reads and writes are
// best-effort: failures are logged and swallowed, leaving the in-memory
// session authoritative.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, ttl: ttl}
}

func (s *SessionStore) Save(session domain.Session) {
	ctx := context.Background()
	if session.Email != "" {
		_ = s.client.Set(ctx, emailKey, session.Email, s.ttl).Err()
	}
	data, err := json.Marshal(session)
	if err != nil {
		log.Printf("session encode failed: %v", err)
		return
	}
	if err := s.client.Set(ctx, sessionKey, data, s.ttl).Err(); err != nil {
		log.Printf("session save failed: %v", err)
	}
}

func (s *SessionStore) Load() domain.Session {
	ctx := context.Background()
	email, _ := s.client.Get(ctx, emailKey).Result()
	raw, err := s.client.Get(ctx, sessionKey).Bytes()
	if err != nil {
		return domain.NewSession(email)
	}
	var saved domain.Session
	if err := json.Unmarshal(raw, &saved); err != nil {
		log.Printf("session decode failed, starting fresh: %v", err)
		return domain.NewSession(email)
	}
	return domain.Restore(saved, email)
}

func (s *SessionStore) Clear() {
	if err := s.client.Del(context.Background(), sessionKey, emailKey).Err(); err != nil {
		log.Printf("session clear failed: %v", err)
	}
}
