package app

import "trivia-quiz/internal/domain"

// Subscribe returns a channel that receives a session snapshot after every
// successful transition, starting with the current one. The caller must
// invoke the returned cancel function to avoid leaks.
func (s *QuizService) Subscribe() (<-chan domain.Session, func()) {
	ch := make(chan domain.Session, 8)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	initial := s.state.Clone()
	s.mu.Unlock()

	ch <- initial

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *QuizService) broadcastLocked() {
	snapshot := s.state.Clone()
	for ch := range s.subscribers {
		select {
		case ch <- snapshot:
		default:
			// Drop the stale snapshot so a slow consumer never blocks a transition.
			select {
			case <-ch:
			default:
			}
			ch <- snapshot
		}
	}
}
