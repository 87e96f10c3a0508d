package app

import "time"

// The countdown is a cancellable scheduled task owned by the ready state:
// started on the transition into ready, stopped on any transition out of it.
// Each firing issues exactly one Tick, so expiry and manual submission race
// through the same guarded transition and cannot double-submit.

func (s *QuizService) startCountdownLocked() {
	if s.countdownStop != nil {
		return
	}
	stop := make(chan struct{})
	s.countdownStop = stop
	go s.runCountdown(stop)
}

func (s *QuizService) stopCountdownLocked() {
	if s.countdownStop == nil {
		return
	}
	close(s.countdownStop)
	s.countdownStop = nil
}

func (s *QuizService) runCountdown(stop chan struct{}) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			_ = s.Tick()
		case <-stop:
			return
		}
	}
}
