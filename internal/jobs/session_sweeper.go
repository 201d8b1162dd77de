package jobs

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Sweeper evicts expired entries and reports how many it removed
type Sweeper interface {
	Sweep() int
}

// SessionSweeper periodically evicts idle browse sessions
type SessionSweeper struct {
	sessions Sweeper
	interval time.Duration
	logger   *zap.Logger

	mu        sync.Mutex
	isRunning bool
	stop      chan struct{}
	done      chan struct{}
}

// NewSessionSweeper creates a sweeper; interval <= 0 means one minute
func NewSessionSweeper(sessions Sweeper, interval time.Duration, logger *zap.Logger) *SessionSweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionSweeper{
		sessions: sessions,
		interval: interval,
		logger:   logger,
	}
}

// Start begins the sweep loop
func (s *SessionSweeper) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		s.logger.Warn("Session sweeper already running")
		return
	}

	s.isRunning = true
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go s.run(s.stop, s.done)

	s.logger.Info("Session sweeper started", zap.Duration("interval", s.interval))
}

// Stop halts the loop and waits for it to exit
func (s *SessionSweeper) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	close(s.stop)
	done := s.done
	s.mu.Unlock()

	<-done
	s.logger.Info("Session sweeper stopped")
}

func (s *SessionSweeper) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if removed := s.sessions.Sweep(); removed > 0 {
				s.logger.Debug("Swept browse sessions", zap.Int("removed", removed))
			}
		}
	}
}
