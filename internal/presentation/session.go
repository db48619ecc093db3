// Package presentation holds the UI-facing state of one shelter-finder
// widget and the transitions a rendering surface may trigger on it.
package presentation

import (
	"context"
	"errors"
	"shelter-finder-service/internal/domain"
	"shelter-finder-service/internal/platform/metrics"
	"shelter-finder-service/internal/services"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseResolving Phase = "resolving"
	PhaseResolved  Phase = "resolved"
	PhaseFailed    Phase = "failed"
)

// State is an immutable snapshot handed to subscribers.
type State struct {
	Query      string                   `json:"query"`
	Mode       domain.TravelMode        `json:"mode"`
	Phase      Phase                    `json:"phase"`
	Result     *domain.ResolutionResult `json:"result,omitempty"`
	Error      string                   `json:"error,omitempty"`
	ErrorKind  string                   `json:"error_kind,omitempty"`
	ShowResult bool                     `json:"show_result"`
	Attempt    uint64                   `json:"attempt"`
}

// Resolver is the part of services.Resolver a session needs.
type Resolver interface {
	Resolve(ctx context.Context, query string, mode domain.TravelMode) (*domain.ResolutionResult, error)
}

// Session is the state of one widget instance. All mutation goes through
// its event methods; subscribers observe every transition.
type Session struct {
	resolver Resolver
	base     context.Context

	mu      sync.Mutex
	state   State
	cancel  context.CancelFunc
	subs    map[int]chan State
	nextSub int
	closed  bool
	wg      sync.WaitGroup
}

// NewSession starts an idle session in the given mode. initialErr, when
// non-nil, is shown until the first successful submission; it is used to
// surface a directory load failure.
func NewSession(ctx context.Context, resolver Resolver, mode domain.TravelMode, initialErr error) *Session {
	if mode == "" {
		mode = domain.DefaultTravelMode
	}

	s := &Session{
		resolver: resolver,
		base:     ctx,
		state:    State{Mode: mode, Phase: PhaseIdle},
		subs:     make(map[int]chan State),
	}
	if initialErr != nil {
		s.state.Error, s.state.ErrorKind = userMessage(initialErr)
	}

	metrics.ActiveSessions.Inc()
	return s
}

// State returns the current snapshot.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe returns a channel receiving a snapshot after every transition,
// starting with the current state. The channel holds only the latest
// snapshot; a slow reader skips intermediate ones. cancel unsubscribes.
func (s *Session) Subscribe() (<-chan State, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan State, 1)
	if s.closed {
		close(ch)
		return ch, func() {}
	}

	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	ch <- s.state

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if c, ok := s.subs[id]; ok {
				delete(s.subs, id)
				close(c)
			}
		})
	}
}

// SetInput records a keystroke-level edit of the query text.
func (s *Session) SetInput(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	s.state.Query = text
	if s.state.Phase != PhaseResolving {
		s.state.Phase = PhaseIdle
	}
	s.notifyLocked()
}

// SetMode selects the travel mode for the next submission.
func (s *Session) SetMode(mode domain.TravelMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.state.Mode == mode {
		return
	}

	s.state.Mode = mode
	s.notifyLocked()
}

// Submit starts resolving the current query. A blank query is ignored.
// Any attempt still in flight is canceled and its outcome discarded.
// It reports whether an attempt was started.
func (s *Session) Submit() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}

	query := strings.TrimSpace(s.state.Query)
	if query == "" {
		return false
	}

	if s.cancel != nil {
		s.cancel()
	}
	ctx, cancel := context.WithCancel(s.base)
	s.cancel = cancel

	s.state.Attempt++
	s.state.Phase = PhaseResolving
	attempt, mode := s.state.Attempt, s.state.Mode
	s.notifyLocked()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cancel()
		res, err := s.resolver.Resolve(ctx, query, mode)
		s.finish(attempt, res, err)
	}()

	return true
}

func (s *Session) finish(attempt uint64, res *domain.ResolutionResult, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || attempt != s.state.Attempt {
		log.Debug().Uint64("attempt", attempt).Msg("dropping superseded resolution")
		return
	}
	s.cancel = nil

	switch {
	case err == nil:
		s.state.Phase = PhaseResolved
		s.state.Result = res
		s.state.Error, s.state.ErrorKind = "", ""
		s.state.ShowResult = true
	case errors.Is(err, context.Canceled):
		s.state.Phase = PhaseIdle
	case errors.Is(err, services.ErrEmptyQuery):
		s.state.Phase = PhaseIdle
	default:
		s.state.Phase = PhaseFailed
		s.state.Error, s.state.ErrorKind = userMessage(err)
		log.Info().Err(err).Uint64("attempt", attempt).Msg("resolution failed")
	}
	s.notifyLocked()
}

// Wait blocks until every started attempt has finished.
func (s *Session) Wait() {
	s.wg.Wait()
}

// Close cancels the in-flight attempt and closes every subscriber channel.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
	s.mu.Unlock()

	metrics.ActiveSessions.Dec()
}

// notifyLocked publishes the current state; callers hold s.mu.
func (s *Session) notifyLocked() {
	for _, ch := range s.subs {
		select {
		case ch <- s.state:
		default:
			// Replace the unread snapshot with the newer one.
			select {
			case <-ch:
			default:
			}
			ch <- s.state
		}
	}
}

type userMessager interface {
	UserMessage() string
}

func userMessage(err error) (msg, kind string) {
	var qe *domain.QueryError
	if errors.As(err, &qe) {
		return qe.UserMessage(), string(qe.Kind)
	}
	var um userMessager
	if errors.As(err, &um) {
		return um.UserMessage(), ""
	}
	return "Error fetching data", ""
}
