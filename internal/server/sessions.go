package server

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type sessionInfo struct {
	playerID  string
	startedAt time.Time
	ended     bool
	endedAt   time.Time
	feedback  map[string]struct{}
}

// sessionStore 는 발급한 세션 토큰과 그 세션의 feedback id 를 메모리에 보관한다.
type sessionStore struct {
	mu       sync.Mutex
	sessions map[string]*sessionInfo
}

func newSessionStore() *sessionStore {
	return &sessionStore{sessions: make(map[string]*sessionInfo)}
}

func (s *sessionStore) issue(playerID string, now time.Time) string {
	token := "sess_" + uuid.NewString()
	s.mu.Lock()
	s.sessions[token] = &sessionInfo{playerID: playerID, startedAt: now, feedback: make(map[string]struct{})}
	s.mu.Unlock()
	return token
}

// live 는 토큰이 발급되었고 아직 end 되지 않았는지.
func (s *sessionStore) live(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	info, ok := s.sessions[token]
	return ok && !info.ended
}

// draining 은 live 이거나, end 된 지 grace 이내인지.
// SDK 는 sessions/end 와 final batch 를 동시에 보내므로 도착 순서가 뒤바뀔 수 있다.
func (s *sessionStore) draining(token string, now time.Time, grace time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	info, ok := s.sessions[token]
	if !ok {
		return false
	}
	return !info.ended || now.Sub(info.endedAt) <= grace
}

func (s *sessionStore) end(token string, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	info, ok := s.sessions[token]
	if !ok || info.ended {
		return false
	}
	info.ended = true
	info.endedAt = now
	return true
}

func (s *sessionStore) addFeedback(token string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	info, ok := s.sessions[token]
	if !ok || info.ended {
		return "", false
	}
	id := uuid.NewString()
	info.feedback[id] = struct{}{}
	return id, true
}

func (s *sessionStore) hasFeedback(token, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	info, ok := s.sessions[token]
	if !ok {
		return false
	}
	_, found := info.feedback[id]
	return found
}

func (s *sessionStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
