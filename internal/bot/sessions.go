// Package bot — sessions.go хранит состояние диалога с покупателем.
// Часть сценариев пошаговая: бот спрашивает сумму, поисковый запрос
// или гифт-код и ждёт следующий текст именно как ответ на вопрос.
package bot

import (
	"sync"
	"time"
)

// InputState — чего бот ждёт от пользователя следующим сообщением.
type InputState int

const (
	StateIdle InputState = iota
	StateAwaitingRechargeAmount
	StateAwaitingSearchTerm
	StateAwaitingGiftCode
)

// Сколько живёт незавершённый диалог
const sessionTTL = 10 * time.Minute

type session struct {
	state     InputState
	expiresAt time.Time
}

// Sessions — in-memory состояния диалогов. На один процесс бота этого
// достаточно: при рестарте пользователь просто начнёт сценарий заново.
type Sessions struct {
	mu       sync.RWMutex
	sessions map[int64]session
}

// NewSessions создаёт хранилище диалогов.
func NewSessions() *Sessions {
	return &Sessions{sessions: make(map[int64]session)}
}

// Get возвращает текущее состояние диалога пользователя.
func (s *Sessions) Get(userID int64) InputState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[userID]
	if !ok || time.Now().After(sess.expiresAt) {
		return StateIdle
	}
	return sess.state
}

// Set переводит диалог в новое состояние со свежим TTL.
func (s *Sessions) Set(userID int64, state InputState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if state == StateIdle {
		delete(s.sessions, userID)
		return
	}
	s.sessions[userID] = session{state: state, expiresAt: time.Now().Add(sessionTTL)}
}

// Clear сбрасывает диалог в исходное состояние.
func (s *Sessions) Clear(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
}

// Sweep удаляет протухшие диалоги. Зовётся планировщиком.
func (s *Sessions) Sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for userID, sess := range s.sessions {
		if now.After(sess.expiresAt) {
			delete(s.sessions, userID)
		}
	}
}
