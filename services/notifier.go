package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"mota-project/microservices/planning-service/logging"
	"mota-project/microservices/planning-service/models"
	"mota-project/microservices/planning-service/repositories"
)

const historySize = 50

// MemoryNotifier collects the toasts of one board. Notifications stay pending
// until the action that raised them is committed, so a rolled back change
// never reports success.
type MemoryNotifier struct {
	mu      sync.Mutex
	board   string
	now     func() time.Time
	pending []models.Notification
	history []models.Notification
}

func NewMemoryNotifier(board string) *MemoryNotifier {
	return &MemoryNotifier{board: board, now: time.Now}
}

func (n *MemoryNotifier) Notify(level models.NotificationLevel, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.pending = append(n.pending, models.Notification{
		Board:     n.board,
		Level:     level,
		Message:   message,
		CreatedAt: n.now(),
	})
}

// Commit publishes the pending notifications and returns them.
func (n *MemoryNotifier) Commit() []models.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	committed := n.pending
	n.pending = nil
	n.history = append(n.history, committed...)
	if over := len(n.history) - historySize; over > 0 {
		n.history = append([]models.Notification(nil), n.history[over:]...)
	}
	return committed
}

// Rollback drops the pending success notifications of a change that was
// undone. Warnings explain why it was undone and stay pending.
func (n *MemoryNotifier) Rollback() {
	n.mu.Lock()
	defer n.mu.Unlock()
	kept := n.pending[:0]
	for _, note := range n.pending {
		if note.Level == models.LevelWarning {
			kept = append(kept, note)
		}
	}
	n.pending = kept
}

// Discard drops the pending notifications.
func (n *MemoryNotifier) Discard() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.pending = nil
}

// History returns committed notifications, newest first.
func (n *MemoryNotifier) History() []models.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]models.Notification, len(n.history))
	for i, note := range n.history {
		out[len(n.history)-1-i] = note
	}
	return out
}

// NotificationSink forwards committed notifications outside the service.
type NotificationSink interface {
	Send(ctx context.Context, note models.Notification) error
}

// LogSink writes notifications to the service log.
type LogSink struct{}

func (LogSink) Send(_ context.Context, note models.Notification) error {
	logging.Logger.Infof("Event ID: BOARD_NOTIFICATION, Description: [%s] %s: %s", note.Board, note.Level, note.Message)
	return nil
}

// HTTPSink posts notifications to the notifications service.
type HTTPSink struct {
	url      string
	client   *http.Client
	breaker  *gobreaker.CircuitBreaker
	fallback NotificationSink
}

func NewHTTPSink(url string, client *http.Client, breaker *gobreaker.CircuitBreaker) *HTTPSink {
	return &HTTPSink{url: url, client: client, breaker: breaker, fallback: LogSink{}}
}

// Send posts the notification. When the notifications service cannot be
// reached the notification is logged instead.
func (s *HTTPSink) Send(ctx context.Context, note models.Notification) error {
	body, err := json.Marshal(note)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}

	err = repositories.Guard(s.breaker, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := s.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode >= http.StatusBadRequest {
			return fmt.Errorf("notifications service responded with %s", resp.Status)
		}
		return nil
	})
	if err != nil {
		logging.Logger.Warnf("Event ID: NOTIFICATION_SEND_FAILED, Description: Failed to send notification for %s: %v", note.Board, err)
		return s.fallback.Send(ctx, note)
	}
	return nil
}
