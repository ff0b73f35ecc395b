package notify

import (
	"context"
	"sync"

	"github.com/jonathan/interview-manager/internal/logging"
	"go.uber.org/zap"
)

// SimulatedSender logs invitations instead of sending them
type SimulatedSender struct {
	baseURL string

	mu   sync.Mutex
	sent []Message
}

func NewSimulatedSender(baseURL string) *SimulatedSender {
	return &SimulatedSender{baseURL: baseURL}
}

func (s *SimulatedSender) Send(ctx context.Context, inv Invitation) (string, error) {
	msg, err := Render(s.baseURL, inv)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	s.sent = append(s.sent, msg)
	s.mu.Unlock()

	logging.FromContext(ctx).Info("invitation email simulated",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("link", msg.Link),
	)
	return msg.Link, nil
}

// Sent returns the messages rendered so far
func (s *SimulatedSender) Sent() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.sent...)
}

func (s *SimulatedSender) SendSignIn(ctx context.Context, email, link string) error {
	msg, err := RenderSignIn(email, link)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.sent = append(s.sent, msg)
	s.mu.Unlock()

	logging.FromContext(ctx).Info("sign-in email simulated", zap.String("to", msg.To), zap.String("link", msg.Link))
	return nil
}
