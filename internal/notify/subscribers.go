package notify

import (
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
)

// Pusher is the slice of the websocket hub the bus needs: targeted delivery
// to one employee's open connections, or an announcement to all of them.
type Pusher interface {
	SendToUser(userID string, message []byte)
	Broadcast(message []byte)
}

// WebsocketSubscriber pushes events to the affected employee in real time.
// Announcements (no EmployeeID) go to every connection.
type WebsocketSubscriber struct {
	hub Pusher
}

func NewWebsocketSubscriber(hub Pusher) *WebsocketSubscriber {
	return &WebsocketSubscriber{hub: hub}
}

func (s *WebsocketSubscriber) Notify(event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	if event.EmployeeID == "" {
		s.hub.Broadcast(payload)
		return nil
	}
	s.hub.SendToUser(event.EmployeeID, payload)
	return nil
}

// EmailSender abstracts outbound mail. Rendering and SMTP delivery live
// outside the engine; LogEmailSender stands in for them.
type EmailSender interface {
	Send(to, subject, body string) error
}

// EmailSubscriber resolves the recipient address and hands the message to an
// EmailSender. Address lookup failures are reported to the bus, not retried.
type EmailSubscriber struct {
	sender  EmailSender
	resolve func(userID string) (string, error) // employee id -> email
}

func NewEmailSubscriber(sender EmailSender, resolve func(userID string) (string, error)) *EmailSubscriber {
	return &EmailSubscriber{sender: sender, resolve: resolve}
}

func (s *EmailSubscriber) Notify(event Event) error {
	if event.EmployeeID == "" {
		// Announcements have no individual recipient.
		return nil
	}
	addr, err := s.resolve(event.EmployeeID)
	if err != nil {
		return fmt.Errorf("resolve recipient: %w", err)
	}
	subject := fmt.Sprintf("Your %s request is %s", event.Kind, event.Status)
	return s.sender.Send(addr, subject, event.Message)
}

// LogEmailSender logs instead of sending. Swapped for a real SMTP sender in
// deployments that want mail.
type LogEmailSender struct {
	logger *zap.Logger
}

func NewLogEmailSender(logger *zap.Logger) *LogEmailSender {
	return &LogEmailSender{logger: logger.Named("notify.email")}
}

func (s *LogEmailSender) Send(to, subject, body string) error {
	s.logger.Info("email notification",
		zap.String("to", to),
		zap.String("subject", subject),
		zap.String("body", body),
	)
	return nil
}
