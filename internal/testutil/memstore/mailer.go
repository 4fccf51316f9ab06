package memstore

import (
	"context"
	"sync"

	"github.com/dalemusser/flowbase/internal/app/system/mailer"
)

// Mailer records sent email. When Err is set, Send fails with it and
// nothing is recorded.
type Mailer struct {
	mu   sync.Mutex
	sent []mailer.Email
	Err  error
}

func (m *Mailer) Send(_ context.Context, e mailer.Email) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, e)
	return nil
}

// Sent returns a copy of the delivered messages.
func (m *Mailer) Sent() []mailer.Email {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mailer.Email(nil), m.sent...)
}

// Last returns the most recent message, or a zero Email.
func (m *Mailer) Last() mailer.Email {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return mailer.Email{}
	}
	return m.sent[len(m.sent)-1]
}
