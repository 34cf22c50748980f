package notify

import (
	"fmt"

	"github.com/wneessen/go-mail"
)

// BuildMessage renders an envelope into a mail ready to send from the given address.
func (ts *Templates) BuildMessage(from string, env *Envelope) (*mail.Msg, error) {
	tmpl, subject, err := ts.Lookup(env.Type)
	if err != nil {
		return nil, err
	}

	m := mail.NewMsg()
	if err := m.From(from); err != nil {
		return nil, fmt.Errorf("set sender: %w", err)
	}
	if err := m.To(env.To); err != nil {
		return nil, fmt.Errorf("set recipient: %w", err)
	}
	m.Subject(subject)
	if err := m.SetBodyHTMLTemplate(tmpl, env.Data); err != nil {
		return nil, fmt.Errorf("render body: %w", err)
	}

	return m, nil
}
