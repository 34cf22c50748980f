package notify

import (
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"path/filepath"

	"github.com/sysu-ecnc-dev/talentum/backend/internal/domain"
)

var ErrUnknownMailType = errors.New("unknown mail type")

type mailTemplate struct {
	file    string
	subject string
	data    func() any
}

var mailTemplates = map[domain.MailType]mailTemplate{
	domain.MailWelcome: {
		file:    "welcome_email.html",
		subject: "Talentum - Welcome aboard",
		data:    func() any { return &domain.WelcomeMailData{} },
	},
	domain.MailVerifyEmail: {
		file:    "verify_email_otp_email.html",
		subject: "Talentum - Verify your email",
		data:    func() any { return &domain.VerifyEmailMailData{} },
	},
	domain.MailReviewStageChanged: {
		file:    "review_stage_changed_email.html",
		subject: "Talentum - Your performance review was updated",
		data:    func() any { return &domain.ReviewStageChangedMailData{} },
	},
}

// Envelope is a decoded queue message with its typed payload.
type Envelope struct {
	Type domain.MailType
	To   string
	Data any
}

// Decode parses a queue message body and decodes its data into the payload type of the
// message's mail type.
func Decode(body []byte) (*Envelope, error) {
	var raw struct {
		Type domain.MailType `json:"type"`
		To   string          `json:"to"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, err
	}

	t, ok := mailTemplates[raw.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMailType, raw.Type)
	}
	if raw.To == "" {
		return nil, errors.New("mail message has no recipient")
	}

	data := t.data()
	if len(raw.Data) > 0 {
		if err := json.Unmarshal(raw.Data, data); err != nil {
			return nil, err
		}
	}

	return &Envelope{Type: raw.Type, To: raw.To, Data: data}, nil
}

// Templates holds the parsed HTML templates of every mail type.
type Templates struct {
	byType map[domain.MailType]*template.Template
}

func LoadTemplates(dir string) (*Templates, error) {
	ts := &Templates{byType: make(map[domain.MailType]*template.Template, len(mailTemplates))}
	for mt, t := range mailTemplates {
		tmpl, err := template.ParseFiles(filepath.Join(dir, t.file))
		if err != nil {
			return nil, err
		}
		ts.byType[mt] = tmpl
	}
	return ts, nil
}

// Lookup returns the template and subject line for a mail type.
func (ts *Templates) Lookup(mt domain.MailType) (*template.Template, string, error) {
	tmpl, ok := ts.byType[mt]
	if !ok {
		return nil, "", fmt.Errorf("%w: %q", ErrUnknownMailType, mt)
	}
	return tmpl, mailTemplates[mt].subject, nil
}
