//go:build integration

package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/multiplayers/arena/internal/provider"
)

// Mail is one captured outbound message.
type Mail struct {
	To      string
	Subject string
	Body    string
}

// MailCapture records outbound mail instead of talking to an SMTP relay.
type MailCapture struct {
	mu    sync.Mutex
	mails []Mail
	err   error
}

func (m *MailCapture) Send(_ context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.mails = append(m.mails, Mail{To: to, Subject: subject, Body: body})
	return nil
}

// FailWith makes subsequent sends fail with err; nil restores delivery.
func (m *MailCapture) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Sent returns a copy of all captured mail.
func (m *MailCapture) Sent() []Mail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Mail(nil), m.mails...)
}

// LastCode extracts the 2FA code from the most recent message.
func (m *MailCapture) LastCode() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.mails) == 0 {
		return "", fmt.Errorf("no mail captured")
	}
	body := m.mails[len(m.mails)-1].Body
	idx := strings.LastIndexByte(body, ' ')
	if idx < 0 {
		return "", fmt.Errorf("unexpected mail body %q", body)
	}
	return body[idx+1:], nil
}

// Reset drops captured mail and clears any scripted failure.
func (m *MailCapture) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mails = nil
	m.err = nil
}

// IdentityStub resolves scripted Google tokens without network calls.
type IdentityStub struct {
	mu         sync.Mutex
	identities map[string]provider.Identity
}

func NewIdentityStub() *IdentityStub {
	return &IdentityStub{identities: make(map[string]provider.Identity)}
}

// Grant registers a token that resolves to the given identity.
func (s *IdentityStub) Grant(token string, id provider.Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identities[token] = id
}

func (s *IdentityStub) Resolve(_ context.Context, token string) (*provider.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.identities[token]
	if !ok {
		return nil, fmt.Errorf("token not recognized")
	}
	return &id, nil
}

// Reset forgets all granted tokens.
func (s *IdentityStub) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identities = make(map[string]provider.Identity)
}
