// Package identitytest provides an in-memory identity.Provider for tests.
package identitytest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"user_admin_backend/internal/identity"
)

// Provider keeps accounts in memory and tracks registration sessions.
type Provider struct {
	mu       sync.Mutex
	accounts map[string]string // uid -> email
	tokens   map[string]identity.Token
	nextID   int
	handles  []*Registrar

	// RegisterErr, when set, is returned by every Register after the credential checks.
	RegisterErr error
	// DeleteErr, when set, is returned by DeleteRegistered and DeleteAccount.
	DeleteErr error
	// LookupErr, when set, is returned by MissingAccounts.
	LookupErr error

	revoked []string
}

var _ identity.Provider = (*Provider)(nil)

func New() *Provider {
	return &Provider{
		accounts: make(map[string]string),
		tokens:   make(map[string]identity.Token),
	}
}

// AddAccount registers an account directly and returns its uid.
func (p *Provider) AddAccount(email string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.addLocked(email)
}

func (p *Provider) addLocked(email string) string {
	p.nextID++
	uid := fmt.Sprintf("uid-%d", p.nextID)
	p.accounts[uid] = strings.ToLower(email)
	return uid
}

// RemoveAccount drops an account without going through the API.
func (p *Provider) RemoveAccount(uid string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.accounts, uid)
}

// IssueToken makes token verify as uid.
func (p *Provider) IssueToken(token, uid, email string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tokens[token] = identity.Token{UID: uid, Email: email}
}

func (p *Provider) HasAccount(uid string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.accounts[uid]
	return ok
}

func (p *Provider) AccountCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.accounts)
}

// Revoked lists uids passed to RevokeSessions, in call order.
func (p *Provider) Revoked() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.revoked...)
}

// Handles returns every registrar opened so far.
func (p *Provider) Handles() []*Registrar {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*Registrar(nil), p.handles...)
}

// OpenSessions counts registrars that are still signed in or not closed.
func (p *Provider) OpenSessions() int {
	n := 0
	for _, h := range p.Handles() {
		if h.SignedIn() || !h.Closed() {
			n++
		}
	}
	return n
}

func (p *Provider) OpenRegistrar(ctx context.Context) (identity.Registrar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	r := &Registrar{p: p}
	p.handles = append(p.handles, r)
	return r, nil
}

func (p *Provider) VerifyIDToken(_ context.Context, idToken string) (*identity.Token, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	tok, ok := p.tokens[idToken]
	if !ok {
		return nil, errors.New("invalid ID token")
	}
	return &tok, nil
}

func (p *Provider) RevokeSessions(_ context.Context, uid string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.revoked = append(p.revoked, uid)
	return nil
}

func (p *Provider) DeleteAccount(_ context.Context, uid string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.DeleteErr != nil {
		return p.DeleteErr
	}
	if _, ok := p.accounts[uid]; !ok {
		return identity.ErrAccountNotFound
	}
	delete(p.accounts, uid)
	return nil
}

func (p *Provider) MissingAccounts(_ context.Context, uids []string) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.LookupErr != nil {
		return nil, p.LookupErr
	}
	var missing []string
	for _, uid := range uids {
		if _, ok := p.accounts[uid]; !ok {
			missing = append(missing, uid)
		}
	}
	return missing, nil
}

// Registrar is the in-memory registration handle.
type Registrar struct {
	p *Provider

	mu       sync.Mutex
	uid      string
	signedIn bool
	closed   bool
}

func (r *Registrar) SignedIn() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.signedIn
}

func (r *Registrar) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

func (r *Registrar) Register(ctx context.Context, email, password string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", identity.NewError(identity.KindUnknown, err)
	}
	if err := identity.CheckCredentials(email, password); err != nil {
		return "", err
	}

	r.p.mu.Lock()
	defer r.p.mu.Unlock()
	if r.p.RegisterErr != nil {
		return "", identity.NewError(identity.KindUnknown, r.p.RegisterErr)
	}
	for _, existing := range r.p.accounts {
		if existing == strings.ToLower(email) {
			return "", identity.NewError(identity.KindDuplicateEmail, fmt.Errorf("%s already registered", email))
		}
	}
	uid := r.p.addLocked(email)

	r.mu.Lock()
	r.uid = uid
	r.signedIn = true
	r.mu.Unlock()
	return uid, nil
}

func (r *Registrar) DeleteRegistered(ctx context.Context) error {
	r.mu.Lock()
	uid := r.uid
	r.mu.Unlock()
	if uid == "" {
		return errors.New("no account registered")
	}
	if err := r.p.DeleteAccount(ctx, uid); err != nil {
		return err
	}
	r.mu.Lock()
	r.signedIn = false
	r.mu.Unlock()
	return nil
}

func (r *Registrar) SignOut(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.signedIn = false
	return nil
}

func (r *Registrar) Close(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	r.signedIn = false
	return nil
}
