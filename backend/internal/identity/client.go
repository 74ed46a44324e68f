package identity

import (
	"context"
	"sync"

	"github.com/catalyst-codex/codex/shared/domain"
	"github.com/catalyst-codex/codex/shared/errors"
	"github.com/catalyst-codex/codex/shared/logger"
)

// Client tracks the current user of one client instance and pushes every
// auth-state change to its subscribers on their own goroutines.
type Client struct {
	backend Backend

	mu     sync.Mutex
	user   *User
	token  string
	subs   map[int]*subscriber
	nextID int
}

func NewClient(backend Backend) *Client {
	return &Client{backend: backend, subs: make(map[int]*subscriber)}
}

// OnAuthStateChanged registers fn. fn is called asynchronously with the
// current user (nil when signed out) and again after every change, in order.
func (c *Client) OnAuthStateChanged(fn func(*User)) (unsubscribe func()) {
	sub := newSubscriber(fn)
	go sub.run()

	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.subs[id] = sub
	sub.push(copyUser(c.user))
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
		sub.stop()
	}
}

// Close stops every subscriber.
func (c *Client) Close() {
	c.mu.Lock()
	subs := c.subs
	c.subs = make(map[int]*subscriber)
	c.mu.Unlock()
	for _, s := range subs {
		s.stop()
	}
}

func (c *Client) CurrentUser() *User {
	c.mu.Lock()
	defer c.mu.Unlock()
	return copyUser(c.user)
}

// IdToken returns the bearer token of the current user, or "".
func (c *Client) IdToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

func (c *Client) SignIn(ctx context.Context, email domain.Email, password domain.Password) (User, error) {
	cred, err := c.backend.SignIn(ctx, email, password)
	if err != nil {
		return User{}, err
	}
	c.setUser(&cred.User, cred.Token)
	return cred.User, nil
}

func (c *Client) SignUp(ctx context.Context, email domain.Email, password domain.Password) (User, error) {
	cred, err := c.backend.SignUp(ctx, email, password)
	if err != nil {
		return User{}, err
	}
	c.setUser(&cred.User, cred.Token)
	return cred.User, nil
}

// Restore adopts an existing token, e.g. one presented by an HTTP client.
func (c *Client) Restore(ctx context.Context, token string) (User, error) {
	user, err := c.backend.VerifyToken(ctx, token)
	if err != nil {
		return User{}, err
	}
	c.setUser(&user, token)
	return user, nil
}

func (c *Client) UpdateProfile(ctx context.Context, displayName domain.Username) (User, error) {
	token, err := c.requireToken()
	if err != nil {
		return User{}, err
	}
	user, err := c.backend.UpdateProfile(ctx, token, displayName)
	if err != nil {
		return User{}, err
	}
	c.setUser(&user, token)
	return user, nil
}

func (c *Client) SendEmailVerification(ctx context.Context) error {
	token, err := c.requireToken()
	if err != nil {
		return err
	}
	return c.backend.SendEmailVerification(ctx, token)
}

func (c *Client) Reauthenticate(ctx context.Context, password domain.Password) error {
	token, err := c.requireToken()
	if err != nil {
		return err
	}
	return c.backend.Reauthenticate(ctx, token, password)
}

func (c *Client) UpdatePassword(ctx context.Context, newPassword domain.Password) error {
	token, err := c.requireToken()
	if err != nil {
		return err
	}
	return c.backend.UpdatePassword(ctx, token, newPassword)
}

func (c *Client) VerifyBeforeUpdateEmail(ctx context.Context, newEmail domain.Email) error {
	token, err := c.requireToken()
	if err != nil {
		return err
	}
	return c.backend.VerifyBeforeUpdateEmail(ctx, token, newEmail)
}

// SignOut revokes the token. Local state is cleared even when revocation fails.
func (c *Client) SignOut(ctx context.Context) error {
	c.mu.Lock()
	token := c.token
	c.mu.Unlock()

	var err error
	if token != "" {
		err = c.backend.SignOut(ctx, token)
	}
	c.setUser(nil, "")
	return err
}

func (c *Client) requireToken() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token == "" {
		return "", errors.NotAuthenticated()
	}
	return c.token, nil
}

func (c *Client) setUser(u *User, token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.user = copyUser(u)
	c.token = token
	for _, s := range c.subs {
		s.push(copyUser(u))
	}
}

func copyUser(u *User) *User {
	if u == nil {
		return nil
	}
	cp := *u
	return &cp
}

// subscriber delivers queued states to fn one at a time.
type subscriber struct {
	fn    func(*User)
	mu    sync.Mutex
	queue []*User
	wake  chan struct{}
	done  chan struct{}
	once  sync.Once
}

func newSubscriber(fn func(*User)) *subscriber {
	return &subscriber{
		fn:   fn,
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

func (s *subscriber) push(u *User) {
	s.mu.Lock()
	s.queue = append(s.queue, u)
	s.mu.Unlock()
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *subscriber) stop() {
	s.once.Do(func() { close(s.done) })
}

func (s *subscriber) run() {
	for {
		select {
		case <-s.done:
			return
		case <-s.wake:
		}
		for {
			s.mu.Lock()
			if len(s.queue) == 0 {
				s.mu.Unlock()
				break
			}
			u := s.queue[0]
			s.queue = s.queue[1:]
			s.mu.Unlock()

			select {
			case <-s.done:
				return
			default:
			}
			s.deliver(u)
		}
	}
}

func (s *subscriber) deliver(u *User) {
	defer func() {
		if r := recover(); r != nil {
			logger.Log.Error("auth state subscriber panicked", "panic", r)
		}
	}()
	s.fn(u)
}
