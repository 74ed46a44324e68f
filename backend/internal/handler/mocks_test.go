package handler

import (
	"context"
	"sync"

	"github.com/catalyst-codex/codex/shared/domain"
)

// --- Mocks ---

type MockForumService struct {
	MockGetCategories        func(ctx context.Context) ([]domain.Category, error)
	MockGetCategory          func(ctx context.Context, id domain.CategoryId) (domain.Category, error)
	MockGetThreadsByCategory func(ctx context.Context, categoryId domain.CategoryId, page, pageSize int) (domain.CategoryThreads, error)
	MockGetThread            func(ctx context.Context, id domain.ThreadId) (domain.Thread, error)
	MockCreateThread         func(ctx context.Context, sess domain.Session, categoryId domain.CategoryId, title domain.ThreadTitle, content domain.PostContent) (domain.Thread, error)
	MockGetPostsByThread     func(ctx context.Context, threadId domain.ThreadId, page, pageSize int) (domain.Page[domain.Post], error)
	MockCreatePost           func(ctx context.Context, sess domain.Session, threadId domain.ThreadId, content domain.PostContent) (domain.Post, error)
	MockGetPostsByUser       func(ctx context.Context, uid domain.UserId, page, pageSize int) (domain.Page[domain.UserPost], error)
	MockSetupUserProfile     func(ctx context.Context, sess domain.Session, username domain.Username) error
	MockGetUserByUsername    func(ctx context.Context, username domain.Username) (domain.User, error)
}

func (m *MockForumService) GetCategories(ctx context.Context) ([]domain.Category, error) {
	if m.MockGetCategories != nil {
		return m.MockGetCategories(ctx)
	}
	return nil, nil
}

func (m *MockForumService) GetCategory(ctx context.Context, id domain.CategoryId) (domain.Category, error) {
	if m.MockGetCategory != nil {
		return m.MockGetCategory(ctx, id)
	}
	return domain.Category{Id: id}, nil
}

func (m *MockForumService) GetThreadsByCategory(ctx context.Context, categoryId domain.CategoryId, page, pageSize int) (domain.CategoryThreads, error) {
	if m.MockGetThreadsByCategory != nil {
		return m.MockGetThreadsByCategory(ctx, categoryId, page, pageSize)
	}
	return domain.CategoryThreads{}, nil
}

func (m *MockForumService) GetThread(ctx context.Context, id domain.ThreadId) (domain.Thread, error) {
	if m.MockGetThread != nil {
		return m.MockGetThread(ctx, id)
	}
	return domain.Thread{Id: id}, nil
}

func (m *MockForumService) CreateThread(ctx context.Context, sess domain.Session, categoryId domain.CategoryId, title domain.ThreadTitle, content domain.PostContent) (domain.Thread, error) {
	if m.MockCreateThread != nil {
		return m.MockCreateThread(ctx, sess, categoryId, title, content)
	}
	return domain.Thread{}, nil
}

func (m *MockForumService) GetPostsByThread(ctx context.Context, threadId domain.ThreadId, page, pageSize int) (domain.Page[domain.Post], error) {
	if m.MockGetPostsByThread != nil {
		return m.MockGetPostsByThread(ctx, threadId, page, pageSize)
	}
	return domain.Page[domain.Post]{}, nil
}

func (m *MockForumService) CreatePost(ctx context.Context, sess domain.Session, threadId domain.ThreadId, content domain.PostContent) (domain.Post, error) {
	if m.MockCreatePost != nil {
		return m.MockCreatePost(ctx, sess, threadId, content)
	}
	return domain.Post{}, nil
}

func (m *MockForumService) GetPostsByUser(ctx context.Context, uid domain.UserId, page, pageSize int) (domain.Page[domain.UserPost], error) {
	if m.MockGetPostsByUser != nil {
		return m.MockGetPostsByUser(ctx, uid, page, pageSize)
	}
	return domain.Page[domain.UserPost]{}, nil
}

func (m *MockForumService) SetupUserProfile(ctx context.Context, sess domain.Session, username domain.Username) error {
	if m.MockSetupUserProfile != nil {
		return m.MockSetupUserProfile(ctx, sess, username)
	}
	return nil
}

func (m *MockForumService) GetUserByUsername(ctx context.Context, username domain.Username) (domain.User, error) {
	if m.MockGetUserByUsername != nil {
		return m.MockGetUserByUsername(ctx, username)
	}
	return domain.User{}, nil
}

type MockHealthChecker struct {
	PingFunc func(ctx context.Context) error
}

func (m *MockHealthChecker) Ping(ctx context.Context) error {
	if m.PingFunc != nil {
		return m.PingFunc(ctx)
	}
	return nil // Default: healthy
}

type sentMail struct {
	recipient string
	body      string
}

type MockSender struct {
	mu   sync.Mutex
	sent []sentMail
}

func (m *MockSender) Send(recipient, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{recipient: recipient, body: body})
	return nil
}

func (m *MockSender) last() (sentMail, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return sentMail{}, false
	}
	return m.sent[len(m.sent)-1], true
}
