package service

import (
	"context"
	"fmt"
	"time"

	"github.com/catalyst-codex/codex/shared/docstore"
	"github.com/catalyst-codex/codex/shared/domain"
	"github.com/catalyst-codex/codex/shared/errors"
	"github.com/catalyst-codex/codex/shared/logger"
	"github.com/catalyst-codex/codex/shared/validation"
	"golang.org/x/sync/errgroup"
)

// to mock service in tests
type ForumService interface {
	GetCategories(ctx context.Context) ([]domain.Category, error)
	GetCategory(ctx context.Context, id domain.CategoryId) (domain.Category, error)
	GetThreadsByCategory(ctx context.Context, categoryId domain.CategoryId, page, pageSize int) (domain.CategoryThreads, error)
	GetThread(ctx context.Context, id domain.ThreadId) (domain.Thread, error)
	CreateThread(ctx context.Context, sess domain.Session, categoryId domain.CategoryId, title domain.ThreadTitle, content domain.PostContent) (domain.Thread, error)
	GetPostsByThread(ctx context.Context, threadId domain.ThreadId, page, pageSize int) (domain.Page[domain.Post], error)
	CreatePost(ctx context.Context, sess domain.Session, threadId domain.ThreadId, content domain.PostContent) (domain.Post, error)
	GetPostsByUser(ctx context.Context, uid domain.UserId, page, pageSize int) (domain.Page[domain.UserPost], error)
	SetupUserProfile(ctx context.Context, sess domain.Session, username domain.Username) error
	GetUserByUsername(ctx context.Context, username domain.Username) (domain.User, error)
}

// enrichmentLimit bounds the concurrent thread lookups of GetPostsByUser
const enrichmentLimit = 8

// Forum is the forum data-access layer. Listings fetch every matching
// document in order and window the result in memory.
type Forum struct {
	store      docstore.Store
	categories *CategoryCache
	now        func() time.Time
}

func NewForum(store docstore.Store, categories *CategoryCache) *Forum {
	return &Forum{store: store, categories: categories, now: time.Now}
}

func (f *Forum) GetCategories(ctx context.Context) ([]domain.Category, error) {
	docs, err := f.store.Query(ctx, docstore.Collection(domain.CategoriesCollection).OrderBy("sortOrder", docstore.Asc))
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	categories, err := decodeAll(docs, func(c *domain.Category, id string) { c.Id = id })
	if err != nil {
		return nil, err
	}
	for _, c := range categories {
		f.categories.Add(c)
	}
	return categories, nil
}

func (f *Forum) GetCategory(ctx context.Context, id domain.CategoryId) (domain.Category, error) {
	if c, ok := f.categories.Get(id); ok {
		return c, nil
	}
	doc, err := f.store.Get(ctx, domain.CategoriesCollection, id)
	if err != nil {
		if errors.IsNotFound(err) {
			return domain.Category{}, errors.NotFound("Category not found")
		}
		return domain.Category{}, fmt.Errorf("failed to get category: %w", err)
	}
	c, err := docstore.Decode[domain.Category](doc)
	if err != nil {
		return domain.Category{}, err
	}
	c.Id = doc.ID
	f.categories.Add(c)
	return c, nil
}

func (f *Forum) GetThreadsByCategory(ctx context.Context, categoryId domain.CategoryId, page, pageSize int) (domain.CategoryThreads, error) {
	if err := checkPage(page, pageSize); err != nil {
		return domain.CategoryThreads{}, err
	}
	category, err := f.GetCategory(ctx, categoryId)
	if err != nil {
		return domain.CategoryThreads{}, err
	}

	q := docstore.Collection(domain.ThreadsCollection).
		Where("categoryId", categoryId).
		OrderBy("isPinned", docstore.Desc).
		OrderBy("lastPostAt", docstore.Desc)
	docs, err := f.store.Query(ctx, q)
	if err != nil {
		return domain.CategoryThreads{}, fmt.Errorf("failed to list threads: %w", err)
	}
	threads, err := decodeAll(docs, func(t *domain.Thread, id string) { t.Id = id })
	if err != nil {
		return domain.CategoryThreads{}, err
	}
	return domain.CategoryThreads{Category: category, Threads: domain.Paginate(threads, page, pageSize)}, nil
}

func (f *Forum) GetThread(ctx context.Context, id domain.ThreadId) (domain.Thread, error) {
	doc, err := f.store.Get(ctx, domain.ThreadsCollection, id)
	if err != nil {
		if errors.IsNotFound(err) {
			return domain.Thread{}, errors.NotFound("Thread not found")
		}
		return domain.Thread{}, fmt.Errorf("failed to get thread: %w", err)
	}
	t, err := docstore.Decode[domain.Thread](doc)
	if err != nil {
		return domain.Thread{}, err
	}
	t.Id = doc.ID
	return t, nil
}

// CreateThread writes the thread, then its original post, both stamped with
// the same instant. The two writes are not atomic: when the second one fails
// the thread stays without posts.
func (f *Forum) CreateThread(ctx context.Context, sess domain.Session, categoryId domain.CategoryId, title domain.ThreadTitle, content domain.PostContent) (domain.Thread, error) {
	if !sess.Authenticated() {
		return domain.Thread{}, errors.NotAuthenticated()
	}
	title, err := validation.Title(title)
	if err != nil {
		return domain.Thread{}, err
	}
	content, err = validation.Content(content)
	if err != nil {
		return domain.Thread{}, err
	}
	if _, err := f.GetCategory(ctx, categoryId); err != nil {
		return domain.Thread{}, err
	}

	now := domain.NewTimestamp(f.now())
	thread := domain.Thread{
		Title:          title,
		CategoryId:     categoryId,
		AuthorId:       sess.Uid,
		AuthorUsername: sess.AuthorName(),
		CreatedAt:      now,
		LastPostAt:     now,
	}
	threadId, err := f.store.Add(ctx, domain.ThreadsCollection, thread)
	if err != nil {
		return domain.Thread{}, fmt.Errorf("failed to create thread: %w", err)
	}
	thread.Id = threadId
	threadsCreated.Inc()

	post := domain.Post{
		Content:        content,
		ThreadId:       threadId,
		AuthorId:       sess.Uid,
		AuthorUsername: sess.AuthorName(),
		CreatedAt:      now,
	}
	if _, err := f.store.Add(ctx, domain.PostsCollection, post); err != nil {
		partialWrites.WithLabelValues("create_thread").Inc()
		logger.Log.Error("thread created without its original post", "threadId", threadId, "error", err)
		return domain.Thread{}, fmt.Errorf("failed to create original post: %w", err)
	}
	postsCreated.Inc()

	logger.Log.Info("thread created", "threadId", threadId, "categoryId", categoryId, "uid", sess.Uid)
	return thread, nil
}

func (f *Forum) GetPostsByThread(ctx context.Context, threadId domain.ThreadId, page, pageSize int) (domain.Page[domain.Post], error) {
	if err := checkPage(page, pageSize); err != nil {
		return domain.Page[domain.Post]{}, err
	}
	q := docstore.Collection(domain.PostsCollection).
		Where("threadId", threadId).
		OrderBy("createdAt", docstore.Asc)
	docs, err := f.store.Query(ctx, q)
	if err != nil {
		return domain.Page[domain.Post]{}, fmt.Errorf("failed to list posts: %w", err)
	}
	posts, err := decodeAll(docs, func(p *domain.Post, id string) { p.Id = id })
	if err != nil {
		return domain.Page[domain.Post]{}, err
	}
	return domain.Paginate(posts, page, pageSize), nil
}

// CreatePost writes the post, then moves the thread's lastPostAt. A failure
// of the second write leaves the post in place.
func (f *Forum) CreatePost(ctx context.Context, sess domain.Session, threadId domain.ThreadId, content domain.PostContent) (domain.Post, error) {
	if !sess.Authenticated() {
		return domain.Post{}, errors.NotAuthenticated()
	}
	content, err := validation.Content(content)
	if err != nil {
		return domain.Post{}, err
	}
	thread, err := f.GetThread(ctx, threadId)
	if err != nil {
		return domain.Post{}, err
	}
	if thread.IsLocked {
		return domain.Post{}, errors.Forbidden("Thread is locked")
	}

	now := domain.NewTimestamp(f.now())
	post := domain.Post{
		Content:        content,
		ThreadId:       threadId,
		AuthorId:       sess.Uid,
		AuthorUsername: sess.AuthorName(),
		CreatedAt:      now,
	}
	postId, err := f.store.Add(ctx, domain.PostsCollection, post)
	if err != nil {
		return domain.Post{}, fmt.Errorf("failed to create post: %w", err)
	}
	post.Id = postId
	postsCreated.Inc()

	if err := f.store.Update(ctx, domain.ThreadsCollection, threadId, map[string]any{"lastPostAt": now}); err != nil {
		partialWrites.WithLabelValues("create_post").Inc()
		logger.Log.Error("post created but thread not bumped", "threadId", threadId, "postId", postId, "error", err)
		return domain.Post{}, fmt.Errorf("failed to update thread: %w", err)
	}
	return post, nil
}

// GetPostsByUser lists the posts of uid, newest first, each with the title
// and category of its thread. Threads that can't be loaded are reported as
// UnknownThreadTitle.
func (f *Forum) GetPostsByUser(ctx context.Context, uid domain.UserId, page, pageSize int) (domain.Page[domain.UserPost], error) {
	if err := checkPage(page, pageSize); err != nil {
		return domain.Page[domain.UserPost]{}, err
	}
	q := docstore.Collection(domain.PostsCollection).
		Where("authorId", uid).
		OrderBy("createdAt", docstore.Desc)
	docs, err := f.store.Query(ctx, q)
	if err != nil {
		return domain.Page[domain.UserPost]{}, fmt.Errorf("failed to list posts: %w", err)
	}
	posts, err := decodeAll(docs, func(p *domain.Post, id string) { p.Id = id })
	if err != nil {
		return domain.Page[domain.UserPost]{}, err
	}

	threads, err := f.lookupThreads(ctx, posts)
	if err != nil {
		return domain.Page[domain.UserPost]{}, err
	}
	enriched := make([]domain.UserPost, len(posts))
	for i, p := range posts {
		enriched[i] = domain.UserPost{Post: p, ThreadTitle: domain.UnknownThreadTitle}
		if t, ok := threads[p.ThreadId]; ok {
			enriched[i].ThreadTitle = t.Title
			enriched[i].CategoryId = t.CategoryId
		}
	}
	return domain.Paginate(enriched, page, pageSize), nil
}

// lookupThreads loads the distinct threads of posts concurrently. Missing
// threads are left out of the result.
func (f *Forum) lookupThreads(ctx context.Context, posts []domain.Post) (map[domain.ThreadId]domain.Thread, error) {
	ids := make([]domain.ThreadId, 0)
	seen := make(map[domain.ThreadId]bool)
	for _, p := range posts {
		if !seen[p.ThreadId] {
			seen[p.ThreadId] = true
			ids = append(ids, p.ThreadId)
		}
	}

	found := make([]*domain.Thread, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(enrichmentLimit)
	for i, id := range ids {
		g.Go(func() error {
			t, err := f.GetThread(gctx, id)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				if !errors.IsNotFound(err) {
					logger.Log.Warn("thread lookup failed", "threadId", id, "error", err)
				}
				return nil
			}
			found[i] = &t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	threads := make(map[domain.ThreadId]domain.Thread, len(ids))
	for _, t := range found {
		if t != nil {
			threads[t.Id] = *t
		}
	}
	return threads, nil
}

// SetupUserProfile creates the profile of the session's user unless one
// exists already. Existing profiles are left untouched.
func (f *Forum) SetupUserProfile(ctx context.Context, sess domain.Session, username domain.Username) error {
	if !sess.Authenticated() {
		return errors.NotAuthenticated()
	}
	_, err := f.store.Get(ctx, domain.UsersCollection, sess.Uid)
	if err == nil {
		return nil
	}
	if !errors.IsNotFound(err) {
		return fmt.Errorf("failed to get user profile: %w", err)
	}

	profile := domain.UserProfile{
		Username:  username,
		Email:     sess.Email,
		Enabled:   true,
		CreatedAt: domain.NewTimestamp(f.now()),
	}
	if err := f.store.Set(ctx, domain.UsersCollection, sess.Uid, profile); err != nil {
		return fmt.Errorf("failed to create user profile: %w", err)
	}
	logger.Log.Info("user profile created", "uid", sess.Uid, "username", username)
	return nil
}

func (f *Forum) GetUserByUsername(ctx context.Context, username domain.Username) (domain.User, error) {
	q := docstore.Collection(domain.UsersCollection).Where("username", username).WithLimit(1)
	docs, err := f.store.Query(ctx, q)
	if err != nil {
		return domain.User{}, fmt.Errorf("failed to look up user: %w", err)
	}
	if len(docs) == 0 {
		return domain.User{}, errors.NotFound("User not found")
	}
	profile, err := docstore.Decode[domain.UserProfile](docs[0])
	if err != nil {
		return domain.User{}, err
	}
	return domain.User{Uid: docs[0].ID, UserProfile: profile}, nil
}

func checkPage(page, pageSize int) error {
	if pageSize < 1 {
		return errors.Validation("Page size must be at least 1")
	}
	if page < 0 {
		return errors.Validation("Page must not be negative")
	}
	return nil
}

func decodeAll[T any](docs []docstore.Document, setId func(*T, string)) ([]T, error) {
	out := make([]T, 0, len(docs))
	for _, doc := range docs {
		v, err := docstore.Decode[T](doc)
		if err != nil {
			return nil, err
		}
		setId(&v, doc.ID)
		out = append(out, v)
	}
	return out, nil
}
