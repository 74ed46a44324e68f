package api

import "github.com/catalyst-codex/codex/shared/domain"

// Request DTOs

type CreateThreadRequest struct {
	Title   string `json:"title" validate:"required"`
	Content string `json:"content" validate:"required"`
}

type CreatePostRequest struct {
	Content string `json:"content" validate:"required"`
}

// Response DTOs

type CategoryListResponse struct {
	Categories []domain.Category `json:"categories"`
}

type CategoryResponse struct {
	domain.Category
}

type CategoryThreadsResponse struct {
	Category domain.Category            `json:"category"`
	Threads  domain.Page[domain.Thread] `json:"threads"`
}

type ThreadResponse struct {
	domain.Thread
}

type PostResponse struct {
	domain.Post
	ContentHTML string `json:"content_html"`
}

type ThreadPostsResponse struct {
	Thread domain.Thread             `json:"thread"`
	Posts  domain.Page[PostResponse] `json:"posts"`
}
