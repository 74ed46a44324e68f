package api

import "github.com/catalyst-codex/codex/shared/domain"

// SettingsRequest bounds every page size to 1..100, matching settings.Validate.
type SettingsRequest struct {
	ThreadsPerPage      int `json:"threadsPerPage" validate:"required,min=1,max=100"`
	PostsPerPage        int `json:"postsPerPage" validate:"required,min=1,max=100"`
	ProfilePostsPerPage int `json:"profilePostsPerPage" validate:"required,min=1,max=100"`
}

func (r SettingsRequest) Settings() domain.UserSettings {
	return domain.UserSettings{
		ThreadsPerPage:      r.ThreadsPerPage,
		PostsPerPage:        r.PostsPerPage,
		ProfilePostsPerPage: r.ProfilePostsPerPage,
	}
}

type SettingsResponse struct {
	domain.UserSettings
}

type UserResponse struct {
	domain.User
}

type UserPostResponse struct {
	domain.UserPost
	ContentHTML string `json:"content_html"`
}

type UserPostsResponse struct {
	User  domain.User                   `json:"user"`
	Posts domain.Page[UserPostResponse] `json:"posts"`
}
