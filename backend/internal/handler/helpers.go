package handler

import (
	"net/http"

	"github.com/catalyst-codex/codex/shared/api"
	"github.com/catalyst-codex/codex/shared/domain"
	"github.com/catalyst-codex/codex/shared/errors"
	"github.com/catalyst-codex/codex/shared/utils"
)

// pageParams reads the zero-based page and the page size. A missing size
// falls back to defaultSize, the caller's stored preference.
func pageParams(r *http.Request, defaultSize int) (page, size int, err error) {
	page, _, err = utils.QueryInt(r, "page")
	if err != nil {
		return 0, 0, err
	}
	size, ok, err := utils.QueryInt(r, "size")
	if err != nil {
		return 0, 0, err
	}
	if !ok {
		size = defaultSize
	}
	return page, size, nil
}

func (h *Handler) renderPosts(page domain.Page[domain.Post]) domain.Page[api.PostResponse] {
	items := make([]api.PostResponse, len(page.Items))
	for i, p := range page.Items {
		items[i] = api.PostResponse{Post: p, ContentHTML: h.markdown.Render(p.Content)}
	}
	return domain.Page[api.PostResponse]{
		Items:         items,
		CurrentPage:   page.CurrentPage,
		TotalPages:    page.TotalPages,
		TotalElements: page.TotalElements,
	}
}

func (h *Handler) renderUserPosts(page domain.Page[domain.UserPost]) domain.Page[api.UserPostResponse] {
	items := make([]api.UserPostResponse, len(page.Items))
	for i, p := range page.Items {
		items[i] = api.UserPostResponse{UserPost: p, ContentHTML: h.markdown.Render(p.Content)}
	}
	return domain.Page[api.UserPostResponse]{
		Items:         items,
		CurrentPage:   page.CurrentPage,
		TotalPages:    page.TotalPages,
		TotalElements: page.TotalElements,
	}
}

// withMessage replaces the text of a client error, keeping its status and
// code. Internal errors are passed through untouched.
func withMessage(err error, message string) error {
	status := errors.StatusCode(err)
	if status == http.StatusInternalServerError {
		return err
	}
	return &errors.ErrorWithStatusCode{Message: message, StatusCode: status, Code: errors.Code(err)}
}
