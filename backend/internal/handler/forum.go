package handler

import (
	"net/http"

	"github.com/catalyst-codex/codex/shared/api"
	mw "github.com/catalyst-codex/codex/shared/middleware"
	"github.com/catalyst-codex/codex/shared/utils"
	"github.com/go-chi/chi/v5"
)

func (h *Handler) GetCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.forum.GetCategories(r.Context())
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, api.CategoryListResponse{Categories: categories})
}

func (h *Handler) GetCategory(w http.ResponseWriter, r *http.Request) {
	category, err := h.forum.GetCategory(r.Context(), chi.URLParam(r, "category"))
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, api.CategoryResponse{Category: category})
}

func (h *Handler) GetCategoryThreads(w http.ResponseWriter, r *http.Request) {
	sess := mw.GetSessionFromContext(r)
	page, size, err := pageParams(r, h.settings.Read(r.Context(), sess.Uid).ThreadsPerPage)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	res, err := h.forum.GetThreadsByCategory(r.Context(), chi.URLParam(r, "category"), page, size)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, api.CategoryThreadsResponse{Category: res.Category, Threads: res.Threads})
}

func (h *Handler) CreateThread(w http.ResponseWriter, r *http.Request) {
	var body api.CreateThreadRequest
	if err := utils.DecodeValidate(r.Body, &body); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	thread, err := h.forum.CreateThread(r.Context(), mw.GetSessionFromContext(r), chi.URLParam(r, "category"), body.Title, body.Content)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, api.ThreadResponse{Thread: thread})
}

func (h *Handler) GetThread(w http.ResponseWriter, r *http.Request) {
	thread, err := h.forum.GetThread(r.Context(), chi.URLParam(r, "thread"))
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, api.ThreadResponse{Thread: thread})
}

func (h *Handler) GetThreadPosts(w http.ResponseWriter, r *http.Request) {
	sess := mw.GetSessionFromContext(r)
	page, size, err := pageParams(r, h.settings.Read(r.Context(), sess.Uid).PostsPerPage)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	threadId := chi.URLParam(r, "thread")
	thread, err := h.forum.GetThread(r.Context(), threadId)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	posts, err := h.forum.GetPostsByThread(r.Context(), threadId, page, size)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, api.ThreadPostsResponse{Thread: thread, Posts: h.renderPosts(posts)})
}

func (h *Handler) CreatePost(w http.ResponseWriter, r *http.Request) {
	var body api.CreatePostRequest
	if err := utils.DecodeValidate(r.Body, &body); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	post, err := h.forum.CreatePost(r.Context(), mw.GetSessionFromContext(r), chi.URLParam(r, "thread"), body.Content)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, api.PostResponse{Post: post, ContentHTML: h.markdown.Render(post.Content)})
}

func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.forum.GetUserByUsername(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, api.UserResponse{User: user})
}

func (h *Handler) GetUserPosts(w http.ResponseWriter, r *http.Request) {
	sess := mw.GetSessionFromContext(r)
	page, size, err := pageParams(r, h.settings.Read(r.Context(), sess.Uid).ProfilePostsPerPage)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	user, err := h.forum.GetUserByUsername(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	posts, err := h.forum.GetPostsByUser(r.Context(), user.Uid, page, size)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, api.UserPostsResponse{User: user, Posts: h.renderUserPosts(posts)})
}
