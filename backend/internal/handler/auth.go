package handler

import (
	"net/http"

	"github.com/catalyst-codex/codex/backend/internal/session"
	"github.com/catalyst-codex/codex/shared/api"
	"github.com/catalyst-codex/codex/shared/logger"
	mw "github.com/catalyst-codex/codex/shared/middleware"
	"github.com/catalyst-codex/codex/shared/utils"
)

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var body api.RegisterRequest
	if err := utils.DecodeValidate(r.Body, &body); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	p := h.sessions.New()
	defer p.Close()
	if _, err := p.Register(r.Context(), body.Email, body.Password, body.Username); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	h.auth.SetAuthCookie(w, p.IdToken(r.Context()), h.cfg.JwtTTL())

	utils.WriteJSON(w, http.StatusCreated, api.RegisterResponse{
		Message: "Registration successful. Please check your email to verify your account.",
	})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var body api.LoginRequest
	if err := utils.DecodeValidate(r.Body, &body); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	p := h.sessions.New()
	defer p.Close()
	if _, err := p.Login(r.Context(), body.Email, body.Password); err != nil {
		utils.WriteErrorAndStatusCode(w, withMessage(err, session.DisplayMessage(err)))
		return
	}
	token := p.IdToken(r.Context())
	h.auth.SetAuthCookie(w, token, h.cfg.JwtTTL())

	utils.WriteJSON(w, http.StatusOK, api.LoginResponse{Message: "You logged in", AccessToken: token})
}

// Logout revokes the presented token when there is one. The cookie is
// cleared in any case.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if token := mw.TokenFromRequest(r); token != "" {
		p, err := h.sessions.Restore(r.Context(), token)
		if err != nil {
			logger.Log.Debug("logout with unusable token", "error", err)
		} else {
			p.Logout(r.Context())
			p.Close()
		}
	}
	h.auth.ClearAuthCookie(w)

	utils.WriteJSON(w, http.StatusOK, api.MessageResponse{Message: "You logged out"})
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	sess := mw.GetSessionFromContext(r)
	utils.WriteJSON(w, http.StatusOK, api.SessionStateResponse{
		IsLoggedIn: sess.Authenticated(),
		Username:   sess.Username,
		Email:      sess.Email,
		Uid:        sess.Uid,
	})
}

func (h *Handler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var body api.CodeRequest
	if err := utils.DecodeValidate(r.Body, &body); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	if err := h.sessions.VerifyEmail(r.Context(), body.Code); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, api.MessageResponse{Message: "Your email has been verified."})
}

func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var body api.ChangePasswordRequest
	if err := utils.DecodeValidate(r.Body, &body); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	p, err := h.sessions.Restore(r.Context(), mw.GetSessionFromContext(r).Token)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	defer p.Close()

	if err := p.ChangePassword(r.Context(), body.CurrentPassword, body.NewPassword); err != nil {
		utils.WriteErrorAndStatusCode(w, withMessage(err, session.ReauthMessage(err)))
		return
	}
	utils.WriteJSON(w, http.StatusOK, api.MessageResponse{Message: "Password updated successfully!"})
}

func (h *Handler) ChangeEmail(w http.ResponseWriter, r *http.Request) {
	var body api.ChangeEmailRequest
	if err := utils.DecodeValidate(r.Body, &body); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	p, err := h.sessions.Restore(r.Context(), mw.GetSessionFromContext(r).Token)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	defer p.Close()

	if err := p.ChangeEmail(r.Context(), body.CurrentPassword, body.NewEmail); err != nil {
		utils.WriteErrorAndStatusCode(w, withMessage(err, session.ReauthMessage(err)))
		return
	}
	utils.WriteJSON(w, http.StatusOK, api.MessageResponse{
		Message: "Verification email sent to your new address. Please check your inbox.",
	})
}

// ConfirmEmailChange applies the code mailed to the new address.
func (h *Handler) ConfirmEmailChange(w http.ResponseWriter, r *http.Request) {
	var body api.CodeRequest
	if err := utils.DecodeValidate(r.Body, &body); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	user, err := h.sessions.ApplyEmailChange(r.Context(), body.Code)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, api.MessageResponse{Message: "Your email has been changed to " + user.Email + "."})
}
