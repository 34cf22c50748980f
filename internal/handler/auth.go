package handler

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sysu-ecnc-dev/talentum/backend/internal/domain"
	"github.com/sysu-ecnc-dev/talentum/backend/internal/token"
	"github.com/sysu-ecnc-dev/talentum/backend/internal/utils"
	"golang.org/x/crypto/bcrypt"
)

type authResponse struct {
	User   *domain.User `json:"user"`
	Tokens *token.Pair  `json:"tokens"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username        string  `json:"username" validate:"required,max=150"`
		Email           string  `json:"email" validate:"required,email,max=254"`
		Password        string  `json:"password" validate:"required"`
		PasswordConfirm string  `json:"passwordConfirm" validate:"required"`
		FirstName       string  `json:"firstName" validate:"required,max=150"`
		LastName        string  `json:"lastName" validate:"max=150"`
		PhoneNumber     *string `json:"phoneNumber" validate:"omitempty,max=20"`
	}

	if err := h.readJSON(w, r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	// nothing is written unless the confirmation matches
	if req.Password != req.PasswordConfirm {
		h.badRequest(w, r, domain.NewFieldError("passwordConfirm", "password fields didn't match"))
		return
	}
	if err := utils.ValidatePassword("password", req.Password, req.Username, utils.EmailLocalPart(req.Email)); err != nil {
		h.badRequest(w, r, err)
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	isExists, err := h.repository.CheckEmailIfExists(r.Context(), req.Email)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}
	if isExists {
		h.badRequest(w, r, domain.NewFieldError("email", "a user with this email already exists"))
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	user := &domain.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hashedPassword),
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		PhoneNumber:  req.PhoneNumber,
		Role:         domain.RoleEmployee,
	}

	// a concurrent registration can still hit the unique constraints
	if err := h.repository.CreateUser(r.Context(), user); err != nil {
		h.handleError(w, r, err)
		return
	}

	tokens, err := h.tokens.Issue(r.Context(), user)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	if err := h.publisher.Publish(r.Context(), domain.MailMessage{
		Type: domain.MailWelcome,
		To:   user.Email,
		Data: domain.WelcomeMailData{
			FullName: user.FullName(),
			Username: user.Username,
		},
	}); err != nil {
		slog.Warn("failed to queue welcome mail", "user", user.ID, "error", err)
	}

	h.createdResponse(w, r, "registration successful", authResponse{User: user, Tokens: tokens})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	if err := h.readJSON(w, r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	user, err := h.repository.GetUserByEmail(r.Context(), strings.TrimSpace(req.Email))
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.errorResponse(w, r, http.StatusBadRequest, "invalid email or password")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		switch {
		case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
			h.errorResponse(w, r, http.StatusBadRequest, "invalid email or password")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	if !user.IsActive {
		h.errorResponse(w, r, http.StatusBadRequest, "user account is disabled")
		return
	}

	tokens, err := h.tokens.Issue(r.Context(), user)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "login successful", authResponse{User: user, Tokens: tokens})
}

func (h *Handler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Refresh string `json:"refresh" validate:"required"`
	}

	if err := h.readJSON(w, r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	tokens, err := h.tokens.Rotate(r.Context(), req.Refresh, h.repository.GetUserByID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUnauthenticated):
			h.unauthorized(w, r, err.Error())
		case errors.Is(err, sql.ErrNoRows):
			h.unauthorized(w, r, "user not found")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "token refreshed", tokens)
}

// Logout revokes the refresh token when one is given. Revocation is best effort: the
// request succeeds even if the token is unknown, malformed or already revoked.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refreshToken"`
	}

	if err := h.readOptionalJSON(w, r, &req); err != nil {
		slog.Warn("ignoring unreadable logout body", "error", err)
	}

	if req.RefreshToken != "" {
		if err := h.tokens.Revoke(r.Context(), req.RefreshToken); err != nil {
			slog.Warn("refresh token revocation failed", "user", myInfoFrom(r).ID, "error", err)
		}
	}

	h.successResponse(w, r, "logout successful", nil)
}
