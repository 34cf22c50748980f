package handler

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sysu-ecnc-dev/talentum/backend/internal/domain"
	"github.com/sysu-ecnc-dev/talentum/backend/internal/utils"
	"golang.org/x/crypto/bcrypt"
)

func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	myInfo := myInfoFrom(r)
	h.successResponse(w, r, "profile retrieved", myInfo)
}

// UpdateProfile changes the user's names and phone number. Username, email and role are
// read-only here.
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	myInfo := myInfoFrom(r)

	var req struct {
		FirstName   *string `json:"firstName" validate:"omitnil,min=1,max=150"`
		LastName    *string `json:"lastName" validate:"omitnil,max=150"`
		PhoneNumber *string `json:"phoneNumber" validate:"omitnil,max=20"`
	}

	if err := h.readJSON(w, r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	if req.FirstName != nil {
		myInfo.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		myInfo.LastName = *req.LastName
	}
	if req.PhoneNumber != nil {
		if *req.PhoneNumber == "" {
			myInfo.PhoneNumber = nil
		} else {
			myInfo.PhoneNumber = req.PhoneNumber
		}
	}

	if err := h.repository.UpdateUser(r.Context(), myInfo); err != nil {
		h.handleError(w, r, staleAsConflict(err))
		return
	}

	h.successResponse(w, r, "profile updated", myInfo)
}

func (h *Handler) UpdateMyPassword(w http.ResponseWriter, r *http.Request) {
	myInfo := myInfoFrom(r)

	var req struct {
		OldPassword string `json:"oldPassword" validate:"required"`
		NewPassword string `json:"newPassword" validate:"required"`
	}

	if err := h.readJSON(w, r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(myInfo.PasswordHash), []byte(req.OldPassword)); err != nil {
		h.badRequest(w, r, domain.NewFieldError("oldPassword", "old password is incorrect"))
		return
	}
	if err := utils.ValidatePassword("newPassword", req.NewPassword, myInfo.Username, utils.EmailLocalPart(myInfo.Email)); err != nil {
		h.badRequest(w, r, err)
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	myInfo.PasswordHash = string(hashedPassword)

	if err := h.repository.UpdateUser(r.Context(), myInfo); err != nil {
		h.handleError(w, r, staleAsConflict(err))
		return
	}

	h.successResponse(w, r, "password updated", nil)
}

func verifyEmailKey(userID int64) string {
	return fmt.Sprintf("otp_%d_verify_email", userID)
}

// RequireVerifyEmail stores a one time code in redis and mails it to the user.
func (h *Handler) RequireVerifyEmail(w http.ResponseWriter, r *http.Request) {
	myInfo := myInfoFrom(r)

	if myInfo.IsEmailVerified {
		h.errorResponse(w, r, http.StatusBadRequest, "email is already verified")
		return
	}

	otp := utils.GenerateRandomOTP()

	ctx, cancel := h.redisContext(r)
	defer cancel()

	if err := h.redisClient.Set(ctx, verifyEmailKey(myInfo.ID), otp, time.Duration(h.config.OTP.Expiration)*time.Second).Err(); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	if err := h.publisher.Publish(r.Context(), domain.MailMessage{
		Type: domain.MailVerifyEmail,
		To:   myInfo.Email,
		Data: domain.VerifyEmailMailData{
			FullName:   myInfo.FullName(),
			OTP:        otp,
			Expiration: h.config.OTP.Expiration / 60, // minutes in the mail, seconds in config
		},
	}); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "verification code sent", nil)
}

func (h *Handler) ConfirmVerifyEmail(w http.ResponseWriter, r *http.Request) {
	myInfo := myInfoFrom(r)

	var req struct {
		OTP string `json:"otp" validate:"required,len=6,numeric"`
	}

	if err := h.readJSON(w, r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	ctx, cancel := h.redisContext(r)
	defer cancel()

	otp, err := h.redisClient.Get(ctx, verifyEmailKey(myInfo.ID)).Result()
	if err != nil {
		switch {
		case errors.Is(err, redis.Nil):
			h.badRequest(w, r, domain.NewFieldError("otp", "verification code is invalid or expired"))
		default:
			h.internalServerError(w, r, err)
		}
		return
	}
	if otp != req.OTP {
		h.badRequest(w, r, domain.NewFieldError("otp", "verification code is invalid or expired"))
		return
	}

	myInfo.IsEmailVerified = true
	if err := h.repository.UpdateUser(r.Context(), myInfo); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.conflict(w, r)
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	if err := h.redisClient.Del(ctx, verifyEmailKey(myInfo.ID)).Err(); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "email verified", myInfo)
}
