package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mfonseca/accounthub/internal/config"
	"github.com/mfonseca/accounthub/internal/domain/user"
	"github.com/mfonseca/accounthub/internal/http/middlewares"
	"github.com/mfonseca/accounthub/internal/repo/postgres"
	"github.com/mfonseca/accounthub/internal/security"
)

// AccountStore is the slice of the users repository the self-service
// endpoints need.
type AccountStore interface {
	GetByID(ctx context.Context, id int64) (user.User, error)
	EmailTakenByOther(ctx context.Context, email string, selfID int64) (bool, error)
	UpdateProfile(ctx context.Context, id int64, req user.UpdateProfileRequest) (user.User, error)
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
}

type AccountHandler struct {
	users AccountStore
}

func NewAccountHandler(users AccountStore) *AccountHandler {
	return &AccountHandler{users: users}
}

func (h *AccountHandler) GetProfile(ctx *gin.Context) {
	id, ok := middlewares.UserIDFromContext(ctx)

	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity context")
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	u, err := h.users.GetByID(cctx, id)

	if err != nil {
		if errors.Is(err, postgres.ErrUserNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}

		RespondInternal(ctx, "Could not fetch profile")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"user": u,
	})
}

func (h *AccountHandler) UpdateProfile(ctx *gin.Context) {
	id, ok := middlewares.UserIDFromContext(ctx)

	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity context")
		return
	}

	var req user.UpdateProfileRequest

	if !BindJSON(ctx, &req) {
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	req.Phone = strings.TrimSpace(req.Phone)
	req.Address = strings.TrimSpace(req.Address)

	if req.Username == "" {
		RespondBadRequest(ctx, "invalid_request", "Username and email cannot be empty")
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	// The caller's own row is excluded from the uniqueness check.
	taken, err := h.users.EmailTakenByOther(cctx, req.Email, id)

	if err != nil {
		RespondInternal(ctx, "Could not update profile")
		return
	}

	if taken {
		RespondBadRequest(ctx, "email_taken", "Email is already taken")
		return
	}

	u, err := h.users.UpdateProfile(cctx, id, req)

	if err != nil {
		switch {
		case errors.Is(err, postgres.ErrUserNotFound):
			RespondNotFound(ctx, "User not found")
		case errors.Is(err, postgres.ErrEmailTaken):
			// Lost the race against a concurrent write; same answer.
			RespondBadRequest(ctx, "email_taken", "Email is already taken")
		default:
			RespondInternal(ctx, "Could not update profile")
		}
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Profile updated successfully",
		"user":    u,
	})
}

func (h *AccountHandler) ChangePassword(ctx *gin.Context) {
	id, ok := middlewares.UserIDFromContext(ctx)

	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity context")
		return
	}

	var req user.ChangePasswordRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	u, err := h.users.GetByID(cctx, id)

	if err != nil {
		if errors.Is(err, postgres.ErrUserNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}

		RespondInternal(ctx, "Could not change password")
		return
	}

	// The caller is already authenticated; this re-proves possession, so a
	// mismatch is a 400, not a 401.
	if err := security.CheckPassword(u.PasswordHash, req.CurrentPassword); err != nil {
		RespondBadRequest(ctx, "incorrect_password", "Current password is incorrect")
		return
	}

	hash, err := security.HashPassword(req.NewPassword)

	if err != nil {
		RespondInternal(ctx, "Could not change password")
		return
	}

	if err := h.users.UpdatePassword(cctx, id, hash); err != nil {
		if errors.Is(err, postgres.ErrUserNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}

		RespondInternal(ctx, "Could not change password")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Password changed successfully",
	})
}
