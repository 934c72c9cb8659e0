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
	"github.com/mfonseca/accounthub/internal/observability"
	"github.com/mfonseca/accounthub/internal/repo/postgres"
	"github.com/mfonseca/accounthub/internal/security"
)

type UserReader interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
}

type UserWriter interface {
	Create(ctx context.Context, username, email, passwordHash string, role user.Role) (int64, error)
}

type TokenIssuer interface {
	GenerateAccessToken(userID int64, roleCode string) (string, error)
}

type AuthHandler struct {
	users  UserReader
	writer UserWriter
	jwt    TokenIssuer
	prom   *observability.Prom
}

func NewAuthHandler(users UserReader, writer UserWriter, jwt TokenIssuer, prom *observability.Prom) *AuthHandler {
	return &AuthHandler{
		users:  users,
		writer: writer,
		jwt:    jwt,
		prom:   prom,
	}
}

func (h *AuthHandler) countAuth(op, result string) {
	if h.prom != nil {
		h.prom.AuthResults.WithLabelValues(op, result).Inc()
	}
}

func (h *AuthHandler) Register(ctx *gin.Context) {
	var req user.RegisterRequest

	if !BindJSON(ctx, &req) {
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)

	if req.Username == "" {
		RespondBadRequest(ctx, "invalid_request", "All fields are required")
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)

	defer cancel()

	hash, err := security.HashPassword(req.Password)

	if err != nil {
		h.countAuth("register", "error")
		RespondInternal(ctx, "Could not create user")
		return
	}

	// registration always starts at the regular role

	_, err = h.writer.Create(cctx, req.Username, req.Email, hash, user.RoleUser)

	if err != nil {
		if errors.Is(err, postgres.ErrEmailTaken) {
			h.countAuth("register", "rejected")
			RespondBadRequest(ctx, "email_taken", "Email already exists")
			return
		}

		h.countAuth("register", "error")
		RespondInternal(ctx, "Could not create user")
		return
	}

	h.countAuth("register", "ok")

	ctx.JSON(http.StatusCreated, gin.H{
		"message": "Registration successful",
	})
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var req user.LoginRequest

	if !BindJSON(ctx, &req) {
		return
	}

	// short timeout for DB lookup
	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	foundUser, err := h.users.GetByEmail(cctx, req.Email)
	if err != nil {
		if errors.Is(err, postgres.ErrUserNotFound) {
			// Distinct messages are part of the legacy contract; both deny.
			h.countAuth("login", "rejected")
			RespondUnAuthorized(ctx, "invalid_credentials", "User not found")
			return
		}

		h.countAuth("login", "error")
		RespondInternal(ctx, "Could not log in")
		return
	}

	err = security.CheckPassword(foundUser.PasswordHash, req.Password)

	if err != nil {
		h.countAuth("login", "rejected")
		RespondUnAuthorized(ctx, "invalid_credentials", "Invalid credentials")
		return
	}

	accessToken, err := h.jwt.GenerateAccessToken(foundUser.ID, foundUser.Role.Code())

	if err != nil {
		h.countAuth("login", "error")
		RespondInternal(ctx, "Could not generate access token")
		return
	}

	h.countAuth("login", "ok")

	// PasswordHash carries a json:"-" tag, so the hash never leaves here.
	ctx.JSON(http.StatusOK, gin.H{
		"accessToken": accessToken,
		"user":        foundUser,
	})
}
