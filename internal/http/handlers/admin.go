package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mfonseca/accounthub/internal/config"
	"github.com/mfonseca/accounthub/internal/domain/user"
	"github.com/mfonseca/accounthub/internal/http/middlewares"
	"github.com/mfonseca/accounthub/internal/repo/postgres"
)

// AdminStore is the slice of the users repository the admin endpoints need.
type AdminStore interface {
	List(ctx context.Context, limit, offset int) ([]user.Summary, int, error)
	Exists(ctx context.Context, id int64) (bool, error)
	UpdateRole(ctx context.Context, id int64, role user.Role) error
}

type AdminHandler struct {
	users AdminStore
}

func NewAdminHandler(users AdminStore) *AdminHandler {
	return &AdminHandler{users: users}
}

const (
	defaultPageLimit = 10
	maxPageLimit     = 100
)

// queryInt mirrors the lenient legacy parsing: absent means the default,
// anything unparseable means zero and gets clamped below.
func queryInt(ctx *gin.Context, key string, def int) int {
	raw := ctx.Query(key)
	if raw == "" {
		return def
	}

	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}

	return n
}

func (h *AdminHandler) ListUsers(ctx *gin.Context) {
	page := queryInt(ctx, "page", 1)
	if page < 1 {
		page = 1
	}

	limit := queryInt(ctx, "limit", defaultPageLimit)
	if limit < 1 {
		limit = 1
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	offset := (page - 1) * limit

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	items, total, err := h.users.List(cctx, limit, offset)

	if err != nil {
		RespondInternal(ctx, "Could not list users")
		return
	}

	totalPages := (total + limit - 1) / limit

	ctx.JSON(http.StatusOK, gin.H{
		"users":       items,
		"total":       total,
		"page":        page,
		"limit":       limit,
		"total_pages": totalPages,
	})
}

func (h *AdminHandler) UpdateUserRole(ctx *gin.Context) {
	callerID, ok := middlewares.UserIDFromContext(ctx)

	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity context")
		return
	}

	var req user.UpdateRoleRequest

	if !BindJSON(ctx, &req) {
		return
	}

	role, err := user.ParseRole(req.Role)

	if err != nil {
		RespondBadRequest(ctx, "invalid_role", "Invalid role specified")
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	exists, err := h.users.Exists(cctx, req.UserID)

	if err != nil {
		RespondInternal(ctx, "Could not update user role")
		return
	}

	if !exists {
		RespondNotFound(ctx, "User not found")
		return
	}

	// Admins may never change their own role; a plain id equality check.
	if req.UserID == callerID {
		RespondBadRequest(ctx, "own_role_change", "You cannot change your own role")
		return
	}

	if err := h.users.UpdateRole(cctx, req.UserID, role); err != nil {
		if errors.Is(err, postgres.ErrUserNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}

		RespondInternal(ctx, "Could not update user role")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message":  "User role updated successfully",
		"user_id":  req.UserID,
		"new_role": role,
	})
}
