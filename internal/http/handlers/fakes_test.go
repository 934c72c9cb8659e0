package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/mfonseca/accounthub/internal/domain/user"
	"github.com/mfonseca/accounthub/internal/http/middlewares"
	"github.com/mfonseca/accounthub/internal/repo/postgres"
)

// Make sure Gin does not spam the console during the tests

func init() {
	gin.SetMode(gin.TestMode)
}

// Fake store implementing the handler-facing repository slices.

type fakeUsersStore struct {
	getByEmailFn     func(ctx context.Context, email string) (user.User, error)
	createFn         func(ctx context.Context, username, email, passwordHash string, role user.Role) (int64, error)
	getByIDFn        func(ctx context.Context, id int64) (user.User, error)
	emailTakenFn     func(ctx context.Context, email string, selfID int64) (bool, error)
	updateProfileFn  func(ctx context.Context, id int64, req user.UpdateProfileRequest) (user.User, error)
	updatePasswordFn func(ctx context.Context, id int64, passwordHash string) error
	listFn           func(ctx context.Context, limit, offset int) ([]user.Summary, int, error)
	existsFn         func(ctx context.Context, id int64) (bool, error)
	updateRoleFn     func(ctx context.Context, id int64, role user.Role) error
}

func (f *fakeUsersStore) GetByEmail(ctx context.Context, email string) (user.User, error) {
	if f.getByEmailFn != nil {
		return f.getByEmailFn(ctx, email)
	}
	return user.User{}, postgres.ErrUserNotFound
}

func (f *fakeUsersStore) Create(ctx context.Context, username, email, passwordHash string, role user.Role) (int64, error) {
	if f.createFn != nil {
		return f.createFn(ctx, username, email, passwordHash, role)
	}
	return 1, nil
}

func (f *fakeUsersStore) GetByID(ctx context.Context, id int64) (user.User, error) {
	if f.getByIDFn != nil {
		return f.getByIDFn(ctx, id)
	}
	return user.User{}, postgres.ErrUserNotFound
}

func (f *fakeUsersStore) EmailTakenByOther(ctx context.Context, email string, selfID int64) (bool, error) {
	if f.emailTakenFn != nil {
		return f.emailTakenFn(ctx, email, selfID)
	}
	return false, nil
}

func (f *fakeUsersStore) UpdateProfile(ctx context.Context, id int64, req user.UpdateProfileRequest) (user.User, error) {
	if f.updateProfileFn != nil {
		return f.updateProfileFn(ctx, id, req)
	}
	return user.User{}, nil
}

func (f *fakeUsersStore) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	if f.updatePasswordFn != nil {
		return f.updatePasswordFn(ctx, id, passwordHash)
	}
	return nil
}

func (f *fakeUsersStore) List(ctx context.Context, limit, offset int) ([]user.Summary, int, error) {
	if f.listFn != nil {
		return f.listFn(ctx, limit, offset)
	}
	return []user.Summary{}, 0, nil
}

func (f *fakeUsersStore) Exists(ctx context.Context, id int64) (bool, error) {
	if f.existsFn != nil {
		return f.existsFn(ctx, id)
	}
	return false, nil
}

func (f *fakeUsersStore) UpdateRole(ctx context.Context, id int64, role user.Role) error {
	if f.updateRoleFn != nil {
		return f.updateRoleFn(ctx, id, role)
	}
	return nil
}

// small helper which returns a gin engine mounting one handler per test,
// optionally with a pre-resolved caller identity

func setupRouter(method, path string, callerID int64, h gin.HandlerFunc) *gin.Engine {
	r := gin.New()

	if callerID > 0 {
		r.Use(func(c *gin.Context) {
			c.Set(middlewares.CtxUserID, callerID)
			c.Next()
		})
	}

	r.Handle(method, path, h)

	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))

	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var m map[string]any

	if err := json.Unmarshal(rec.Body.Bytes(), &m); err != nil {
		t.Fatalf("response is not valid JSON: %v (%s)", err, rec.Body.String())
	}

	return m
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()

	m := decodeBody(t, rec)

	errObj, ok := m["error"].(map[string]any)
	if !ok {
		t.Fatalf("expected error envelope, got %s", rec.Body.String())
	}

	code, _ := errObj["code"].(string)
	return code
}
