package handlers_test

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/mfonseca/accounthub/internal/domain/user"
	"github.com/mfonseca/accounthub/internal/http/handlers"
)

func bindProbe() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req user.RegisterRequest
		if !handlers.BindJSON(c, &req) {
			return
		}
		c.Status(http.StatusOK)
	}
}

func TestBindJSONReportsJSONFieldNames(t *testing.T) {
	r := setupRouter(http.MethodPost, "/probe", 0, bindProbe())

	rec := doJSON(t, r, http.MethodPost, "/probe", `{"username":"marta","email":"nope","password":"hunter22"}`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}

	body := decodeBody(t, rec)

	errObj, _ := body["error"].(map[string]any)
	if errObj == nil {
		t.Fatalf("no error envelope: %s", rec.Body.String())
	}

	details, _ := errObj["details"].(map[string]any)
	fields, _ := details["fields"].([]any)

	if len(fields) != 1 {
		t.Fatalf("fields = %v, want one entry", details)
	}

	fe, _ := fields[0].(map[string]any)
	if fe["field"] != "email" || fe["rule"] != "email" {
		t.Fatalf("unexpected field error: %v", fe)
	}
}

func TestBindJSONBadSyntax(t *testing.T) {
	r := setupRouter(http.MethodPost, "/probe", 0, bindProbe())

	rec := doJSON(t, r, http.MethodPost, "/probe", `{"username":`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
