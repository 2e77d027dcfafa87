package server

import (
	"fmt"
	"net/http"
	"testing"
)

func TestHealth(t *testing.T) {
	app := setupApp(t)

	rec := app.request("GET", "/api/health", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestAuthFlow_RegisterLoginProfileRefresh(t *testing.T) {
	app := setupApp(t)

	accessToken, refreshToken, userID := app.registerUser(t, "auth@test.com", "password123")
	if accessToken == "" || refreshToken == "" || userID == "" {
		t.Fatal("expected tokens and user id from registration")
	}

	loginAccess, loginRefresh := app.loginUser(t, "AUTH@test.com", "password123")

	rec := app.request("GET", "/api/v1/profile", "", loginAccess)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	user := parseJSON(t, rec)["user"].(map[string]interface{})
	if user["email"] != "auth@test.com" || user["id"] != userID {
		t.Errorf("unexpected profile %v", user)
	}

	// Login replaced the registration refresh token.
	rec = app.request("POST", "/api/v1/auth/refresh", fmt.Sprintf(`{"refresh_token":%q}`, refreshToken), "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected superseded refresh token to fail, got %d", rec.Code)
	}

	rec = app.request("POST", "/api/v1/auth/refresh", fmt.Sprintf(`{"refresh_token":%q}`, loginRefresh), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("refresh failed: %d %s", rec.Code, rec.Body.String())
	}
	newAccess := parseJSON(t, rec)["access_token"].(string)

	rec = app.request("GET", "/api/v1/profile", "", newAccess)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with new token, got %d: %s", rec.Code, rec.Body.String())
	}

	// Rotation: the used refresh token is no longer accepted.
	rec = app.request("POST", "/api/v1/auth/refresh", fmt.Sprintf(`{"refresh_token":%q}`, loginRefresh), "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected reused refresh token to fail, got %d", rec.Code)
	}
}

func TestAuthFlow_RegisterDuplicateEmail(t *testing.T) {
	app := setupApp(t)

	app.registerUser(t, "dup@test.com", "password123")

	rec := app.request("POST", "/api/v1/auth/register", `{"email":"dup@test.com","password":"password123"}`, "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate email, got %d: %s", rec.Code, rec.Body.String())
	}
	if code := errorCode(t, rec); code != "DUPLICATE_EMAIL" {
		t.Errorf("expected DUPLICATE_EMAIL, got %v", code)
	}
}

func TestAuthFlow_LoginWrongPassword(t *testing.T) {
	app := setupApp(t)

	app.registerUser(t, "wrong@test.com", "password123")

	rec := app.request("POST", "/api/v1/auth/login", `{"email":"wrong@test.com","password":"not-the-password"}`, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if code := errorCode(t, rec); code != "INVALID_CREDENTIALS" {
		t.Errorf("expected INVALID_CREDENTIALS, got %v", code)
	}
}

func TestAuthFlow_ProtectedRoutesNeedToken(t *testing.T) {
	app := setupApp(t)
	_, refreshToken, _ := app.registerUser(t, "guard@test.com", "password123")

	for _, path := range []string{"/api/v1/profile", "/api/v1/trades", "/api/v1/stats/dashboard", "/api/v1/snapshots"} {
		t.Run(path, func(t *testing.T) {
			rec := app.request("GET", path, "", "")
			if rec.Code != http.StatusUnauthorized {
				t.Errorf("expected 401, got %d", rec.Code)
			}

			rec = app.request("GET", path, "", refreshToken)
			if rec.Code != http.StatusUnauthorized {
				t.Errorf("refresh token as bearer: expected 401, got %d", rec.Code)
			}
		})
	}
}

func TestAuditFlow_ListsOwnEntries(t *testing.T) {
	app := setupApp(t)
	token, _, _ := app.registerUser(t, "audit@test.com", "password123")
	app.loginUser(t, "audit@test.com", "password123")

	rec := app.request("GET", "/api/v1/audit-logs", "", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := parseJSON(t, rec)["total_items"]; got != float64(2) {
		t.Errorf("total_items = %v, want 2", got)
	}

	rec = app.request("GET", "/api/v1/audit-logs?action=login", "", token)
	data := parseJSON(t, rec)["data"].([]interface{})
	if len(data) != 1 || data[0].(map[string]interface{})["action"] != "LOGIN" {
		t.Errorf("unexpected filtered entries %v", data)
	}
}
