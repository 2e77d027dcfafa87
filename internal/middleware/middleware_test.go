package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"fxjournal/internal/config"
	apperrors "fxjournal/internal/errors"
	"fxjournal/internal/logger"
	"fxjournal/internal/models"
)

const testSecret = "middleware-test-secret"

func init() {
	gin.SetMode(gin.TestMode)
	logger.Init("test")
	config.Set(&config.Config{
		JWTSecret:            testSecret,
		JWTExpirationDur:     15 * time.Minute,
		JWTRefreshExpiration: 24 * time.Hour,
	})
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to parse response body %q: %v", rec.Body.String(), err)
	}
	return body.Error.Code
}

func testUser() *models.User {
	return &models.User{Base: models.Base{ID: "0190b6a4-5f6e-7c3d-9a1b-2c3d4e5f6a7b"}, Email: "trader@example.com"}
}

func TestPipelineAuthMiddleware(t *testing.T) {
	tests := []struct {
		name          string
		configuredKey string
		requestKey    string
		wantStatus    int
		wantErrorCode string
	}{
		{"valid_api_key", "secret-pipeline-key", "secret-pipeline-key", http.StatusOK, ""},
		{"invalid_api_key", "secret-pipeline-key", "wrong-key", http.StatusUnauthorized, "INVALID_API_KEY"},
		{"missing_api_key", "secret-pipeline-key", "", http.StatusUnauthorized, "INVALID_API_KEY"},
		{"partial_match_rejected", "secret-pipeline-key", "secret-pipeline", http.StatusUnauthorized, "INVALID_API_KEY"},
		{"not_configured", "", "any-key", http.StatusServiceUnavailable, "PIPELINE_NOT_CONFIGURED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.Use(PipelineAuthMiddleware(tt.configuredKey))
			r.POST("/pipeline/snapshots", func(c *gin.Context) { c.Status(http.StatusOK) })

			req := httptest.NewRequest(http.MethodPost, "/pipeline/snapshots", http.NoBody)
			if tt.requestKey != "" {
				req.Header.Set("X-API-Key", tt.requestKey)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantErrorCode != "" {
				if code := errorCode(t, rec); code != tt.wantErrorCode {
					t.Errorf("error code = %q, want %q", code, tt.wantErrorCode)
				}
			}
		})
	}
}

func TestTokens(t *testing.T) {
	user := testUser()

	t.Run("refresh_round_trip", func(t *testing.T) {
		token, err := GenerateRefreshToken(user)
		if err != nil {
			t.Fatalf("GenerateRefreshToken: %v", err)
		}
		claims, err := ValidateRefreshToken(token)
		if err != nil {
			t.Fatalf("ValidateRefreshToken: %v", err)
		}
		if claims.UserID != user.ID || claims.Subject != user.ID {
			t.Errorf("claims user = %q/%q, want %q", claims.UserID, claims.Subject, user.ID)
		}
		if claims.Issuer != "fxjournal-api" {
			t.Errorf("issuer = %q", claims.Issuer)
		}
	})

	t.Run("access_token_is_not_refresh", func(t *testing.T) {
		token, err := GenerateAccessToken(user)
		if err != nil {
			t.Fatalf("GenerateAccessToken: %v", err)
		}
		if _, err := ValidateRefreshToken(token); err == nil {
			t.Error("expected access token to be rejected as refresh token")
		}
	})

	t.Run("garbage_rejected", func(t *testing.T) {
		if _, err := ValidateRefreshToken("not.a.jwt"); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("hash_is_stable", func(t *testing.T) {
		if HashToken("abc") != HashToken("abc") || len(HashToken("abc")) != 64 {
			t.Errorf("unexpected hash %q", HashToken("abc"))
		}
		if HashToken("abc") == HashToken("abd") {
			t.Error("different tokens hashed equal")
		}
	})
}

func signed(t *testing.T, claims *JWTClaims, secret string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return token
}

func TestAuthMiddleware(t *testing.T) {
	user := testUser()
	access, _ := GenerateAccessToken(user)
	refresh, _ := GenerateRefreshToken(user)

	expired := signed(t, &JWTClaims{
		UserID: user.ID, TokenType: "access",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "fxjournal-api",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}, testSecret)
	wrongKey := signed(t, &JWTClaims{
		UserID: user.ID, TokenType: "access",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "fxjournal-api",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}, "other-secret")

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantCode   string
	}{
		{"valid_access_token", "Bearer " + access, http.StatusOK, ""},
		{"missing_header", "", http.StatusUnauthorized, "UNAUTHORIZED"},
		{"wrong_scheme", "Token " + access, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"refresh_token_rejected", "Bearer " + refresh, http.StatusUnauthorized, "INVALID_TOKEN"},
		{"expired_token", "Bearer " + expired, http.StatusUnauthorized, "INVALID_TOKEN"},
		{"wrong_signing_key", "Bearer " + wrongKey, http.StatusUnauthorized, "INVALID_TOKEN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.Use(AuthMiddleware())
			r.GET("/me", func(c *gin.Context) {
				c.String(http.StatusOK, c.GetString("userID"))
			})

			req := httptest.NewRequest(http.MethodGet, "/me", http.NoBody)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantCode != "" {
				if code := errorCode(t, rec); code != tt.wantCode {
					t.Errorf("error code = %q, want %q", code, tt.wantCode)
				}
				return
			}
			if rec.Body.String() != user.ID {
				t.Errorf("userID in context = %q, want %q", rec.Body.String(), user.ID)
			}
		})
	}
}

func TestErrorHandler(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"app_error", apperrors.ErrTradeNotFound, http.StatusNotFound, "TRADE_NOT_FOUND"},
		{"wrapped_app_error", apperrors.Wrap(apperrors.ErrInternalServer, errors.New("disk")), http.StatusInternalServerError, "INTERNAL_ERROR"},
		{"plain_error", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.Use(ErrorHandler())
			r.GET("/x", func(c *gin.Context) { _ = c.Error(tt.err) })

			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", http.NoBody))

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if code := errorCode(t, rec); code != tt.wantCode {
				t.Errorf("error code = %q, want %q", code, tt.wantCode)
			}
		})
	}
}

func TestRecovery(t *testing.T) {
	r := gin.New()
	r.Use(Recovery())
	r.GET("/panic", func(c *gin.Context) { panic("kaboom") })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/panic", http.NoBody))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if code := errorCode(t, rec); code != "INTERNAL_ERROR" {
		t.Errorf("error code = %q", code)
	}
}

func TestRequestLogging(t *testing.T) {
	r := gin.New()
	r.Use(RequestLogging())
	r.GET("/x", func(c *gin.Context) { c.String(http.StatusOK, c.GetString("requestID")) })

	t.Run("issues_id", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", http.NoBody))
		id := rec.Header().Get("X-Request-ID")
		if id == "" || id != rec.Body.String() {
			t.Errorf("request id header %q, context %q", id, rec.Body.String())
		}
	})

	t.Run("reuses_valid_id", func(t *testing.T) {
		const incoming = "0190b6a4-5f6e-7c3d-9a1b-2c3d4e5f6a7b"
		req := httptest.NewRequest(http.MethodGet, "/x", http.NoBody)
		req.Header.Set("X-Request-ID", incoming)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		if got := rec.Header().Get("X-Request-ID"); got != incoming {
			t.Errorf("X-Request-ID = %q, want %q", got, incoming)
		}
	})

	t.Run("replaces_invalid_id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/x", http.NoBody)
		req.Header.Set("X-Request-ID", "<script>")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		if got := rec.Header().Get("X-Request-ID"); got == "<script>" || got == "" {
			t.Errorf("X-Request-ID = %q", got)
		}
	})
}
