package router

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ledger/config"
	"ledger/database"
	"ledger/middleware"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func setupRouterTest(t *testing.T) (*gin.Engine, sqlmock.Sqlmock) {
	t.Helper()

	cfg := &config.Config{
		Server: config.ServerConfig{Mode: gin.TestMode},
		JWT: config.JWTConfig{
			Secret:        "test-jwt-secret-key",
			AccessExpire:  time.Hour,
			RefreshExpire: 2 * time.Hour,
		},
		Upload: config.UploadConfig{
			Dir:          t.TempDir(),
			MaxSizeMB:    5,
			AllowedTypes: []string{"image/png"},
		},
	}
	config.GlobalConfig = cfg
	middleware.InitJWT(cfg)
	t.Cleanup(func() { config.GlobalConfig = nil })

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{})
	require.NoError(t, err)

	oldDB := database.DB
	database.DB = gormDB
	t.Cleanup(func() {
		database.DB = oldDB
		sqlDB.Close()
	})

	r, err := SetupRouter(cfg)
	require.NoError(t, err)
	return r, mock
}

func TestHealth_Anonymous(t *testing.T) {
	r, _ := setupRouterTest(t)

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
	assert.NotContains(t, w.Body.String(), `"user"`)
}

func TestHealth_ReportsCallerIdentity(t *testing.T) {
	r, mock := setupRouterTest(t)

	mock.ExpectQuery("SELECT .* FROM `profiles`").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "name", "role", "active"}).
			AddRow("user-1", "小李", "viewer", true))
	mock.ExpectQuery("SELECT .* FROM `users`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email"}).
			AddRow("user-1", "li@example.com"))

	token, err := middleware.GenerateToken("user-1", middleware.TokenKindAccess)
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/health", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "li@example.com")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHealth_BadTokenStillOK(t *testing.T) {
	r, _ := setupRouterTest(t)

	// 健康检查不因无效 token 被拒
	req := httptest.NewRequest("GET", "/health", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), `"user"`)
}
