package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ledger/config"
	"ledger/database"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func initJWTTestConfig() {
	config.GlobalConfig = &config.Config{
		Server: config.ServerConfig{Mode: "debug"},
		JWT: config.JWTConfig{
			Secret:        "test-jwt-secret-key",
			AccessExpire:  24 * time.Hour,
			RefreshExpire: 7 * 24 * time.Hour,
		},
	}
	InitJWT(config.GlobalConfig)
}

func setupMockDB(t *testing.T) (sqlmock.Sqlmock, func()) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{})
	require.NoError(t, err)

	oldDB := database.DB
	database.DB = gormDB
	return mock, func() {
		database.DB = oldDB
		sqlDB.Close()
	}
}

func TestGenerateToken(t *testing.T) {
	initJWTTestConfig()
	defer func() { config.GlobalConfig = nil }()

	token, err := GenerateToken("user-1", TokenKindAccess)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Greater(t, len(token), 20)

	// 可解析
	claims, err := ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, TokenKindAccess, claims.Kind)
}

func TestGenerateToken_RefreshKind(t *testing.T) {
	initJWTTestConfig()
	defer func() { config.GlobalConfig = nil }()

	token, err := GenerateToken("user-2", TokenKindRefresh)
	require.NoError(t, err)

	claims, err := ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, TokenKindRefresh, claims.Kind)

	// refresh token 过期时间远于 access token
	accessToken, _ := GenerateToken("user-2", TokenKindAccess)
	accessClaims, _ := ParseToken(accessToken)
	assert.True(t, claims.ExpiresAt.After(accessClaims.ExpiresAt.Time))
}

func TestGenerateToken_UnknownKind(t *testing.T) {
	initJWTTestConfig()
	defer func() { config.GlobalConfig = nil }()

	_, err := GenerateToken("user-1", "session")
	assert.Error(t, err)
}

func TestParseToken(t *testing.T) {
	initJWTTestConfig()
	defer func() { config.GlobalConfig = nil }()

	// 合法 token
	token, _ := GenerateToken("user-100", TokenKindAccess)
	claims, err := ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-100", claims.UserID)

	// 空字符串
	_, err = ParseToken("")
	assert.ErrorIs(t, err, ErrTokenInvalid)

	// 无效格式
	_, err = ParseToken("not.a.valid.jwt")
	assert.ErrorIs(t, err, ErrTokenInvalid)

	// 错误密钥签名
	other := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: "user-100",
		Kind:   TokenKindAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	forged, _ := other.SignedString([]byte("wrong-secret"))
	_, err = ParseToken(forged)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestParseToken_Expired(t *testing.T) {
	initJWTTestConfig()
	defer func() { config.GlobalConfig = nil }()

	// 手工签发一个已过期的 token
	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: "user-1",
		Kind:   TokenKindAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})
	tokenString, err := expired.SignedString([]byte("test-jwt-secret-key"))
	require.NoError(t, err)

	_, err = ParseToken(tokenString)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func newAuthTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/protected", Auth(), func(c *gin.Context) {
		identity, _ := GetIdentity(c)
		c.JSON(http.StatusOK, gin.H{"success": true, "user_id": identity.UserID})
	})
	return r
}

func TestAuth_NoToken(t *testing.T) {
	initJWTTestConfig()
	defer func() { config.GlobalConfig = nil }()

	r := newAuthTestRouter()

	req := httptest.NewRequest("GET", "/protected", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), CodeNoToken)
}

func TestAuth_MalformedHeader(t *testing.T) {
	initJWTTestConfig()
	defer func() { config.GlobalConfig = nil }()

	r := newAuthTestRouter()

	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Basic abc123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), CodeNoToken)
}

func TestAuth_InvalidToken(t *testing.T) {
	initJWTTestConfig()
	defer func() { config.GlobalConfig = nil }()

	r := newAuthTestRouter()

	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), CodeInvalidToken)
}

func TestAuth_RefreshTokenRejected(t *testing.T) {
	initJWTTestConfig()
	defer func() { config.GlobalConfig = nil }()

	r := newAuthTestRouter()

	// refresh token 不能当 access token 用
	token, _ := GenerateToken("user-1", TokenKindRefresh)
	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), CodeInvalidToken)
}

func TestAuth_UserNotFound(t *testing.T) {
	initJWTTestConfig()
	defer func() { config.GlobalConfig = nil }()

	mock, cleanup := setupMockDB(t)
	defer cleanup()

	// 档案查询返回空：用户不存在或已停用
	mock.ExpectQuery("SELECT .* FROM `profiles`").
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}))

	r := newAuthTestRouter()

	token, _ := GenerateToken("ghost", TokenKindAccess)
	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), CodeUserNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAuth_Success(t *testing.T) {
	initJWTTestConfig()
	defer func() { config.GlobalConfig = nil }()

	mock, cleanup := setupMockDB(t)
	defer cleanup()

	mock.ExpectQuery("SELECT .* FROM `profiles`").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "name", "role", "active"}).
			AddRow("user-1", "张三", "viewer", true))
	mock.ExpectQuery("SELECT .* FROM `users`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email"}).
			AddRow("user-1", "zhangsan@example.com"))

	r := newAuthTestRouter()

	token, _ := GenerateToken("user-1", TokenKindAccess)
	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "user-1")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOptionalAuth_NoTokenPasses(t *testing.T) {
	initJWTTestConfig()
	defer func() { config.GlobalConfig = nil }()

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/public", OptionalAuth(), func(c *gin.Context) {
		_, authed := GetIdentity(c)
		c.JSON(http.StatusOK, gin.H{"authed": authed})
	})

	req := httptest.NewRequest("GET", "/public", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "false")
}

func TestOptionalAuth_ValidTokenSetsIdentity(t *testing.T) {
	initJWTTestConfig()
	defer func() { config.GlobalConfig = nil }()

	mock, cleanup := setupMockDB(t)
	defer cleanup()

	mock.ExpectQuery("SELECT .* FROM `profiles`").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "name", "role", "active"}).
			AddRow("user-1", "张三", "viewer", true))
	mock.ExpectQuery("SELECT .* FROM `users`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email"}).
			AddRow("user-1", "zhangsan@example.com"))

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/public", OptionalAuth(), func(c *gin.Context) {
		identity, authed := GetIdentity(c)
		c.JSON(http.StatusOK, gin.H{"authed": authed, "email": identity.Email})
	})

	token, _ := GenerateToken("user-1", TokenKindAccess)
	req := httptest.NewRequest("GET", "/public", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "true")
	assert.Contains(t, w.Body.String(), "zhangsan@example.com")
	require.NoError(t, mock.ExpectationsWereMet())
}
