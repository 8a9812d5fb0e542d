package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"ledger/config"
	"ledger/database"
	"ledger/models"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// token 类型
const (
	TokenKindAccess  = "access"
	TokenKindRefresh = "refresh"
)

// 认证相关错误码（401/403 响应的 code 字段）
const (
	CodeNoToken                 = "NO_TOKEN"
	CodeInvalidToken            = "INVALID_TOKEN"
	CodeTokenExpired            = "TOKEN_EXPIRED"
	CodeUserNotFound            = "USER_NOT_FOUND"
	CodeAdminRequired           = "ADMIN_REQUIRED"
	CodeInsufficientPermissions = "INSUFFICIENT_PERMISSIONS"
)

var (
	// ErrTokenExpired token 已过期
	ErrTokenExpired = errors.New("token 已过期")
	// ErrTokenInvalid 签名或格式非法
	ErrTokenInvalid = errors.New("无效的 token")
)

var (
	jwtSecret []byte
	jwtCfg    config.JWTConfig
)

// Claims JWT 载荷：用户ID + token 类型
type Claims struct {
	UserID string `json:"user_id"`
	Kind   string `json:"kind"`
	jwt.RegisteredClaims
}

// Identity 认证后附加到请求上下文的身份信息
type Identity struct {
	UserID string      `json:"user_id"`
	Email  string      `json:"email"`
	Name   string      `json:"name"`
	Role   models.Role `json:"role"`
}

const identityKey = "identity"

// InitJWT 初始化 JWT 签名密钥和过期配置
func InitJWT(cfg *config.Config) {
	jwtSecret = []byte(cfg.JWT.Secret)
	jwtCfg = cfg.JWT
}

// GenerateToken 签发指定类型的 token
// access token 过期时间短，refresh token 过期时间长，均取自配置
func GenerateToken(userID, kind string) (string, error) {
	var ttl time.Duration
	switch kind {
	case TokenKindAccess:
		ttl = jwtCfg.AccessExpire
		if ttl <= 0 {
			ttl = 24 * time.Hour
		}
	case TokenKindRefresh:
		ttl = jwtCfg.RefreshExpire
		if ttl <= 0 {
			ttl = 7 * 24 * time.Hour
		}
	default:
		return "", fmt.Errorf("未知的 token 类型: %s", kind)
	}

	now := time.Now()
	claims := Claims{
		UserID: userID,
		Kind:   kind,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtSecret)
}

// ParseToken 解析并校验 token
// 过期返回 ErrTokenExpired，其余一律 ErrTokenInvalid
func ParseToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return jwtSecret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// Auth JWT 认证中间件
// Bearer token -> 解析 -> 按用户ID加载档案（要求 active）-> 身份写入上下文
func Auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, code, message := resolveIdentity(c)
		if identity == nil {
			abortUnauthorized(c, code, message)
			return
		}
		c.Set(identityKey, *identity)
		c.Next()
	}
}

// OptionalAuth 可选认证中间件
// 解析流程与 Auth 相同，但任何失败都不拒绝请求，仅留空身份
func OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if identity, _, _ := resolveIdentity(c); identity != nil {
			c.Set(identityKey, *identity)
		}
		c.Next()
	}
}

// resolveIdentity 从 Authorization 头解析出已激活用户的身份
// 失败时返回 (nil, 错误码, 提示)
func resolveIdentity(c *gin.Context) (*Identity, string, string) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return nil, CodeNoToken, "缺少认证信息，请先登录"
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || strings.TrimSpace(parts[1]) == "" {
		return nil, CodeNoToken, "认证信息格式错误，应为 Bearer {token}"
	}

	claims, err := ParseToken(strings.TrimSpace(parts[1]))
	if err != nil {
		if errors.Is(err, ErrTokenExpired) {
			return nil, CodeTokenExpired, "登录已过期，请重新登录"
		}
		return nil, CodeInvalidToken, "无效的 token"
	}
	// refresh token 只能用于换发，不能直接访问接口
	if claims.Kind != TokenKindAccess {
		return nil, CodeInvalidToken, "token 类型错误"
	}

	var profile models.Profile
	if err := database.DB.Where("user_id = ? AND active = ?", claims.UserID, true).First(&profile).Error; err != nil {
		return nil, CodeUserNotFound, "用户不存在或已停用"
	}
	var user models.User
	if err := database.DB.First(&user, "id = ?", claims.UserID).Error; err != nil {
		return nil, CodeUserNotFound, "用户不存在或已停用"
	}

	return &Identity{
		UserID: user.ID,
		Email:  user.Email,
		Name:   profile.Name,
		Role:   profile.Role,
	}, "", ""
}

func abortUnauthorized(c *gin.Context, code, message string) {
	c.JSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"code":    code,
		"error":   message,
	})
	c.Abort()
}

// GetIdentity 获取当前请求身份
func GetIdentity(c *gin.Context) (Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return Identity{}, false
	}
	identity, ok := v.(Identity)
	return identity, ok
}

// GetCurrentUserID 获取当前用户ID，未认证返回空串
func GetCurrentUserID(c *gin.Context) string {
	identity, ok := GetIdentity(c)
	if !ok {
		return ""
	}
	return identity.UserID
}
