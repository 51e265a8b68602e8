package svc

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/golang-jwt/jwt/v4"
)

var (
	ErrInvalidToken = errors.New("Token 无效")
	ErrExpiredToken = errors.New("Token 已过期")
)

// JwtAuth JWT 认证工具
type JwtAuth struct {
	secret []byte
}

// NewJwtAuth 创建 JWT 认证工具
func NewJwtAuth(secret string) *JwtAuth {
	return &JwtAuth{
		secret: []byte(secret),
	}
}

// ParseToken 解析 JWT token，返回 userId
func (j *JwtAuth) ParseToken(tokenString string) (uint64, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		// 验证签名算法
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.secret, nil
	})

	if err != nil {
		var ve *jwt.ValidationError
		if errors.As(err, &ve) && ve.Errors&jwt.ValidationErrorExpired != 0 {
			return 0, ErrExpiredToken
		}
		return 0, ErrInvalidToken
	}

	if !token.Valid {
		return 0, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, ErrInvalidToken
	}

	userID, ok := claims["userId"]
	if !ok {
		return 0, errors.New("Token 中未找到 userId")
	}

	// JSON 数字默认解析为 float64，也兼容字符串形式
	switch v := userID.(type) {
	case float64:
		return uint64(v), nil
	case string:
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return 0, ErrInvalidToken
		}
		return id, nil
	default:
		return 0, ErrInvalidToken
	}
}
