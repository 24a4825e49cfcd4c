package auth

import (
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

const (
	ctxUserUUID = "userUUID"
	ctxClaims   = "sessionClaims"
)

// prehash 把任意长度的密码映射为 44 字节，避开 bcrypt 的 72 字节上限。
func prehash(pw string) []byte {
	sum := sha256.Sum256([]byte(pw))
	out := make([]byte, base64.StdEncoding.EncodedLen(len(sum)))
	base64.StdEncoding.Encode(out, sum[:])
	return out
}

func HashPassword(pw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword(prehash(pw), bcrypt.DefaultCost)
	return string(b), err
}

func VerifyPassword(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), prehash(pw)) == nil
}

// BearerToken 从 "Authorization: Bearer <token>" 头中取出 token。
func BearerToken(c *gin.Context) string {
	authz := c.GetHeader("Authorization")
	if len(authz) < 7 || !strings.EqualFold(authz[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(authz[7:])
}

// Middleware 拒绝没有有效会话 token 的请求，并将用户 uuid 写入上下文。
func Middleware(issuer *Issuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := BearerToken(c)
		if tokenStr == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		claims, err := issuer.ParseSession(tokenStr)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set(ctxUserUUID, claims.UUID)
		c.Set(ctxClaims, claims)
		c.Next()
	}
}

func GetUserUUID(c *gin.Context) string {
	return c.GetString(ctxUserUUID)
}

func GetClaims(c *gin.Context) *SessionClaims {
	if v, ok := c.Get(ctxClaims); ok {
		if claims, ok2 := v.(*SessionClaims); ok2 {
			return claims
		}
	}
	return nil
}
