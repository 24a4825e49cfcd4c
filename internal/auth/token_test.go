package auth

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func decodePayload(t *testing.T, token string) map[string]interface{} {
	t.Helper()
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		t.Fatalf("token has %d parts", len(parts))
	}
	raw, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	var payload map[string]interface{}
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	return payload
}

func TestIssueSession_Shape(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	issuer := newTestIssuer().WithClock(func() time.Time { return now })

	token, err := issuer.IssueSession("0b7c7c39-7f7a-4c43-8c84-4a3a1b7d2b11")
	if err != nil {
		t.Fatalf("IssueSession() error = %v", err)
	}
	payload := decodePayload(t, token)

	if payload["uuid"] != "0b7c7c39-7f7a-4c43-8c84-4a3a1b7d2b11" {
		t.Errorf("uuid = %v", payload["uuid"])
	}
	if exp := int64(payload["exp"].(float64)); exp != now.Add(24*time.Hour).Unix() {
		t.Errorf("exp = %d, want now+24h", exp)
	}
	ns, ok := payload[HasuraNamespace].(map[string]interface{})
	if !ok {
		t.Fatalf("missing %s claims: %v", HasuraNamespace, payload)
	}
	roles, _ := ns["x-hasura-allowed-roles"].([]interface{})
	if len(roles) != 2 || roles[0] != "admin" || roles[1] != "user" {
		t.Errorf("allowed roles = %v", ns["x-hasura-allowed-roles"])
	}
	if ns["x-hasura-default-role"] != "user" {
		t.Errorf("default role = %v", ns["x-hasura-default-role"])
	}
	if ns["x-hasura-user-id"] != "0b7c7c39-7f7a-4c43-8c84-4a3a1b7d2b11" {
		t.Errorf("user id = %v", ns["x-hasura-user-id"])
	}
}

func TestParseSession(t *testing.T) {
	issuer := newTestIssuer()
	token, err := issuer.IssueSession("u-42")
	if err != nil {
		t.Fatalf("IssueSession() error = %v", err)
	}
	other := NewIssuer(IssuerConfig{Secret: "wrong-secret", SessionTTL: time.Hour})
	reset, _ := issuer.IssueReset("u-42")

	tests := []struct {
		name     string
		issuer   *Issuer
		token    string
		wantUUID string
		wantErr  bool
	}{
		{"valid token", issuer, token, "u-42", false},
		{"wrong secret", other, token, "", true},
		{"invalid token", issuer, "invalid.token.here", "", true},
		{"empty token", issuer, "", "", true},
		{"reset token", issuer, reset, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := tt.issuer.ParseSession(tt.token)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseSession() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && claims.UUID != tt.wantUUID {
				t.Errorf("ParseSession() UUID = %v, want %v", claims.UUID, tt.wantUUID)
			}
		})
	}
}

func TestParseSession_Expired(t *testing.T) {
	issued := time.Now().Add(-25 * time.Hour)
	token, err := newTestIssuer().WithClock(func() time.Time { return issued }).IssueSession("u-1")
	if err != nil {
		t.Fatalf("IssueSession() error = %v", err)
	}

	claims, err := newTestIssuer().ParseSession(token)
	if !errors.Is(err, jwt.ErrTokenExpired) {
		t.Errorf("ParseSession() error = %v, want ErrTokenExpired", err)
	}
	if claims != nil {
		t.Error("ParseSession() should return nil claims for expired token")
	}
}

func TestParseSession_RejectsOtherAlgorithms(t *testing.T) {
	claims := SessionClaims{
		UUID: "u-1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("test-secret-key"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := newTestIssuer().ParseSession(token); err == nil {
		t.Error("ParseSession() accepted an HS512 token")
	}
}

func TestIssueReset_Shape(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	issuer := newTestIssuer().WithClock(func() time.Time { return now })

	token, err := issuer.IssueReset("u-7")
	if err != nil {
		t.Fatalf("IssueReset() error = %v", err)
	}
	payload := decodePayload(t, token)

	if payload["uuid"] != "u-7" {
		t.Errorf("uuid = %v", payload["uuid"])
	}
	if exp := int64(payload["exp"].(float64)); exp != now.Add(time.Hour).Unix() {
		t.Errorf("exp = %d, want now+1h", exp)
	}
	if _, ok := payload[HasuraNamespace]; ok {
		t.Error("reset token carries role claims")
	}
	if jti, _ := payload["jti"].(string); jti == "" {
		t.Error("reset token has no jti")
	}
}

func TestParseReset(t *testing.T) {
	issuer := newTestIssuer()
	reset, _ := issuer.IssueReset("u-9")
	again, _ := issuer.IssueReset("u-9")
	session, _ := issuer.IssueSession("u-9")

	claims, err := issuer.ParseReset(reset)
	if err != nil {
		t.Fatalf("ParseReset() error = %v", err)
	}
	if claims.UUID != "u-9" {
		t.Errorf("ParseReset() UUID = %v, want u-9", claims.UUID)
	}
	second, err := issuer.ParseReset(again)
	if err != nil {
		t.Fatalf("ParseReset() error = %v", err)
	}
	if claims.ID == second.ID {
		t.Error("reset tokens share a jti")
	}

	if _, err := issuer.ParseReset(session); err == nil {
		t.Error("ParseReset() accepted a session token")
	}
	if _, err := issuer.ParseReset("garbage"); err == nil {
		t.Error("ParseReset() accepted garbage")
	}
}

func TestParseReset_Expired(t *testing.T) {
	issued := time.Now().Add(-2 * time.Hour)
	token, _ := newTestIssuer().WithClock(func() time.Time { return issued }).IssueReset("u-1")

	if _, err := newTestIssuer().ParseReset(token); !errors.Is(err, jwt.ErrTokenExpired) {
		t.Errorf("ParseReset() error = %v, want ErrTokenExpired", err)
	}
}

func TestParseReset_StillValidWithinTTL(t *testing.T) {
	issued := time.Now().Add(-59 * time.Minute)
	token, _ := newTestIssuer().WithClock(func() time.Time { return issued }).IssueReset("u-1")

	if _, err := newTestIssuer().ParseReset(token); err != nil {
		t.Errorf("ParseReset() error = %v for a 59 minute old token", err)
	}
}
