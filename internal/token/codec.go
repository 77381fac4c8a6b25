// Package token produces and verifies the two stateless bearer tokens the
// system hands out: the admin-session JWT and the room-invite capability.
// Both are symmetric-MAC tokens; neither is ever stored server-side.
package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// Roles carried by admin-session tokens.
const (
	RoleAdmin     = "ADMIN"
	RoleSuperuser = "SUPERUSER"
)

// InviteType is the fixed type tag of room-invite payloads.
const InviteType = "PUBLIC_ROOM"

// inviteVersion is the current invite wire-format version.
const inviteVersion = 1

// ErrInvalidToken is returned for every verification failure: malformed
// structure, MAC mismatch, bad payload, expiry, wrong role. Callers get no
// detail that would help forging.
var ErrInvalidToken = errors.New("token: invalid or expired token")

// AdminClaims is the admin-session JWT payload.
type AdminClaims struct {
	Role   string `json:"role"`
	SuName string `json:"su_name,omitempty"`
	jwt.RegisteredClaims
}

// InvitePayload is the room-invite capability. Redeeming it does not consume
// it; it stays valid until its own expiry.
type InvitePayload struct {
	V           int    `json:"v"`
	Type        string `json:"type"`
	Room        string `json:"room"`
	TTLHours    int    `json:"ttl_h"`
	IssuedAt    int64  `json:"iat"`
	ExpiresAt   int64  `json:"exp"`
	TurnSeconds int    `json:"turn_s"`
	RoomName    string `json:"room_name,omitempty"`
}

// Codec signs and verifies both token kinds. Admin sessions and room invites
// use independent secrets so that compromise of one does not grant the
// other's capability.
type Codec struct {
	adminSecret  []byte
	inviteSecret []byte
}

// NewCodec creates a Codec. Both secrets are required.
func NewCodec(adminSecret, inviteSecret string) (*Codec, error) {
	if adminSecret == "" {
		return nil, fmt.Errorf("token: admin secret cannot be empty")
	}
	if inviteSecret == "" {
		return nil, fmt.Errorf("token: invite secret cannot be empty")
	}
	return &Codec{
		adminSecret:  []byte(adminSecret),
		inviteSecret: []byte(inviteSecret),
	}, nil
}

// SignAdmin issues an admin-session JWT (HS256) with the given role. suName
// is set only for SUPERUSER sessions.
func (c *Codec) SignAdmin(role, suName string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := AdminClaims{
		Role:   role,
		SuName: suName,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(c.adminSecret)
	if err != nil {
		return "", fmt.Errorf("token: failed to sign admin session: %w", err)
	}
	return signed, nil
}

// VerifyAdmin parses and validates an admin-session JWT, requiring the given
// role. A SUPERUSER session satisfies an ADMIN requirement.
func (c *Codec) VerifyAdmin(tokenStr, requiredRole string) (*AdminClaims, error) {
	claims := &AdminClaims{}
	tok, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.adminSecret, nil
	})
	if err != nil || !tok.Valid {
		return nil, ErrInvalidToken
	}
	if claims.ExpiresAt == nil {
		return nil, ErrInvalidToken
	}
	if claims.Role != requiredRole && claims.Role != RoleSuperuser {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// SignInvite issues a room-invite token: base64url(JSON payload) "." and
// base64url(HMAC-SHA256 over the encoded payload segment). The version and
// type tags are stamped here; callers fill in the room fields.
func (c *Codec) SignInvite(p InvitePayload) (string, error) {
	p.V = inviteVersion
	p.Type = InviteType
	raw, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("token: failed to marshal invite payload: %w", err)
	}
	encoded := base64.RawURLEncoding.EncodeToString(raw)
	mac := c.inviteMAC(encoded)
	return encoded + "." + base64.RawURLEncoding.EncodeToString(mac), nil
}

// VerifyInvite checks an invite token's structure, MAC, type tag and expiry,
// returning the payload when valid.
func (c *Codec) VerifyInvite(tokenStr string) (*InvitePayload, error) {
	parts := strings.Split(tokenStr, ".")
	if len(parts) != 2 {
		return nil, ErrInvalidToken
	}
	gotMAC, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, ErrInvalidToken
	}
	wantMAC := c.inviteMAC(parts[0])
	if subtle.ConstantTimeCompare(gotMAC, wantMAC) != 1 {
		return nil, ErrInvalidToken
	}
	raw, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return nil, ErrInvalidToken
	}
	var p InvitePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, ErrInvalidToken
	}
	if p.Type != InviteType || p.Room == "" {
		return nil, ErrInvalidToken
	}
	if p.ExpiresAt == 0 || time.Now().Unix() >= p.ExpiresAt {
		return nil, ErrInvalidToken
	}
	return &p, nil
}

func (c *Codec) inviteMAC(encodedPayload string) []byte {
	h := hmac.New(sha256.New, c.inviteSecret)
	h.Write([]byte(encodedPayload))
	return h.Sum(nil)
}
