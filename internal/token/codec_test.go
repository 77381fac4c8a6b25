package token_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"collaborative-story/internal/token"
)

func newTestCodec(t *testing.T) *token.Codec {
	t.Helper()
	codec, err := token.NewCodec("admin-secret-for-tests", "invite-secret-for-tests")
	require.NoError(t, err)
	return codec
}

func TestNewCodec_RequiresSecrets(t *testing.T) {
	_, err := token.NewCodec("", "invite")
	assert.Error(t, err)

	_, err = token.NewCodec("admin", "")
	assert.Error(t, err)
}

func TestAdminToken_RoundTrip(t *testing.T) {
	codec := newTestCodec(t)

	signed, err := codec.SignAdmin(token.RoleAdmin, "", time.Hour)
	require.NoError(t, err)
	assert.Len(t, strings.Split(signed, "."), 3, "admin session should be a three-segment JWT")

	claims, err := codec.VerifyAdmin(signed, token.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, token.RoleAdmin, claims.Role)
	assert.Empty(t, claims.SuName)
	assert.NotNil(t, claims.ExpiresAt)
}

func TestAdminToken_SuperuserSatisfiesAdmin(t *testing.T) {
	codec := newTestCodec(t)

	signed, err := codec.SignAdmin(token.RoleSuperuser, "ms-frizzle", time.Hour)
	require.NoError(t, err)

	claims, err := codec.VerifyAdmin(signed, token.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, token.RoleSuperuser, claims.Role)
	assert.Equal(t, "ms-frizzle", claims.SuName)
}

func TestAdminToken_RoleMismatch(t *testing.T) {
	codec := newTestCodec(t)

	signed, err := codec.SignAdmin(token.RoleAdmin, "", time.Hour)
	require.NoError(t, err)

	_, err = codec.VerifyAdmin(signed, token.RoleSuperuser)
	assert.ErrorIs(t, err, token.ErrInvalidToken)
}

func TestAdminToken_Expired(t *testing.T) {
	codec := newTestCodec(t)

	signed, err := codec.SignAdmin(token.RoleAdmin, "", -time.Minute)
	require.NoError(t, err)

	_, err = codec.VerifyAdmin(signed, token.RoleAdmin)
	assert.ErrorIs(t, err, token.ErrInvalidToken)
}

func TestAdminToken_WrongSecret(t *testing.T) {
	codec := newTestCodec(t)
	other, err := token.NewCodec("a-different-admin-secret", "invite-secret-for-tests")
	require.NoError(t, err)

	signed, err := codec.SignAdmin(token.RoleAdmin, "", time.Hour)
	require.NoError(t, err)

	_, err = other.VerifyAdmin(signed, token.RoleAdmin)
	assert.ErrorIs(t, err, token.ErrInvalidToken)
}

func validInvitePayload() token.InvitePayload {
	now := time.Now()
	return token.InvitePayload{
		Room:        "A1B2C3",
		TTLHours:    4,
		IssuedAt:    now.Unix(),
		ExpiresAt:   now.Add(4 * time.Hour).Unix(),
		TurnSeconds: 60,
		RoomName:    "Period 3",
	}
}

func TestInviteToken_RoundTrip(t *testing.T) {
	codec := newTestCodec(t)

	signed, err := codec.SignInvite(validInvitePayload())
	require.NoError(t, err)
	assert.Len(t, strings.Split(signed, "."), 2, "invite should be a two-segment token")

	got, err := codec.VerifyInvite(signed)
	require.NoError(t, err)
	assert.Equal(t, "A1B2C3", got.Room)
	assert.Equal(t, token.InviteType, got.Type)
	assert.Equal(t, 4, got.TTLHours)
	assert.Equal(t, 60, got.TurnSeconds)
	assert.Equal(t, "Period 3", got.RoomName)
}

func TestInviteToken_ReusableUntilExpiry(t *testing.T) {
	codec := newTestCodec(t)

	signed, err := codec.SignInvite(validInvitePayload())
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := codec.VerifyInvite(signed)
		assert.NoError(t, err, "claiming must not consume the token")
	}
}

func TestInviteToken_RejectsMutation(t *testing.T) {
	codec := newTestCodec(t)

	signed, err := codec.SignInvite(validInvitePayload())
	require.NoError(t, err)

	// Flip one character at a spread of positions across both segments.
	for pos := 0; pos < len(signed); pos += 5 {
		if signed[pos] == '.' {
			continue
		}
		mutated := []byte(signed)
		if mutated[pos] == 'A' {
			mutated[pos] = 'B'
		} else {
			mutated[pos] = 'A'
		}
		_, err := codec.VerifyInvite(string(mutated))
		assert.ErrorIs(t, err, token.ErrInvalidToken, "mutation at position %d must be rejected", pos)
	}
}

func TestInviteToken_MalformedStructure(t *testing.T) {
	codec := newTestCodec(t)

	for _, tok := range []string{"", "onlyonesegment", "a.b.c", "..", "%%%.%%%"} {
		_, err := codec.VerifyInvite(tok)
		assert.ErrorIs(t, err, token.ErrInvalidToken, "token %q", tok)
	}
}

func TestInviteToken_Expired(t *testing.T) {
	codec := newTestCodec(t)

	p := validInvitePayload()
	p.ExpiresAt = time.Now().Add(-time.Minute).Unix()
	signed, err := codec.SignInvite(p)
	require.NoError(t, err)

	_, err = codec.VerifyInvite(signed)
	assert.ErrorIs(t, err, token.ErrInvalidToken)
}

func TestInviteToken_WrongSecret(t *testing.T) {
	codec := newTestCodec(t)
	other, err := token.NewCodec("admin-secret-for-tests", "a-different-invite-secret")
	require.NoError(t, err)

	signed, err := codec.SignInvite(validInvitePayload())
	require.NoError(t, err)

	_, err = other.VerifyInvite(signed)
	assert.ErrorIs(t, err, token.ErrInvalidToken)
}

func TestInviteToken_AdminSecretDoesNotGrantInvites(t *testing.T) {
	// The two capabilities use independent secrets; a codec whose invite
	// secret equals the admin secret must not verify real invites.
	codec := newTestCodec(t)
	crossed, err := token.NewCodec("admin-secret-for-tests", "admin-secret-for-tests")
	require.NoError(t, err)

	signed, err := codec.SignInvite(validInvitePayload())
	require.NoError(t, err)

	_, err = crossed.VerifyInvite(signed)
	assert.ErrorIs(t, err, token.ErrInvalidToken)
}
