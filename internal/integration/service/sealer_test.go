package service

import (
	"strings"
	"testing"

	"github.com/smallbiznis/missioncontrol/internal/integration/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSealerRoundTrip(t *testing.T) {
	s, err := newSealer("top-secret")
	require.NoError(t, err)
	require.True(t, s.enabled())

	sealed, err := s.seal("refresh-token-value")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(sealed, sealedPrefix))
	assert.NotContains(t, sealed, "refresh-token-value")

	again, err := s.seal(sealed)
	require.NoError(t, err)
	assert.Equal(t, sealed, again)

	plain, err := s.open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "refresh-token-value", plain)
}

func TestSealerRejectsForeignKey(t *testing.T) {
	a, err := newSealer("key-a")
	require.NoError(t, err)
	b, err := newSealer("key-b")
	require.NoError(t, err)

	sealed, err := a.seal("value")
	require.NoError(t, err)

	_, err = b.open(sealed)
	assert.ErrorIs(t, err, domain.ErrSealedValue)

	disabled, err := newSealer("")
	require.NoError(t, err)
	_, err = disabled.open(sealed)
	assert.ErrorIs(t, err, domain.ErrSealedValue)
}

func TestSealBagOnlyTouchesSecrets(t *testing.T) {
	s, err := newSealer("top-secret")
	require.NoError(t, err)

	bag := domain.ConfigBag{
		domain.KeyClientID:     "client",
		domain.KeyClientSecret: "secret",
		domain.KeyAccessToken:  "access",
	}
	sealed, err := s.sealBag(bag)
	require.NoError(t, err)
	assert.Equal(t, "client", sealed[domain.KeyClientID])
	assert.NotEqual(t, "secret", sealed[domain.KeyClientSecret])
	assert.NotEqual(t, "access", sealed[domain.KeyAccessToken])

	opened, err := s.openBag(sealed)
	require.NoError(t, err)
	assert.Equal(t, bag, opened)
}

func TestDisabledSealerPassesThrough(t *testing.T) {
	s, err := newSealer("  ")
	require.NoError(t, err)
	assert.False(t, s.enabled())

	value, err := s.seal("plain")
	require.NoError(t, err)
	assert.Equal(t, "plain", value)
}
