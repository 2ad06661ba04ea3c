package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripGrantRemovesEveryGrantKey(t *testing.T) {
	bag := ConfigBag{
		KeyClientID:                 "client",
		KeyClientSecret:             "secret",
		KeyRedirectURI:              "https://app.example.com/oauth/callback",
		KeyAppReturnURL:             "https://app.example.com/settings",
		KeyOAuthContextDepartmentID: "42",
		"customFlag":                true,
	}
	for _, key := range GrantKeys {
		bag[key] = "value"
	}
	assert.True(t, bag.HasGrant())

	stripped := bag.StripGrant()

	assert.False(t, stripped.HasGrant())
	for _, key := range GrantKeys {
		assert.NotContains(t, stripped, key)
	}
	for _, key := range AppRegistrationKeys {
		assert.Equal(t, bag[key], stripped[key])
	}
	assert.Equal(t, "42", stripped[KeyOAuthContextDepartmentID])
	assert.Equal(t, true, stripped["customFlag"])

	assert.Contains(t, bag, KeyAccessToken, "original bag must not be mutated")
}

func TestMergeOverwritesAndDeletes(t *testing.T) {
	bag := ConfigBag{
		KeyClientID:                 "old",
		KeyRedirectURI:              "https://old.example.com",
		KeyOAuthContextDepartmentID: "7",
		KeyAccessToken:              "token",
	}

	merged := bag.Merge(map[string]any{
		KeyClientID:                 "new",
		KeyOAuthContextDepartmentID: nil,
	})

	assert.Equal(t, "new", merged.String(KeyClientID))
	assert.Equal(t, "https://old.example.com", merged.String(KeyRedirectURI))
	assert.Equal(t, "token", merged.String(KeyAccessToken))
	assert.NotContains(t, merged, KeyOAuthContextDepartmentID)
	assert.Equal(t, "old", bag.String(KeyClientID))
}

func TestIsSecretKey(t *testing.T) {
	assert.True(t, IsSecretKey(KeyClientSecret))
	assert.True(t, IsSecretKey(KeyRefreshToken))
	assert.False(t, IsSecretKey(KeyClientID))
}
