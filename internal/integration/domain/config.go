package domain

// Config bag keys, grouped by who writes them.
const (
	KeyClientID     = "clientId"
	KeyClientSecret = "clientSecret"
	KeyRedirectURI  = "redirectUri"
	KeyAppReturnURL = "appReturnUrl"

	KeyOAuthContextDepartmentID = "oauthContextDepartmentId"

	KeyAccessToken        = "accessToken"
	KeyRefreshToken       = "refreshToken"
	KeyTokenExpiry        = "tokenExpiry"
	KeyGrantedScopes      = "grantedScopes"
	KeyCapabilities       = "capabilities"
	KeyConnectedAt        = "connectedAt"
	KeyPendingOAuthIntent = "pendingOAuthIntent"
)

// AppRegistrationKeys are written by an administrator configuring the OAuth app.
var AppRegistrationKeys = []string{KeyClientID, KeyClientSecret, KeyRedirectURI, KeyAppReturnURL}

// ContextKeys record the context a configuration was made from.
var ContextKeys = []string{KeyOAuthContextDepartmentID}

// GrantKeys are written by the OAuth flow and removed on disconnect.
var GrantKeys = []string{
	KeyAccessToken,
	KeyRefreshToken,
	KeyTokenExpiry,
	KeyGrantedScopes,
	KeyCapabilities,
	KeyConnectedAt,
	KeyPendingOAuthIntent,
}

// SecretKeys hold credentials that are sealed at rest and masked on read.
var SecretKeys = []string{KeyClientSecret, KeyAccessToken, KeyRefreshToken}

// IsSecretKey reports whether key holds a credential.
func IsSecretKey(key string) bool {
	for _, k := range SecretKeys {
		if k == key {
			return true
		}
	}
	return false
}

// ConfigBag is the open key/value configuration of an integration.
// Unknown keys are preserved by every operation.
type ConfigBag map[string]any

func (b ConfigBag) Clone() ConfigBag {
	out := make(ConfigBag, len(b))
	for k, v := range b {
		out[k] = v
	}
	return out
}

// Merge returns a copy of b with updates applied. A nil value removes the key.
func (b ConfigBag) Merge(updates map[string]any) ConfigBag {
	out := b.Clone()
	for k, v := range updates {
		if v == nil {
			delete(out, k)
			continue
		}
		out[k] = v
	}
	return out
}

// StripGrant returns a copy of b without any grant key.
func (b ConfigBag) StripGrant() ConfigBag {
	out := b.Clone()
	for _, k := range GrantKeys {
		delete(out, k)
	}
	return out
}

// HasGrant reports whether any grant key is present.
func (b ConfigBag) HasGrant() bool {
	for _, k := range GrantKeys {
		if _, ok := b[k]; ok {
			return true
		}
	}
	return false
}

func (b ConfigBag) String(key string) string {
	value, _ := b[key].(string)
	return value
}
