package config

import (
	"fmt"

	"github.com/MicahParks/keyfunc"

	"siteboard/session"
)

// Authenticator builds the token validator for the configured mode. JWKS
// mode fetches the tenant's key set.
func (c Config) Authenticator() (*session.Auth, error) {
	switch c.AuthMode {
	case AuthShared:
		return session.NewShared([]byte(c.SharedSecret)), nil
	case AuthJWKS:
		jwks, err := keyfunc.Get(c.JWKSURL(), keyfunc.Options{})
		if err != nil {
			return nil, fmt.Errorf("jwks: %w", err)
		}
		auth := session.NewJWKS(jwks, c.Audience, c.Issuer())
		auth.SetKeyCacheTTL(c.JWKSCacheTTL)
		return auth, nil
	case AuthUnverified:
		return session.NewUnverified(), nil
	}
	return nil, fmt.Errorf("unsupported LOCAL_AUTH_MODE value %q", c.AuthMode)
}
