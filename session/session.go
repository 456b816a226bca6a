package session

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/golang-jwt/jwt/v4"

	"siteboard/domain"
)

const defaultKeyCacheTTL = 15 * time.Minute

var (
	errMissingAuthorization = errors.New("missing authorization header")
	errBadAuthorization     = errors.New("bad auth header")
	errMissingSubject       = errors.New("missing sub")
)

// Identity is the signed-in console user as seen by the boards.
type Identity struct {
	UserID string
	Name   string
	Role   domain.Role
}

type mode int

const (
	modeJWKS mode = iota
	modeShared
	modeUnverified
)

// Auth turns bearer tokens into identities.
type Auth struct {
	Audience string
	Issuer   string

	mode     mode
	jwks     *keyfunc.JWKS
	secret   []byte
	parser   *jwt.Parser
	keyCache sync.Map
	cacheTTL time.Duration
}

type cachedKey struct {
	key       any
	expiresAt time.Time
}

// NewJWKS validates RS256 tokens against a hosted key set.
func NewJWKS(jwks *keyfunc.JWKS, audience, issuer string) *Auth {
	return &Auth{
		Audience: audience,
		Issuer:   issuer,
		mode:     modeJWKS,
		jwks:     jwks,
		parser:   jwt.NewParser(jwt.WithValidMethods([]string{"RS256"})),
		cacheTTL: defaultKeyCacheTTL,
	}
}

// NewShared validates HS256 tokens signed with a shared secret. Used for
// local development and tests.
func NewShared(secret []byte) *Auth {
	if len(secret) == 0 {
		panic("session.NewShared: empty secret")
	}
	return &Auth{
		mode:   modeShared,
		secret: secret,
		parser: jwt.NewParser(jwt.WithValidMethods([]string{"HS256"})),
	}
}

// NewUnverified reads claims without checking the signature. The backend
// verifies every request; the console only needs the claims for gating.
func NewUnverified() *Auth {
	return &Auth{mode: modeUnverified, parser: jwt.NewParser()}
}

// SetKeyCacheTTL changes how long resolved signing keys are reused. Zero
// disables the cache.
func (a *Auth) SetKeyCacheTTL(ttl time.Duration) {
	if ttl < 0 {
		ttl = 0
	}
	a.cacheTTL = ttl
}

// IdentityFromHeader extracts the identity from an Authorization header.
func (a *Auth) IdentityFromHeader(h string) (Identity, error) {
	token, err := BearerToken(h)
	if err != nil {
		return Identity{}, err
	}
	return a.Identity(token)
}

// Identity validates token and returns the identity it carries.
func (a *Auth) Identity(token string) (Identity, error) {
	if strings.Count(token, ".") != 2 {
		return Identity{}, errBadAuthorization
	}

	claims := jwt.MapClaims{}
	var err error
	switch a.mode {
	case modeUnverified:
		_, _, err = a.parser.ParseUnverified(token, claims)
	case modeShared:
		_, err = a.parser.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("invalid signing method")
			}
			return a.secret, nil
		})
	default:
		_, err = a.parser.ParseWithClaims(token, claims, a.keyForToken)
	}
	if err != nil {
		return Identity{}, err
	}

	if a.mode != modeUnverified {
		now := time.Now().Add(time.Minute).Unix()
		if !claims.VerifyExpiresAt(now, true) {
			return Identity{}, errors.New("token expired")
		}
		if a.Audience != "" && !claims.VerifyAudience(a.Audience, false) {
			return Identity{}, errors.New("invalid audience")
		}
		if a.Issuer != "" && !claims.VerifyIssuer(a.Issuer, false) {
			return Identity{}, errors.New("invalid issuer")
		}
	}
	return identityFromClaims(claims)
}

func identityFromClaims(claims jwt.MapClaims) (Identity, error) {
	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return Identity{}, errMissingSubject
	}
	id := Identity{UserID: sub}
	if name, ok := claims["name"].(string); ok {
		id.Name = name
	}
	if role, ok := claims["role"].(string); ok && role != "" {
		id.Role = domain.Role(role)
	} else {
		id.Role = domain.RoleClient
	}
	return id, nil
}

func (a *Auth) keyForToken(token *jwt.Token) (any, error) {
	if a.jwks == nil {
		return nil, errors.New("jwks not configured")
	}

	kid, _ := token.Header["kid"].(string)
	if kid != "" && a.cacheTTL > 0 {
		if cached, ok := a.keyCache.Load(kid); ok {
			entry := cached.(cachedKey)
			if time.Now().Before(entry.expiresAt) {
				return entry.key, nil
			}
			a.keyCache.Delete(kid)
		}
	}

	key, err := a.jwks.Keyfunc(token)
	if err != nil {
		return nil, err
	}
	if kid != "" && a.cacheTTL > 0 {
		a.keyCache.Store(kid, cachedKey{key: key, expiresAt: time.Now().Add(a.cacheTTL)})
	}
	return key, nil
}

// BearerToken strips the "Bearer " prefix from an Authorization header.
func BearerToken(h string) (string, error) {
	h = strings.TrimSpace(h)
	if h == "" {
		return "", errMissingAuthorization
	}
	token, ok := strings.CutPrefix(h, "Bearer ")
	if !ok || strings.TrimSpace(token) == "" {
		return "", errBadAuthorization
	}
	return strings.TrimSpace(token), nil
}

// Sign issues an HS256 token for id. Used by the stub backend and tests.
func Sign(secret []byte, id Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  id.UserID,
		"role": string(id.Role),
		"iat":  now.Unix(),
		"exp":  now.Add(ttl).Unix(),
	}
	if id.Name != "" {
		claims["name"] = id.Name
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}
