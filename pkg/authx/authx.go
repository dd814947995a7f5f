// Package authx guards the HTTP API with HS256 bearer tokens.
package authx

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const (
	localsKey = "auth"

	// ScopeAdmin is required by the cache administration routes.
	ScopeAdmin = "parse:admin"
)

// Claims carried by API tokens.
type Claims struct {
	Scopes []string `json:"scopes"`
	jwt.RegisteredClaims
}

// HasScope reports whether the token grants scope.
func (c *Claims) HasScope(scope string) bool {
	return slices.Contains(c.Scopes, scope)
}

type Service struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

// NewService creates the token service. A zero ttl means one hour.
func NewService(secret, issuer string, ttl time.Duration) *Service {
	if ttl == 0 {
		ttl = time.Hour
	}
	if issuer == "" {
		issuer = "hybridparse"
	}
	return &Service{secret: []byte(secret), issuer: issuer, ttl: ttl}
}

// Generate signs a token for subject.
func (s *Service) Generate(subject string, scopes ...string) (string, error) {
	now := time.Now()
	if scopes == nil {
		scopes = []string{}
	}
	claims := Claims{
		Scopes: scopes,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", errorRegistry.NewWithCause(ErrTokenGeneration, err)
	}
	return signed, nil
}

// Validate parses tokenString and checks signature, expiry and issuer.
func (s *Service) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithIssuer(s.issuer), jwt.WithExpirationRequired())
	if err != nil {
		return nil, errorRegistry.NewWithCause(ErrInvalidToken, err).
			WithDetail("error", err.Error())
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errorRegistry.New(ErrInvalidToken)
	}
	return claims, nil
}

// Authenticate rejects requests without a valid bearer token and stores
// the claims in the fiber locals.
func (s *Service) Authenticate() fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
			return errorRegistry.New(ErrMissingToken)
		}

		claims, err := s.Validate(strings.TrimSpace(parts[1]))
		if err != nil {
			return err
		}
		c.Locals(localsKey, claims)
		return c.Next()
	}
}

// RequireScope must run after Authenticate.
func RequireScope(scope string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, ok := FromContext(c)
		if !ok {
			return errorRegistry.New(ErrMissingToken)
		}
		if !claims.HasScope(scope) {
			return errorRegistry.New(ErrInsufficientScope).WithDetail("scope", scope)
		}
		return c.Next()
	}
}

func FromContext(c *fiber.Ctx) (*Claims, bool) {
	claims, ok := c.Locals(localsKey).(*Claims)
	return claims, ok && claims != nil
}
