package app

import (
	"fmt"
	"time"

	"github.com/coder/quartz"
	"github.com/form3tech-oss/jwt-go"
)

// serviceTokenIssuer names this engine in minted claims.
const serviceTokenIssuer = "bigtwo-engine"

// serviceTokenTTL bounds how long a minted token stays usable. The
// coordinator mints per move, so the window only needs to cover one
// handler invocation.
const serviceTokenTTL = 60 * time.Second

// ServiceTokenService mints and verifies the signed tokens the bot
// coordinator presents when it invokes action handlers on behalf of a
// bot seat. A valid token replaces the session identity check for that
// one actor and room.
type ServiceTokenService struct {
	secret string
	clock  quartz.Clock
}

func NewServiceTokenService(secret string, clock quartz.Clock) *ServiceTokenService {
	if clock == nil {
		clock = quartz.NewReal()
	}
	return &ServiceTokenService{secret: secret, clock: clock}
}

// Mint issues a token authorizing one actor identity inside one room.
func (s *ServiceTokenService) Mint(actorIdentity, roomCode string) (string, error) {
	if s == nil {
		return "", fmt.Errorf("service token service is nil")
	}
	if actorIdentity == "" {
		return "", fmt.Errorf("actor identity is required")
	}
	if roomCode == "" {
		return "", fmt.Errorf("room code is required")
	}
	if s.secret == "" {
		return "", fmt.Errorf("service token secret is not configured")
	}

	claims := jwt.MapClaims{
		"iss":  serviceTokenIssuer,
		"sub":  actorIdentity,
		"room": roomCode,
		"exp":  s.clock.Now().Add(serviceTokenTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.secret))
}

// Verify checks a presented token against the actor and room the caller
// claims to act for.
func (s *ServiceTokenService) Verify(tokenString, actorIdentity, roomCode string) error {
	if s == nil || s.secret == "" {
		return fmt.Errorf("service token secret is not configured")
	}
	parsed, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.secret), nil
	})
	if err != nil {
		return fmt.Errorf("parse service token: %w", err)
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return fmt.Errorf("service token is invalid")
	}
	if iss, _ := claims["iss"].(string); iss != serviceTokenIssuer {
		return fmt.Errorf("service token has unexpected issuer")
	}
	if sub, _ := claims["sub"].(string); sub != actorIdentity {
		return fmt.Errorf("service token does not cover actor %q", actorIdentity)
	}
	if room, _ := claims["room"].(string); room != roomCode {
		return fmt.Errorf("service token does not cover room %q", roomCode)
	}
	return nil
}
