// Package auth issues and verifies player tokens and hashes table passwords.
package auth

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"time"

	"github.com/Luka-CB/card-game-server/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("invalid token")

// Signer signs and verifies ed25519 JWTs. A zero TTL issues tokens without exp.
type Signer struct {
	private ed25519.PrivateKey
	public  ed25519.PublicKey
	ttl     time.Duration
	now     func() time.Time
}

// NewSigner generates a fresh key pair. Tokens do not survive a restart.
func NewSigner(ttl time.Duration) (*Signer, error) {
	public, private, err := ed25519.GenerateKey(nil)
	if err != nil {
		return nil, fmt.Errorf("generate ed25519 key pair: %w", err)
	}
	return &Signer{private: private, public: public, ttl: ttl, now: time.Now}, nil
}

// ParseTokenTTL reads TOKEN_EXPIRE_TIME values: "", "0" and "never" mean no expiry.
func ParseTokenTTL(s string) (time.Duration, error) {
	switch s {
	case "", "0", "never":
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("parse token expire time: %w", err)
	}
	return d, nil
}

// CreateJWT signs a token with sub = userID and name = username.
func (s *Signer) CreateJWT(userID uuid.UUID, username string) (string, error) {
	return s.sign(models.User{ID: userID, Username: username})
}

// CreateGuestJWT issues a token for a fresh guest identity.
func (s *Signer) CreateGuestJWT(username string) (models.User, string, error) {
	u := models.User{ID: uuid.New(), Username: username, IsGuest: true}
	token, err := s.sign(u)
	if err != nil {
		return models.User{}, "", err
	}
	return u, token, nil
}

func (s *Signer) sign(u models.User) (string, error) {
	claims := jwt.MapClaims{
		"sub":  u.ID.String(),
		"name": u.Username,
		"iat":  s.now().Unix(),
	}
	if u.IsGuest {
		claims["guest"] = true
	}
	if s.ttl > 0 {
		claims["exp"] = s.now().Add(s.ttl).Unix()
	}
	return jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims).SignedString(s.private)
}

// AuthenticateJWT verifies tokenString and returns the user it names.
func (s *Signer) AuthenticateJWT(tokenString string) (models.User, error) {
	t, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.public, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return models.User{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := t.Claims.(jwt.MapClaims)
	if !ok || !t.Valid {
		return models.User{}, ErrInvalidToken
	}
	sub, _ := claims["sub"].(string)
	id, err := uuid.Parse(sub)
	if err != nil {
		return models.User{}, fmt.Errorf("%w: bad sub %q", ErrInvalidToken, sub)
	}
	name, _ := claims["name"].(string)
	guest, _ := claims["guest"].(bool)
	return models.User{ID: id, Username: name, IsGuest: guest}, nil
}
