package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrEmptySubject = errors.New("empty token subject")
)

// Service validates the bearer tokens issued by the account service. Both
// sides share an HS256 secret.
type Service struct {
	jwtSecret []byte
}

func NewService(jwtSecret string) *Service {
	return &Service{jwtSecret: []byte(jwtSecret)}
}

// Identity is who a token was issued to.
type Identity struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName,omitempty"`
}

// IssueToken signs a token for id that expires after ttl.
func (s *Service) IssueToken(id Identity, ttl time.Duration) (string, error) {
	if id.UserID == "" {
		return "", ErrEmptySubject
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": id.UserID,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	}
	if id.DisplayName != "" {
		claims["name"] = id.DisplayName
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Identify parses and verifies tokenString.
func (s *Service) Identify(tokenString string) (Identity, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return Identity{}, ErrInvalidToken
	}

	userID, _ := claims["sub"].(string)
	if userID == "" {
		return Identity{}, fmt.Errorf("%w: %w", ErrInvalidToken, ErrEmptySubject)
	}
	name, _ := claims["name"].(string)
	return Identity{UserID: userID, DisplayName: name}, nil
}

// ValidateToken returns the user id carried by tokenString.
func (s *Service) ValidateToken(tokenString string) (string, error) {
	id, err := s.Identify(tokenString)
	if err != nil {
		return "", err
	}
	return id.UserID, nil
}
