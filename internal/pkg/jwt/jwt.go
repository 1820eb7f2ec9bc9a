package jwt

import (
	"errors"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

type Service struct {
	secret []byte
	ttl    time.Duration
	issuer string
}

// Claims identify an external account. The subject is the stable external
// uid; roles are never carried in the token.
type Claims struct {
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	Phone string `json:"phone_number,omitempty"`
	jwtlib.RegisteredClaims
}

func New(secret string, ttl time.Duration, issuer string) *Service {
	return &Service{
		secret: []byte(secret),
		ttl:    ttl,
		issuer: issuer,
	}
}

func (s *Service) GenerateToken(uid, name, email, phone string) (string, error) {
	if uid == "" {
		return "", errors.New("empty subject")
	}
	now := time.Now()
	claims := Claims{
		Email: email,
		Name:  name,
		Phone: phone,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   uid,
			Issuer:    s.issuer,
			ExpiresAt: jwtlib.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwtlib.NewNumericDate(now),
		},
	}

	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

func (s *Service) ValidateToken(tokenStr string) (*Claims, error) {
	token, err := jwtlib.ParseWithClaims(tokenStr, &Claims{}, func(t *jwtlib.Token) (any, error) {
		return s.secret, nil
	}, jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return nil, errors.New("invalid token")
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || claims.Subject == "" {
		return nil, errors.New("invalid claims")
	}

	return claims, nil
}
