package identity

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/chatsync/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Claims is the bearer token payload.
type Claims struct {
	jwt.RegisteredClaims
	UID   string `json:"uid"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

func GenerateToken(id Identity, secretKey []byte, validityDuration time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(validityDuration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		UID:   id.UID,
		Name:  id.DisplayName,
		Email: id.Email,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}
	return tokenString, nil
}

// ParseToken verifies an HS256 token and returns the identity it carries.
func ParseToken(tokenString string, secretKey []byte) (Identity, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, common.ErrTokenExpired
		}
		return Identity{}, fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}
	if !token.Valid || claims.UID == "" {
		return Identity{}, common.ErrInvalidToken
	}

	return Identity{UID: claims.UID, DisplayName: claims.Name, Email: claims.Email}, nil
}

// JWTProvider signs users in from bearer tokens.
type JWTProvider struct {
	*session
	secret []byte
}

func NewJWTProvider(secret []byte) *JWTProvider {
	return &JWTProvider{session: newSession(), secret: secret}
}

// SignIn verifies the token and makes its identity current.
func (p *JWTProvider) SignIn(token string) (Identity, error) {
	id, err := ParseToken(token, p.secret)
	if err != nil {
		return Identity{}, err
	}
	p.set(id)
	return id, nil
}

var (
	_ Provider = (*JWTProvider)(nil)
	_ Provider = (*Guest)(nil)
)
