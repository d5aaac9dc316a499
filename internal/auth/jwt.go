package auth

import (
	"errors"
	"strconv"
	"time"

	"github.com/example/ec-order-payments/internal/model"
	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")

	ErrInvalidIdentity = errors.New("user id must be positive and role admin or customer")
)

// Claims represents JWT claims. The subject is the numeric user id.
type Claims struct {
	Role model.Role `json:"role"`
	jwt.RegisteredClaims
}

// Identity converts validated claims into the caller identity
func (c *Claims) Identity() (model.Identity, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || id <= 0 {
		return model.Identity{}, ErrInvalidToken
	}
	switch c.Role {
	case model.RoleAdmin, model.RoleCustomer:
	default:
		return model.Identity{}, ErrInvalidToken
	}
	return model.Identity{UserID: id, Role: c.Role}, nil
}

// JWTService validates bearer tokens. Tokens are normally issued by the
// identity service with the same secret; GenerateAccessToken backs the
// operator token command.
type JWTService struct {
	secretKey         []byte
	accessTokenExpiry time.Duration
}

// NewJWTService creates a new JWT service
func NewJWTService(secretKey string, accessExpiry time.Duration) *JWTService {
	return &JWTService{
		secretKey:         []byte(secretKey),
		accessTokenExpiry: accessExpiry,
	}
}

// GenerateAccessToken creates a new access token
func (s *JWTService) GenerateAccessToken(userID int64, role model.Role) (string, time.Time, error) {
	if _, err := (&Claims{Role: role, RegisteredClaims: jwt.RegisteredClaims{Subject: strconv.FormatInt(userID, 10)}}).Identity(); err != nil {
		return "", time.Time{}, ErrInvalidIdentity
	}
	expiresAt := time.Now().Add(s.accessTokenExpiry)

	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Subject:   strconv.FormatInt(userID, 10),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secretKey)
	if err != nil {
		return "", time.Time{}, err
	}

	return tokenString, expiresAt, nil
}

// ValidateAccessToken validates an access token and returns claims
func (s *JWTService) ValidateAccessToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secretKey, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
