package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Roles carried in the access token
const (
	RoleWorker  = "worker"
	RoleManager = "manager"
)

var ErrInvalidToken = errors.New("invalid or expired token")

// Identity is the caller resolved from a bearer token
type Identity struct {
	EmployeeID string
	UserID     string
	Role       string
}

func (i *Identity) IsManager() bool {
	return i.Role == RoleManager
}

// TokenService signs and validates HS256 access tokens
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService creates a new TokenService
func NewTokenService(secret string, ttl time.Duration) *TokenService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenService{secret: []byte(secret), ttl: ttl}
}

// Issue signs a token for the identity. The CLI uses it to mint operator tokens.
func (s *TokenService) Issue(id Identity) (string, error) {
	if id.Role == "" {
		id.Role = RoleWorker
	}
	claims := jwt.MapClaims{
		"employee_id": id.EmployeeID,
		"user_id":     id.UserID,
		"role":        id.Role,
		"exp":         time.Now().Add(s.ttl).Unix(),
		"iat":         time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

func (s *TokenService) Validate(tokenString string) (*Identity, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	employeeID, _ := claims["employee_id"].(string)
	if employeeID == "" {
		return nil, fmt.Errorf("%w: missing employee_id", ErrInvalidToken)
	}
	userID, _ := claims["user_id"].(string)
	role, _ := claims["role"].(string)
	if role == "" {
		role = RoleWorker
	}
	return &Identity{EmployeeID: employeeID, UserID: userID, Role: role}, nil
}
