package jwt

import (
	"errors"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// Role is the "role" claim issued by the HRIS backend.
type Role string

const (
	RoleEmployee   Role = "employee"
	RoleTeamLeader Role = "team_leader"
	RoleManager    Role = "manager"
	RoleOwner      Role = "owner"
)

// CanViewTeam reports whether role may read other employees' dashboards.
func (r Role) CanViewTeam() bool {
	return r == RoleTeamLeader || r == RoleManager || r == RoleOwner
}

const (
	TokenTypeAccess = "access"
	TokenTypeSSE    = "sse"
)

var ErrInvalidSSEToken = errors.New("invalid stream token")

type Service interface {
	GenerateAccessToken(employeeID string, role Role) (token string, expiresAt int64, err error)
	GenerateSSEToken(employeeID string) (token string, expiresIn int, err error)
	ValidateSSEToken(tokenString string) (employeeID string, err error)
	JWTAuth() *jwtauth.JWTAuth
}

type JWTService struct {
	accessTokenExpiration time.Duration
	sseTokenExpiration    time.Duration
	tokenAuth             *jwtauth.JWTAuth
}

func (j *JWTService) JWTAuth() *jwtauth.JWTAuth {
	return j.tokenAuth
}

// NewJWTService verifies HS256 tokens signed with secretKey, the same secret
// the HRIS backend signs its access tokens with.
func NewJWTService(secretKey string, accessTokenExpiration, sseTokenExpiration time.Duration) *JWTService {
	if sseTokenExpiration <= 0 {
		sseTokenExpiration = 5 * time.Minute
	}
	return &JWTService{
		accessTokenExpiration: accessTokenExpiration,
		sseTokenExpiration:    sseTokenExpiration,
		tokenAuth:             jwtauth.New("HS256", []byte(secretKey), nil, jwt.WithAcceptableSkew(30*time.Second)),
	}
}

// GenerateAccessToken issues an access token. The backend is the usual
// issuer; this exists for local development and tests.
func (j *JWTService) GenerateAccessToken(employeeID string, role Role) (token string, expiresAt int64, err error) {
	expiresAt = time.Now().Add(j.accessTokenExpiration).Unix()

	_, tokenString, err := j.tokenAuth.Encode(map[string]interface{}{
		"employee_id": employeeID,
		"role":        string(role),
		"type":        TokenTypeAccess,
		"exp":         expiresAt,
	})
	return tokenString, expiresAt, err
}

// GenerateSSEToken issues a short-lived token for the event stream, which is
// opened by EventSource and cannot send an Authorization header.
func (j *JWTService) GenerateSSEToken(employeeID string) (token string, expiresIn int, err error) {
	expiresAt := time.Now().Add(j.sseTokenExpiration).Unix()

	_, tokenString, err := j.tokenAuth.Encode(map[string]interface{}{
		"employee_id": employeeID,
		"type":        TokenTypeSSE,
		"exp":         expiresAt,
	})
	if err != nil {
		return "", 0, err
	}

	return tokenString, int(j.sseTokenExpiration.Seconds()), nil
}

// ValidateSSEToken checks signature, expiry and type, and returns the employee ID.
func (j *JWTService) ValidateSSEToken(tokenString string) (employeeID string, err error) {
	token, err := jwtauth.VerifyToken(j.tokenAuth, tokenString)
	if err != nil {
		return "", err
	}

	tokenType, ok := token.Get("type")
	if !ok || tokenType != TokenTypeSSE {
		return "", ErrInvalidSSEToken
	}

	idVal, ok := token.Get("employee_id")
	if !ok {
		return "", ErrInvalidSSEToken
	}

	employeeID, ok = idVal.(string)
	if !ok || employeeID == "" {
		return "", ErrInvalidSSEToken
	}

	return employeeID, nil
}
