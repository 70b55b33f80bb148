package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/futsalhub/platform/internal/domain"
)

// Realm identifies the JWT authentication realm.
type Realm string

const (
	RealmUser  Realm = "user"
	RealmStaff Realm = "staff"
)

// Claims holds the custom JWT claims for both realms.
type Claims struct {
	jwt.RegisteredClaims
	Realm Realm       `json:"realm"`
	Email string      `json:"email,omitempty"`
	Role  domain.Role `json:"role,omitempty"` // staff realm: operator, admin
}

// Caller converts validated claims into the identity the match core consumes.
func (c *Claims) Caller() (domain.Caller, error) {
	id, err := uuid.Parse(c.Subject)
	if err != nil {
		return domain.Caller{}, fmt.Errorf("invalid subject: %w", err)
	}
	role := c.Role
	if c.Realm == RealmUser || !role.Valid() {
		role = domain.RoleViewer
	}
	return domain.Caller{ID: id, Role: role}, nil
}

// JWTManager handles token generation and validation for both realms.
type JWTManager struct {
	secret      []byte
	userExpiry  time.Duration
	staffExpiry time.Duration
}

// NewJWTManager creates a JWT manager with realm-specific expiry durations.
func NewJWTManager(secret string, userExpiry, staffExpiry time.Duration) *JWTManager {
	return &JWTManager{
		secret:      []byte(secret),
		userExpiry:  userExpiry,
		staffExpiry: staffExpiry,
	}
}

// GenerateToken creates a signed JWT for the given realm and subject.
func (m *JWTManager) GenerateToken(realm Realm, subjectID uuid.UUID, email string, role domain.Role) (string, error) {
	var expiry time.Duration
	switch realm {
	case RealmUser:
		expiry = m.userExpiry
	case RealmStaff:
		expiry = m.staffExpiry
	default:
		return "", fmt.Errorf("unknown realm: %s", realm)
	}

	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
			ID:        uuid.New().String(),
		},
		Realm: realm,
		Email: email,
		Role:  role,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// ValidateToken parses and validates a JWT, returning claims if valid.
func (m *JWTManager) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	return claims, nil
}

// ValidateTokenForRealm validates a token and ensures it belongs to the expected realm.
func (m *JWTManager) ValidateTokenForRealm(tokenString string, expectedRealm Realm) (*Claims, error) {
	claims, err := m.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Realm != expectedRealm {
		return nil, fmt.Errorf("expected realm %s, got %s", expectedRealm, claims.Realm)
	}
	return claims, nil
}
