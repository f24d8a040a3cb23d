package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/Skotchmaster/storefront/internal/models"
)

const (
	typeAccess  = "access"
	typeRefresh = "refresh"
)

// ErrRejected covers every reason a credential is not accepted. Callers
// never branch on the cause.
var ErrRejected = errors.New("credential rejected")

// Principal is the verified identity behind a request.
type Principal struct {
	UserID uint
	Role   string
}

func (p Principal) IsAdmin() bool { return p.Role == models.RoleAdmin }

type AccessClaims struct {
	Role string `json:"role"`
	Type string `json:"typ"`
	jwt.RegisteredClaims
}

type RefreshClaims struct {
	Type string `json:"typ"`
	jwt.RegisteredClaims
}

type Tokens struct {
	AccessSecret  []byte
	RefreshSecret []byte
	Issuer        string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration

	Now func() time.Time
}

func (t *Tokens) now() time.Time {
	if t.Now != nil {
		return t.Now()
	}
	return time.Now()
}

func (t *Tokens) IssueAccess(userID uint, role string) (string, time.Time, error) {
	now := t.now()
	exp := now.Add(t.AccessTTL)
	claims := AccessClaims{
		Role: role,
		Type: typeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(userID), 10),
			Issuer:    t.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.AccessSecret)
	if err != nil {
		return "", time.Time{}, err
	}
	return s, exp, nil
}

func (t *Tokens) IssueRefresh(userID uint) (token, jti string, exp time.Time, err error) {
	now := t.now()
	exp = now.Add(t.RefreshTTL)
	jti = NewJTI()
	claims := RefreshClaims{
		Type: typeRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(userID), 10),
			Issuer:    t.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        jti,
		},
	}
	token, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.RefreshSecret)
	if err != nil {
		return "", "", time.Time{}, err
	}
	return token, jti, exp, nil
}

func (t *Tokens) parserOptions() []jwt.ParserOption {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	}
	if t.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(t.Issuer))
	}
	return opts
}

// Verify checks an access credential's signature, expiry and shape and
// returns the principal it names.
func (t *Tokens) Verify(credential string) (Principal, error) {
	if credential == "" {
		return Principal{}, ErrRejected
	}
	var claims AccessClaims
	tkn, err := jwt.ParseWithClaims(credential, &claims, func(*jwt.Token) (any, error) {
		return t.AccessSecret, nil
	}, t.parserOptions()...)
	if err != nil || !tkn.Valid {
		return Principal{}, fmt.Errorf("%w: %v", ErrRejected, err)
	}
	if claims.Type != typeAccess {
		return Principal{}, fmt.Errorf("%w: not an access token", ErrRejected)
	}
	id, err := parseSubject(claims.Subject)
	if err != nil {
		return Principal{}, err
	}
	switch claims.Role {
	case models.RoleUser, models.RoleAdmin:
	default:
		return Principal{}, fmt.Errorf("%w: unknown role", ErrRejected)
	}
	return Principal{UserID: id, Role: claims.Role}, nil
}

func (t *Tokens) ParseRefresh(token string) (*RefreshClaims, uint, error) {
	if token == "" {
		return nil, 0, ErrRejected
	}
	var claims RefreshClaims
	tkn, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return t.RefreshSecret, nil
	}, t.parserOptions()...)
	if err != nil || !tkn.Valid {
		return nil, 0, fmt.Errorf("%w: %v", ErrRejected, err)
	}
	if claims.Type != typeRefresh || claims.ID == "" {
		return nil, 0, fmt.Errorf("%w: not a refresh token", ErrRejected)
	}
	id, err := parseSubject(claims.Subject)
	if err != nil {
		return nil, 0, err
	}
	return &claims, id, nil
}

func parseSubject(sub string) (uint, error) {
	id, err := strconv.ParseUint(sub, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%w: bad subject", ErrRejected)
	}
	return uint(id), nil
}

func Sha256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func NewJTI() string { return uuid.NewString() }
