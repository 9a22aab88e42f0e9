package auth

import (
	"fmt"
	"strconv"

	"github.com/golang-jwt/jwt/v5"

	"github.com/fastprodman/loyalty/internal/config"
)

// Verifier validates bearer tokens.
type Verifier interface {
	Verify(token string) (Principal, error)
}

// JWTVerifier accepts HS256 tokens. The subject is the user id, the role
// sits in a configurable claim.
type JWTVerifier struct {
	secret    []byte
	roleClaim string
	parser    *jwt.Parser
}

func NewJWTVerifier(cfg config.AuthConfig) (*JWTVerifier, error) {
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("jwt secret is empty")
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if len(cfg.Audience) > 0 {
		opts = append(opts, jwt.WithAudience(cfg.Audience...))
	}

	roleClaim := cfg.RoleClaim
	if roleClaim == "" {
		roleClaim = "role"
	}

	return &JWTVerifier{
		secret:    []byte(cfg.JWTSecret),
		roleClaim: roleClaim,
		parser:    jwt.NewParser(opts...),
	}, nil
}

func (v *JWTVerifier) Verify(token string) (Principal, error) {
	claims := jwt.MapClaims{}

	_, err := v.parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil {
		return Principal{}, fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return Principal{}, fmt.Errorf("%w: missing subject", ErrUnauthorized)
	}

	rawRole, _ := claims[v.roleClaim].(string)

	role := Role(rawRole)
	if rawRole == "" {
		role = RoleUser
	}
	if !role.Valid() {
		return Principal{}, fmt.Errorf("%w: unknown role %q", ErrUnauthorized, rawRole)
	}

	p := Principal{Subject: sub, Role: role}

	// account ids are BIGINT, larger subjects are not user ids
	id, err := strconv.ParseUint(sub, 10, 63)
	if err == nil {
		p.UserID = id
	} else if role == RoleUser {
		return Principal{}, fmt.Errorf("%w: subject %q is not a user id", ErrUnauthorized, sub)
	}

	return p, nil
}
