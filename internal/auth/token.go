package auth

import (
	"errors"
	"fmt"
	"time"

	jw "github.com/golang-jwt/jwt/v5"
)

// TokenParser turns bearer tokens into Claims. Permission strings are parsed
// into structured pairs here, once, so checks never re-parse them.
type TokenParser struct {
	secret []byte
}

func NewTokenParser(secret string) *TokenParser {
	return &TokenParser{secret: []byte(secret)}
}

func (tp *TokenParser) Parse(token string) (*Claims, error) {
	t, err := jw.Parse(token,
		func(t *jw.Token) (any, error) { return tp.secret, nil },
		jw.WithValidMethods([]string{"HS256"}),
	)
	if err != nil || !t.Valid {
		return nil, errors.New("invalid token")
	}
	mc, ok := t.Claims.(jw.MapClaims)
	if !ok {
		return nil, errors.New("bad claims")
	}
	sub, _ := mc["sub"].(string)
	if sub == "" {
		return nil, errors.New("missing subject")
	}
	claims := &Claims{Subject: sub}
	if raw, ok := mc["perms"].([]any); ok {
		for _, v := range raw {
			s, _ := v.(string)
			p, ok := ParsePermission(s)
			if !ok {
				return nil, fmt.Errorf("malformed permission %q", s)
			}
			claims.Permissions = append(claims.Permissions, p)
		}
	}
	return claims, nil
}

// Make issues a token for the given subject and permissions. Used by tests
// and local tooling; production tokens come from the identity service.
func (tp *TokenParser) Make(subject string, perms []Permission, ttl time.Duration) (string, error) {
	strs := make([]string, 0, len(perms))
	for _, p := range perms {
		strs = append(strs, p.String())
	}
	claims := jw.MapClaims{
		"sub":   subject,
		"perms": strs,
		"iat":   time.Now().Unix(),
		"exp":   time.Now().Add(ttl).Unix(),
	}
	return jw.NewWithClaims(jw.SigningMethodHS256, claims).SignedString(tp.secret)
}
