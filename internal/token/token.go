package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the identity assertion carried by an access token.
type Claims struct {
	Sub  string `json:"sub"`
	Name string `json:"name"`
	JTI  string `json:"jti"`
	Iat  int64  `json:"iat"`
	Exp  int64  `json:"exp"`
}

// ExpiresAt returns the claim expiry as a time value.
func (c Claims) ExpiresAt() time.Time {
	return time.Unix(c.Exp, 0).UTC()
}

// ErrMalformed is the only failure Decode reports for bad input: broken
// envelope signature, undecryptable payload, or a payload that does not
// match the claim schema. Callers treat it as "invalid credential" and
// must not map unexpected error classes onto it.
var ErrMalformed = errors.New("token: malformed")

// envelope is the signed outer JWT; the encrypted claim payload rides in
// a single private claim.
type envelope struct {
	Payload string `json:"enc"`
	jwt.RegisteredClaims
}
