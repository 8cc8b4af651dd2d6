package token

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Codec issues and decodes access tokens. The claim set is serialized to
// JSON, sealed with AES-256-GCM, and the ciphertext is wrapped in an
// HS512-signed JWT envelope, so a token is both confidential and
// tamper-evident. Decode is pure; expiry is enforced by the credential
// store, not here.
type Codec struct {
	signingKey    []byte
	encryptionKey []byte
	tokenTTL      time.Duration

	// Now is the clock used for issued-at/expiry; overridable in tests.
	Now func() time.Time
}

func NewCodec(signingKey, encryptionKey []byte, tokenTTL time.Duration) (*Codec, error) {
	if len(signingKey) == 0 {
		return nil, fmt.Errorf("token: signing key is required")
	}
	if len(encryptionKey) != 32 {
		return nil, fmt.Errorf("token: encryption key must be 32 bytes, got %d", len(encryptionKey))
	}
	if tokenTTL <= 0 {
		return nil, fmt.Errorf("token: ttl must be positive")
	}
	return &Codec{
		signingKey:    signingKey,
		encryptionKey: encryptionKey,
		tokenTTL:      tokenTTL,
		Now:           time.Now,
	}, nil
}

// NewTokenID returns a 256-bit crypto-random token identifier.
func NewTokenID() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// Issue builds the claim set for the subject and seals it into a token
// string. The returned claims carry the jti and expiry the caller must
// persist alongside the user.
func (c *Codec) Issue(email, name string) (string, Claims, error) {
	jti, err := NewTokenID()
	if err != nil {
		return "", Claims{}, fmt.Errorf("generate token id: %w", err)
	}

	now := c.Now()
	claims := Claims{
		Sub:  email,
		Name: name,
		JTI:  jti,
		Iat:  now.Unix(),
		Exp:  now.Add(c.tokenTTL).Unix(),
	}

	payload, err := json.Marshal(claims)
	if err != nil {
		return "", Claims{}, fmt.Errorf("marshal claims: %w", err)
	}

	sealed, err := c.seal(payload)
	if err != nil {
		return "", Claims{}, fmt.Errorf("seal claims: %w", err)
	}

	outer := jwt.NewWithClaims(jwt.SigningMethodHS512, envelope{Payload: sealed})
	signed, err := outer.SignedString(c.signingKey)
	if err != nil {
		return "", Claims{}, fmt.Errorf("sign token: %w", err)
	}

	return signed, claims, nil
}

// Decode verifies the envelope signature, decrypts the payload, and
// returns the claims. Any verification, decryption, or schema failure
// yields ErrMalformed.
func (c *Codec) Decode(tokenString string) (Claims, error) {
	var outer envelope
	parsed, err := jwt.ParseWithClaims(tokenString, &outer, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.signingKey, nil
	})
	if err != nil || !parsed.Valid || outer.Payload == "" {
		return Claims{}, ErrMalformed
	}

	payload, err := c.open(outer.Payload)
	if err != nil {
		return Claims{}, ErrMalformed
	}

	var claims Claims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return Claims{}, ErrMalformed
	}
	if claims.Sub == "" || claims.JTI == "" {
		return Claims{}, ErrMalformed
	}

	return claims, nil
}

func (c *Codec) seal(plaintext []byte) (string, error) {
	block, err := aes.NewCipher(c.encryptionKey)
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}

	sealed := gcm.Seal(nonce, nonce, plaintext, nil)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

func (c *Codec) open(encoded string) ([]byte, error) {
	sealed, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(c.encryptionKey)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	if len(sealed) < gcm.NonceSize() {
		return nil, fmt.Errorf("payload too short")
	}

	nonce, ciphertext := sealed[:gcm.NonceSize()], sealed[gcm.NonceSize():]
	return gcm.Open(nil, nonce, ciphertext, nil)
}
