// Package token encodes and decodes signed claim sets as opaque HS256 JWT strings.
//
// Two claim schemas share one codec: session claims and pagination cursor
// claims. Each carries a kind tag, and a decoder refuses tokens of the other
// kind, so a cursor can never be presented as a bearer token and vice versa.
package token

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/and161185/notekeeper/internal/errs"
)

// Kind tags the claim schema carried by a token.
type Kind string

const (
	KindSession Kind = "session"
	KindCursor  Kind = "cursor"
)

// SessionClaims identify a logged-in user. Nonce makes every issuance unique.
type SessionClaims struct {
	Kind     Kind   `json:"knd"`
	UID      string `json:"uid"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Verified bool   `json:"verified"`
	Nonce    string `json:"nonce"`
	jwt.RegisteredClaims
}

// CursorClaims carry pagination state for one listing.
type CursorClaims struct {
	Kind         Kind    `json:"knd"`
	Resource     string  `json:"res"`
	Subject      *string `json:"subj"`
	TotalPages   int     `json:"tp"`
	ItemsPerPage int     `json:"ipp"`
	CurrentPage  int     `json:"cp"`
	jwt.RegisteredClaims
}

// Codec signs and verifies tokens with a single symmetric key.
type Codec struct {
	key    []byte
	parser *jwt.Parser
}

// NewCodec constructs a codec for the given HMAC key.
func NewCodec(key []byte) (*Codec, error) {
	if len(key) == 0 {
		return nil, errors.New("token: empty signing key")
	}
	k := make([]byte, len(key))
	copy(k, key)
	return &Codec{
		key:    k,
		parser: jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})),
	}, nil
}

// EncodeSession signs session claims. The kind tag is forced.
func (c *Codec) EncodeSession(cl SessionClaims) (string, error) {
	cl.Kind = KindSession
	return c.sign(&cl)
}

// DecodeSession verifies tok and returns its session claims.
func (c *Codec) DecodeSession(tok string) (SessionClaims, error) {
	var cl SessionClaims
	if err := c.decode(tok, &cl); err != nil {
		return SessionClaims{}, err
	}
	if cl.Kind != KindSession {
		return SessionClaims{}, fmt.Errorf("%w: kind %q is not a session", errs.ErrTokenMalformed, cl.Kind)
	}
	return cl, nil
}

// EncodeCursor signs cursor claims. The kind tag is forced.
func (c *Codec) EncodeCursor(cl CursorClaims) (string, error) {
	cl.Kind = KindCursor
	return c.sign(&cl)
}

// DecodeCursor verifies tok and returns its cursor claims.
func (c *Codec) DecodeCursor(tok string) (CursorClaims, error) {
	var cl CursorClaims
	if err := c.decode(tok, &cl); err != nil {
		return CursorClaims{}, err
	}
	if cl.Kind != KindCursor {
		return CursorClaims{}, fmt.Errorf("%w: kind %q is not a cursor", errs.ErrTokenMalformed, cl.Kind)
	}
	return cl, nil
}

func (c *Codec) sign(claims jwt.Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.key)
}

// decode checks the MAC over the raw header and payload before anything is
// parsed, so every altered byte outside the delimiters reads as a bad signature.
func (c *Codec) decode(tok string, claims jwt.Claims) error {
	parts := strings.Split(tok, ".")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" {
		return fmt.Errorf("%w: want 3 segments", errs.ErrTokenMalformed)
	}

	sig, err := base64.RawURLEncoding.Strict().DecodeString(parts[2])
	if err != nil {
		return fmt.Errorf("%w: signature segment", errs.ErrSignatureInvalid)
	}
	signing := tok[:len(parts[0])+1+len(parts[1])]
	if err := jwt.SigningMethodHS256.Verify(signing, sig, c.key); err != nil {
		return errs.ErrSignatureInvalid
	}

	if _, err := c.parser.ParseWithClaims(tok, claims, func(*jwt.Token) (any, error) {
		return c.key, nil
	}); err != nil {
		if errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			return errs.ErrSignatureInvalid
		}
		return fmt.Errorf("%w: %v", errs.ErrTokenMalformed, err)
	}
	return nil
}
