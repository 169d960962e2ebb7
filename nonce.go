package postpdf

import (
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"time"

	"github.com/gorilla/securecookie"
)

// ActionGeneratePDF is the nonce scope of the PDF generation request.
const ActionGeneratePDF = "generate_pdf"

// NonceIssuer creates and verifies action-scoped request tokens. A token is
// an HMAC-signed, timestamped value: the signed name binds the action and the
// payload binds the actor, so a token minted for one action or actor is
// rejected for any other.
type NonceIssuer struct {
	codec *securecookie.SecureCookie
}

// NewNonceIssuer returns an issuer signing with secret. Tokens expire after ttl.
func NewNonceIssuer(secret string, ttl time.Duration) (*NonceIssuer, error) {
	if secret == "" {
		return nil, errors.New("postpdf: nonce secret is required")
	}
	if ttl < time.Second {
		ttl = 24 * time.Hour
	}
	key := sha256.Sum256([]byte("postpdf-nonce:" + secret))
	codec := securecookie.New(key[:], nil)
	codec.MaxAge(int(ttl / time.Second))
	codec.SetSerializer(securecookie.JSONEncoder{})
	return &NonceIssuer{codec: codec}, nil
}

// Create mints a token for action on behalf of actor.
func (n *NonceIssuer) Create(action string, actor Actor) (string, error) {
	return n.codec.Encode(action, actor.nonceID())
}

// Verify reports whether token was minted for action and actor and has not
// expired.
func (n *NonceIssuer) Verify(action string, actor Actor, token string) bool {
	if n == nil || token == "" {
		return false
	}
	var id string
	if err := n.codec.Decode(action, token, &id); err != nil {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(id), []byte(actor.nonceID())) == 1
}
