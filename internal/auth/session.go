// internal/auth/session.go
package auth

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jason-s-yu/lobbyrelay/internal/models"
)

// ErrInvalidToken wraps every verification failure.
var ErrInvalidToken = errors.New("invalid session token")

// Tokens signs and verifies the reconnect tokens handed out in login_ack. A token's
// subject is the player id it resumes.
type Tokens struct {
	privateKey ed25519.PrivateKey
	publicKey  ed25519.PublicKey
	// expire is the token lifetime; 0 issues tokens without an exp claim.
	expire time.Duration
	now    func() time.Time
}

// NewTokens generates a fresh ed25519 key pair. Tokens do not survive a restart,
// which matches the coordinator's in-memory players.
func NewTokens(expire time.Duration) (*Tokens, error) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to generate ed25519 key pair: %w", err)
	}
	return &Tokens{privateKey: priv, publicKey: pub, expire: expire, now: time.Now}, nil
}

// Load reads the key pair from privatePath and publicPath when they are set and
// generates a fresh pair otherwise.
func Load(privatePath, publicPath string, expire time.Duration) (*Tokens, error) {
	if privatePath == "" && publicPath == "" {
		return NewTokens(expire)
	}
	return NewTokensFromPath(privatePath, publicPath, expire)
}

// NewTokensFromPath reads a raw ed25519 key pair from disk.
func NewTokensFromPath(privatePath, publicPath string, expire time.Duration) (*Tokens, error) {
	privateKeyData, err := os.ReadFile(privatePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key file: %w", err)
	}
	publicKeyData, err := os.ReadFile(publicPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read public key file: %w", err)
	}
	if len(privateKeyData) != ed25519.PrivateKeySize || len(publicKeyData) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("unexpected ed25519 key sizes %d/%d", len(privateKeyData), len(publicKeyData))
	}
	return &Tokens{
		privateKey: ed25519.PrivateKey(privateKeyData),
		publicKey:  ed25519.PublicKey(publicKeyData),
		expire:     expire,
		now:        time.Now,
	}, nil
}

// Issue creates a signed token with "sub" = id.
func (t *Tokens) Issue(id models.ID) (string, error) {
	now := t.now()
	claims := jwt.RegisteredClaims{
		Subject:  id.String(),
		IssuedAt: jwt.NewNumericDate(now),
	}
	if t.expire > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(t.expire))
	}
	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	return token.SignedString(t.privateKey)
}

// Authenticate verifies tokenString and returns the player id in its subject.
func (t *Tokens) Authenticate(tokenString string) (models.ID, error) {
	var claims jwt.RegisteredClaims
	parsed, err := jwt.ParseWithClaims(tokenString, &claims, func(tok *jwt.Token) (interface{}, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", tok.Header["alg"])
		}
		return t.publicKey, nil
	}, jwt.WithTimeFunc(t.now))
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return 0, ErrInvalidToken
	}

	id, err := models.ParseID(claims.Subject)
	if err != nil {
		return 0, fmt.Errorf("%w: bad subject %q", ErrInvalidToken, claims.Subject)
	}
	return id, nil
}
