// internal/auth/session.go
package auth

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrWrongGame is returned when a seat token was issued for another game.
var ErrWrongGame = errors.New("seat token belongs to a different game")

// SeatClaims identifies one seat at one table. Subject is the player name.
type SeatClaims struct {
	GameID uuid.UUID `json:"gid"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies seat tokens with an ed25519 key pair.
type TokenIssuer struct {
	privateKey ed25519.PrivateKey
	publicKey  ed25519.PublicKey
	expire     time.Duration // 0 means no exp claim
}

// NewTokenIssuer generates a fresh key pair. Tokens do not survive a restart,
// which matches tables not surviving one.
func NewTokenIssuer(expire time.Duration) (*TokenIssuer, error) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to generate ed25519 key pair: %w", err)
	}
	return &TokenIssuer{privateKey: priv, publicKey: pub, expire: expire}, nil
}

// NewTokenIssuerFromPath reads a raw ed25519 key pair from disk.
func NewTokenIssuerFromPath(privatePath, publicPath string, expire time.Duration) (*TokenIssuer, error) {
	privateKeyData, err := os.ReadFile(privatePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key file: %w", err)
	}
	publicKeyData, err := os.ReadFile(publicPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read public key file: %w", err)
	}
	if len(privateKeyData) != ed25519.PrivateKeySize || len(publicKeyData) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("key files are not raw ed25519 keys")
	}
	return &TokenIssuer{
		privateKey: ed25519.PrivateKey(privateKeyData),
		publicKey:  ed25519.PublicKey(publicKeyData),
		expire:     expire,
	}, nil
}

// IssueSeatToken signs a token naming player as seated at gameID.
func (ti *TokenIssuer) IssueSeatToken(gameID uuid.UUID, player string) (string, error) {
	now := time.Now()
	claims := SeatClaims{
		GameID: gameID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  player,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if ti.expire > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ti.expire))
	}
	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	return token.SignedString(ti.privateKey)
}

// ParseSeatToken verifies a token and returns its claims.
func (ti *TokenIssuer) ParseSeatToken(tokenString string) (*SeatClaims, error) {
	claims := &SeatClaims{}
	t, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ti.publicKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("jwt parse error: %w", err)
	}
	if !t.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("missing sub in jwt")
	}
	return claims, nil
}

// Verify parses the token and checks it was issued for gameID.
func (ti *TokenIssuer) Verify(tokenString string, gameID uuid.UUID) (string, error) {
	claims, err := ti.ParseSeatToken(tokenString)
	if err != nil {
		return "", err
	}
	if claims.GameID != gameID {
		return "", ErrWrongGame
	}
	return claims.Subject, nil
}
