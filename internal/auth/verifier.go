package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrUnauthenticated is returned for every credential failure. Missing,
// malformed, badly signed and expired credentials are deliberately not
// distinguishable from each other by the caller.
var ErrUnauthenticated = errors.New("unauthenticated")

// Claims is the credential payload issued by the session service.
type Claims struct {
	UserID    string   `json:"user_id"`
	RootAdmin bool     `json:"root_admin,omitempty"`
	OrgIDs    []string `json:"org_ids,omitempty"`
	ClubIDs   []string `json:"club_ids,omitempty"`
	jwt.RegisteredClaims
}

// VerifierConfig holds credential verification settings
type VerifierConfig struct {
	// Secret is the single shared HMAC signing secret.
	Secret string
	// Leeway is the accepted clock skew when checking expiry.
	Leeway time.Duration
}

// Verifier validates signed connection credentials and derives identities.
type Verifier struct {
	secret []byte
	leeway time.Duration
}

// NewVerifier creates a Verifier with the given configuration
func NewVerifier(cfg *VerifierConfig) *Verifier {
	return &Verifier{
		secret: []byte(cfg.Secret),
		leeway: cfg.Leeway,
	}
}

// Verify checks the credential's signature and expiry and returns the
// caller's Identity. The signing algorithm is pinned to HS256; a credential
// claiming any other algorithm is rejected. Every failure mode collapses
// into ErrUnauthenticated.
func (v *Verifier) Verify(credential string) (*Identity, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return nil, ErrUnauthenticated
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(credential, claims,
		func(token *jwt.Token) (interface{}, error) {
			if token.Method != jwt.SigningMethodHS256 {
				return nil, ErrUnauthenticated
			}
			return v.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(v.leeway),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return nil, ErrUnauthenticated
	}

	if claims.UserID == "" {
		return nil, ErrUnauthenticated
	}

	return &Identity{
		UserID:    claims.UserID,
		RootAdmin: claims.RootAdmin,
		OrgIDs:    toSet(claims.OrgIDs),
		ClubIDs:   toSet(claims.ClubIDs),
	}, nil
}
