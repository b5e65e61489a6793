package googleauth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// googleClaims is the wire shape of a Google ID token payload
type googleClaims struct {
	jwt.RegisteredClaims
	Email           string `json:"email"`
	EmailVerified   bool   `json:"email_verified"`
	Name            string `json:"name,omitempty"`
	HostedDomain    string `json:"hd,omitempty"`
	AuthorizedParty string `json:"azp,omitempty"`
}

// VerifiedClaims is the payload of a token that passed signature and claim
// validation. Only the Verifier constructs one.
type VerifiedClaims struct {
	email         string
	subject       string
	issuer        string
	audience      []string
	expiresAt     time.Time
	issuedAt      time.Time
	emailVerified bool
	name          string
	hostedDomain  string
}

func newVerifiedClaims(c *googleClaims) *VerifiedClaims {
	vc := &VerifiedClaims{
		email:         c.Email,
		subject:       c.Subject,
		issuer:        c.Issuer,
		audience:      append([]string(nil), c.Audience...),
		emailVerified: c.EmailVerified,
		name:          c.Name,
		hostedDomain:  c.HostedDomain,
	}
	if c.ExpiresAt != nil {
		vc.expiresAt = c.ExpiresAt.Time
	}
	if c.IssuedAt != nil {
		vc.issuedAt = c.IssuedAt.Time
	}
	return vc
}

func (c *VerifiedClaims) Email() string        { return c.email }
func (c *VerifiedClaims) Subject() string      { return c.subject }
func (c *VerifiedClaims) Issuer() string       { return c.issuer }
func (c *VerifiedClaims) ExpiresAt() time.Time { return c.expiresAt }
func (c *VerifiedClaims) IssuedAt() time.Time  { return c.issuedAt }
func (c *VerifiedClaims) EmailVerified() bool  { return c.emailVerified }
func (c *VerifiedClaims) Name() string         { return c.name }
func (c *VerifiedClaims) HostedDomain() string { return c.hostedDomain }

// Audience returns a copy of the aud claim
func (c *VerifiedClaims) Audience() []string {
	return append([]string(nil), c.audience...)
}
