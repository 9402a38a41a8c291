package jwt

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// DefaultLeeway is the clock-skew tolerance applied to nbf and exp.
	DefaultLeeway = 60 * time.Second
	// DefaultTTL matches the guest session lifetime of the storefront.
	DefaultTTL = 48 * time.Hour

	maxLeeway = 2 * time.Minute
)

var (
	// ErrMalformedToken is returned when the token is not a parseable compact JWS or
	// lacks one of the registered time claims.
	ErrMalformedToken = errors.New("malformed session token")
	// ErrInvalidSignature is returned when the signature does not verify under the
	// configured secret or the token was signed with another algorithm.
	ErrInvalidSignature = errors.New("invalid session token signature")
	// ErrExpired is returned when exp, extended by the leeway, has passed.
	ErrExpired = errors.New("session token expired")
	// ErrNotYetValid is returned when nbf, reduced by the leeway, is in the future.
	ErrNotYetValid = errors.New("session token not yet valid")
	// ErrInvalidClaims is returned by CheckClaims for issuer or subject mismatches.
	ErrInvalidClaims = errors.New("invalid session token claims")
)

// Config configures a [Codec].
//
// Config instances are intended to be configured during initialization and then treated as immutable.
type Config struct {
	Secret []byte
	Issuer string
	TTL    time.Duration
	Leeway time.Duration
	Now    func() time.Time
}

// SessionData is the private claim set carried under the "data" key.
type SessionData struct {
	CustomerID string `json:"customer_id"`
}

// Claims is the decoded session token payload.
type Claims struct {
	Data SessionData `json:"data"`
	jwt.RegisteredClaims
}

// CustomerID returns the subject carried in data.customer_id.
func (c *Claims) CustomerID() string {
	if c == nil {
		return ""
	}
	return c.Data.CustomerID
}

// Codec signs and verifies session tokens with HMAC-SHA256.
//
// A Codec holds no mutable state and is safe for concurrent use.
type Codec struct {
	config Config
	parser *jwt.Parser
}

// NewCodec validates cfg, fills defaults and returns a ready [Codec].
func NewCodec(cfg Config) (*Codec, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("session token secret is required")
	}
	if cfg.TTL == 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.TTL < 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.Leeway == 0 {
		cfg.Leeway = DefaultLeeway
	}
	if cfg.Leeway < 0 || cfg.Leeway > maxLeeway {
		return nil, errors.New("invalid leeway configuration")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	cfg.Issuer = strings.TrimSpace(cfg.Issuer)
	cfg.Secret = append([]byte(nil), cfg.Secret...)

	c := &Codec{config: cfg}
	c.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(cfg.Leeway),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(cfg.Now),
	)
	return c, nil
}

// Issuer returns the configured server origin.
func (c *Codec) Issuer() string {
	return c.config.Issuer
}

// TTL returns the lifetime given to freshly issued tokens.
func (c *Codec) TTL() time.Duration {
	return c.config.TTL
}

// Issue mints a token for customerID with iat = nbf = now and exp = now + TTL.
func (c *Codec) Issue(customerID string) (string, *Claims, error) {
	now := c.config.Now()
	claims := &Claims{
		Data: SessionData{CustomerID: customerID},
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.config.TTL)),
		},
	}

	token, err := c.Encode(claims)
	if err != nil {
		return "", nil, err
	}
	return token, claims, nil
}

// Encode signs claims as they are. Failures are internal serialization errors.
func (c *Codec) Encode(claims *Claims) (string, error) {
	if claims == nil {
		return "", errors.New("nil claims")
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.config.Secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return token, nil
}

// Decode parses and verifies token. Returned errors wrap exactly one of
// ErrMalformedToken, ErrInvalidSignature, ErrExpired or ErrNotYetValid.
//
// Decode does not check the issuer or subject; see [CheckClaims].
func (c *Codec) Decode(token string) (*Claims, error) {
	if token == "" {
		return nil, ErrMalformedToken
	}

	claims := &Claims{}
	parsed, err := c.parser.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return c.config.Secret, nil
	})
	if err != nil {
		return nil, classify(err)
	}
	if !parsed.Valid {
		return nil, ErrInvalidSignature
	}
	if claims.IssuedAt == nil || claims.NotBefore == nil || claims.ExpiresAt == nil {
		return nil, fmt.Errorf("%w: missing time claim", ErrMalformedToken)
	}

	return claims, nil
}

// CheckClaims re-checks the semantic claims a valid signature cannot vouch for.
func CheckClaims(claims *Claims, issuer string) error {
	if claims == nil {
		return ErrInvalidClaims
	}
	if err := checkIssuer(claims.Issuer, issuer); err != nil {
		return err
	}
	return checkCustomerID(claims.Data.CustomerID)
}

func checkIssuer(got, want string) error {
	if got == "" {
		return fmt.Errorf("%w: empty issuer", ErrInvalidClaims)
	}
	if got != want {
		return fmt.Errorf("%w: issuer mismatch", ErrInvalidClaims)
	}
	return nil
}

func checkCustomerID(id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: empty customer id", ErrInvalidClaims)
	}
	return nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed),
		errors.Is(err, jwt.ErrTokenRequiredClaimMissing):
		return fmt.Errorf("%w: %v", ErrMalformedToken, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", ErrExpired, err)
	case errors.Is(err, jwt.ErrTokenNotValidYet):
		return fmt.Errorf("%w: %v", ErrNotYetValid, err)
	default:
		return fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
}
