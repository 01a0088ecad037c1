package auth

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"golang.org/x/crypto/bcrypt"
)

const (
	// DefaultAccessTokenTTL is the lifetime of signed access tokens
	DefaultAccessTokenTTL = 24 * time.Hour
	// DefaultRefreshTokenTTL is the fixed refresh window
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
	// DefaultPasswordHashCost matches bcrypt.DefaultCost
	DefaultPasswordHashCost = bcrypt.DefaultCost
)

// Options is the concrete Config loaded at startup
type Options struct {
	SigningKey       string        `mapstructure:"signing_key" json:"signing_key"`
	Issuer           string        `mapstructure:"issuer" json:"issuer"`
	Audience         []string      `mapstructure:"audience" json:"audience"`
	AccessTokenTTL   time.Duration `mapstructure:"access_token_ttl" json:"access_token_ttl"`
	RefreshTokenTTL  time.Duration `mapstructure:"refresh_token_ttl" json:"refresh_token_ttl"`
	PasswordHashCost int           `mapstructure:"password_hash_cost" json:"password_hash_cost"`

	// PreviousSigningKeys still verify access tokens but never sign new ones
	PreviousSigningKeys []string `mapstructure:"previous_signing_keys" json:"previous_signing_keys"`

	// DerivedUserIDs makes Register derive the user ID from the email address
	DerivedUserIDs bool `mapstructure:"derived_user_ids" json:"derived_user_ids"`
}

var _ Config = Options{}

// ApplyDefaults fills zero values
func (o *Options) ApplyDefaults() {
	if o.AccessTokenTTL <= 0 {
		o.AccessTokenTTL = DefaultAccessTokenTTL
	}
	if o.RefreshTokenTTL <= 0 {
		o.RefreshTokenTTL = DefaultRefreshTokenTTL
	}
	if o.PasswordHashCost == 0 {
		o.PasswordHashCost = DefaultPasswordHashCost
	}
}

// Validate checks the options after defaults are applied
func (o Options) Validate() error {
	err := validation.ValidateStruct(&o,
		validation.Field(&o.SigningKey, validation.Required, validation.Length(16, 0)),
		validation.Field(&o.AccessTokenTTL, validation.Required),
		validation.Field(&o.RefreshTokenTTL, validation.Required),
		validation.Field(&o.PasswordHashCost, validation.Required, validation.Min(bcrypt.MinCost), validation.Max(bcrypt.MaxCost)),
	)
	if err != nil {
		return wrapSource(ErrInvalidInput, err, map[string]any{
			"scope":  "options",
			"fields": err.Error(),
		})
	}
	return nil
}

func (o Options) GetSigningKey() string {
	return o.SigningKey
}

func (o Options) GetIssuer() string {
	return o.Issuer
}

func (o Options) GetAudience() []string {
	return o.Audience
}

func (o Options) GetAccessTokenTTL() time.Duration {
	if o.AccessTokenTTL <= 0 {
		return DefaultAccessTokenTTL
	}
	return o.AccessTokenTTL
}

func (o Options) GetRefreshTokenTTL() time.Duration {
	if o.RefreshTokenTTL <= 0 {
		return DefaultRefreshTokenTTL
	}
	return o.RefreshTokenTTL
}

func (o Options) GetPasswordHashCost() int {
	if o.PasswordHashCost == 0 {
		return DefaultPasswordHashCost
	}
	return o.PasswordHashCost
}
