package auth

// TokenValidator validates tokens and extracts claims without tying callers
// to a specific signing implementation.
type TokenValidator interface {
	Validate(tokenString string) (AuthClaims, error)
}

// TokenValidatorFunc adapts a function into a TokenValidator.
type TokenValidatorFunc func(tokenString string) (AuthClaims, error)

// Validate satisfies the TokenValidator interface.
func (f TokenValidatorFunc) Validate(tokenString string) (AuthClaims, error) {
	if f == nil {
		return nil, ErrTokenMalformed
	}
	return f(tokenString)
}

// MultiTokenValidator tries validators in order until one succeeds. Signature
// and decode failures move on to the next validator, so tokens signed with a
// retired key keep verifying while it is still listed. Expiry is final.
type MultiTokenValidator struct {
	validators []TokenValidator
}

// NewMultiTokenValidator filters nil validators and returns a composite validator.
func NewMultiTokenValidator(validators ...TokenValidator) *MultiTokenValidator {
	filtered := make([]TokenValidator, 0, len(validators))
	for _, v := range validators {
		if v != nil {
			filtered = append(filtered, v)
		}
	}
	return &MultiTokenValidator{validators: filtered}
}

// Validate satisfies the TokenValidator interface.
func (m *MultiTokenValidator) Validate(tokenString string) (AuthClaims, error) {
	var lastErr error
	for _, v := range m.validators {
		claims, err := v.Validate(tokenString)
		if err == nil {
			return claims, nil
		}
		if IsMalformedError(err) || HasTextCode(err, TextCodeTokenSignatureInvalid) {
			lastErr = err
			continue
		}
		return nil, err
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, ErrTokenMalformed
}

// NewTokenValidatorFromConfig verifies with the active signing key first and
// then with every previous key still accepted.
func NewTokenValidatorFromConfig(cfg Options, opts ...TokenServiceOption) TokenValidator {
	validators := []TokenValidator{NewTokenServiceFromConfig(cfg, opts...)}
	for _, key := range cfg.PreviousSigningKeys {
		if key == "" {
			continue
		}
		validators = append(validators, NewTokenService(
			[]byte(key),
			cfg.GetAccessTokenTTL(),
			cfg.GetIssuer(),
			cfg.GetAudience(),
			opts...,
		))
	}
	return NewMultiTokenValidator(validators...)
}
