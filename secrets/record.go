package secrets

import (
	"github.com/go-playground/validator/v10"

	apperrors "github.com/expo-laith/xero-ap-automation/internal/errors"
)

// Record is the credential document persisted between runs. Client
// credentials are entered once before first deployment; the token fields are
// rotated by the token lifecycle manager after every authorization or
// refresh.
//
// RefreshToken and TenantID are empty only before the first successful
// authorization. Once populated they are never written back to empty except
// by an explicit re-authorization.
type Record struct {
	ClientID     string   `json:"client_id" validate:"required"`
	ClientSecret string   `json:"client_secret" validate:"required"`
	RedirectURI  string   `json:"redirect_uri" validate:"required,url"`
	Scopes       []string `json:"scopes,omitempty"`
	RefreshToken string   `json:"refresh_token,omitempty"`
	AccessToken  string   `json:"access_token,omitempty"`
	TenantID     string   `json:"tenant_id,omitempty"`
	TokenType    string   `json:"token_type,omitempty"`
	ExpiresAt    int64    `json:"expires_at,omitempty"`
	ObtainedAt   int64    `json:"obtained_at,omitempty"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks that the fields required for any token operation are
// present. A record that fails validation is treated as malformed.
func (r *Record) Validate() error {
	if err := validate.Struct(r); err != nil {
		return apperrors.Wrapf(apperrors.ErrMalformedSecrets, "%v", err)
	}
	return nil
}

// Authorized reports whether the record has completed a first authorization.
func (r *Record) Authorized() bool {
	return r.RefreshToken != "" && r.TenantID != ""
}

// Clone returns a deep copy so callers never share the stored slice.
func (r *Record) Clone() *Record {
	clone := *r
	if r.Scopes != nil {
		clone.Scopes = append([]string(nil), r.Scopes...)
	}
	return &clone
}
