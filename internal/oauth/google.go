// Package oauth verifies third-party identity tokens.
package oauth

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/api/idtoken"

	"github.com/agrilink/agrilink-backend/internal/apperrors"
)

// GoogleIdentity is the subset of ID-token claims the login flow uses.
type GoogleIdentity struct {
	Subject       string
	Email         string
	EmailVerified bool
	GivenName     string
	FamilyName    string
	Picture       string
}

// GoogleVerifier checks a Google Sign-In credential.
type GoogleVerifier interface {
	Verify(ctx context.Context, credential string) (*GoogleIdentity, error)
}

type googleVerifier struct {
	validator *idtoken.Validator
	clientID  string
}

// NewGoogleVerifier builds a verifier for tokens issued to clientID.
func NewGoogleVerifier(ctx context.Context, clientID string) (GoogleVerifier, error) {
	if clientID == "" {
		return nil, fmt.Errorf("google client id: %w", apperrors.ErrNotConfigured)
	}

	validator, err := idtoken.NewValidator(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Google token validator: %w", err)
	}

	return &googleVerifier{validator: validator, clientID: clientID}, nil
}

func (v *googleVerifier) Verify(ctx context.Context, credential string) (*GoogleIdentity, error) {
	payload, err := v.validator.Validate(ctx, credential, v.clientID)
	if err != nil {
		return nil, apperrors.Unauthorized("Invalid Google credential", err)
	}

	return identityFromClaims(payload.Subject, payload.Claims), nil
}

func identityFromClaims(subject string, claims map[string]interface{}) *GoogleIdentity {
	identity := &GoogleIdentity{
		Subject:    subject,
		Email:      strings.ToLower(stringClaim(claims, "email")),
		GivenName:  stringClaim(claims, "given_name"),
		FamilyName: stringClaim(claims, "family_name"),
		Picture:    stringClaim(claims, "picture"),
	}

	switch verified := claims["email_verified"].(type) {
	case bool:
		identity.EmailVerified = verified
	case string:
		identity.EmailVerified = verified == "true"
	}

	return identity
}

func stringClaim(claims map[string]interface{}, key string) string {
	if value, ok := claims[key].(string); ok {
		return value
	}
	return ""
}
