package domain

import (
	"errors"
	"fmt"
)

// ErrorKind is the gateway's closed error taxonomy. Adapters and the
// selector only ever report outcomes through these five kinds.
type ErrorKind string

const (
	ErrorKindAuthMissing        ErrorKind = "auth_missing"
	ErrorKindAuthRequired       ErrorKind = "auth_required"
	ErrorKindProviderUnavailable ErrorKind = "provider_unavailable"
	ErrorKindConfig             ErrorKind = "config_error"
	ErrorKindInternal           ErrorKind = "internal"
)

// GatewayError is a structured error carrying the provider it originated
// from.
type GatewayError struct {
	Kind       ErrorKind
	ProviderID string
	Message    string
	Err        error
}

func (e *GatewayError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *GatewayError) Unwrap() error { return e.Err }

// Is matches on Kind, for use with errors.Is.
func (e *GatewayError) Is(target error) bool {
	var t *GatewayError
	if !errors.As(target, &t) {
		return false
	}
	return e.Kind == t.Kind
}

// NewGatewayError builds a GatewayError.
func NewGatewayError(kind ErrorKind, providerID, message string, err error) *GatewayError {
	return &GatewayError{Kind: kind, ProviderID: providerID, Message: message, Err: err}
}

// AuthMissing reports that a provider has no credential on record.
func AuthMissing(providerID string) *GatewayError {
	return NewGatewayError(ErrorKindAuthMissing, providerID, "No API key configured for provider", nil)
}

// AuthRequired reports a vendor-side 401.
func AuthRequired(providerID string) *GatewayError {
	return NewGatewayError(ErrorKindAuthRequired, providerID, "Provider rejected credentials", nil)
}

// ProviderUnavailable reports any other recoverable upstream failure.
func ProviderUnavailable(providerID, message string) *GatewayError {
	return NewGatewayError(ErrorKindProviderUnavailable, providerID, message, nil)
}

// ConfigError reports a routing/configuration defect (no adapter, no
// default model).
func ConfigError(providerID, message string) *GatewayError {
	return NewGatewayError(ErrorKindConfig, providerID, message, nil)
}

// IsKind reports whether err is a *GatewayError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var ge *GatewayError
	if errors.As(err, &ge) {
		return ge.Kind == kind
	}
	return false
}
