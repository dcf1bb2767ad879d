package domain

import "time"

// ProviderDescriptor is the static, configuration-supplied description of
// one upstream LLM vendor.
type ProviderDescriptor struct {
	ID                  string
	Name                string
	Priority            int // lower sorts earlier
	BaseURL             string
	ChatCompletionsPath string // may contain a "{model}" placeholder
	Models              map[string]string
	Availability        map[string]any
	Credentials         map[string]any
}

// DefaultModel returns the provider's configured default model, if any.
func (p ProviderDescriptor) DefaultModel() (string, bool) {
	model, ok := p.Models["default"]
	return model, ok
}

// ProviderCredential is the persisted, per-provider credential row.
type ProviderCredential struct {
	ProviderID  string
	APIKey      string
	LastError   *string
	LastErrorAt *time.Time
	UpdatedAt   time.Time
}

// HasAPIKey reports whether a non-empty key is on record.
func (c ProviderCredential) HasAPIKey() bool {
	return c.APIKey != ""
}

// ProviderState is the derived, never-persisted availability view joining a
// ProviderDescriptor with its credential row.
type ProviderState struct {
	Provider    ProviderDescriptor
	Credential  ProviderCredential
	HasAPIKey   bool
	IsAvailable bool
}

// NewProviderState computes a ProviderState from its inputs.
func NewProviderState(provider ProviderDescriptor, credential ProviderCredential) ProviderState {
	hasKey := credential.HasAPIKey()
	return ProviderState{
		Provider:    provider,
		Credential:  credential,
		HasAPIKey:   hasKey,
		IsAvailable: hasKey && credential.LastError == nil,
	}
}
