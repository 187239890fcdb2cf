package core

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents the type of configuration error that occurred
type ErrorType string

const (
	// ErrorTypeNoProviderConfigured indicates a bean was requested but no provider is available
	ErrorTypeNoProviderConfigured ErrorType = "no_provider_configured"
	// ErrorTypeAmbiguousProvider indicates several providers are available and none was chosen
	ErrorTypeAmbiguousProvider ErrorType = "ambiguous_provider"
	// ErrorTypeProviderMismatch indicates the configured provider is not among the available ones
	ErrorTypeProviderMismatch ErrorType = "provider_mismatch"
)

// ErrUnsatisfiedBean is returned by bean lookups when nothing was built for a request.
var ErrUnsatisfiedBean = errors.New("unsatisfied model bean")

// ConfigurationError is raised by provider resolution. It always fails the build.
type ConfigurationError struct {
	Type       ErrorType  `json:"type"`
	Capability Capability `json:"capability"`
	ModelName  string     `json:"model_name"`
	// ConfigKey is the key the user has to set or fix.
	ConfigKey string `json:"config_key"`
	// Provider is the configured provider, if any.
	Provider  string   `json:"provider,omitempty"`
	Available []string `json:"available,omitempty"`
	Message   string   `json:"message"`
}

// Error implements the error interface
func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Is matches another *ConfigurationError by Type, so callers can test
// errors.Is(err, &ConfigurationError{Type: ErrorTypeAmbiguousProvider}).
func (e *ConfigurationError) Is(target error) bool {
	var t *ConfigurationError
	if !errors.As(target, &t) {
		return false
	}
	return t.Type == e.Type
}

// NewNoProviderConfiguredError creates the error for an empty candidate set.
// inProcessAware switches to the wording used for embedding models, which can also be
// satisfied by an in-process model.
func NewNoProviderConfiguredError(capability Capability, modelName string, inProcessAware bool) *ConfigurationError {
	msg := fmt.Sprintf(
		"A %s bean was requested, but no providers were configured. Consider adding a provider package like 'modelwire/internal/providers/openai'",
		capability.BeanType())
	if inProcessAware {
		msg = fmt.Sprintf(
			"A %s bean was requested, but no providers were configured and no in-process embedding model was registered. Consider adding a provider package like 'modelwire/internal/providers/openai' or an in-process embedding model",
			capability.BeanType())
	}
	return &ConfigurationError{
		Type:       ErrorTypeNoProviderConfigured,
		Capability: capability,
		ModelName:  NormalizeModelName(modelName),
		ConfigKey:  ProviderConfigKey(capability, modelName),
		Message:    msg,
	}
}

// NewAmbiguousProviderError creates the error for several candidates and no override.
func NewAmbiguousProviderError(capability Capability, modelName string, available []string) *ConfigurationError {
	key := ProviderConfigKey(capability, modelName)
	return &ConfigurationError{
		Type:       ErrorTypeAmbiguousProvider,
		Capability: capability,
		ModelName:  NormalizeModelName(modelName),
		ConfigKey:  key,
		Available:  available,
		Message: fmt.Sprintf(
			"A %s bean was requested, but since there are multiple available providers, '%s' needs to be set to one of the available options (%s)",
			capability.BeanType(), key, strings.Join(available, ",")),
	}
}

// NewProviderMismatchError creates the error for an override that matches no candidate.
func NewProviderMismatchError(capability Capability, modelName, provider string, available []string) *ConfigurationError {
	key := ProviderConfigKey(capability, modelName)
	var msg string
	if len(available) == 1 {
		msg = fmt.Sprintf(
			"A %s bean with provider=%s was requested via configuration, but the only provider found is %s",
			capability.BeanType(), provider, available[0])
	} else {
		msg = fmt.Sprintf(
			"A %s bean was requested, but the value of '%s' does not match any of the available options (%s)",
			capability.BeanType(), key, strings.Join(available, ","))
	}
	return &ConfigurationError{
		Type:       ErrorTypeProviderMismatch,
		Capability: capability,
		ModelName:  NormalizeModelName(modelName),
		ConfigKey:  key,
		Provider:   provider,
		Available:  available,
		Message:    msg,
	}
}
