// Package config provides configuration parsing and validation for proc-monitor.
// This file implements validation of configuration values.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/CerberusV1/proc-monitor/internal/monitor"
)

// minSampleInterval is the shortest window that still spans several
// scheduler ticks on common kernels.
const minSampleInterval = 100 * time.Millisecond

// ValidationError represents a configuration validation error.
// It contains the field name and a description of the issue.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (ve ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", ve.Field, ve.Message)
}

// ValidationResult holds the results of a configuration validation.
type ValidationResult struct {
	// Errors contains all validation errors found.
	Errors []ValidationError
	// Warnings contains non-fatal issues.
	Warnings []ValidationError
}

// IsValid returns true if there are no validation errors.
func (vr *ValidationResult) IsValid() bool {
	return len(vr.Errors) == 0
}

// Error returns a combined error message if there are errors, nil otherwise.
func (vr *ValidationResult) Error() error {
	if len(vr.Errors) == 0 {
		return nil
	}

	messages := make([]string, 0, len(vr.Errors))
	for _, e := range vr.Errors {
		messages = append(messages, e.Error())
	}
	return fmt.Errorf("validation failed: %s", strings.Join(messages, "; "))
}

// AddError adds a validation error.
func (vr *ValidationResult) AddError(field, message string) {
	vr.Errors = append(vr.Errors, ValidationError{Field: field, Message: message})
}

// AddWarning adds a validation warning.
func (vr *ValidationResult) AddWarning(field, message string) {
	vr.Warnings = append(vr.Warnings, ValidationError{Field: field, Message: message})
}

// Validator checks configuration values.
type Validator struct {
	// strictMode turns warnings into errors.
	strictMode bool
}

// NewValidator creates a new Validator with default settings.
func NewValidator() *Validator {
	return &Validator{}
}

// WithStrictMode enables strict validation where warnings are errors.
func (v *Validator) WithStrictMode(strict bool) *Validator {
	v.strictMode = strict
	return v
}

// Validate performs validation of a Config.
func (v *Validator) Validate(cfg *Config) *ValidationResult {
	result := &ValidationResult{}
	if cfg == nil {
		result.AddError("config", "is nil")
		return result
	}

	v.validateSource(cfg, result)
	v.validateTiming(cfg, result)
	v.validateDisplay(cfg, result)

	if v.strictMode {
		result.Errors = append(result.Errors, result.Warnings...)
		result.Warnings = nil
	}
	return result
}

func (v *Validator) validateSource(cfg *Config, result *ValidationResult) {
	if strings.TrimSpace(cfg.Root) == "" {
		result.AddError("root", "must not be empty")
	}
	switch {
	case cfg.PageSize < 0:
		result.AddError("page_size", fmt.Sprintf("must be non-negative, got %d", cfg.PageSize))
	case cfg.PageSize > 0 && cfg.PageSize&(cfg.PageSize-1) != 0:
		result.AddError("page_size", fmt.Sprintf("must be a power of two, got %d", cfg.PageSize))
	}
	if cfg.LegacyPIDMatch {
		result.AddWarning("legacy_pid_match", "accepts directory names that merely contain a digit")
	}
}

func (v *Validator) validateTiming(cfg *Config, result *ValidationResult) {
	if cfg.SampleInterval <= 0 {
		result.AddError("sample_interval", fmt.Sprintf("must be positive, got %v", cfg.SampleInterval))
	} else if cfg.SampleInterval < minSampleInterval {
		result.AddWarning("sample_interval", fmt.Sprintf("%v is shorter than %v; values will be noisy", cfg.SampleInterval, minSampleInterval))
	}
	if cfg.RefreshInterval <= 0 {
		result.AddError("refresh_interval", fmt.Sprintf("must be positive, got %v", cfg.RefreshInterval))
	}
}

func (v *Validator) validateDisplay(cfg *Config, result *ValidationResult) {
	if _, err := monitor.ParseSortKey(cfg.SortKey); err != nil {
		result.AddError("sort", err.Error())
	}
	if _, err := ParseLogLevel(cfg.LogLevel); err != nil {
		result.AddError("log_level", err.Error())
	}
}

// ValidateConfig is a convenience function that validates a config.
// Returns an error if validation fails, nil otherwise.
func ValidateConfig(cfg *Config) error {
	return NewValidator().Validate(cfg).Error()
}

// ValidateConfigStrict validates a config with warnings treated as errors.
func ValidateConfigStrict(cfg *Config) error {
	return NewValidator().WithStrictMode(true).Validate(cfg).Error()
}
