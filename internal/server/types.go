package server

import (
	"github.com/rezonia/facturx/internal/compliance"
	"github.com/rezonia/facturx/internal/model"
	"github.com/rezonia/facturx/internal/validation"
)

// GenerateRequest is the request body for XML and artifact endpoints
type GenerateRequest struct {
	Invoice *model.Invoice `json:"invoice" binding:"required"`
	Profile string         `json:"profile"`
}

// ValidateResponse is the response for the validate endpoint
type ValidateResponse struct {
	Profile string                  `json:"profile"`
	Valid   bool                    `json:"valid"`
	Results []validation.RuleResult `json:"results"`
}

// CheckResponse is the response for the compliance check endpoint
type CheckResponse struct {
	Profile   string                   `json:"profile"`
	Compliant bool                     `json:"compliant"`
	Checks    []compliance.CheckResult `json:"checks"`
	XML       *ValidateResponse        `json:"xml,omitempty"`
}

// ErrorResponse is the standard error envelope
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
