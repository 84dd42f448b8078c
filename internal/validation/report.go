package validation

import "github.com/rezonia/facturx/internal/model"

// RuleResult is the outcome of a single validation rule
type RuleResult struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Passed      bool   `json:"passed"`
	Detail      string `json:"detail,omitempty"`
}

// Report is the outcome of validating one document against a profile.
// Results appear in rule order, which is stable between runs.
type Report struct {
	Profile model.Profile `json:"profile"`
	Valid   bool          `json:"valid"`
	Results []RuleResult  `json:"results"`
}

// Failures returns only the failed rule results
func (r *Report) Failures() []RuleResult {
	var out []RuleResult
	for _, res := range r.Results {
		if !res.Passed {
			out = append(out, res)
		}
	}
	return out
}

func (r *Report) add(id, description string, passed bool, detail string) {
	r.Results = append(r.Results, RuleResult{
		ID:          id,
		Description: description,
		Passed:      passed,
		Detail:      detail,
	})
	if !passed {
		r.Valid = false
	}
}
