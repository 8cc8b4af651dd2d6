package system

import (
	"regexp"

	"github.com/frahmantamala/vuln-management/internal"
)

var (
	systemNameRegexp  = regexp.MustCompile(`^[a-zA-Z0-9_\-]{5,25}$`)
	descriptionRegexp = regexp.MustCompile(`^[a-zA-Z0-9_\-\s]{5,55}$`)
	cveRegexp         = regexp.MustCompile(`^(cve|CVE)\-\d{4}\-\d{4,}$`)
	emailRegexp       = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

const maxCVELength = 20

// CreateSystemDTO is the request payload for registering a system.
type CreateSystemDTO struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (dto CreateSystemDTO) Validate() error {
	if !systemNameRegexp.MatchString(dto.Name) {
		return internal.NewValidationError(
			"system name must be 5-25 characters of letters, digits, underscore or dash",
			internal.ErrCodeInvalidSystem,
		)
	}
	if !descriptionRegexp.MatchString(dto.Description) {
		return internal.NewValidationError(
			"description must be 5-55 characters of letters, digits, spaces, underscore or dash",
			internal.ErrCodeInvalidSystem,
		)
	}
	return nil
}

// AddUserDTO is the request payload for granting a membership.
type AddUserDTO struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

func (dto AddUserDTO) Validate() error {
	if !emailRegexp.MatchString(dto.Email) {
		return internal.NewValidationError("a valid email is required", internal.ErrCodeValidationFailed)
	}
	if _, ok := ParseRole(dto.Role); !ok {
		return internal.NewValidationError(
			"role must be one of owner, reporter, viewer",
			internal.ErrCodeInvalidRole,
		)
	}
	return nil
}

// VulnerabilityDTO is the request payload for reporting a CVE.
type VulnerabilityDTO struct {
	CVE string `json:"cve"`
}

func (dto VulnerabilityDTO) Validate() error {
	if len(dto.CVE) > maxCVELength || !cveRegexp.MatchString(dto.CVE) {
		return internal.NewValidationError(
			"cve must match CVE-<year>-<sequence>",
			internal.ErrCodeInvalidCVE,
		)
	}
	return nil
}

// UpdateVulnerabilityDTO is the request payload for a state transition.
type UpdateVulnerabilityDTO struct {
	CVE   string `json:"cve"`
	State string `json:"state"`
}

func (dto UpdateVulnerabilityDTO) Validate() error {
	if err := (VulnerabilityDTO{CVE: dto.CVE}).Validate(); err != nil {
		return err
	}
	if _, ok := ParseState(dto.State); !ok {
		return internal.NewValidationError(
			"state must be one of open, remediated",
			internal.ErrCodeInvalidState,
		)
	}
	return nil
}
