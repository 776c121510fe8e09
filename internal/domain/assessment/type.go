package assessment

import (
	"fmt"
	"strings"

	sharedErrors "github.com/shieldsec/shield-cli/internal/shared/errors"
)

// Type selects what kind of assessment the backend generates.
type Type string

const (
	TypeVulnScan   Type = "vuln_scan"
	TypePentest    Type = "pentest"
	TypeThreatHunt Type = "threat_hunt"
)

// DefaultType matches the initial selection of the assessment form.
const DefaultType = TypeVulnScan

// Types lists every supported assessment type in display order.
func Types() []Type {
	return []Type{TypeVulnScan, TypePentest, TypeThreatHunt}
}

// ParseType validates a user supplied assessment type.
func ParseType(s string) (Type, error) {
	t := Type(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q (must be one of vuln_scan, pentest, threat_hunt)", sharedErrors.ErrInvalidAssessmentType, s)
	}
	return t, nil
}

func (t Type) Valid() bool {
	switch t {
	case TypeVulnScan, TypePentest, TypeThreatHunt:
		return true
	}
	return false
}

// Label is the human readable name shown in menus.
func (t Type) Label() string {
	switch t {
	case TypeVulnScan:
		return "Vulnerability Scan"
	case TypePentest:
		return "Penetration Test"
	case TypeThreatHunt:
		return "Threat Hunting"
	}
	return string(t)
}

func (t Type) String() string {
	return string(t)
}
