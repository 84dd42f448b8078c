package model

import (
	"fmt"
	"strings"
)

// Profile is a Factur-X conformance profile. Profiles are cumulative:
// BASIC_WL contains every MINIMUM requirement, EN16931 contains both.
type Profile string

const (
	ProfileMinimum Profile = "MINIMUM"
	ProfileBasicWL Profile = "BASIC_WL"
	ProfileEN16931 Profile = "EN16931"
)

// ParseProfile converts user input to a Profile, tolerating case and
// common separator variants.
func ParseProfile(s string) (Profile, error) {
	switch strings.ToUpper(strings.NewReplacer("-", "_", " ", "_").Replace(strings.TrimSpace(s))) {
	case "MINIMUM":
		return ProfileMinimum, nil
	case "BASIC_WL", "BASICWL":
		return ProfileBasicWL, nil
	case "EN16931", "EN_16931", "COMFORT":
		return ProfileEN16931, nil
	}
	return "", fmt.Errorf("unknown profile %q (want MINIMUM, BASIC_WL or EN16931)", s)
}

// IsValid returns true for one of the three supported profiles
func (p Profile) IsValid() bool {
	switch p {
	case ProfileMinimum, ProfileBasicWL, ProfileEN16931:
		return true
	}
	return false
}

// rank orders the profiles by strictness
func (p Profile) rank() int {
	switch p {
	case ProfileMinimum:
		return 1
	case ProfileBasicWL:
		return 2
	case ProfileEN16931:
		return 3
	}
	return 0
}

// Includes reports whether p covers all requirements of other
func (p Profile) Includes(other Profile) bool {
	return p.rank() >= other.rank() && other.rank() > 0
}

// GuidelineID returns the guideline parameter written into
// ExchangedDocumentContext for this profile
func (p Profile) GuidelineID() string {
	switch p {
	case ProfileMinimum:
		return "urn:factur-x.eu:1p0:minimum"
	case ProfileBasicWL:
		return "urn:factur-x.eu:1p0:basicwl"
	case ProfileEN16931:
		return "urn:cen.eu:en16931:2017"
	}
	return ""
}

// ConformanceLevel returns the XMP fx:ConformanceLevel value
func (p Profile) ConformanceLevel() string {
	switch p {
	case ProfileMinimum:
		return "MINIMUM"
	case ProfileBasicWL:
		return "BASIC WL"
	case ProfileEN16931:
		return "EN 16931"
	}
	return ""
}

// String implements fmt.Stringer
func (p Profile) String() string {
	return string(p)
}
