// Package label holds the development-type labels and the versioned decision
// rules that assign them to feature sets when building training data.
package label

import (
	"github.com/rotisserie/eris"

	"github.com/atoll-dev/siteplanner/internal/feature"
)

// Development type labels.
const (
	Cafe        = "Café"
	Clinic      = "Clinic"
	Park        = "Park"
	Residential = "Residential"
)

// Classes lists all labels in sorted order, matching the encoding the trainer
// derives from data.
var Classes = []string{Cafe, Clinic, Park, Residential}

// Rule is a pure decision function from features to a label. Rules are
// versioned explicitly: the synthetic pipeline and the survey pipeline use
// different thresholds, and datasets record which rule labeled each row.
type Rule func(fs feature.Set) string

// V1 is the basic rule used for synthetic data: café spots need café presence
// and heavy foot traffic, parks favor low housing density, clinics need
// moderate traffic.
func V1(fs feature.Set) string {
	cafes := fs[feature.NearbyCafes]
	parks := fs[feature.NearbyParks]
	clinics := fs[feature.NearbyClinics]
	houses := fs[feature.NearbyHouses]
	foot := fs[feature.FootTraffic]

	switch {
	case cafes >= 2 && foot > 70:
		return Cafe
	case parks >= 1 && houses <= 5:
		return Park
	case clinics >= 1 && foot > 50:
		return Clinic
	default:
		return Residential
	}
}

// V2 is the survey rule: it additionally weighs groceries and road access.
func V2(fs feature.Set) string {
	cafes := fs[feature.NearbyCafes]
	groceries := fs[feature.NearbyGroceries]
	parks := fs[feature.NearbyParks]
	clinics := fs[feature.NearbyClinics]
	houses := fs[feature.NearbyHouses]
	foot := fs[feature.FootTraffic]
	road := fs[feature.RoadDistance]

	switch {
	case (cafes >= 1 || groceries >= 1) && foot > 60 && road < 100:
		return Cafe
	case parks >= 1 || (houses <= 5 && road > 150):
		return Park
	case clinics >= 1 || (foot > 40 && road < 120 && houses > 8):
		return Clinic
	default:
		return Residential
	}
}

// ByVersion returns the rule for a version string ("v1" or "v2").
func ByVersion(version string) (Rule, error) {
	switch version {
	case "v1":
		return V1, nil
	case "v2":
		return V2, nil
	default:
		return nil, eris.Errorf("label: unknown rule version %q", version)
	}
}
