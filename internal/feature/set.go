// Package feature defines the POI feature set and its resolution pipeline:
// cache lookup first, synthetic generation on miss.
package feature

// Feature names, in the fixed order the classifier expects.
const (
	NearbyCafes     = "nearby_cafes"
	NearbyGroceries = "nearby_groceries"
	NearbySchools   = "nearby_schools"
	NearbyHouses    = "nearby_houses"
	NearbyParks     = "nearby_parks"
	NearbyClinics   = "nearby_clinics"
	FootTraffic     = "foot_traffic_score"
	RoadDistance    = "distance_to_main_road"
)

// Names lists all eight features in model input order.
var Names = []string{
	NearbyCafes,
	NearbyGroceries,
	NearbySchools,
	NearbyHouses,
	NearbyParks,
	NearbyClinics,
	FootTraffic,
	RoadDistance,
}

// POINames lists the six point-of-interest count features.
var POINames = Names[:6]

// Set maps feature names to numeric values. A Set handed to a consumer always
// carries all eight known keys; Vector defaults absent keys to zero anyway.
type Set map[string]float64

// Vector projects the set onto the fixed feature order expected by the
// classifier. Missing keys contribute zero.
func (s Set) Vector() []float64 {
	v := make([]float64, len(Names))
	for i, name := range Names {
		v[i] = s[name]
	}
	return v
}

// Clone returns an independent copy of the set.
func (s Set) Clone() Set {
	out := make(Set, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Merge copies all entries of other into s and returns s.
func (s Set) Merge(other Set) Set {
	for k, v := range other {
		s[k] = v
	}
	return s
}
