package geo

// MetersPerDegree is the approximate length of one degree of latitude, used
// by the road-distance estimator.
const MetersPerDegree = 111320.0
