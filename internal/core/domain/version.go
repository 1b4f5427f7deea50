package domain

import "fmt"

// Version is a normalized software version. Instances are only produced by
// the versions package normalizer; the rest of the code treats them as opaque
// comparable tuples.
type Version struct {
	Major int `json:"major"`
	Minor int `json:"minor"`
	Patch int `json:"patch"`
}

// String renders the canonical dotted form, e.g. "17.3.5".
func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// Train returns the release train, the major.minor prefix that affected-range
// matching operates on.
func (v Version) Train() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// SameTrain reports whether two versions belong to the same release train.
func (v Version) SameTrain(o Version) bool {
	return v.Major == o.Major && v.Minor == o.Minor
}
