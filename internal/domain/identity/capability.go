package identity

// Feature names a plan-gated capability. Capability flags are derived only,
// never stored.
type Feature string

const (
	// FeatureStar lets a user star/feature entries on their dashboard.
	FeatureStar Feature = "star"
)

// featurePlans maps each gated feature to the plan ids allowed to use it.
var featurePlans = map[Feature]map[string]bool{
	FeatureStar: {"pro": true, "business": true},
}

// CanUseFeature reports whether the merged user may use the named feature.
// It returns false, never an error, for Unknown and Absent views, for
// inactive plans, and for plans outside the feature's allowed set.
func CanUseFeature(u MergedUser, f Feature) bool {
	if !u.IsPresent() {
		return false
	}
	if !u.PlanIsActive {
		return false
	}
	plans, ok := featurePlans[f]
	if !ok {
		return false
	}
	return plans[u.PlanID]
}
