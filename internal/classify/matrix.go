package classify

import (
	"github.com/rotisserie/eris"

	"github.com/sells-group/bikeshare-matrix/internal/model"
)

// UnmatchedPolicy decides the category of a cluster that lies in no ZIP polygon.
type UnmatchedPolicy string

// Unmatched policies.
const (
	// UnmatchedBalanced falls through to Balanced, as a missing ZIP class matches no matrix cell.
	UnmatchedBalanced UnmatchedPolicy = "balanced"
	// UnmatchedUnclassified labels the cluster Unclassified.
	UnmatchedUnclassified UnmatchedPolicy = "unclassified"
)

// ParseUnmatchedPolicy validates a policy name.
func ParseUnmatchedPolicy(s string) (UnmatchedPolicy, error) {
	switch UnmatchedPolicy(s) {
	case UnmatchedBalanced, UnmatchedUnclassified:
		return UnmatchedPolicy(s), nil
	case "":
		return UnmatchedBalanced, nil
	}
	return "", eris.Errorf("classify: unknown unmatched policy %q", s)
}

// Result carries the thresholds used for a classification pass.
type Result struct {
	Size      Thresholds `json:"size" yaml:"size"`
	Density   Thresholds `json:"density" yaml:"density"`
	Unmatched int        `json:"unmatched" yaml:"unmatched"`
}

// ZIPs labels each ZIP by destination ride density and returns the thresholds.
func ZIPs(zips []model.ZIP) Thresholds {
	values := make([]float64, len(zips))
	for i, z := range zips {
		values[i] = float64(z.DestRides)
	}
	t := Cut(values)
	for i := range zips {
		zips[i].Density = Density(float64(zips[i].DestRides), t)
	}
	return t
}

// Clusters labels each cluster by start volume, copies ZIP class and destination
// count from its assigned ZIP, and sets the matrix category. zips must already be
// classified.
func Clusters(clusters []model.Cluster, zips []model.ZIP, policy UnmatchedPolicy) (Thresholds, int) {
	byCode := make(map[string]model.ZIP, len(zips))
	for _, z := range zips {
		byCode[z.Code] = z
	}

	values := make([]float64, len(clusters))
	for i, c := range clusters {
		values[i] = float64(c.StartRides)
	}
	t := Cut(values)

	var unmatched int
	for i := range clusters {
		c := &clusters[i]
		c.Size = Size(float64(c.StartRides), t)
		c.ZIPClass = nil
		c.DestRides = nil

		var z model.ZIP
		ok := false
		if c.ZIP != nil {
			z, ok = byCode[*c.ZIP]
		}
		if !ok {
			unmatched++
			if policy == UnmatchedUnclassified {
				c.Category = model.CategoryUnclassified
			} else {
				c.Category = model.CategoryBalanced
			}
			continue
		}

		density := z.Density
		dest := z.DestRides
		c.ZIPClass = &density
		c.DestRides = &dest
		c.Category = Category(density, c.Size)
	}
	return t, unmatched
}

// Run classifies ZIPs then clusters.
func Run(clusters []model.Cluster, zips []model.ZIP, policy UnmatchedPolicy) Result {
	density := ZIPs(zips)
	size, unmatched := Clusters(clusters, zips, policy)
	return Result{Size: size, Density: density, Unmatched: unmatched}
}
