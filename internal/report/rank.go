// Package report prints ranked matrix summaries and writes the matrix to CSV,
// XLSX, YAML, and GeoJSON.
package report

import (
	"sort"

	"github.com/sells-group/bikeshare-matrix/internal/model"
)

// ByStartsDesc returns clusters sorted by start rides, largest first. Ties keep
// coordinate order.
func ByStartsDesc(clusters []model.Cluster) []model.Cluster {
	out := make([]model.Cluster, len(clusters))
	copy(out, clusters)
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartRides > out[j].StartRides })
	return out
}

// Top returns at most n clusters from the front of clusters. n <= 0 means all.
func Top(clusters []model.Cluster, n int) []model.Cluster {
	if n > 0 && len(clusters) > n {
		return clusters[:n]
	}
	return clusters
}

// Filter returns clusters for which keep is true.
func Filter(clusters []model.Cluster, keep func(model.Cluster) bool) []model.Cluster {
	var out []model.Cluster
	for _, c := range clusters {
		if keep(c) {
			out = append(out, c)
		}
	}
	return out
}

// InCategory selects clusters in cat.
func InCategory(cat model.Category) func(model.Cluster) bool {
	return func(c model.Cluster) bool { return c.Category == cat }
}

// Named selects clusters with a resolved station name.
func Named(c model.Cluster) bool { return c.Named() }

// Unnamed selects clusters without a resolved station name.
func Unnamed(c model.Cluster) bool { return !c.Named() }

// Inspect returns the clusters of one category ordered by destination rides in
// their ZIP, then start rides, both descending. Clusters without a ZIP sort last.
func Inspect(clusters []model.Cluster, cat model.Category) []model.Cluster {
	out := Filter(clusters, InCategory(cat))
	sort.SliceStable(out, func(i, j int) bool {
		di, dj := destOrMinus(out[i]), destOrMinus(out[j])
		if di != dj {
			return di > dj
		}
		return out[i].StartRides > out[j].StartRides
	})
	return out
}

func destOrMinus(c model.Cluster) int {
	if c.DestRides == nil {
		return -1
	}
	return *c.DestRides
}

// PresentCategories lists categories that occur in clusters, in reporting order.
func PresentCategories(clusters []model.Cluster) []model.Category {
	seen := make(map[model.Category]bool)
	for _, c := range clusters {
		seen[c.Category] = true
	}
	var out []model.Category
	for _, cat := range model.Categories {
		if seen[cat] {
			out = append(out, cat)
		}
	}
	return out
}

// ParseCategory matches a category name case-insensitively.
func ParseCategory(s string) (model.Category, bool) {
	for _, cat := range model.Categories {
		if equalFold(string(cat), s) {
			return cat, true
		}
	}
	return "", false
}
