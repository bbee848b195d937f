// Package model defines the domain types shared across the bike-share matrix pipeline.
package model

import "github.com/twpayne/go-geom"

// Coord is a WGS84 latitude/longitude pair.
type Coord struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Trip is a single ride record. Station names come from the station database,
// not the trip file.
type Trip struct {
	Start Coord
	End   Coord
}

// SizeClass buckets a cluster by ride-start volume.
type SizeClass string

// Cluster size classes.
const (
	SizeSmall  SizeClass = "small"
	SizeMedium SizeClass = "medium"
	SizeLarge  SizeClass = "large"
)

// DensityClass buckets a ZIP by rides ending inside it.
type DensityClass string

// ZIP density classes.
const (
	DensityPale   DensityClass = "pale"
	DensityMedium DensityClass = "medium"
	DensityDark   DensityClass = "dark"
)

// Category is a traffic matrix cell.
type Category string

// Matrix categories.
const (
	CategoryHighTurnoverHub Category = "High-turnover hub"
	CategoryNetSinkZIP      Category = "Net sink ZIP"
	CategoryNetSourceHub    Category = "Net source hub"
	CategoryLowTraffic      Category = "Low traffic"
	CategoryBalanced        Category = "Balanced"
	CategoryUnclassified    Category = "Unclassified"
)

// Categories lists the matrix categories in reporting order.
var Categories = []Category{
	CategoryHighTurnoverHub,
	CategoryNetSinkZIP,
	CategoryNetSourceHub,
	CategoryLowTraffic,
	CategoryBalanced,
	CategoryUnclassified,
}

// Cluster is a group of trips sharing a rounded origin coordinate, standing in for a station.
type Cluster struct {
	Coord       Coord // rounded
	StartRides  int
	StationName *string
	ZIP         *string
	DestRides   *int // rides ending in ZIP, nil when ZIP is nil
	Size        SizeClass
	ZIPClass    *DensityClass
	Category    Category
}

// Named reports whether a station name was resolved for the cluster.
func (c Cluster) Named() bool {
	return c.StationName != nil
}

// ZIP is a ZIP Code Tabulation Area polygon with its destination ride count.
type ZIP struct {
	Code      string
	Geom      *geom.MultiPolygon
	DestRides int
	Density   DensityClass
}
