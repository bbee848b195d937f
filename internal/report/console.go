package report

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/bikeshare-matrix/internal/model"
)

// Console writes human-readable tables. Output is not meant to be parsed.
type Console struct {
	w io.Writer
	p *message.Printer
}

// NewConsole returns a Console writing to w with grouped number formatting.
func NewConsole(w io.Writer) *Console {
	return &Console{w: w, p: message.NewPrinter(language.English)}
}

// Column identifiers for Table.
const (
	ColStartRides = "start_rides"
	ColDestRides  = "dest_rides"
	ColZIP        = "zip"
	ColCategory   = "matrix_cat"
	ColStation    = "start_station_name"
	ColLat        = "lat_r"
	ColLon        = "lon_r"
)

var colWidth = map[string]int{
	ColStartRides: 11,
	ColDestRides:  10,
	ColZIP:        5,
	ColCategory:   17,
	ColStation:    44,
	ColLat:        9,
	ColLon:        10,
}

// Table prints clusters with the given columns.
func (c *Console) Table(clusters []model.Cluster, cols ...string) {
	var head []string
	for _, col := range cols {
		head = append(head, pad(col, colWidth[col]))
	}
	fmt.Fprintln(c.w, strings.Join(head, " "))
	for _, cl := range clusters {
		var cells []string
		for _, col := range cols {
			cells = append(cells, pad(cellValue(cl, col), colWidth[col]))
		}
		fmt.Fprintln(c.w, strings.Join(cells, " "))
	}
}

// Heading prints a section title.
func (c *Console) Heading(title string) {
	fmt.Fprintf(c.w, "\n=== %s ===\n", title)
}

// Printf prints with grouped integer formatting.
func (c *Console) Printf(format string, args ...any) {
	c.p.Fprintf(c.w, format, args...)
}

// CategorySamples prints the first n clusters of each category with its size.
func (c *Console) CategorySamples(clusters []model.Cluster, n int) {
	for _, cat := range PresentCategories(clusters) {
		subset := Filter(clusters, InCategory(cat))
		c.Heading(c.p.Sprintf("%s  (n=%d)", cat, len(subset)))
		c.Table(Top(subset, n), ColStartRides, ColZIP, ColCategory)
	}
}

// CategoryCounts prints the named/unnamed/total breakdown.
func (c *Console) CategoryCounts(counts []CategoryCount) {
	fmt.Fprintf(c.w, "%-17s %8s %8s %8s\n", "matrix_cat", "named", "unnamed", "total")
	for _, cc := range counts {
		c.p.Fprintf(c.w, "%-17s %8d %8d %8d\n", cc.Category, cc.Named, cc.Unnamed, cc.Total)
	}
}

func cellValue(c model.Cluster, col string) string {
	switch col {
	case ColStartRides:
		return fmt.Sprintf("%d", c.StartRides)
	case ColDestRides:
		if c.DestRides == nil {
			return "-"
		}
		return fmt.Sprintf("%d", *c.DestRides)
	case ColZIP:
		return deref(c.ZIP)
	case ColCategory:
		return string(c.Category)
	case ColStation:
		return deref(c.StationName)
	case ColLat:
		return fmt.Sprintf("%.4f", c.Coord.Lat)
	case ColLon:
		return fmt.Sprintf("%.4f", c.Coord.Lon)
	}
	return ""
}

func deref(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}

func pad(s string, width int) string {
	r := []rune(s)
	if len(r) > width {
		if width > 3 {
			return string(r[:width-3]) + "..."
		}
		return string(r[:width])
	}
	return s + strings.Repeat(" ", width-len(r))
}
