package report

import (
	"os"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/bikeshare-matrix/internal/classify"
	"github.com/sells-group/bikeshare-matrix/internal/model"
	"github.com/sells-group/bikeshare-matrix/internal/spatial"
	"github.com/sells-group/bikeshare-matrix/internal/trips"
)

// CategoryCount tallies named and unnamed clusters in one category.
type CategoryCount struct {
	Category model.Category `json:"category" yaml:"category"`
	Named    int            `json:"named" yaml:"named"`
	Unnamed  int            `json:"unnamed" yaml:"unnamed"`
	Total    int            `json:"total" yaml:"total"`
}

// CountCategories counts clusters per present category, in reporting order.
func CountCategories(clusters []model.Cluster) []CategoryCount {
	byCat := make(map[model.Category]*CategoryCount)
	for _, c := range clusters {
		cc, ok := byCat[c.Category]
		if !ok {
			cc = &CategoryCount{Category: c.Category}
			byCat[c.Category] = cc
		}
		if c.Named() {
			cc.Named++
		} else {
			cc.Unnamed++
		}
		cc.Total++
	}
	var out []CategoryCount
	for _, cat := range PresentCategories(clusters) {
		out = append(out, *byCat[cat])
	}
	return out
}

// Summary is the machine-readable digest of one matrix run.
type Summary struct {
	RunID       string            `json:"run_id" yaml:"run_id"`
	GeneratedAt time.Time         `json:"generated_at" yaml:"generated_at"`
	Trips       trips.LoadStats   `json:"trips" yaml:"trips"`
	Join        spatial.JoinStats `json:"join" yaml:"join"`
	ZIPs        int               `json:"zips" yaml:"zips"`
	Clusters    int               `json:"clusters" yaml:"clusters"`
	Named       int               `json:"named" yaml:"named"`
	Thresholds  classify.Result   `json:"thresholds" yaml:"thresholds"`
	Categories  []CategoryCount   `json:"categories" yaml:"categories"`
}

// WriteYAML writes s to path.
func WriteYAML(path string, s Summary) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return eris.Wrap(err, "report: marshal summary")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "report: write %s", path)
	}
	return nil
}

func equalFold(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
