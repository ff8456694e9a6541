package registry

import (
	"fmt"
	"sort"

	"github.com/qanoon-labs/qanoon-cli/internal/model"
)

// DocumentGroup is one logical document in the listing API. A statute often
// appears multiple times in the catalog (reissues, per-section artifacts
// sharing a listing page); grouping by (title, year, source_page) collapses
// those into one entry.
type DocumentGroup struct {
	Title      string               `json:"title"`
	Year       *int                 `json:"year,omitempty"`
	SourcePage string               `json:"source_page,omitempty"`
	Count      int                  `json:"count"`
	Document   model.DocumentRecord `json:"document"`
}

// ListGrouped returns the catalog deduplicated by (title, year, source_page),
// ordered by title then year. The representative Document is the first record
// seen for its group in registry order.
func (m *Manager) ListGrouped() ([]DocumentGroup, error) {
	reg, err := m.store.Load()
	if err != nil {
		return nil, err
	}

	index := make(map[string]int)
	groups := make([]DocumentGroup, 0, len(reg.Documents))
	for _, rec := range reg.Documents {
		key := groupKey(rec)
		if i, ok := index[key]; ok {
			groups[i].Count++
			continue
		}
		index[key] = len(groups)
		groups = append(groups, DocumentGroup{
			Title:      rec.Title,
			Year:       rec.Year,
			SourcePage: rec.SourcePage,
			Count:      1,
			Document:   rec,
		})
	}

	sort.SliceStable(groups, func(i, j int) bool {
		if groups[i].Title != groups[j].Title {
			return groups[i].Title < groups[j].Title
		}
		return yearOf(groups[i].Year) < yearOf(groups[j].Year)
	})
	return groups, nil
}

func groupKey(rec model.DocumentRecord) string {
	year := 0
	if rec.Year != nil {
		year = *rec.Year
	}
	return fmt.Sprintf("%s\x00%d\x00%s", rec.Title, year, rec.SourcePage)
}

func yearOf(y *int) int {
	if y == nil {
		return 0
	}
	return *y
}
