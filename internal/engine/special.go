package engine

import (
	"fmt"

	"chartscan/internal/config"
)

// computeSpecials derives every configured special item from the raw
// per-source sets and the sub-folder scan outcomes. Special items only
// ever depend on raw sets, never on other special items.
func (e *Engine) computeSpecials(res *Result, subSets map[string]ChartSet, manual map[string]int) {
	for i := range e.cfg.SpecialItems {
		item := &e.cfg.SpecialItems[i]

		switch item.Kind {
		case config.KindIntersection:
			res.Specials[item.ID] = intersectionItem(item, res.Sources)
		case config.KindUnion:
			res.Specials[item.ID] = unionItem(item, subSets)
		case config.KindSum:
			res.Specials[item.ID] = sumItem(item, res.Sources, manual)
		}
	}
}

func intersectionItem(item *config.SpecialItem, sources map[string]SourceResult) SpecialResult {
	sets := make([]ChartSet, 0, len(item.Sources))

	for _, id := range item.Sources {
		sets = append(sets, sources[id].Charts)
	}

	common := Intersect(sets...)

	diag := make([]string, 0, len(item.Sources)+1)
	for _, id := range item.Sources {
		diag = append(diag, fmt.Sprintf("%s: %d patients", id, sources[id].Count))
	}

	diag = append(diag, fmt.Sprintf("in all of %v: %d patients", item.Sources, common.Len()))

	return SpecialResult{Count: common.Len(), Diagnostics: diag}
}

// unionItem combines independently scanned sub-folders. The per-folder
// counts go into the diagnostics: operators read them to judge whether
// the unioned total hides double counting.
func unionItem(item *config.SpecialItem, subSets map[string]ChartSet) SpecialResult {
	sets := make([]ChartSet, 0, len(item.Folders))
	diag := make([]string, 0, len(item.Folders)+1)

	for i := range item.Folders {
		sub := &item.Folders[i]
		set := subSets[subKey(item.ID, sub.ID)]

		sets = append(sets, set)
		diag = append(diag, fmt.Sprintf("%s: %d patients", sub.ID, set.Len()))
	}

	combined := Union(sets...)
	diag = append(diag, fmt.Sprintf("union: %d patients", combined.Len()))

	return SpecialResult{Count: combined.Len(), Diagnostics: diag}
}

// sumItem adds a manually supplied count to an automatically scanned
// one. Either operand may be zero; a missing manual value counts as
// zero, matching the original tool's prefilled "0" entry fields.
func sumItem(item *config.SpecialItem, sources map[string]SourceResult, manual map[string]int) SpecialResult {
	auto := 0
	if item.Source != "" {
		auto = sources[item.Source].Count
	}

	manualVal := manual[item.Manual]

	return SpecialResult{
		Count: auto + manualVal,
		Diagnostics: []string{
			fmt.Sprintf("scanned: %d, manual %s: %d", auto, item.Manual, manualVal),
		},
	}
}

// subKey namespaces a union sub-folder in cache and scan bookkeeping.
func subKey(itemID, subID string) string {
	return itemID + "/" + subID
}
