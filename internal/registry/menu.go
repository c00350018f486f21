package registry

import (
	"sort"

	"github.com/micro-nova/amplipi-go/internal/model"
)

// staticViews is the small closed set of fixed UI views that are not
// sources and never come from the registry (spec.md §3).
var staticViews = []model.StaticView{
	model.ViewShowing, model.ViewSystem, model.ViewScenes, model.ViewPlaying,
}

// Menu renders the ordered menu: the union of the configured order with
// the runtime source registry (spec.md §3/§4.1 GET /router/menu).
func (r *Registry) Menu() model.MenuResponse {
	r.mu.Lock()
	defer r.mu.Unlock()

	items := make([]model.MenuEntry, 0, len(r.configOrder)+len(r.sources))
	seen := make(map[string]bool)

	for _, e := range r.configOrder {
		switch {
		case e.URL != "":
			items = append(items, model.MenuEntry{Title: e.Title, Kind: model.EntryWebPage, URL: e.URL, Hidden: e.Hidden})
		case isStaticView(e.ID):
			items = append(items, model.MenuEntry{Title: e.Title, Kind: model.EntryStaticView, ID: e.ID, Hidden: e.Hidden})
		default:
			seen[e.ID] = true
			src, ok := r.sources[e.ID]
			if !ok {
				continue
			}
			if src.State == model.SourceGone {
				if !(src.FromConfig && !src.InitialHidden) {
					continue // invariant 2: gone+ad-hoc-hidden sources are absent
				}
			}
			hidden := src.State == model.SourceGone && src.FromConfig && src.InitialHidden
			items = append(items, model.MenuEntry{Title: e.Title, Kind: model.EntrySource, ID: e.ID, Hidden: hidden})
		}
	}

	// Ad-hoc sources not in the configured order, in registration order
	// is not tracked explicitly — render any remaining non-gone sources
	// after the configured entries, sorted by id for determinism.
	var adhoc []string
	for id, src := range r.sources {
		if seen[id] || src.State == model.SourceGone {
			continue
		}
		adhoc = append(adhoc, id)
	}
	sort.Strings(adhoc)
	for _, id := range adhoc {
		items = append(items, model.MenuEntry{Title: r.sources[id].Name, Kind: model.EntrySource, ID: id})
	}

	return model.MenuResponse{Items: items, ActiveSource: r.activeID}
}

func isStaticView(id string) bool {
	for _, v := range staticViews {
		if string(v) == id {
			return true
		}
	}
	return false
}
