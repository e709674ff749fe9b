package dashboard

import "tradedash/internal/model"

type View struct {
	Slug      string          `json:"slug"`
	Title     string          `json:"title"`
	Icon      string          `json:"icon"`
	Indicator model.Indicator `json:"indicator,omitempty"`
}

var (
	ViewExplanations = View{Slug: "explanations", Title: "Explanations", Icon: "book"}
	ViewMap          = View{Slug: "map", Title: "Trade map", Icon: "bar-chart", Indicator: model.TradePctGDP}
	ViewTrade        = View{Slug: "trade", Title: "Trade Evolution", Icon: "bar-chart", Indicator: model.TradePctGDP}
	ViewBoP          = View{Slug: "bop", Title: "Trade BoP Evolution", Icon: "bar-chart", Indicator: model.TradeBoPUSD}
	ViewSources      = View{Slug: "sources", Title: "Sources", Icon: "search"}
)

// Views is the sidebar menu, in display order. The first entry is the default.
var Views = []View{ViewExplanations, ViewMap, ViewTrade, ViewBoP, ViewSources}

func ViewBySlug(slug string) (View, bool) {
	for _, view := range Views {
		if view.Slug == slug {
			return view, true
		}
	}
	return View{}, false
}
