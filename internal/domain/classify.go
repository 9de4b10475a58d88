package domain

import (
	"image/color"
	"strings"
)

// Tier ranks how urgent a product is. Higher is more urgent.
type Tier int

const (
	TierNone Tier = iota
	TierAdvisory
	TierWatch
	TierWarning
)

func (t Tier) String() string {
	switch t {
	case TierWarning:
		return "warning"
	case TierWatch:
		return "watch"
	case TierAdvisory:
		return "advisory"
	default:
		return "none"
	}
}

// WarningLabel is drawn at the centroid of warning polygons.
const WarningLabel = "!!!"

// HazardStyle is how a hazard or warning kind is drawn. It is derived from the
// kind string by Classify and never stored.
type HazardStyle struct {
	Fill      color.NRGBA // polygon and badge fill
	Stroke    color.NRGBA // polygon outline and badge border
	Text      color.NRGBA // centroid label (red accent for warnings)
	BadgeText color.NRGBA // text drawn on the fill color in label badges
	Label     string      // centroid label text, "!!!" for warnings
	Tier      Tier
}

// WithFillAlpha returns a copy whose fill uses alpha a.
func (s HazardStyle) WithFillAlpha(a uint8) HazardStyle {
	s.Fill.A = a
	return s
}

var (
	colorRed    = color.NRGBA{R: 255, A: 255}
	colorYellow = color.NRGBA{R: 255, G: 255, A: 255}
	colorBlack  = color.NRGBA{A: 255}
	colorWhite  = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
)

// semiOpaque is the alpha of the marine and fallback fills.
const semiOpaque = 170

// styleRule is one row of the classification table. A kind matches when it
// contains any of the substrings. A zero stroke means the stroke follows the
// kind's tier.
type styleRule struct {
	name       string
	substrings []string
	fill       color.NRGBA
	stroke     color.NRGBA
	badgeText  color.NRGBA
}

func (r styleRule) matches(kind string) bool {
	for _, s := range r.substrings {
		if strings.Contains(kind, s) {
			return true
		}
	}
	return false
}

// styleRules is evaluated top to bottom, first match wins. Specific kinds sit
// above generic ones: "Tropical Storm Warning" must be Tropical, not Storm,
// and "Winter Storm Watch" must be Winter. Matching is case-sensitive, so
// "Thunderstorm" is listed on its own.
var styleRules = []styleRule{
	{name: "tornado", substrings: []string{"Tornado"}, fill: color.NRGBA{R: 196, A: 255}, stroke: colorRed, badgeText: colorWhite},
	{name: "tropical", substrings: []string{"Hurricane", "Tropical"}, fill: color.NRGBA{R: 147, G: 255, A: 255}, badgeText: colorBlack},
	{name: "blizzard", substrings: []string{"Blizzard"}, fill: color.NRGBA{R: 167, G: 58, B: 157, A: 255}, badgeText: colorWhite},
	{name: "ice", substrings: []string{"Ice"}, fill: color.NRGBA{R: 129, G: 231, B: 234, A: 255}, badgeText: colorWhite},
	{name: "winter", substrings: []string{"Winter"}, fill: color.NRGBA{R: 129, G: 172, B: 234, A: 255}, badgeText: colorWhite},
	{name: "wind", substrings: []string{"High", "Extreme", "Gale"}, fill: color.NRGBA{R: 245, G: 212, B: 142, A: 255}, badgeText: colorBlack},
	{name: "storm", substrings: []string{"Thunderstorm", "Storm"}, fill: color.NRGBA{R: 255, G: 255, A: 255}, badgeText: colorBlack},
	{name: "marine", substrings: []string{"Marine"}, fill: color.NRGBA{G: 228, B: 255, A: semiOpaque}, badgeText: colorBlack},
}

var defaultRule = styleRule{name: "default", fill: color.NRGBA{R: 255, G: 255, B: 255, A: semiOpaque}, badgeText: colorBlack}

// Classify maps a product kind to its style. It is total: unknown kinds get
// the semi-opaque white default.
func Classify(kind string) HazardStyle {
	rule := ruleFor(kind)
	style := HazardStyle{
		Fill:      rule.fill,
		BadgeText: rule.badgeText,
		Tier:      TierOf(kind),
	}
	if style.Tier == TierWarning {
		style.Stroke = colorRed
		style.Text = colorRed
		style.Label = WarningLabel
	} else {
		style.Stroke = colorYellow
		style.Text = colorBlack
	}
	if rule.stroke.A != 0 {
		style.Stroke = rule.stroke
	}
	return style
}

// Category returns the name of the table row a kind falls into, e.g.
// "winter" for "Winter Storm Warning".
func Category(kind string) string {
	return ruleFor(kind).name
}

func ruleFor(kind string) styleRule {
	for _, r := range styleRules {
		if r.matches(kind) {
			return r
		}
	}
	return defaultRule
}

// TierOf ranks a kind by its urgency word.
func TierOf(kind string) Tier {
	switch {
	case kind == "":
		return TierNone
	case strings.Contains(kind, "Warning"):
		return TierWarning
	case strings.Contains(kind, "Watch"):
		return TierWatch
	default:
		return TierAdvisory
	}
}

// UniqueLabels removes duplicate kinds, keeping the first occurrence of each
// so the most recently reported kind stays first.
func UniqueLabels(kinds []string) []string {
	seen := make(map[string]struct{}, len(kinds))
	out := make([]string, 0, len(kinds))
	for _, k := range kinds {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}

// UniqueHazardLabels is UniqueLabels over the kinds of a hazard list.
func UniqueHazardLabels(hazards []Hazard) []string {
	kinds := make([]string, 0, len(hazards))
	for _, h := range hazards {
		kinds = append(kinds, h.Kind)
	}
	return UniqueLabels(kinds)
}

// Ring widths for the decorative border.
const (
	RingWidthCalm  = 7
	RingWidthAlert = 15
)

// RingNeutral colors the border when nothing is active locally.
var RingNeutral = color.NRGBA{R: 150, G: 150, B: 150, A: 255}

// ringRules ranks the convective products that recolor the border, most
// severe first.
var ringRules = []struct {
	kind  string
	color color.NRGBA
}{
	{"Tornado Warning", colorRed},
	{"Tornado Watch", color.NRGBA{R: 255, G: 174, A: 255}},
	{"Severe Thunderstorm Warning", colorYellow},
	{"Severe Thunderstorm Watch", color.NRGBA{R: 255, G: 255, A: 150}},
}

// RingStyle picks the border color and width from the locally active kinds.
// The most severe convective product wins; otherwise the most urgent kind's
// fill is used. With nothing active the ring is thin and gray.
func RingStyle(kinds []string) (color.NRGBA, int) {
	if len(kinds) == 0 {
		return RingNeutral, RingWidthCalm
	}

	for _, r := range ringRules {
		for _, k := range kinds {
			if strings.Contains(k, r.kind) {
				return r.color, RingWidthAlert
			}
		}
	}

	worst := kinds[0]
	for _, k := range kinds[1:] {
		if TierOf(k) > TierOf(worst) {
			worst = k
		}
	}
	fill := Classify(worst).Fill
	fill.A = 255
	return fill, RingWidthAlert
}
