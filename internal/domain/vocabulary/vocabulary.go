// Package vocabulary is the closed set of names the engine understands: measured
// parameters, named ocean regions and float identifiers.
package vocabulary

import (
	"regexp"
	"sort"
	"strings"

	"github.com/kailas-cloud/floatchat/internal/domain/geo"
)

// Parameter is a measured variable exposed as a column of the observations table.
type Parameter struct {
	Name        string
	Unit        string
	Description string
	Aliases     []string
}

// Parameters in canonical order. Compiled projections follow this order.
var Parameters = []Parameter{
	{Name: "temperature", Unit: "degC", Description: "in-situ sea water temperature", Aliases: []string{"temp", "sea temperature", "water temperature"}},
	{Name: "salinity", Unit: "PSU", Description: "practical salinity", Aliases: []string{"psal", "salt", "sea water salinity"}},
	{Name: "pressure", Unit: "dbar", Description: "sea water pressure", Aliases: []string{"pres"}},
	{Name: "depth", Unit: "m", Description: "depth below sea surface", Aliases: []string{"level"}},
	{Name: "oxygen", Unit: "umol/kg", Description: "dissolved oxygen", Aliases: []string{"doxy", "dissolved oxygen", "o2"}},
	{Name: "chlorophyll", Unit: "mg/m3", Description: "chlorophyll-a concentration", Aliases: []string{"chla", "chl", "chlorophyll-a"}},
	{Name: "backscatter", Unit: "1/m", Description: "particle backscattering at 700 nm", Aliases: []string{"bbp700", "bbp", "optical backscatter"}},
	{Name: "nitrate", Unit: "umol/kg", Description: "nitrate concentration", Aliases: []string{"no3"}},
	{Name: "ph", Unit: "", Description: "pH on the total scale", Aliases: []string{"ph_in_situ", "ph_in_situ_total", "acidity"}},
}

// Region is a named ocean area with its bounding box.
type Region struct {
	Name    string
	Box     geo.BBox
	Aliases []string
}

// Regions known to the engine.
var Regions = []Region{
	{Name: "Arabian Sea", Box: geo.BBox{MinLat: 5, MaxLat: 25, MinLon: 50, MaxLon: 75}, Aliases: []string{"arabian"}},
	{Name: "Bay of Bengal", Box: geo.BBox{MinLat: 5, MaxLat: 22, MinLon: 80, MaxLon: 95}, Aliases: []string{"bengal"}},
	{Name: "Indian Ocean", Box: geo.BBox{MinLat: -40, MaxLat: 30, MinLon: 20, MaxLon: 120}, Aliases: []string{"indian"}},
	{Name: "Equatorial", Box: geo.BBox{MinLat: -5, MaxLat: 5, MinLon: -180, MaxLon: 180}, Aliases: []string{"equator", "equatorial region", "near the equator"}},
	{Name: "North Atlantic", Box: geo.BBox{MinLat: 0, MaxLat: 65, MinLon: -80, MaxLon: 0}},
	{Name: "South Atlantic", Box: geo.BBox{MinLat: -60, MaxLat: 0, MinLon: -70, MaxLon: 20}},
	{Name: "North Pacific", Box: geo.BBox{MinLat: 0, MaxLat: 60, MinLon: 120, MaxLon: 180}},
	{Name: "South Pacific", Box: geo.BBox{MinLat: -60, MaxLat: 0, MinLon: 150, MaxLon: 180}},
	{Name: "Southern Ocean", Box: geo.BBox{MinLat: -80, MaxLat: -60, MinLon: -180, MaxLon: 180}, Aliases: []string{"antarctic", "antarctic ocean"}},
	{Name: "Arctic Ocean", Box: geo.BBox{MinLat: 66, MaxLat: 90, MinLon: -180, MaxLon: 180}, Aliases: []string{"arctic"}},
}

var (
	parameterIndex = map[string]int{}
	regionIndex    = map[string]int{}
	floatIDPattern = regexp.MustCompile(`^[1-9][0-9]{6}$`)
)

func init() {
	for i, p := range Parameters {
		parameterIndex[normalize(p.Name)] = i
		for _, a := range p.Aliases {
			parameterIndex[normalize(a)] = i
		}
	}
	for i, r := range Regions {
		regionIndex[normalize(r.Name)] = i
		for _, a := range r.Aliases {
			regionIndex[normalize(a)] = i
		}
	}
}

func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimPrefix(s, "the ")
	return strings.Join(strings.Fields(s), " ")
}

// CanonicalParameter resolves a name or alias to the canonical parameter name.
func CanonicalParameter(name string) (string, bool) {
	i, ok := parameterIndex[normalize(name)]
	if !ok {
		return "", false
	}
	return Parameters[i].Name, true
}

// IsParameter reports whether name is a canonical parameter name.
func IsParameter(name string) bool {
	i, ok := parameterIndex[name]
	return ok && Parameters[i].Name == name
}

// ParameterRank returns the canonical position of a parameter, or -1.
func ParameterRank(name string) int {
	for i, p := range Parameters {
		if p.Name == name {
			return i
		}
	}
	return -1
}

// LookupParameter returns the parameter definition by canonical name.
func LookupParameter(name string) (Parameter, bool) {
	if r := ParameterRank(name); r >= 0 {
		return Parameters[r], true
	}
	return Parameter{}, false
}

// LookupRegion resolves a region name or alias, case-insensitively.
func LookupRegion(name string) (Region, bool) {
	i, ok := regionIndex[normalize(name)]
	if !ok {
		return Region{}, false
	}
	return Regions[i], true
}

// generic words never count as a region match on their own
var genericWords = map[string]struct{}{
	"sea": {}, "ocean": {}, "of": {}, "the": {}, "bay": {}, "region": {}, "area": {}, "near": {},
}

// RegionCandidates returns region names sharing a significant word with name, in
// vocabulary order. When nothing overlaps it returns every region name.
func RegionCandidates(name string) []string {
	words := map[string]struct{}{}
	for _, w := range strings.Fields(normalize(name)) {
		if _, generic := genericWords[w]; !generic {
			words[w] = struct{}{}
		}
	}

	var out []string
	for _, r := range Regions {
		if regionShares(r, words) {
			out = append(out, r.Name)
		}
	}
	if len(out) == 0 {
		return RegionNames()
	}
	return out
}

func regionShares(r Region, words map[string]struct{}) bool {
	names := append([]string{r.Name}, r.Aliases...)
	for _, n := range names {
		for _, w := range strings.Fields(normalize(n)) {
			if _, ok := words[w]; ok {
				return true
			}
		}
	}
	return false
}

// RegionNames lists every region name in vocabulary order.
func RegionNames() []string {
	out := make([]string, len(Regions))
	for i, r := range Regions {
		out[i] = r.Name
	}
	return out
}

// ParameterNames lists every canonical parameter name in vocabulary order.
func ParameterNames() []string {
	out := make([]string, len(Parameters))
	for i, p := range Parameters {
		out[i] = p.Name
	}
	return out
}

// ValidFloatID reports whether id is a 7-digit WMO platform number.
func ValidFloatID(id string) bool {
	return floatIDPattern.MatchString(id)
}

// SortParameters orders known parameters canonically; unknown names go last, alphabetically.
func SortParameters(names []string) {
	sort.SliceStable(names, func(i, j int) bool {
		ri, rj := ParameterRank(names[i]), ParameterRank(names[j])
		switch {
		case ri >= 0 && rj >= 0:
			return ri < rj
		case ri >= 0:
			return true
		case rj >= 0:
			return false
		default:
			return names[i] < names[j]
		}
	})
}
