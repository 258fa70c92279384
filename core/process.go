package core

import (
	"regexp"
	"strings"

	"github.com/huangsam/metplus/internal/contract"
	"github.com/huangsam/metplus/schema"
)

// knownWrappers lists the process names PROCESS_LIST may refer to.
var knownWrappers = []string{
	"ASCII2NC", "CyclonePlotter", "EnsembleStat", "ExtractTiles", "GempakToCF",
	"GenVxMask", "GridDiag", "GridStat", "MODE", "MTD", "PB2NC", "PCPCombine",
	"PlotDataPlane", "Point2Grid", "PointStat", "PyEmbedIngest", "RegridDataPlane",
	"SeriesAnalysis", "SeriesByInit", "SeriesByLead", "StatAnalysis", "TCGen",
	"TCMPRPlotter", "TCPairs", "TCRMW", "TCStat", "UserScript", "MakePlots",
}

// reformatters do not compare FCST with OBS, so their fields need no pairing.
var reformatters = []string{"PCPCombine", "RegridDataPlane"}

var processInstanceRegex = regexp.MustCompile(`^(.*)\((.*)\)$`)

// wrapperLookup maps a normalized process name to its wrapper name.
var wrapperLookup = func() map[string]string {
	m := make(map[string]string, len(knownWrappers))
	for _, name := range knownWrappers {
		m[normalizeProcessName(name)] = name
	}
	return m
}()

// ParseProcessList reads PROCESS_LIST such as "GridStat, PCPCombine(accum)".
// Names are matched to known wrappers ignoring case, dashes and underscores;
// unknown names are kept as written. MakePlots is dropped because it runs
// from StatAnalysis.
func ParseProcessList(store contract.ConfigStore) []schema.Process {
	items := contract.ParseList(store.GetString(contract.ConfigSection, "PROCESS_LIST", ""), true)
	out := make([]schema.Process, 0, len(items))
	for _, item := range items {
		name, instance := item, ""
		if m := processInstanceRegex.FindStringSubmatch(item); m != nil {
			name, instance = strings.TrimSpace(m[1]), strings.TrimSpace(m[2])
		}
		wrapper, ok := wrapperLookup[normalizeProcessName(name)]
		if !ok {
			wrapper = name
		}
		if wrapper == "MakePlots" {
			continue
		}
		out = append(out, schema.Process{Name: wrapper, Instance: instance, Tool: ToolPrefix(wrapper)})
	}
	return out
}

// ToolPrefix returns the config key prefix of a wrapper, e.g. GRID_STAT.
func ToolPrefix(wrapper string) string {
	return strings.ToUpper(contract.CamelToUnderscore(wrapper))
}

// SkipFieldValidation reports whether the process list makes FCST/OBS field
// pairing unnecessary: only reformatters, or MTD in single-run mode. An empty
// process list keeps validation on.
func SkipFieldValidation(store contract.ConfigStore) bool {
	processes := ParseProcessList(store)
	if len(processes) == 0 {
		return false
	}
	for _, p := range processes {
		if p.Name == "MTD" {
			if single, err := contract.ParseBoolString(store.GetString(contract.ConfigSection, "MTD_SINGLE_RUN", "false")); err == nil && single {
				return true
			}
		}
	}
	for _, p := range processes {
		isReformatter := false
		for _, r := range reformatters {
			if p.Name == r {
				isReformatter = true
				break
			}
		}
		if !isReformatter {
			return false
		}
	}
	return true
}

func normalizeProcessName(name string) string {
	name = strings.ReplaceAll(name, "-", "")
	name = strings.ReplaceAll(name, "_", "")
	return strings.ToLower(strings.TrimSpace(name))
}
