package symbols

// Sector selects a benchmark universe for a target
type Sector string

const (
	SectorTechnology  Sector = "technology"
	SectorBiotech     Sector = "biotech"
	SectorIndustrials Sector = "industrials"
	SectorEnergy      Sector = "energy"
	SectorGeneral     Sector = "general"
)

// DefaultBenchmarks is used when a request names no benchmarks
var DefaultBenchmarks = []string{"SPY", "QQQ", "SMH", "PAVE", "XBI", "SETM"}

var sectorBenchmarks = map[Sector][]string{
	SectorTechnology:  {"SPY", "QQQ", "SMH"},
	SectorBiotech:     {"SPY", "QQQ", "XBI"},
	SectorIndustrials: {"SPY", "QQQ", "PAVE"},
	SectorEnergy:      {"SPY", "QQQ", "SETM"},
	SectorGeneral:     {"SPY", "QQQ"},
}

// BenchmarksFor returns the benchmarks of a sector; unknown sectors get the
// general set. The returned slice is a copy.
func BenchmarksFor(s Sector) []string {
	list, ok := sectorBenchmarks[s]
	if !ok {
		list = sectorBenchmarks[SectorGeneral]
	}
	return append([]string(nil), list...)
}

// Sectors lists the known sectors
func Sectors() []Sector {
	return []Sector{SectorTechnology, SectorBiotech, SectorIndustrials, SectorEnergy, SectorGeneral}
}
