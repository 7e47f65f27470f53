package flood

import (
	"math"

	"github.com/matzehuels/sealevel/pkg/dem"
	apperr "github.com/matzehuels/sealevel/pkg/errors"
)

// LevelRange is an inclusive arithmetic sequence of sea levels in metres.
type LevelRange struct {
	Start float64 `toml:"start" json:"start"`
	Stop  float64 `toml:"stop" json:"stop"`
	Step  float64 `toml:"step" json:"step"`
}

// Validate checks the range produces at least one level.
func (r LevelRange) Validate() error {
	return apperr.ValidateLevelRange(r.Start, r.Stop, r.Step)
}

// levelEpsilon lets a stop that is a whole number of steps away survive
// accumulated floating point error, so 0..85 step 5 includes 85.
const levelEpsilon = 1e-9

// Levels expands r into its levels, stop included when it falls on a step.
// Levels are computed as Start+i*Step rather than by repeated addition.
func Levels(r LevelRange) ([]float64, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	n := int(math.Floor((r.Stop-r.Start)/r.Step+levelEpsilon)) + 1
	out := make([]float64, n)
	for i := range out {
		out[i] = r.Start + float64(i)*r.Step
	}
	return out, nil
}

// LevelStat summarises one level's flood mask.
type LevelStat struct {
	Level    float64 `json:"level"`
	Flooded  int     `json:"flooded"`
	Fraction float64 `json:"fraction"`
}

// Stats computes flooded cell counts for each level. Fraction is relative
// to the grid's valid cells and is 0 when there are none.
func Stats(g *dem.Grid, levels []float64) []LevelStat {
	valid := g.ValidCount()
	out := make([]LevelStat, len(levels))
	for i, lvl := range levels {
		n := Compute(g, lvl).Count()
		out[i] = LevelStat{Level: lvl, Flooded: n}
		if valid > 0 {
			out[i].Fraction = float64(n) / float64(valid)
		}
	}
	return out
}
