package learningunit

import (
	"fmt"

	"github.com/ncertrag/corekb/core"
)

// unitsFromProposals converts a successfully parsed LLM boundary proposal
// (§4.3 "Optional LLM assist", §6 boundary proposal) directly into
// LearningUnits, skipping the rule-based element search entirely. Any
// malformed proposal (empty range, end<=start, out-of-bounds offsets)
// rejects the whole batch so the caller falls back deterministically —
// "the rule-based path must be sufficient on its own".
func (b *Builder) unitsFromProposals(slice string, proposals []ProposedUnit) ([]core.LearningUnit, error) {
	units := make([]core.LearningUnit, 0, len(proposals))
	for _, p := range proposals {
		if p.Start < 0 || p.End <= p.Start || p.End > len(slice) {
			return nil, fmt.Errorf("learningunit: proposed unit [%d,%d) out of bounds for slice of length %d", p.Start, p.End, len(slice))
		}
		u := core.LearningUnit{
			Start:           p.Start,
			End:             p.End,
			IntroContent:    slice[p.Start:p.End],
			EducationalFlow: flowFromUnitType(p.UnitType),
		}
		units = append(units, u)
	}
	return units, nil
}

func flowFromUnitType(unitType string) core.EducationalFlow {
	switch unitType {
	case "activity":
		return core.FlowIntroActivityConclusion
	case "example":
		return core.FlowIntroExampleConclusion
	case "assessment":
		return core.FlowMixed
	case "theory":
		return core.FlowIntroOnly
	default:
		return core.FlowMixed
	}
}
