package outlook

import "github.com/aqoutlook/aqoutlook/internal/risk"

// Decision is the outdoor-activity verdict for the school morning.
type Decision string

const (
	DecisionOutdoorOK Decision = "OUTDOOR_OK"
	DecisionCaution   Decision = "CAUTION"
	DecisionIndoors   Decision = "INDOORS"
)

// AllDecisions returns every decision value.
func AllDecisions() []Decision {
	return []Decision{DecisionOutdoorOK, DecisionCaution, DecisionIndoors}
}

// SchoolHorizonHours is how far ahead the school morning slot is searched.
const SchoolHorizonHours = 36

// SchoolSlot returns the first point whose local hour is 06, 07 or 08,
// falling back to the first point. It returns nil for an empty outlook.
func SchoolSlot(points []Point) *Point {
	if len(points) == 0 {
		return nil
	}
	for i := range points {
		switch points[i].Time.Hour() {
		case 6, 7, 8:
			return &points[i]
		}
	}
	return &points[0]
}

// Decide classifies a slot. Good or Moderate air with risk below 45 is fine
// outdoors; risk below 70 calls for caution; anything else stays indoors.
func Decide(p Point) Decision {
	clean := p.Category == risk.CategoryGood || p.Category == risk.CategoryModerate
	switch {
	case clean && p.Risk < 45:
		return DecisionOutdoorOK
	case p.Risk < 70:
		return DecisionCaution
	default:
		return DecisionIndoors
	}
}
