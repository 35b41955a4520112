package usage

// Level classifies monthly consumption.
type Level string

const (
	LevelEfficient Level = "efficient"
	LevelModerate  Level = "moderate"
	LevelHigh      Level = "high"
)

const (
	moderateAbove = 150
	highAbove     = 300
)

// Insight is a short assessment of a household's consumption.
type Insight struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

// Assess grades monthly units: above 300 is high, above 150 moderate.
func Assess(monthlyUnits float64) Insight {
	switch {
	case monthlyUnits > highAbove:
		return Insight{Level: LevelHigh, Message: "High electricity usage detected! Consider reducing AC usage."}
	case monthlyUnits > moderateAbove:
		return Insight{Level: LevelModerate, Message: "Moderate usage. You can still optimize usage."}
	default:
		return Insight{Level: LevelEfficient, Message: "Efficient usage. Great job!"}
	}
}

// Tips returns general energy saving advice.
func Tips() []string {
	return []string{
		"Switch to LED bulbs",
		"Set AC at 26°C",
		"Use inverter appliances",
		"Turn off idle devices",
		"Avoid peak hour usage",
	}
}
