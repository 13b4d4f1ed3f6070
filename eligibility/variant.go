package eligibility

// Bands are the heuristic probability scores an evaluation can land on
type Bands struct {
	MeritOverCategory int `koanf:"merit_over_category" yaml:"merit_over_category"`

	GeneralHigh   int     `koanf:"general_high" yaml:"general_high"`
	GeneralMedium int     `koanf:"general_medium" yaml:"general_medium"`
	GeneralLow    int     `koanf:"general_low" yaml:"general_low"`
	GeneralMargin float64 `koanf:"general_margin" yaml:"general_margin"`

	CategoryHigh   int     `koanf:"category_high" yaml:"category_high"`
	CategoryMedium int     `koanf:"category_medium" yaml:"category_medium"`
	CategoryLow    int     `koanf:"category_low" yaml:"category_low"`
	CategoryMargin float64 `koanf:"category_margin" yaml:"category_margin"`

	Horizontal int `koanf:"horizontal" yaml:"horizontal"`
	Floor      int `koanf:"floor" yaml:"floor"`
}

// Variant parameterizes the evaluator for one stage of the recruitment
type Variant struct {
	Name string
	// IntakeMultiplier scales every vacancy count: 1.0 for final selection,
	// 1.5 for the wider document verification call
	IntakeMultiplier float64
	Bands            Bands
}

// Selection estimates the chance of final selection
var Selection = Variant{
	Name:             "selection",
	IntakeMultiplier: 1.0,
	Bands: Bands{
		MeritOverCategory: 95,
		GeneralHigh:       90,
		GeneralMedium:     40,
		GeneralLow:        15,
		GeneralMargin:     1.2,
		CategoryHigh:      85,
		CategoryMedium:    35,
		CategoryLow:       0,
		CategoryMargin:    1.2,
		Horizontal:        80,
		Floor:             10,
	},
}

// DocumentVerification estimates the chance of a document verification call
var DocumentVerification = Variant{
	Name:             "document_verification",
	IntakeMultiplier: 1.5,
	Bands: Bands{
		MeritOverCategory: 98,
		GeneralHigh:       95,
		GeneralMedium:     60,
		GeneralLow:        20,
		GeneralMargin:     1.1,
		CategoryHigh:      90,
		CategoryMedium:    50,
		CategoryLow:       20,
		CategoryMargin:    1.1,
		Horizontal:        85,
		Floor:             5,
	},
}

// Heuristics are the tunable constants shared by both variants
type Heuristics struct {
	// ConfidentThreshold is the probability below which horizontal quotas are tried
	ConfidentThreshold int
	// PHMaleShare is the estimated share of PH seats going to men
	PHMaleShare float64
	// ExServicemenMaleShare is the estimated share of ex-servicemen seats going to men
	ExServicemenMaleShare float64
}

// DefaultHeuristics returns the standard thresholds and gender splits
func DefaultHeuristics() Heuristics {
	return Heuristics{
		ConfidentThreshold:    70,
		PHMaleShare:           0.67,
		ExServicemenMaleShare: 0.90,
	}
}
