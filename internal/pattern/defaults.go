package pattern

// DefaultVersion tags the built-in curves
const DefaultVersion = "builtin-1"

// DefaultSnapshot holds the built-in curves used until object storage supplies newer ones.
func DefaultSnapshot() *Snapshot {
	return NewSnapshot(DefaultVersion, []Pattern{
		{
			BusinessType: "grocery",
			Region:       Wildcard,
			// weekend heavy, mid-week dip
			Weekly:         [7]float64{1.20, 0.90, 0.88, 0.92, 0.95, 1.05, 1.25},
			Monthly:        [12]float64{0.95, 0.95, 1.00, 1.00, 0.95, 0.95, 0.95, 1.00, 1.05, 1.10, 1.10, 1.00},
			BaseDailyUnits: 20,
		},
		{
			BusinessType:   "apparel",
			Region:         Wildcard,
			Weekly:         [7]float64{1.35, 0.80, 0.80, 0.85, 0.90, 1.05, 1.40},
			Monthly:        [12]float64{0.90, 0.85, 0.95, 1.00, 1.05, 0.90, 0.85, 0.90, 1.05, 1.25, 1.25, 1.05},
			BaseDailyUnits: 8,
		},
		{
			BusinessType:   "electronics",
			Region:         Wildcard,
			Weekly:         [7]float64{1.30, 0.85, 0.85, 0.90, 0.90, 1.00, 1.30},
			Monthly:        [12]float64{0.90, 0.85, 0.90, 0.95, 0.95, 0.90, 0.90, 1.00, 1.05, 1.30, 1.25, 1.05},
			BaseDailyUnits: 4,
		},
		generalPattern(),
	})
}

func generalPattern() Pattern {
	return Pattern{
		BusinessType:   FallbackType,
		Region:         Wildcard,
		Weekly:         [7]float64{1.10, 0.95, 0.95, 0.95, 1.00, 1.00, 1.05},
		Monthly:        [12]float64{1, 1, 1, 1, 1, 1, 1, 1, 1, 1.05, 1.05, 1},
		BaseDailyUnits: 10,
	}
}
