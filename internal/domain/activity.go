package domain

// ActivityCategory groups alternative activities.
type ActivityCategory string

const (
	ActivityPhysical     ActivityCategory = "PHYSICAL"
	ActivitySocial       ActivityCategory = "SOCIAL"
	ActivityCreative     ActivityCategory = "CREATIVE"
	ActivityEducational  ActivityCategory = "EDUCATIONAL"
	ActivityRelaxation   ActivityCategory = "RELAXATION"
	ActivityFinancial    ActivityCategory = "FINANCIAL"
	ActivityEntertainment ActivityCategory = "ENTERTAINMENT"
)

// Activity is a healthy alternative offered in place of wagering.
type Activity struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Category    ActivityCategory `json:"category"`
	DurationMin int              `json:"durationMin"`
	Cost        float64          `json:"cost"`
	Benefit     string           `json:"benefit"`
}
