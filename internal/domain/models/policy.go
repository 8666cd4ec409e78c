package models

// Policy is one row of the policy table fed into a reserve analysis.
// Identifying columns other than PolicyID are dropped by the readers.
type Policy struct {
	PolicyID           string  `json:"policy_id,omitempty"`
	SubscriptionLength float64 `json:"subscription_length" validate:"finite,gte=0"`
	VehicleAge         float64 `json:"vehicle_age" validate:"finite,gte=0"`
	CustomerAge        float64 `json:"customer_age" validate:"finite,gte=0"`
	FuelType           string  `json:"fuel_type" validate:"required"`
	NCAPRating         float64 `json:"ncap_rating" validate:"finite,gte=0,lte=5"`
	ClaimStatus        int     `json:"claim_status" validate:"oneof=0 1"`
}

// HasClaim reports whether the policy carries an observed claim.
func (p Policy) HasClaim() bool { return p.ClaimStatus == 1 }

// ClaimObservation is a paid amount for one claim at one development period.
// Many observations share a (Origin, Dev) cell and are summed by the triangle builder.
type ClaimObservation struct {
	Origin int     `json:"origin_year"`
	Dev    int     `json:"development_year"`
	Paid   float64 `json:"paid_claims"`
}
