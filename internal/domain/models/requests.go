package models

// Transport DTOs for analysis requests. Pointer fields let the validator
// tell a missing value from a zero.

type PolicyRecord struct {
	PolicyID           string   `json:"policy_id"`
	SubscriptionLength *float64 `json:"subscription_length" validate:"required,gte=0"`
	VehicleAge         *float64 `json:"vehicle_age" validate:"required,gte=0"`
	CustomerAge        *float64 `json:"customer_age" validate:"required,gte=0"`
	FuelType           string   `json:"fuel_type" validate:"required"`
	NCAPRating         *float64 `json:"ncap_rating" validate:"required,gte=0,lte=5"`
	ClaimStatus        *int     `json:"claim_status" validate:"required,oneof=0 1"`
}

// ToPolicy converts a validated record. Nil fields become zero.
func (r PolicyRecord) ToPolicy() Policy {
	p := Policy{PolicyID: r.PolicyID, FuelType: r.FuelType}
	if r.SubscriptionLength != nil {
		p.SubscriptionLength = *r.SubscriptionLength
	}
	if r.VehicleAge != nil {
		p.VehicleAge = *r.VehicleAge
	}
	if r.CustomerAge != nil {
		p.CustomerAge = *r.CustomerAge
	}
	if r.NCAPRating != nil {
		p.NCAPRating = *r.NCAPRating
	}
	if r.ClaimStatus != nil {
		p.ClaimStatus = *r.ClaimStatus
	}
	return p
}

// PoliciesFromRecords converts a slice of records.
func PoliciesFromRecords(records []PolicyRecord) []Policy {
	out := make([]Policy, 0, len(records))
	for _, r := range records {
		out = append(out, r.ToPolicy())
	}
	return out
}

// OptionsRequest mirrors the options object sent by clients.
type OptionsRequest struct {
	Method     string   `json:"method" default:"simple_average"`
	TailFactor *float64 `json:"tailFactor" validate:"omitempty,gte=0"`
}

// ToOptions normalizes the request into AnalysisOptions.
func (o OptionsRequest) ToOptions() AnalysisOptions {
	opts := DefaultAnalysisOptions()
	opts.Method = ParseMethod(o.Method)
	if o.TailFactor != nil {
		opts.TailFactor = *o.TailFactor
	}
	return opts
}

type AnalyzeRequest struct {
	Policies []PolicyRecord `json:"policies" validate:"required,min=1,dive"`
	Options  OptionsRequest `json:"options"`
}

type PortfolioAnalysisRequest struct {
	Portfolio  string `param:"portfolio" validate:"required,max=128"`
	Method     string `query:"method" default:"simple_average"`
	TailFactor string `query:"tail_factor" validate:"omitempty,numeric"`
}

// AnalysisRequestMessage is the Kafka payload on the analysis request topic.
type AnalysisRequestMessage struct {
	RequestID string         `json:"request_id"`
	Policies  []PolicyRecord `json:"policies" validate:"required,min=1,dive"`
	Options   OptionsRequest `json:"options"`
}
