package chainladder

import "ClaimReserve/internal/domain/models"

// Projection is the reserve outcome for every origin plus totals.
type Projection struct {
	Summary            []models.OriginReserve
	Latest             map[int]float64
	TotalPaid          float64
	TotalUltimate      float64
	TotalIBNR          float64
	OverallIBNRPercent float64
}

// ProjectReserves applies the CDF at each origin's latest present cell.
// An origin without cells contributes zero everywhere.
func ProjectReserves(t *Triangle, cdfs *CDFs) Projection {
	origins := t.Origins()
	p := Projection{
		Summary: make([]models.OriginReserve, 0, len(origins)),
		Latest:  make(map[int]float64, len(origins)),
	}
	for _, origin := range origins {
		r := models.OriginReserve{Origin: origin}
		if dev, amount, ok := t.Latest(origin); ok {
			cdf, found := cdfs.At(dev)
			if !found {
				cdf = noDevelopment
			}
			r.LatestDev = dev
			r.LatestPaid = amount
			r.Ultimate = amount * cdf
		}
		r.IBNR = r.Ultimate - r.LatestPaid
		r.IBNRPercent = percentOf(r.IBNR, r.Ultimate)

		p.Summary = append(p.Summary, r)
		p.Latest[origin] = r.LatestPaid
		p.TotalPaid += r.LatestPaid
		p.TotalUltimate += r.Ultimate
		p.TotalIBNR += r.IBNR
	}
	p.OverallIBNRPercent = percentOf(p.TotalIBNR, p.TotalUltimate)
	return p
}

// percentOf returns part/whole*100, or 0 when whole is 0.
func percentOf(part, whole float64) float64 {
	if whole == 0 {
		return 0
	}
	return part / whole * 100
}
