// Package finance holds the pure fee computation and reconciliation core.
// Nothing here performs I/O; services wrap these functions around the
// repositories and the HTTP surface.
package finance

import "github.com/noah-isme/school-finance-api/internal/models"

// ComputeTotal derives a total fee from the tuition base, the category
// component maps, and a discount. The result clamps at zero so an oversized
// discount can never produce a negative total; rejecting such discounts is
// the validation layer's job.
func ComputeTotal(tuition float64, extracurricular, miscellaneous map[models.FeeCategory]float64, discount float64) float64 {
	total := tuition + sumComponents(extracurricular) + sumComponents(miscellaneous) - discount
	if total < 0 {
		return 0
	}
	return total
}

// Subtotal returns the pre-discount sum of tuition and all components.
func Subtotal(tuition float64, extracurricular, miscellaneous map[models.FeeCategory]float64) float64 {
	return tuition + sumComponents(extracurricular) + sumComponents(miscellaneous)
}

func sumComponents(components map[models.FeeCategory]float64) float64 {
	var sum float64
	for _, amount := range components {
		sum += amount
	}
	return sum
}
