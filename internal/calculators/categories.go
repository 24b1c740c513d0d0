package calculators

import (
	"github.com/clinical-scoring-engine/internal/domain"
)

// Categories returns the full catalog grouped by specialty, in display order.
// Each call builds fresh definitions.
func Categories() []domain.Category {
	return []domain.Category{
		reanimationCategory(),
		cardiologyCategory(),
		nephrologyCategory(),
		hepatologyCategory(),
		pulmonologyCategory(),
		geriatricsCategory(),
		psychiatryCategory(),
		oncologyCategory(),
		dermatologyCategory(),
		generalCategory(),
	}
}
