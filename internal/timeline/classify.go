// internal/timeline/classify.go
package timeline

import "worktrack/internal/models"

// Classify maps a work item to its reporting category. This is the single
// place the Classification/Type dispatch lives; every report endpoint goes
// through it so the buckets stay consistent.
func Classify(wi models.WorkItem) models.Category {
	if wi.Kind == models.KindExtraJob {
		return models.CategoryExtra
	}
	if wi.Classification != nil {
		switch *wi.Classification {
		case models.ClassProactive:
			return models.CategoryProactive
		case models.ClassReactive:
			return models.CategoryReactive
		}
	}
	if wi.Type == models.TypePreventive {
		return models.CategoryPM
	}
	return models.CategoryOther
}
