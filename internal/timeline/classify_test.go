package timeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"worktrack/internal/models"
)

func classPtr(c models.Classification) *models.Classification { return &c }

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		item models.WorkItem
		want models.Category
	}{
		{
			"extra job",
			models.WorkItem{Kind: models.KindExtraJob},
			models.CategoryExtra,
		},
		{
			"extra job ignores classification",
			models.WorkItem{Kind: models.KindExtraJob, Classification: classPtr(models.ClassReactive)},
			models.CategoryExtra,
		},
		{
			"reactive work order",
			models.WorkItem{Kind: models.KindWorkOrder, Classification: classPtr(models.ClassReactive)},
			models.CategoryReactive,
		},
		{
			"proactive work order",
			models.WorkItem{Kind: models.KindWorkOrder, Classification: classPtr(models.ClassProactive)},
			models.CategoryProactive,
		},
		{
			"classification wins over preventive type",
			models.WorkItem{Kind: models.KindWorkOrder, Classification: classPtr(models.ClassReactive), Type: models.TypePreventive},
			models.CategoryReactive,
		},
		{
			"preventive type",
			models.WorkItem{Kind: models.KindWorkOrder, Type: models.TypePreventive},
			models.CategoryPM,
		},
		{
			"corrective without classification",
			models.WorkItem{Kind: models.KindWorkOrder, Type: models.TypeCorrective},
			models.CategoryOther,
		},
		{
			"bare work order",
			models.WorkItem{Kind: models.KindWorkOrder},
			models.CategoryOther,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Classify(tc.item))
		})
	}
}
