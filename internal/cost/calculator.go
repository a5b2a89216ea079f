package cost

import "github.com/manash/pixedit/pkg/models"

const (
	CurrencyUSD = "USD"

	// defaultPerImage is charged for image models missing from the pricing
	// table, matching the flash image tier.
	defaultPerImage = 0.039
)

type Calculator struct{}

func NewCalculator() *Calculator {
	return &Calculator{}
}

// Calculate prices a batch of generated images for the given model. Local
// operations like crop call this with count 0 and pay nothing.
func (c *Calculator) Calculate(model string, count int) *models.CostInfo {
	perImage, ok := GetImagePrice(model)
	if !ok {
		perImage = defaultPerImage
	}

	return &models.CostInfo{
		PerImage: perImage,
		Total:    perImage * float64(count),
		Currency: CurrencyUSD,
	}
}
