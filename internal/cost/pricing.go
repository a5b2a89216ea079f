package cost

// Gemini image model pricing (USD per generated image).
// Source: https://ai.google.dev/pricing

var geminiImagePricing = map[string]float64{
	"gemini-2.5-flash-image":                    0.039,
	"gemini-2.0-flash-preview-image-generation": 0.039,
}

func GetImagePrice(model string) (float64, bool) {
	price, ok := geminiImagePricing[model]
	return price, ok
}
