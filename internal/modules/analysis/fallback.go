package analysis

import "github.com/contextlens/core/internal/models"

const (
	fallbackSummary    = "Unable to fully analyze this content. Use your own judgment."
	fallbackConfidence = 0.3
)

// fallbackQuickVerdict is returned when the quick judgment call fails. The UI
// always gets a complete, clearly-labeled signal, never a null.
func fallbackQuickVerdict() *models.QuickVerdict {
	return &models.QuickVerdict{
		Overall:    models.RatingAmber,
		Summary:    fallbackSummary,
		Confidence: fallbackConfidence,
	}
}

var fallbackDimensionLabels = map[string]string{
	"perspective":  "Perspective not assessed",
	"verification": "Verification not assessed",
	"balance":      "Balance not assessed",
	"source":       "Source not assessed",
	"tone":         "Tone not assessed",
}

// fallbackDeepVerdict is returned when the deep judgment call fails or its
// response does not validate. Every dimension is present and rated at the
// neutral tier so the result still satisfies the full verdict schema.
func fallbackDeepVerdict(hasMedia bool) *models.DeepVerdict {
	dims := make(map[string]models.DimensionRating, len(models.DimensionNames))
	for _, name := range models.DimensionNames {
		dims[name] = models.DimensionRating{
			Rating: models.RatingAmber,
			Label:  fallbackDimensionLabels[name],
			Reason: "Analysis was unavailable for this content.",
		}
	}
	return &models.DeepVerdict{
		Overall:        models.RatingAmber,
		Summary:        fallbackSummary,
		Confidence:     fallbackConfidence,
		Dimensions:     dims,
		CounterSources: []models.CounterSource{},
		HasMedia:       hasMedia,
	}
}
