package models

// Rating is the tri-state scale used for the overall verdict and every dimension.
type Rating string

const (
	RatingGreen Rating = "green"
	RatingAmber Rating = "amber"
	RatingRed   Rating = "red"
)

// Valid reports whether r is one of the three allowed values.
func (r Rating) Valid() bool {
	return r == RatingGreen || r == RatingAmber || r == RatingRed
}

// Stance classifies a corroboration source relative to the analyzed content.
type Stance string

const (
	StanceSupporting Stance = "supporting"
	StanceCounter    Stance = "counter"
	StanceNeutral    Stance = "neutral"
)

// Valid reports whether s is a known stance.
func (s Stance) Valid() bool {
	return s == StanceSupporting || s == StanceCounter || s == StanceNeutral
}

// Agreement summarizes how strongly comments agree with the content.
type Agreement string

const (
	AgreementStrong   Agreement = "strong_agreement"
	AgreementMixed    Agreement = "mixed"
	AgreementDisagree Agreement = "strong_disagreement"
	AgreementUnclear  Agreement = "unclear"
)

// Dimension names rated by a deep verdict, in display order.
var DimensionNames = []string{"perspective", "verification", "balance", "source", "tone"}

// QuickVerdict is the cheap text-only signal.
type QuickVerdict struct {
	Overall    Rating  `json:"overall"`
	Summary    string  `json:"summary"`
	Confidence float64 `json:"confidence"`
}

// DimensionRating rates one aspect of the content.
type DimensionRating struct {
	Rating Rating `json:"rating"`
	Label  string `json:"label"`
	Reason string `json:"reason,omitempty"`
}

// CounterSource is a corroboration result that survived relevance filtering,
// with the stance the judgment stage assigned to it.
type CounterSource struct {
	Outlet   string `json:"outlet"`
	Headline string `json:"headline"`
	URL      string `json:"url"`
	Snippet  string `json:"snippet,omitempty"`
	Stance   Stance `json:"stance"`
}

// CommentHighlight is one excerpt surfaced by the comment-climate analysis.
type CommentHighlight struct {
	Text      string `json:"text"`
	Sentiment string `json:"sentiment"`
}

// CommentAnalysis summarizes the climate of the comment section.
type CommentAnalysis struct {
	Tone       string             `json:"tone"`
	Lean       string             `json:"lean"`
	Agreement  Agreement          `json:"agreement"`
	Highlights []CommentHighlight `json:"highlights,omitempty"`
}

// DeepVerdict is the full multi-source assessment.
type DeepVerdict struct {
	Overall            Rating                     `json:"overall"`
	Summary            string                     `json:"summary"`
	Confidence         float64                    `json:"confidence"`
	Dimensions         map[string]DimensionRating `json:"dimensions"`
	CounterPerspective string                     `json:"counterPerspective,omitempty"`
	CounterSources     []CounterSource            `json:"counterSources"`
	CommentAnalysis    *CommentAnalysis           `json:"commentAnalysis,omitempty"`
	VisualAssessment   string                     `json:"visualAssessment,omitempty"`
	HasMedia           bool                       `json:"hasMedia"`
}

// Quick projects the deep verdict down to its quick-tier fields.
func (v *DeepVerdict) Quick() *QuickVerdict {
	return &QuickVerdict{
		Overall:    v.Overall,
		Summary:    v.Summary,
		Confidence: v.Confidence,
	}
}

// Complete reports whether the verdict carries every required field: a valid
// overall rating and a valid rating for each of the five dimensions.
func (v *DeepVerdict) Complete() bool {
	if v == nil || !v.Overall.Valid() {
		return false
	}
	for _, name := range DimensionNames {
		dim, ok := v.Dimensions[name]
		if !ok || !dim.Rating.Valid() {
			return false
		}
	}
	return true
}
