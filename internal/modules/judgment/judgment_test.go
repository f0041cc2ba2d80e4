package judgment

import (
	"context"
	"errors"
	"testing"

	appcfg "github.com/contextlens/core/internal/config"
	"github.com/contextlens/core/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testAdapter(t *testing.T, response string, callErr error) *Adapter {
	t.Helper()
	a := New(appcfg.AIConfig{
		Providers: []appcfg.AIProvider{
			{ID: "main", Type: "openai", APIKey: "k", Model: "gpt-test", Enabled: true},
		},
	}, zap.NewNop())
	a.call = func(ctx context.Context, provider *appcfg.AIProvider, system, prompt string, maxTokens int) (string, error) {
		return response, callErr
	}
	return a
}

const validDeepJSON = `{
	"overall": "amber",
	"summary": "Partly supported.",
	"confidence": 0.6,
	"dimensions": {
		"perspective": {"rating": "amber", "label": "One-sided"},
		"verification": {"rating": "green", "label": "Verifiable"},
		"balance": {"rating": "amber", "label": "Selective"},
		"source": {"rating": "green", "label": "Known outlet"},
		"tone": {"rating": "red", "label": "Charged", "reason": "loaded phrasing"}
	},
	"counterPerspective": "Other outlets report the opposite.",
	"sources": [
		{"index": 1, "relevant": true, "stance": "counter"},
		{"index": 2, "relevant": false, "stance": "neutral"}
	],
	"commentAnalysis": {
		"tone": "hostile",
		"lean": "left",
		"agreement": "mixed",
		"highlights": [{"text": "this is wrong", "sentiment": "negative"}]
	},
	"visualAssessment": "Photo matches the described event."
}`

func TestQuickParsesValidResponse(t *testing.T) {
	a := testAdapter(t, `{"overall":"green","summary":"Checks out.","confidence":0.85}`, nil)

	v, err := a.Quick(context.Background(), Input{Text: "claim", Author: "reporter"})
	require.NoError(t, err)
	assert.Equal(t, models.RatingGreen, v.Overall)
	assert.Equal(t, "Checks out.", v.Summary)
	assert.Equal(t, 0.85, v.Confidence)
}

func TestQuickStripsCodeFence(t *testing.T) {
	a := testAdapter(t, "```json\n{\"overall\":\"red\",\"summary\":\"Fails.\"}\n```", nil)

	v, err := a.Quick(context.Background(), Input{Text: "claim"})
	require.NoError(t, err)
	assert.Equal(t, models.RatingRed, v.Overall)
	assert.Equal(t, defaultConfidence, v.Confidence, "missing confidence takes the default")
}

func TestQuickExtractsEmbeddedJSON(t *testing.T) {
	a := testAdapter(t, `Here is my verdict: {"overall":"amber","summary":"Partly."} Hope it helps!`, nil)

	v, err := a.Quick(context.Background(), Input{Text: "claim"})
	require.NoError(t, err)
	assert.Equal(t, models.RatingAmber, v.Overall)
}

func TestQuickRejectsInvalidRating(t *testing.T) {
	a := testAdapter(t, `{"overall":"yellow","summary":"hmm"}`, nil)
	_, err := a.Quick(context.Background(), Input{Text: "claim"})
	assert.ErrorContains(t, err, "invalid overall rating")
}

func TestQuickRejectsEmptySummary(t *testing.T) {
	a := testAdapter(t, `{"overall":"green","summary":"  "}`, nil)
	_, err := a.Quick(context.Background(), Input{Text: "claim"})
	assert.ErrorContains(t, err, "empty summary")
}

func TestQuickRejectsNonJSON(t *testing.T) {
	a := testAdapter(t, "I cannot rate this content.", nil)
	_, err := a.Quick(context.Background(), Input{Text: "claim"})
	assert.ErrorContains(t, err, "invalid JSON")
}

func TestQuickPropagatesCallError(t *testing.T) {
	a := testAdapter(t, "", errors.New("provider timeout"))
	_, err := a.Quick(context.Background(), Input{Text: "claim"})
	assert.ErrorContains(t, err, "provider timeout")
}

func TestQuickNoEnabledProvider(t *testing.T) {
	a := New(appcfg.AIConfig{}, zap.NewNop())
	_, err := a.Quick(context.Background(), Input{Text: "claim"})
	assert.ErrorContains(t, err, "no enabled judgment provider")
}

func TestDeepParsesFullResponse(t *testing.T) {
	a := testAdapter(t, validDeepJSON, nil)

	j, err := a.Deep(context.Background(), Input{
		Text:          "claim",
		SearchResults: []models.SearchResult{{URL: "https://a.org"}, {URL: "https://b.org"}},
	})
	require.NoError(t, err)

	assert.Equal(t, models.RatingAmber, j.Overall)
	assert.Len(t, j.Dimensions, 5)
	assert.Equal(t, "loaded phrasing", j.Dimensions["tone"].Reason)
	require.Len(t, j.Sources, 2)
	assert.Equal(t, models.StanceCounter, j.Sources[0].Stance)
	require.NotNil(t, j.CommentAnalysis)
	assert.Equal(t, models.AgreementMixed, j.CommentAnalysis.Agreement)
	require.Len(t, j.CommentAnalysis.Highlights, 1)
	assert.Equal(t, "Photo matches the described event.", j.VisualAssessment)
}

func TestDeepRejectsMissingDimension(t *testing.T) {
	a := testAdapter(t, `{
		"overall": "green",
		"summary": "ok",
		"dimensions": {
			"perspective": {"rating": "green"},
			"verification": {"rating": "green"},
			"balance": {"rating": "green"},
			"source": {"rating": "green"}
		}
	}`, nil)

	_, err := a.Deep(context.Background(), Input{Text: "claim"})
	assert.ErrorContains(t, err, `missing dimension "tone"`)
}

func TestDeepRejectsInvalidDimensionRating(t *testing.T) {
	raw := `{"overall":"green","summary":"ok","dimensions":{
		"perspective":{"rating":"green"},"verification":{"rating":"green"},
		"balance":{"rating":"green"},"source":{"rating":"green"},"tone":{"rating":"orange"}}}`
	a := testAdapter(t, raw, nil)

	_, err := a.Deep(context.Background(), Input{Text: "claim"})
	assert.ErrorContains(t, err, "invalid rating")
}

func TestDeepDropsOutOfRangeSourceIndex(t *testing.T) {
	raw := `{"overall":"green","summary":"ok","dimensions":{
		"perspective":{"rating":"green"},"verification":{"rating":"green"},
		"balance":{"rating":"green"},"source":{"rating":"green"},"tone":{"rating":"green"}},
		"sources":[{"index":0,"relevant":true,"stance":"counter"},
			{"index":1,"relevant":true,"stance":"counter"},
			{"index":9,"relevant":true,"stance":"counter"}]}`
	a := testAdapter(t, raw, nil)

	j, err := a.Deep(context.Background(), Input{
		Text:          "claim",
		SearchResults: []models.SearchResult{{URL: "https://a.org"}},
	})
	require.NoError(t, err)
	require.Len(t, j.Sources, 1)
	assert.Equal(t, 1, j.Sources[0].Index)
}

func TestDeepCoercesInvalidStanceToNeutral(t *testing.T) {
	raw := `{"overall":"green","summary":"ok","dimensions":{
		"perspective":{"rating":"green"},"verification":{"rating":"green"},
		"balance":{"rating":"green"},"source":{"rating":"green"},"tone":{"rating":"green"}},
		"sources":[{"index":1,"relevant":true,"stance":"hostile"}]}`
	a := testAdapter(t, raw, nil)

	j, err := a.Deep(context.Background(), Input{
		Text:          "claim",
		SearchResults: []models.SearchResult{{URL: "https://a.org"}},
	})
	require.NoError(t, err)
	assert.Equal(t, models.StanceNeutral, j.Sources[0].Stance)
}

func TestDeepCoercesInvalidAgreementToUnclear(t *testing.T) {
	raw := `{"overall":"green","summary":"ok","dimensions":{
		"perspective":{"rating":"green"},"verification":{"rating":"green"},
		"balance":{"rating":"green"},"source":{"rating":"green"},"tone":{"rating":"green"}},
		"commentAnalysis":{"tone":"calm","lean":"none","agreement":"everyone loves it"}}`
	a := testAdapter(t, raw, nil)

	j, err := a.Deep(context.Background(), Input{Text: "claim"})
	require.NoError(t, err)
	require.NotNil(t, j.CommentAnalysis)
	assert.Equal(t, models.AgreementUnclear, j.CommentAnalysis.Agreement)
}

func TestDeepCapsCommentHighlights(t *testing.T) {
	raw := `{"overall":"green","summary":"ok","dimensions":{
		"perspective":{"rating":"green"},"verification":{"rating":"green"},
		"balance":{"rating":"green"},"source":{"rating":"green"},"tone":{"rating":"green"}},
		"commentAnalysis":{"tone":"calm","lean":"none","agreement":"mixed","highlights":[
			{"text":"one","sentiment":"negative"},
			{"text":"  ","sentiment":"negative"},
			{"text":"two","sentiment":"positive"},
			{"text":"three","sentiment":"neutral"},
			{"text":"four","sentiment":"negative"},
			{"text":"five","sentiment":"negative"}]}}`
	a := testAdapter(t, raw, nil)

	j, err := a.Deep(context.Background(), Input{Text: "claim"})
	require.NoError(t, err)
	require.NotNil(t, j.CommentAnalysis)
	require.Len(t, j.CommentAnalysis.Highlights, maxCommentHighlights)
	assert.Equal(t, "three", j.CommentAnalysis.Highlights[2].Text)
}

func TestClampConfidence(t *testing.T) {
	tests := []struct {
		name string
		in   interface{}
		want float64
	}{
		{"in range", 0.4, 0.4},
		{"above one", 1.7, 1.0},
		{"below zero", -0.2, 0.0},
		{"missing", nil, defaultConfidence},
		{"string", "high", defaultConfidence},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, clampConfidence(tt.in))
		})
	}
}

func TestPromptsCarryInputs(t *testing.T) {
	in := Input{
		Text:              "rates held steady",
		Author:            "reporter",
		VisualDescription: "a chart of interest rates",
		SearchResults:     []models.SearchResult{{Title: "Fed decision", URL: "https://news.org/fed", SourceDomain: "news.org"}},
		CommentExcerpts:   []string{"finally some sanity"},
	}

	system, user := buildDeepPrompt(in)
	assert.NotEmpty(t, system)
	assert.Contains(t, user, "rates held steady")
	assert.Contains(t, user, "reporter")
	assert.Contains(t, user, "a chart of interest rates")
	assert.Contains(t, user, "Fed decision")
	assert.Contains(t, user, "finally some sanity")

	_, quickUser := buildQuickPrompt(in)
	assert.Contains(t, quickUser, "rates held steady")
	assert.NotContains(t, quickUser, "finally some sanity", "quick tier sees text only")
}
