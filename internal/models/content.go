package models

// MediaDescriptors carries references to media attached to a piece of content.
// The extraction layer supplies URLs only; no bytes cross the wire contract.
type MediaDescriptors struct {
	HasVideo     bool     `json:"hasVideo,omitempty"`
	ThumbnailURL string   `json:"thumbnailUrl,omitempty"`
	ImageURLs    []string `json:"imageUrls,omitempty"`
}

// Present reports whether there is anything a vision adapter could look at.
func (m MediaDescriptors) Present() bool {
	return m.ThumbnailURL != "" || len(m.ImageURLs) > 0
}

// ContentRecord is the client-owned, per-view-session record of a detected
// content item. It is mutated in place as tiers resolve and discarded when the
// view session ends; it is never persisted.
type ContentRecord struct {
	ID              string
	Text            string
	Author          string
	Media           MediaDescriptors
	CommentExcerpts []string

	QuickResult *QuickVerdict
	DeepResult  *DeepVerdict
	DeepPending bool
}

// SearchResult is one candidate returned by the corroboration-search adapter,
// before the judgment stage has decided relevance or stance.
type SearchResult struct {
	Title        string  `json:"title"`
	URL          string  `json:"url"`
	SourceDomain string  `json:"sourceDomain"`
	Snippet      string  `json:"snippet,omitempty"`
	Score        float64 `json:"score,omitempty"`
}
