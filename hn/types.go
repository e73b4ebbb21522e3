package hn

// Item represents a Hacker News item (story, comment, etc.)
type Item struct {
	ID          int    `json:"id"`
	Type        string `json:"type"`
	By          string `json:"by,omitempty"`
	Time        int64  `json:"time"`
	Text        string `json:"text,omitempty"`
	URL         string `json:"url,omitempty"`
	Title       string `json:"title,omitempty"`
	Score       int    `json:"score,omitempty"`
	Descendants int    `json:"descendants,omitempty"`
	Kids        []int  `json:"kids,omitempty"`
	Parent      int    `json:"parent,omitempty"`
	Dead        bool   `json:"dead,omitempty"`
	Deleted     bool   `json:"deleted,omitempty"`
}

// IsStory reports whether the item is a story. Very old items sometimes
// omit the type field; anything carrying a title is treated as a story.
func (i *Item) IsStory() bool {
	return i.Type == "story" || (i.Type == "" && i.Title != "")
}

// IsComment reports whether the item is a comment.
func (i *Item) IsComment() bool {
	return i.Type == "comment"
}
