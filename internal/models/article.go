package models

import "time"

// Article is a knowledge-base entry maintained by administrators. Readers can
// rate an article as helpful or not; the counters are monotonic.
type Article struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Body       string    `json:"body"`
	Category   string    `json:"category"`
	Published  bool      `json:"published"`
	Views      int       `json:"views"`
	Helpful    int       `json:"helpful"`
	NotHelpful int       `json:"not_helpful"`
	AuthorID   string    `json:"author_id"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ArticleFilter narrows knowledge-base queries. Query performs a
// case-insensitive substring match over title and body.
type ArticleFilter struct {
	Query         string
	Category      string
	PublishedOnly bool
	Limit         int
	Offset        int
}
