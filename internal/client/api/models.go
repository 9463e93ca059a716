package api

import "time"

type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Feedback mirrors the server's record representation. Video and Audio are
// absolute URLs.
type Feedback struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user"`
	Rating    *float64  `json:"rating"`
	Comment   *string   `json:"feedback"`
	Video     *string   `json:"video"`
	Audio     *string   `json:"audio"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FeedbackInput is the form sent on upload and update. Empty paths mean no
// file; a nil Rating or Comment leaves the field out.
type FeedbackInput struct {
	Rating    *float64
	Comment   *string
	VideoPath string
	AudioPath string
}
