package models

import "time"

// Feedback is a stored feedback record. Video and Audio hold storage-relative
// media references (e.g. "uploads/1718000000000-clip.mp4"), nil when absent.
type Feedback struct {
	ID        string
	UserID    string
	Rating    *float64
	Comment   *string
	Video     *string
	Audio     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// FeedbackView is what clients see: media references are replaced with
// absolute URLs.
type FeedbackView struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user"`
	Rating    *float64  `json:"rating"`
	Comment   *string   `json:"feedback"`
	Video     *string   `json:"video"`
	Audio     *string   `json:"audio"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FeedbackFields carries the client-supplied values of a record. On create
// they are stored as given. On update nil or zero rating and empty comment
// are ignored, and media references must exist.
type FeedbackFields struct {
	Rating  *float64
	Comment *string
	Video   *string
	Audio   *string
}

// MediaRefs returns the non-nil media references of f.
func (f *Feedback) MediaRefs() []string {
	var refs []string
	if f.Video != nil {
		refs = append(refs, *f.Video)
	}
	if f.Audio != nil {
		refs = append(refs, *f.Audio)
	}
	return refs
}
