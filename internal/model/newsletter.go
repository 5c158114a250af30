package model

// NewsletterContent carries both renderings of a newsletter body.
type NewsletterContent struct {
	HTML string `json:"html" validate:"required"`
	Text string `json:"text" validate:"required"`
}

// NewsletterRequest is the body of a publish request.
type NewsletterRequest struct {
	Title   string            `json:"title" validate:"required"`
	Content NewsletterContent `json:"content"`
}
