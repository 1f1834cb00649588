package model

// Regulation is an immutable catalog entry describing one regulatory update.
type Regulation struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Jurisdiction  string   `json:"jurisdiction"`
	DatePublished string   `json:"date_published"`
	Summary       string   `json:"summary"`
	Keywords      []string `json:"keywords"`
}
