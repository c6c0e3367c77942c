// internal/domain/notice/record.go
package notice

// Record is a single procurement notice as returned by the notice API.
// Link is optional; an empty Link means the notice has no public page.
type Record struct {
	Title           string `json:"title"`
	PublicationDate string `json:"publicationDate"` // e.g., 2024-05-01, rendered as-is
	Buyer           string `json:"buyer"`
	Link            string `json:"link,omitempty"`
}

// Key identifies a notice: the link when present, otherwise the title.
func (r Record) Key() string {
	if r.Link != "" {
		return r.Link
	}
	return r.Title
}
