// internal/app/report_composer.go
package app

import (
	"bytes"
	"fmt"
	"html/template"

	"procurement_digest_bot/internal/domain/notice"
)

// DigestSubject is the subject line of every digest email.
const DigestSubject = "Daily procurement notice digest"

// EmptyDigestText fills the placeholder row when there are no notices.
const EmptyDigestText = "No new notices in this period."

// Report is a composed digest message.
type Report struct {
	Subject string
	HTML    string
}

var digestTemplate = template.Must(template.New("digest").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; font-size: 14px;">
<h2>{{.Heading}}</h2>
{{if gt .PartCount 1}}<p>Part {{.PartIndex}} of {{.PartCount}}</p>
{{end}}<table border="1" cellpadding="6" cellspacing="0" style="border-collapse: collapse;">
<thead><tr><th>Title</th><th>Published</th><th>Buyer</th><th>Link</th></tr></thead>
<tbody>
{{range .Notices}}<tr><td>{{.Title}}</td><td>{{.PublicationDate}}</td><td>{{.Buyer}}</td><td>{{if .Link}}<a href="{{.Link}}">{{.Link}}</a>{{end}}</td></tr>
{{else}}<tr><td colspan="4">{{.EmptyText}}</td></tr>
{{end}}</tbody>
</table>
{{if .ImageURL}}<div style="margin-top: 16px;"><img src="{{.ImageURL}}"></div>
{{end}}</body>
</html>
`))

type digestView struct {
	Heading   string
	PartIndex int
	PartCount int
	Notices   []notice.Record
	EmptyText string
	ImageURL  string
}

// ReportComposer turns notices and a map image URL into a digest message.
// It performs no I/O.
type ReportComposer struct{}

func NewReportComposer() *ReportComposer {
	return &ReportComposer{}
}

// Compose renders one part of the digest. partIndex is 1-based. An empty
// imageURL omits the image block; an empty notice list renders one placeholder row.
func (c *ReportComposer) Compose(notices []notice.Record, imageURL string, partIndex, partCount int) (Report, error) {
	if partCount < 1 {
		partCount = 1
	}
	if partIndex < 1 || partIndex > partCount {
		return Report{}, fmt.Errorf("part index %d out of range 1..%d", partIndex, partCount)
	}

	subject := DigestSubject
	if partCount > 1 {
		subject = fmt.Sprintf("%s (%d/%d)", DigestSubject, partIndex, partCount)
	}

	view := digestView{
		Heading:   fmt.Sprintf("%d new procurement notice(s)", len(notices)),
		PartIndex: partIndex,
		PartCount: partCount,
		Notices:   notices,
		EmptyText: EmptyDigestText,
		ImageURL:  imageURL,
	}
	var buf bytes.Buffer
	if err := digestTemplate.Execute(&buf, view); err != nil {
		return Report{}, fmt.Errorf("failed to render digest template: %w", err)
	}
	return Report{Subject: subject, HTML: buf.String()}, nil
}

// splitParts chunks notices into parts of at most maxRows. maxRows <= 0 means a single part.
func splitParts(notices []notice.Record, maxRows int) [][]notice.Record {
	if maxRows <= 0 || len(notices) <= maxRows {
		return [][]notice.Record{notices}
	}
	parts := make([][]notice.Record, 0, (len(notices)+maxRows-1)/maxRows)
	for start := 0; start < len(notices); start += maxRows {
		end := start + maxRows
		if end > len(notices) {
			end = len(notices)
		}
		parts = append(parts, notices[start:end])
	}
	return parts
}
