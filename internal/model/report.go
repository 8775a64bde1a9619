package model

import "time"

// ReportLink is a previously exported report, kept so users can re-download
// without regenerating.
type ReportLink struct {
	CollectionID string
	DownloadLink string
	CreatedAt    time.Time
}
