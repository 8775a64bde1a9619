package dbModel

import "time"

type User struct {
	UserID              int64   `db:"user_id"`
	ChatID              int64   `db:"chat_id"`
	DefaultCollectionID *string `db:"default_collection_id"`
}

type ReportLink struct {
	ReportID     int64     `db:"report_id"`
	UserID       int64     `db:"user_id"`
	CollectionID string    `db:"collection_id"`
	DownloadLink string    `db:"download_link"`
	CreatedAt    time.Time `db:"dt_create"`
}
