package model

import "time"

// LeakRecord is the unit of harvested intelligence: one published leak
// parsed out of a scraped page.
//
// Identity: (Company, SourceURL) must never be stored twice; where a
// target association exists, (TargetID, Company, SourceURL) is unique
// too. Re-ingestion of an already-seen record is a silent no-op.
// Records are immutable once stored.
type LeakRecord struct {
	// ID is the store-assigned identifier. Zero until stored.
	ID int64 `json:"id"`

	// TargetID is the target this record was harvested from.
	TargetID int64 `json:"target_id"`

	// Company is the victim / subject label announced by the source.
	Company string `json:"company"`

	// Country is the subject's country, when the source publishes one.
	Country string `json:"country,omitempty"`

	// FoundAt is the discovery timestamp. Scrapers set it from the
	// source's own listing date when available, otherwise now.
	FoundAt time.Time `json:"found_at"`

	// SourceURL is the page or link the record was parsed from.
	SourceURL string `json:"source_url"`

	// Views is the source's view counter, when published.
	Views *int `json:"views,omitempty"`

	// PublicationDate is the date the leak was (or will be) published.
	PublicationDate *time.Time `json:"publication_date,omitempty"`

	// AmountOfData is the source's free-form size string (e.g. "120GB").
	AmountOfData string `json:"amount_of_data,omitempty"`

	// Information is the free-text description of the leak.
	Information string `json:"information,omitempty"`

	// Comment is the source's comment block, when present.
	Comment string `json:"comment,omitempty"`

	// DownloadLinks are the published download URLs or magnet links.
	DownloadLinks []string `json:"download_links,omitempty"`

	// RarPassword is the archive password, when published.
	RarPassword string `json:"rar_password,omitempty"`
}
