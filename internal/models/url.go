package models

import "time"

// URL represents a shortened URL record. The durable store is the source of
// truth for every field; cache entries derived from it are best-effort only.
type URL struct {
	// ID is the store-assigned unique identifier of the record.
	ID int64
	// OriginalURL is the full-length URL that the short code points to.
	OriginalURL string
	// ShortCode is the fixed-length code associated with the original URL.
	// It is immutable once the record is created.
	ShortCode string
	// ClickCount is the durable click total. It only grows when the click
	// accounting flushes a batch, so it lags the true total by the amount
	// still sitting in the volatile counter.
	ClickCount int64
	// CreatedAt is the timestamp indicating when the record was created.
	CreatedAt time.Time
	// ExpiresAt is an optional expiration timestamp. A nil value means the
	// short code never expires.
	ExpiresAt *time.Time
}

// Expired reports whether the record's expiration timestamp has passed.
func (u *URL) Expired() bool {
	return u.ExpiresAt != nil && u.ExpiresAt.Before(time.Now())
}

// URLStats is a URL record together with the click-event-derived total.
type URLStats struct {
	URL
	// TotalClicks is the number of click event rows recorded for the URL.
	// Event rows are written on every redirect, while ClickCount is only
	// updated on flush, so the two may legitimately differ.
	TotalClicks int64
}

// ClickMeta carries the optional request metadata captured on a redirect.
// Empty fields are stored as NULL.
type ClickMeta struct {
	Referrer  string
	UserAgent string
	IPAddress string
}
