package book

import (
	"strings"
	"time"
)

const isoDate = "2006-01-02"

var dateLayouts = []string{
	isoDate,
	"January 2, 2006",
	"Jan 2, 2006",
	"January 2 2006",
	"2 January 2006",
	"2 Jan 2006",
	"January, 2006",
	"January 2006",
	"Jan 2006",
	"2006-01",
	"2006",
}

// NormalizePublishDate converts the date formats Open Library commonly uses
// into ISO dates. Dates without a day or month resolve to the first of the
// period. Unrecognized input is returned trimmed but otherwise unchanged.
func NormalizePublishDate(s string) string {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(isoDate)
		}
	}
	return s
}
