// Package pagination parses list query parameters and shapes the page
// metadata returned next to list payloads.
package pagination

import (
	"fmt"
	"net/url"
	"strconv"

	"gorm.io/gorm"
)

const (
	DefaultTake = 10
	MaxTake     = 50
)

// Options select one page. Cursor is the id of the last row of the previous
// page; lists are ordered newest first so the page starts at or below it.
type Options struct {
	Skip   int
	Take   int
	Cursor uint
	PageNo int
}

func Default() Options {
	return Options{Take: DefaultTake, PageNo: 1}
}

// FromQuery reads skip, take, cursor and pageNo. When skip is absent it is
// derived: 1 with a cursor (to step past the cursor row), else from pageNo.
func FromQuery(q url.Values) (Options, error) {
	opts := Default()
	var err error
	if opts.Take, err = intParam(q, "take", DefaultTake); err != nil {
		return opts, err
	}
	if opts.Take <= 0 {
		opts.Take = DefaultTake
	}
	if opts.Take > MaxTake {
		opts.Take = MaxTake
	}
	if opts.PageNo, err = intParam(q, "pageNo", 1); err != nil {
		return opts, err
	}
	if opts.PageNo < 1 {
		opts.PageNo = 1
	}
	cursor, err := intParam(q, "cursor", 0)
	if err != nil {
		return opts, err
	}
	if cursor > 0 {
		opts.Cursor = uint(cursor)
	}

	defaultSkip := (opts.PageNo - 1) * opts.Take
	if opts.Cursor > 0 {
		defaultSkip = 1
	}
	if opts.Skip, err = intParam(q, "skip", defaultSkip); err != nil {
		return opts, err
	}
	if opts.Skip < 0 {
		opts.Skip = 0
	}
	return opts, nil
}

func intParam(q url.Values, key string, def int) (int, error) {
	raw := q.Get(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("pagination: %s must be an integer", key)
	}
	return n, nil
}

// Scope applies the options to a query ordered by column descending.
func (o Options) Scope(column string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if o.Cursor > 0 {
			db = db.Where(column+" <= ?", o.Cursor)
		}
		if o.Skip > 0 {
			db = db.Offset(o.Skip)
		}
		if o.Take > 0 {
			db = db.Limit(o.Take)
		}
		return db
	}
}

type Next struct {
	PageNo int  `json:"pageNo"`
	Cursor uint `json:"cursor"`
}

// Page describes the page just served. TotalCount is the number of items on
// it, not in the whole list.
type Page struct {
	Next       Next `json:"next"`
	IsLastPage bool `json:"isLastPage"`
	TotalCount int  `json:"totalCount"`
}

// NewPage builds metadata for n items whose last id is lastID (0 when empty).
func NewPage(o Options, n int, lastID uint) Page {
	return Page{
		Next:       Next{PageNo: o.PageNo + 1, Cursor: lastID},
		IsLastPage: n < o.Take,
		TotalCount: n,
	}
}
