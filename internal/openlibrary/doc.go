package openlibrary

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/lepinkainen/shelfkeeper/internal/isbn"
)

// SearchFields is the field list requested from the search endpoint.
const SearchFields = "key,cover_i,edition_key,subject,isbn,publisher,first_publish_year"

// Doc is the subset of a lookup document used for enrichment.
type Doc struct {
	Key              string   `json:"key,omitempty"`
	CoverID          int64    `json:"cover_i,omitempty"`
	EditionKeys      []string `json:"edition_key,omitempty"`
	Subjects         []string `json:"subject,omitempty"`
	ISBNs            []string `json:"isbn,omitempty"`
	Publishers       []string `json:"publisher,omitempty"`
	FirstPublishYear int      `json:"first_publish_year,omitempty"`
}

// SubjectString joins the first n subjects with ", ".
func (d *Doc) SubjectString(n int) string {
	subs := d.Subjects
	if n > 0 && len(subs) > n {
		subs = subs[:n]
	}
	return strings.Join(subs, ", ")
}

// EditionKey returns the first edition key, if any.
func (d *Doc) EditionKey() string {
	if len(d.EditionKeys) == 0 {
		return ""
	}
	return d.EditionKeys[0]
}

// Publisher returns the first publisher, if any.
func (d *Doc) Publisher() string {
	for _, p := range d.Publishers {
		if p = strings.TrimSpace(p); p != "" {
			return p
		}
	}
	return ""
}

// Year returns FirstPublishYear as a string, or "" when unknown.
func (d *Doc) Year() string {
	if d.FirstPublishYear <= 0 {
		return ""
	}
	return strconv.Itoa(d.FirstPublishYear)
}

// AlternateISBNs returns up to n of the document's ISBNs whose digits form
// a 10 or 13 digit value.
func (d *Doc) AlternateISBNs(n int) []string {
	var out []string
	for _, raw := range d.ISBNs {
		if len(out) == n {
			break
		}
		digits := isbn.Digits(raw)
		if len(digits) == 10 || len(digits) == 13 {
			out = append(out, digits)
		}
	}
	return out
}

// BestISBN picks the first ISBN-13 among the first 15 ISBNs, else the first ISBN-10.
func (d *Doc) BestISBN() string {
	head := d.ISBNs
	if len(head) > 15 {
		head = head[:15]
	}
	first10 := ""
	for _, raw := range head {
		if v := isbn.As13(raw); v != "" {
			return v
		}
		if first10 == "" {
			first10 = isbn.As10(raw)
		}
	}
	return first10
}

type searchResponse struct {
	Docs []Doc `json:"docs"`
}

// namedList decodes a list of either plain strings or {"name": ...} objects.
type namedList []string

func (l *namedList) UnmarshalJSON(data []byte) error {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil
	}
	for _, item := range items {
		var s string
		if json.Unmarshal(item, &s) == nil {
			if s = strings.TrimSpace(s); s != "" {
				*l = append(*l, s)
			}
			continue
		}
		var named struct {
			Name string `json:"name"`
		}
		if json.Unmarshal(item, &named) == nil {
			if n := strings.TrimSpace(named.Name); n != "" {
				*l = append(*l, n)
			}
		}
	}
	return nil
}

// bookRecord is one entry of the books API (jscmd=data) response.
type bookRecord struct {
	Key         string    `json:"key"`
	Subjects    namedList `json:"subjects"`
	Publishers  namedList `json:"publishers"`
	PublishDate string    `json:"publish_date"`
	Identifiers struct {
		ISBN13 []string `json:"isbn_13"`
		ISBN10 []string `json:"isbn_10"`
	} `json:"identifiers"`
}

var yearPattern = regexp.MustCompile(`\b(\d{4})\b`)

func (r *bookRecord) doc() *Doc {
	d := &Doc{Key: r.Key}
	if len(r.Subjects) > 0 {
		d.Subjects = []string(r.Subjects)
	}
	if len(r.Publishers) > 0 {
		d.Publishers = []string{r.Publishers[0]}
	}
	if m := yearPattern.FindStringSubmatch(r.PublishDate); m != nil {
		d.FirstPublishYear, _ = strconv.Atoi(m[1])
	}
	for _, v := range append(append([]string{}, r.Identifiers.ISBN13...), r.Identifiers.ISBN10...) {
		if v = strings.TrimSpace(v); v != "" {
			d.ISBNs = append(d.ISBNs, v)
		}
	}
	return d
}
