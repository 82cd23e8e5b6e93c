package services

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"

	"github.com/Baruah123/Pinnacle-Paints-Client-sub000/models"
)

// ErrNoRecords is returned when the payload has a header but no data rows.
var ErrNoRecords = errors.New("import contains no product rows")

// Canonical column names of the import template.
const (
	ColumnID            = "id"
	ColumnName          = "name"
	ColumnSKU           = "sku"
	ColumnDescription   = "description"
	ColumnPrice         = "price"
	ColumnOriginalPrice = "originalPrice"
	ColumnCategory      = "category"
	ColumnFinish        = "finish"
	ColumnCoverage      = "coverage"
	ColumnFeatures      = "features"
	ColumnImageURL      = "imageUrl"
	ColumnGalleryURLs   = "galleryUrls"
	ColumnInStock       = "inStock"
	ColumnEcoFriendly   = "isEcoFriendly"
	ColumnIsNew         = "isNew"
	ColumnIsPopular     = "isPopular"
	ColumnRating        = "rating"
	ColumnReviews       = "reviews"
	ColumnSpecs         = "specs"
)

// TemplateColumns is the header of the downloadable import template.
var TemplateColumns = []string{
	ColumnName, ColumnDescription, ColumnPrice, ColumnOriginalPrice, ColumnCategory,
	ColumnFinish, ColumnCoverage, ColumnFeatures, ColumnImageURL, ColumnGalleryURLs,
	ColumnInStock, ColumnEcoFriendly, ColumnIsNew, ColumnIsPopular,
}

// headerAliases maps a normalized header (lowercase, no separators) to its
// canonical column.
var headerAliases = map[string]string{
	"id":            ColumnID,
	"name":          ColumnName,
	"productname":   ColumnName,
	"sku":           ColumnSKU,
	"description":   ColumnDescription,
	"price":         ColumnPrice,
	"originalprice": ColumnOriginalPrice,
	"category":      ColumnCategory,
	"finish":        ColumnFinish,
	"coverage":      ColumnCoverage,
	"features":      ColumnFeatures,
	"imageurl":      ColumnImageURL,
	"image":         ColumnImageURL,
	"galleryurls":   ColumnGalleryURLs,
	"gallery":       ColumnGalleryURLs,
	"instock":       ColumnInStock,
	"isecofriendly": ColumnEcoFriendly,
	"ecofriendly":   ColumnEcoFriendly,
	"isnew":         ColumnIsNew,
	"ispopular":     ColumnIsPopular,
	"rating":        ColumnRating,
	"reviews":       ColumnReviews,
	"specs":         ColumnSpecs,
}

// RecordSet is the parsed payload. It holds no external resource and can be
// iterated any number of times.
type RecordSet struct {
	columns []string
	records []models.CandidateRecord
}

// Len returns the number of data rows.
func (s RecordSet) Len() int {
	return len(s.records)
}

// At returns a copy of the i-th record.
func (s RecordSet) At(i int) models.CandidateRecord {
	return s.records[i].Clone()
}

// Columns returns the canonical columns recognised in the header, in header order.
func (s RecordSet) Columns() []string {
	return append([]string(nil), s.columns...)
}

// All yields (index, record) pairs in source order.
func (s RecordSet) All() iter.Seq2[int, models.CandidateRecord] {
	return func(yield func(int, models.CandidateRecord) bool) {
		for i := range s.records {
			if !yield(i, s.records[i].Clone()) {
				return
			}
		}
	}
}

// ParseRecords reads a header line followed by product rows. Values are
// trimmed and a single stray layer of double quotes is removed. A record's row
// number is its physical line counted from the header, so blank lines are
// skipped but still counted. A row the reader cannot decode is kept with
// ParseErr set so the importer can report it against its row.
func ParseRecords(raw string) (RecordSet, error) {
	sc := &rowScanner{raw: strings.TrimPrefix(raw, "\ufeff"), line: 1}

	var (
		header     []string
		headerLine int
	)
	for header == nil {
		row, line, err := sc.next()
		if err == io.EOF {
			return RecordSet{}, ErrNoRecords
		}
		if err != nil {
			return RecordSet{}, fmt.Errorf("failed to read header: %w", err)
		}
		if !blankRow(row) {
			header, headerLine = row, line
		}
	}

	index := make([]string, len(header))
	var columns []string
	seen := make(map[string]bool)
	for i, h := range header {
		canonical, ok := headerAliases[normalizeHeader(h)]
		if !ok || seen[canonical] {
			continue
		}
		seen[canonical] = true
		index[i] = canonical
		columns = append(columns, canonical)
	}

	set := RecordSet{columns: columns}
	for {
		row, line, err := sc.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if !errors.As(err, &perr) {
				return RecordSet{}, fmt.Errorf("failed to read rows: %w", err)
			}
			set.records = append(set.records, models.CandidateRecord{
				Row:      line - headerLine,
				Fields:   map[string]string{},
				ParseErr: fmt.Sprintf("malformed row: %v", perr.Err),
			})
			continue
		}
		if blankRow(row) {
			continue
		}

		fields := make(map[string]string, len(columns))
		for i, v := range row {
			if i >= len(index) || index[i] == "" {
				continue
			}
			fields[index[i]] = cleanValue(v)
		}
		set.records = append(set.records, models.CandidateRecord{Row: line - headerLine, Fields: fields})
	}

	if len(set.records) == 0 {
		return RecordSet{}, ErrNoRecords
	}
	return set, nil
}

// rowScanner reads one CSV record at a time with strict quoting so an
// unterminated quote cannot swallow the rest of the file. After a quoting
// error it resumes at the physical line following the one the broken record
// started on.
type rowScanner struct {
	raw    string
	offset int
	line   int // physical line at offset, 1-based
}

// next returns the next record and the physical line it starts on.
func (s *rowScanner) next() ([]string, int, error) {
	if s.offset >= len(s.raw) {
		return nil, 0, io.EOF
	}
	rest := s.raw[s.offset:]

	r := newCSVReader(rest, false)
	row, err := r.Read()
	if err == nil {
		start, _ := r.FieldPos(0)
		line := s.line + start - 1
		s.advance(rest[:r.InputOffset()])
		return row, line, nil
	}
	if err == io.EOF {
		s.offset = len(s.raw)
		return nil, 0, io.EOF
	}

	var perr *csv.ParseError
	if !errors.As(err, &perr) {
		return nil, 0, err
	}
	start := s.line + perr.StartLine - 1
	text, end := physicalLine(rest, perr.StartLine)
	s.advance(rest[:end])

	// a stray quote inside an unquoted field is tolerated within its own line
	if errors.Is(perr.Err, csv.ErrBareQuote) && perr.StartLine == perr.Line {
		if row, lerr := newCSVReader(text, true).Read(); lerr == nil {
			return row, start, nil
		}
	}
	return nil, start, perr
}

func (s *rowScanner) advance(consumed string) {
	s.offset += len(consumed)
	s.line += strings.Count(consumed, "\n")
}

func newCSVReader(raw string, lazy bool) *csv.Reader {
	r := csv.NewReader(strings.NewReader(raw))
	r.LazyQuotes = lazy
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	return r
}

// physicalLine returns the n-th line of s (1-based, without its newline) and
// the offset just past it.
func physicalLine(s string, n int) (string, int) {
	pos := 0
	for i := 1; ; i++ {
		nl := strings.IndexByte(s[pos:], '\n')
		if nl < 0 {
			return s[pos:], len(s)
		}
		if i == n {
			return s[pos : pos+nl], pos + nl + 1
		}
		pos += nl + 1
	}
}

func normalizeHeader(h string) string {
	h = strings.ToLower(cleanValue(h))
	return strings.NewReplacer("_", "", "-", "", " ", "").Replace(h)
}

func cleanValue(v string) string {
	v = strings.TrimSpace(v)
	v = strings.TrimPrefix(v, `"`)
	v = strings.TrimSuffix(v, `"`)
	return strings.TrimSpace(v)
}

func blankRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// TemplateCSV returns the import template header line.
func TemplateCSV() string {
	return strings.Join(TemplateColumns, ",") + "\n"
}

// splitList splits a semicolon separated cell.
func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ";") {
		if p := cleanValue(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
