package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRecords_HeaderAliasesAndCleaning(t *testing.T) {
	raw := "\ufeffProduct Name, Description ,PRICE,image_url,Gallery,In-Stock,unknown\n" +
		`"Sky Blue ", "Matte emulsion",12.50,"""img/sky.png""",a.png; b.png,TRUE,x` + "\n"

	set, err := ParseRecords(raw)
	require.NoError(t, err)
	require.Equal(t, 1, set.Len())
	assert.Equal(t, []string{ColumnName, ColumnDescription, ColumnPrice, ColumnImageURL, ColumnGalleryURLs, ColumnInStock}, set.Columns())

	rec := set.At(0)
	assert.Equal(t, 1, rec.Row)
	assert.Equal(t, "Sky Blue", rec.Value(ColumnName))
	assert.Equal(t, "Matte emulsion", rec.Value(ColumnDescription))
	assert.Equal(t, "12.50", rec.Value(ColumnPrice))
	assert.Equal(t, "img/sky.png", rec.Value(ColumnImageURL))
	assert.Equal(t, "a.png; b.png", rec.Value(ColumnGalleryURLs))
	assert.Equal(t, "TRUE", rec.Value(ColumnInStock))
	_, ok := rec.Get("unknown")
	assert.False(t, ok)
}

func TestParseRecords_RowNumbersFollowPhysicalLines(t *testing.T) {
	raw := "\n\nname,description,price\nA,d,1\n\n , , \nB,d,2\n"

	set, err := ParseRecords(raw)
	require.NoError(t, err)
	require.Equal(t, 2, set.Len())
	assert.Equal(t, 1, set.At(0).Row)
	assert.Equal(t, "A", set.At(0).Value(ColumnName))
	assert.Equal(t, 4, set.At(1).Row)
	assert.Equal(t, "B", set.At(1).Value(ColumnName))
}

func TestParseRecords_UnterminatedQuoteKeepsLaterRows(t *testing.T) {
	raw := "name,description,price\n" +
		"Paint 1,\"Matte,1\n" +
		"Paint 2,Matte,2\n" +
		"Paint 3,\"Gloss\",3\n" +
		"Paint 4,Matte,4\n"

	set, err := ParseRecords(raw)
	require.NoError(t, err)
	require.Equal(t, 4, set.Len())

	bad := set.At(0)
	assert.Equal(t, 1, bad.Row)
	assert.Contains(t, bad.ParseErr, "malformed row")
	assert.Empty(t, bad.Fields)

	for i, want := range []string{"Paint 2", "Paint 3", "Paint 4"} {
		rec := set.At(i + 1)
		assert.Equal(t, i+2, rec.Row)
		assert.Empty(t, rec.ParseErr)
		assert.Equal(t, want, rec.Value(ColumnName))
	}
	assert.Equal(t, "Gloss", set.At(2).Value(ColumnDescription))
}

func TestParseRecords_UnterminatedQuoteOnLastRow(t *testing.T) {
	set, err := ParseRecords("name,description,price\nA,d,1\nB,\"d,2")
	require.NoError(t, err)
	require.Equal(t, 2, set.Len())
	assert.Empty(t, set.At(0).ParseErr)
	assert.Equal(t, 2, set.At(1).Row)
	assert.NotEmpty(t, set.At(1).ParseErr)
}

func TestParseRecords_BareQuoteTolerated(t *testing.T) {
	set, err := ParseRecords("name,description,price\n5\" Brush,Angled 5\" brush,7\nB,d,2\n")
	require.NoError(t, err)
	require.Equal(t, 2, set.Len())
	rec := set.At(0)
	assert.Empty(t, rec.ParseErr)
	assert.Equal(t, `5" Brush`, rec.Value(ColumnName))
	assert.Equal(t, `Angled 5" brush`, rec.Value(ColumnDescription))
	assert.Equal(t, 2, set.At(1).Row)
}

func TestParseRecords_QuotedMultilineField(t *testing.T) {
	set, err := ParseRecords("name,description,price\nA,\"two\nlines\",1\nB,d,2\n")
	require.NoError(t, err)
	require.Equal(t, 2, set.Len())
	assert.Equal(t, "two\nlines", set.At(0).Value(ColumnDescription))
	assert.Equal(t, 1, set.At(0).Row)
	assert.Equal(t, 3, set.At(1).Row)
}

func TestPhysicalLine(t *testing.T) {
	text, end := physicalLine("a\nbb\nccc", 2)
	assert.Equal(t, "bb", text)
	assert.Equal(t, 5, end)

	text, end = physicalLine("a\nbb\nccc", 3)
	assert.Equal(t, "ccc", text)
	assert.Equal(t, 9, end)
}

func TestParseRecords_ShortRowsAndDuplicateColumns(t *testing.T) {
	raw := "name,description,price,name\nA,d\nB,d,3,Ignored\n"

	set, err := ParseRecords(raw)
	require.NoError(t, err)
	require.Equal(t, 2, set.Len())

	first := set.At(0)
	assert.Equal(t, "A", first.Value(ColumnName))
	_, ok := first.Get(ColumnPrice)
	assert.False(t, ok)

	assert.Equal(t, "B", set.At(1).Value(ColumnName))
}

func TestParseRecords_NoRows(t *testing.T) {
	for _, raw := range []string{"", "\n\n", "name,description,price\n", "name,price\n\n ,\n"} {
		_, err := ParseRecords(raw)
		assert.ErrorIs(t, err, ErrNoRecords, "%q", raw)
	}
}

func TestRecordSet_IterationIsRepeatableAndIsolated(t *testing.T) {
	set, err := ParseRecords("name,description,price\nA,d,1\nB,d,2\n")
	require.NoError(t, err)

	var names []string
	for i, rec := range set.All() {
		rec.Fields[ColumnName] = "mutated"
		names = append(names, set.At(i).Value(ColumnName))
	}
	assert.Equal(t, []string{"A", "B"}, names)

	count := 0
	for range set.All() {
		count++
	}
	assert.Equal(t, 2, count)
}

func TestTemplateCSV(t *testing.T) {
	tpl := TemplateCSV()
	assert.True(t, strings.HasPrefix(tpl, "name,description,price,"))
	assert.True(t, strings.HasSuffix(tpl, "\n"))

	set, err := ParseRecords(tpl + "A,d,1\n")
	require.NoError(t, err)
	assert.Equal(t, TemplateColumns, set.Columns())
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, splitList(` a ;"b";; c `))
	assert.Nil(t, splitList(""))
}
