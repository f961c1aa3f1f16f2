package helpers

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spektr-org/inspekt/schema"
)

// ============================================================================
// CSV HELPER TESTS
// ============================================================================

var mixedCSV = []byte(`date,inspection_step,value,target,upper_spec,lower_spec
2024-03-01,weld,50.2,50,70,30
2024-03-01,paint,12.1,,,
2024-03-02,weld,oops,50,70,30
2024-03-02,,49.1,50,70,30
not-a-date,weld,49,50,70,30
2024-03-03,weld,49.5,50,30,70
2024-03-03,weld,49.7,50,70,
2024-03-04,weld,NaN,50,70,30
`)

func TestParseCSVKeepsGoodRowsAndReportsBadOnes(t *testing.T) {
	result, err := ParseCSV(mixedCSV, schema.DefaultMapping())
	require.NoError(t, err)

	assert.Equal(t, 8, result.Rows)
	require.Len(t, result.Records, 4)
	assert.Equal(t, 4, result.Rejected())

	first := result.Records[0]
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), first.Timestamp)
	assert.Equal(t, "weld", first.Step)
	assert.Equal(t, 50.2, first.Value)
	require.NotNil(t, first.Spec)
	assert.Equal(t, 70.0, first.Spec.Upper)

	assert.Nil(t, result.Records[1].Spec, "blank spec cells")
	assert.Nil(t, result.Records[3].Spec, "incomplete spec cells")

	problems := issueProblems(result)
	assert.Equal(t, `invalid value: "oops" is not a number`, problems[3])
	assert.Equal(t, "missing inspection step", problems[4])
	assert.Equal(t, `invalid date "not-a-date"`, problems[5])
	assert.Equal(t, "lower spec 70 is above upper spec 30", problems[6])
	assert.Equal(t, "incomplete spec limits ignored", problems[7])
	assert.Equal(t, "non-finite value", problems[8])
}

func TestParseCSVStrictSpec(t *testing.T) {
	result, err := ParseCSV(mixedCSV, schema.DefaultMapping(), WithStrictSpec(true))
	require.NoError(t, err)
	assert.Len(t, result.Records, 3)
}

func TestParseCSVShortAndMalformedRows(t *testing.T) {
	data := []byte("date,inspection_step,value\n2024-03-01,weld\n2024-03-01,we\"ld,1\n2024-03-02,weld,3\n")
	result, err := ParseCSV(data, schema.DefaultMapping().Merge(schema.Mapping{}), WithStrictSpec(false))
	require.Error(t, err, "default mapping expects spec columns")
	assert.Nil(t, result)

	m := schema.Mapping{Date: "date", Step: "inspection_step", Value: "value"}
	result, err = ParseCSV(data, m)
	require.NoError(t, err)

	assert.Equal(t, 3, result.Rows)
	require.Len(t, result.Records, 1)
	assert.Equal(t, 3.0, result.Records[0].Value)

	problems := issueProblems(result)
	assert.Equal(t, "missing value", problems[1])
	assert.True(t, strings.HasPrefix(problems[2], "malformed CSV row"), problems[2])
}

func TestParseCSVHeaderErrors(t *testing.T) {
	_, err := ParseCSV([]byte(""), schema.DefaultMapping())
	assert.Error(t, err)

	_, err = ParseCSV([]byte("when,where,what\n"), schema.DefaultMapping())
	assert.True(t, errors.Is(err, schema.ErrUnknownColumn))
}

func TestParseCSVExplicitLayout(t *testing.T) {
	data := []byte("Datum,Station,Messwert\n15.03.2024,weld,1.5\n")
	m := schema.Mapping{Date: "Datum", Step: "Station", Value: "Messwert", DateFormat: "02.01.2006"}

	result, err := ParseCSV(data, m)
	require.NoError(t, err)
	require.Len(t, result.Records, 1)
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), result.Records[0].Timestamp)
}

func TestParseCSVAuto(t *testing.T) {
	data := []byte(`Measured At,Station,Reading,Nominal,USL,LSL
2024-03-01 08:00:00,weld,50.2,50,70,30
2024-03-01 09:00:00,paint,12.1,12,13,11
2024-03-02 08:00:00,weld,49.8,50,70,30
`)
	result, discovery, err := ParseCSVAuto(data)
	require.NoError(t, err)

	assert.Equal(t, "Station", discovery.Mapping.Step)
	require.Len(t, result.Records, 3)
	assert.Empty(t, result.Issues)

	ds := result.Dataset()
	assert.Equal(t, []string{"weld", "paint"}, ds.Steps())
	assert.Equal(t, 12.0, ds.Step("paint").At(0).Spec.Target)
}

func TestParseCSVLogsSummary(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	_, err := ParseCSV(mixedCSV, schema.DefaultMapping(), WithLogger(zap.New(core)))
	require.NoError(t, err)

	loaded := logs.FilterMessage("records loaded").All()
	require.Len(t, loaded, 1)
	fields := loaded[0].ContextMap()
	assert.Equal(t, int64(8), fields["rows"])
	assert.Equal(t, int64(4), fields["rejected"])
	assert.Equal(t, 6, logs.FilterMessage("row issue").Len())
}

func TestCellConversion(t *testing.T) {
	f, ok, err := cellFloat(int64(7))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 7.0, f)

	_, ok, err = cellFloat([]byte(" NULL "))
	require.NoError(t, err)
	assert.False(t, ok)

	f, ok, _ = cellFloat("+Inf")
	assert.True(t, ok)
	assert.True(t, math.IsInf(f, 1))

	ts, ok, err := cellTime(int64(1709280000), "")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC), ts)

	assert.Equal(t, "1.5", cellText(1.5))
}

// issueProblems indexes issue text by row number.
func issueProblems(r *LoadResult) map[int]string {
	out := make(map[int]string, len(r.Issues))
	for _, issue := range r.Issues {
		out[issue.Row] = issue.Problem
	}
	return out
}
