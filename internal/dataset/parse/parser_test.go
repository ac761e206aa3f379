package parse

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "sdnscreen/pkg/domain-errors"
)

const header = "id,schema,name,birth_date,countries,addresses,sanctions,dataset\n"

func row(id, name string) string {
	return strings.Join([]string{id, "Person", name, "1960-01-01", "ru", "Moscow", "US SDN", "us_sdn"}, ",") + "\n"
}

func TestParse_HappyPath(t *testing.T) {
	data := header + row("Q1", "John Doe") + row("Q2", "Joanna Smith")

	p := New(0.5, nil)
	records, skipped, err := p.Parse([]byte(data))

	require.NoError(t, err)
	assert.Zero(t, skipped)
	require.Len(t, records, 2)
	assert.Equal(t, "Q1", records[0].ID)
	assert.Equal(t, "John Doe", records[0].Name)
	assert.Equal(t, "1960-01-01", records[0].BirthDate)
	assert.Equal(t, "us_sdn", records[0].Dataset)
	// Source order preserved.
	assert.Equal(t, "Q2", records[1].ID)
}

func TestParse_MissingRequiredColumnFails(t *testing.T) {
	data := "id,schema,birth_date,countries,addresses,sanctions,dataset\n"

	p := New(0.5, nil)
	_, _, err := p.Parse([]byte(data))

	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeParseFailed))
	assert.Contains(t, err.Error(), `"name"`)
}

func TestParse_EmptyInputFails(t *testing.T) {
	p := New(0.5, nil)
	_, _, err := p.Parse(nil)

	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeParseFailed))
}

func TestParse_RowsMissingIDOrNameAreSkipped(t *testing.T) {
	data := header + row("Q1", "John Doe") + row("", "Ghost Entry") + row("Q3", "")

	p := New(0.9, nil)
	records, skipped, err := p.Parse([]byte(data))

	require.NoError(t, err)
	assert.Equal(t, 2, skipped)
	require.Len(t, records, 1)
	assert.Equal(t, "Q1", records[0].ID)
}

func TestParse_SkipFractionAboveThresholdFails(t *testing.T) {
	data := header + row("Q1", "John Doe") + row("", "") + row("", "")

	p := New(0.5, nil)
	_, skipped, err := p.Parse([]byte(data))

	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeParseFailed))
	assert.Equal(t, 2, skipped)
}

func TestParse_ShortRowsCountAsSkipped(t *testing.T) {
	data := header + row("Q1", "John Doe") + "Q2,Person\n"

	p := New(0.9, nil)
	records, skipped, err := p.Parse([]byte(data))

	require.NoError(t, err)
	assert.Equal(t, 1, skipped)
	require.Len(t, records, 1)
}

func TestParse_HeaderOnlyYieldsEmptyDataset(t *testing.T) {
	p := New(0.5, nil)
	records, skipped, err := p.Parse([]byte(header))

	require.NoError(t, err)
	assert.Zero(t, skipped)
	assert.Empty(t, records)
}
