package cmd

import (
	"testing"
	"time"

	"github.com/samply/ordersetctl/data"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReviewFile(t *testing.T) {
	dir := t.TempDir()
	filename := writeDefinition(t, dir, "hiv.yaml", hivDefinition)
	at := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, reviewFile(filename, &data.User{Username: "admin", Name: "Super User"}, at))

	definition, err := data.ReadDefinitionFile(filename)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01", definition.DateReviewed)
	assert.Equal(t, "Super User", definition.ReviewedBy.Name)
	assert.Equal(t, "admin", definition.ReviewedBy.Username)

	s, err := definition.OrderSet()
	require.NoError(t, err)
	assert.NoError(t, data.Validate(s))
	assert.Equal(t, "1b4e28ba-2fa1-11d2-883f-0016d3cca427", s.UUID.String())
	require.Len(t, s.Members(), 2)
	assert.Equal(t, "Regimen 1", s.Members()[1].OrderSet.Title())
}

func TestReviewFile_Invalid(t *testing.T) {
	filename := writeDefinition(t, t.TempDir(), "invalid.yaml", invalidDefinition)

	err := reviewFile(filename, &data.User{Username: "admin"}, time.Now())
	assert.ErrorContains(t, err, "missing title")
}

func TestReviewCmd(t *testing.T) {
	filename := writeDefinition(t, t.TempDir(), "hiv.yaml", hivDefinition)
	defer func() { reviewer, reviewerName, reviewDate = "", "", "" }()

	out, err := execute("review", filename, "--reviewer", "admin", "--date", "2024-03-01")
	require.NoError(t, err)
	assert.Equal(t, filename+" : reviewed by admin on 2024-03-01\n", out)

	t.Run("InvalidDate", func(t *testing.T) {
		_, err := execute("review", filename, "--reviewer", "admin", "--date", "yesterday")
		assert.ErrorContains(t, err, `invalid date "yesterday"`)
	})
}

func TestToday(t *testing.T) {
	d := today()

	assert.Equal(t, time.UTC, d.Location())
	assert.Equal(t, 0, d.Hour())
	assert.Equal(t, time.Now().Day(), d.Day())
}
