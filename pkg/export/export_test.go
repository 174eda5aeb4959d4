package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDataset() Dataset {
	return Dataset{
		Title:    "Portfolio",
		Subtitle: "Jane Student",
		Headers:  []string{"title", "category"},
		Rows: []map[string]string{
			{"title": "AI Conference", "category": "conference"},
			{"title": "Hackathon, Winter", "category": "competition"},
		},
	}
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleDataset())
	require.NoError(t, err)
	assert.Equal(t, "title,category\nAI Conference,conference\n\"Hackathon, Winter\",competition\n", string(out))
}

func TestPDFExporterRender(t *testing.T) {
	out, err := NewPDFExporter().Render(sampleDataset())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestExportersRequireHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
	_, err = NewPDFExporter().Render(Dataset{})
	assert.Error(t, err)
}

func TestCSVExporterWriteStreams(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewCSVExporter().Write(&buf, Dataset{Headers: []string{"title"}}))
	assert.Equal(t, "title\n", buf.String())
}

func TestPDFExporterRendersEmptyTable(t *testing.T) {
	out, err := NewPDFExporter().Render(Dataset{Title: "Portfolio", Headers: []string{"Title"}})
	require.NoError(t, err)
	assert.NotEmpty(t, out)
}
