package pdftest

import (
	"bytes"
	"testing"

	"github.com/ledongthuc/pdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPDFParsesWithPageCount(t *testing.T) {
	data := PDF("alpha", "beta", "gamma")

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	assert.Equal(t, 3, reader.NumPage())
}

func TestPDFCarriesText(t *testing.T) {
	data := PDF("hello world")

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	page := reader.Page(1)
	require.False(t, page.V.IsNull())
	text, err := page.GetPlainText(nil)
	require.NoError(t, err)
	assert.Contains(t, text, "hello world")
}

func TestBlankPage(t *testing.T) {
	data := PDF("")

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	assert.Equal(t, 1, reader.NumPage())
}

func TestCorruptDoesNotParse(t *testing.T) {
	data := Corrupt()
	_, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	assert.Error(t, err)
}
