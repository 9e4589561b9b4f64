package book

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDescriptor = `{
  "name": "Example Comics",
  "url": "https://comics.example.com",
  "injections": {
    "default": {"css": "body{margin:0}", "html": "", "js": ""},
    "subdomains": [
      {"pattern": "/chapter/", "css": ".ads{display:none}", "bookReader": {"enabled": true, "mode": "single", "imageSelector": ".page img"}}
    ]
  },
  "bookReader": {"enabled": false, "mode": "two-page", "imageSelector": "img", "urlPattern": ""}
}`

func TestParse(t *testing.T) {
	b, err := Parse([]byte(sampleDescriptor))
	require.NoError(t, err)

	assert.Equal(t, "Example Comics", b.Name)
	assert.Equal(t, "body{margin:0}", b.Injections.Default.CSS)
	require.Len(t, b.Injections.Subdomains, 1)

	o := b.Injections.Subdomains[0]
	assert.Equal(t, "/chapter/", o.Pattern)
	assert.True(t, o.IsRegex())
	assert.Equal(t, ".ads{display:none}", o.CSS)
	require.NotNil(t, o.BookReader)
	assert.Equal(t, ModeSingle, o.BookReader.DisplayMode())
	assert.Equal(t, ".page img", o.BookReader.Selector())
}

func TestParse_Defaults(t *testing.T) {
	b, err := Parse([]byte(`{"name":"bare"}`))
	require.NoError(t, err)

	assert.Equal(t, ModeDual, b.BookReader.DisplayMode())
	assert.Equal(t, DefaultImageSelector, b.BookReader.Selector())
	assert.NotNil(t, b.Injections.Subdomains)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", `{name:`},
		{"bad mode", `{"name":"x","bookReader":{"mode":"three-page"}}`},
		{"bad url", `{"name":"x","url":"not a url"}`},
		{"bad override mode", `{"name":"x","injections":{"subdomains":[{"pattern":"a","bookReader":{"mode":"spread"}}]}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestExport_StripsLibraryFields(t *testing.T) {
	now := time.Now()
	b := Template()
	b.ID = "abc"
	b.Name = "Exported"
	b.AddedAt = &now
	b.UpdatedAt = &now
	b.Source = "https://github.com/o/r"

	data, err := Export(b)
	require.NoError(t, err)

	s := string(data)
	assert.NotContains(t, s, `"id"`)
	assert.NotContains(t, s, "addedAt")
	assert.NotContains(t, s, "updatedAt")
	assert.NotContains(t, s, "source")
	assert.True(t, strings.HasPrefix(s, "{\n  \"name\""))

	back, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, "Exported", back.Name)
	assert.Equal(t, b.ID, "abc", "export must not mutate the original")
}

func TestDisplayModeStep(t *testing.T) {
	assert.Equal(t, 2, ModeDual.Step())
	assert.Equal(t, 1, ModeSingle.Step())
}

func TestParse_KeepsMissingName(t *testing.T) {
	b, err := Parse([]byte(`{"url":"https://example.com"}`))
	require.NoError(t, err)

	assert.Empty(t, b.Name)
	assert.Equal(t, "New Site", Template().Name)
}
