package collection_test

import (
	"testing"

	"github.com/modcollect/modcollect/pkg/collection"
	"github.com/modcollect/modcollect/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCollectionURL(t *testing.T) {
	tests := []struct {
		name   string
		url    string
		domain string
		slug   string
	}{
		{
			name:   "next host",
			url:    "https://next.nexusmods.com/starfield/collections/abc123",
			domain: "starfield",
			slug:   "abc123",
		},
		{
			name:   "www host with games prefix",
			url:    "https://www.nexusmods.com/games/skyrimspecialedition/collections/xyz789",
			domain: "skyrimspecialedition",
			slug:   "xyz789",
		},
		{
			name:   "query parameters ignored",
			url:    "https://next.nexusmods.com/starfield/collections/abc123?tab=mods&utm_source=share",
			domain: "starfield",
			slug:   "abc123",
		},
		{
			name:   "trailing path segments ignored",
			url:    "https://next.nexusmods.com/starfield/collections/abc123/revisions/42",
			domain: "starfield",
			slug:   "abc123",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := collection.ParseCollectionURL(tt.url)
			require.NoError(t, err)
			assert.Equal(t, tt.domain, info.GameDomain)
			assert.Equal(t, tt.slug, info.Slug)
			assert.Equal(t,
				"https://next.nexusmods.com/"+tt.domain+"/collections/"+tt.slug,
				info.URL)
		})
	}
}

func TestParseCollectionURLInvalid(t *testing.T) {
	tests := []struct {
		name string
		url  string
	}{
		{name: "wrong host", url: "https://example.com/starfield/collections/abc123"},
		{name: "not a collection path", url: "https://next.nexusmods.com/starfield/mods/1234"},
		{name: "missing slug", url: "https://next.nexusmods.com/starfield/collections/"},
		{name: "empty", url: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := collection.ParseCollectionURL(tt.url)
			require.Error(t, err)
			assert.True(t, errors.IsErrorCode(err, errors.ErrURLInvalid))
		})
	}
}

func TestParseModURL(t *testing.T) {
	info, err := collection.ParseModURL("https://www.nexusmods.com/starfield/mods/4183?tab=files")
	require.NoError(t, err)

	assert.Equal(t, "starfield", info.GameDomain)
	assert.Equal(t, int64(4183), info.ModID)
	assert.Equal(t, "https://www.nexusmods.com/starfield/mods/4183", info.URL)
}

func TestParseModURLInvalid(t *testing.T) {
	tests := []struct {
		name string
		url  string
	}{
		{name: "wrong host", url: "https://example.com/starfield/mods/1"},
		{name: "collection path", url: "https://www.nexusmods.com/games/starfield/collections/abc"},
		{name: "non-numeric id", url: "https://www.nexusmods.com/starfield/mods/latest"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := collection.ParseModURL(tt.url)
			require.Error(t, err)
			assert.True(t, errors.IsErrorCode(err, errors.ErrURLInvalid))
		})
	}
}
