package zenodo

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeMetadataFile(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "metadata.toml")
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestMetadataFromTOML(t *testing.T) {
	path := writeMetadataFile(t, `
title = "My first upload"
upload_type = "dataset"
description = "This is my first upload"
keywords = ["zenodo", "deposit"]

[[creators]]
name = "Doe, John"
affiliation = "Zenodo"

[[creators]]
name = "Smith, Jane"
affiliation = "EDGI"
orcid = "0000-0002-1825-0097"

[[communities]]
identifier = "edgi"
`)

	m, err := MetadataFromTOML(path, nil)
	require.NoError(t, err)
	require.Equal(t, "My first upload", m.Title)
	require.Equal(t, "dataset", m.UploadType)
	require.Equal(t, []string{"zenodo", "deposit"}, m.Keywords)
	require.Equal(t, []Creator{
		{Name: "Doe, John", Affiliation: "Zenodo"},
		{Name: "Smith, Jane", Affiliation: "EDGI", ORCID: "0000-0002-1825-0097"},
	}, m.Creators)
	require.Equal(t, []Community{{Identifier: "edgi"}}, m.Communities)
	require.NoError(t, m.Validate())
}

func TestMetadataFromTOMLScalarKeywords(t *testing.T) {
	path := writeMetadataFile(t, `
title = "Scalar keywords"
upload_type = "dataset"
keywords = "climate,web archive"
`)

	m, err := MetadataFromTOML(path, nil)
	require.NoError(t, err)
	require.Equal(t, []string{"climate", "web archive"}, m.Keywords)
}

func TestMetadataFromTOMLSubstitutesVariables(t *testing.T) {
	path := writeMetadataFile(t, `
title = "Snapshot of {site} ({date})"
upload_type = "dataset"
description = "Captured from {site}"
version = "{date}"
keywords = ["{site}"]
`)

	m, err := MetadataFromTOML(path, map[string]string{
		"site": "example.gov",
		"date": "2024-06-01",
	})
	require.NoError(t, err)
	require.Equal(t, "Snapshot of example.gov (2024-06-01)", m.Title)
	require.Equal(t, "Captured from example.gov", m.Description)
	require.Equal(t, "2024-06-01", m.Version)
	require.Equal(t, []string{"example.gov"}, m.Keywords)
}

func TestMetadataFromTOMLLeavesUnknownPlaceholders(t *testing.T) {
	path := writeMetadataFile(t, `
title = "Keep {unknown} as-is"
upload_type = "dataset"
`)

	m, err := MetadataFromTOML(path, map[string]string{"site": "example.gov"})
	require.NoError(t, err)
	require.Equal(t, "Keep {unknown} as-is", m.Title)
}

func TestMetadataFromTOMLMissingFile(t *testing.T) {
	_, err := MetadataFromTOML(filepath.Join(t.TempDir(), "absent.toml"), nil)
	require.ErrorContains(t, err, "reading metadata file")
}

func TestMetadataFromTOMLInvalidSyntax(t *testing.T) {
	path := writeMetadataFile(t, `title = `)
	_, err := MetadataFromTOML(path, nil)
	require.Error(t, err)
}
