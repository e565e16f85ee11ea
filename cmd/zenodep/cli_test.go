package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"zenodep/internal/config"
	"zenodep/internal/zenodo"
)

const validTestToken = "sandbox-token-0123456789abcdefghijklmnop"

// runCommand executes the CLI against a clean environment. Commands under
// test must fail before reaching the network.
func runCommand(t *testing.T, args ...string) error {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv(config.SandboxTokenKey, validTestToken)
	t.Setenv(config.ProductionTokenKey, validTestToken)

	cmd := newRootCommand()
	cmd.SetArgs(args)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	return cmd.Execute()
}

func tempFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestParseVariables(t *testing.T) {
	vars, err := parseVariables([]string{"site=example.gov", "date:2024-06-01"})
	require.NoError(t, err)
	require.Equal(t, map[string]string{
		"site": "example.gov",
		"date": "2024-06-01",
	}, vars)
}

func TestParseVariablesEqualsWinsOverColon(t *testing.T) {
	vars, err := parseVariables([]string{"url=https://example.com"})
	require.NoError(t, err)
	require.Equal(t, map[string]string{"url": "https://example.com"}, vars)
}

func TestParseVariablesInvalid(t *testing.T) {
	_, err := parseVariables([]string{"no-separator"})
	require.ErrorContains(t, err, "invalid variable format")
}

func TestSplitKeywords(t *testing.T) {
	require.Equal(t, []string{"a", "b", "c"}, splitKeywords([]string{"a,b", " c "}))
	require.Nil(t, splitKeywords([]string{",", "  "}))
	require.Nil(t, splitKeywords(nil))
}

func TestRequireDraftFields(t *testing.T) {
	err := requireDraftFields(zenodo.Metadata{})
	require.ErrorContains(t, err, "title")

	err = requireDraftFields(zenodo.Metadata{Title: "T"})
	require.ErrorContains(t, err, "creators")

	require.NoError(t, requireDraftFields(zenodo.Metadata{
		Title:    "T",
		Creators: []zenodo.Creator{{Name: "Doe, John"}},
	}))
}

func TestDepositionIDArg(t *testing.T) {
	id, err := depositionIDArg([]string{"12345"})
	require.NoError(t, err)
	require.Equal(t, 12345, id)

	_, err = depositionIDArg([]string{"abc"})
	require.ErrorContains(t, err, "invalid deposition id")

	_, err = depositionIDArg([]string{"-3"})
	require.ErrorContains(t, err, "invalid deposition id")
}

func TestMetadataFlagsAssembleLayersOverrides(t *testing.T) {
	metadataFile := tempFile(t, "metadata.toml", `
title = "From file"
upload_type = "dataset"
keywords = ["file"]

[[creators]]
name = "Doe, John"
`)

	flags := metadataFlags{
		metadataFile: metadataFile,
		title:        "From flag",
		keywords:     []string{"flag"},
	}
	meta, err := flags.assemble(zenodo.Metadata{})
	require.NoError(t, err)
	require.Equal(t, "From flag", meta.Title)
	require.Equal(t, "dataset", meta.UploadType)
	require.Equal(t, []string{"file", "flag"}, meta.Keywords)
	require.Equal(t, []zenodo.Creator{{Name: "Doe, John"}}, meta.Creators)
}

func TestMetadataFlagsAssembleSubstitutesVariables(t *testing.T) {
	metadataFile := tempFile(t, "metadata.toml", `
title = "Snapshot of {site}"
upload_type = "dataset"
`)

	flags := metadataFlags{
		metadataFile: metadataFile,
		variables:    []string{"site=example.gov"},
	}
	meta, err := flags.assemble(zenodo.Metadata{})
	require.NoError(t, err)
	require.Equal(t, "Snapshot of example.gov", meta.Title)
}

func TestMetadataFlagsAssembleRejectsBadUploadType(t *testing.T) {
	flags := metadataFlags{title: "T", uploadType: "mixtape"}
	_, err := flags.assemble(zenodo.Metadata{})
	require.ErrorContains(t, err, "invalid upload type")
}

func TestRootRejectsInvalidToken(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv(config.SandboxTokenKey, "short")

	cmd := newRootCommand()
	cmd.SetArgs([]string{"retrieve", "12345"})
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)

	err := cmd.Execute()
	require.ErrorContains(t, err, "invalid configuration")
}

func TestSandboxFalseSelectsProduction(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv(config.SandboxTokenKey, validTestToken)
	t.Setenv(config.ProductionTokenKey, "short")

	cmd := newRootCommand()
	cmd.SetArgs([]string{"--sandbox=false", "retrieve", "12345"})
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)

	// The production token is the invalid one, so validation failing on it
	// proves --sandbox=false switched environments.
	err := cmd.Execute()
	require.ErrorContains(t, err, config.ProductionTokenKey)
}

func TestRootRejectsBothEnvironments(t *testing.T) {
	err := runCommand(t, "--sandbox", "--production", "retrieve", "12345")
	require.Error(t, err)
}

func TestDepositRequiresCreators(t *testing.T) {
	file := tempFile(t, "data.csv", "a,b\n")
	err := runCommand(t, "deposit", file, "--title", "My upload")
	require.ErrorContains(t, err, "creators")
}

func TestDepositRequiresTitle(t *testing.T) {
	file := tempFile(t, "data.csv", "a,b\n")
	err := runCommand(t, "deposit", file, "--name", "Doe, John")
	require.ErrorContains(t, err, "title")
}

func TestUploadRequiresMetadataFlag(t *testing.T) {
	file := tempFile(t, "data.csv", "a,b\n")
	err := runCommand(t, "upload", file)
	require.ErrorContains(t, err, "metadata")
}

func TestUploadValidatesMetadataBeforeNetwork(t *testing.T) {
	metadataFile := tempFile(t, "metadata.toml", `
title = "No creators here"
upload_type = "dataset"
`)
	file := tempFile(t, "data.csv", "a,b\n")
	err := runCommand(t, "upload", file, "--metadata", metadataFile)
	require.ErrorContains(t, err, "creators")
}

func TestDeleteRejectsNonNumericID(t *testing.T) {
	err := runCommand(t, "delete", "not-a-number")
	require.ErrorContains(t, err, "invalid deposition id")
}
