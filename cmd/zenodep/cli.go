package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"zenodep/internal/config"
	"zenodep/internal/logging"
	"zenodep/internal/zenodo"
)

const version = "0.3.0"

// app holds the state resolved once per invocation from global flags and
// configuration. It is immutable for the duration of the command.
type app struct {
	env    config.Environment
	cfg    config.Config
	logger logging.Logger
}

// client builds the API client for the selected environment. Token
// validation has already run in the root PersistentPreRunE, so a failure
// here means the token vanished between validation and use.
func (a *app) client() (*zenodo.Client, error) {
	return zenodo.New(a.env, a.cfg.Token(a.env))
}

func newRootCommand() *cobra.Command {
	a := &app{}

	var (
		sandbox    bool
		production bool
		configFile string
		logLevel   string
	)

	rootCmd := &cobra.Command{
		Use:           "zenodep",
		Short:         "Deposit and manage research artifacts on Zenodo",
		Long:          "zenodep uploads files, directories, and URLs to the Zenodo archival repository and manages the resulting depositions: metadata, publishing, versioning, and search.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logging.SetLevel(logging.ParseLevel(logLevel))
			a.logger = logging.NewComponentLogger("cli")

			a.env = config.Sandbox
			if production || (cmd.Flags().Changed("sandbox") && !sandbox) {
				a.env = config.Production
			}
			a.logger.Debug("Using %s environment", a.env)

			cfg, err := config.Load(configFile)
			if err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			if err := config.Validate(cfg, a.env); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			a.cfg = cfg
			return nil
		},
	}

	rootCmd.PersistentFlags().BoolVar(&sandbox, "sandbox", true, "Use the Zenodo sandbox environment")
	rootCmd.PersistentFlags().BoolVar(&production, "production", false, "Use the Zenodo production environment")
	rootCmd.PersistentFlags().StringVar(&configFile, "config-file", "", "Path to the configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Set the log level (debug, info, warn, error)")
	rootCmd.MarkFlagsMutuallyExclusive("sandbox", "production")

	rootCmd.AddCommand(newDepositCommand(a))
	rootCmd.AddCommand(newCreateCommand(a))
	rootCmd.AddCommand(newUploadCommand(a))
	rootCmd.AddCommand(newPublishCommand(a))
	rootCmd.AddCommand(newDeleteCommand(a))
	rootCmd.AddCommand(newRetrieveCommand(a))
	rootCmd.AddCommand(newUpdateMetadataCommand(a))
	rootCmd.AddCommand(newAddMetadataCommand(a))
	rootCmd.AddCommand(newNewVersionCommand(a))
	rootCmd.AddCommand(newTagCommand(a))
	rootCmd.AddCommand(newSearchCommand(a))

	return rootCmd
}

// printJSON writes the result record as a single JSON document to stdout.
func printJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, string(data))
	return nil
}

// parseVariables turns repeated "key=value" (or "key:value") flags into a
// substitution map for metadata templates.
func parseVariables(variables []string) (map[string]string, error) {
	vars := make(map[string]string, len(variables))
	for _, v := range variables {
		var key, value string
		switch {
		case strings.Contains(v, "="):
			parts := strings.SplitN(v, "=", 2)
			key, value = parts[0], parts[1]
		case strings.Contains(v, ":"):
			parts := strings.SplitN(v, ":", 2)
			key, value = parts[0], parts[1]
		default:
			return nil, fmt.Errorf("invalid variable format %q, expected 'key=value' or 'key:value'", v)
		}
		vars[key] = value
	}
	return vars, nil
}

// splitKeywords splits comma-separated keyword flags and trims blanks.
func splitKeywords(raw []string) []string {
	var keywords []string
	for _, entry := range raw {
		for _, k := range strings.Split(entry, ",") {
			if k = strings.TrimSpace(k); k != "" {
				keywords = append(keywords, k)
			}
		}
	}
	return keywords
}

// metadataFlags is the shared flag surface for commands that assemble a
// metadata record from a TOML file plus overrides.
type metadataFlags struct {
	metadataFile string
	title        string
	description  string
	uploadType   string
	keywords     []string
	variables    []string
}

func (f *metadataFlags) register(cmd *cobra.Command, typeDefault string) {
	cmd.Flags().StringVarP(&f.metadataFile, "metadata", "m", "", "Path to the metadata TOML file")
	cmd.Flags().StringVar(&f.title, "title", "", "Title of the deposition")
	cmd.Flags().StringVar(&f.description, "description", "", "Description of the deposition")
	cmd.Flags().StringVar(&f.uploadType, "type", typeDefault, "Upload type ("+strings.Join(zenodo.UploadTypes, ", ")+")")
	cmd.Flags().StringSliceVarP(&f.keywords, "keywords", "k", nil, "Keyword(s) for the deposition")
	cmd.Flags().StringArrayVarP(&f.variables, "variable", "v", nil, "Variables for metadata substitution, format: key=value or key:value")
}

// assemble reads the metadata file (when given) with variable substitution
// applied, then layers flag values on top. Flag keywords are unioned with
// file keywords.
func (f *metadataFlags) assemble(base zenodo.Metadata) (zenodo.Metadata, error) {
	meta := base
	if f.metadataFile != "" {
		vars, err := parseVariables(f.variables)
		if err != nil {
			return zenodo.Metadata{}, err
		}
		fromFile, err := zenodo.MetadataFromTOML(f.metadataFile, vars)
		if err != nil {
			return zenodo.Metadata{}, err
		}
		meta = zenodo.Merge(meta, fromFile)
	}

	overrides := zenodo.Metadata{
		Title:       f.title,
		Description: f.description,
		UploadType:  f.uploadType,
		Keywords:    splitKeywords(f.keywords),
	}
	meta = zenodo.Merge(meta, overrides)

	if meta.UploadType != "" && !zenodo.ValidUploadType(meta.UploadType) {
		return zenodo.Metadata{}, fmt.Errorf("invalid upload type %q, must be one of: %s",
			meta.UploadType, strings.Join(zenodo.UploadTypes, ", "))
	}
	return meta, nil
}

// requireDraftFields enforces the pre-create validation gate: commands that
// would create or rewrite a record fail fast on missing title or creators
// rather than leaving an orphaned remote draft.
func requireDraftFields(m zenodo.Metadata) error {
	if m.Title == "" {
		return fmt.Errorf("metadata must include title, either via --title or a metadata file")
	}
	if len(m.Creators) == 0 {
		return fmt.Errorf("metadata must include creators")
	}
	return nil
}
