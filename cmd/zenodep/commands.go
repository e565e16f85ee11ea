package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"zenodep/internal/zenodo"
)

func depositionIDArg(args []string) (int, error) {
	id, err := strconv.Atoi(args[0])
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid deposition id %q", args[0])
	}
	return id, nil
}

// newDepositCommand deposits a single file into a fresh draft deposition
// with metadata assembled from flags and an optional metadata file.
func newDepositCommand(a *app) *cobra.Command {
	var (
		meta        metadataFlags
		name        string
		affiliation string
	)
	cmd := &cobra.Command{
		Use:   "deposit <file>",
		Short: "Deposit a file into a new draft deposition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			base := zenodo.Metadata{}
			if name != "" {
				base.Creators = []zenodo.Creator{{Name: name, Affiliation: affiliation}}
			}
			metadata, err := meta.assemble(base)
			if err != nil {
				return err
			}
			if err := requireDraftFields(metadata); err != nil {
				return err
			}

			client, err := a.client()
			if err != nil {
				return err
			}
			dep, err := client.Upload(cmd.Context(), args[:1], metadata, zenodo.UploadOptions{})
			if err != nil {
				return fmt.Errorf("failed to deposit file: %w", err)
			}
			a.logger.Info("Deposition created with id %d", dep.ID)
			return printJSON(dep)
		},
	}
	meta.register(cmd, "")
	cmd.Flags().StringVar(&name, "name", "", "Name of the depositor in 'Last, First' format")
	cmd.Flags().StringVar(&affiliation, "affiliation", "", "Affiliation of the depositor")
	return cmd
}

// newCreateCommand creates a deposition with metadata but no content.
func newCreateCommand(a *app) *cobra.Command {
	var meta metadataFlags
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new deposition without uploading a file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			metadata, err := meta.assemble(zenodo.Metadata{})
			if err != nil {
				return err
			}
			if err := requireDraftFields(metadata); err != nil {
				return err
			}

			client, err := a.client()
			if err != nil {
				return err
			}
			dep, err := client.CreateDeposition(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to create deposition: %w", err)
			}
			dep, err = client.MergeMetadata(cmd.Context(), dep.ID, metadata)
			if err != nil {
				return fmt.Errorf("failed to create deposition: %w", err)
			}
			a.logger.Info("Deposition created with id %d", dep.ID)
			return printJSON(dep)
		},
	}
	meta.register(cmd, "dataset")
	return cmd
}

// newUploadCommand uploads one or more files, directories, or URLs into a
// new deposition.
func newUploadCommand(a *app) *cobra.Command {
	var (
		meta    metadataFlags
		publish bool
		zipDirs bool
		name    string
	)
	cmd := &cobra.Command{
		Use:   "upload <file|dir|url>...",
		Short: "Upload one or more files, creating a new deposition with metadata",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			metadata, err := meta.assemble(zenodo.Metadata{})
			if err != nil {
				return err
			}
			if err := metadata.Validate(); err != nil {
				return err
			}

			client, err := a.client()
			if err != nil {
				return err
			}
			dep, err := client.Upload(cmd.Context(), args, metadata, zenodo.UploadOptions{
				Name:    name,
				Zip:     zipDirs,
				Publish: publish,
			})
			if err != nil {
				return fmt.Errorf("failed to upload files: %w", err)
			}
			if publish {
				a.logger.Info("Deposition published with id %d", dep.ID)
			} else {
				a.logger.Info("Deposition created with id %d", dep.ID)
			}
			return printJSON(dep)
		},
	}
	meta.register(cmd, "dataset")
	_ = cmd.MarkFlagRequired("metadata")
	cmd.Flags().BoolVar(&publish, "publish", false, "Publish after uploading")
	cmd.Flags().BoolVar(&zipDirs, "zip", false, "Zip directories before uploading")
	cmd.Flags().StringVar(&name, "name", "", "Name to store the deliverable as (single file or URL only)")
	return cmd
}

func newPublishCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "publish <deposition-id>",
		Short: "Publish an existing draft deposition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := depositionIDArg(args)
			if err != nil {
				return err
			}
			client, err := a.client()
			if err != nil {
				return err
			}
			dep, err := client.Publish(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("failed to publish: %w", err)
			}
			a.logger.Info("Deposition published with id %d", id)
			return printJSON(dep)
		},
	}
}

func newDeleteCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <deposition-id>",
		Short: "Delete a draft deposition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := depositionIDArg(args)
			if err != nil {
				return err
			}
			client, err := a.client()
			if err != nil {
				return err
			}
			if err := client.DeleteDeposition(cmd.Context(), id); err != nil {
				return fmt.Errorf("failed to delete: %w", err)
			}
			a.logger.Info("Deleted deposition %d", id)
			return printJSON(struct{}{})
		},
	}
}

func newRetrieveCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "retrieve <deposition-id>",
		Short: "Retrieve deposition details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := depositionIDArg(args)
			if err != nil {
				return err
			}
			client, err := a.client()
			if err != nil {
				return err
			}
			dep, err := client.GetDeposition(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("failed to retrieve deposition: %w", err)
			}
			return printJSON(dep)
		},
	}
}

func newUpdateMetadataCommand(a *app) *cobra.Command {
	var meta metadataFlags
	cmd := &cobra.Command{
		Use:     "update-metadata <deposition-id>",
		Aliases: []string{"update_metadata"},
		Short:   "Update metadata for an existing deposition, overwriting existing values",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := depositionIDArg(args)
			if err != nil {
				return err
			}
			metadata, err := meta.assemble(zenodo.Metadata{})
			if err != nil {
				return err
			}
			if err := requireDraftFields(metadata); err != nil {
				return err
			}
			client, err := a.client()
			if err != nil {
				return err
			}
			dep, err := client.ReplaceMetadata(cmd.Context(), id, metadata)
			if err != nil {
				return fmt.Errorf("failed to update metadata: %w", err)
			}
			return printJSON(dep)
		},
	}
	meta.register(cmd, "")
	_ = cmd.MarkFlagRequired("metadata")
	return cmd
}

func newAddMetadataCommand(a *app) *cobra.Command {
	var meta metadataFlags
	cmd := &cobra.Command{
		Use:     "add-metadata <deposition-id>",
		Aliases: []string{"add_metadata"},
		Short:   "Add metadata to an existing deposition, merging with existing values",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := depositionIDArg(args)
			if err != nil {
				return err
			}
			metadata, err := meta.assemble(zenodo.Metadata{})
			if err != nil {
				return err
			}
			if err := requireDraftFields(metadata); err != nil {
				return err
			}
			client, err := a.client()
			if err != nil {
				return err
			}
			dep, err := client.MergeMetadata(cmd.Context(), id, metadata)
			if err != nil {
				return fmt.Errorf("failed to add metadata: %w", err)
			}
			return printJSON(dep)
		},
	}
	meta.register(cmd, "")
	_ = cmd.MarkFlagRequired("metadata")
	return cmd
}

// newNewVersionCommand clones a published deposition into a fresh draft,
// uploads additional content, carries the base metadata forward with
// overrides applied, and optionally publishes the result.
func newNewVersionCommand(a *app) *cobra.Command {
	var (
		meta    metadataFlags
		publish bool
		zipDirs bool
	)
	cmd := &cobra.Command{
		Use:     "new-version <deposition-id> <file|dir|url>...",
		Aliases: []string{"new_version"},
		Short:   "Create a new version of an existing deposition",
		Args:    cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := depositionIDArg(args)
			if err != nil {
				return err
			}
			client, err := a.client()
			if err != nil {
				return err
			}

			base, err := client.GetDeposition(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("failed to retrieve base deposition: %w", err)
			}
			if err := base.Metadata.Validate(); err != nil {
				return fmt.Errorf("base deposition %d: %w", id, err)
			}

			metadata, err := meta.assemble(base.Metadata)
			if err != nil {
				return err
			}
			if err := metadata.Validate(); err != nil {
				return err
			}

			draft, err := client.CreateNewVersion(cmd.Context(), id, args[1:], zenodo.UploadOptions{Zip: zipDirs})
			if err != nil {
				return fmt.Errorf("failed to create new version: %w", err)
			}
			draft, err = client.ReplaceMetadata(cmd.Context(), draft.ID, metadata)
			if err != nil {
				return fmt.Errorf("failed to update metadata on new version: %w", err)
			}

			if publish {
				published, err := client.Publish(cmd.Context(), draft.ID)
				if err != nil {
					return fmt.Errorf("failed to publish new version: %w", err)
				}
				a.logger.Info("New version published with id %d", published.ID)
				return printJSON(published)
			}
			a.logger.Info("New version created as draft with id %d", draft.ID)
			return printJSON(draft)
		},
	}
	meta.register(cmd, "")
	cmd.Flags().BoolVar(&publish, "publish", false, "Publish after uploading")
	cmd.Flags().BoolVar(&zipDirs, "zip", false, "Zip directories before uploading")
	return cmd
}

// newTagCommand unions keywords into a deposition's existing metadata.
func newTagCommand(a *app) *cobra.Command {
	var keywords []string
	cmd := &cobra.Command{
		Use:   "tag <deposition-id>",
		Short: "Add tags to an existing deposition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := depositionIDArg(args)
			if err != nil {
				return err
			}
			client, err := a.client()
			if err != nil {
				return err
			}
			dep, err := client.MergeMetadata(cmd.Context(), id, zenodo.Metadata{
				Keywords: splitKeywords(keywords),
			})
			if err != nil {
				return fmt.Errorf("failed to tag deposition: %w", err)
			}
			a.logger.Info("Tags added to deposition %d", id)
			return printJSON(dep)
		},
	}
	cmd.Flags().StringSliceVarP(&keywords, "keywords", "k", nil, "Keyword(s) to add to the deposition")
	_ = cmd.MarkFlagRequired("keywords")
	return cmd
}

func newSearchCommand(a *app) *cobra.Command {
	var opts zenodo.SearchOptions
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search depositions based on a query string",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.client()
			if err != nil {
				return err
			}
			results, err := client.Search(cmd.Context(), args[0], opts)
			if err != nil {
				return fmt.Errorf("failed to search depositions: %w", err)
			}
			return printJSON(results)
		},
	}
	cmd.Flags().IntVar(&opts.Size, "size", 10, "Number of results to return")
	cmd.Flags().IntVar(&opts.Page, "page", 1, "Page number for pagination")
	cmd.Flags().StringVar(&opts.Sort, "sort", "mostrecent", "Sort order (bestmatch, mostrecent, -bestmatch, -mostrecent)")
	cmd.Flags().StringVar(&opts.Status, "status", "all", "Filter by deposition status (draft, published, all)")
	return cmd
}
