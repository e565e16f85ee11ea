package zenodo

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	zerrors "zenodep/internal/errors"
)

// zipThreshold is the directory file count above which individual uploads
// are replaced by a single zip archive, to avoid per-file request overhead
// for large trees.
const zipThreshold = 100

// UploadOptions tunes how content items are attached to a deposition.
type UploadOptions struct {
	// Name renames the deliverable. Only meaningful for a single file or
	// URL, or as the archive name when zipping a directory.
	Name string
	// Zip forces directories to be bundled regardless of file count.
	Zip bool
	// Publish finalizes the deposition after all content is uploaded.
	Publish bool
}

// UploadFile uploads one local file to the deposition bucket. The file is
// re-opened on every retry attempt.
func (c *Client) UploadFile(ctx context.Context, bucketURL, filePath, name string) (*FileReceipt, error) {
	info, err := os.Stat(filePath)
	if err != nil || !info.Mode().IsRegular() {
		return nil, fmt.Errorf("not a file: %s", filePath)
	}
	if name == "" {
		name = filepath.Base(filePath)
	}
	c.logger.Info("Uploading file %s as %s", filePath, name)
	return c.PutFile(ctx, bucketURL, name, func() (io.ReadCloser, error) {
		return os.Open(filePath)
	})
}

// UploadURL streams the content behind a remote URL into the deposition
// bucket. The source is fetched again on every retry attempt.
func (c *Client) UploadURL(ctx context.Context, bucketURL, rawURL, name string) (*FileReceipt, error) {
	if !ValidURL(rawURL) {
		return nil, fmt.Errorf("invalid URL: %s", rawURL)
	}
	if name == "" {
		parsed, err := url.Parse(rawURL)
		if err != nil {
			return nil, fmt.Errorf("invalid URL: %s", rawURL)
		}
		name = path.Base(parsed.Path)
		if name == "" || name == "." || name == "/" {
			return nil, fmt.Errorf("cannot derive a filename from URL %s, use an explicit name", rawURL)
		}
	}
	c.logger.Info("Uploading URL %s as %s", rawURL, name)
	return c.PutFile(ctx, bucketURL, name, func() (io.ReadCloser, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, err
		}
		resp, err := c.httpc.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			_ = resp.Body.Close()
			return nil, zerrors.NewStatusError(resp.StatusCode, resp.Status, strings.TrimSpace(string(body)))
		}
		return resp.Body, nil
	})
}

// UploadDirectory uploads every regular file under dir individually, unless
// the tree holds more than zipThreshold files, in which case the whole
// directory is bundled into a single archive instead.
func (c *Client) UploadDirectory(ctx context.Context, bucketURL, dir string) ([]*FileReceipt, error) {
	files, err := Files(dir)
	if err != nil {
		return nil, err
	}
	if len(files) > zipThreshold {
		c.logger.Warn("Directory %s holds %d files, bundling into a single archive", dir, len(files))
		receipt, err := c.UploadZipped(ctx, bucketURL, dir, "")
		if err != nil {
			return nil, err
		}
		return []*FileReceipt{receipt}, nil
	}

	c.logger.Info("Uploading %d files from %s", len(files), dir)
	receipts := make([]*FileReceipt, 0, len(files))
	for _, file := range files {
		receipt, err := c.UploadFile(ctx, bucketURL, file, "")
		if err != nil {
			return nil, err
		}
		receipts = append(receipts, receipt)
	}
	return receipts, nil
}

// UploadZipped bundles dir into a zip archive, with member paths relative
// to the directory root, and uploads it as a single deliverable named
// "{name}.zip" (default: the directory's base name). The temporary archive
// is removed on every exit path.
func (c *Client) UploadZipped(ctx context.Context, bucketURL, dir, name string) (*FileReceipt, error) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", dir)
	}
	if name == "" {
		name = filepath.Base(filepath.Clean(dir))
	}
	archiveName := name + ".zip"

	c.logger.Info("Zipping %s into %s", dir, archiveName)
	tmp, err := os.CreateTemp("", "zenodep-*.zip")
	if err != nil {
		return nil, fmt.Errorf("creating temporary archive: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = os.Remove(tmpPath)
	}()

	if err := writeZip(tmp, dir); err != nil {
		_ = tmp.Close()
		return nil, fmt.Errorf("zipping %s: %w", dir, err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("zipping %s: %w", dir, err)
	}

	return c.UploadFile(ctx, bucketURL, tmpPath, archiveName)
}

func writeZip(w io.Writer, dir string) error {
	files, err := Files(dir)
	if err != nil {
		return err
	}
	zw := zip.NewWriter(w)
	for _, file := range files {
		rel, err := filepath.Rel(dir, file)
		if err != nil {
			return err
		}
		entry, err := zw.Create(filepath.ToSlash(rel))
		if err != nil {
			return err
		}
		f, err := os.Open(file)
		if err != nil {
			return err
		}
		if _, err := io.Copy(entry, f); err != nil {
			_ = f.Close()
			return err
		}
		_ = f.Close()
	}
	return zw.Close()
}

// UploadTarget resolves one content item and routes it to the matching
// upload path.
func (c *Client) UploadTarget(ctx context.Context, bucketURL, item string, opts UploadOptions) ([]*FileReceipt, error) {
	target, err := Resolve(item)
	if err != nil {
		return nil, err
	}
	switch target.Kind {
	case TargetRemoteURL:
		receipt, err := c.UploadURL(ctx, bucketURL, target.Value, opts.Name)
		if err != nil {
			return nil, err
		}
		return []*FileReceipt{receipt}, nil
	case TargetDirectory:
		if opts.Zip {
			receipt, err := c.UploadZipped(ctx, bucketURL, target.Value, opts.Name)
			if err != nil {
				return nil, err
			}
			return []*FileReceipt{receipt}, nil
		}
		return c.UploadDirectory(ctx, bucketURL, target.Value)
	default:
		receipt, err := c.UploadFile(ctx, bucketURL, target.Value, opts.Name)
		if err != nil {
			return nil, err
		}
		return []*FileReceipt{receipt}, nil
	}
}

// Upload runs the full deposition pipeline: create a draft, attach
// metadata, upload every content item in order, and optionally publish.
//
// Metadata is attached before any content so it survives a failed upload.
// A failure after the draft exists aborts the operation but leaves the
// draft in place for inspection or retry; the draft id is preserved in the
// returned error.
func (c *Client) Upload(ctx context.Context, items []string, metadata Metadata, opts UploadOptions) (*Deposition, error) {
	if len(items) == 0 {
		return nil, ErrNoContent
	}

	dep, err := c.CreateDeposition(ctx)
	if err != nil {
		return nil, err
	}

	updated, err := c.ReplaceMetadata(ctx, dep.ID, metadata)
	if err != nil {
		return nil, c.draftErr(dep, err)
	}
	// The replace response carries the attached metadata; keep links from
	// the create response in case the API omits them here.
	if updated.Links.Bucket == "" {
		updated.Links = dep.Links
	}
	dep = updated

	for _, item := range items {
		if _, err := c.UploadTarget(ctx, dep.Links.Bucket, item, opts); err != nil {
			return nil, c.draftErr(dep, fmt.Errorf("uploading %s: %w", item, err))
		}
	}

	if opts.Publish {
		published, err := c.Publish(ctx, dep.ID)
		if err != nil {
			return nil, c.draftErr(dep, err)
		}
		return published, nil
	}
	return dep, nil
}

// CreateNewVersion clones a published deposition into a fresh draft and
// uploads the given items to the new draft's bucket. Metadata updates and
// publishing are left to the caller so the draft can be inspected first.
func (c *Client) CreateNewVersion(ctx context.Context, id int, items []string, opts UploadOptions) (*Deposition, error) {
	_, draftID, err := c.NewVersion(ctx, id)
	if err != nil {
		return nil, err
	}

	draft, err := c.GetDeposition(ctx, draftID)
	if err != nil {
		return nil, fmt.Errorf("deposition %d left as draft: %w", draftID, err)
	}

	for _, item := range items {
		if _, err := c.UploadTarget(ctx, draft.Links.Bucket, item, opts); err != nil {
			return nil, c.draftErr(draft, fmt.Errorf("uploading %s: %w", item, err))
		}
	}
	return draft, nil
}

// draftErr annotates a post-create failure with the surviving draft id.
// Drafts are never auto-deleted on failure.
func (c *Client) draftErr(dep *Deposition, err error) error {
	if dep == nil || dep.ID == 0 {
		return err
	}
	return fmt.Errorf("deposition %d left as draft: %w", dep.ID, err)
}
