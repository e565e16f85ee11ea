// Package zenodo implements the deposition upload pipeline against the
// Zenodo REST API: record creation, content upload to the deposition
// bucket, metadata replace/merge, publishing, versioning, and search.
package zenodo

import (
	"errors"
	"fmt"
)

// ErrNoContent is returned when an upload is requested with no content items.
var ErrNoContent = errors.New("at least one file, directory, or URL must be specified for upload")

// ErrMissingCredentials is returned when a client is constructed without an
// access token for the selected environment.
var ErrMissingCredentials = errors.New("access token is missing")

// Creator identifies a person attached to a deposition. The same shape is
// used for creators and contributors.
type Creator struct {
	Name        string `json:"name" mapstructure:"name"`
	Affiliation string `json:"affiliation,omitempty" mapstructure:"affiliation"`
	ORCID       string `json:"orcid,omitempty" mapstructure:"orcid"`
	Type        string `json:"type,omitempty" mapstructure:"type"`
}

// Community references a Zenodo community by identifier.
type Community struct {
	Identifier string `json:"identifier" mapstructure:"identifier"`
}

// Metadata is a deposition's descriptive record. Zero-valued fields are
// omitted on the wire.
type Metadata struct {
	Title           string      `json:"title,omitempty" mapstructure:"title"`
	UploadType      string      `json:"upload_type,omitempty" mapstructure:"upload_type"`
	Description     string      `json:"description,omitempty" mapstructure:"description"`
	PublicationDate string      `json:"publication_date,omitempty" mapstructure:"publication_date"`
	AccessRight     string      `json:"access_right,omitempty" mapstructure:"access_right"`
	License         string      `json:"license,omitempty" mapstructure:"license"`
	Version         string      `json:"version,omitempty" mapstructure:"version"`
	DOI             string      `json:"doi,omitempty" mapstructure:"doi"`
	Creators        []Creator   `json:"creators,omitempty" mapstructure:"creators"`
	Contributors    []Creator   `json:"contributors,omitempty" mapstructure:"contributors"`
	Keywords        []string    `json:"keywords,omitempty" mapstructure:"keywords"`
	Communities     []Community `json:"communities,omitempty" mapstructure:"communities"`
}

// UploadTypes lists the upload_type values Zenodo accepts.
var UploadTypes = []string{
	"publication", "poster", "presentation", "dataset", "image",
	"video", "software", "lesson", "physicalobject", "other",
}

// ValidUploadType reports whether t is an accepted upload_type.
func ValidUploadType(t string) bool {
	for _, known := range UploadTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Validate checks the publish invariant: a deposition cannot be published
// without title, creators, and upload_type.
func (m Metadata) Validate() error {
	if m.Title == "" {
		return errors.New("metadata must include title")
	}
	if len(m.Creators) == 0 {
		return errors.New("metadata must include creators")
	}
	if m.UploadType == "" {
		return errors.New("metadata must include upload_type")
	}
	if !ValidUploadType(m.UploadType) {
		return fmt.Errorf("invalid upload_type %q", m.UploadType)
	}
	return nil
}

// Links holds the hypermedia links of a deposition. Bucket is the write
// endpoint for content while the deposition is a draft; LatestDraft points
// at the draft produced by a new-version action.
type Links struct {
	Self        string `json:"self,omitempty"`
	HTML        string `json:"html,omitempty"`
	Bucket      string `json:"bucket,omitempty"`
	Publish     string `json:"publish,omitempty"`
	Discard     string `json:"discard,omitempty"`
	NewVersion  string `json:"newversion,omitempty"`
	LatestDraft string `json:"latest_draft,omitempty"`
}

// Deposition is a draft or published record on Zenodo.
type Deposition struct {
	ID        int           `json:"id"`
	State     string        `json:"state,omitempty"`
	Submitted bool          `json:"submitted"`
	Created   string        `json:"created,omitempty"`
	Modified  string        `json:"modified,omitempty"`
	DOI       string        `json:"doi,omitempty"`
	Title     string        `json:"title,omitempty"`
	Metadata  Metadata      `json:"metadata"`
	Links     Links         `json:"links"`
	Files     []FileReceipt `json:"files,omitempty"`
}

// FileLinks holds the hypermedia links of an uploaded file.
type FileLinks struct {
	Self     string `json:"self,omitempty"`
	Download string `json:"download,omitempty"`
}

// FileReceipt describes a file stored in a deposition bucket, as returned
// by the bucket write endpoint.
type FileReceipt struct {
	Key      string    `json:"key"`
	Checksum string    `json:"checksum,omitempty"`
	Size     int64     `json:"size,omitempty"`
	MimeType string    `json:"mimetype,omitempty"`
	Created  string    `json:"created,omitempty"`
	Updated  string    `json:"updated,omitempty"`
	Links    FileLinks `json:"links,omitempty"`
}
