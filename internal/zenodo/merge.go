package zenodo

// Merge combines update into existing for the add-metadata flow.
// Repeatable fields (keywords, creators, contributors) are unioned:
// existing entries first, then new entries not already present, so applying
// the same update twice is a no-op. All other fields are overwritten when
// the update carries a non-zero value and kept otherwise. Communities are
// deliberately in the overwrite group: only the three fields above repeat.
func Merge(existing, update Metadata) Metadata {
	merged := existing

	merged.Keywords = unionStrings(existing.Keywords, update.Keywords)
	merged.Creators = unionCreators(existing.Creators, update.Creators)
	merged.Contributors = unionCreators(existing.Contributors, update.Contributors)

	if update.Title != "" {
		merged.Title = update.Title
	}
	if update.UploadType != "" {
		merged.UploadType = update.UploadType
	}
	if update.Description != "" {
		merged.Description = update.Description
	}
	if update.PublicationDate != "" {
		merged.PublicationDate = update.PublicationDate
	}
	if update.AccessRight != "" {
		merged.AccessRight = update.AccessRight
	}
	if update.License != "" {
		merged.License = update.License
	}
	if update.Version != "" {
		merged.Version = update.Version
	}
	if update.DOI != "" {
		merged.DOI = update.DOI
	}
	if update.Communities != nil {
		merged.Communities = update.Communities
	}

	return merged
}

func unionStrings(existing, added []string) []string {
	if len(added) == 0 {
		return existing
	}
	seen := make(map[string]struct{}, len(existing)+len(added))
	merged := make([]string, 0, len(existing)+len(added))
	for _, s := range existing {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		merged = append(merged, s)
	}
	for _, s := range added {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		merged = append(merged, s)
	}
	return merged
}

func unionCreators(existing, added []Creator) []Creator {
	if len(added) == 0 {
		return existing
	}
	seen := make(map[Creator]struct{}, len(existing)+len(added))
	merged := make([]Creator, 0, len(existing)+len(added))
	for _, c := range existing {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		merged = append(merged, c)
	}
	for _, c := range added {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		merged = append(merged, c)
	}
	return merged
}
