package registry

import (
	"os"
	"path/filepath"

	"github.com/qanoon-labs/qanoon-cli/internal/model"
)

// requiredFields is the fixed list a record must populate before a scraper
// may trust it enough to skip a re-fetch.
var requiredFields = []string{
	"id",
	"title",
	"source_page",
	"source_url",
	"source_website",
	"raw_path",
	"download_date",
	"content_type",
	"file_size",
	"file_format",
	"language",
	"status",
}

// Validate decides, for a known source_url, whether the catalog entry is
// trustworthy enough to skip re-fetching. Three-way outcome:
//
//   - no record, or artifact gone from disk → needs_redownload
//   - record present, artifact present, fields missing → metadata patch only
//   - everything present → valid
//
// baseDir resolves the record's relative raw_path.
func (m *Manager) Validate(sourceURL, baseDir string) (*model.ValidationResult, error) {
	rec, err := m.GetBySourceURL(sourceURL)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return &model.ValidationResult{
			IsValid:         false,
			MissingFields:   []string{},
			NeedsRedownload: true,
			Reason:          "not in metadata",
		}, nil
	}

	missing := missingFields(rec)

	needsRedownload := rec.RawPath == ""
	if !needsRedownload {
		if _, statErr := os.Stat(filepath.Join(baseDir, rec.RawPath)); statErr != nil {
			needsRedownload = true
		}
	}

	res := &model.ValidationResult{
		IsValid:         len(missing) == 0 && !needsRedownload,
		MissingFields:   missing,
		NeedsRedownload: needsRedownload,
	}
	switch {
	case needsRedownload:
		res.Reason = "file missing on disk"
	case len(missing) > 0:
		res.Reason = "missing fields"
	default:
		res.Reason = "valid"
	}
	return res, nil
}

func missingFields(rec *model.DocumentRecord) []string {
	missing := []string{}
	for _, field := range requiredFields {
		if fieldEmpty(rec, field) {
			missing = append(missing, field)
		}
	}
	return missing
}

func fieldEmpty(rec *model.DocumentRecord, field string) bool {
	switch field {
	case "id":
		return rec.ID == ""
	case "title":
		return rec.Title == ""
	case "source_page":
		return rec.SourcePage == ""
	case "source_url":
		return rec.SourceURL == ""
	case "source_website":
		return rec.SourceWebsite == ""
	case "raw_path":
		return rec.RawPath == ""
	case "download_date":
		return rec.DownloadDate == ""
	case "content_type":
		return rec.ContentType == ""
	case "file_size":
		return rec.FileSize == nil
	case "file_format":
		return rec.FileFormat == ""
	case "language":
		return rec.Language == ""
	case "status":
		return rec.Status == ""
	}
	return false
}
