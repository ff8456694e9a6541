package registry

import "github.com/qanoon-labs/qanoon-cli/internal/model"

// Patch is a partial update to a DocumentRecord. Nil fields are left
// untouched (shallow merge); ID is immutable and has no patch field.
type Patch struct {
	Title            *string
	SourcePage       *string
	SourceWebsite    *string
	RawPath          *string
	TextPath         *string
	DownloadDate     *string
	ContentType      *model.ContentType
	Section          *string
	Year             *int
	Court            *string
	FileSize         *int64
	FileFormat       *string
	Language         *string
	Status           *string
	ProcessingStatus *model.ProcessingStatus
}

// Apply merges the patch into rec.
func (p Patch) Apply(rec *model.DocumentRecord) {
	if p.Title != nil {
		rec.Title = *p.Title
	}
	if p.SourcePage != nil {
		rec.SourcePage = *p.SourcePage
	}
	if p.SourceWebsite != nil {
		rec.SourceWebsite = *p.SourceWebsite
	}
	if p.RawPath != nil {
		rec.RawPath = *p.RawPath
	}
	if p.TextPath != nil {
		rec.TextPath = p.TextPath
	}
	if p.DownloadDate != nil {
		rec.DownloadDate = *p.DownloadDate
	}
	if p.ContentType != nil {
		rec.ContentType = *p.ContentType
	}
	if p.Section != nil {
		rec.Section = *p.Section
	}
	if p.Year != nil {
		rec.Year = p.Year
	}
	if p.Court != nil {
		rec.Court = *p.Court
	}
	if p.FileSize != nil {
		rec.FileSize = p.FileSize
	}
	if p.FileFormat != nil {
		rec.FileFormat = *p.FileFormat
	}
	if p.Language != nil {
		rec.Language = *p.Language
	}
	if p.Status != nil {
		rec.Status = *p.Status
	}
	if p.ProcessingStatus != nil {
		rec.ProcessingStatus = *p.ProcessingStatus
	}
}

// Ptr returns a pointer to v. Convenience for building patches.
func Ptr[T any](v T) *T {
	return &v
}
