package domain

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// FileType is the source format of an uploaded document
type FileType string

const (
	FileTypePDF  FileType = "pdf"
	FileTypeDOCX FileType = "docx"
	FileTypeTXT  FileType = "txt"
	FileTypeXLSX FileType = "xlsx"
)

// Document is the metadata record that owns a set of chunks
type Document struct {
	ID         string
	Title      string
	FileName   string
	FileType   FileType
	FilePath   *string
	UploadedAt time.Time
}

// NewDocument creates a new Document instance
func NewDocument(id, title, fileName string, fileType FileType, uploadedAt time.Time) *Document {
	return &Document{
		ID:         id,
		Title:      title,
		FileName:   fileName,
		FileType:   fileType,
		UploadedAt: uploadedAt,
	}
}

// ValidateDocument validates a Document instance
func ValidateDocument(d *Document) error {
	if d == nil {
		return fmt.Errorf("document cannot be nil")
	}
	if d.ID == "" {
		return fmt.Errorf("document ID is required")
	}
	if strings.TrimSpace(d.Title) == "" {
		return fmt.Errorf("document Title is required")
	}
	if d.FileName == "" {
		return fmt.Errorf("document FileName is required")
	}
	if !IsValidFileType(d.FileType) {
		return fmt.Errorf("document FileType is invalid: %s", d.FileType)
	}
	return nil
}

// IsValidFileType checks if a FileType is one of the accepted formats
func IsValidFileType(t FileType) bool {
	switch t {
	case FileTypePDF, FileTypeDOCX, FileTypeTXT, FileTypeXLSX:
		return true
	}
	return false
}

// DetectFileType maps a file name and optional MIME type to a FileType.
// Legacy .xls workbooks are stored as xlsx.
func DetectFileType(fileName, mimeType string) (FileType, error) {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(fileName), ".")) {
	case "pdf":
		return FileTypePDF, nil
	case "docx":
		return FileTypeDOCX, nil
	case "txt", "text":
		return FileTypeTXT, nil
	case "xlsx", "xls":
		return FileTypeXLSX, nil
	}

	switch mimeType {
	case "application/pdf":
		return FileTypePDF, nil
	case "application/vnd.openxmlformats-officedocument.wordprocessingml.document":
		return FileTypeDOCX, nil
	case "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "application/vnd.ms-excel":
		return FileTypeXLSX, nil
	}
	if strings.HasPrefix(mimeType, "text/plain") {
		return FileTypeTXT, nil
	}

	return "", ErrInvalidFileType
}

// TitleFromFileName strips the extension to derive a default title.
func TitleFromFileName(fileName string) string {
	base := filepath.Base(fileName)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// StoredFile describes an original file as the object store reports it.
type StoredFile struct {
	Key         string
	Size        int64
	ContentType string
	ETag        string
}

// ObjectKey is the storage key for a document's original file.
func ObjectKey(documentID, fileName string) string {
	return fmt.Sprintf("documents/%s/%s", documentID, filepath.Base(fileName))
}
