// Package drive uploads generated documents to a Google Drive folder.
package drive

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"invoicer/internal/logger"
)

// Scope is the narrowest scope that allows uploads: files created by the app.
const Scope = drive.DriveFileScope

// Service uploads files to Drive.
type Service struct {
	files *drive.FilesService
	log   zerolog.Logger
}

// NewService creates a Drive client. Pass option.WithHTTPClient with a
// client from gauth.
func NewService(ctx context.Context, opts ...option.ClientOption) (*Service, error) {
	const op = "drive.NewService"

	svc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create drive service: %w", op, err)
	}
	return &Service{
		files: svc.Files,
		log:   logger.WithComponent("drive"),
	}, nil
}

// Upload stores path in folderID and returns the file id. A file with the
// same name already in the folder is not uploaded again; its id is
// returned, so a failed run can simply be repeated.
func (s *Service) Upload(ctx context.Context, path, folderID string) (string, error) {
	const op = "drive.Upload"
	name := filepath.Base(path)

	existing, err := s.files.List().
		Q(existsQuery(name, folderID)).
		Fields("files(id, name)").
		PageSize(1).
		SupportsAllDrives(true).
		IncludeItemsFromAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("%s: failed to list folder %s: %w", op, folderID, err)
	}
	if len(existing.Files) > 0 {
		id := existing.Files[0].Id
		s.log.Info().Str("name", name).Str("file_id", id).Msg("File already in folder, not uploading again")
		return id, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	defer f.Close()

	created, err := s.files.Create(&drive.File{
		Name:    name,
		Parents: []string{folderID},
	}).
		Media(f, googleapi.ContentType(contentType(name))).
		Fields("id").
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("%s: failed to upload %s: %w", op, name, err)
	}

	s.log.Info().
		Str("name", name).
		Str("folder_id", folderID).
		Str("file_id", created.Id).
		Msg("File uploaded")
	return created.Id, nil
}

// existsQuery finds non-trashed files named name directly in folderID.
func existsQuery(name, folderID string) string {
	return fmt.Sprintf("name = '%s' and '%s' in parents and trashed = false",
		escapeQuery(name), escapeQuery(folderID))
}

func escapeQuery(s string) string {
	return strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(s)
}

func contentType(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return "application/pdf"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	}
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
