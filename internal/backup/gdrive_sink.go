package backup

import (
	"bytes"
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

const (
	gdriveFolderName = "notes-backup"
	gdriveFolderMime = "application/vnd.google-apps.folder"
)

type GoogleDriveSink struct {
	service  *drive.Service
	folderID string
}

func NewGoogleDriveSink(ctx context.Context, credentialsJSON []byte) (*GoogleDriveSink, error) {
	// https://github.com/googleapis/google-api-go-client/blob/master/drive/v3/drive-gen.go
	driveService, err := drive.NewService(ctx, option.WithCredentialsJSON(credentialsJSON))
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve drive client: %w", err)
	}

	s := &GoogleDriveSink{
		service: driveService,
	}
	folderID, err := s.findOrCreateFolder(ctx)
	if err != nil {
		return nil, err
	}
	s.folderID = folderID

	return s, nil
}

func (s *GoogleDriveSink) findOrCreateFolder(ctx context.Context) (string, error) {
	query := fmt.Sprintf("mimeType = '%s' and trashed = false and name = '%s'", gdriveFolderMime, gdriveFolderName)
	folders, err := s.service.
		Files.List().
		Q(query).
		Fields("files(id, name)").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("unable to retrieve files: %w", err)
	}

	switch len(folders.Files) {
	case 0:
		log.Println("backups folder not found, creating it")
	case 1:
		log.Debugf("backups folder found: %s", folders.Files[0].Id)
		return folders.Files[0].Id, nil
	default:
		log.Warnf("found %d backups folders, will take the first one: %s", len(folders.Files), folders.Files[0].Id)
		return folders.Files[0].Id, nil
	}

	folderMeta := &drive.File{
		Name:     gdriveFolderName,
		MimeType: gdriveFolderMime,
	}
	created, err := s.service.
		Files.Create(folderMeta).
		Fields("id").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("create backups folder: %w", err)
	}
	log.Printf("new backups folder created: %s", created.Id)

	return created.Id, nil
}

func (s *GoogleDriveSink) Store(ctx context.Context, name, contentType string, data []byte) (string, error) {
	fileMeta := &drive.File{
		Name:     name,
		MimeType: contentType,
		Parents:  []string{s.folderID},
	}
	file, err := s.service.
		Files.Create(fileMeta).
		Fields("id, parents").
		Media(bytes.NewReader(data)).
		Context(ctx).
		Do()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("gdrive://%s/%s (%s)", gdriveFolderName, name, file.Id), nil
}
