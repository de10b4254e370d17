package tasks

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mietzen/catch-all-autofill/internal/backup"
	"github.com/mietzen/catch-all-autofill/internal/models"
	"github.com/mietzen/catch-all-autofill/internal/services"
	"github.com/mietzen/catch-all-autofill/internal/shared"
)

// ContentsClient is the remote file store. [services.GitHubClient] satisfies it.
type ContentsClient interface {
	Repository(ctx context.Context, repo string) (*services.Repository, error)
	GetFile(ctx context.Context, repo, path, branch string) (*services.RemoteFile, error)
	PutFile(ctx context.Context, repo, path string, req services.PutFileRequest) (*services.PutFileResponse, error)
}

// ClientFactory builds a client for a token.
type ClientFactory func(ctx context.Context, token string) ContentsClient

// GitHubClientFactory returns a factory for GitHub clients configured from cfg.
func GitHubClientFactory(cfg shared.BackupConfig, logger *log.Logger) ClientFactory {
	return func(ctx context.Context, token string) ContentsClient {
		return services.NewGitHubClient(ctx, token, logger,
			services.WithBaseURL(cfg.APIURL),
			services.WithRequestsPerSecond(cfg.RequestsPerSecond),
		)
	}
}

// SettingsStore reads and updates the settings record.
type SettingsStore interface {
	Load(ctx context.Context) (models.Settings, error)
	Update(ctx context.Context, fn func(*models.Settings) error) (models.Settings, error)
}

// Exporter builds and applies backup documents. [backup.Service] satisfies it.
type Exporter interface {
	Export(ctx context.Context) (*models.BackupDocument, error)
	Import(ctx context.Context, doc *models.BackupDocument) (backup.ImportResult, error)
}

// PushResult describes a stored remote backup.
type PushResult struct {
	Path     string `json:"path"`
	URL      string `json:"url"`
	SHA      string `json:"sha"`
	Replaced bool   `json:"replaced"`
}

// BackupEngine synchronises backup documents with a remote repository.
type BackupEngine struct {
	backups    Exporter
	settings   SettingsStore
	newClient  ClientFactory
	pathPrefix string
	logger     *log.Logger
	now        func() time.Time
}

// NewBackupEngine creates a BackupEngine storing files under pathPrefix.
func NewBackupEngine(backups Exporter, settings SettingsStore, newClient ClientFactory, pathPrefix string, logger *log.Logger) *BackupEngine {
	return &BackupEngine{
		backups:    backups,
		settings:   settings,
		newClient:  newClient,
		pathPrefix: pathPrefix,
		logger:     logger,
		now:        time.Now,
	}
}

// Configure validates and stores remote settings. An empty token keeps the stored one.
func (e *BackupEngine) Configure(ctx context.Context, gh models.GitHubSettings) (models.Settings, error) {
	return e.settings.Update(ctx, func(s *models.Settings) error {
		if gh.Token == "" {
			gh.Token = s.GitHub.Token
		}
		if err := backup.ValidateGitHub(gh); err != nil {
			return err
		}
		s.GitHub = gh
		return nil
	})
}

// TestConnection confirms the stored token can reach the configured repository.
func (e *BackupEngine) TestConnection(ctx context.Context) (*services.Repository, error) {
	gh, err := e.configured(ctx)
	if err != nil {
		return nil, err
	}
	return e.newClient(ctx, gh.Token).Repository(ctx, gh.Repository)
}

// Status returns the outcome of the last push.
func (e *BackupEngine) Status(ctx context.Context) (models.BackupStatus, error) {
	settings, err := e.settings.Load(ctx)
	if err != nil {
		return models.BackupStatus{}, err
	}
	return settings.LastBackup, nil
}

// Push uploads a snapshot and records the outcome in settings.
//
// The current revision of the target file is read first and sent back with the write, so a
// concurrent remote change surfaces as [shared.ErrVersionConflict] instead of being overwritten.
func (e *BackupEngine) Push(ctx context.Context, manual bool, progress chan<- ProgressUpdate) (*PushResult, error) {
	gh, err := e.configured(ctx)
	if err != nil {
		return nil, err
	}

	result, err := e.push(ctx, gh, manual, progress)
	if recErr := e.record(ctx, result, err); recErr != nil {
		e.logger.Error("failed to record backup status", "err", recErr)
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (e *BackupEngine) push(ctx context.Context, gh models.GitHubSettings, manual bool, progress chan<- ProgressUpdate) (*PushResult, error) {
	const total = 4
	now := e.now()

	doc, err := e.backups.Export(ctx)
	if err != nil {
		return nil, err
	}
	sendProgress(progress, snapshotUpdate(1, total, len(doc.UsageLog)))

	content, err := backup.MarshalDocument(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode backup: %w", err)
	}

	client := e.newClient(ctx, gh.Token)
	path := backup.RemotePath(e.pathPrefix, backup.RemoteFilename(now, manual))
	branch := gh.BranchOrDefault()

	existing, err := client.GetFile(ctx, gh.Repository, path, branch)
	if err != nil {
		return nil, err
	}

	req := services.PutFileRequest{
		Message: backup.CommitMessage(now, manual),
		Content: content,
		Branch:  branch,
	}
	if existing != nil {
		req.SHA = existing.SHA
	}
	sendProgress(progress, revisionUpdate(2, total, path, req.SHA))

	sendProgress(progress, uploadUpdate(3, total, path))
	resp, err := client.PutFile(ctx, gh.Repository, path, req)
	if err != nil {
		return nil, err
	}

	result := &PushResult{Path: path, URL: resp.HTMLURL, SHA: resp.SHA, Replaced: existing != nil}
	sendProgress(progress, completeUpdate(4, total, result))
	e.logger.Info("backup pushed", "repo", gh.Repository, "path", path, "sha", shortSHA(resp.SHA))
	return result, nil
}

// AutoBackup pushes when automatic backups are enabled and configured; otherwise it does nothing.
func (e *BackupEngine) AutoBackup(ctx context.Context) error {
	settings, err := e.settings.Load(ctx)
	if err != nil {
		return err
	}
	if !settings.GitHub.AutoBackup || !settings.GitHub.Configured() {
		e.logger.Debug("auto backup skipped", "enabled", settings.GitHub.AutoBackup)
		return nil
	}

	_, err = e.Push(ctx, false, nil)
	return err
}

// Restore downloads path from the repository and imports it.
func (e *BackupEngine) Restore(ctx context.Context, path string, progress chan<- ProgressUpdate) (backup.ImportResult, error) {
	const total = 2

	gh, err := e.configured(ctx)
	if err != nil {
		return backup.ImportResult{}, err
	}

	sendProgress(progress, downloadUpdate(1, total, path))
	file, err := e.newClient(ctx, gh.Token).GetFile(ctx, gh.Repository, path, gh.BranchOrDefault())
	if err != nil {
		return backup.ImportResult{}, err
	}
	if file == nil {
		return backup.ImportResult{}, fmt.Errorf("%w: %w: %s", shared.ErrRemoteBackup, shared.ErrNotFound, path)
	}

	doc, err := backup.ParseDocument(bytes.NewReader(file.Content))
	if err != nil {
		return backup.ImportResult{}, err
	}

	result, err := e.backups.Import(ctx, doc)
	if err != nil {
		return backup.ImportResult{}, err
	}
	sendProgress(progress, importUpdate(2, total, result))
	return result, nil
}

func (e *BackupEngine) configured(ctx context.Context) (models.GitHubSettings, error) {
	settings, err := e.settings.Load(ctx)
	if err != nil {
		return models.GitHubSettings{}, err
	}

	gh := settings.GitHub
	gh.Branch = gh.BranchOrDefault()
	if err := backup.ValidateGitHub(gh); err != nil {
		return models.GitHubSettings{}, fmt.Errorf("%w: %w", shared.ErrBackupNotConfigured, err)
	}
	return gh, nil
}

func (e *BackupEngine) record(ctx context.Context, result *PushResult, pushErr error) error {
	if errors.Is(pushErr, context.Canceled) {
		return nil
	}

	_, err := e.settings.Update(ctx, func(s *models.Settings) error {
		if pushErr != nil {
			s.LastBackup.FailedAt = models.NormalizeTime(e.now())
			s.LastBackup.Error = pushErr.Error()
			return nil
		}
		s.LastBackup = models.BackupStatus{Date: models.NormalizeTime(e.now()), URL: result.URL}
		return nil
	})
	return err
}
