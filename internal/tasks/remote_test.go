package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mietzen/catch-all-autofill/internal/backup"
	"github.com/mietzen/catch-all-autofill/internal/models"
	"github.com/mietzen/catch-all-autofill/internal/services"
	"github.com/mietzen/catch-all-autofill/internal/shared"
)

// fakeRemote is an in-memory contents store that enforces revision checks.
type fakeRemote struct {
	mu      sync.Mutex
	files   map[string]*services.RemoteFile
	puts    []services.PutFileRequest
	token   string
	repoErr error
	putErr  error
	rev     int
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{files: map[string]*services.RemoteFile{}}
}

func (f *fakeRemote) factory(_ context.Context, token string) ContentsClient {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.token = token
	return f
}

func (f *fakeRemote) Repository(_ context.Context, repo string) (*services.Repository, error) {
	if f.repoErr != nil {
		return nil, f.repoErr
	}
	return &services.Repository{FullName: repo, DefaultBranch: "main"}, nil
}

func (f *fakeRemote) GetFile(_ context.Context, repo, path, branch string) (*services.RemoteFile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	file, ok := f.files[repo+"@"+branch+":"+path]
	if !ok {
		return nil, nil
	}
	cp := *file
	return &cp, nil
}

func (f *fakeRemote) PutFile(_ context.Context, repo, path string, req services.PutFileRequest) (*services.PutFileResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts = append(f.puts, req)
	if f.putErr != nil {
		return nil, f.putErr
	}

	key := repo + "@" + req.Branch + ":" + path
	if existing, ok := f.files[key]; ok && existing.SHA != req.SHA {
		return nil, fmt.Errorf("%w: %w", shared.ErrRemoteBackup, shared.ErrVersionConflict)
	}

	f.rev++
	sha := fmt.Sprintf("sha%d", f.rev)
	url := "https://github.test/" + repo + "/blob/" + req.Branch + "/" + path
	f.files[key] = &services.RemoteFile{Path: path, SHA: sha, HTMLURL: url, Content: req.Content}
	return &services.PutFileResponse{Path: path, SHA: sha, HTMLURL: url}, nil
}

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newEngine(t *testing.T, f *fixture, remote *fakeRemote, prefix string) *BackupEngine {
	t.Helper()
	e := NewBackupEngine(f.backups, f.settings, remote.factory, prefix, shared.NewLogger(io.Discard))
	e.now = func() time.Time { return fixedNow }
	return e
}

func configured(s *models.Settings) {
	s.CatchAllDomain = "example.com"
	s.GitHub = models.GitHubSettings{Token: "ghp_x", Repository: "me/backups", Branch: "main", AutoBackup: true}
}

func TestBackupEngine(t *testing.T) {
	ctx := context.Background()

	t.Run("NotConfigured", func(t *testing.T) {
		f := newFixture(t)
		e := newEngine(t, f, newFakeRemote(), "")

		if _, err := e.Push(ctx, true, nil); !errors.Is(err, shared.ErrBackupNotConfigured) {
			t.Errorf("expected ErrBackupNotConfigured, got %v", err)
		}
		if _, err := e.TestConnection(ctx); !errors.Is(err, shared.ErrBackupNotConfigured) {
			t.Errorf("expected ErrBackupNotConfigured, got %v", err)
		}
	})

	t.Run("Configure", func(t *testing.T) {
		f := newFixture(t)
		e := newEngine(t, f, newFakeRemote(), "")

		if _, err := e.Configure(ctx, models.GitHubSettings{Token: "t", Repository: "bad", Branch: "main"}); !errors.Is(err, shared.ErrInvalidConfig) {
			t.Fatalf("expected ErrInvalidConfig, got %v", err)
		}

		if _, err := e.Configure(ctx, models.GitHubSettings{Token: "t1", Repository: "me/backups", Branch: "main"}); err != nil {
			t.Fatalf("Configure failed: %v", err)
		}
		settings, err := e.Configure(ctx, models.GitHubSettings{Repository: "me/other", Branch: "dev", AutoBackup: true})
		if err != nil {
			t.Fatalf("Configure failed: %v", err)
		}
		if settings.GitHub.Token != "t1" || settings.GitHub.Repository != "me/other" || !settings.GitHub.AutoBackup {
			t.Errorf("expected token kept and other fields replaced, got %+v", settings.GitHub)
		}
	})

	t.Run("TestConnection", func(t *testing.T) {
		f := newFixture(t)
		f.configure(t, configured)
		remote := newFakeRemote()
		e := newEngine(t, f, remote, "")

		repo, err := e.TestConnection(ctx)
		if err != nil {
			t.Fatalf("TestConnection failed: %v", err)
		}
		if repo.FullName != "me/backups" || remote.token != "ghp_x" {
			t.Errorf("unexpected repository %+v with token %q", repo, remote.token)
		}
	})

	t.Run("Push", func(t *testing.T) {
		f := newFixture(t)
		f.configure(t, configured)
		remote := newFakeRemote()
		e := newEngine(t, f, remote, "backups")

		progress := make(chan ProgressUpdate, 10)
		result, err := e.Push(ctx, true, progress)
		if err != nil {
			t.Fatalf("Push failed: %v", err)
		}
		close(progress)

		if result.Path != "backups/catch-all-email-manual-backup-2024-05-01T12-00-00.json" {
			t.Errorf("unexpected path %q", result.Path)
		}
		if result.Replaced {
			t.Error("first push must create the file")
		}
		if len(remote.puts) != 1 || remote.puts[0].SHA != "" || remote.puts[0].Message != "Manual backup: 2024-05-01T12:00:00.000Z" {
			t.Errorf("unexpected put %+v", remote.puts)
		}
		if strings.Contains(string(remote.puts[0].Content), "ghp_x") {
			t.Error("the token must not be uploaded")
		}

		var phases []Phase
		for u := range progress {
			phases = append(phases, u.Phase)
		}
		if len(phases) != 4 || phases[0] != Snapshot || phases[3] != Complete {
			t.Errorf("unexpected phases %v", phases)
		}

		status, err := e.Status(ctx)
		if err != nil {
			t.Fatalf("Status failed: %v", err)
		}
		if status.URL != result.URL || status.Error != "" || !status.Date.Equal(fixedNow) {
			t.Errorf("unexpected status %+v", status)
		}
	})

	t.Run("PushReplacesWithRevision", func(t *testing.T) {
		f := newFixture(t)
		f.configure(t, configured)
		remote := newFakeRemote()
		e := newEngine(t, f, remote, "")

		if _, err := e.Push(ctx, false, nil); err != nil {
			t.Fatalf("first Push failed: %v", err)
		}
		result, err := e.Push(ctx, false, nil)
		if err != nil {
			t.Fatalf("second Push failed: %v", err)
		}
		if !result.Replaced || remote.puts[1].SHA != "sha1" {
			t.Errorf("expected the second write to carry the previous revision, got %+v", remote.puts[1])
		}
	})

	t.Run("PushFailureRecorded", func(t *testing.T) {
		f := newFixture(t)
		f.configure(t, configured)
		remote := newFakeRemote()
		e := newEngine(t, f, remote, "")

		if _, err := e.Push(ctx, false, nil); err != nil {
			t.Fatalf("Push failed: %v", err)
		}
		remote.putErr = fmt.Errorf("%w: %w", shared.ErrRemoteBackup, shared.ErrVersionConflict)

		if _, err := e.Push(ctx, false, nil); !errors.Is(err, shared.ErrVersionConflict) {
			t.Fatalf("expected ErrVersionConflict, got %v", err)
		}

		status, _ := e.Status(ctx)
		if status.Error == "" {
			t.Error("expected the failure to be recorded")
		}
		if !status.FailedAt.Equal(fixedNow) {
			t.Errorf("expected failure time %v, got %v", fixedNow, status.FailedAt)
		}
		if status.URL == "" || status.Date.IsZero() {
			t.Error("a failed push must keep the last successful date and URL")
		}
	})

	t.Run("FirstPushFailureIsTimestamped", func(t *testing.T) {
		f := newFixture(t)
		f.configure(t, configured)
		remote := newFakeRemote()
		remote.putErr = errors.New("boom")
		e := newEngine(t, f, remote, "")

		if _, err := e.Push(ctx, true, nil); err == nil {
			t.Fatal("expected Push to fail")
		}

		status, err := e.Status(ctx)
		if err != nil {
			t.Fatalf("Status failed: %v", err)
		}
		if status.Error != "boom" || !status.FailedAt.Equal(fixedNow) {
			t.Errorf("expected timestamped failure, got %+v", status)
		}
		if !status.Date.IsZero() {
			t.Errorf("expected no successful backup date, got %v", status.Date)
		}
	})

	t.Run("PushNothingToExport", func(t *testing.T) {
		f := newFixture(t)
		f.configure(t, func(s *models.Settings) {
			configured(s)
			s.CatchAllDomain = ""
		})
		e := newEngine(t, f, newFakeRemote(), "")

		if _, err := e.Push(ctx, true, nil); !errors.Is(err, shared.ErrNothingToExport) {
			t.Errorf("expected ErrNothingToExport, got %v", err)
		}
	})

	t.Run("AutoBackup", func(t *testing.T) {
		f := newFixture(t)
		remote := newFakeRemote()
		e := newEngine(t, f, remote, "")

		if err := e.AutoBackup(ctx); err != nil {
			t.Fatalf("unconfigured AutoBackup should be a no-op: %v", err)
		}
		if len(remote.puts) != 0 {
			t.Error("expected no upload when auto backup is disabled")
		}

		f.configure(t, configured)
		if err := e.AutoBackup(ctx); err != nil {
			t.Fatalf("AutoBackup failed: %v", err)
		}
		if len(remote.puts) != 1 || !strings.HasPrefix(remote.puts[0].Message, "Auto-backup: ") {
			t.Errorf("unexpected puts %+v", remote.puts)
		}
	})

	t.Run("Restore", func(t *testing.T) {
		src := newFixture(t)
		src.configure(t, configured)
		rec := models.NewUsageRecord("shop.test", "alpha_bravo_123@example.com", fixedNow)
		if err := src.usage.Append(ctx, &rec); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
		remote := newFakeRemote()
		result, err := newEngine(t, src, remote, "").Push(ctx, true, nil)
		if err != nil {
			t.Fatalf("Push failed: %v", err)
		}

		dst := newFixture(t)
		dst.configure(t, func(s *models.Settings) {
			s.GitHub = models.GitHubSettings{Token: "ghp_y", Repository: "me/backups", Branch: "main"}
		})
		imported, err := newEngine(t, dst, remote, "").Restore(ctx, result.Path, nil)
		if err != nil {
			t.Fatalf("Restore failed: %v", err)
		}
		if imported.AliasesImported != 1 {
			t.Errorf("expected one alias restored, got %+v", imported)
		}

		exists, _ := dst.usage.Exists(ctx, "alpha_bravo_123@example.com")
		if !exists {
			t.Error("restored alias missing from usage log")
		}
		settings, _ := dst.settings.Load(ctx)
		if settings.CatchAllDomain != "example.com" || settings.GitHub.Token != "ghp_y" {
			t.Errorf("unexpected settings after restore %+v", settings)
		}
	})

	t.Run("RestoreMissing", func(t *testing.T) {
		f := newFixture(t)
		f.configure(t, configured)
		e := newEngine(t, f, newFakeRemote(), "")

		_, err := e.Restore(ctx, "nope.json", nil)
		if !errors.Is(err, shared.ErrNotFound) || !errors.Is(err, shared.ErrRemoteBackup) {
			t.Errorf("expected ErrRemoteBackup wrapping ErrNotFound, got %v", err)
		}
	})

	t.Run("RestoreGarbage", func(t *testing.T) {
		f := newFixture(t)
		f.configure(t, configured)
		remote := newFakeRemote()
		remote.files["me/backups@main:junk.json"] = &services.RemoteFile{SHA: "x", Content: []byte("<html>")}
		e := newEngine(t, f, remote, "")

		if _, err := e.Restore(ctx, "junk.json", nil); !errors.Is(err, shared.ErrInvalidBackupFormat) {
			t.Errorf("expected ErrInvalidBackupFormat, got %v", err)
		}
	})
}

func TestGitHubClientFactory(t *testing.T) {
	factory := GitHubClientFactory(shared.DefaultConfig().Backup, shared.NewLogger(io.Discard))
	if _, ok := factory(context.Background(), "t").(*services.GitHubClient); !ok {
		t.Error("expected a GitHub client")
	}
	var _ Exporter = (*backup.Service)(nil)
}
