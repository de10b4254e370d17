package repositories

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/mietzen/catch-all-autofill/internal/models"
	"github.com/mietzen/catch-all-autofill/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(shared.MemoryDatabase)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := shared.RunMigrations(context.Background(), db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

func TestNextSequence(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	for want := 1; want <= 3; want++ {
		got, err := NextSequence(ctx, db, "usage_log")
		if err != nil {
			t.Fatalf("NextSequence failed: %v", err)
		}
		if got != want {
			t.Errorf("expected sequence %d, got %d", want, got)
		}
	}

	if _, err := NextSequence(ctx, db, "missing"); !errors.Is(err, shared.ErrStorage) {
		t.Errorf("expected ErrStorage for unknown table, got %v", err)
	}
}

func TestKVRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("GetMissing", func(t *testing.T) {
		repo := NewKVRepository(setupTestDB(t))

		if _, err := repo.Get(ctx, "nope"); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("SetOverwrites", func(t *testing.T) {
		repo := NewKVRepository(setupTestDB(t))

		if err := repo.Set(ctx, "k", []byte("one")); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
		if err := repo.Set(ctx, "k", []byte("two")); err != nil {
			t.Fatalf("Set failed: %v", err)
		}

		got, err := repo.Get(ctx, "k")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if string(got) != "two" {
			t.Errorf("expected %q, got %q", "two", got)
		}
	})

	t.Run("PrefixIsLiteral", func(t *testing.T) {
		repo := NewKVRepository(setupTestDB(t))

		for _, key := range []string{"wordlist_abc", "wordlistX", "local_wordlist_en", "settings"} {
			if err := repo.Set(ctx, key, []byte("v")); err != nil {
				t.Fatalf("Set(%s) failed: %v", key, err)
			}
		}

		keys, err := repo.Keys(ctx, "wordlist_")
		if err != nil {
			t.Fatalf("Keys failed: %v", err)
		}
		if len(keys) != 1 || keys[0] != "wordlist_abc" {
			t.Errorf("expected [wordlist_abc], got %v", keys)
		}

		all, err := repo.Keys(ctx, "")
		if err != nil {
			t.Fatalf("Keys failed: %v", err)
		}
		if len(all) != 4 {
			t.Errorf("expected 4 keys, got %v", all)
		}
	})

	t.Run("DeletePrefix", func(t *testing.T) {
		repo := NewKVRepository(setupTestDB(t))

		for _, key := range []string{"wordlist_a", "wordlist_b", "settings"} {
			if err := repo.Set(ctx, key, []byte("v")); err != nil {
				t.Fatalf("Set(%s) failed: %v", key, err)
			}
		}

		n, err := repo.DeletePrefix(ctx, "wordlist_")
		if err != nil {
			t.Fatalf("DeletePrefix failed: %v", err)
		}
		if n != 2 {
			t.Errorf("expected 2 deletions, got %d", n)
		}

		if _, err := repo.Get(ctx, "settings"); err != nil {
			t.Errorf("settings should survive prefix delete: %v", err)
		}
	})

	t.Run("DeletePrefixEmpty", func(t *testing.T) {
		repo := NewKVRepository(setupTestDB(t))

		if _, err := repo.DeletePrefix(ctx, ""); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		repo := NewKVRepository(setupTestDB(t))

		if err := repo.Set(ctx, "k", []byte("v")); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
		if err := repo.Delete(ctx, "k"); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if err := repo.Delete(ctx, "k"); err != nil {
			t.Errorf("deleting a missing key should not fail: %v", err)
		}
		if _, err := repo.Get(ctx, "k"); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound after delete, got %v", err)
		}
	})
}

func TestUsageLogRepository(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	appendAll := func(t *testing.T, repo *UsageLogRepository, records ...models.UsageRecord) {
		t.Helper()
		for i := range records {
			if err := repo.Append(ctx, &records[i]); err != nil {
				t.Fatalf("Append failed: %v", err)
			}
			if records[i].ID == "" {
				t.Fatal("ID should be set after append")
			}
		}
	}

	t.Run("AllKeepsInsertionOrder", func(t *testing.T) {
		repo := NewUsageLogRepository(setupTestDB(t))
		appendAll(t, repo,
			models.NewUsageRecord("b.com", "late@x.com", base.Add(time.Hour)),
			models.NewUsageRecord("a.com", "early@x.com", base),
		)

		all, err := repo.All(ctx)
		if err != nil {
			t.Fatalf("All failed: %v", err)
		}
		if len(all) != 2 {
			t.Fatalf("expected 2 records, got %d", len(all))
		}
		if all[0].Alias != "late@x.com" || all[1].Alias != "early@x.com" {
			t.Errorf("expected insertion order, got %v", all)
		}
		if !all[1].CreatedAt.Equal(base) {
			t.Errorf("expected timestamp %v, got %v", base, all[1].CreatedAt)
		}
	})

	t.Run("Exists", func(t *testing.T) {
		repo := NewUsageLogRepository(setupTestDB(t))
		appendAll(t, repo, models.NewUsageRecord("a.com", "one@x.com", base))

		for alias, want := range map[string]bool{"one@x.com": true, "two@x.com": false} {
			got, err := repo.Exists(ctx, alias)
			if err != nil {
				t.Fatalf("Exists failed: %v", err)
			}
			if got != want {
				t.Errorf("Exists(%s) = %v, want %v", alias, got, want)
			}
		}
	})

	t.Run("DeleteExactTriple", func(t *testing.T) {
		repo := NewUsageLogRepository(setupTestDB(t))
		first := models.NewUsageRecord("a.com", "x@d.com", base)
		second := models.NewUsageRecord("a.com", "x@d.com", base.Add(time.Minute))
		appendAll(t, repo, first, second)

		deleted, err := repo.Delete(ctx, models.NewUsageRecord("b.com", "x@d.com", base))
		if err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if deleted {
			t.Error("a record with a different domain must not be deleted")
		}

		deleted, err = repo.Delete(ctx, first)
		if err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if !deleted {
			t.Fatal("expected the exact match to be deleted")
		}

		all, err := repo.All(ctx)
		if err != nil {
			t.Fatalf("All failed: %v", err)
		}
		if len(all) != 1 || !all[0].Matches(second) {
			t.Errorf("expected only the later record to remain, got %v", all)
		}
	})

	t.Run("DuplicateTriple", func(t *testing.T) {
		repo := NewUsageLogRepository(setupTestDB(t))
		appendAll(t, repo, models.NewUsageRecord("a.com", "x@d.com", base))

		dup := models.NewUsageRecord("a.com", "x@d.com", base)
		if err := repo.Append(ctx, &dup); !errors.Is(err, shared.ErrDuplicateRecord) {
			t.Errorf("expected ErrDuplicateRecord, got %v", err)
		}
	})

	t.Run("EmptyAlias", func(t *testing.T) {
		repo := NewUsageLogRepository(setupTestDB(t))

		record := models.NewUsageRecord("a.com", "", base)
		if err := repo.Append(ctx, &record); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("ListByDomainAndSearch", func(t *testing.T) {
		repo := NewUsageLogRepository(setupTestDB(t))
		appendAll(t, repo,
			models.NewUsageRecord("shop.example.com", "a@x.com", base),
			models.NewUsageRecord("example.com", "b@x.com", base),
			models.NewUsageRecord("other.org", "c@x.com", base),
		)

		exact, err := repo.ListByDomain(ctx, "example.com")
		if err != nil {
			t.Fatalf("ListByDomain failed: %v", err)
		}
		if len(exact) != 1 || exact[0].Alias != "b@x.com" {
			t.Errorf("expected one exact match, got %v", exact)
		}

		found, err := repo.Search(ctx, "example")
		if err != nil {
			t.Fatalf("Search failed: %v", err)
		}
		if len(found) != 2 {
			t.Errorf("expected 2 substring matches, got %v", found)
		}
	})

	t.Run("ClearAndCount", func(t *testing.T) {
		repo := NewUsageLogRepository(setupTestDB(t))
		appendAll(t, repo,
			models.NewUsageRecord("a.com", "a@x.com", base),
			models.NewUsageRecord("b.com", "b@x.com", base),
		)

		if n, _ := repo.Count(ctx); n != 2 {
			t.Errorf("expected count 2, got %d", n)
		}
		if err := repo.Clear(ctx); err != nil {
			t.Fatalf("Clear failed: %v", err)
		}
		if n, _ := repo.Count(ctx); n != 0 {
			t.Errorf("expected empty log, got %d", n)
		}
	})

	t.Run("Replace", func(t *testing.T) {
		repo := NewUsageLogRepository(setupTestDB(t))
		appendAll(t, repo, models.NewUsageRecord("old.com", "old@x.com", base))

		incoming := []models.UsageRecord{
			models.NewUsageRecord("a.com", "a@x.com", base),
			models.NewUsageRecord("a.com", "a@x.com", base),
			models.NewUsageRecord("b.com", "b@x.com", base.Add(time.Second)),
		}
		stored, err := repo.Replace(ctx, incoming)
		if err != nil {
			t.Fatalf("Replace failed: %v", err)
		}
		if stored != 2 {
			t.Errorf("expected 2 stored records, got %d", stored)
		}

		all, err := repo.All(ctx)
		if err != nil {
			t.Fatalf("All failed: %v", err)
		}
		if len(all) != 2 || all[0].Alias != "a@x.com" || all[1].Alias != "b@x.com" {
			t.Errorf("unexpected log after replace: %v", all)
		}
	})
}

func TestSettingsRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("Defaults", func(t *testing.T) {
		repo := NewSettingsRepository(NewKVRepository(setupTestDB(t)))

		settings, err := repo.Load(ctx)
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if settings.WordlistSelection != models.DefaultSelection {
			t.Errorf("expected default selection, got %q", settings.WordlistSelection)
		}
		if settings.GitHub.Branch != models.DefaultBranch {
			t.Errorf("expected default branch, got %q", settings.GitHub.Branch)
		}
	})

	t.Run("SaveLoad", func(t *testing.T) {
		repo := NewSettingsRepository(NewKVRepository(setupTestDB(t)))

		want := models.DefaultSettings()
		want.CatchAllDomain = "example.com"
		want.WordlistSelection = models.CustomSelection
		want.WordlistURL = "https://example.com/words.txt"
		if err := repo.Save(ctx, want); err != nil {
			t.Fatalf("Save failed: %v", err)
		}

		got, err := repo.Load(ctx)
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if got.CatchAllDomain != want.CatchAllDomain || got.Selector() != want.Selector() {
			t.Errorf("expected %+v, got %+v", want, got)
		}
	})

	t.Run("UpdateAbortsOnError", func(t *testing.T) {
		repo := NewSettingsRepository(NewKVRepository(setupTestDB(t)))

		_, err := repo.Update(ctx, func(s *models.Settings) error {
			s.CatchAllDomain = "nope.com"
			return shared.ErrInvalidDomain
		})
		if !errors.Is(err, shared.ErrInvalidDomain) {
			t.Fatalf("expected ErrInvalidDomain, got %v", err)
		}

		settings, err := repo.Load(ctx)
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if settings.CatchAllDomain != "" {
			t.Errorf("failed update must not be saved, got %q", settings.CatchAllDomain)
		}
	})
}

func TestDataMigrator(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	kv := NewKVRepository(db)
	settings := NewSettingsRepository(kv)
	usage := NewUsageLogRepository(db)

	if _, err := db.Exec(`INSERT INTO usage_log (id, sequence, domain, alias, created_at) VALUES ('legacy', 100, '', 'old@x.com', '')`); err != nil {
		t.Fatalf("failed to insert legacy row: %v", err)
	}

	migrator := NewDataMigrator(settings, usage, shared.NewLogger(io.Discard))
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	migrator.now = func() time.Time { return fixed }

	from, to, err := migrator.Migrate(ctx)
	if err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}
	if from != 0 || to != models.DataVersion {
		t.Errorf("expected 0 -> %d, got %d -> %d", models.DataVersion, from, to)
	}

	all, err := usage.All(ctx)
	if err != nil {
		t.Fatalf("All failed: %v", err)
	}
	if len(all) != 1 || all[0].Domain != UnknownDomain || !all[0].CreatedAt.Equal(fixed) {
		t.Errorf("expected backfilled record, got %+v", all)
	}

	stored, err := settings.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if stored.InstallationID == "" {
		t.Error("expected an installation id")
	}

	t.Run("Idempotent", func(t *testing.T) {
		from, to, err := migrator.Migrate(ctx)
		if err != nil {
			t.Fatalf("second Migrate failed: %v", err)
		}
		if from != models.DataVersion || to != models.DataVersion {
			t.Errorf("expected no-op, got %d -> %d", from, to)
		}

		again, err := settings.Load(ctx)
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if again.InstallationID != stored.InstallationID {
			t.Error("installation id must not change")
		}
	})
}
