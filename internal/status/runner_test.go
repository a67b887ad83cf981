package status_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"libwatch/internal/batch"
	"libwatch/internal/config"
	"libwatch/internal/notifications"
	"libwatch/internal/services/plex"
	"libwatch/internal/services/trakt"
	"libwatch/internal/status"
	"libwatch/internal/testsupport"
)

type fakePlex struct {
	libraries []plex.Library
	shows     map[string][]plex.Show
}

func (f *fakePlex) Libraries(context.Context) ([]plex.Library, error) {
	return f.libraries, nil
}

func (f *fakePlex) MovieSizes(context.Context, string) ([]plex.ItemSize, error) {
	return nil, nil
}

func (f *fakePlex) ShowSizes(context.Context, string) ([]plex.ItemSize, error) {
	return nil, nil
}

func (f *fakePlex) Shows(_ context.Context, key string) ([]plex.Show, error) {
	return f.shows[key], nil
}

type fakeTrakt struct {
	byTMDB map[int64]*trakt.Show
	byID   map[string]*trakt.Show
	next   map[string]*trakt.Episode
}

func (f *fakeTrakt) ShowByTMDB(_ context.Context, tmdbID int64) (*trakt.Show, error) {
	return f.byTMDB[tmdbID], nil
}

func (f *fakeTrakt) Show(_ context.Context, id string) (*trakt.Show, error) {
	return f.byID[id], nil
}

func (f *fakeTrakt) NextEpisode(_ context.Context, id string) (*trakt.Episode, error) {
	return f.next[id], nil
}

type delivery struct {
	batch batch.Batch
	color int
}

type fakeNotifier struct {
	enabled    bool
	deliveries []delivery
}

func (f *fakeNotifier) Deliver(_ context.Context, b batch.Batch, color int) error {
	f.deliveries = append(f.deliveries, delivery{batch: b, color: color})
	return nil
}

func (f *fakeNotifier) TestNotification(context.Context) error { return nil }
func (f *fakeNotifier) Enabled() bool                          { return f.enabled }

func newFakePlex() *fakePlex {
	return &fakePlex{
		libraries: []plex.Library{
			{Key: "1", Type: "movie", Title: "Movies"},
			{Key: "2", Type: "show", Title: "TV Shows"},
		},
		shows: map[string][]plex.Show{
			"2": {
				{RatingKey: "101", Title: "Severance", TMDBID: 95396},
				{RatingKey: "102", Title: "Dark", TMDBID: 70523},
			},
		},
	}
}

func newFakeTrakt() *fakeTrakt {
	severance := &trakt.Show{
		Title:  "Severance",
		Status: "returning series",
		IDs:    trakt.IDs{Trakt: 1, Slug: "severance"},
	}
	dark := &trakt.Show{
		Title:  "Dark",
		Status: "ended",
		IDs:    trakt.IDs{Trakt: 2, Slug: "dark"},
	}
	return &fakeTrakt{
		byTMDB: map[int64]*trakt.Show{95396: severance, 70523: dark},
		byID:   map[string]*trakt.Show{"severance": severance, "dark": dark},
		next: map[string]*trakt.Episode{
			"severance": {Season: 3, Number: 1, FirstAired: "2026-09-04T01:00:00.000Z"},
		},
	}
}

func newRunner(t *testing.T, cfg *config.Config, source *fakePlex, shows *fakeTrakt, notifier *fakeNotifier) *status.Runner {
	t.Helper()
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return status.NewRunner(cfg, nil, source, shows, notifier, nil)
}

func findField(t *testing.T, b batch.Batch, namePrefix string) batch.Field {
	t.Helper()
	for _, f := range b.Fields {
		if strings.HasPrefix(f.Name, namePrefix) {
			return f
		}
	}
	t.Fatalf("no field named %q in %v", namePrefix, b.Fields)
	return batch.Field{}
}

func TestRunFirstRunRecordsBaseline(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	notifier := &fakeNotifier{enabled: true}
	runner := newRunner(t, cfg, newFakePlex(), newFakeTrakt(), notifier)

	entry, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !entry.FirstRun {
		t.Error("expected first run")
	}
	if entry.Items != 2 {
		t.Errorf("items = %d, want 2", entry.Items)
	}
	if len(notifier.deliveries) != 1 {
		t.Fatalf("deliveries = %d, want 1", len(notifier.deliveries))
	}

	got := notifier.deliveries[0]
	if got.color != notifications.ColorGreen {
		t.Errorf("color = %d, want green", got.color)
	}
	if got.batch.Title != "TV Status - Initial Scan" {
		t.Errorf("title = %q", got.batch.Title)
	}
	tracked := findField(t, got.batch, "Tracked Shows")
	if !strings.Contains(tracked.Value, "• Now Airing: 1") || !strings.Contains(tracked.Value, "• Ended Shows: 1") {
		t.Errorf("baseline field = %q", tracked.Value)
	}

	if _, err := os.Stat(cfg.SnapshotPath(status.Domain)); err != nil {
		t.Errorf("snapshot not written: %v", err)
	}
}

func TestRunReportsCategoryChange(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	source := newFakePlex()
	shows := newFakeTrakt()
	notifier := &fakeNotifier{enabled: true}
	runner := newRunner(t, cfg, source, shows, notifier)

	if _, err := runner.Run(context.Background()); err != nil {
		t.Fatalf("baseline run: %v", err)
	}
	notifier.deliveries = nil

	shows.next["severance"].EpisodeType = "season_finale"

	entry, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if entry.FirstRun {
		t.Error("unexpected first run")
	}
	if entry.CountIncreased != 1 {
		t.Errorf("count increased = %d, want 1", entry.CountIncreased)
	}
	if len(notifier.deliveries) != 1 {
		t.Fatalf("deliveries = %d, want 1", len(notifier.deliveries))
	}

	got := notifier.deliveries[0]
	if got.color != notifications.ColorBlue {
		t.Errorf("color = %d, want blue", got.color)
	}
	if got.batch.Title != "TV/Anime Status Updates" {
		t.Errorf("title = %q", got.batch.Title)
	}
	if want := "Processed 2 shows. Found changes for 1 shows."; got.batch.Description != want {
		t.Errorf("description = %q, want %q", got.batch.Description, want)
	}
	finale := findField(t, got.batch, "Season Finales (1)")
	if want := "• Severance (04/09)"; finale.Value != want {
		t.Errorf("field = %q, want %q", finale.Value, want)
	}
}

func TestRunReportsDateChange(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	source := newFakePlex()
	shows := newFakeTrakt()
	notifier := &fakeNotifier{enabled: true}
	runner := newRunner(t, cfg, source, shows, notifier)

	if _, err := runner.Run(context.Background()); err != nil {
		t.Fatalf("baseline run: %v", err)
	}
	notifier.deliveries = nil

	shows.next["severance"].FirstAired = "2026-09-11T01:00:00.000Z"

	entry, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if entry.ValueChanged != 1 {
		t.Errorf("value changed = %d, want 1", entry.ValueChanged)
	}
	if len(notifier.deliveries) != 1 {
		t.Fatalf("deliveries = %d, want 1", len(notifier.deliveries))
	}

	moved := findField(t, notifier.deliveries[0].batch, "Date Changes (1)")
	if want := "• Severance - New date: 11/09"; moved.Value != want {
		t.Errorf("field = %q, want %q", moved.Value, want)
	}
}

func TestRunNoChangesStaysQuiet(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	source := newFakePlex()
	shows := newFakeTrakt()
	notifier := &fakeNotifier{enabled: true}
	runner := newRunner(t, cfg, source, shows, notifier)

	if _, err := runner.Run(context.Background()); err != nil {
		t.Fatalf("baseline run: %v", err)
	}
	notifier.deliveries = nil

	entry, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if entry.Changes() != 0 {
		t.Errorf("changes = %d, want 0", entry.Changes())
	}
	if len(notifier.deliveries) != 0 {
		t.Errorf("deliveries = %d, want 0", len(notifier.deliveries))
	}
	if entry.BatchesSent != 0 || entry.Delivered {
		t.Errorf("entry reports delivery: sent=%d delivered=%v", entry.BatchesSent, entry.Delivered)
	}
}

func TestRunWritesOverlayAndCollectionFiles(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Trakt.Username = "tester"
	runner := newRunner(t, cfg, newFakePlex(), newFakeTrakt(), &fakeNotifier{})

	if _, err := runner.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	overlayPath := filepath.Join(cfg.Paths.OverlayDir, "overlay_tv_status_tv shows.yml")
	data, err := os.ReadFile(overlayPath)
	if err != nil {
		t.Fatalf("read overlay file: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, "TV Shows_Status_Severance:") {
		t.Errorf("missing severance overlay key:\n%s", content)
	}
	if !strings.Contains(content, "text(AIRING 04/09)") {
		t.Errorf("missing airing overlay text:\n%s", content)
	}
	if !strings.Contains(content, "TV Shows_Status_Dark:") || !strings.Contains(content, "text(E N D E D)") {
		t.Errorf("missing ended overlay:\n%s", content)
	}
	if !strings.Contains(content, "#008000") {
		t.Errorf("missing airing back color:\n%s", content)
	}

	collectionPath := filepath.Join(cfg.Paths.CollectionsDir, "tv-shows-next-airing.yml")
	data, err = os.ReadFile(collectionPath)
	if err != nil {
		t.Fatalf("read collection file: %v", err)
	}
	if !strings.Contains(string(data), "Next Airing TV Shows") || !strings.Contains(string(data), "tester") {
		t.Errorf("collection content = %s", data)
	}
}
