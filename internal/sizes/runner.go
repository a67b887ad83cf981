package sizes

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"libwatch/internal/batch"
	"libwatch/internal/config"
	"libwatch/internal/diff"
	"libwatch/internal/logging"
	"libwatch/internal/notifications"
	"libwatch/internal/overlay"
	"libwatch/internal/render"
	"libwatch/internal/runlog"
	"libwatch/internal/services/plex"
	"libwatch/internal/snapshot"
	"libwatch/internal/textutil"
)

// Runner executes one size watch pass: scan Plex, diff against the
// previous snapshot, notify, refresh overlays, persist.
type Runner struct {
	cfg      *config.Config
	logger   *slog.Logger
	plex     plex.Service
	notifier notifications.Service
	overlays *overlay.Writer
	store    *snapshot.Store
	runs     *runlog.Store
	now      func() time.Time
}

// NewRunner wires a size watcher from its collaborators. The run
// history store may be nil.
func NewRunner(cfg *config.Config, logger *slog.Logger, plexSvc plex.Service, notifier notifications.Service, runs *runlog.Store) *Runner {
	if logger == nil {
		logger = logging.NewNop()
	}
	log := logger.With(logging.String(logging.FieldComponent, Domain))
	return &Runner{
		cfg:      cfg,
		logger:   log,
		plex:     plexSvc,
		notifier: notifier,
		overlays: overlay.NewWriter(cfg, logger),
		store:    snapshot.NewStore(cfg.SnapshotPath(Domain), log),
		runs:     runs,
		now:      time.Now,
	}
}

type libraryScan struct {
	title    string
	kind     string // "movie" or "show"
	items    []plex.ItemSize
	totalGB  float64
	episodes int
}

// Run performs one watch pass. The returned entry reflects what was
// detected and delivered; an error means the pass could not scan Plex
// at all.
func (r *Runner) Run(ctx context.Context) (runlog.Entry, error) {
	entry := runlog.Entry{Domain: Domain, StartedAt: r.now().UTC()}

	scans, err := r.scan(ctx)
	if err != nil {
		return entry, err
	}

	current := snapshot.Snapshot{}
	for _, scan := range scans {
		for _, item := range scan.items {
			current[itemID(scan.title, item.Title)] = snapshot.ItemState{
				Value: roundGB(item.Bytes),
				Count: item.Episodes,
			}
		}
	}
	entry.Items = len(current)

	previous, found := r.store.Load()
	entry.FirstRun = !found

	var records []diff.Record
	if found {
		records = diff.Diff(previous, current, r.cfg.Sizes.Epsilon)
	}
	entry.Tally(records)

	summary := r.summaryBlocks(scans)
	var batches []batch.Batch
	color := notifications.ColorBlue
	switch {
	case entry.FirstRun:
		r.logger.Info("first run, recording baseline snapshot", logging.Int("items", entry.Items))
		batches, _ = batch.Pack("Library Sizes - Initial Scan", "Completed initial media size scan.", summary)
		color = notifications.ColorGreen
	case len(records) > 0:
		counts := countChanges(records)
		totalDelta := sumValues(current) - sumValues(previous)
		blocks := append(summary, render.Blocks(records, groupByLibrary, changeLine)...)

		var truncated bool
		batches, truncated = batch.Pack(reportTitle(counts), reportDescription(counts, totalDelta), blocks)
		entry.Truncated = truncated
		if truncated {
			r.logger.Warn("change report truncated at batch cap",
				logging.Int("changes", len(records)),
				logging.Int("batches", len(batches)))
		}
		color = notifications.ColorOrange
	default:
		batches, _ = batch.Pack("Library Sizes - Updated", "Completed scan. No changes detected.", summary)
	}

	entry.BatchesSent, entry.Delivered = r.deliver(ctx, batches, color)

	r.writeOverlays(scans)

	if err := r.store.Save(current); err != nil {
		r.logger.Warn("snapshot save failed", logging.Error(err))
	}

	entry.FinishedAt = r.now().UTC()
	if r.runs != nil {
		if _, err := r.runs.Record(ctx, entry); err != nil {
			r.logger.Warn("run history record failed", logging.Error(err))
		}
	}
	r.logger.Info("size watch complete",
		logging.Int("items", entry.Items),
		logging.Int("changes", entry.Changes()),
		logging.Int("batches_sent", entry.BatchesSent))
	return entry, nil
}

func (r *Runner) scan(ctx context.Context) ([]libraryScan, error) {
	libraries, err := r.plex.Libraries(ctx)
	if err != nil {
		return nil, fmt.Errorf("list plex libraries: %w", err)
	}
	byTitle := make(map[string]plex.Library, len(libraries))
	for _, lib := range libraries {
		byTitle[lib.Title] = lib
	}

	var scans []libraryScan
	for _, name := range r.cfg.Plex.MovieLibraries {
		lib, ok := byTitle[name]
		if !ok {
			r.logger.Warn("configured library not found on server", logging.String("library", name))
			continue
		}
		items, err := r.plex.MovieSizes(ctx, lib.Key)
		if err != nil {
			return nil, fmt.Errorf("scan movie library %q: %w", name, err)
		}
		scans = append(scans, newScan(name, "movie", items))
	}
	for _, name := range r.cfg.ShowLibraries() {
		lib, ok := byTitle[name]
		if !ok {
			r.logger.Warn("configured library not found on server", logging.String("library", name))
			continue
		}
		items, err := r.plex.ShowSizes(ctx, lib.Key)
		if err != nil {
			return nil, fmt.Errorf("scan show library %q: %w", name, err)
		}
		scans = append(scans, newScan(name, "show", items))
	}
	return scans, nil
}

func newScan(title, kind string, items []plex.ItemSize) libraryScan {
	scan := libraryScan{title: title, kind: kind, items: items}
	for _, item := range items {
		scan.totalGB += roundGB(item.Bytes)
		scan.episodes += item.Episodes
	}
	return scan
}

func (r *Runner) summaryBlocks(scans []libraryScan) []render.NamedBlock {
	var (
		lines                   []string
		movies, shows, episodes int
		totalGB                 float64
	)
	for _, scan := range scans {
		totalGB += scan.totalGB
		if scan.kind == "movie" {
			movies += len(scan.items)
			lines = append(lines, fmt.Sprintf("• %s: %s - %d movies", scan.title, FormatFilesize(scan.totalGB), len(scan.items)))
		} else {
			shows += len(scan.items)
			episodes += scan.episodes
			lines = append(lines, fmt.Sprintf("• %s: %s - %d shows (%d episodes)", scan.title, FormatFilesize(scan.totalGB), len(scan.items), scan.episodes))
		}
	}
	summary := fmt.Sprintf("%s across %d movies and %d shows with %d episodes.",
		FormatFilesize(totalGB), movies, shows, episodes)
	return []render.NamedBlock{
		{Name: "Media Libraries", Lines: lines},
		{Name: "Total Media Size", Lines: []string{summary}},
	}
}

func groupByLibrary(rec diff.Record) string {
	library, _ := splitID(rec.ID)
	return library
}

func sumValues(snap snapshot.Snapshot) float64 {
	var total float64
	for _, state := range snap {
		total += state.Value
	}
	return total
}

// deliver sends each batch and reports how many went out and whether
// every one succeeded. Delivery failures are logged, never fatal.
func (r *Runner) deliver(ctx context.Context, batches []batch.Batch, color int) (sent int, delivered bool) {
	if r.notifier == nil || !r.notifier.Enabled() {
		return 0, false
	}
	delivered = true
	for _, b := range batches {
		if err := r.notifier.Deliver(ctx, b, color); err != nil {
			r.logger.Warn("batch delivery failed", logging.Error(err), logging.String("title", b.Title))
			delivered = false
			continue
		}
		sent++
	}
	return sent, delivered
}

func (r *Runner) writeOverlays(scans []libraryScan) {
	for _, scan := range scans {
		entries := make([]overlay.Entry, 0, len(scan.items))
		for _, item := range scan.items {
			gb := roundGB(item.Bytes)
			sizeStr := strconv.FormatFloat(gb, 'f', -1, 64)
			text := sizeStr + " GB"
			if scan.kind == "show" && r.cfg.Sizes.ShowEpisodeCount {
				text = fmt.Sprintf("%s GB (%d episodes)", sizeStr, item.Episodes)
			}
			entries = append(entries, overlay.Entry{
				Key:         fmt.Sprintf("%s-%s-GB-overlay", textutil.SanitizeToken(item.Title), sizeStr),
				Text:        text,
				SearchTitle: item.Title,
			})
		}

		style := r.cfg.Overlays.Movie
		if scan.kind == "show" {
			style = r.cfg.Overlays.Show
		}
		if _, err := r.overlays.Write(overlay.SizesFilename(scan.title), style, entries); err != nil {
			r.logger.Warn("overlay write failed", logging.Error(err), logging.String("library", scan.title))
		}
	}
}
