package status

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
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
	"libwatch/internal/services/trakt"
	"libwatch/internal/snapshot"
)

// Domain identifies this watcher in snapshots, locks, and run history.
const Domain = "status"

// Runner executes one status watch pass: classify every tracked show
// via Trakt, diff against the previous snapshot, notify, refresh
// overlays and collection files, persist.
type Runner struct {
	cfg      *config.Config
	logger   *slog.Logger
	plex     plex.Service
	trakt    trakt.Service
	notifier notifications.Service
	overlays *overlay.Writer
	store    *snapshot.Store
	runs     *runlog.Store
	loc      *time.Location
	now      func() time.Time
}

// NewRunner wires a status watcher from its collaborators. The run
// history store may be nil.
func NewRunner(cfg *config.Config, logger *slog.Logger, plexSvc plex.Service, traktSvc trakt.Service, notifier notifications.Service, runs *runlog.Store) *Runner {
	if logger == nil {
		logger = logging.NewNop()
	}
	log := logger.With(logging.String(logging.FieldComponent, Domain))

	loc, err := time.LoadLocation(cfg.Trakt.Timezone)
	if err != nil {
		log.Warn("invalid timezone, using UTC", logging.String("timezone", cfg.Trakt.Timezone))
		loc = time.UTC
	}
	return &Runner{
		cfg:      cfg,
		logger:   log,
		plex:     plexSvc,
		trakt:    traktSvc,
		notifier: notifier,
		overlays: overlay.NewWriter(cfg, logger),
		store:    snapshot.NewStore(cfg.SnapshotPath(Domain), log),
		runs:     runs,
		loc:      loc,
		now:      time.Now,
	}
}

type showState struct {
	library  string
	title    string
	category Category
	airDate  time.Time
}

// Run performs one watch pass. The returned entry reflects what was
// detected and delivered; an error means the pass could not enumerate
// the Plex libraries at all. Per-show Trakt failures are logged and
// skipped so one flaky lookup never loses a whole run.
func (r *Runner) Run(ctx context.Context) (runlog.Entry, error) {
	entry := runlog.Entry{Domain: Domain, StartedAt: r.now().UTC()}

	states, err := r.scan(ctx)
	if err != nil {
		return entry, err
	}

	current := snapshot.Snapshot{}
	for _, state := range states {
		current[itemID(state.library, state.title)] = snapshot.ItemState{
			Value: EncodeAirDate(state.airDate),
			Count: int(state.category),
		}
	}
	entry.Items = len(current)

	previous, found := r.store.Load()
	entry.FirstRun = !found

	var records []diff.Record
	if found {
		records = diff.Diff(previous, current, diff.DefaultEpsilon)
	}
	entry.Tally(records)

	var batches []batch.Batch
	color := notifications.ColorBlue
	switch {
	case entry.FirstRun:
		r.logger.Info("first run, recording baseline snapshot", logging.Int("shows", entry.Items))
		batches, _ = batch.Pack("TV Status - Initial Scan",
			fmt.Sprintf("Now tracking %d shows.", entry.Items),
			r.baselineBlocks(states))
		color = notifications.ColorGreen
	case len(records) > 0:
		blocks := render.Blocks(records, reportGroup, reportLine(r.loc))
		orderBlocks(blocks)

		var truncated bool
		batches, truncated = batch.Pack("TV/Anime Status Updates",
			fmt.Sprintf("Processed %d shows. Found changes for %d shows.", entry.Items, len(records)),
			blocks)
		entry.Truncated = truncated
		if truncated {
			r.logger.Warn("status report truncated at batch cap",
				logging.Int("changes", len(records)),
				logging.Int("batches", len(batches)))
		}
	}

	entry.BatchesSent, entry.Delivered = r.deliver(ctx, batches, color)

	r.writeOverlays(states)
	r.writeCollections()

	if err := r.store.Save(current); err != nil {
		r.logger.Warn("snapshot save failed", logging.Error(err))
	}

	entry.FinishedAt = r.now().UTC()
	if r.runs != nil {
		if _, err := r.runs.Record(ctx, entry); err != nil {
			r.logger.Warn("run history record failed", logging.Error(err))
		}
	}
	r.logger.Info("status watch complete",
		logging.Int("shows", entry.Items),
		logging.Int("changes", entry.Changes()),
		logging.Int("batches_sent", entry.BatchesSent))
	return entry, nil
}

func (r *Runner) scan(ctx context.Context) ([]showState, error) {
	libraries, err := r.plex.Libraries(ctx)
	if err != nil {
		return nil, fmt.Errorf("list plex libraries: %w", err)
	}
	byTitle := make(map[string]plex.Library, len(libraries))
	for _, lib := range libraries {
		byTitle[lib.Title] = lib
	}

	var states []showState
	for _, name := range r.cfg.ShowLibraries() {
		lib, ok := byTitle[name]
		if !ok {
			r.logger.Warn("configured library not found on server", logging.String("library", name))
			continue
		}
		shows, err := r.plex.Shows(ctx, lib.Key)
		if err != nil {
			return nil, fmt.Errorf("list shows in %q: %w", name, err)
		}
		for _, show := range shows {
			state, ok := r.classifyShow(ctx, name, show)
			if ok {
				states = append(states, state)
			}
		}
	}
	return states, nil
}

func (r *Runner) classifyShow(ctx context.Context, library string, show plex.Show) (showState, bool) {
	if show.TMDBID == 0 {
		r.logger.Debug("show has no TMDB id", logging.String("title", show.Title))
		return showState{}, false
	}

	match, err := r.trakt.ShowByTMDB(ctx, show.TMDBID)
	if err != nil {
		r.logger.Warn("trakt lookup failed", logging.Error(err), logging.String("title", show.Title))
		return showState{}, false
	}
	if match == nil {
		r.logger.Debug("no trakt entry", logging.String("title", show.Title))
		return showState{}, false
	}

	id := match.IDs.Slug
	if id == "" {
		id = strconv.FormatInt(match.IDs.Trakt, 10)
	}
	full, err := r.trakt.Show(ctx, id)
	if err != nil || full == nil {
		r.logger.Warn("trakt show details failed", logging.Error(err), logging.String("title", show.Title))
		return showState{}, false
	}

	var next *trakt.Episode
	if strings.EqualFold(strings.TrimSpace(full.Status), "returning series") {
		next, err = r.trakt.NextEpisode(ctx, id)
		if err != nil {
			r.logger.Warn("trakt next episode failed", logging.Error(err), logging.String("title", show.Title))
			return showState{}, false
		}
	}

	category, airDate := Classify(full, next)
	if category == CategoryUnknown {
		return showState{}, false
	}
	return showState{
		library:  library,
		title:    show.Title,
		category: category,
		airDate:  airDate,
	}, true
}

// baselineBlocks summarizes a first run as per-category counts.
func (r *Runner) baselineBlocks(states []showState) []render.NamedBlock {
	counts := make(map[Category]int)
	for _, state := range states {
		counts[state.category]++
	}

	var lines []string
	for c := CategoryReturning; c <= CategoryCancelled; c++ {
		if n := counts[c]; n > 0 {
			lines = append(lines, fmt.Sprintf("• %s: %d", c.GroupName(), n))
		}
	}
	if len(lines) == 0 {
		return nil
	}
	return []render.NamedBlock{{Name: "Tracked Shows", Lines: lines}}
}

func (r *Runner) deliver(ctx context.Context, batches []batch.Batch, color int) (sent int, delivered bool) {
	if r.notifier == nil || !r.notifier.Enabled() || len(batches) == 0 {
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

func (r *Runner) writeOverlays(states []showState) {
	byLibrary := make(map[string][]showState)
	var order []string
	for _, state := range states {
		if _, seen := byLibrary[state.library]; !seen {
			order = append(order, state.library)
		}
		byLibrary[state.library] = append(byLibrary[state.library], state)
	}

	for _, library := range order {
		entries := make([]overlay.Entry, 0, len(byLibrary[library]))
		for _, state := range byLibrary[library] {
			text := OverlayText(state.category, state.airDate, r.loc)
			if text == "" {
				continue
			}
			entries = append(entries, overlay.Entry{
				Key:         fmt.Sprintf("%s_Status_%s", library, strings.ReplaceAll(state.title, " ", "_")),
				Text:        text,
				SearchTitle: state.title,
				BackColor:   r.categoryColor(state.category),
			})
		}
		if _, err := r.overlays.Write(overlay.StatusFilename(library), r.cfg.Overlays.Status, entries); err != nil {
			r.logger.Warn("overlay write failed", logging.Error(err), logging.String("library", library))
		}
	}
}

func (r *Runner) writeCollections() {
	username := strings.TrimSpace(r.cfg.Trakt.Username)
	if username == "" {
		return
	}
	for _, library := range r.cfg.ShowLibraries() {
		if _, err := r.overlays.WriteNextAiringCollection(library, username); err != nil {
			r.logger.Warn("collection write failed", logging.Error(err), logging.String("library", library))
		}
	}
}

func (r *Runner) categoryColor(c Category) string {
	if color, ok := r.cfg.Status.Colors[c.Key()]; ok && color != "" {
		return color
	}
	return ""
}
