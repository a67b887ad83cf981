// Package overlay writes Kometa overlay and collection YAML files.
// Each tracked library gets one overlay file per watch kind; entries
// target items through a plex_search title matcher with wildcard
// escaping for characters Kometa's search mishandles.
package overlay

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"libwatch/internal/config"
	"libwatch/internal/fileutil"
	"libwatch/internal/logging"
	"libwatch/internal/textutil"
)

// Entry is one overlay block: a caption rendered over the item matched
// by SearchTitle. BackColor and Font override the style defaults when
// set, which the status overlays use for per-category colors.
type Entry struct {
	Key         string
	Text        string
	SearchTitle string
	BackColor   string
	Font        string
}

// Writer persists overlay files under the Kometa overlay directory and
// collection files under the collections directory.
type Writer struct {
	overlayDir     string
	collectionsDir string
	logger         *slog.Logger
}

// NewWriter builds a Writer rooted at the configured Kometa directories.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Writer{
		overlayDir:     cfg.Paths.OverlayDir,
		collectionsDir: cfg.Paths.CollectionsDir,
		logger:         logger.With(logging.String(logging.FieldComponent, "overlay")),
	}
}

// SizesFilename returns the per-library size overlay filename.
func SizesFilename(library string) string {
	name := strings.ToLower(textutil.SanitizeFileName(library))
	return fmt.Sprintf("size-overlays-%s.yml", strings.ReplaceAll(name, " ", "-"))
}

// StatusFilename returns the per-library status overlay filename.
func StatusFilename(library string) string {
	return fmt.Sprintf("overlay_tv_status_%s.yml", strings.ToLower(textutil.SanitizeFileName(library)))
}

type searchBlock struct {
	All map[string]string `yaml:"all"`
}

type overlayBody struct {
	Name             string `yaml:"name"`
	Font             string `yaml:"font,omitempty"`
	FontSize         int    `yaml:"font_size"`
	FontColor        string `yaml:"font_color,omitempty"`
	BackColor        string `yaml:"back_color"`
	BackWidth        int    `yaml:"back_width"`
	BackHeight       int    `yaml:"back_height"`
	HorizontalAlign  string `yaml:"horizontal_align"`
	HorizontalOffset int    `yaml:"horizontal_offset"`
	VerticalAlign    string `yaml:"vertical_align"`
	VerticalOffset   int    `yaml:"vertical_offset"`
}

type entryValue struct {
	Overlay    overlayBody `yaml:"overlay"`
	PlexSearch searchBlock `yaml:"plex_search"`
}

// Write renders the entries into one overlay file, preserving entry
// order, and writes it atomically. Returns the final path.
func (w *Writer) Write(filename string, style config.OverlayStyle, entries []Entry) (string, error) {
	overlays := &yaml.Node{Kind: yaml.MappingNode}
	for _, entry := range entries {
		body := overlayBody{
			Name:             fmt.Sprintf("text(%s)", entry.Text),
			Font:             entry.Font,
			FontSize:         style.FontSize,
			FontColor:        style.FontColor,
			BackColor:        style.BackColor,
			BackWidth:        style.BackWidth,
			BackHeight:       style.BackHeight,
			HorizontalAlign:  style.HorizontalAlign,
			HorizontalOffset: style.HorizontalOffset,
			VerticalAlign:    style.VerticalAlign,
			VerticalOffset:   style.VerticalOffset,
		}
		if body.Font == "" {
			body.Font = style.FontPath
		}
		if entry.BackColor != "" {
			body.BackColor = entry.BackColor
		}
		value := entryValue{
			Overlay: body,
			PlexSearch: searchBlock{
				All: map[string]string{"title.is": SanitizeSearchTitle(entry.SearchTitle)},
			},
		}
		var valueNode yaml.Node
		if err := valueNode.Encode(value); err != nil {
			return "", fmt.Errorf("encode overlay entry %q: %w", entry.Key, err)
		}
		overlays.Content = append(overlays.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: entry.Key},
			&valueNode,
		)
	}

	root := yaml.Node{Kind: yaml.MappingNode, Content: []*yaml.Node{
		{Kind: yaml.ScalarNode, Value: "overlays"},
		overlays,
	}}
	data, err := yaml.Marshal(&root)
	if err != nil {
		return "", fmt.Errorf("marshal overlay file: %w", err)
	}

	path := filepath.Join(w.overlayDir, filename)
	if err := fileutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write overlay file: %w", err)
	}
	w.logger.Debug("overlay file written", logging.String("path", path), logging.Int("entries", len(entries)))
	return path, nil
}

const collectionTemplate = `collections:
  Next Airing %s:
    trakt_list: https://trakt.tv/users/%s/lists/next-airing?sort=rank,asc
    file_poster: 'config/assets/Next Airing/poster.jpg'
    collection_order: custom
    visible_home: true
    visible_shared: true
    sync_mode: sync
`

// WriteNextAiringCollection writes the per-library collection file that
// pins upcoming shows from the user's Trakt list. Returns the final
// path.
func (w *Writer) WriteNextAiringCollection(library, traktUsername string) (string, error) {
	name := strings.ToLower(textutil.SanitizeFileName(library))
	filename := fmt.Sprintf("%s-next-airing.yml", strings.ReplaceAll(name, " ", "-"))
	content := fmt.Sprintf(collectionTemplate, library, traktUsername)

	path := filepath.Join(w.collectionsDir, filename)
	if err := fileutil.WriteFileAtomic(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("write collection file: %w", err)
	}
	w.logger.Debug("collection file written", logging.String("path", path))
	return path, nil
}

var searchTitleReplacer = strings.NewReplacer(
	"'", "%'%",
	",", "%,%",
	"&", "%&%",
	":", "%:%",
	"/", "%/%",
)

// SanitizeSearchTitle prepares a title for a Kometa title.is search:
// a leading wildcard plus wildcards around characters the search
// backend treats specially.
func SanitizeSearchTitle(title string) string {
	return "%" + searchTitleReplacer.Replace(title)
}
