// Package library lists the episode files that back each show.
package library

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tessro/onetap/internal/core"
	apperr "github.com/tessro/onetap/internal/errors"
	"golang.org/x/sync/errgroup"
)

// videoExtSet holds the file extensions treated as episodes.
var videoExtSet = map[string]struct{}{
	".mkv": {},
	".mp4": {},
	".avi": {},
}

// IsEpisode reports whether name has a known media extension.
func IsEpisode(name string) bool {
	_, ok := videoExtSet[strings.ToLower(filepath.Ext(name))]
	return ok
}

// ListEpisodes returns the media files directly inside dir, as full paths
// sorted lexicographically. Subdirectories are not descended into.
func ListEpisodes(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", apperr.ErrConfiguration, dir, err)
	}

	episodes := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !IsEpisode(e.Name()) {
			continue
		}
		episodes = append(episodes, filepath.Join(dir, e.Name()))
	}
	sort.Strings(episodes)
	return episodes, nil
}

// Lister is the filesystem-backed core.EpisodeLister.
type Lister struct{}

// ListEpisodes implements core.EpisodeLister.
func (Lister) ListEpisodes(path string) ([]string, error) {
	return ListEpisodes(path)
}

var _ core.EpisodeLister = Lister{}

// ShowEpisodes is the listing result for one show.
type ShowEpisodes struct {
	Show     core.Show
	Episodes []string
	Err      error
}

// maxConcurrentScans bounds parallel directory reads in ListAll.
const maxConcurrentScans = 4

// ListAll lists every show's directory concurrently. Every show gets an
// entry in Data, in input order; per-show failures are also collected in
// Errors rather than aborting the scan. Only context cancellation is
// returned as an error.
func ListAll(ctx context.Context, lister core.EpisodeLister, shows []core.Show) (*apperr.PartialResult[[]ShowEpisodes], error) {
	results := make([]ShowEpisodes, len(shows))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentScans)

	for i, show := range shows {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			eps, err := lister.ListEpisodes(show.Path)
			if err == nil && len(eps) == 0 {
				err = fmt.Errorf("%s: %w", show.Path, apperr.ErrEmptyDirectory)
			}
			if err != nil {
				err = fmt.Errorf("%s: %w", show.ID, err)
			}
			results[i] = ShowEpisodes{Show: show, Episodes: eps, Err: err}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &apperr.PartialResult[[]ShowEpisodes]{Data: results}
	for _, r := range results {
		res.AddError(r.Err)
	}
	return res, nil
}
