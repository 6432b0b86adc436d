package history

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/tessro/onetap/internal/core"
	apperr "github.com/tessro/onetap/internal/errors"
)

// LegacyDocument is the old progress file layout: show ID to episodes,
// oldest first.
type LegacyDocument map[string][]string

// LoadLegacy reads a legacy progress file.
func LoadLegacy(path string) (LegacyDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read legacy history: %w", err)
	}
	var doc LegacyDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: decode legacy history %s: %v", apperr.ErrHistoryStore, path, err)
	}
	return doc, nil
}

// MigrateResult summarises a migration.
type MigrateResult struct {
	Shows   int `json:"shows"`
	Entries int `json:"entries"`
}

// Migrate appends every legacy entry to dst in play order. Each show keeps at
// most max entries, newest last.
func Migrate(ctx context.Context, doc LegacyDocument, dst core.HistoryStore, max int) (MigrateResult, error) {
	ids := make([]string, 0, len(doc))
	for id := range doc {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var res MigrateResult
	for _, id := range ids {
		episodes := doc[id]
		if n := limit(max); len(episodes) > n {
			episodes = episodes[len(episodes)-n:]
		}
		for _, ep := range episodes {
			if err := ctx.Err(); err != nil {
				return res, err
			}
			if err := dst.Append(ctx, id, ep, max); err != nil {
				return res, fmt.Errorf("migrate %s: %w", id, err)
			}
			res.Entries++
		}
		res.Shows++
	}
	return res, nil
}
