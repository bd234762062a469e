package markup

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/yungbote/markupsync/internal/platform/logger"
)

type PurgeReport struct {
	Prefix         string   `json:"prefix"`
	Cutoff         int64    `json:"cutoff"`
	Expired        []string `json:"expired,omitempty"`
	Skipped        []string `json:"skipped,omitempty"`
	DeletedObjects int      `json:"deleted_objects"`
	DryRun         bool     `json:"dry_run"`
}

// Purger removes whole version folders by age. It is an operator tool; lifecycle runs never
// call it.
type Purger struct {
	log   *logger.Logger
	store ObjectStore
	now   func() time.Time
}

func NewPurger(log *logger.Logger, store ObjectStore) *Purger {
	return &Purger{log: log.With("component", "Purger"), store: store, now: time.Now}
}

// Purge deletes every version folder under prefix whose epoch-second name is at or before
// now - olderThan. Folders with non-numeric names are reported and left alone.
func (p *Purger) Purge(ctx context.Context, prefix string, olderThan time.Duration, dryRun bool) (PurgeReport, error) {
	prefix = strings.TrimRight(strings.TrimSpace(prefix), "/")
	rep := PurgeReport{Prefix: prefix, DryRun: dryRun}
	if prefix == "" {
		return rep, structural("validate input", fmt.Errorf("prefix required"))
	}
	if olderThan <= 0 {
		return rep, structural("validate input", fmt.Errorf("age must be positive"))
	}
	rep.Cutoff = p.now().Add(-olderThan).Unix()

	listing, err := ResolveVersions(ctx, p.store, prefix)
	if err != nil {
		return rep, err
	}
	for _, version := range listing.Versions() {
		ts, err := strconv.ParseInt(version, 10, 64)
		if err != nil {
			rep.Skipped = append(rep.Skipped, version)
			continue
		}
		if ts > rep.Cutoff {
			continue
		}
		rep.Expired = append(rep.Expired, version)
		if dryRun {
			continue
		}
		for _, name := range listing.Members[version] {
			if err := p.store.Delete(ctx, versionKey(prefix, version, name)); err != nil {
				return rep, fmt.Errorf("delete %s/%s: %w", version, name, err)
			}
			rep.DeletedObjects++
		}
		if err := p.store.Delete(ctx, prefix+"/"+version+"/"); err != nil {
			return rep, fmt.Errorf("delete marker %s: %w", version, err)
		}
	}
	p.log.Info("purge finished", "prefix", prefix, "expired", rep.Expired, "objects", rep.DeletedObjects, "dry_run", dryRun)
	return rep, nil
}
