package markup

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"github.com/yungbote/markupsync/internal/data/repos"
	types "github.com/yungbote/markupsync/internal/domain/segmentation"
	"github.com/yungbote/markupsync/internal/observability"
	"github.com/yungbote/markupsync/internal/platform/dbctx"
	"github.com/yungbote/markupsync/internal/platform/logger"
)

const DefaultChunkSize = 5000

// LoadRow is one resolved markup as read back from the preprocessed file.
type LoadRow struct {
	Line              int
	CustomerProfileID uuid.UUID
	Model             string
	SegmentNumber     int
	ExternalKey       string
}

type UnresolvedMarkup struct {
	Line        int    `json:"line"`
	ExternalKey string `json:"external_key"`
	Model       string `json:"model"`
	Segment     string `json:"segment"`
	Reason      string `json:"reason"`
}

const (
	reasonEmptyCatalog   = "empty_catalog"
	reasonUnknownSegment = "unknown_segment"
	reasonInvalidRow     = "invalid_row"
	reasonChunkFailed    = "chunk_failed"
)

type LoaderResult struct {
	Inserted     int                `json:"inserted"`
	Chunks       []int              `json:"chunks"`
	FailedChunks int                `json:"failed_chunks"`
	Reset        int64              `json:"reset"`
	Unresolved   []UnresolvedMarkup `json:"-"`
}

type Loader struct {
	log       *logger.Logger
	segments  repos.SegmentRepo
	markups   repos.MarkupRepo
	metrics   *observability.Metrics
	chunkSize int
}

func NewLoader(log *logger.Logger, segments repos.SegmentRepo, markups repos.MarkupRepo, metrics *observability.Metrics, chunkSize int) *Loader {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Loader{
		log:       log.With("component", "MarkupLoader"),
		segments:  segments,
		markups:   markups,
		metrics:   metrics,
		chunkSize: chunkSize,
	}
}

// Load inserts rows for the account's version in chunks of chunkSize, each committed before
// the next. Rows resolve only against segments of accountModelIDs, the account models the
// rules upsert registered for this load. Markups already attached to those segments are
// removed first, so a repeated load of the same version leaves exactly one copy of each row
// and other model types sharing the version string are left alone.
func (l *Loader) Load(ctx context.Context, accountID uuid.UUID, version, modelType string, accountModelIDs []int64, rows []LoadRow) (LoaderResult, error) {
	var res LoaderResult
	dbc := dbctx.Context{Ctx: ctx}

	catalog, err := l.segments.CatalogForAccountModels(dbc, accountModelIDs)
	if err != nil {
		return res, fmt.Errorf("load segment catalog: %w", err)
	}
	if len(catalog) == 0 {
		l.log.Warn("segment catalog empty; every markup is unresolved", "version", version, "rows", len(rows))
		for _, r := range rows {
			res.Unresolved = append(res.Unresolved, unresolvedFrom(r, reasonEmptyCatalog))
		}
		l.metrics.ObserveLoadUnresolved(modelType, len(res.Unresolved))
		return res, nil
	}

	lookup := make(map[catalogKey]int64, len(catalog))
	segmentIDs := make([]int64, 0, len(catalog))
	for _, e := range catalog {
		lookup[catalogKey{e.ModelName, e.SegmentNumber}] = e.SegmentID
		segmentIDs = append(segmentIDs, e.SegmentID)
	}

	reset, err := l.markups.DeleteBySegmentIDs(dbc, segmentIDs)
	if err != nil {
		return res, fmt.Errorf("reset version markups: %w", err)
	}
	res.Reset = reset
	if reset > 0 {
		l.log.Info("removed markups of a previous load of this version", "version", version, "rows", reset)
	}

	pending := make([]*types.Markup, 0, l.chunkSize)
	pendingRows := make([]LoadRow, 0, l.chunkSize)
	flush := func() {
		if len(pending) == 0 {
			return
		}
		n := len(pending)
		err := l.markups.InsertChunk(dbc, pending)
		l.metrics.ObserveChunk(modelType, n, err)
		if err != nil {
			l.log.Error("markup chunk insert failed; chunk skipped", "version", version, "rows", n, "first_line", pendingRows[0].Line, "error", err)
			res.FailedChunks++
			for _, r := range pendingRows {
				res.Unresolved = append(res.Unresolved, unresolvedFrom(r, reasonChunkFailed))
			}
		} else {
			res.Inserted += n
			res.Chunks = append(res.Chunks, n)
		}
		pending = make([]*types.Markup, 0, l.chunkSize)
		pendingRows = pendingRows[:0]
	}

	for _, r := range rows {
		segID, ok := lookup[catalogKey{r.Model, r.SegmentNumber}]
		if !ok {
			res.Unresolved = append(res.Unresolved, unresolvedFrom(r, reasonUnknownSegment))
			continue
		}
		pending = append(pending, &types.Markup{
			SegmentID:         segID,
			CustomerProfileID: r.CustomerProfileID,
			AccountID:         accountID,
		})
		pendingRows = append(pendingRows, r)
		if len(pending) == l.chunkSize {
			flush()
		}
	}
	flush()

	l.metrics.ObserveLoadUnresolved(modelType, len(res.Unresolved))
	l.log.Info("markups loaded", "version", version, "inserted", res.Inserted, "chunks", len(res.Chunks), "failed_chunks", res.FailedChunks, "unresolved", len(res.Unresolved))
	return res, nil
}

type catalogKey struct {
	model   string
	segment int
}

func unresolvedFrom(r LoadRow, reason string) UnresolvedMarkup {
	return UnresolvedMarkup{
		Line:        r.Line,
		ExternalKey: r.ExternalKey,
		Model:       r.Model,
		Segment:     strconv.Itoa(r.SegmentNumber),
		Reason:      reason,
	}
}
