package markup

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/yungbote/markupsync/internal/data/repos"
	types "github.com/yungbote/markupsync/internal/domain/segmentation"
	"github.com/yungbote/markupsync/internal/platform/dbctx"
	"github.com/yungbote/markupsync/internal/platform/logger"
)

// RuleRow is one segment definition from a rules file.
type RuleRow struct {
	Line           int
	Model          string
	SegmentNumber  int
	PredictedValue decimal.NullDecimal
	Description    string
}

// CatalogResult summarizes one rules upsert. Errors counts rule rows that were not written.
type CatalogResult struct {
	// ModelIDs are the models whose account model row was resolved, in first-seen order.
	ModelIDs []int64 `json:"model_ids"`
	// AccountModelIDs are the account model rows of this version, parallel to ModelIDs.
	// Markup resolution and reset are confined to them.
	AccountModelIDs []int64 `json:"account_model_ids"`
	Segments        int     `json:"segments"`
	Errors          int     `json:"errors"`
}

// CatalogUpserter turns rule rows into model, account model and segment rows.
type CatalogUpserter struct {
	log           *logger.Logger
	models        repos.ModelRepo
	accountModels repos.AccountModelRepo
	segments      repos.SegmentRepo
}

// NewCatalogUpserter wires the three catalog repos used by Upsert.
func NewCatalogUpserter(log *logger.Logger, models repos.ModelRepo, accountModels repos.AccountModelRepo, segments repos.SegmentRepo) *CatalogUpserter {
	return &CatalogUpserter{
		log:           log.With("component", "CatalogUpserter"),
		models:        models,
		accountModels: accountModels,
		segments:      segments,
	}
}

// Upsert registers the version's models and writes their segments in one batched upsert.
// A model whose lookup fails is skipped with its rows counted as errors.
func (c *CatalogUpserter) Upsert(ctx context.Context, accountID uuid.UUID, version string, rules []RuleRow) (CatalogResult, error) {
	var res CatalogResult
	dbc := dbctx.Context{Ctx: ctx}

	order := []string{}
	byModel := map[string][]RuleRow{}
	for _, r := range rules {
		if _, ok := byModel[r.Model]; !ok {
			order = append(order, r.Model)
		}
		byModel[r.Model] = append(byModel[r.Model], r)
	}

	type segKey struct {
		accountModelID int64
		number         int
	}
	pos := map[segKey]int{}
	var rows []*types.Segment

	for _, name := range order {
		modelRows := byModel[name]
		model, err := c.models.GetOrCreate(dbc, name)
		if err != nil {
			c.log.Error("model lookup failed; rows skipped", "model", name, "rows", len(modelRows), "error", err)
			res.Errors += len(modelRows)
			continue
		}
		am, err := c.accountModels.GetOrCreate(dbc, accountID, model.ID, version)
		if err != nil {
			c.log.Error("account model lookup failed; rows skipped", "model", name, "version", version, "rows", len(modelRows), "error", err)
			res.Errors += len(modelRows)
			continue
		}
		res.ModelIDs = append(res.ModelIDs, model.ID)
		res.AccountModelIDs = append(res.AccountModelIDs, am.ID)

		for _, r := range modelRows {
			seg := &types.Segment{
				AccountModelID: am.ID,
				SegmentNumber:  r.SegmentNumber,
				PredictedValue: r.PredictedValue,
				Description:    r.Description,
			}
			k := segKey{am.ID, r.SegmentNumber}
			if i, dup := pos[k]; dup {
				rows[i] = seg
				continue
			}
			pos[k] = len(rows)
			rows = append(rows, seg)
		}
	}

	if err := c.segments.Upsert(dbc, rows); err != nil {
		res.Errors += len(rows)
		return res, fmt.Errorf("upsert segments: %w", err)
	}
	res.Segments = len(rows)
	return res, nil
}
