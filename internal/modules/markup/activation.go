package markup

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/yungbote/markupsync/internal/data/repos"
	types "github.com/yungbote/markupsync/internal/domain/segmentation"
	"github.com/yungbote/markupsync/internal/platform/dbctx"
	"github.com/yungbote/markupsync/internal/platform/logger"
)

type ActivationManager struct {
	log    *logger.Logger
	active repos.ActiveAccountModelRepo
}

func NewActivationManager(log *logger.Logger, active repos.ActiveAccountModelRepo) *ActivationManager {
	return &ActivationManager{log: log.With("component", "ActivationManager"), active: active}
}

// Activate points each affected model of the account at its candidate account model. The old
// pointers are replaced in the same transaction, so readers never see a model without one.
func (a *ActivationManager) Activate(ctx context.Context, accountID uuid.UUID, modelIDs []int64, candidates []*types.AccountModel) ([]int64, error) {
	if len(modelIDs) == 0 {
		return nil, nil
	}
	rows := make([]*types.ActiveAccountModel, 0, len(candidates))
	activated := make([]int64, 0, len(candidates))
	for _, c := range candidates {
		rows = append(rows, &types.ActiveAccountModel{
			AccountID:      accountID,
			ModelID:        c.ModelID,
			AccountModelID: c.ID,
		})
		activated = append(activated, c.ID)
	}
	if err := a.active.Swap(dbctx.Context{Ctx: ctx}, accountID, modelIDs, rows); err != nil {
		return nil, fmt.Errorf("swap active account models: %w", err)
	}
	a.log.Info("active versions swapped", "models", len(modelIDs), "account_models", activated)
	return activated, nil
}
