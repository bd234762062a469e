package testutil

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/markupsync/internal/domain/segmentation"
)

func SeedModel(tb testing.TB, ctx context.Context, tx *gorm.DB, name string) *types.Model {
	tb.Helper()
	m := &types.Model{Name: name}
	if err := tx.WithContext(ctx).Create(m).Error; err != nil {
		tb.Fatalf("seed model: %v", err)
	}
	return m
}

func SeedAccountModel(tb testing.TB, ctx context.Context, tx *gorm.DB, accountID uuid.UUID, modelID int64, version string) *types.AccountModel {
	tb.Helper()
	am := &types.AccountModel{AccountID: accountID, ModelID: modelID, ModelVersion: version}
	if err := tx.WithContext(ctx).Omit(clause.Associations).Create(am).Error; err != nil {
		tb.Fatalf("seed account model: %v", err)
	}
	return am
}

func SeedSegment(tb testing.TB, ctx context.Context, tx *gorm.DB, accountModelID int64, number int) *types.Segment {
	tb.Helper()
	s := &types.Segment{AccountModelID: accountModelID, SegmentNumber: number}
	if err := tx.WithContext(ctx).Omit(clause.Associations).Create(s).Error; err != nil {
		tb.Fatalf("seed segment: %v", err)
	}
	return s
}

func SeedMarkup(tb testing.TB, ctx context.Context, tx *gorm.DB, segmentID int64, accountID uuid.UUID) *types.Markup {
	tb.Helper()
	m := &types.Markup{SegmentID: segmentID, CustomerProfileID: uuid.New(), AccountID: accountID}
	if err := tx.WithContext(ctx).Omit(clause.Associations).Create(m).Error; err != nil {
		tb.Fatalf("seed markup: %v", err)
	}
	return m
}

func SeedActive(tb testing.TB, ctx context.Context, tx *gorm.DB, am *types.AccountModel) *types.ActiveAccountModel {
	tb.Helper()
	a := &types.ActiveAccountModel{AccountID: am.AccountID, ModelID: am.ModelID, AccountModelID: am.ID}
	if err := tx.WithContext(ctx).Omit(clause.Associations).Create(a).Error; err != nil {
		tb.Fatalf("seed active account model: %v", err)
	}
	return a
}

func SeedCRMProfile(tb testing.TB, ctx context.Context, tx *gorm.DB, eshopID int64, eshopCustomerID string) *types.CustomerProfileCRM {
	tb.Helper()
	p := &types.CustomerProfileCRM{CustomerProfileID: uuid.New(), EshopCustomerID: eshopCustomerID, EshopID: eshopID}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed crm profile: %v", err)
	}
	return p
}

func SeedBehaviourProfile(tb testing.TB, ctx context.Context, tx *gorm.DB, accountID uuid.UUID, guestID string) *types.CustomerProfileBehaviour {
	tb.Helper()
	p := &types.CustomerProfileBehaviour{CustomerProfileID: uuid.New(), GuestID: guestID, AccountID: accountID}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed behaviour profile: %v", err)
	}
	return p
}

func Count(tb testing.TB, tx *gorm.DB, model interface{}, query string, args ...interface{}) int64 {
	tb.Helper()
	var n int64
	q := tx.Model(model)
	if query != "" {
		q = q.Where(query, args...)
	}
	if err := q.Count(&n).Error; err != nil {
		tb.Fatalf("count: %v", err)
	}
	return n
}
