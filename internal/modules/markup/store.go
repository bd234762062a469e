package markup

import (
	"context"
	"io"

	"github.com/google/uuid"

	"github.com/yungbote/markupsync/internal/platform/authapi"
)

// ObjectStore is the blob storage holding model artifacts. Keys are slash-separated.
// Delete of a missing key is not an error.
type ObjectStore interface {
	ListKeys(ctx context.Context, prefix string) ([]string, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Put(ctx context.Context, key string, r io.Reader) error
	Copy(ctx context.Context, srcKey, dstKey string) error
	Delete(ctx context.Context, key string) error
}

// EshopLookup resolves the storefront attached to an account.
type EshopLookup interface {
	GetEshop(ctx context.Context, accountID uuid.UUID) (*authapi.Eshop, error)
}
