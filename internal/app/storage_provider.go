package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/yungbote/markupsync/internal/config"
	"github.com/yungbote/markupsync/internal/platform/gcp"
	"github.com/yungbote/markupsync/internal/platform/logger"
)

var newObjectStore = gcp.NewStore

type StorageProviderBootstrapErrorCode string

const (
	StorageProviderBootstrapErrorInvalidMode         StorageProviderBootstrapErrorCode = "invalid_mode"
	StorageProviderBootstrapErrorMissingEmulatorHost StorageProviderBootstrapErrorCode = "missing_emulator_host"
	StorageProviderBootstrapErrorInvalidEmulatorHost StorageProviderBootstrapErrorCode = "invalid_emulator_host"
	StorageProviderBootstrapErrorMissingBucket       StorageProviderBootstrapErrorCode = "missing_bucket"
	StorageProviderBootstrapErrorConnectFailed       StorageProviderBootstrapErrorCode = "connect_failed"
)

type StorageProviderBootstrapError struct {
	Code         StorageProviderBootstrapErrorCode
	Mode         string
	EmulatorHost string
	Cause        error
}

func (e *StorageProviderBootstrapError) Error() string {
	if e == nil {
		return "object storage bootstrap failed"
	}
	return fmt.Sprintf(
		"object storage bootstrap failed (code=%s mode=%q emulator_host=%q): %v",
		e.Code,
		e.Mode,
		e.EmulatorHost,
		e.Cause,
	)
}

func (e *StorageProviderBootstrapError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func resolveObjectStore(ctx context.Context, log *logger.Logger, opts config.StorageOptions) (*gcp.Store, error) {
	storeCfg, err := opts.Store()
	if err != nil {
		classified := classifyStorageProviderBootstrapError(gcp.StorageTarget{
			Mode:         gcp.StorageMode(opts.Mode),
			EmulatorHost: opts.EmulatorHost,
		}, err)
		log.Error(
			"Object storage provider selection failed",
			"mode", opts.Mode,
			"emulator_host", opts.EmulatorHost,
			"error_code", storageProviderBootstrapErrorCode(classified),
			"error", classified,
		)
		return nil, classified
	}
	storageCfg := storeCfg.Storage
	if storeCfg.Bucket == "" {
		return nil, &StorageProviderBootstrapError{
			Code:         StorageProviderBootstrapErrorMissingBucket,
			Mode:         string(storageCfg.Mode),
			EmulatorHost: storageCfg.EmulatorHost,
			Cause:        fmt.Errorf("MODELS_BUCKET is not set"),
		}
	}

	log.Info(
		"Selecting object storage provider",
		"mode", storageCfg.Mode,
		"implied_mode", storageCfg.Implied,
		"emulator_host", storageCfg.EmulatorHost,
		"bucket", storeCfg.Bucket,
	)

	store, err := newObjectStore(ctx, log, storeCfg)
	if err != nil {
		classified := classifyStorageProviderBootstrapError(storageCfg, err)
		log.Error(
			"Object storage provider bootstrap failed",
			"mode", storageCfg.Mode,
			"implied_mode", storageCfg.Implied,
			"emulator_host", storageCfg.EmulatorHost,
			"error_code", storageProviderBootstrapErrorCode(classified),
			"error", classified,
		)
		return nil, classified
	}
	return store, nil
}

func classifyStorageProviderBootstrapError(storageCfg gcp.StorageTarget, err error) error {
	code := StorageProviderBootstrapErrorConnectFailed
	switch {
	case errors.Is(err, gcp.ErrUnknownStorageMode):
		code = StorageProviderBootstrapErrorInvalidMode
	case errors.Is(err, gcp.ErrEmulatorHostMissing):
		code = StorageProviderBootstrapErrorMissingEmulatorHost
	case errors.Is(err, gcp.ErrEmulatorHostInvalid):
		code = StorageProviderBootstrapErrorInvalidEmulatorHost
	}
	return &StorageProviderBootstrapError{
		Code:         code,
		Mode:         string(storageCfg.Mode),
		EmulatorHost: storageCfg.EmulatorHost,
		Cause:        err,
	}
}

func storageProviderBootstrapErrorCode(err error) StorageProviderBootstrapErrorCode {
	var bootstrapErr *StorageProviderBootstrapError
	if errors.As(err, &bootstrapErr) {
		if bootstrapErr.Code != "" {
			return bootstrapErr.Code
		}
	}
	return StorageProviderBootstrapErrorConnectFailed
}
