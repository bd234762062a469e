package gcp

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// StorageMode picks the bucket backend: real GCS or a fake-gcs emulator for local runs.
type StorageMode string

const (
	StorageModeGCS      StorageMode = "gcs"
	StorageModeEmulator StorageMode = "gcs_emulator"
)

var (
	ErrUnknownStorageMode  = errors.New("unknown storage mode")
	ErrEmulatorHostMissing = errors.New("emulator mode needs STORAGE_EMULATOR_HOST")
	ErrEmulatorHostInvalid = errors.New("STORAGE_EMULATOR_HOST must be an absolute URL")
)

// StorageTarget is the backend the model bucket is reached through. Implied is set when no
// mode was configured and an emulator host alone selected the emulator.
type StorageTarget struct {
	Mode         StorageMode
	EmulatorHost string
	Implied      bool
}

func (t StorageTarget) Emulated() bool { return t.Mode == StorageModeEmulator }

// ParseStorageTarget reads OBJECT_STORAGE_MODE and STORAGE_EMULATOR_HOST. An empty mode means
// gcs, or the emulator when a host is given.
func ParseStorageTarget(mode, emulatorHost string) (StorageTarget, error) {
	t := StorageTarget{
		Mode:         StorageMode(strings.ToLower(strings.TrimSpace(mode))),
		EmulatorHost: strings.TrimSpace(emulatorHost),
	}
	if t.Mode == "" {
		t.Mode = StorageModeGCS
		if t.EmulatorHost != "" {
			t.Mode = StorageModeEmulator
			t.Implied = true
		}
	}
	return t, t.Validate()
}

func (t StorageTarget) Validate() error {
	switch t.Mode {
	case StorageModeGCS:
		return nil
	case StorageModeEmulator:
	default:
		return fmt.Errorf("%w %q (want %q or %q)", ErrUnknownStorageMode, t.Mode, StorageModeGCS, StorageModeEmulator)
	}
	if t.EmulatorHost == "" {
		return ErrEmulatorHostMissing
	}
	u, err := url.Parse(t.EmulatorHost)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w, got %q", ErrEmulatorHostInvalid, t.EmulatorHost)
	}
	return nil
}
