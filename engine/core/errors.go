package core

import (
	"errors"
)

var (
	// ErrUndefinedSource is returned when a texture source has no url or no
	// resolved GPU texture yet. It is an expected transient state.
	ErrUndefinedSource = errors.New("texture source is undefined")
	// ErrDecodeFailure is returned by the decode factories when the image is
	// missing, malformed or laid out in a way the factory cannot consume.
	ErrDecodeFailure = errors.New("texture decode failure")
	// ErrStaleResult marks a decode that completed for an identity that has
	// since been replaced by a newer reset.
	ErrStaleResult       = errors.New("stale texture decode result")
	ErrAssetNotFound     = errors.New("asset not found")
	ErrAssetTooLarge     = errors.New("asset exceeds the fetch size limit")
	ErrUnsupportedScheme = errors.New("unsupported url scheme")
	ErrRegistryFull      = errors.New("texture registry is full")
)
