package adapter

import (
	"errors"
	"fmt"
)

var (
	ErrOutOfBounds   = errors.New("OUT_OF_BOUNDS")
	ErrUnknownFormat = errors.New("UNKNOWN_FORMAT")
	ErrDriverFailure = errors.New("DRIVER_FAILURE")
)

// driverErr 包装自动化层的错误，保留原始错误供 errors.Is/As 使用
func driverErr(action string, err error) error {
	if errors.Is(err, ErrDriverFailure) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrDriverFailure, action, err)
}
