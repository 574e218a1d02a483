package engine

import (
	"errors"
	"fmt"
)

// ErrInvalidBoard is returned for board parameters no match can be played on.
var ErrInvalidBoard = errors.New("invalid board parameters")

// ValidateBoardConfig checks the board dimensions. maxLength bounds width,
// height and connect; values below 1 fall back to DefaultMaxLength.
func ValidateBoardConfig(cfg BoardConfig, maxLength int) error {
	if maxLength < MinDimension {
		maxLength = DefaultMaxLength
	}

	if cfg.Width < MinDimension || cfg.Width > maxLength {
		return fmt.Errorf("%w: width must be between %d and %d, got %d", ErrInvalidBoard, MinDimension, maxLength, cfg.Width)
	}
	if cfg.Height < MinDimension || cfg.Height > maxLength {
		return fmt.Errorf("%w: height must be between %d and %d, got %d", ErrInvalidBoard, MinDimension, maxLength, cfg.Height)
	}
	if cfg.Connect < MinDimension || cfg.Connect > maxLength {
		return fmt.Errorf("%w: connect must be between %d and %d, got %d", ErrInvalidBoard, MinDimension, maxLength, cfg.Connect)
	}

	return nil
}
