package domain

import "errors"

var (
	// ErrSchema marks an input whose columns do not match what the job expects.
	ErrSchema = errors.New("schema mismatch")

	// ErrNoCounties is returned when the boundary source yields no usable polygons.
	ErrNoCounties = errors.New("no county boundaries")
)
