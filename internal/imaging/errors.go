package imaging

import "fmt"

// DecodeError represents a failure to decode or encode raster data.
type DecodeError struct {
	Message string
	Cause   error
}

func (e *DecodeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("imaging error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("imaging error: %s", e.Message)
}

func (e *DecodeError) Unwrap() error {
	return e.Cause
}

// RasterizeError represents a failure of the PDF rasterizer.
type RasterizeError struct {
	Message string
	Cause   error
}

func (e *RasterizeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("rasterize error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("rasterize error: %s", e.Message)
}

func (e *RasterizeError) Unwrap() error {
	return e.Cause
}
