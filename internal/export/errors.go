package export

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies why an export failed
type Kind int

const (
	KindUnknown Kind = iota
	// MissingAsset means the source PDF or font could not be reached
	MissingAsset
	// DocumentOpenFailure means the source PDF could not be parsed
	DocumentOpenFailure
	// RasterizationFailure means a page could not be rendered or placed
	RasterizationFailure
	// FontEmbedFailure means the font bytes were rejected
	FontEmbedFailure
	// OverlayFailure means a field value could not be drawn
	OverlayFailure
	// SerializationFailure means the finished document could not be written
	SerializationFailure
)

// String returns the stable name used in logs and API responses
func (k Kind) String() string {
	switch k {
	case MissingAsset:
		return "MissingAsset"
	case DocumentOpenFailure:
		return "DocumentOpenFailure"
	case RasterizationFailure:
		return "RasterizationFailure"
	case FontEmbedFailure:
		return "FontEmbedFailure"
	case OverlayFailure:
		return "OverlayFailure"
	case SerializationFailure:
		return "SerializationFailure"
	default:
		return "Unknown"
	}
}

// Stage is the pipeline step that was running
type Stage string

const (
	StageCheckingAssets Stage = "checking-assets"
	StageOpening        Stage = "opening"
	StagePerPage        Stage = "per-page"
	StageSerializing    Stage = "serializing"
)

// Error is returned for every failed export
type Error struct {
	Kind  Kind
	Stage Stage
	// Path is the asset involved, when there is one
	Path string
	// Missing lists every unreachable asset for MissingAsset
	Missing []string
	Page    int
	Field   string
	Err     error
}

// Error implements the error interface
func (e *Error) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "export failed while %s: %s", e.Stage, e.Kind)

	var where []string
	if len(e.Missing) > 0 {
		where = append(where, "missing "+strings.Join(e.Missing, ", "))
	} else if e.Path != "" {
		where = append(where, "path "+e.Path)
	}
	if e.Page > 0 {
		where = append(where, fmt.Sprintf("page %d", e.Page))
	}
	if e.Field != "" {
		where = append(where, "field "+e.Field)
	}
	if len(where) > 0 {
		sb.WriteString(" (" + strings.Join(where, ", ") + ")")
	}

	if e.Err != nil {
		sb.WriteString(": " + e.Err.Error())
	}
	return sb.String()
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind carried by err, or KindUnknown
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsKind reports whether err is an export Error of kind k
func IsKind(err error, k Kind) bool {
	return err != nil && KindOf(err) == k
}
