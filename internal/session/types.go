package session

import (
	"time"

	"github.com/jun787/CVA-cupping-forms/internal/schema"
)

// StoreFileVersion is the sessions file format version
const StoreFileVersion = 1

// Session is one respondent's record
type Session struct {
	// ID is a random UUID assigned on creation
	ID string `json:"id" yaml:"id"`

	// Title is shown in session lists and used for export file names
	Title string `json:"title" yaml:"title"`

	// SampleName identifies the coffee sample being scored
	SampleName string `json:"sampleName" yaml:"sampleName"`

	CreatedAt time.Time `json:"createdAt" yaml:"createdAt"`

	// UpdatedAt changes on every mutation and orders session lists
	UpdatedAt time.Time `json:"updatedAt" yaml:"updatedAt"`

	// Values maps field IDs to their current value
	Values schema.Values `json:"values" yaml:"values"`
}

// Clone returns a deep enough copy that mutating its values leaves s untouched
func (s *Session) Clone() *Session {
	c := *s
	c.Values = s.Values.Clone()
	return &c
}

// File is the on-disk container
type File struct {
	Version  int                 `json:"version"`
	Sessions map[string]*Session `json:"sessions"`
}

// NewFile creates an empty sessions file
func NewFile() *File {
	return &File{
		Version:  StoreFileVersion,
		Sessions: make(map[string]*Session),
	}
}

// MetaPatch updates session metadata. Nil fields are left alone.
type MetaPatch struct {
	Title      *string `json:"title,omitempty"`
	SampleName *string `json:"sampleName,omitempty"`
}

// Empty reports whether the patch changes nothing
func (p MetaPatch) Empty() bool {
	return p.Title == nil && p.SampleName == nil
}
