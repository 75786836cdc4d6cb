package domain

import (
	"errors"
	"time"
)

// MediaKind tells how a stored file id has to be sent back.
type MediaKind int

const (
	MediaVideo MediaKind = iota + 1
	MediaPhoto
)

const (
	videoTag = 'B'
	photoTag = 'P'
)

// ErrInvalidMediaRef is returned for stored references without a known kind tag.
var ErrInvalidMediaRef = errors.New("invalid media reference")

// MediaRef is a platform file id together with its kind.
type MediaRef struct {
	Kind   MediaKind
	FileID string
}

// ParseMediaRef decodes the stored form: a one-letter kind tag followed by the file id.
func ParseMediaRef(s string) (MediaRef, error) {
	if len(s) < 2 {
		return MediaRef{}, ErrInvalidMediaRef
	}

	switch s[0] {
	case videoTag:
		return MediaRef{Kind: MediaVideo, FileID: s[1:]}, nil
	case photoTag:
		return MediaRef{Kind: MediaPhoto, FileID: s[1:]}, nil
	default:
		return MediaRef{}, ErrInvalidMediaRef
	}
}

// String encodes the reference in its stored form.
func (m MediaRef) String() string {
	switch m.Kind {
	case MediaVideo:
		return string(videoTag) + m.FileID
	case MediaPhoto:
		return string(photoTag) + m.FileID
	default:
		return ""
	}
}

// Title is a catalog entry.
type Title struct {
	ID           int64
	Name         string
	Media        MediaRef
	EpisodeCount int
	Country      string
	Language     string
	ReleaseYear  int
	Genres       string
	DubSource    string
	HitCount     int64
	VIPOnly      bool
	CreatedAt    time.Time
}

// NewTitle carries the values collected by the add-title flow.
type NewTitle struct {
	Name         string
	Media        MediaRef
	EpisodeCount int
	Country      string
	Language     string
	ReleaseYear  int
	Genres       string
	DubSource    string
}

// Episode is a single deliverable video of a title.
type Episode struct {
	ID        int64
	TitleID   int64
	Number    int
	FileID    string
	CreatedAt time.Time
}

// Stats summarizes store contents for the status view.
type Stats struct {
	Users    int64
	Titles   int64
	Episodes int64
}
