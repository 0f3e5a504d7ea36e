package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Archive is the on-disk form of a playlist with its transcripts.
type Archive struct {
	Title       string         `json:"title"`
	ExtractedAt time.Time      `json:"extracted_at"`
	Items       []ArchivedItem `json:"items"`
}

// ArchivedItem is an item plus its transcript, nil when none was available.
type ArchivedItem struct {
	Item
	Transcript *string   `json:"transcript"`
	Timestamp  time.Time `json:"timestamp"`
}

// FileSource serves a previously written archive. Transcripts pair with
// items by position, so repeated or missing video ids never borrow another
// item's transcript.
type FileSource struct {
	archive Archive
}

// OpenFile loads an archive written by WriteArchive.
func OpenFile(path string) (*FileSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read transcript archive: %w", err)
	}
	var a Archive
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("decode transcript archive %s: %w", path, err)
	}
	return NewFileSource(a), nil
}

// NewFileSource serves an in-memory archive.
func NewFileSource(a Archive) *FileSource {
	return &FileSource{archive: a}
}

func (f *FileSource) Playlist(_ context.Context) (*Playlist, error) {
	p := &Playlist{Title: f.archive.Title, Items: make([]Item, 0, len(f.archive.Items))}
	for i, it := range f.archive.Items {
		item := it.Item
		item.Position = i + 1
		p.Items = append(p.Items, item)
	}
	return p, nil
}

// Transcript returns the transcript stored at item's position. Items
// without a position fall back to the first entry with the same non-empty
// video id.
func (f *FileSource) Transcript(_ context.Context, item Item) (string, error) {
	t := f.lookup(item)
	if t == nil || strings.TrimSpace(*t) == "" {
		return "", ErrNoTranscript
	}
	return *t, nil
}

func (f *FileSource) lookup(item Item) *string {
	if item.Position > 0 && item.Position <= len(f.archive.Items) {
		return f.archive.Items[item.Position-1].Transcript
	}
	if item.VideoID == "" {
		return nil
	}
	for _, it := range f.archive.Items {
		if it.VideoID == item.VideoID {
			return it.Transcript
		}
	}
	return nil
}

// Len returns how many items carry a transcript.
func (f *FileSource) Len() int {
	n := 0
	for _, it := range f.archive.Items {
		if it.Transcript != nil {
			n++
		}
	}
	return n
}

// Extract fetches every transcript from src into an Archive. Missing
// transcripts are recorded as nil; other errors abort.
func Extract(ctx context.Context, src Source, log *slog.Logger) (*Archive, error) {
	p, err := src.Playlist(ctx)
	if err != nil {
		return nil, fmt.Errorf("load playlist: %w", err)
	}
	a := &Archive{Title: p.Title, ExtractedAt: time.Now().UTC()}
	for _, item := range p.Items {
		entry := ArchivedItem{Item: item, Timestamp: time.Now().UTC()}
		t, err := src.Transcript(ctx, item)
		switch {
		case err == nil:
			entry.Transcript = &t
		case errors.Is(err, ErrNoTranscript):
			log.Info("no transcript available", "video_id", item.VideoID, "title", item.Title)
		default:
			return nil, fmt.Errorf("fetch transcript for %s: %w", item.VideoID, err)
		}
		a.Items = append(a.Items, entry)
	}
	return a, nil
}

// WriteArchive saves a to path, creating parent directories.
func WriteArchive(path string, a *Archive) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create archive dir: %w", err)
		}
	}
	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return fmt.Errorf("encode transcript archive: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
