package source

import (
	"context"
	"errors"
	"strings"
)

// ErrNoTranscript is returned when an item has no transcript available.
var ErrNoTranscript = errors.New("no transcript available")

// Item is one playlist entry.
type Item struct {
	VideoID     string `json:"video_id"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
	// Position is the 1-based place of the item in its playlist, 0 when
	// unknown. Sources that pair transcripts by position rely on it.
	Position int `json:"-"`
}

// Playlist is an ordered list of items.
type Playlist struct {
	Title string `json:"title"`
	Items []Item `json:"items"`
}

// Limit returns the first n items, or all of them when n <= 0.
func (p *Playlist) Limit(n int) []Item {
	if n <= 0 || n >= len(p.Items) {
		return p.Items
	}
	return p.Items[:n]
}

// Source yields playlist items and their transcripts.
type Source interface {
	Playlist(ctx context.Context) (*Playlist, error)
	Transcript(ctx context.Context, item Item) (string, error)
}

// VideoIDFromURL extracts the v= query value from a watch URL.
func VideoIDFromURL(url string) string {
	_, after, ok := strings.Cut(url, "v=")
	if !ok {
		return ""
	}
	id, _, _ := strings.Cut(after, "&")
	return id
}

// FirstN wraps src so its playlist stops after n items. n <= 0 keeps all.
func FirstN(src Source, n int) Source {
	if n <= 0 {
		return src
	}
	return firstN{Source: src, n: n}
}

type firstN struct {
	Source
	n int
}

func (f firstN) Playlist(ctx context.Context) (*Playlist, error) {
	p, err := f.Source.Playlist(ctx)
	if err != nil {
		return nil, err
	}
	return &Playlist{Title: p.Title, Items: p.Limit(f.n)}, nil
}
