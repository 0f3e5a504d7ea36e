package source

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestVideoIDFromURL(t *testing.T) {
	assert.Equal(t, "abc123", VideoIDFromURL("https://www.youtube.com/watch?v=abc123&list=PL1"))
	assert.Equal(t, "abc123", VideoIDFromURL("https://www.youtube.com/watch?v=abc123"))
	assert.Equal(t, "", VideoIDFromURL("https://youtu.be/abc123"))
}

func TestPlaylistLimit(t *testing.T) {
	p := &Playlist{Items: []Item{{VideoID: "a"}, {VideoID: "b"}, {VideoID: "c"}}}
	assert.Len(t, p.Limit(0), 3)
	assert.Len(t, p.Limit(2), 2)
	assert.Len(t, p.Limit(10), 3)
}

func TestExtractAndReload(t *testing.T) {
	items := []Item{
		{VideoID: "v1", Title: "Zero trust at scale", URL: "https://www.youtube.com/watch?v=v1"},
		{VideoID: "v2", Title: "Karpenter deep dive", URL: "https://www.youtube.com/watch?v=v2"},
	}
	src := &MockSource{}
	src.On("Playlist", mock.Anything).Return(&Playlist{Title: "re:Invent 2024", Items: items}, nil)
	src.On("Transcript", mock.Anything, items[0]).Return("we talk about identity", nil)
	src.On("Transcript", mock.Anything, items[1]).Return("", ErrNoTranscript)

	a, err := Extract(context.Background(), src, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	require.Len(t, a.Items, 2)
	assert.Nil(t, a.Items[1].Transcript)

	path := filepath.Join(t.TempDir(), "nested", "transcripts.json")
	require.NoError(t, WriteArchive(path, a))

	fs, err := OpenFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, fs.Len())

	p, err := fs.Playlist(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "re:Invent 2024", p.Title)
	require.Len(t, p.Items, 2)
	for i, it := range p.Items {
		assert.Equal(t, i+1, it.Position)
		it.Position = 0
		assert.Equal(t, items[i], it)
	}

	text, err := fs.Transcript(context.Background(), items[0])
	require.NoError(t, err)
	assert.Equal(t, "we talk about identity", text)

	_, err = fs.Transcript(context.Background(), items[1])
	assert.ErrorIs(t, err, ErrNoTranscript)

	_, err = fs.Transcript(context.Background(), Item{VideoID: "unknown"})
	assert.ErrorIs(t, err, ErrNoTranscript)
}

func TestExtractAbortsOnFetchError(t *testing.T) {
	item := Item{VideoID: "v1"}
	src := &MockSource{}
	src.On("Playlist", mock.Anything).Return(&Playlist{Items: []Item{item}}, nil)
	src.On("Transcript", mock.Anything, item).Return("", errors.New("quota exceeded"))

	_, err := Extract(context.Background(), src, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.ErrorContains(t, err, "quota exceeded")
}

func TestOpenFileMissing(t *testing.T) {
	_, err := OpenFile(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestFirstN(t *testing.T) {
	items := []Item{{VideoID: "a"}, {VideoID: "b"}, {VideoID: "c"}}
	src := &MockSource{}
	src.On("Playlist", mock.Anything).Return(&Playlist{Title: "t", Items: items}, nil)

	p, err := FirstN(src, 2).Playlist(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "t", p.Title)
	assert.Len(t, p.Items, 2)

	assert.Same(t, Source(src), FirstN(src, 0))
}

func TestFileSourcePairsTranscriptsByPosition(t *testing.T) {
	text := func(s string) *string { return &s }
	fs := NewFileSource(Archive{Items: []ArchivedItem{
		{Item: Item{Title: "first"}, Transcript: text("transcript about security")},
		{Item: Item{Title: "second"}, Transcript: text("transcript about keynotes")},
		{Item: Item{VideoID: "x", Title: "repeat without transcript"}},
		{Item: Item{VideoID: "x", Title: "repeat with transcript"}, Transcript: text("transcript about gitops")},
	}})

	p, err := fs.Playlist(context.Background())
	require.NoError(t, err)
	require.Len(t, p.Items, 4)

	tests := []struct {
		item    Item
		want    string
		wantErr error
	}{
		{item: p.Items[0], want: "transcript about security"},
		{item: p.Items[1], want: "transcript about keynotes"},
		{item: p.Items[2], wantErr: ErrNoTranscript},
		{item: p.Items[3], want: "transcript about gitops"},
	}
	for _, tt := range tests {
		t.Run(tt.item.Title, func(t *testing.T) {
			got, err := fs.Transcript(context.Background(), tt.item)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	// without a position an empty id never matches
	_, err = fs.Transcript(context.Background(), Item{Title: "first"})
	assert.ErrorIs(t, err, ErrNoTranscript)
	assert.Equal(t, 3, fs.Len())
}
