package report

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"playlist-digest/internal/digest"
	"playlist-digest/internal/source"
)

const (
	tocAnchor    = "table-of-contents"
	defaultDir   = "output"
	thumbnailURL = "https://img.youtube.com/vi/%s/0.jpg"
)

// Entry is one rendered video.
type Entry struct {
	Title     string
	URL       string
	Thumbnail string
	Summary   string
}

// Report groups entries by category.
type Report struct {
	title      string
	categories map[string][]Entry
}

// New starts an empty report.
func New(title string) *Report {
	return &Report{title: title, categories: make(map[string][]Entry)}
}

// FromResults builds a report from a finished run.
func FromResults(title string, results []digest.Result) *Report {
	r := New(title)
	for _, res := range results {
		r.Add(res.Category, res.Item, res.Summary)
	}
	return r
}

// Add appends a video to category.
func (r *Report) Add(category string, item source.Item, summary string) {
	id := item.VideoID
	if id == "" {
		id = source.VideoIDFromURL(item.URL)
	}
	r.categories[category] = append(r.categories[category], Entry{
		Title:     item.Title,
		URL:       item.URL,
		Thumbnail: fmt.Sprintf(thumbnailURL, id),
		Summary:   summary,
	})
}

// Empty reports whether no video was added.
func (r *Report) Empty() bool {
	return len(r.categories) == 0
}

// Categories returns the category names in sorted order.
func (r *Report) Categories() []string {
	names := make([]string, 0, len(r.categories))
	for c := range r.categories {
		names = append(names, c)
	}
	sort.Strings(names)
	return names
}

// Render produces the markdown document.
func (r *Report) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", r.title)
	fmt.Fprintf(&b, "<h2 id='%s'>Table of Contents</h2>\n\n", tocAnchor)

	names := r.Categories()
	for _, c := range names {
		fmt.Fprintf(&b, "- [%s](#%s) (%d videos)\n", c, anchor(c), len(r.categories[c]))
	}
	b.WriteString("\n")

	for _, c := range names {
		fmt.Fprintf(&b, "\n<h2 id='%s'>%s</h2>\n", anchor(c), c)
		for _, e := range r.categories[c] {
			writeEntry(&b, e)
		}
	}
	return b.String()
}

func writeEntry(b *strings.Builder, e Entry) {
	fmt.Fprintf(b, `
<table style='border: none; border-collapse: collapse; width: 100%%;'><tr style='border: none;'>
<td width='30%%' style='border: none;'><a href='%[1]s'><img src='%[2]s' width='200'></a></td>
<td valign='top' style='border: none;'>
<h3><a href='%[1]s'>%[3]s</a></h3>
%[4]s
<div style='text-align: right; font-size: 0.8em;'><a href='#%[5]s'>back to top</a></div>
</td>
</tr></table>
`, e.URL, e.Thumbnail, e.Title, e.Summary, tocAnchor)
}

func anchor(category string) string {
	return strings.ToLower(strings.ReplaceAll(category, " ", "-"))
}

var (
	unsafeChars = regexp.MustCompile(`[^\w\s-]`)
	separators  = regexp.MustCompile(`[-\s]+`)
)

// SanitizeFilename turns a title into a lowercase file-name stem.
func SanitizeFilename(title string) string {
	s := unsafeChars.ReplaceAllString(strings.ToLower(title), "")
	s = separators.ReplaceAllString(s, "_")
	return strings.Trim(s, "_")
}

// Filename derives the output path when none is given: output/<title>,
// with _first_<n> when limited and _filtered when a filter was active.
func Filename(title string, limit int, filtered bool) string {
	stem := SanitizeFilename(title)
	if stem == "" {
		stem = "playlist"
	}
	if limit > 0 {
		stem += fmt.Sprintf("_first_%d", limit)
	}
	if filtered {
		stem += "_filtered"
	}
	return filepath.Join(defaultDir, stem+".md")
}

// Save writes content to path, creating parent directories.
func Save(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
