package labels

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalogMatch(t *testing.T) {
	tests := []struct {
		genre string
		want  []Match
	}{
		{
			genre: "House",
			want: []Match{
				{Label: "Defected", Score: 80},
				{Label: "Toolroom Records", Score: 80},
				{Label: "Hot Creations", Score: 80},
			},
		},
		{genre: "Tech House", want: []Match{{Label: "Toolroom Records", Score: 80}}},
		{genre: "Deep House", want: []Match{{Label: "Hot Creations", Score: 80}}},
		{genre: "Melodic House", want: []Match{{Label: "Defected", Score: 80}}},
		{genre: "Unknown", want: []Match{}},
		{genre: "", want: []Match{}},
		{genre: "house", want: []Match{}},
	}

	for _, tt := range tests {
		t.Run(tt.genre, func(t *testing.T) {
			got := DefaultCatalog().Match(tt.genre)
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDefaultCatalogIsShared(t *testing.T) {
	var wg sync.WaitGroup
	results := make([]*Catalog, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = DefaultCatalog()
			_ = results[i].Match("House")
		}(i)
	}
	wg.Wait()

	for _, c := range results {
		assert.Same(t, results[0], c)
	}
	assert.Equal(t, 3, DefaultCatalog().Len())
}

func TestCatalogIsImmutable(t *testing.T) {
	src := []Entry{{Name: "A", Genres: []string{"House"}}}
	c, err := NewCatalog(src)
	require.NoError(t, err)

	src[0].Genres[0] = "Techno"
	entries := c.Entries()
	entries[0].Name = "B"

	assert.Equal(t, []Match{{Label: "A", Score: 80}}, c.Match("House"))
}

func TestNewCatalogValidation(t *testing.T) {
	_, err := NewCatalog([]Entry{{Name: " "}})
	assert.Error(t, err)

	_, err = NewCatalog([]Entry{{Name: "A"}, {Name: "A"}})
	assert.Error(t, err)
}

func TestLoadCatalog(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "labels.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`labels:
  - name: Drumcode
    genres: [Techno]
  - name: Anjunadeep
    genres: [Deep House, Melodic House]
  - name: Kompakt
    genres: [Techno, Minimal]
`), 0o644))

	c, err := LoadCatalog(path)
	require.NoError(t, err)
	assert.Equal(t, 3, c.Len())
	assert.Equal(t, []Match{{Label: "Drumcode", Score: 80}, {Label: "Kompakt", Score: 80}}, c.Match("Techno"))

	empty := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(empty, []byte("labels: []\n"), 0o644))
	_, err = LoadCatalog(empty)
	assert.Error(t, err)

	_, err = LoadCatalog(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "Deep House", Normalize("  deep   house "))
	assert.Equal(t, "Tech House", Normalize("TECH HOUSE"))
	assert.Equal(t, "", Normalize(""))
}
