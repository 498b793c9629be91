package view

import (
	"testing"

	"github.com/Semior001/newsboard/app/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var petArticles = []store.Article{
	{ID: "1", Title: "Cats", Summary: "Felines are great", Site: "A"},
	{ID: "2", Title: "Dogs", Summary: "Canines.", Site: "B"},
}

func TestFilter(t *testing.T) {
	tests := []struct {
		name     string
		keywords string
		want     []string
	}{
		{name: "single keyword", keywords: "cat", want: []string{"1"}},
		{name: "any keyword matches", keywords: "cat,dog", want: []string{"1", "2"}},
		{name: "case-insensitive summary", keywords: "FELINE", want: []string{"1"}},
		{name: "summary only match", keywords: "canines", want: []string{"2"}},
		{name: "no match", keywords: "bird", want: []string{}},
		{name: "whitespace is kept", keywords: "cat, dog", want: []string{"1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Filter(petArticles, tt.keywords)
			ids := make([]string, 0, len(got))
			for _, a := range got {
				ids = append(ids, a.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestFilter_ArticleWithoutFields(t *testing.T) {
	assert.Empty(t, Filter([]store.Article{{ID: "1", Site: "A"}}, "cat"))
}

func TestKeywords(t *testing.T) {
	assert.Equal(t, []string{"cat", " dog", ""}, Keywords("cat, dog,"))
}

func TestGroupBySite(t *testing.T) {
	t.Run("empty, nothing loaded", func(t *testing.T) {
		assert.Equal(t, Page{Empty: true}, GroupBySite(nil, false))
	})

	t.Run("empty, filtered out", func(t *testing.T) {
		assert.Equal(t, Page{Empty: true, Filtered: true}, GroupBySite(nil, true))
	})

	t.Run("grouped in site order", func(t *testing.T) {
		articles := []store.Article{
			{ID: "1", Site: "c"},
			{ID: "2", Site: "a"},
			{ID: "3", Site: "c"},
			{ID: "4", Site: "b"},
		}

		page := GroupBySite(articles, false)
		assert.False(t, page.Empty)
		require.Len(t, page.Groups, 3)

		assert.Equal(t, "a", page.Groups[0].Site)
		assert.Equal(t, "b", page.Groups[1].Site)
		assert.Equal(t, "c", page.Groups[2].Site)
		assert.Equal(t, []store.Article{{ID: "1", Site: "c"}, {ID: "3", Site: "c"}}, page.Groups[2].Articles)

		for _, g := range page.Groups {
			assert.NotEmpty(t, g.Articles, "group %s must not be empty", g.Site)
		}
	})

	t.Run("filter feeds grouping", func(t *testing.T) {
		page := GroupBySite(Filter(petArticles, "cat"), true)
		assert.Equal(t, Page{Filtered: true, Groups: []Group{{Site: "A", Articles: petArticles[:1]}}}, page)
	})
}

func TestCommentsHeader(t *testing.T) {
	assert.Empty(t, CommentsHeader(store.Article{}))
	assert.Empty(t, CommentsHeader(store.Article{Comments: []store.Comment{}}))
	assert.Equal(t, "Comments:", CommentsHeader(store.Article{Comments: []store.Comment{{Text: "nice"}}}))
}

func TestProjector(t *testing.T) {
	col := store.NewCollection()
	p := NewProjector(col, 10)

	assert.Equal(t, Page{Empty: true}, p.All())
	assert.Equal(t, Page{Empty: true, Filtered: true}, p.Filtered("cat"))

	col.Replace(petArticles)

	page := p.All()
	require.Len(t, page.Groups, 2)
	assert.Equal(t, "Felines are great.", page.Groups[0].Articles[0].Summary, "summary normalized on ingestion")

	_ = p.All()
	assert.EqualValues(t, 1, p.CacheStat().Hits)

	filtered := p.Filtered("dog")
	require.Len(t, filtered.Groups, 1)
	assert.Equal(t, "B", filtered.Groups[0].Site)

	_, err := col.AppendComment("1", store.Comment{Text: "nice"})
	require.NoError(t, err)

	page = p.All()
	require.Len(t, page.Groups[0].Articles[0].Comments, 1, "new version must not be served from cache")
	assert.EqualValues(t, 1, p.CacheStat().Hits)
}
