// Package view derives rendering-ready projections of the collection:
// articles grouped by site, optionally filtered by keywords.
package view

import (
	"strings"

	"github.com/Semior001/newsboard/app/store"
	"github.com/samber/lo"
)

// Group is a site along with its articles in collection order.
type Group struct {
	Site     string
	Articles []store.Article
}

// Page is a projection of the collection.
// Empty page carries whether it is empty due to the filter or due to
// the absence of feeds.
type Page struct {
	Groups   []Group
	Empty    bool
	Filtered bool
}

// GroupBySite groups articles by site, sites are in lexicographic order.
// The filtered flag is passed through to the page.
func GroupBySite(articles []store.Article, filtered bool) Page {
	if len(articles) == 0 {
		return Page{Empty: true, Filtered: filtered}
	}

	bySite := lo.GroupBy(articles, func(a store.Article) string { return a.Site })

	return Page{
		Filtered: filtered,
		Groups: lo.Map(store.Sites(articles), func(site string, _ int) Group {
			return Group{Site: site, Articles: bySite[site]}
		}),
	}
}

// Keywords splits the raw comma-separated keywords string.
// Keywords are not trimmed.
func Keywords(raw string) []string { return strings.Split(raw, ",") }

// Filter returns articles that contain at least one of the keywords
// in the title or in the summary, case-insensitively.
func Filter(articles []store.Article, raw string) []store.Article {
	keywords := lo.Map(Keywords(raw), func(k string, _ int) string { return strings.ToLower(k) })

	return lo.Filter(articles, func(a store.Article, _ int) bool {
		summary, title := strings.ToLower(a.Summary), strings.ToLower(a.Title)
		return lo.ContainsBy(keywords, func(k string) bool {
			return strings.Contains(summary, k) || strings.Contains(title, k)
		})
	})
}

// CommentsHeader returns the label shown above the article's comments,
// empty if the article has no comments.
func CommentsHeader(a store.Article) string {
	if len(a.Comments) == 0 {
		return ""
	}
	return "Comments:"
}
