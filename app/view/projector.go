package view

import (
	"fmt"

	"github.com/Semior001/newsboard/app/store"
	cache "github.com/go-pkgz/expirable-cache/v2"
)

// Source provides snapshots of the collection.
type Source interface {
	Snapshot() store.Snapshot
	Version() uint64
}

// Projector derives pages from the collection and memoizes them
// by the collection version.
type Projector struct {
	src   Source
	cache cache.Cache[string, Page]
}

// NewProjector makes a new Projector that keeps up to maxKeys pages.
func NewProjector(src Source, maxKeys int) *Projector {
	return &Projector{
		src:   src,
		cache: cache.NewCache[string, Page]().WithLRU().WithMaxKeys(maxKeys),
	}
}

// All returns the whole collection grouped by site.
func (p *Projector) All() Page {
	key := fmt.Sprintf("%d:all", p.src.Version())
	if page, ok := p.cache.Get(key); ok {
		return page
	}

	snap := p.src.Snapshot()
	page := GroupBySite(snap.Articles, false)
	p.cache.Set(fmt.Sprintf("%d:all", snap.Version), page, 0)
	return page
}

// Filtered returns articles matching the raw keywords grouped by site.
func (p *Projector) Filtered(raw string) Page {
	key := fmt.Sprintf("%d:filter:%s", p.src.Version(), raw)
	if page, ok := p.cache.Get(key); ok {
		return page
	}

	snap := p.src.Snapshot()
	page := GroupBySite(Filter(snap.Articles, raw), true)
	p.cache.Set(fmt.Sprintf("%d:filter:%s", snap.Version, raw), page, 0)
	return page
}

// CacheStat returns cache stats.
func (p *Projector) CacheStat() cache.Stats { return p.cache.Stat() }
