package bookfetcher

import (
	"github.com/google/btree"

	"github.com/mselser95/arbengine/pkg/types"
)

// levelItem adapts a BookLevel for btree ordering by price.
type levelItem struct {
	types.BookLevel
}

func lessAscending(a, b levelItem) bool {
	return a.Price < b.Price
}

// bookIndex holds one token's ask levels in an ordered btree, giving
// O(log n) range queries over depth-at-or-better than a price. The hedge
// leg's slippage-cap sizing (spec §4.F step 7, internal/strategy/immediate)
// is the only consumer: it only ever buys, so only the ask side is
// indexed. Grounded on Yusufzhafir-go-orderbook's use of
// github.com/google/btree for ordered book-level storage.
type bookIndex struct {
	asks *btree.BTreeG[levelItem] // ordered ascending: asks.Min() is best ask
}

func newBookIndex() *bookIndex {
	return &bookIndex{
		asks: btree.NewG(32, lessAscending),
	}
}

// replace rebuilds the index from a fresh snapshot's ask levels,
// discarding any prior state; snapshots are immutable after publication
// so this is always a full rebuild, never an incremental update.
func (idx *bookIndex) replace(asks []types.BookLevel) {
	idx.asks.Clear(false)
	for _, l := range asks {
		idx.asks.ReplaceOrInsert(levelItem{l})
	}
}

// depthAtOrBetterAsk sums size across ask levels priced at or below
// maxPrice, used when a strategy needs to know how much is available up
// to a slippage-cap price rather than only at the best level.
func (idx *bookIndex) depthAtOrBetterAsk(maxPrice float64) float64 {
	total := 0.0
	idx.asks.Ascend(func(item levelItem) bool {
		if item.Price > maxPrice {
			return false
		}
		total += item.Size
		return true
	})
	return total
}
