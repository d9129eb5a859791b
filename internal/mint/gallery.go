package mint

import (
	"context"
	"math/big"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"

	"github.com/lafiyatech/medimint/internal/chain"
	"github.com/lafiyatech/medimint/internal/fault"
	"github.com/lafiyatech/medimint/internal/logbook"
)

// ContractReader is the idempotent read surface of the NFT contract.
type ContractReader interface {
	AllNFTsList(ctx context.Context) (chain.AllNFTs, error)
	NFTsByCreator(ctx context.Context, creator common.Address) ([]*big.Int, []string, error)
}

// RewardReader reads the fungible reward token.
type RewardReader interface {
	BalanceOf(ctx context.Context, account common.Address) (*big.Int, error)
	RewardAmount(ctx context.Context) (*big.Int, error)
}

// MetadataFetcher resolves token URIs into metadata documents.
type MetadataFetcher interface {
	FetchJSON(ctx context.Context, ref string, out any) error
}

// Gallery owns the mint dashboard's local collections: the token listing,
// the set minted by the connected account, and the reward balance. Like
// every collection in medimint it is a cache of confirmed chain state
// with explicit refresh points.
type Gallery struct {
	contract ContractReader
	rewards  RewardReader
	meta     MetadataFetcher
	log      *logbook.Logbook

	busy atomic.Bool

	mu           sync.Mutex
	records      []Record
	mine         map[string]bool // tokenID -> minted by the session account
	account      common.Address
	balance      *big.Int
	rewardAmount *big.Int
}

// GalleryOption customizes gallery construction.
type GalleryOption func(*Gallery)

// WithGalleryLogbook attaches an activity log.
func WithGalleryLogbook(log *logbook.Logbook) GalleryOption {
	return func(g *Gallery) { g.log = log }
}

// WithRewardReader attaches the reward token client. Without it the
// balance pane stays empty.
func WithRewardReader(r RewardReader) GalleryOption {
	return func(g *Gallery) { g.rewards = r }
}

// NewGallery wires the gallery to its chain readers.
func NewGallery(contract ContractReader, meta MetadataFetcher, opts ...GalleryOption) *Gallery {
	g := &Gallery{
		contract: contract,
		meta:     meta,
		mine:     map[string]bool{},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// GallerySnapshot is a render-safe copy of the gallery state.
type GallerySnapshot struct {
	Records      []Record
	Mine         map[string]bool
	Balance      *big.Int
	RewardAmount *big.Int
}

// Snapshot returns a copy of the current collections.
func (g *Gallery) Snapshot() GallerySnapshot {
	g.mu.Lock()
	defer g.mu.Unlock()
	mine := make(map[string]bool, len(g.mine))
	for id, ok := range g.mine {
		mine[id] = ok
	}
	return GallerySnapshot{
		Records:      append([]Record(nil), g.records...),
		Mine:         mine,
		Balance:      g.balance,
		RewardAmount: g.rewardAmount,
	}
}

// Refresh fans out the independent chain reads in parallel and applies
// each to its own collection; one failed source never blocks the others.
// A secondary fan-out fetches metadata per token; those are best-effort
// and partial metadata is an expected steady state, not an error.
func (g *Gallery) Refresh(ctx context.Context, account common.Address) error {
	const op = "mint.refresh"

	if !g.busy.CompareAndSwap(false, true) {
		return fault.New(fault.Validation, op, "a refresh is already in progress")
	}
	defer g.busy.Store(false)

	var (
		wg sync.WaitGroup

		listing    chain.AllNFTs
		mineIDs    []*big.Int
		balance    *big.Int
		reward     *big.Int
		listingErr error
		mineErr    error
		rewardErr  error
	)
	wg.Add(3)
	go func() {
		defer wg.Done()
		listing, listingErr = g.contract.AllNFTsList(ctx)
	}()
	go func() {
		defer wg.Done()
		mineIDs, _, mineErr = g.contract.NFTsByCreator(ctx, account)
	}()
	go func() {
		defer wg.Done()
		if g.rewards == nil {
			return
		}
		balance, rewardErr = g.rewards.BalanceOf(ctx, account)
		if rewardErr != nil {
			return
		}
		reward, rewardErr = g.rewards.RewardAmount(ctx)
	}()
	wg.Wait()

	g.mu.Lock()
	g.account = account
	if listingErr == nil {
		g.records = mergeListing(g.records, listing)
	}
	if mineErr == nil {
		g.mine = map[string]bool{}
		for _, id := range mineIDs {
			g.mine[id.String()] = true
		}
	}
	if rewardErr == nil && g.rewards != nil {
		g.balance = balance
		g.rewardAmount = reward
	}
	pending := make([]Record, 0, len(g.records))
	for _, rec := range g.records {
		if rec.Metadata == nil && rec.TokenURI != "" {
			pending = append(pending, rec)
		}
	}
	g.mu.Unlock()

	g.fetchMetadata(ctx, pending)

	var failed []string
	for _, f := range []struct {
		source string
		err    error
	}{
		{"listing", listingErr},
		{"owned tokens", mineErr},
		{"rewards", rewardErr},
	} {
		if f.err != nil {
			failed = append(failed, f.source)
			g.log.Warn("gallery refresh: %s failed: %v", f.source, f.err)
		}
	}
	if len(failed) > 0 {
		return fault.New(fault.Network, op, "failed to load: %s", strings.Join(failed, ", "))
	}
	return nil
}

// fetchMetadata resolves metadata for each record independently. Failures
// only leave that record's metadata absent.
func (g *Gallery) fetchMetadata(ctx context.Context, pending []Record) {
	var wg sync.WaitGroup
	for _, rec := range pending {
		rec := rec
		wg.Add(1)
		go func() {
			defer wg.Done()
			var md Metadata
			if err := g.meta.FetchJSON(ctx, rec.TokenURI, &md); err != nil {
				g.log.Warn("gallery: metadata for token %s unavailable: %v", rec.TokenID, err)
				return
			}
			g.mu.Lock()
			for i := range g.records {
				if g.records[i].TokenID.Cmp(rec.TokenID) == 0 {
					g.records[i].Metadata = &md
					break
				}
			}
			g.mu.Unlock()
		}()
	}
	wg.Wait()
}

// Upsert merges a freshly minted record into the collection, replacing any
// record with the same token id rather than duplicating it.
func (g *Gallery) Upsert(rec Record) {
	if rec.TokenID == nil {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	replaced := false
	for i := range g.records {
		if g.records[i].TokenID.Cmp(rec.TokenID) == 0 {
			g.records[i] = rec
			replaced = true
			break
		}
	}
	if !replaced {
		g.records = append(g.records, rec)
	}
	if rec.Creator == g.account {
		g.mine[rec.TokenID.String()] = true
	}
}

// mergeListing converts the contract's column listing into records,
// keeping metadata already fetched for unchanged token URIs.
func mergeListing(existing []Record, listing chain.AllNFTs) []Record {
	byID := make(map[string]Record, len(existing))
	for _, rec := range existing {
		if rec.TokenID != nil {
			byID[rec.TokenID.String()] = rec
		}
	}
	records := make([]Record, 0, len(listing.TokenIDs))
	for i, id := range listing.TokenIDs {
		rec := Record{
			TokenID:  id,
			Creator:  listing.Creators[i],
			Owner:    listing.Owners[i],
			TokenURI: listing.TokenURIs[i],
		}
		if prev, ok := byID[id.String()]; ok && prev.TokenURI == rec.TokenURI {
			rec.Metadata = prev.Metadata
			rec.Reward = prev.Reward
		}
		records = append(records, rec)
	}
	return records
}
