package service

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/GTDGit/checkout_gateway/internal/cache"
	"github.com/GTDGit/checkout_gateway/internal/models"
)

// AccountRangeProvider resolves the issuing metadata of a card. It never
// fails: unknown ranges and lookup faults resolve to models.UnknownPANInfo.
type AccountRangeProvider interface {
	GetPANInfo(ctx context.Context, pan models.Secret) models.PANInfo
}

// DefaultAccountRanges returns the built-in account range table.
func DefaultAccountRanges() map[string]models.PANInfo {
	return map[string]models.PANInfo{
		"4444444444": {Country: "FR", Category: "BLACK", Franchise: models.FranchiseVisa, Issuer: "LCL"},
		"5555555555": {Country: "VE", Category: "BLACK", Franchise: models.FranchiseMasterCard, Issuer: "Banco de Venezuela"},
		"4444455555": {Country: "UK", Category: "BLACK", Franchise: models.FranchiseVisa, Issuer: "HSBC"},
	}
}

// StaticAccountRangeProvider answers from a table fixed at construction.
type StaticAccountRangeProvider struct {
	ranges map[string]models.PANInfo
}

func NewStaticAccountRangeProvider(ranges map[string]models.PANInfo) *StaticAccountRangeProvider {
	copied := make(map[string]models.PANInfo, len(ranges))
	for k, v := range ranges {
		copied[k] = v
	}
	return &StaticAccountRangeProvider{ranges: copied}
}

func (p *StaticAccountRangeProvider) GetPANInfo(_ context.Context, pan models.Secret) models.PANInfo {
	rng := models.AccountRange(pan.Reveal())
	if rng == "" {
		return models.UnknownPANInfo()
	}
	if info, ok := p.ranges[rng]; ok {
		return info
	}
	return models.UnknownPANInfo()
}

type accountRangeStore interface {
	GetByRange(ctx context.Context, accountRange string) (*models.PANInfo, error)
}

// StoreAccountRangeProvider reads the account_ranges table and delegates to
// fallback when a range is missing or the store fails.
type StoreAccountRangeProvider struct {
	store    accountRangeStore
	fallback AccountRangeProvider
}

func NewStoreAccountRangeProvider(store accountRangeStore, fallback AccountRangeProvider) *StoreAccountRangeProvider {
	return &StoreAccountRangeProvider{store: store, fallback: fallback}
}

func (p *StoreAccountRangeProvider) GetPANInfo(ctx context.Context, pan models.Secret) models.PANInfo {
	rng := models.AccountRange(pan.Reveal())
	if rng == "" {
		return models.UnknownPANInfo()
	}

	info, err := p.store.GetByRange(ctx, rng)
	if err != nil {
		log.Warn().Err(err).Msg("account range lookup failed, using fallback")
	}
	if info != nil {
		return *info
	}
	if p.fallback == nil {
		return models.UnknownPANInfo()
	}
	return p.fallback.GetPANInfo(ctx, pan)
}

// CachedAccountRangeProvider caches resolved metadata by account range.
// Unknown results are not cached so a later store entry is picked up.
type CachedAccountRangeProvider struct {
	next  AccountRangeProvider
	cache cache.AccountRangeCache
}

func NewCachedAccountRangeProvider(next AccountRangeProvider, c cache.AccountRangeCache) *CachedAccountRangeProvider {
	return &CachedAccountRangeProvider{next: next, cache: c}
}

func (p *CachedAccountRangeProvider) GetPANInfo(ctx context.Context, pan models.Secret) models.PANInfo {
	rng := models.AccountRange(pan.Reveal())
	if rng == "" {
		return models.UnknownPANInfo()
	}

	info, ok, err := p.cache.Get(ctx, rng)
	if err != nil {
		log.Warn().Err(err).Msg("account range cache read failed")
	}
	if ok {
		return info
	}

	info = p.next.GetPANInfo(ctx, pan)
	if !info.IsUnknown() {
		if err := p.cache.Set(ctx, rng, info); err != nil {
			log.Warn().Err(err).Msg("account range cache write failed")
		}
	}
	return info
}
