package ui

import (
	"context"
	"math/big"
	"time"

	"github.com/rs/zerolog/log"
)

// DisplayReads is the read-only contract slice the storefront shows.
type DisplayReads interface {
	Price(ctx context.Context) (*big.Int, error)
	TotalSupply(ctx context.Context) (*big.Int, error)
	MaxSupply(ctx context.Context) (*big.Int, error)
}

// DisplayPoller refreshes price and supply on an interval and pushes the
// result into the manager. A failed read keeps the previous values on
// screen rather than blanking them.
type DisplayPoller struct {
	reads    DisplayReads
	mgr      *Manager
	interval time.Duration
}

func NewDisplayPoller(reads DisplayReads, mgr *Manager, interval time.Duration) *DisplayPoller {
	return &DisplayPoller{reads: reads, mgr: mgr, interval: interval}
}

// Run refreshes once immediately, then on every tick until ctx is done.
func (p *DisplayPoller) Run(ctx context.Context) {
	p.Refresh(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Refresh(ctx)
		}
	}
}

// Refresh performs one read cycle.
func (p *DisplayPoller) Refresh(ctx context.Context) {
	price, err := p.reads.Price(ctx)
	if err != nil {
		log.Debug().Err(err).Msg("display price read failed")
		return
	}
	total, err := p.reads.TotalSupply(ctx)
	if err != nil {
		log.Debug().Err(err).Msg("display supply read failed")
		return
	}
	max, err := p.reads.MaxSupply(ctx)
	if err != nil {
		log.Debug().Err(err).Msg("display max supply read failed")
		return
	}
	p.mgr.ApplyDisplay(price.String(), total.Int64(), max.Int64())
}
