// Package token assembles a token record from a mint address by combining the
// on-chain metadata account, the off-chain document it points at, the website's
// DNS records and the mint supply.
package token

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/hunterwarburton/tokenscope/internal/core"
	"github.com/hunterwarburton/tokenscope/internal/logger"
	"github.com/hunterwarburton/tokenscope/internal/metadata"
	"github.com/hunterwarburton/tokenscope/internal/observability"
)

// Resolver runs the resolution pipeline. It holds no per-call state and is
// safe for concurrent use when its collaborators are.
type Resolver struct {
	chain     core.ChainReader
	documents core.DocumentFetcher
	dns       core.DNSEnricher

	metrics         *observability.Metrics
	onChainFallback bool
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithMetrics records stage latencies and outcomes into m.
func WithMetrics(m *observability.Metrics) Option {
	return func(r *Resolver) {
		r.metrics = m
	}
}

// WithOnChainFallback fills a missing name or symbol from the borsh-decoded
// on-chain metadata.
func WithOnChainFallback(enabled bool) Option {
	return func(r *Resolver) {
		r.onChainFallback = enabled
	}
}

// NewResolver wires the pipeline collaborators together.
func NewResolver(chain core.ChainReader, documents core.DocumentFetcher, dns core.DNSEnricher, opts ...Option) *Resolver {
	r := &Resolver{
		chain:     chain,
		documents: documents,
		dns:       dns,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ResolveToken builds the metadata part of a record: name, symbol,
// description, socials, website and its DNS entries. Supply is not set and
// the description is returned as published.
func (r *Resolver) ResolveToken(ctx context.Context, address string) (*core.TokenRecord, error) {
	metadataAddress, err := metadata.DeriveMetadataAddress(address)
	if err != nil {
		return nil, err
	}
	return r.resolveMetadata(ctx, metadataAddress)
}

// FetchSupply returns the supply of the mint at address.
func (r *Resolver) FetchSupply(ctx context.Context, address string) (core.SupplyInfo, error) {
	mint, err := metadata.ParseMint(address)
	if err != nil {
		return core.SupplyInfo{}, err
	}
	return r.fetchSupply(ctx, mint)
}

// Resolve runs the metadata and supply branches concurrently and merges
// them. An invalid address fails before either branch starts.
func (r *Resolver) Resolve(ctx context.Context, address string) Outcome {
	mint, err := metadata.ParseMint(address)
	if err != nil {
		r.metrics.RecordResolution(observability.OutcomeError)
		return Outcome{TokenErr: err}
	}
	metadataAddress, err := metadata.DeriveMetadataPDA(mint)
	if err != nil {
		r.metrics.RecordResolution(observability.OutcomeError)
		return Outcome{TokenErr: err}
	}
	logger.Debug("Resolving %s via metadata account %s", mint, metadataAddress)

	var (
		wg        sync.WaitGroup
		record    *core.TokenRecord
		tokenErr  error
		supply    core.SupplyInfo
		supplyErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		record, tokenErr = r.resolveMetadata(ctx, metadataAddress)
	}()
	go func() {
		defer wg.Done()
		supply, supplyErr = r.fetchSupply(ctx, mint)
	}()
	wg.Wait()

	out := Outcome{TokenErr: tokenErr, SupplyErr: supplyErr}
	if supplyErr == nil {
		out.Supply = &supply
	}
	if tokenErr == nil && record != nil {
		if supplyErr == nil {
			record.Supply = core.StringPtr(supply.Amount)
		}
		if record.Description != nil {
			record.Description = core.StringPtr(metadata.CleanDescription(*record.Description))
		}
		out.Record = record
	}

	r.metrics.RecordResolution(out.label())
	return out
}

func (r *Resolver) resolveMetadata(ctx context.Context, metadataAddress solana.PublicKey) (*core.TokenRecord, error) {
	start := time.Now()
	data, err := r.chain.FetchAccount(ctx, metadataAddress)
	r.metrics.ObserveStage(observability.StageAccount, time.Since(start).Seconds(), err)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch metadata account: %w", err)
	}

	start = time.Now()
	uri, err := metadata.ParseURI(data)
	r.metrics.ObserveStage(observability.StageParse, time.Since(start).Seconds(), err)
	if err != nil {
		return nil, err
	}
	uri = metadata.CleanURI(uri)
	logger.Debug("Metadata account %s points at %s", metadataAddress, uri)

	start = time.Now()
	record, err := r.documents.Fetch(ctx, uri)
	r.metrics.ObserveStage(observability.StageDocument, time.Since(start).Seconds(), err)
	if err != nil {
		return nil, err
	}

	if r.onChainFallback {
		fillFromChain(record, data)
	}

	website := strings.TrimSpace(core.Value(record.Website))
	if website == "" {
		return record, nil
	}

	domain := metadata.DomainFromWebsite(website)
	if !metadata.IsValidDomain(domain) {
		return nil, fmt.Errorf("%w - %s", core.ErrInvalidDomain, domain)
	}

	start = time.Now()
	entries, err := r.dns.Entries(ctx, domain)
	r.metrics.ObserveStage(observability.StageDNS, time.Since(start).Seconds(), err)
	if err != nil {
		return nil, err
	}
	r.metrics.ObserveDNSEntries(len(entries))
	if entries == nil {
		entries = []string{}
	}
	record.DNSEntries = entries
	return record, nil
}

func (r *Resolver) fetchSupply(ctx context.Context, mint solana.PublicKey) (core.SupplyInfo, error) {
	start := time.Now()
	supply, err := r.chain.FetchSupply(ctx, mint)
	r.metrics.ObserveStage(observability.StageSupply, time.Since(start).Seconds(), err)
	return supply, err
}

// fillFromChain copies name and symbol from the on-chain account into record
// where the document left them empty.
func fillFromChain(record *core.TokenRecord, data []byte) {
	onChain, err := metadata.DecodeOnChain(data)
	if err != nil {
		logger.Debug("On-chain fallback skipped: %v", err)
		return
	}
	if core.Value(record.Name) == "" && onChain.Name != "" {
		record.Name = core.StringPtr(onChain.Name)
	}
	if core.Value(record.Symbol) == "" && onChain.Symbol != "" {
		record.Symbol = core.StringPtr(onChain.Symbol)
	}
}
