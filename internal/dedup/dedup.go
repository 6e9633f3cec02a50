// Package dedup implements the C8 Duplicate Detector: a blocked fuzzy scan
// over the Person Registry that enqueues candidate-duplicate pairs onto the
// Review Queue. Grounded on spec.md §4.8's blocking-key contract; the
// bounded-concurrency fan-out over blocks is grounded on
// other_examples' carverauto-serviceradar use of golang.org/x/sync/errgroup
// with SetLimit to cap a worker pool without a hand-rolled semaphore.
package dedup

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/yourorg/eventregistry/internal/normalize"
	"github.com/yourorg/eventregistry/internal/registry"
	"github.com/yourorg/eventregistry/internal/review"
)

// DefaultReviewThreshold is spec.md §4.8's default review_threshold.
const DefaultReviewThreshold = 88

// DefaultBlockPrefixLen is the "first four characters" spec.md §4.8's
// first blocking key names; mirrors config.DefaultBlockPrefixLen.
const DefaultBlockPrefixLen = 4

// Detector scans registry.Store for candidate-duplicate Person pairs.
type Detector struct {
	persons        registry.Store
	queue          *review.Queue
	threshold      int
	concurrency    int
	blockPrefixLen int
}

// Config bundles Detector's dependencies and tunables.
type Config struct {
	Persons        registry.Store
	Queue          *review.Queue
	Threshold      int // 0 defaults to DefaultReviewThreshold
	Concurrency    int // 0 defaults to 8
	BlockPrefixLen int // 0 defaults to DefaultBlockPrefixLen
}

// New builds a Detector from Config.
func New(cfg Config) *Detector {
	threshold := cfg.Threshold
	if threshold == 0 {
		threshold = DefaultReviewThreshold
	}
	concurrency := cfg.Concurrency
	if concurrency == 0 {
		concurrency = 8
	}
	blockPrefixLen := cfg.BlockPrefixLen
	if blockPrefixLen == 0 {
		blockPrefixLen = DefaultBlockPrefixLen
	}
	return &Detector{
		persons:        cfg.Persons,
		queue:          cfg.Queue,
		threshold:      threshold,
		concurrency:    concurrency,
		blockPrefixLen: blockPrefixLen,
	}
}

// Summary reports what a Scan did, for an operator-facing run log.
// PairsEvaluated counts distinct pairs scored (a pair sharing several
// blocking keys is scored once per Scan); ItemsEnqueued counts distinct
// pairs at or above the threshold whose review item is pending after the
// Scan, so a pair already decided (terminal) is not counted.
type Summary struct {
	PersonsScanned int
	PairsEvaluated int
	ItemsEnqueued  int
}

// Scan implements spec.md §4.8: block active Persons by the three blocking
// keys, score every intra-block pair by Similarity, and enqueue any pair
// scoring at or above the configured threshold. A cancelled ctx stops
// launching new blocks, and blocks already in flight stop at their next
// pair check; Scan then returns ctx.Err(). Whatever was enqueued before
// that stays enqueued, since partial progress is safe — Enqueue is
// idempotent.
func (d *Detector) Scan(ctx context.Context) (Summary, error) {
	persons, err := d.persons.ListActive(ctx)
	if err != nil {
		return Summary{}, err
	}

	blocks := buildBlocks(persons, d.blockPrefixLen)

	var (
		mu      sync.Mutex
		summary = Summary{PersonsScanned: len(persons)}
		seen    = make(map[[2]string]bool)
	)

	// claim reports whether this is the first time the Scan reaches the
	// unordered pair (a, b); later blocks sharing the pair skip it.
	claim := func(a, b string) bool {
		lo, hi := review.Pair(a, b)
		mu.Lock()
		defer mu.Unlock()
		if seen[[2]string{lo, hi}] {
			return false
		}
		seen[[2]string{lo, hi}] = true
		return true
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(d.concurrency)

	for _, block := range blocks {
		block := block
		eg.Go(func() error {
			pairsEvaluated, itemsEnqueued, err := d.scanBlock(egCtx, block, claim)
			if err != nil {
				return err
			}
			mu.Lock()
			summary.PairsEvaluated += pairsEvaluated
			summary.ItemsEnqueued += itemsEnqueued
			mu.Unlock()
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return summary, err
	}
	return summary, nil
}

// scanBlock evaluates every unordered pair within a single block that
// claim has not already handed to another block.
func (d *Detector) scanBlock(ctx context.Context, block []*registry.Person, claim func(a, b string) bool) (pairsEvaluated, itemsEnqueued int, err error) {
	for i := 0; i < len(block); i++ {
		for j := i + 1; j < len(block); j++ {
			select {
			case <-ctx.Done():
				return pairsEvaluated, itemsEnqueued, ctx.Err()
			default:
			}

			a, b := block[i], block[j]
			if a.ID == b.ID {
				continue // self-pair, skipped per spec.md §4.8
			}
			if !claim(a.ID, b.ID) {
				continue // already scored via another shared blocking key
			}
			pairsEvaluated++

			score := normalize.Similarity(a.CanonicalFullName, b.CanonicalFullName)
			if score < d.threshold {
				continue
			}

			item, err := d.queue.Enqueue(ctx, a.ID, b.ID, score, a.Audience)
			if err != nil {
				return pairsEvaluated, itemsEnqueued, err
			}
			if !item.Status.IsTerminal() {
				itemsEnqueued++
			}
		}
	}
	return pairsEvaluated, itemsEnqueued, nil
}

// buildBlocks groups persons by every blocking key spec.md §4.8 names, so a
// pair sharing any one of the three is compared at least once. A person
// missing the inputs for a given key (e.g. no email) simply isn't placed in
// that key's block — it can still be compared via the other two.
func buildBlocks(persons []*registry.Person, prefixLen int) [][]*registry.Person {
	byKey := make(map[string][]*registry.Person)
	for _, p := range persons {
		for _, key := range blockingKeys(p, prefixLen) {
			byKey[key] = append(byKey[key], p)
		}
	}

	blocks := make([][]*registry.Person, 0, len(byKey))
	for _, members := range byKey {
		if len(members) > 1 {
			blocks = append(blocks, members)
		}
	}
	return blocks
}

// blockingKeys computes spec.md §4.8's three blocking keys for p, omitting
// any whose required input is absent.
func blockingKeys(p *registry.Person, prefixLen int) []string {
	var keys []string

	if nameKey, ok := nameTokenBlockKey(p.CanonicalFullName, prefixLen); ok {
		keys = append(keys, "name:"+nameKey)
	}
	if emailKey, ok := emailLocalPartBlockKey(p.Email, prefixLen); ok {
		keys = append(keys, "email:"+emailKey)
	}
	if p.Career != "" {
		keys = append(keys, "career:"+normalize.Fold(p.Career))
	}

	return keys
}

// nameTokenBlockKey implements "first four characters of the fold of the
// first token of full_name combined with the fold of the last token's first
// four characters".
func nameTokenBlockKey(fullName string, prefixLen int) (string, bool) {
	folded := normalize.Fold(fullName)
	tokens := splitTokens(folded)
	if len(tokens) == 0 {
		return "", false
	}

	first := prefix(tokens[0], prefixLen)
	last := prefix(tokens[len(tokens)-1], prefixLen)
	if first == "" {
		return "", false
	}
	return first + "|" + last, true
}

// emailLocalPartBlockKey implements "folded institutional_email local part
// prefix of length 4".
func emailLocalPartBlockKey(email string, prefixLen int) (string, bool) {
	if email == "" {
		return "", false
	}
	at := indexByte(email, '@')
	if at <= 0 {
		return "", false
	}
	return prefix(normalize.Fold(email[:at]), prefixLen), true
}

func splitTokens(s string) []string {
	var tokens []string
	start := -1
	for i, r := range s {
		if r == ' ' {
			if start >= 0 {
				tokens = append(tokens, s[start:i])
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		tokens = append(tokens, s[start:])
	}
	return tokens
}

func prefix(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n])
}

func indexByte(s string, b byte) int {
	for i := 0; i < len(s); i++ {
		if s[i] == b {
			return i
		}
	}
	return -1
}
