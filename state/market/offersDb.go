package market

import (
	"time"

	"github.com/holiman/uint256"
	"golang.org/x/exp/slices"
	"memberdao/engine/library"
)

// queue holds the offers of one account in creation order. Offers before cursor are either fully
// matched or have had their expiry observed, so scans start at cursor. Observed expired offers
// that still hold tokens live in remnants until they are withdrawn, redeemed or offered again.
type queue struct {
	offers   []*Offer
	cursor   int
	remnants []*Offer
}

func (q *queue) push(o *Offer) {
	q.offers = append(q.offers, o)
}

func (q *queue) live() []*Offer {
	return q.offers[q.cursor:]
}

func (q *queue) activeTotal(now time.Time) *uint256.Int {
	sum := library.Zero()
	for _, o := range q.live() {
		if !o.expired && !o.ExpiredAt(now) {
			sum = library.MustAdd(sum, o.Amount)
		}
	}
	return sum
}

// unobserved returns offers whose expiry has passed but has not been recorded yet.
func (q *queue) unobserved(now time.Time) []*Offer {
	var out []*Offer
	for _, o := range q.live() {
		if !o.expired && o.ExpiredAt(now) && !o.Amount.IsZero() {
			out = append(out, o)
		}
	}
	return out
}

func (q *queue) remnantTotal(now time.Time) *uint256.Int {
	sum := library.Zero()
	for _, o := range q.remnants {
		sum = library.MustAdd(sum, o.Amount)
	}
	for _, o := range q.unobserved(now) {
		sum = library.MustAdd(sum, o.Amount)
	}
	return sum
}

// observe records every expiry that has passed and returns the newly expired offers.
func (q *queue) observe(now time.Time) []*Offer {
	expired := q.unobserved(now)
	for _, o := range expired {
		o.expired = true
		q.remnants = append(q.remnants, o)
	}
	if len(expired) > 0 {
		slices.SortFunc(q.remnants, func(a, b *Offer) bool {
			return a.ID < b.ID
		})
	}
	// expired offers without tokens left never become remnants
	for _, o := range q.live() {
		if !o.expired && o.ExpiredAt(now) {
			o.expired = true
		}
	}
	q.compact()
	return expired
}

// consumeActive drains active offers oldest first and returns how much was taken from each.
func (q *queue) consumeActive(now time.Time, amount *uint256.Int) ([]*Offer, []*uint256.Int) {
	var touched []*Offer
	var taken []*uint256.Int
	remaining := amount
	for _, o := range q.live() {
		if remaining.IsZero() {
			break
		}
		if o.expired || o.ExpiredAt(now) || o.Amount.IsZero() {
			continue
		}
		take := library.Min(o.Amount, remaining)
		o.Amount = library.MustSub(o.Amount, take)
		remaining = library.MustSub(remaining, take)
		touched = append(touched, o)
		taken = append(taken, take)
	}
	q.compact()
	return touched, taken
}

func (q *queue) consumeRemnants(amount *uint256.Int) *uint256.Int {
	consumed := library.Zero()
	remaining := amount
	for _, o := range q.remnants {
		if remaining.IsZero() {
			break
		}
		take := library.Min(o.Amount, remaining)
		o.Amount = library.MustSub(o.Amount, take)
		remaining = library.MustSub(remaining, take)
		consumed = library.MustAdd(consumed, take)
	}
	i := 0
	for i < len(q.remnants) && q.remnants[i].Amount.IsZero() {
		i++
	}
	q.remnants = q.remnants[i:]
	return consumed
}

func (q *queue) compact() {
	for q.cursor < len(q.offers) {
		o := q.offers[q.cursor]
		if !o.expired && !o.Amount.IsZero() {
			break
		}
		q.offers[q.cursor] = nil
		q.cursor++
	}
	if q.cursor > 64 && q.cursor*2 > len(q.offers) {
		q.offers = append([]*Offer(nil), q.offers[q.cursor:]...)
		q.cursor = 0
	}
}
