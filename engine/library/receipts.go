package library

import (
	"github.com/sasha-s/go-deadlock"
)

// Receipt is an observable record of a state change (DelegateChanged, OfferMatched, ...).
type Receipt interface {
	ReceiptName() string
}

type Recorder interface {
	Record(r Receipt)
}

// Journal keeps receipts in the order they were recorded until they are drained.
type Journal struct {
	receipts []Receipt
	mutex    *deadlock.Mutex
}

func NewJournal() *Journal {
	return &Journal{mutex: &deadlock.Mutex{}}
}

func (j *Journal) Record(r Receipt) {
	j.mutex.Lock()
	defer j.mutex.Unlock()
	j.receipts = append(j.receipts, r)
}

// Drain returns everything recorded since the last call.
func (j *Journal) Drain() []Receipt {
	j.mutex.Lock()
	defer j.mutex.Unlock()
	r := j.receipts
	j.receipts = nil
	return r
}

func (j *Journal) Len() int {
	j.mutex.Lock()
	defer j.mutex.Unlock()
	return len(j.receipts)
}

type discard struct{}

func (discard) Record(Receipt) {}

// Discard drops receipts, for minds that are used without observers.
var Discard Recorder = discard{}
