package actors

import (
	"github.com/sasha-s/go-deadlock"
)

var terminateChan chan struct{}

var waitGroup = &deadlock.WaitGroup{}

func SetTerminateChan(term chan struct{}) {
	terminateChan = term
}

func GetTerminateChan() chan struct{} {
	return terminateChan
}

// GetWaitGroup is used by every long running goroutine so shutdown can wait for state to be flushed.
func GetWaitGroup() *deadlock.WaitGroup {
	return waitGroup
}
