package service

import (
	"context"
	"sync"

	"github.com/layer-3/xerial/core"
)

// Pending is an authentication in flight. It settles exactly once, with an
// account or an error.
type Pending struct {
	done chan struct{}
	once sync.Once

	account *core.Account
	err     error

	abort func(error)
}

func newPending() *Pending {
	return &Pending{done: make(chan struct{})}
}

// settle records the outcome; it reports false when the gate had already settled
func (p *Pending) settle(account *core.Account, err error) bool {
	settled := false
	p.once.Do(func() {
		p.account = account
		p.err = err
		close(p.done)
		settled = true
	})
	return settled
}

// Done is closed once the authentication has settled
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the authentication settles or ctx ends. Ending ctx does
// not cancel the authentication; use Cancel for that.
func (p *Pending) Wait(ctx context.Context) (*core.Account, error) {
	select {
	case <-p.done:
		return p.account, p.err
	default:
	}

	select {
	case <-p.done:
		return p.account, p.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Result returns the outcome without blocking; the bool is false while pending
func (p *Pending) Result() (*core.Account, bool, error) {
	select {
	case <-p.done:
		return p.account, true, p.err
	default:
		return nil, false, nil
	}
}

// Cancel rejects the authentication with AuthFailed, closes the popup and
// releases the message listener. It is a no-op once settled.
func (p *Pending) Cancel() {
	if p.abort != nil {
		p.abort(core.NewError(core.KindAuthFailed, "authentication cancelled", nil))
	}
}
