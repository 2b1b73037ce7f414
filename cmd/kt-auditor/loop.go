package main

import (
	"context"
	"fmt"
	"time"

	"github.com/ktlog/auditor/client"
	"github.com/ktlog/auditor/storage"
	"github.com/ktlog/auditor/tree/transparency"
	"github.com/ktlog/auditor/tree/transparency/auditor"
	"github.com/ktlog/auditor/tree/transparency/structs"
)

// loop drives the auditor end to end against one KT service: prefetch
// pages of updates with a small bounded worker pool, apply them to the
// tree in strict FIFO order regardless of the order fetches complete in,
// and once caught up, sign and durably commit the resulting head before
// publishing it. Mirrors cmd/katie-server/inserter.go's single-goroutine
// ownership of tree mutation, generalized to a pull-based paginated
// source instead of a channel of local writes.
type loop struct {
	cfg    *Config
	tree   *transparency.Log
	signer *auditor.Signer
	store  storage.Adaptor
	client *client.AuditorClient
}

func newLoop(cfg *Config, store storage.Adaptor, c *client.AuditorClient) (*loop, error) {
	signer, err := auditor.NewSigner(cfg.publicConfig, cfg.signingKey)
	if err != nil {
		return nil, err
	}

	snap, err := store.Load()
	if err != nil {
		return nil, err
	}
	tree := &transparency.Log{}
	if snap != nil {
		tree = transparency.Restore(*snap)
	}

	return &loop{cfg: cfg, tree: tree, signer: signer, store: store, client: c}, nil
}

type fetchJob struct {
	start uint64
}

type fetchResult struct {
	start uint64
	resp  *structs.AuditResponse
	err   error
}

// catchUp fetches and applies every update the service has beyond the
// tree's current size, then signs, commits, and publishes the resulting
// head. Safe to call repeatedly; if the service has nothing new to offer it
// signs, commits, and publishes the current head again, and it never calls
// the signer while the tree is still empty.
func (l *loop) catchUp(ctx context.Context) error {
	workers := l.cfg.PrefetchPages
	if workers < 1 {
		workers = 1
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan fetchJob, workers)
	results := make(chan fetchResult, workers)
	for i := 0; i < workers; i++ {
		go func() {
			for j := range jobs {
				started := time.Now()
				resp, err := l.client.Audit(ctx, j.start, l.cfg.PageSize)
				auditDur.Observe(time.Since(started).Seconds())
				results <- fetchResult{start: j.start, resp: resp, err: err}
			}
		}()
	}

	dispatched := l.tree.Size()
	applied := dispatched
	pending := make(map[uint64]fetchResult)
	outstanding := 0
	done := false
	var firstErr error

	dispatch := func() {
		for outstanding < workers && !done {
			jobs <- fetchJob{start: dispatched}
			dispatched += l.cfg.PageSize
			outstanding++
		}
	}
	dispatch()

	for outstanding > 0 {
		r := <-results
		outstanding--

		switch {
		case r.err == client.ErrStartPastEndOfTree:
			done = true
			continue
		case r.err != nil:
			if firstErr == nil {
				firstErr = r.err
			}
			done = true
			continue
		}
		pending[r.start] = r

		for firstErr == nil {
			next, ok := pending[applied]
			if !ok {
				break
			}
			delete(pending, applied)

			if next.resp.More && uint64(len(next.resp.Updates)) != l.cfg.PageSize {
				firstErr = fmt.Errorf("kt-auditor: service reported more updates but returned a short page at start=%d", applied)
				done = true
				break
			}

			for i := range next.resp.Updates {
				if err := l.tree.ApplyUpdate(&next.resp.Updates[i]); err != nil {
					firstErr = fmt.Errorf("kt-auditor: apply update %d of page start=%d: %w", i, applied, err)
					break
				}
			}
			if firstErr != nil {
				done = true
				break
			}

			applied += uint64(len(next.resp.Updates))
			if !next.resp.More {
				done = true
			}
		}

		if firstErr != nil {
			break
		}
		if !done {
			dispatch()
		}
	}
	close(jobs)

	if firstErr != nil {
		auditOps.WithLabelValues("false").Inc()
		return firstErr
	}

	auditOps.WithLabelValues("true").Inc()
	logSize.Set(float64(l.tree.Size()))

	if l.tree.Size() == 0 {
		return nil
	}
	return l.signAndPublish(ctx)
}

// signAndPublish signs the tree's current head, commits it to durable
// storage, and only then publishes it to the service: committing before
// publishing means a crash between the two steps can never cause the
// auditor to sign two different heads for the same size.
func (l *loop) signAndPublish(ctx context.Context) error {
	root, err := l.tree.LogRoot()
	if err != nil {
		return err
	}

	head, err := l.signer.SignHead(root, l.tree.Size())
	if err != nil {
		return err
	}

	snap := l.tree.Snapshot()
	if err := l.store.Commit(&snap); err != nil {
		return err
	}

	return l.client.SetAuditorHead(ctx, head)
}
