package executor

import (
	"context"
	"fmt"
	"sync"

	"github.com/dolmen-go/jsonmap"

	"github.com/ModernAnimal/graphql-core/internal/eventbus"
	"github.com/ModernAnimal/graphql-core/internal/events"
	language "github.com/ModernAnimal/graphql-core/internal/language"
	schema "github.com/ModernAnimal/graphql-core/internal/schema"
)

// recordID addresses an incremental record in the publisher's arena. The
// arena owns all records; a record refers to its parent by index, never by
// pointer, so the forest is cycle-free and freed as a whole.
type recordID int

// rootRecord represents the initial synchronous payload.
const rootRecord recordID = 0

type recordState int

const (
	recordPending recordState = iota
	recordCompleted
	recordErrored
	recordCancelled
	recordEmitted
)

// incrementalRecord tracks one pending deferred fragment or one pending
// stream item: its position in the forest, its completion state, and its
// accumulated data and errors.
type incrementalRecord struct {
	id        recordID
	parent    recordID
	label     string
	path      Path
	stream    bool
	streamKey string
	index     int
	data      *jsonmap.Ordered
	items     []any
	errs      []GraphQLError
	state     recordState
}

type deferredWork func(ctx context.Context, rec recordID) (*jsonmap.Ordered, []GraphQLError, bool)

type streamItemWork func(ctx context.Context, rec recordID, index int, item any) (any, []GraphQLError, bool)

// publisher owns the record forest of one request and serializes record
// completion into an ordered patch stream. A record is emitted only once it
// is resolved and its parent has been emitted; stream items are additionally
// held back until their predecessor index is out. Sibling records release in
// completion order with discovery order (arena order) as the tie-break.
type publisher struct {
	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	records   []*incrementalRecord
	children  map[recordID][]recordID
	nextIndex map[string]int
	unemitted int
	producers int
	sealed    bool

	lastHasNext bool

	notify chan struct{}
	out    chan *Patch
}

func newPublisher(parent context.Context) *publisher {
	ctx, cancel := context.WithCancel(parent)
	p := &publisher{
		ctx:       ctx,
		cancel:    cancel,
		children:  make(map[recordID][]recordID),
		nextIndex: make(map[string]int),
		notify:    make(chan struct{}, 1),
		out:       make(chan *Patch),
	}
	p.records = []*incrementalRecord{{id: rootRecord, state: recordCompleted}}
	return p
}

func (p *publisher) wake() {
	select {
	case p.notify <- struct{}{}:
	default:
	}
}

func (p *publisher) allocLocked(parent recordID, label string, path Path) *incrementalRecord {
	r := &incrementalRecord{
		id:     recordID(len(p.records)),
		parent: parent,
		label:  label,
		path:   path,
		state:  recordPending,
	}
	p.records = append(p.records, r)
	p.children[parent] = append(p.children[parent], r.id)
	p.unemitted++
	return r
}

// addDeferred allocates a record for a deferred field group as a child of
// the record currently being resolved and schedules its resolution as an
// independent unit of work.
func (p *publisher) addDeferred(parent recordID, label string, path Path, work deferredWork) {
	p.mu.Lock()
	r := p.allocLocked(parent, label, path)
	p.mu.Unlock()

	go func() {
		if p.ctx.Err() != nil {
			p.discard(r.id)
			return
		}
		data, errs, failed := work(p.ctx, r.id)
		p.mu.Lock()
		if r.state == recordPending {
			r.errs = errs
			if failed {
				r.state = recordErrored
			} else {
				r.state = recordCompleted
				r.data = data
			}
		}
		p.mu.Unlock()
		p.wake()
	}()
}

// addStream takes over a list sequence from the given start index. Items are
// pulled and completed one at a time, each becoming its own record; the
// source is released when the sequence ends, fails, or the request is
// cancelled.
func (p *publisher) addStream(parent recordID, label string, path Path, start int, src Iterator, complete streamItemWork) {
	key := fmt.Sprintf("%d/%s", parent, path.String())
	p.mu.Lock()
	p.producers++
	p.nextIndex[key] = start
	p.mu.Unlock()

	go func() {
		defer src.Close()
		index := start
		item, more, err := src.Next(p.ctx)
		for {
			if p.ctx.Err() != nil {
				p.producerDone()
				return
			}
			if err != nil {
				p.mu.Lock()
				r := p.allocLocked(parent, label, appendPath(path, index))
				r.stream, r.streamKey, r.index = true, key, index
				r.state = recordErrored
				r.errs = []GraphQLError{{Message: err.Error(), Path: appendPath(path, index)}}
				p.mu.Unlock()
				p.producerDone()
				return
			}
			if !more {
				p.producerDone()
				return
			}

			// Pull ahead so the final item's patch can carry hasNext=false.
			nextItem, nextMore, nextErr := src.Next(p.ctx)
			last := !nextMore && nextErr == nil

			p.mu.Lock()
			r := p.allocLocked(parent, label, appendPath(path, index))
			r.stream, r.streamKey, r.index = true, key, index
			p.mu.Unlock()
			if last {
				p.producerExit()
			}

			v, errs, failed := complete(p.ctx, r.id, index, item)
			p.mu.Lock()
			if r.state == recordPending {
				r.errs = errs
				if failed {
					r.state = recordErrored
				} else {
					r.state = recordCompleted
					r.items = []any{v}
				}
			}
			p.mu.Unlock()
			p.wake()
			if last {
				return
			}
			item, more, err = nextItem, nextMore, nextErr
			index++
		}
	}()
}

func (p *publisher) producerDone() {
	p.producerExit()
	p.wake()
}

func (p *publisher) producerExit() {
	p.mu.Lock()
	p.producers--
	p.mu.Unlock()
}

// discard drops a record whose work never started.
func (p *publisher) discard(id recordID) {
	p.mu.Lock()
	r := p.records[id]
	if r.state == recordPending {
		r.state = recordCancelled
		p.unemitted--
	}
	p.mu.Unlock()
	p.wake()
}

// sealInitial marks the initial payload as delivered and starts the
// dispatcher. It reports whether any patches will follow. Once the initial
// result promised hasNext, the stream owes a patch carrying hasNext=false
// even if every pending record is cancelled or the stream remainder turns
// out empty, so lastHasNext starts out true.
func (p *publisher) sealInitial() bool {
	p.mu.Lock()
	p.sealed = true
	p.records[rootRecord].state = recordEmitted
	hasNext := p.unemitted > 0 || p.producers > 0
	p.lastHasNext = hasNext
	p.mu.Unlock()
	if !hasNext {
		p.cancel()
		close(p.out)
		return false
	}
	go p.dispatch()
	return true
}

func (p *publisher) dispatch() {
	for {
		p.mu.Lock()
		patches := p.releasableLocked()
		p.mu.Unlock()

		for _, patch := range patches {
			select {
			case p.out <- patch:
			case <-p.ctx.Done():
				return
			}
		}

		p.mu.Lock()
		done := p.unemitted == 0 && p.producers == 0
		needFinal := done && p.lastHasNext
		p.mu.Unlock()

		if done {
			if needFinal {
				select {
				case p.out <- &Patch{HasNext: false}:
				case <-p.ctx.Done():
					return
				}
			}
			close(p.out)
			return
		}

		select {
		case <-p.notify:
		case <-p.ctx.Done():
			return
		}
	}
}

// releasableLocked collects every record that can be emitted now, in arena
// (discovery) order, cascading so that an emitted parent releases resolved
// children in the same pass.
func (p *publisher) releasableLocked() []*Patch {
	var patches []*Patch
	for changed := true; changed; {
		changed = false
		for _, r := range p.records[1:] {
			if r.state != recordCompleted && r.state != recordErrored {
				continue
			}
			if p.records[r.parent].state != recordEmitted {
				continue
			}
			if r.stream && p.nextIndex[r.streamKey] != r.index {
				continue
			}
			errored := r.state == recordErrored
			r.state = recordEmitted
			p.unemitted--
			if r.stream {
				p.nextIndex[r.streamKey] = r.index + 1
			}
			if errored {
				p.cancelDescendantsLocked(r.id)
			}
			patches = append(patches, &Patch{
				Incremental: []PatchItem{{
					ID:     int(r.id),
					Label:  r.label,
					Path:   r.path,
					Data:   r.data,
					Items:  r.items,
					Errors: r.errs,
				}},
				Completed: []int{int(r.id)},
			})
			changed = true
		}
	}
	if len(patches) > 0 {
		remaining := p.unemitted > 0 || p.producers > 0
		for i := range patches {
			patches[i].HasNext = i < len(patches)-1 || remaining
		}
		p.lastHasNext = patches[len(patches)-1].HasNext
	}
	return patches
}

// cancelDescendantsLocked drops every not-yet-emitted record beneath an
// errored record; they are never emitted.
func (p *publisher) cancelDescendantsLocked(id recordID) {
	for _, child := range p.children[id] {
		r := p.records[child]
		if r.state != recordEmitted && r.state != recordCancelled {
			r.state = recordCancelled
			p.unemitted--
		}
		p.cancelDescendantsLocked(child)
	}
}

func (p *publisher) next(ctx context.Context) (*Patch, bool) {
	select {
	case patch, ok := <-p.out:
		if !ok {
			return nil, false
		}
		ev := events.PatchDelivered{HasNext: patch.HasNext}
		if len(patch.Incremental) > 0 {
			ev.Label = patch.Incremental[0].Label
			ev.Path = patch.Incremental[0].Path.String()
		}
		eventbus.Publish(p.ctx, ev)
		return patch, true
	case <-ctx.Done():
		return nil, false
	case <-p.ctx.Done():
		return nil, false
	}
}

// close abandons the stream: not-yet-started work is skipped, item and
// event sources are released, partially-resolved records are discarded.
func (p *publisher) close() {
	p.cancel()
}

// scheduleDeferred hands a deferred field group to the publisher. The work
// function re-enters normal selection execution with the record itself as
// the null-propagation boundary: a non-null violation inside it errors the
// record without touching the already-delivered parent data.
func (ec *execContext) scheduleDeferred(objectType *schema.Type, source any, path Path, parent recordID, dg *deferredGroup) {
	ec.pub.addDeferred(parent, dg.label, path, func(ctx context.Context, rec recordID) (*jsonmap.Ordered, []GraphQLError, bool) {
		errs := &errBag{}
		data, failed := ec.executeCollected(ctx, objectType, dg.collected, source, path, false, rec, errs)
		return data, errs.errs, failed
	})
}

// scheduleStream hands the remainder of a list sequence to the publisher.
func (ec *execContext) scheduleStream(src Iterator, inner *schema.TypeRef, fields []*language.Field, label string, path Path, parent recordID, start int) {
	ec.pub.addStream(parent, label, path, start, src, func(ctx context.Context, rec recordID, index int, item any) (any, []GraphQLError, bool) {
		errs := &errBag{}
		v := ec.completeValue(ctx, inner, fields, item, appendPath(path, index), rec, errs)
		failed := schema.IsNonNull(inner) && isNullish(v)
		return v, errs.errs, failed
	})
}
