package menulens

import (
	"context"
	"errors"
	"sync"
)

// ErrSessionComplete is returned by Next once the session is terminal.
var ErrSessionComplete = errors.New("extraction session already complete")

// SessionState is the position of a Session in the batch state machine.
type SessionState string

const (
	StateIdle          SessionState = "idle"
	StateCountProbing  SessionState = "count_probing"
	StateBatchInFlight SessionState = "batch_in_flight"
	StateBatchComplete SessionState = "batch_complete"
	StateTerminal      SessionState = "terminal"
)

// Session walks the batches of one image in order and merges their items.
// A provider's has_more=false is final regardless of the batch index.
// A failed batch leaves the session at the same index so it can be retried.
type Session struct {
	o      *Orchestrator
	img    *Image
	lang   string
	target string

	mu       sync.Mutex
	state    SessionState
	next     int
	hint     int // probe total, 0 when unknown
	estimate int // latest provider estimate
	items    []MenuItem
	seen     map[string]struct{}
	batches  int
	capped   bool // stopped at MaxBatches while the provider still had more
}

// NewSession starts a batch session for img.
func (o *Orchestrator) NewSession(img *Image, lang, target string) *Session {
	return &Session{
		o:      o,
		img:    img,
		lang:   o.lang(lang),
		target: target,
		state:  StateIdle,
		next:   1,
		items:  []MenuItem{},
		seen:   make(map[string]struct{}),
	}
}

// State returns the current state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Done reports whether no further batch will be requested.
func (s *Session) Done() bool { return s.State() == StateTerminal }

// NextBatch returns the 1-based index the next call to Next will request.
func (s *Session) NextBatch() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next
}

// Items returns the merged items so far.
func (s *Session) Items() []MenuItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]MenuItem, len(s.items))
	copy(out, s.items)
	return out
}

// Probe runs the count probe and keeps a known total as the hint for later
// batches. It may run concurrently with Next.
func (s *Session) Probe(ctx context.Context) CountProbeResult {
	s.mu.Lock()
	if s.state == StateIdle {
		s.state = StateCountProbing
	}
	s.mu.Unlock()

	res := s.o.ProbeCount(ctx, s.img, s.lang)

	s.mu.Lock()
	if res.Known && res.TotalDishes > 0 {
		s.hint = res.TotalDishes
	}
	if s.state == StateCountProbing {
		s.state = StateIdle
	}
	s.mu.Unlock()
	return res
}

// Next requests the next window and merges its items. Items already seen
// (same name and price) are not added twice.
func (s *Session) Next(ctx context.Context) (BatchResult, error) {
	s.mu.Lock()
	if s.state == StateTerminal {
		s.mu.Unlock()
		return BatchResult{}, ErrSessionComplete
	}
	prev := s.state
	s.state = StateBatchInFlight
	req := BatchRequest{
		Image:         s.img,
		SourceLang:    s.lang,
		TargetLang:    s.target,
		BatchIndex:    s.next,
		ItemsPerBatch: s.o.opts.ItemsPerBatch,
		TotalHint:     s.hint,
	}
	s.mu.Unlock()

	res, err := s.o.ExtractBatch(ctx, req)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		if prev == StateCountProbing {
			prev = StateIdle
		}
		s.state = prev
		return BatchResult{}, err
	}

	for _, it := range res.Items {
		k := it.key()
		if _, dup := s.seen[k]; dup {
			continue
		}
		s.seen[k] = struct{}{}
		s.items = append(s.items, it)
	}
	s.batches++
	s.estimate = res.TotalDishesEstimate
	s.next++

	switch {
	case !res.HasMore:
		s.state = StateTerminal
	case s.next > s.o.opts.MaxBatches:
		s.o.log.Warn("Batch limit reached", "max_batches", s.o.opts.MaxBatches, "items", len(s.items))
		s.state = StateTerminal
		s.capped = true
	default:
		s.state = StateBatchComplete
	}
	return res, nil
}

// AllResult is the merged outcome of a complete session.
type AllResult struct {
	Items               []MenuItem `json:"menu_items"`
	TotalDishesEstimate int        `json:"total_dishes_estimate"`
	Batches             int        `json:"batches"`
	HasMore             bool       `json:"has_more"`
	DetectedLang        string     `json:"detected_lang"`
}

// Result snapshots the session.
func (s *Session) Result() AllResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := s.estimate
	if s.batches == 0 {
		total = s.hint
	}
	if total < len(s.items) {
		total = len(s.items)
	}
	items := make([]MenuItem, len(s.items))
	copy(items, s.items)
	return AllResult{
		Items:               items,
		TotalDishesEstimate: total,
		Batches:             s.batches,
		HasMore:             s.state != StateTerminal || s.capped,
		DetectedLang:        s.lang,
	}
}

// ExtractAll runs the count probe alongside the first batch, then requests
// batches until the provider reports no more dishes. On failure the items
// merged so far are returned with the error.
func (o *Orchestrator) ExtractAll(ctx context.Context, img *Image, lang, target string) (AllResult, error) {
	if img == nil {
		return AllResult{}, ErrNoImage
	}
	s := o.NewSession(img, lang, target)

	r := NewLimitedRunner(ctx, 2)
	r.Go(func() error {
		s.Probe(r.Context())
		return nil
	})
	r.Go(func() error {
		_, err := s.Next(r.Context())
		return err
	})
	if err := r.Wait(); err != nil {
		return s.Result(), err
	}

	for !s.Done() {
		if _, err := s.Next(ctx); err != nil {
			return s.Result(), err
		}
	}
	return s.Result(), nil
}
