// Package bridge converts raw grid interactions into editing store calls.
//
// Triggers are applied one at a time in the order they arrive; there is no
// debouncing and no timer-based guarding. Enter after a successful commit
// yields a focus move to the cell below, reported separately from the commit.
package bridge

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/leapstack-labs/gridcell/pkg/core"
	"github.com/leapstack-labs/gridcell/pkg/field"
	"github.com/leapstack-labs/gridcell/pkg/session"
)

// Result reports what a trigger did.
type Result struct {
	// Event is set when the trigger produced a commit.
	Event *core.CommitEvent `json:"event,omitempty"`
	// Focus is set when the front end should move focus (Enter after commit).
	Focus *core.EditTarget `json:"focus,omitempty"`
	// Session is the active session after the trigger, nil when idle.
	Session *session.State `json:"session,omitempty"`
	// Ignored is set when the trigger hit a read-only column or had nothing to act on.
	Ignored bool `json:"ignored,omitempty"`
}

// Bridge serializes triggers onto a session store.
type Bridge struct {
	mu      sync.Mutex
	store   *session.Store
	logger  *slog.Logger
	onFocus func(core.EditTarget)
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithLogger sets the logger (nil uses a discard logger).
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bridge) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithFocusHandler registers a callback for focus-move signals.
func WithFocusHandler(fn func(core.EditTarget)) Option {
	return func(b *Bridge) { b.onFocus = fn }
}

// New creates a bridge over store.
func New(store *session.Store, opts ...Option) *Bridge {
	b := &Bridge{
		store:  store,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Store returns the underlying session store.
func (b *Bridge) Store() *session.Store {
	return b.store
}

// Handle applies one trigger. Validation failures are returned as
// *core.ValidationError with the session left open.
func (b *Bridge) Handle(tr Trigger) (Result, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	res, err := b.handle(tr)
	if errors.Is(err, core.ErrReadonly) {
		b.logger.Debug("trigger ignored on read-only column", "trigger", tr.Kind, "target", tr.Target.Key())
		res.Ignored = true
		err = nil
	}
	if cur, ok := b.store.Current(); ok {
		res.Session = &cur
	}
	if res.Focus != nil && b.onFocus != nil {
		b.onFocus(*res.Focus)
	}
	return res, err
}

// HandleAll applies triggers in order and stops at the first error.
func (b *Bridge) HandleAll(triggers []Trigger) ([]Result, error) {
	out := make([]Result, 0, len(triggers))
	for i, tr := range triggers {
		res, err := b.Handle(tr)
		out = append(out, res)
		if err != nil {
			return out, fmt.Errorf("trigger %d (%s): %w", i, tr.Kind, err)
		}
	}
	return out, nil
}

func (b *Bridge) handle(tr Trigger) (Result, error) {
	switch tr.Kind {
	case TriggerDoubleClick:
		_, err := b.store.Begin(tr.Target, tr.Value)
		return Result{}, err

	case TriggerEnter:
		cur, editing := b.store.Current()
		if !editing {
			_, err := b.store.Begin(tr.Target, tr.Value)
			return Result{}, err
		}
		if tr.Shift && acceptsNewline(cur.Column.Type) {
			// Shift+Enter inserts a line break instead of committing.
			text, _ := cur.Buffer.Str()
			_, err := b.store.Stage(core.StringValue(text + "\n"))
			return Result{}, err
		}
		event, err := b.store.CommitSession(cur.ID, cur.Buffer)
		if err != nil {
			return Result{}, err
		}
		below := cur.Target.Below()
		return Result{Event: event, Focus: &below}, nil

	case TriggerInput:
		if err := b.ensure(tr); err != nil {
			return Result{}, err
		}
		_, err := b.store.Stage(core.StringValue(tr.Text))
		return Result{}, err

	case TriggerPaste:
		if err := b.ensure(tr); err != nil {
			return Result{}, err
		}
		cur, _ := b.store.Current()
		text := field.For(cur.Column.Type).Sanitize(tr.Text)
		_, err := b.store.Stage(core.StringValue(text))
		return Result{}, err

	case TriggerBlur:
		if _, editing := b.store.Current(); !editing {
			return Result{Ignored: true}, nil
		}
		event, err := b.store.CommitStaged()
		return Result{Event: event}, err

	case TriggerEscape:
		if _, editing := b.store.Current(); !editing {
			return Result{Ignored: true}, nil
		}
		b.store.Cancel()
		return Result{}, nil

	case TriggerSliderChange:
		if err := b.ensure(tr); err != nil {
			return Result{}, err
		}
		_, err := b.store.Stage(core.NumberValue(tr.Number))
		return Result{}, err

	case TriggerSliderRelease:
		if err := b.ensure(tr); err != nil {
			return Result{}, err
		}
		cur, _ := b.store.Current()
		event, err := b.store.CommitSession(cur.ID, core.NumberValue(tr.Number))
		return Result{Event: event}, err

	case TriggerToggle:
		return b.oneShot(tr, func(cur session.State) core.Value {
			return core.BoolValue(!field.Truthy(cur.Initial))
		})

	case TriggerIncrement, TriggerDecrement:
		return b.oneShot(tr, func(cur session.State) core.Value {
			r := field.RangeOf(cur.Column)
			start := cur.Initial
			if n, err := field.Canonicalize(cur.Column, start); err == nil && !n.IsNull() {
				start = n
			}
			if tr.Kind == TriggerIncrement {
				return field.Increment(start, r)
			}
			return field.Decrement(start, r)
		})

	case TriggerSelectOption:
		return b.selectOption(tr)

	case TriggerRemoveOption:
		if err := b.ensure(tr); err != nil {
			return Result{}, err
		}
		cur, _ := b.store.Current()
		next := field.RemoveOption(cur.Buffer, tr.Text)
		if cur.Column.Type == core.FieldMultiSelect {
			_, err := b.store.Stage(next)
			return Result{}, err
		}
		event, err := b.store.CommitSession(cur.ID, next)
		return Result{Event: event}, err
	}

	return Result{Ignored: true}, fmt.Errorf("unsupported trigger %s", tr.Kind)
}

// selectOption applies a picked option. A blank pick closes the editor
// without saving. Single select commits at once; multi select stages and
// commits on Enter or Blur.
func (b *Bridge) selectOption(tr Trigger) (Result, error) {
	if err := b.ensure(tr); err != nil {
		return Result{}, err
	}
	cur, _ := b.store.Current()
	if field.For(cur.Column.Type).Sanitize(tr.Text) == "" {
		b.store.Cancel()
		return Result{}, nil
	}

	multi := cur.Column.Type == core.FieldMultiSelect
	next := field.SelectOption(cur.Buffer, tr.Text, multi)
	if multi {
		_, err := b.store.Stage(next)
		return Result{}, err
	}
	event, err := b.store.CommitSession(cur.ID, next)
	return Result{Event: event}, err
}

// oneShot opens a session on the target, computes a value and commits it.
func (b *Bridge) oneShot(tr Trigger, compute func(session.State) core.Value) (Result, error) {
	cur, err := b.store.Begin(tr.Target, tr.Value)
	if err != nil {
		return Result{}, err
	}
	event, err := b.store.CommitSession(cur.ID, compute(cur))
	return Result{Event: event}, err
}

// ensure opens a session on the trigger's target unless it is already being edited.
func (b *Bridge) ensure(tr Trigger) error {
	if b.store.IsEditing(tr.Target) {
		return nil
	}
	_, err := b.store.Begin(tr.Target, tr.Value)
	return err
}

// RangeCell is one cell of a bulk edit with its current value.
type RangeCell struct {
	Target   core.EditTarget `json:"target"`
	Previous core.Value      `json:"previous"`
}

// ApplyRange writes raw into every cell of a range as bulk commits. Cells
// that reject the value are skipped and reported in the joined error.
func (b *Bridge) ApplyRange(cells []RangeCell, raw core.Value) ([]core.CommitEvent, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var (
		events []core.CommitEvent
		errs   []error
	)
	for _, c := range cells {
		event, err := b.store.Write(c.Target, c.Previous, raw, core.ScopeBulk)
		if err != nil {
			if errors.Is(err, core.ErrReadonly) {
				continue
			}
			errs = append(errs, fmt.Errorf("%s: %w", c.Target.Key(), err))
			continue
		}
		if event != nil {
			events = append(events, *event)
		}
	}
	return events, errors.Join(errs...)
}

// acceptsNewline reports whether Shift+Enter edits the text instead of committing.
func acceptsNewline(t core.FieldType) bool {
	return t == core.FieldText || t == core.FieldLongText
}
