// Package autosave 在编辑静默一段时间后保存简历：同一时刻至多一次保存，
// 并以最近一次成功保存的值作为比较基线。
package autosave

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"resumeEditor/internal/resume"
)

// ErrClosed 表示 Close 之后调用了 Flush。
var ErrClosed = errors.New("autosave: reconciler closed")

// Saver 持久化 next；previous 是最近一次已持久化的值。
type Saver interface {
	Save(ctx context.Context, next, previous resume.Values) error
}

// SaverFunc 把函数适配为 Saver。
type SaverFunc func(ctx context.Context, next, previous resume.Values) error

// Save 实现 Saver。
func (f SaverFunc) Save(ctx context.Context, next, previous resume.Values) error {
	return f(ctx, next, previous)
}

// State 是保存协调器的状态。
type State string

const (
	StateIdle       State = "idle"
	StateDebouncing State = "debouncing"
	StateSaving     State = "saving"
	StateFailed     State = "failed"
)

// EventType 标识一次保存通知。
type EventType string

const (
	EventSaving           EventType = "saving"
	EventSaved            EventType = "saved"
	EventSaveFailed       EventType = "save_failed"
	EventRetriesExhausted EventType = "retries_exhausted"
)

// Event 在锁外逐个投递给 Options.OnEvent，顺序与状态变化一致。
type Event struct {
	Type     EventType
	Attempt  int
	Err      error
	Duration time.Duration
	// 安排了自动重试的 save_failed 才带 RetryIn。
	RetryIn time.Duration
}

// Options 为零值的字段使用下面的默认值。
type Options struct {
	Debounce     time.Duration
	SaveTimeout  time.Duration
	RetryInitial time.Duration
	RetryMax     time.Duration
	// MaxAttempts 包含首次尝试；小于 1 表示不自动重试。
	MaxAttempts int
	OnEvent     func(Event)
	Logger      *slog.Logger
}

const (
	DefaultDebounce     = 1500 * time.Millisecond
	DefaultSaveTimeout  = 10 * time.Second
	DefaultRetryInitial = time.Second
	DefaultRetryMax     = 30 * time.Second
)

func (o Options) withDefaults() Options {
	if o.Debounce <= 0 {
		o.Debounce = DefaultDebounce
	}
	if o.SaveTimeout <= 0 {
		o.SaveTimeout = DefaultSaveTimeout
	}
	if o.RetryInitial <= 0 {
		o.RetryInitial = DefaultRetryInitial
	}
	if o.RetryMax < o.RetryInitial {
		o.RetryMax = DefaultRetryMax
		if o.RetryMax < o.RetryInitial {
			o.RetryMax = o.RetryInitial
		}
	}
	if o.MaxAttempts < 1 {
		o.MaxAttempts = 1
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// Status 是某一时刻的保存状态快照。
type Status struct {
	State             State  `json:"state"`
	HasUnsavedChanges bool   `json:"has_unsaved_changes"`
	FailedAttempts    int    `json:"failed_attempts"`
	LastError         string `json:"last_error,omitempty"`
}

// Reconciler 维护三份值：current（最新编辑）、debounced（上次静默时的 current）
// 与 snapshot（最近一次持久化的值）。只有 debounced 与 snapshot 不同且没有进行中的保存时才发起保存。
type Reconciler struct {
	saver Saver
	opts  Options

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	current   resume.Values
	debounced resume.Values
	snapshot  resume.Values

	seq             uint64
	debounceTimer   *time.Timer
	debouncePending bool
	retryTimer      *time.Timer

	state    State
	saving   bool
	done     chan struct{}
	failures int
	lastErr  error
	closed   bool

	pending []Event

	outMu      sync.Mutex
	outbox     []Event
	delivering bool
}

// New 以 initial 为基线创建协调器：已持久化的值，新简历则为空值。
func New(ctx context.Context, saver Saver, initial resume.Values, opts Options) *Reconciler {
	cctx, cancel := context.WithCancel(ctx)
	return &Reconciler{
		saver:     saver,
		opts:      opts.withDefaults(),
		ctx:       cctx,
		cancel:    cancel,
		current:   initial.Clone(),
		debounced: initial.Clone(),
		snapshot:  initial.Clone(),
		state:     StateIdle,
	}
}

// Update 记录最新编辑并重新开始静默计时。
func (r *Reconciler) Update(v resume.Values) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.current = v.Clone()
	r.failures = 0
	r.stopRetryLocked()
	r.restartDebounceLocked()
	if !r.saving {
		r.state = StateDebouncing
	}
	r.unlockAndEmit()
}

func (r *Reconciler) restartDebounceLocked() {
	r.seq++
	seq := r.seq
	if r.debounceTimer != nil {
		r.debounceTimer.Stop()
	}
	r.debouncePending = true
	r.debounceTimer = time.AfterFunc(r.opts.Debounce, func() { r.onQuiet(seq) })
}

func (r *Reconciler) cancelDebounceLocked() {
	r.seq++
	if r.debounceTimer != nil {
		r.debounceTimer.Stop()
		r.debounceTimer = nil
	}
	r.debouncePending = false
}

func (r *Reconciler) stopRetryLocked() {
	if r.retryTimer != nil {
		r.retryTimer.Stop()
		r.retryTimer = nil
	}
}

func (r *Reconciler) onQuiet(seq uint64) {
	r.mu.Lock()
	if r.closed || seq != r.seq {
		r.mu.Unlock()
		return
	}
	r.debouncePending = false
	r.debounceTimer = nil
	r.debounced = r.current.Clone()
	r.reconcileLocked()
	r.unlockAndEmit()
}

// reconcileLocked 在 debounced 与 snapshot 不同时发起保存。
// 保存进行中时什么也不做，完成后会再次调用。
func (r *Reconciler) reconcileLocked() {
	if r.saving {
		return
	}
	if resume.Equal(r.debounced, r.snapshot) {
		if r.debouncePending {
			r.state = StateDebouncing
		} else {
			r.state = StateIdle
		}
		return
	}
	r.startSaveLocked()
}

func (r *Reconciler) startSaveLocked() chan struct{} {
	attempt := r.failures + 1
	next := r.debounced.Clone()
	prev := r.snapshot.Clone()
	done := make(chan struct{})

	r.saving = true
	r.done = done
	r.state = StateSaving
	r.pending = append(r.pending, Event{Type: EventSaving, Attempt: attempt})

	go r.runSave(next, prev, attempt, done)
	return done
}

func (r *Reconciler) runSave(next, prev resume.Values, attempt int, done chan struct{}) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(r.ctx, r.opts.SaveTimeout)
	err := r.saver.Save(ctx, next, prev)
	cancel()
	r.finish(next, attempt, time.Since(start), err, done)
}

func (r *Reconciler) finish(saved resume.Values, attempt int, took time.Duration, err error, done chan struct{}) {
	r.mu.Lock()
	r.saving = false
	r.done = nil
	defer close(done)

	if r.closed {
		r.mu.Unlock()
		return
	}

	if err == nil {
		r.snapshot = saved
		r.failures = 0
		r.lastErr = nil
		r.pending = append(r.pending, Event{Type: EventSaved, Attempt: attempt, Duration: took})
		r.reconcileLocked()
		r.unlockAndEmit()
		return
	}

	r.failures = attempt
	r.lastErr = err
	r.state = StateFailed
	r.opts.Logger.Warn("autosave failed", slog.Int("attempt", attempt), slog.Any("error", err))

	// 校验失败是值本身的问题，重试同一个值没有意义。
	var verr *resume.ValidationError
	if attempt >= r.opts.MaxAttempts || errors.As(err, &verr) {
		r.pending = append(r.pending,
			Event{Type: EventSaveFailed, Attempt: attempt, Err: err, Duration: took},
			Event{Type: EventRetriesExhausted, Attempt: attempt, Err: err},
		)
		r.unlockAndEmit()
		return
	}

	delay := r.backoff(attempt)
	r.stopRetryLocked()
	r.retryTimer = time.AfterFunc(delay, r.onRetry)
	r.pending = append(r.pending, Event{Type: EventSaveFailed, Attempt: attempt, Err: err, Duration: took, RetryIn: delay})
	r.unlockAndEmit()
}

func (r *Reconciler) onRetry() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.retryTimer = nil
	r.reconcileLocked()
	r.unlockAndEmit()
}

// backoff 从 RetryInitial 起每次失败翻倍，上限 RetryMax。
func (r *Reconciler) backoff(attempt int) time.Duration {
	d := r.opts.RetryInitial
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= r.opts.RetryMax || d <= 0 {
			return r.opts.RetryMax
		}
	}
	return d
}

// Retry 立即保存最新编辑，并重置重试次数。
func (r *Reconciler) Retry() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.failures = 0
	r.stopRetryLocked()
	r.cancelDebounceLocked()
	r.debounced = r.current.Clone()
	r.reconcileLocked()
	r.unlockAndEmit()
}

// Flush 在返回前持久化最新编辑。会等待进行中的保存，
// 并返回自己发起的那次保存的错误。
func (r *Reconciler) Flush(ctx context.Context) error {
	for {
		r.mu.Lock()
		if r.closed {
			r.mu.Unlock()
			return ErrClosed
		}
		r.cancelDebounceLocked()
		r.stopRetryLocked()
		r.debounced = r.current.Clone()

		if r.saving {
			done := r.done
			r.mu.Unlock()
			if err := wait(ctx, done); err != nil {
				return err
			}
			continue
		}
		if resume.Equal(r.debounced, r.snapshot) {
			r.state = StateIdle
			r.unlockAndEmit()
			return nil
		}

		done := r.startSaveLocked()
		r.unlockAndEmit()
		if err := wait(ctx, done); err != nil {
			return err
		}

		r.mu.Lock()
		err := r.lastErr
		if err != nil {
			r.stopRetryLocked()
		}
		r.mu.Unlock()
		if err != nil {
			return err
		}
	}
}

func wait(ctx context.Context, done <-chan struct{}) error {
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// HasUnsavedChanges 用最新编辑（而非 debounced）与最近持久化的值比较。
func (r *Reconciler) HasUnsavedChanges() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return !resume.Equal(r.current, r.snapshot)
}

// Status 返回当前状态。
func (r *Reconciler) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	st := Status{
		State:             r.state,
		HasUnsavedChanges: !resume.Equal(r.current, r.snapshot),
		FailedAttempts:    r.failures,
	}
	if r.lastErr != nil {
		st.LastError = r.lastErr.Error()
	}
	return st
}

// Close 停止所有计时器并取消进行中的保存，其结果会被丢弃。
func (r *Reconciler) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	r.cancelDebounceLocked()
	r.stopRetryLocked()
	r.pending = nil
	r.state = StateIdle
	r.cancel()
}

// unlockAndEmit 在持锁时把事件移入 outbox，保证顺序与状态变化一致；
// 释放锁后由唯一的投递者依次取出。回调里可以再调用协调器。
func (r *Reconciler) unlockAndEmit() {
	r.outMu.Lock()
	if r.opts.OnEvent != nil {
		r.outbox = append(r.outbox, r.pending...)
	}
	r.pending = nil
	drain := !r.delivering && len(r.outbox) > 0
	if drain {
		r.delivering = true
	}
	r.outMu.Unlock()
	r.mu.Unlock()

	if drain {
		r.deliver()
	}
}

func (r *Reconciler) deliver() {
	for {
		r.outMu.Lock()
		if len(r.outbox) == 0 {
			r.delivering = false
			r.outMu.Unlock()
			return
		}
		ev := r.outbox[0]
		r.outbox = r.outbox[1:]
		r.outMu.Unlock()
		r.opts.OnEvent(ev)
	}
}
