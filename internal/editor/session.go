package editor

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"resumeEditor/internal/ai"
	"resumeEditor/internal/autosave"
	"resumeEditor/internal/errcode"
	"resumeEditor/internal/metrics"
	"resumeEditor/internal/preview"
	"resumeEditor/internal/reorder"
	"resumeEditor/internal/resume"
	"resumeEditor/internal/resumes"
)

// ErrClosed 表示会话关闭后仍调用 Dispatch。
var ErrClosed = errors.New("editor: session closed")

const failureMessage = "Something went wrong. Please try again."

// Store 是会话需要的简历服务子集。
type Store interface {
	Get(ctx context.Context, userID, id string) (*resumes.Resume, error)
	Save(ctx context.Context, userID string, in resumes.SaveInput) (*resumes.Resume, error)
}

// Deps 汇总会话依赖。Emit 会被多个 goroutine 调用，不应长时间阻塞。
type Deps struct {
	Store     Store
	Generator ai.SummaryGenerator
	Emit      func(Event)
	Logger    *slog.Logger
}

// Options 决定会话编辑哪份简历。
type Options struct {
	UserID string
	// ResumeID 为空时新建简历。
	ResumeID string
	Step     string
	Autosave autosave.Options
}

// Session 是一份简历可编辑值的唯一写入者，所有修改都经过 Dispatch。
type Session struct {
	userID    string
	generator ai.SummaryGenerator
	emitFn    func(Event)
	log       *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	saver *storeSaver
	rec   *autosave.Reconciler

	works      reorder.Reorderer[resume.WorkExperience]
	educations reorder.Reorderer[resume.Education]
	layouts    map[EntryList]*reorder.Controller

	// dispatchMu 串行化整条命令，mu 保护下面的字段。
	dispatchMu sync.Mutex
	mu         sync.Mutex
	values     resume.Values
	step       Step
	generating bool
	genSeq     uint64
	closed     bool
}

// Open 加载简历（或新建空简历）、启动自动保存，并推送初始的 step、state 与 preview。
func Open(ctx context.Context, d Deps, opts Options) (*Session, error) {
	if d.Store == nil {
		return nil, errors.New("editor: store is required")
	}
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("user_id", opts.UserID))

	var initial resume.Values
	if opts.ResumeID != "" {
		r, err := d.Store.Get(ctx, opts.UserID, opts.ResumeID)
		if err != nil {
			return nil, err
		}
		initial = r.Values
		logger = logger.With(slog.String("resume_id", r.ID))
	}

	sctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s := &Session{
		userID:     opts.UserID,
		generator:  d.Generator,
		emitFn:     d.Emit,
		log:        logger,
		ctx:        sctx,
		cancel:     cancel,
		saver:      &storeSaver{store: d.Store, userID: opts.UserID, id: opts.ResumeID},
		works:      reorder.Mover[resume.WorkExperience]{},
		educations: reorder.Mover[resume.Education]{},
		layouts: map[EntryList]*reorder.Controller{
			ListWorkExperiences: reorder.NewController(),
			ListEducations:      reorder.NewController(),
		},
		values: initial.Clone(),
		step:   ParseStep(opts.Step),
	}

	ao := opts.Autosave
	ao.OnEvent = s.onAutosave
	ao.Logger = logger
	s.rec = autosave.New(sctx, s.saver, initial, ao)

	metrics.SessionOpened()
	logger.Info("editor session opened", slog.Bool("new", opts.ResumeID == ""))

	s.emit(stepEvent(s.step))
	s.publishState()
	s.publishPreview(initial)
	return s, nil
}

// Dispatch 执行一条命令。校验失败推送 validation_error，其他失败推送 error，两者都会返回。
func (s *Session) Dispatch(cmd Command) error {
	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	before := s.values.Clone()
	out, err := cmd.apply(s)
	if err != nil {
		s.values = before
	}
	values := s.values.Clone()
	s.mu.Unlock()

	if err != nil {
		s.reportError(err)
		return err
	}
	if out.changed {
		s.rec.Update(values)
	}
	for _, ev := range out.events {
		s.emit(ev)
	}
	if out.changed || out.state {
		s.publishState()
	}
	if out.changed {
		s.publishPreview(values)
	}
	if out.after != nil {
		out.after()
	}
	return nil
}

func (s *Session) reportError(err error) {
	var verr *resume.ValidationError
	if errors.As(err, &verr) {
		s.emit(Event{Type: EventValidationError, Payload: ValidationPayload{Section: verr.Section, Fields: verr.Fields}})
		return
	}
	code := errcode.SystemError
	if errors.Is(err, ErrInvalidCommand) {
		code = errcode.ValidationFailed
	}
	s.emit(Event{Type: EventError, Payload: ErrorPayload{Code: code, Message: err.Error()}})
}

func (s *Session) layout(list EntryList) *reorder.Controller {
	return s.layouts[list]
}

func (s *Session) runSummary(seq uint64, payload resume.Values) {
	text, err := s.generator.GenerateSummary(s.ctx, s.userID, payload)
	if derr := s.Dispatch(&summaryResult{seq: seq, text: text, err: err}); errors.Is(derr, ErrClosed) {
		metrics.ObserveSummary(metrics.OutcomeDiscard)
	}
}

func (s *Session) finishSummaryLocked(seq uint64, text string, err error) outcome {
	if seq != s.genSeq {
		metrics.ObserveSummary(metrics.OutcomeDiscard)
		return outcome{}
	}
	s.generating = false

	if err == nil {
		text = strings.TrimSpace(text)
		if text == "" {
			err = ai.ErrEmptyResponse
		} else {
			err = resume.ValidateSummary(text)
		}
	}
	if err != nil {
		outcomeLabel := metrics.OutcomeFailure
		if errors.Is(err, ai.ErrQuotaExceeded) {
			outcomeLabel = metrics.OutcomeQuota
		}
		metrics.ObserveSummary(outcomeLabel)
		s.log.Error("generate summary failed", slog.Any("error", err))
		return outcome{state: true, events: []Event{failureToast()}}
	}

	metrics.ObserveSummary(metrics.OutcomeSuccess)
	s.values.Summary = text
	return outcome{changed: true}
}

func failureToast() Event {
	return Event{Type: EventToast, Payload: ToastPayload{Description: failureMessage, Variant: ToastDestructive}}
}

func (s *Session) onAutosave(ev autosave.Event) {
	payload := AutosavePayload{
		Status:   ev.Type,
		ResumeID: s.saver.ID(),
		Attempt:  ev.Attempt,
	}
	switch ev.Type {
	case autosave.EventSaved:
		metrics.ObserveAutosave(metrics.OutcomeSuccess, ev.Duration)
	case autosave.EventSaveFailed:
		metrics.ObserveAutosave(metrics.OutcomeFailure, ev.Duration)
	case autosave.EventRetriesExhausted:
		metrics.ObserveAutosave(metrics.OutcomeExhaust, 0)
	}
	if ev.Err != nil {
		payload.Error = ev.Err.Error()
		payload.ErrorCode = errcode.SaveFailed
		var verr *resume.ValidationError
		if errors.As(ev.Err, &verr) {
			payload.ErrorCode = errcode.ValidationFailed
		}
	}
	if ev.RetryIn > 0 {
		payload.RetryInMs = ev.RetryIn.Milliseconds()
	}
	s.emit(Event{Type: EventAutosave, Payload: payload})

	switch ev.Type {
	case autosave.EventSaved:
		s.publishState()
	case autosave.EventRetriesExhausted:
		s.emit(Event{Type: EventToast, Payload: ToastPayload{
			Description: "Your changes could not be saved.",
			Variant:     ToastDestructive,
		}})
	}
}

func (s *Session) publishState() {
	s.mu.Lock()
	st := StatePayload{
		Values:            forClient(s.values),
		GeneratingSummary: s.generating,
		Step:              s.step,
	}
	s.mu.Unlock()
	st.ResumeID = s.saver.ID()
	st.Autosave = s.AutosaveStatus()
	st.HasUnsavedChanges = st.Autosave.HasUnsavedChanges
	s.emit(Event{Type: EventState, Payload: st})
}

func (s *Session) publishPreview(v resume.Values) {
	html, err := preview.RenderString(v, preview.Options{Mode: preview.ModeScreen})
	if err != nil {
		s.log.Error("render preview failed", slog.Any("error", err))
		s.emit(Event{Type: EventError, Payload: ErrorPayload{Code: errcode.SystemError, Message: "preview unavailable"}})
		return
	}
	s.emit(Event{Type: EventPreview, Payload: PreviewPayload{HTML: html}})
}

// forClient 去掉照片原始数据，data URI 预览里已经有了。
func forClient(v resume.Values) resume.Values {
	out := v.Clone()
	if out.Photo != nil {
		out.Photo.Data = nil
	}
	return out
}

func (s *Session) emit(ev Event) {
	if s.emitFn != nil {
		s.emitFn(ev)
	}
}

// Values 返回当前值的副本。
func (s *Session) Values() resume.Values {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.values.Clone()
}

// Step 返回当前步骤。
func (s *Session) Step() Step {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.step
}

// ResumeID 在新简历首次保存前为空。
func (s *Session) ResumeID() string {
	return s.saver.ID()
}

// AutosaveStatus 返回自动保存状态。
func (s *Session) AutosaveStatus() autosave.Status {
	return s.rec.Status()
}

// HasUnsavedChanges 报告最新编辑是否尚未持久化。
func (s *Session) HasUnsavedChanges() bool {
	return s.rec.HasUnsavedChanges()
}

// Close 停止接收命令并落盘未保存的修改。进行中的摘要生成会被丢弃。
func (s *Session) Close(ctx context.Context) error {
	s.dispatchMu.Lock()
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.dispatchMu.Unlock()
		return nil
	}
	s.closed = true
	s.generating = false
	s.genSeq++
	s.mu.Unlock()
	s.dispatchMu.Unlock()

	err := s.rec.Flush(ctx)
	s.rec.Close()
	s.cancel()
	metrics.SessionClosed()
	if err != nil {
		s.log.Error("flush on close failed", slog.Any("error", err))
		return err
	}
	s.log.Info("editor session closed")
	return nil
}

// storeSaver 通过简历服务保存，并记住新简历分配到的 ID。
type storeSaver struct {
	store  Store
	userID string

	mu sync.Mutex
	id string
}

func (s *storeSaver) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

func (s *storeSaver) Save(ctx context.Context, next, previous resume.Values) error {
	res, err := s.store.Save(ctx, s.userID, resumes.SaveInput{
		ID:          s.ID(),
		Values:      next,
		PhotoChange: resume.PhotoChangeBetween(previous.Photo, next.Photo),
	})
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.id = res.ID
	s.mu.Unlock()
	return nil
}
