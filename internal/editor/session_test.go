package editor

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"resumeEditor/internal/autosave"
	"resumeEditor/internal/reorder"
	"resumeEditor/internal/resume"
	"resumeEditor/internal/resumes"
)

type fakeStore struct {
	mu      sync.Mutex
	stored  map[string]resume.Values
	saves   []resumes.SaveInput
	saveErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{stored: map[string]resume.Values{}}
}

func (s *fakeStore) Get(_ context.Context, _ string, id string) (*resumes.Resume, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.stored[id]
	if !ok {
		return nil, resumes.ErrNotFound
	}
	return &resumes.Resume{ID: id, Values: v.Clone()}, nil
}

func (s *fakeStore) Save(_ context.Context, _ string, in resumes.SaveInput) (*resumes.Resume, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves = append(s.saves, resumes.SaveInput{ID: in.ID, Values: in.Values.Clone(), PhotoChange: in.PhotoChange})
	if s.saveErr != nil {
		return nil, s.saveErr
	}
	id := in.ID
	if id == "" {
		id = "new-resume"
	}
	s.stored[id] = in.Values.Clone()
	return &resumes.Resume{ID: id, Values: in.Values.Clone()}, nil
}

func (s *fakeStore) saveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.saves)
}

func (s *fakeStore) lastSave() resumes.SaveInput {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves[len(s.saves)-1]
}

type fakeGenerator struct {
	mu      sync.Mutex
	calls   []resume.Values
	release chan struct{}
	text    string
	err     error
}

func (g *fakeGenerator) GenerateSummary(ctx context.Context, _ string, v resume.Values) (string, error) {
	g.mu.Lock()
	g.calls = append(g.calls, v)
	release := g.release
	g.mu.Unlock()
	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return g.text, g.err
}

func (g *fakeGenerator) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) add(ev Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

func (l *eventLog) of(t EventType) []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []Event
	for _, ev := range l.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

func (l *eventLog) lastState(t *testing.T) StatePayload {
	t.Helper()
	states := l.of(EventState)
	require.NotEmpty(t, states)
	return states[len(states)-1].Payload.(StatePayload)
}

type harness struct {
	session *Session
	store   *fakeStore
	gen     *fakeGenerator
	events  *eventLog
}

func openSession(t *testing.T, store *fakeStore, opts Options) *harness {
	t.Helper()
	h := &harness{store: store, gen: &fakeGenerator{text: "Seasoned engineer."}, events: &eventLog{}}
	if opts.UserID == "" {
		opts.UserID = "user-1"
	}
	if opts.Autosave.Debounce == 0 {
		opts.Autosave.Debounce = 50 * time.Millisecond
	}
	s, err := Open(context.Background(), Deps{Store: store, Generator: h.gen, Emit: h.events.add}, opts)
	require.NoError(t, err)
	h.session = s
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	return h
}

func TestOpen_NewSessionPublishesInitialState(t *testing.T) {
	h := openSession(t, newFakeStore(), Options{Step: "bogus"})

	require.Equal(t, StepGeneralInfo, h.session.Step())
	require.Len(t, h.events.of(EventStep), 1)
	require.Len(t, h.events.of(EventPreview), 1)
	st := h.events.lastState(t)
	require.Empty(t, st.ResumeID)
	require.False(t, st.HasUnsavedChanges)
}

func TestOpen_ExistingResume(t *testing.T) {
	store := newFakeStore()
	store.stored["r1"] = resume.Values{Title: "Stored"}

	h := openSession(t, store, Options{ResumeID: "r1", Step: "skills"})
	require.Equal(t, "Stored", h.session.Values().Title)
	require.Equal(t, "r1", h.session.ResumeID())
	require.Equal(t, StepSkills, h.session.Step())

	_, err := Open(context.Background(), Deps{Store: store}, Options{UserID: "u", ResumeID: "missing"})
	require.ErrorIs(t, err, resumes.ErrNotFound)
}

func TestDispatch_DebouncedSingleSave(t *testing.T) {
	store := newFakeStore()
	store.stored["r1"] = resume.Values{Educations: []resume.Education{{ID: "e1", Degree: "BSc"}}}
	h := openSession(t, store, Options{ResumeID: "r1", Autosave: autosave.Options{Debounce: 200 * time.Millisecond}})

	edit := func(degree string) {
		require.NoError(t, h.session.Dispatch(&UpdateEducations{Educations: []resume.Education{{ID: "e1", Degree: degree}}}))
	}
	edit("MSc")
	time.Sleep(100 * time.Millisecond)
	edit("PhD")
	time.Sleep(120 * time.Millisecond)
	require.Zero(t, store.saveCount())
	require.True(t, h.session.HasUnsavedChanges())

	require.Eventually(t, func() bool { return store.saveCount() == 1 }, 2*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool { return !h.session.HasUnsavedChanges() }, time.Second, 10*time.Millisecond)
	time.Sleep(300 * time.Millisecond)
	require.Equal(t, 1, store.saveCount())
	require.Equal(t, "PhD", store.lastSave().Values.Educations[0].Degree)
	require.Equal(t, "r1", store.lastSave().ID)
}

func TestState_CarriesAutosaveStatus(t *testing.T) {
	store := newFakeStore()
	h := openSession(t, store, Options{})

	require.NoError(t, h.session.Dispatch(&UpdateGeneralInfo{Title: "Draft"}))
	st := h.events.lastState(t)
	require.Equal(t, autosave.StateDebouncing, st.Autosave.State)
	require.True(t, st.Autosave.HasUnsavedChanges)
	require.True(t, st.HasUnsavedChanges)

	require.Eventually(t, func() bool {
		st := h.events.lastState(t)
		return st.Autosave.State == autosave.StateIdle && !st.HasUnsavedChanges
	}, time.Second, 5*time.Millisecond)
}

func TestDispatch_NewResumeKeepsAssignedID(t *testing.T) {
	store := newFakeStore()
	h := openSession(t, store, Options{})

	require.NoError(t, h.session.Dispatch(&UpdateGeneralInfo{Title: "First"}))
	require.Eventually(t, func() bool { return store.saveCount() == 1 }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return h.session.ResumeID() == "new-resume" }, time.Second, 5*time.Millisecond)

	require.NoError(t, h.session.Dispatch(&UpdateGeneralInfo{Title: "Second"}))
	require.Eventually(t, func() bool { return store.saveCount() == 2 }, time.Second, 5*time.Millisecond)
	require.Equal(t, "new-resume", store.lastSave().ID)
}

func TestDispatch_ValidationKeepsLastValidValue(t *testing.T) {
	h := openSession(t, newFakeStore(), Options{})

	require.NoError(t, h.session.Dispatch(&UpdatePersonalInfo{PersonalInfo: resume.PersonalInfo{Email: "a@b.co"}}))
	err := h.session.Dispatch(&UpdatePersonalInfo{PersonalInfo: resume.PersonalInfo{Email: "not-an-email"}})

	var verr *resume.ValidationError
	require.True(t, errors.As(err, &verr))
	require.Equal(t, resume.SectionPersonalInfo, verr.Section)
	require.Equal(t, "a@b.co", h.session.Values().PersonalInfo.Email)

	evs := h.events.of(EventValidationError)
	require.Len(t, evs, 1)
	require.Contains(t, evs[0].Payload.(ValidationPayload).Fields, "personal_info.email")
}

func TestDispatch_SkillsAndStyle(t *testing.T) {
	h := openSession(t, newFakeStore(), Options{})

	require.NoError(t, h.session.Dispatch(&UpdateSkills{Skills: " go, ,sql ,"}))
	require.Equal(t, []string{"go", "sql"}, h.session.Values().Skills)

	require.NoError(t, h.session.Dispatch(&SetAccentColor{ColorHex: "#ff0000"}))
	require.Error(t, h.session.Dispatch(&SetAccentColor{ColorHex: "red"}))
	require.Equal(t, "#ff0000", h.session.Values().ColorHex)

	require.NoError(t, h.session.Dispatch(&CycleBorderStyle{}))
	require.Equal(t, resume.BorderCircle, h.session.Values().BorderStyle)
	require.NoError(t, h.session.Dispatch(&SetBorderStyle{BorderStyle: resume.BorderSquare}))
	require.Error(t, h.session.Dispatch(&SetBorderStyle{BorderStyle: "hexagon"}))
	require.Equal(t, resume.BorderSquare, h.session.Values().BorderStyle)

	previews := h.events.of(EventPreview)
	require.Contains(t, previews[len(previews)-1].Payload.(PreviewPayload).HTML, "#ff0000")
}

func TestDispatch_Reorder(t *testing.T) {
	store := newFakeStore()
	store.stored["r1"] = resume.Values{WorkExperiences: []resume.WorkExperience{{ID: "a"}, {ID: "b"}, {ID: "c"}}}
	h := openSession(t, store, Options{ResumeID: "r1"})

	ids := func() []string {
		var out []string
		for _, w := range h.session.Values().WorkExperiences {
			out = append(out, w.ID)
		}
		return out
	}

	from, to := 0, 2
	require.NoError(t, h.session.Dispatch(&ReorderEntries{List: ListWorkExperiences, From: &from, To: &to}))
	require.Equal(t, []string{"b", "c", "a"}, ids())

	require.NoError(t, h.session.Dispatch(&ReorderEntries{List: ListWorkExperiences, ActiveID: "a", OverID: "b"}))
	require.Equal(t, []string{"a", "b", "c"}, ids())

	require.NoError(t, h.session.Dispatch(&ReorderEntries{List: ListWorkExperiences, ActiveID: "c", Key: reorder.ArrowUp}))
	require.Equal(t, []string{"a", "c", "b"}, ids())

	require.NoError(t, h.session.Dispatch(&SetLayout{
		List:   ListWorkExperiences,
		Parent: reorder.Rect{Width: 100, Height: 300},
		Slots: []reorder.Slot{
			{ID: "a", Rect: reorder.Rect{Y: 0, Width: 100, Height: 100}},
			{ID: "c", Rect: reorder.Rect{Y: 100, Width: 100, Height: 100}},
			{ID: "b", Rect: reorder.Rect{Y: 200, Width: 100, Height: 100}},
		},
	}))
	require.NoError(t, h.session.Dispatch(&ReorderEntries{List: ListWorkExperiences, ActiveID: "a", Dragged: &reorder.Rect{Y: 800, Width: 100, Height: 100}}))
	require.Equal(t, []string{"c", "b", "a"}, ids())

	bad := 7
	err := h.session.Dispatch(&ReorderEntries{List: ListWorkExperiences, From: &from, To: &bad})
	require.ErrorIs(t, err, ErrInvalidCommand)
	require.Equal(t, []string{"c", "b", "a"}, ids())
	require.NotEmpty(t, h.events.of(EventError))

	require.ErrorIs(t, h.session.Dispatch(&ReorderEntries{List: "skills"}), ErrInvalidCommand)
}

func TestDispatch_PhotoLifecycle(t *testing.T) {
	store := newFakeStore()
	h := openSession(t, store, Options{})

	require.Error(t, h.session.Dispatch(&SetPhoto{}))
	require.Error(t, h.session.Dispatch(&SetPhoto{Data: []byte("hello"), ContentType: "text/plain"}))

	require.NoError(t, h.session.Dispatch(&SetPhoto{Data: []byte{1, 2, 3}, ContentType: "image/png"}))
	st := h.events.lastState(t)
	require.True(t, strings.HasPrefix(st.Values.Photo.PreviewURL, "data:image/png;base64,"))
	require.Nil(t, st.Values.Photo.Data)

	require.Eventually(t, func() bool { return store.saveCount() == 1 }, time.Second, 5*time.Millisecond)
	require.Equal(t, resume.PhotoReplace, store.lastSave().PhotoChange)

	require.NoError(t, h.session.Dispatch(&UpdateGeneralInfo{Title: "t"}))
	require.Eventually(t, func() bool { return store.saveCount() == 2 }, time.Second, 5*time.Millisecond)
	require.Equal(t, resume.PhotoKeep, store.lastSave().PhotoChange)

	require.NoError(t, h.session.Dispatch(&RemovePhoto{}))
	require.Eventually(t, func() bool { return store.saveCount() == 3 }, time.Second, 5*time.Millisecond)
	require.Equal(t, resume.PhotoRemove, store.lastSave().PhotoChange)
}

func TestDispatch_UnstorablePhotoTypeRejected(t *testing.T) {
	store := newFakeStore()
	h := openSession(t, store, Options{})

	err := h.session.Dispatch(&SetPhoto{Data: []byte("<svg/>"), ContentType: "image/svg+xml"})
	var verr *resume.ValidationError
	require.True(t, errors.As(err, &verr))
	require.Equal(t, resume.SectionPhoto, verr.Section)
	require.Nil(t, h.session.Values().Photo)

	evs := h.events.of(EventValidationError)
	require.Len(t, evs, 1)
	require.Contains(t, evs[0].Payload.(ValidationPayload).Fields, "photo.content_type")

	// Later edits still reach the store.
	require.NoError(t, h.session.Dispatch(&UpdateGeneralInfo{Title: "after"}))
	require.Eventually(t, func() bool { return store.saveCount() == 1 }, time.Second, 5*time.Millisecond)
	require.Equal(t, "after", store.lastSave().Values.Title)
	require.Nil(t, store.lastSave().Values.Photo)
}

func TestGenerateSummary_ReplacesSummary(t *testing.T) {
	h := openSession(t, newFakeStore(), Options{})
	require.NoError(t, h.session.Dispatch(&UpdateSummary{Summary: "old"}))
	require.NoError(t, h.session.Dispatch(&UpdatePersonalInfo{PersonalInfo: resume.PersonalInfo{JobTitle: "Engineer"}}))

	require.NoError(t, h.session.Dispatch(&GenerateSummary{}))
	require.Eventually(t, func() bool { return h.session.Values().Summary == "Seasoned engineer." }, time.Second, 5*time.Millisecond)

	require.Equal(t, 1, h.gen.callCount())
	require.Empty(t, h.gen.calls[0].Summary)
	require.Equal(t, "Engineer", h.gen.calls[0].PersonalInfo.JobTitle)
	require.Empty(t, h.events.of(EventToast))
	require.False(t, h.events.lastState(t).GeneratingSummary)
}

func TestGenerateSummary_FailureLeavesSummaryAndToastsOnce(t *testing.T) {
	h := openSession(t, newFakeStore(), Options{})
	h.gen.err = errors.New("upstream unavailable")
	require.NoError(t, h.session.Dispatch(&UpdateSummary{Summary: "mine"}))

	require.NoError(t, h.session.Dispatch(&GenerateSummary{}))
	require.Eventually(t, func() bool { return len(h.events.of(EventToast)) == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)

	toasts := h.events.of(EventToast)
	require.Len(t, toasts, 1)
	toast := toasts[0].Payload.(ToastPayload)
	require.Equal(t, "Something went wrong. Please try again.", toast.Description)
	require.Equal(t, ToastDestructive, toast.Variant)
	require.Equal(t, "mine", h.session.Values().Summary)
}

func TestGenerateSummary_OneInFlight(t *testing.T) {
	h := openSession(t, newFakeStore(), Options{})
	h.gen.release = make(chan struct{})

	require.NoError(t, h.session.Dispatch(&GenerateSummary{}))
	require.Eventually(t, func() bool { return h.gen.callCount() == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, h.session.Dispatch(&GenerateSummary{}))
	require.True(t, h.events.lastState(t).GeneratingSummary)

	close(h.gen.release)
	require.Eventually(t, func() bool { return h.session.Values().Summary == "Seasoned engineer." }, time.Second, 5*time.Millisecond)
	require.Equal(t, 1, h.gen.callCount())
}

func TestGenerateSummary_ManualEditWins(t *testing.T) {
	h := openSession(t, newFakeStore(), Options{})
	h.gen.release = make(chan struct{})

	require.NoError(t, h.session.Dispatch(&GenerateSummary{}))
	require.Eventually(t, func() bool { return h.gen.callCount() == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, h.session.Dispatch(&UpdateSummary{Summary: "typed by hand"}))

	close(h.gen.release)
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, "typed by hand", h.session.Values().Summary)
	require.Empty(t, h.events.of(EventToast))
}

func TestGenerateSummary_DiscardedAfterClose(t *testing.T) {
	h := openSession(t, newFakeStore(), Options{})
	h.gen.release = make(chan struct{})

	require.NoError(t, h.session.Dispatch(&GenerateSummary{}))
	require.Eventually(t, func() bool { return h.gen.callCount() == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, h.session.Close(context.Background()))

	time.Sleep(50 * time.Millisecond)
	require.Empty(t, h.session.Values().Summary)
	require.Empty(t, h.events.of(EventToast))
	require.ErrorIs(t, h.session.Dispatch(&UpdateSummary{Summary: "late"}), ErrClosed)
}

func TestClose_FlushesPendingEdits(t *testing.T) {
	store := newFakeStore()
	h := openSession(t, store, Options{Autosave: autosave.Options{Debounce: time.Hour}})

	require.NoError(t, h.session.Dispatch(&UpdateGeneralInfo{Title: "Unsaved"}))
	require.Zero(t, store.saveCount())

	require.NoError(t, h.session.Close(context.Background()))
	require.Equal(t, 1, store.saveCount())
	require.Equal(t, "Unsaved", store.lastSave().Values.Title)
	require.NoError(t, h.session.Close(context.Background()))
}

func TestClose_ReportsFlushFailure(t *testing.T) {
	store := newFakeStore()
	store.saveErr = errors.New("db down")
	h := openSession(t, store, Options{Autosave: autosave.Options{Debounce: time.Hour}})

	require.NoError(t, h.session.Dispatch(&UpdateGeneralInfo{Title: "Unsaved"}))
	require.Error(t, h.session.Close(context.Background()))
}

func TestAutosaveFailureIsSurfaced(t *testing.T) {
	store := newFakeStore()
	store.saveErr = errors.New("db down")
	h := openSession(t, store, Options{})

	require.NoError(t, h.session.Dispatch(&UpdateGeneralInfo{Title: "x"}))
	require.Eventually(t, func() bool { return len(h.events.of(EventToast)) == 1 }, time.Second, 5*time.Millisecond)

	var failed bool
	for _, ev := range h.events.of(EventAutosave) {
		p := ev.Payload.(AutosavePayload)
		if p.Status == autosave.EventSaveFailed {
			failed = true
			require.Equal(t, "db down", p.Error)
		}
	}
	require.True(t, failed)
	require.True(t, h.session.HasUnsavedChanges())

	store.mu.Lock()
	store.saveErr = nil
	store.mu.Unlock()
	require.NoError(t, h.session.Dispatch(&RetrySave{}))
	require.Eventually(t, func() bool { return !h.session.HasUnsavedChanges() }, time.Second, 5*time.Millisecond)
}

func TestSetStep(t *testing.T) {
	h := openSession(t, newFakeStore(), Options{})

	require.NoError(t, h.session.Dispatch(&SetStep{Step: "education"}))
	require.Equal(t, StepEducation, h.session.Step())
	steps := h.events.of(EventStep)
	p := steps[len(steps)-1].Payload.(StepPayload)
	require.Equal(t, StepWorkExperience, p.Prev)
	require.Equal(t, StepSkills, p.Next)
	require.Equal(t, StepEducation, h.events.lastState(t).Step)
}

func TestSteps(t *testing.T) {
	require.Equal(t, StepGeneralInfo, ParseStep(""))
	require.Equal(t, StepSummary, ParseStep("summary"))
	require.Equal(t, Step(""), StepGeneralInfo.Prev())
	require.Equal(t, Step(""), StepSummary.Next())
	require.Equal(t, resume.SectionEducations, StepEducation.Section())
	require.Equal(t, "Work experience", StepWorkExperience.Title())
}

func TestDecodeCommand(t *testing.T) {
	cmd, err := DecodeCommand(CmdUpdateSkills, json.RawMessage(`{"skills":"go, sql"}`))
	require.NoError(t, err)
	require.Equal(t, &UpdateSkills{Skills: "go, sql"}, cmd)

	cmd, err = DecodeCommand(CmdUpdatePersonalInfo, json.RawMessage(`{"first_name":"Ada","email":"a@b.co"}`))
	require.NoError(t, err)
	require.Equal(t, "Ada", cmd.(*UpdatePersonalInfo).FirstName)

	cmd, err = DecodeCommand(CmdCycleBorderStyle, nil)
	require.NoError(t, err)
	require.IsType(t, &CycleBorderStyle{}, cmd)

	_, err = DecodeCommand("drop_tables", nil)
	require.ErrorIs(t, err, ErrInvalidCommand)
	_, err = DecodeCommand(CmdSetStep, json.RawMessage(`{"step":`))
	require.ErrorIs(t, err, ErrInvalidCommand)
}
