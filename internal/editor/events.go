package editor

import (
	"resumeEditor/internal/autosave"
	"resumeEditor/internal/resume"
)

// EventType 标识编辑会话推给客户端的消息。
type EventType string

const (
	EventState           EventType = "state"
	EventPreview         EventType = "preview"
	EventAutosave        EventType = "autosave"
	EventValidationError EventType = "validation_error"
	EventToast           EventType = "toast"
	EventStep            EventType = "step"
	EventError           EventType = "error"
)

// Event 是会话交给 Emit 回调的消息。
type Event struct {
	Type    EventType `json:"type"`
	Payload any       `json:"payload,omitempty"`
}

// StatePayload 携带修改后的完整可编辑状态。
type StatePayload struct {
	ResumeID          string          `json:"resume_id,omitempty"`
	Values            resume.Values   `json:"values"`
	HasUnsavedChanges bool            `json:"has_unsaved_changes"`
	Autosave          autosave.Status `json:"autosave"`
	GeneratingSummary bool            `json:"generating_summary"`
	Step              Step            `json:"step"`
}

type PreviewPayload struct {
	HTML string `json:"html"`
}

// AutosavePayload 是 autosave.Event 面向客户端的形式。
type AutosavePayload struct {
	Status    autosave.EventType `json:"status"`
	ResumeID  string             `json:"resume_id,omitempty"`
	Attempt   int                `json:"attempt,omitempty"`
	Error     string             `json:"error,omitempty"`
	ErrorCode int                `json:"error_code,omitempty"`
	RetryInMs int64              `json:"retry_in_ms,omitempty"`
}

type ValidationPayload struct {
	Section resume.Section    `json:"section"`
	Fields  map[string]string `json:"fields"`
}

// ToastVariant 为 destructive 时表示失败提示。
type ToastVariant string

const (
	ToastDefault     ToastVariant = "default"
	ToastDestructive ToastVariant = "destructive"
)

type ToastPayload struct {
	Description string       `json:"description"`
	Variant     ToastVariant `json:"variant"`
}

type StepPayload struct {
	Step  Step   `json:"step"`
	Title string `json:"title"`
	Prev  Step   `json:"prev,omitempty"`
	Next  Step   `json:"next,omitempty"`
}

type ErrorPayload struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func stepEvent(s Step) Event {
	return Event{Type: EventStep, Payload: StepPayload{Step: s, Title: s.Title(), Prev: s.Prev(), Next: s.Next()}}
}
