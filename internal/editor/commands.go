package editor

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"resumeEditor/internal/reorder"
	"resumeEditor/internal/resume"
)

// ErrInvalidCommand 包装格式错误或未知的命令。
var ErrInvalidCommand = errors.New("editor: invalid command")

// Command 是一次通过 Session.Dispatch 执行的修改。
type Command interface {
	apply(s *Session) (outcome, error)
}

// outcome 告诉 Dispatch 释放锁后需要推送什么。
type outcome struct {
	// changed 表示值有变化：随后触发自动保存、state 与 preview。
	changed bool
	// state 表示即使值没变也推送 state。
	state  bool
	events []Event
	after  func()
}

// 客户端发送的命令名。
const (
	CmdUpdateGeneralInfo     = "update_general_info"
	CmdUpdatePersonalInfo    = "update_personal_info"
	CmdUpdateWorkExperiences = "update_work_experiences"
	CmdUpdateEducations      = "update_educations"
	CmdUpdateSkills          = "update_skills"
	CmdUpdateSummary         = "update_summary"
	CmdSetAccentColor        = "set_accent_color"
	CmdSetBorderStyle        = "set_border_style"
	CmdCycleBorderStyle      = "cycle_border_style"
	CmdSetPhoto              = "set_photo"
	CmdRemovePhoto           = "remove_photo"
	CmdReorderEntries        = "reorder_entries"
	CmdSetLayout             = "set_layout"
	CmdSetStep               = "set_step"
	CmdGenerateSummary       = "generate_summary"
	CmdRetrySave             = "retry_save"
)

var commandFactories = map[string]func() Command{
	CmdUpdateGeneralInfo:     func() Command { return &UpdateGeneralInfo{} },
	CmdUpdatePersonalInfo:    func() Command { return &UpdatePersonalInfo{} },
	CmdUpdateWorkExperiences: func() Command { return &UpdateWorkExperiences{} },
	CmdUpdateEducations:      func() Command { return &UpdateEducations{} },
	CmdUpdateSkills:          func() Command { return &UpdateSkills{} },
	CmdUpdateSummary:         func() Command { return &UpdateSummary{} },
	CmdSetAccentColor:        func() Command { return &SetAccentColor{} },
	CmdSetBorderStyle:        func() Command { return &SetBorderStyle{} },
	CmdCycleBorderStyle:      func() Command { return &CycleBorderStyle{} },
	CmdSetPhoto:              func() Command { return &SetPhoto{} },
	CmdRemovePhoto:           func() Command { return &RemovePhoto{} },
	CmdReorderEntries:        func() Command { return &ReorderEntries{} },
	CmdSetLayout:             func() Command { return &SetLayout{} },
	CmdSetStep:               func() Command { return &SetStep{} },
	CmdGenerateSummary:       func() Command { return &GenerateSummary{} },
	CmdRetrySave:             func() Command { return &RetrySave{} },
}

// DecodeCommand 根据命令名与 JSON 载荷构造命令。
func DecodeCommand(name string, payload json.RawMessage) (Command, error) {
	factory, ok := commandFactories[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown command %q", ErrInvalidCommand, name)
	}
	cmd := factory()
	if len(payload) > 0 && string(payload) != "null" {
		if err := json.Unmarshal(payload, cmd); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidCommand, name, err)
		}
	}
	return cmd, nil
}

type UpdateGeneralInfo struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

func (c *UpdateGeneralInfo) apply(s *Session) (outcome, error) {
	if err := resume.ValidateGeneral(c.Title, c.Description); err != nil {
		return outcome{}, err
	}
	s.values.Title = c.Title
	s.values.Description = c.Description
	return outcome{changed: true}, nil
}

type UpdatePersonalInfo struct {
	resume.PersonalInfo
}

func (c *UpdatePersonalInfo) apply(s *Session) (outcome, error) {
	if err := resume.ValidatePersonalInfo(c.PersonalInfo); err != nil {
		return outcome{}, err
	}
	s.values.PersonalInfo = c.PersonalInfo
	return outcome{changed: true}, nil
}

type UpdateWorkExperiences struct {
	WorkExperiences []resume.WorkExperience `json:"work_experiences"`
}

func (c *UpdateWorkExperiences) apply(s *Session) (outcome, error) {
	if err := resume.ValidateWorkExperiences(c.WorkExperiences); err != nil {
		return outcome{}, err
	}
	s.values.WorkExperiences = append([]resume.WorkExperience(nil), c.WorkExperiences...)
	s.values.EnsureIDs()
	return outcome{changed: true}, nil
}

type UpdateEducations struct {
	Educations []resume.Education `json:"educations"`
}

func (c *UpdateEducations) apply(s *Session) (outcome, error) {
	if err := resume.ValidateEducations(c.Educations); err != nil {
		return outcome{}, err
	}
	s.values.Educations = append([]resume.Education(nil), c.Educations...)
	s.values.EnsureIDs()
	return outcome{changed: true}, nil
}

// UpdateSkills 接收技能输入框的原始逗号分隔文本。
type UpdateSkills struct {
	Skills string `json:"skills"`
}

func (c *UpdateSkills) apply(s *Session) (outcome, error) {
	skills := resume.ParseSkills(c.Skills)
	if err := resume.ValidateSkills(skills); err != nil {
		return outcome{}, err
	}
	s.values.Skills = skills
	return outcome{changed: true}, nil
}

// UpdateSummary 是手动编辑，会作废进行中的生成。
type UpdateSummary struct {
	Summary string `json:"summary"`
}

func (c *UpdateSummary) apply(s *Session) (outcome, error) {
	if err := resume.ValidateSummary(c.Summary); err != nil {
		return outcome{}, err
	}
	if s.generating {
		s.generating = false
		s.genSeq++
	}
	s.values.Summary = c.Summary
	return outcome{changed: true}, nil
}

type SetAccentColor struct {
	ColorHex string `json:"color_hex"`
}

func (c *SetAccentColor) apply(s *Session) (outcome, error) {
	if err := resume.ValidateStyle(c.ColorHex, s.values.BorderStyle); err != nil {
		return outcome{}, err
	}
	s.values.ColorHex = c.ColorHex
	return outcome{changed: true}, nil
}

type SetBorderStyle struct {
	BorderStyle resume.BorderStyle `json:"border_style"`
}

func (c *SetBorderStyle) apply(s *Session) (outcome, error) {
	if err := resume.ValidateStyle(s.values.ColorHex, c.BorderStyle); err != nil {
		return outcome{}, err
	}
	s.values.BorderStyle = c.BorderStyle
	return outcome{changed: true}, nil
}

type CycleBorderStyle struct{}

func (*CycleBorderStyle) apply(s *Session) (outcome, error) {
	s.values.BorderStyle = resume.NextBorderStyle(s.values.BorderStyle)
	return outcome{changed: true}, nil
}

// SetPhoto 选择新照片：预览立即切换，上传随下一次保存进行。
type SetPhoto struct {
	Data        []byte `json:"data"`
	ContentType string `json:"content_type"`
}

func (c *SetPhoto) apply(s *Session) (outcome, error) {
	if len(c.Data) == 0 {
		return outcome{}, &resume.ValidationError{
			Section: resume.SectionPhoto,
			Fields:  map[string]string{"photo.data": "is required"},
		}
	}
	ct := strings.TrimSpace(c.ContentType)
	if ct == "" {
		ct = http.DetectContentType(c.Data)
	}
	p := resume.NewPhotoUpload(c.Data, ct)
	if err := resume.ValidatePhoto(p); err != nil {
		return outcome{}, err
	}
	s.values.Photo = p
	return outcome{changed: true}, nil
}

type RemovePhoto struct{}

func (*RemovePhoto) apply(s *Session) (outcome, error) {
	if s.values.Photo == nil {
		return outcome{}, nil
	}
	s.values.Photo = nil
	return outcome{changed: true}, nil
}

// EntryList 标识可排序的列表。
type EntryList string

const (
	ListWorkExperiences EntryList = "work_experiences"
	ListEducations      EntryList = "educations"
)

// ReorderEntries 移动一个条目。按以下顺序取第一种给出的形式：
// From/To 下标、Key、Dragged 拖拽框、ActiveID/OverID。
type ReorderEntries struct {
	List     EntryList         `json:"list"`
	From     *int              `json:"from,omitempty"`
	To       *int              `json:"to,omitempty"`
	ActiveID string            `json:"active_id,omitempty"`
	OverID   string            `json:"over_id,omitempty"`
	Dragged  *reorder.Rect     `json:"dragged,omitempty"`
	Key      reorder.Direction `json:"key,omitempty"`
}

func (c *ReorderEntries) apply(s *Session) (outcome, error) {
	var (
		changed bool
		err     error
	)
	switch c.List {
	case ListWorkExperiences:
		s.values.WorkExperiences, changed, err = reorderEntries(s.values.WorkExperiences, c, s.layout(c.List), s.works)
	case ListEducations:
		s.values.Educations, changed, err = reorderEntries(s.values.Educations, c, s.layout(c.List), s.educations)
	default:
		return outcome{}, fmt.Errorf("%w: unknown list %q", ErrInvalidCommand, c.List)
	}
	if err != nil {
		return outcome{}, fmt.Errorf("%w: %v", ErrInvalidCommand, err)
	}
	return outcome{changed: changed}, nil
}

func reorderEntries[T reorder.Identified](list []T, c *ReorderEntries, ctrl *reorder.Controller, r reorder.Reorderer[T]) ([]T, bool, error) {
	switch {
	case c.From != nil && c.To != nil:
		if *c.From == *c.To {
			return list, false, nil
		}
		out, err := r.Reorder(list, *c.From, *c.To)
		if err != nil {
			return list, false, err
		}
		return out, true, nil
	case c.Key != "":
		out, ok := reorder.MoveByKey(list, c.ActiveID, c.Key)
		return out, ok, nil
	case c.Dragged != nil:
		overID, ok := ctrl.Target(c.ActiveID, *c.Dragged)
		if !ok {
			return list, false, nil
		}
		out, ok := reorder.MoveByID(list, c.ActiveID, overID)
		return out, ok, nil
	default:
		out, ok := reorder.MoveByID(list, c.ActiveID, c.OverID)
		return out, ok, nil
	}
}

// SetLayout 上报列表在客户端的布局，用于解析拖放目标。
type SetLayout struct {
	List   EntryList      `json:"list"`
	Parent reorder.Rect   `json:"parent"`
	Slots  []reorder.Slot `json:"slots"`
}

func (c *SetLayout) apply(s *Session) (outcome, error) {
	if c.List != ListWorkExperiences && c.List != ListEducations {
		return outcome{}, fmt.Errorf("%w: unknown list %q", ErrInvalidCommand, c.List)
	}
	s.layout(c.List).SetLayout(c.Parent, c.Slots)
	return outcome{}, nil
}

type SetStep struct {
	Step string `json:"step"`
}

func (c *SetStep) apply(s *Session) (outcome, error) {
	s.step = ParseStep(c.Step)
	return outcome{state: true, events: []Event{stepEvent(s.step)}}, nil
}

// GenerateSummary 请求生成摘要；已有生成进行中时忽略。
type GenerateSummary struct{}

func (*GenerateSummary) apply(s *Session) (outcome, error) {
	if s.generating {
		return outcome{}, nil
	}
	if s.generator == nil {
		return outcome{events: []Event{failureToast()}}, nil
	}
	s.generating = true
	s.genSeq++
	seq := s.genSeq
	payload := s.values.WithoutSummary()
	return outcome{state: true, after: func() { go s.runSummary(seq, payload) }}, nil
}

// summaryResult 把生成结果带回会话。
type summaryResult struct {
	seq  uint64
	text string
	err  error
}

func (c *summaryResult) apply(s *Session) (outcome, error) {
	return s.finishSummaryLocked(c.seq, c.text, c.err), nil
}

// RetrySave 在自动保存放弃后立即重新保存。
type RetrySave struct{}

func (*RetrySave) apply(s *Session) (outcome, error) {
	return outcome{after: s.rec.Retry}, nil
}
