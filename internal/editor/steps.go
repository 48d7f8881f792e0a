package editor

import "resumeEditor/internal/resume"

// Step 标识多步表单中的一页。
type Step string

const (
	StepGeneralInfo    Step = "general-info"
	StepPersonalInfo   Step = "personal-info"
	StepWorkExperience Step = "work-experience"
	StepEducation      Step = "education"
	StepSkills         Step = "skills"
	StepSummary        Step = "summary"
)

// 按显示顺序排列。
var Steps = []Step{
	StepGeneralInfo,
	StepPersonalInfo,
	StepWorkExperience,
	StepEducation,
	StepSkills,
	StepSummary,
}

var stepTitles = map[Step]string{
	StepGeneralInfo:    "General info",
	StepPersonalInfo:   "Personal info",
	StepWorkExperience: "Work experience",
	StepEducation:      "Education",
	StepSkills:         "Skills",
	StepSummary:        "Summary",
}

// ParseStep 解析 step 查询参数，未知或为空时取第一步。
func ParseStep(s string) Step {
	for _, st := range Steps {
		if string(st) == s {
			return st
		}
	}
	return Steps[0]
}

func (s Step) index() int {
	for i, st := range Steps {
		if st == s {
			return i
		}
	}
	return 0
}

// Title 是面包屑上的标题。
func (s Step) Title() string { return stepTitles[s] }

// Next 返回下一步，最后一步返回 ""。
func (s Step) Next() Step {
	if i := s.index(); i+1 < len(Steps) {
		return Steps[i+1]
	}
	return ""
}

// Prev 返回上一步，第一步返回 ""。
func (s Step) Prev() Step {
	if i := s.index(); i > 0 {
		return Steps[i-1]
	}
	return ""
}

// Section 是这一步编辑的校验分区。
func (s Step) Section() resume.Section {
	switch s {
	case StepPersonalInfo:
		return resume.SectionPersonalInfo
	case StepWorkExperience:
		return resume.SectionWorkExperiences
	case StepEducation:
		return resume.SectionEducations
	case StepSkills:
		return resume.SectionSkills
	case StepSummary:
		return resume.SectionSummary
	default:
		return resume.SectionGeneral
	}
}
