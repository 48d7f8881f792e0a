package resume

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// Section names one independently validated slice of a resume.
type Section string

const (
	SectionGeneral         Section = "general_info"
	SectionPersonalInfo    Section = "personal_info"
	SectionPhoto           Section = "photo"
	SectionWorkExperiences Section = "work_experiences"
	SectionEducations      Section = "educations"
	SectionSkills          Section = "skills"
	SectionSummary         Section = "summary"
	SectionStyle           Section = "style"
)

// ValidationError lists per-field failures of one section.
type ValidationError struct {
	Section Section           `json:"section"`
	Fields  map[string]string `json:"fields"`
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+" "+e.Fields[k])
	}
	return fmt.Sprintf("invalid %s: %s", e.Section, strings.Join(parts, "; "))
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		_ = validate.RegisterValidation("phototype", func(fl validator.FieldLevel) bool {
			_, ok := PhotoExtension(fl.Field().String())
			return ok
		})
	})
	return validate
}

type generalSection struct {
	Title       string `json:"title" validate:"max=255"`
	Description string `json:"description" validate:"max=1000"`
}

type personalSection struct {
	PersonalInfo PersonalInfo `json:"personal_info"`
}

type photoSection struct {
	Photo *Photo `json:"photo"`
}

type workSection struct {
	WorkExperiences []WorkExperience `json:"work_experiences" validate:"max=50,dive"`
}

type educationSection struct {
	Educations []Education `json:"educations" validate:"max=50,dive"`
}

type skillsSection struct {
	Skills []string `json:"skills" validate:"max=100,dive,required,max=100"`
}

type summarySection struct {
	Summary string `json:"summary" validate:"max=5000"`
}

type styleSection struct {
	ColorHex    string      `json:"color_hex" validate:"omitempty,hexcolor"`
	BorderStyle BorderStyle `json:"border_style" validate:"omitempty,oneof=square circle squircle"`
}

// ValidateGeneral checks title and description.
func ValidateGeneral(title, description string) error {
	return check(SectionGeneral, generalSection{Title: title, Description: description})
}

// ValidatePersonalInfo checks name and contact fields.
func ValidatePersonalInfo(p PersonalInfo) error {
	return check(SectionPersonalInfo, personalSection{PersonalInfo: p})
}

// ValidatePhoto checks a selected photo payload.
func ValidatePhoto(p *Photo) error {
	if p == nil {
		return nil
	}
	if p.Pending() && strings.TrimSpace(p.ContentType) == "" {
		return &ValidationError{Section: SectionPhoto, Fields: map[string]string{"photo.content_type": "is required"}}
	}
	return check(SectionPhoto, photoSection{Photo: p})
}

// ValidateWorkExperiences checks every work experience entry.
func ValidateWorkExperiences(list []WorkExperience) error {
	return check(SectionWorkExperiences, workSection{WorkExperiences: list})
}

// ValidateEducations checks every education entry.
func ValidateEducations(list []Education) error {
	return check(SectionEducations, educationSection{Educations: list})
}

// ValidateSkills checks the skills list.
func ValidateSkills(skills []string) error {
	return check(SectionSkills, skillsSection{Skills: skills})
}

// ValidateSummary checks the summary text.
func ValidateSummary(summary string) error {
	return check(SectionSummary, summarySection{Summary: summary})
}

// ValidateStyle checks accent color and border style.
func ValidateStyle(colorHex string, border BorderStyle) error {
	return check(SectionStyle, styleSection{ColorHex: colorHex, BorderStyle: border})
}

// Validate runs every section and returns the first failing one.
func Validate(v Values) error {
	checks := []func() error{
		func() error { return ValidateGeneral(v.Title, v.Description) },
		func() error { return ValidatePersonalInfo(v.PersonalInfo) },
		func() error { return ValidatePhoto(v.Photo) },
		func() error { return ValidateWorkExperiences(v.WorkExperiences) },
		func() error { return ValidateEducations(v.Educations) },
		func() error { return ValidateSkills(v.Skills) },
		func() error { return ValidateSummary(v.Summary) },
		func() error { return ValidateStyle(v.ColorHex, v.BorderStyle) },
	}
	for _, fn := range checks {
		if err := fn(); err != nil {
			return err
		}
	}
	return nil
}

// ParseSkills splits a comma separated input into trimmed, non-empty skills.
func ParseSkills(input string) []string {
	var out []string
	for _, s := range strings.Split(input, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func check(section Section, s any) error {
	err := validatorInstance().Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate %s: %w", section, err)
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		ns := fe.Namespace()
		if i := strings.IndexByte(ns, '.'); i >= 0 {
			ns = ns[i+1:]
		}
		fields[ns] = message(fe)
	}
	return &ValidationError{Section: section, Fields: fields}
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "datetime":
		return "must be a date (YYYY-MM-DD)"
	case "hexcolor":
		return "must be a hex color"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "phototype":
		return "must be png, jpeg, webp or gif"
	case "max":
		if fe.Kind() == reflect.Slice {
			return "has too many items"
		}
		return "is too long"
	default:
		return "is invalid"
	}
}
