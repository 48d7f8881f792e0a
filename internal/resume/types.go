package resume

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/google/uuid"
)

// Values is the in-memory aggregate of every editable field of one resume.
// Rules live on the per-section structs in validation.go.
type Values struct {
	Title           string           `json:"title"`
	Description     string           `json:"description"`
	PersonalInfo    PersonalInfo     `json:"personal_info"`
	Photo           *Photo           `json:"photo"`
	WorkExperiences []WorkExperience `json:"work_experiences"`
	Educations      []Education      `json:"educations"`
	Skills          []string         `json:"skills"`
	Summary         string           `json:"summary"`
	ColorHex        string           `json:"color_hex"`
	BorderStyle     BorderStyle      `json:"border_style"`
}

// PersonalInfo holds name, title and contact fields.
type PersonalInfo struct {
	FirstName string `json:"first_name" validate:"max=100"`
	LastName  string `json:"last_name" validate:"max=100"`
	JobTitle  string `json:"job_title" validate:"max=200"`
	City      string `json:"city" validate:"max=100"`
	Country   string `json:"country" validate:"max=100"`
	Phone     string `json:"phone" validate:"max=50"`
	Email     string `json:"email" validate:"omitempty,email,max=255"`
}

// Education is one entry of the education list. ID is stable across reorders.
type Education struct {
	ID        string `json:"id" validate:"max=64"`
	Degree    string `json:"degree" validate:"max=200"`
	School    string `json:"school" validate:"max=200"`
	StartDate string `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate   string `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
}

// WorkExperience is one entry of the work experience list. ID is stable across reorders.
type WorkExperience struct {
	ID          string `json:"id" validate:"max=64"`
	Position    string `json:"position" validate:"max=200"`
	Company     string `json:"company" validate:"max=200"`
	StartDate   string `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate     string `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
	Description string `json:"description" validate:"max=5000"`
}

// EntryID implements reorder.Identified.
func (e Education) EntryID() string { return e.ID }

// EntryID implements reorder.Identified.
func (w WorkExperience) EntryID() string { return w.ID }

// MaxPhotoBytes bounds an uploaded photo payload.
const MaxPhotoBytes = 4 << 20

// Photo tracks the three states of a resume photo.
// Key is the persisted object reference, PreviewURL is what a renderer shows right now,
// Data/ContentType is a payload selected locally and not yet persisted.
type Photo struct {
	Key         string `json:"key,omitempty"`
	PreviewURL  string `json:"preview_url,omitempty"`
	Data        []byte `json:"data,omitempty" validate:"max=4194304"`
	ContentType string `json:"content_type,omitempty" validate:"omitempty,phototype"`
}

var photoExtensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// PhotoExtension returns the object extension for a supported photo type.
// Only these types can be stored; anything else fails validation.
func PhotoExtension(contentType string) (string, bool) {
	ext, ok := photoExtensions[strings.ToLower(strings.TrimSpace(contentType))]
	return ext, ok
}

// Pending reports whether the photo carries a payload that still has to be uploaded.
func (p *Photo) Pending() bool {
	return p != nil && len(p.Data) > 0
}

// NewPhotoUpload wraps a freshly selected file. The preview is available immediately
// as a data URI so renderers never wait on an upload.
func NewPhotoUpload(data []byte, contentType string) *Photo {
	buf := make([]byte, len(data))
	copy(buf, data)
	return &Photo{
		PreviewURL:  DataURI(contentType, buf),
		Data:        buf,
		ContentType: contentType,
	}
}

// DataURI encodes a payload as a data: URI.
func DataURI(contentType string, data []byte) string {
	return fmt.Sprintf("data:%s;base64,%s", contentType, base64.StdEncoding.EncodeToString(data))
}

// BorderStyle controls the photo frame in the rendered document.
type BorderStyle string

const (
	BorderSquare   BorderStyle = "square"
	BorderCircle   BorderStyle = "circle"
	BorderSquircle BorderStyle = "squircle"
)

var borderStyles = []BorderStyle{BorderSquare, BorderCircle, BorderSquircle}

// NextBorderStyle cycles square -> circle -> squircle -> square. Unknown or empty counts as square.
func NextBorderStyle(current BorderStyle) BorderStyle {
	idx := 0
	for i, s := range borderStyles {
		if s == current {
			idx = i
			break
		}
	}
	return borderStyles[(idx+1)%len(borderStyles)]
}

// Radius returns the CSS border radius used for the photo.
func (b BorderStyle) Radius() string {
	switch b {
	case BorderSquare:
		return "0px"
	case BorderCircle:
		return "999px"
	default:
		return "10%"
	}
}

// Clone returns a deep copy.
func (v Values) Clone() Values {
	out := v
	if v.Photo != nil {
		p := *v.Photo
		if v.Photo.Data != nil {
			p.Data = append([]byte(nil), v.Photo.Data...)
		}
		out.Photo = &p
	}
	if v.WorkExperiences != nil {
		out.WorkExperiences = append([]WorkExperience(nil), v.WorkExperiences...)
	}
	if v.Educations != nil {
		out.Educations = append([]Education(nil), v.Educations...)
	}
	if v.Skills != nil {
		out.Skills = append([]string(nil), v.Skills...)
	}
	return out
}

var equalOpts = cmp.Options{cmpopts.EquateEmpty()}

// Equal reports deep structural equality. Nil and empty collections compare equal.
func Equal(a, b Values) bool {
	return cmp.Equal(a, b, equalOpts)
}

// Diff is a human-readable difference, used in logs and test failures.
func Diff(a, b Values) string {
	return cmp.Diff(a, b, equalOpts)
}

// EnsureIDs assigns ids to entries that arrived without one, or with an id
// already used by an earlier entry of the same list.
func (v *Values) EnsureIDs() {
	seen := make(map[string]bool, len(v.WorkExperiences))
	for i := range v.WorkExperiences {
		v.WorkExperiences[i].ID = uniqueID(v.WorkExperiences[i].ID, seen)
	}
	seen = make(map[string]bool, len(v.Educations))
	for i := range v.Educations {
		v.Educations[i].ID = uniqueID(v.Educations[i].ID, seen)
	}
}

func uniqueID(id string, seen map[string]bool) string {
	if strings.TrimSpace(id) == "" || seen[id] {
		id = uuid.NewString()
	}
	seen[id] = true
	return id
}

// WithoutSummary is the payload sent to the summary generator.
func (v Values) WithoutSummary() Values {
	out := v.Clone()
	out.Summary = ""
	out.Photo = nil
	return out
}

// FullName joins first and last name.
func (p PersonalInfo) FullName() string {
	return strings.TrimSpace(strings.TrimSpace(p.FirstName) + " " + strings.TrimSpace(p.LastName))
}

// PhotoChange describes what a save has to do with the stored photo.
type PhotoChange int

const (
	PhotoKeep PhotoChange = iota
	PhotoReplace
	PhotoRemove
)

func (c PhotoChange) String() string {
	switch c {
	case PhotoReplace:
		return "replace"
	case PhotoRemove:
		return "remove"
	default:
		return "keep"
	}
}

// PhotoChangeBetween compares the last persisted photo with the next one.
func PhotoChangeBetween(prev, next *Photo) PhotoChange {
	switch {
	case next == nil && prev == nil:
		return PhotoKeep
	case next == nil:
		return PhotoRemove
	case next.Pending() && (prev == nil || !bytes.Equal(prev.Data, next.Data)):
		return PhotoReplace
	default:
		return PhotoKeep
	}
}

// PhotoChangeFor is the stateless variant used by plain request/response saves:
// a missing photo removes, a payload replaces, a bare reference keeps.
func PhotoChangeFor(next *Photo) PhotoChange {
	switch {
	case next == nil:
		return PhotoRemove
	case next.Pending():
		return PhotoReplace
	default:
		return PhotoKeep
	}
}
