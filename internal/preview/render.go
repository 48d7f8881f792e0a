// Package preview renders resume values into a standalone HTML document.
// Rendering is a pure function of its inputs.
package preview

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"regexp"
	"strings"
	"time"

	"resumeEditor/internal/resume"
)

// Mode selects the page variant.
type Mode string

const (
	ModeScreen    Mode = "screen"
	ModePrint     Mode = "print"
	ModeThumbnail Mode = "thumbnail"
)

// ParseMode maps a query value to a Mode. Unknown values fall back to screen.
func ParseMode(s string) Mode {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModePrint:
		return ModePrint
	case ModeThumbnail:
		return ModeThumbnail
	default:
		return ModeScreen
	}
}

// DefaultAccent is used when the resume has no valid accent color.
const DefaultAccent = "#000000"

// Options control one render.
type Options struct {
	Mode Mode
	// PhotoSrc overrides the photo's preview URL, e.g. with an inlined data URI for print.
	PhotoSrc string
}

var (
	tmpl = template.Must(template.New("resume").Funcs(template.FuncMap{
		"formatDate": FormatDate,
	}).Parse(documentTemplate))

	hexColor = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}){1,2}$`)
)

type document struct {
	Title           string
	Name            string
	Personal        resume.PersonalInfo
	Contact         string
	PhotoSrc        template.URL
	Radius          template.CSS
	Accent          template.CSS
	Summary         string
	WorkExperiences []resume.WorkExperience
	Educations      []resume.Education
	Skills          []string
	Print           bool
	Thumbnail       bool
}

// Render writes the HTML document for v.
func Render(w io.Writer, v resume.Values, opts Options) error {
	doc := document{
		Title:           v.Title,
		Name:            v.PersonalInfo.FullName(),
		Personal:        v.PersonalInfo,
		Contact:         contactLine(v.PersonalInfo),
		PhotoSrc:        photoSource(v.Photo, opts.PhotoSrc),
		Radius:          template.CSS(v.BorderStyle.Radius()),
		Accent:          template.CSS(accent(v.ColorHex)),
		Summary:         v.Summary,
		WorkExperiences: v.WorkExperiences,
		Educations:      v.Educations,
		Skills:          v.Skills,
		Print:           opts.Mode == ModePrint,
		Thumbnail:       opts.Mode == ModeThumbnail,
	}
	if doc.Title == "" {
		doc.Title = "Resume"
	}
	if err := tmpl.Execute(w, doc); err != nil {
		return fmt.Errorf("render preview: %w", err)
	}
	return nil
}

// RenderString is Render into a string.
func RenderString(v resume.Values, opts Options) (string, error) {
	var buf bytes.Buffer
	if err := Render(&buf, v, opts); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// FormatDate turns YYYY-MM-DD into MM/YYYY. Anything else is returned as is.
func FormatDate(s string) string {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return s
	}
	return t.Format("01/2006")
}

func contactLine(p resume.PersonalInfo) string {
	var parts []string
	loc := strings.TrimSpace(p.City)
	if c := strings.TrimSpace(p.Country); c != "" {
		if loc != "" {
			loc += ", "
		}
		loc += c
	}
	for _, s := range []string{loc, strings.TrimSpace(p.Phone), strings.TrimSpace(p.Email)} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " • ")
}

func accent(c string) string {
	if hexColor.MatchString(c) {
		return c
	}
	return DefaultAccent
}

// photoSource only lets through image data URIs and http(s) URLs.
func photoSource(p *resume.Photo, override string) template.URL {
	src := override
	if src == "" && p != nil {
		src = p.PreviewURL
	}
	src = strings.TrimSpace(src)
	switch {
	case strings.HasPrefix(src, "data:image/"),
		strings.HasPrefix(src, "https://"),
		strings.HasPrefix(src, "http://"):
		return template.URL(src)
	default:
		return ""
	}
}
