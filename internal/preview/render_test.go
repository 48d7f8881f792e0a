package preview

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"resumeEditor/internal/resume"
)

func sample() resume.Values {
	return resume.Values{
		Title: "Backend",
		PersonalInfo: resume.PersonalInfo{
			FirstName: "Ada",
			LastName:  "Lovelace",
			JobTitle:  "Engineer",
			City:      "London",
			Country:   "UK",
			Email:     "ada@example.com",
		},
		Photo: resume.NewPhotoUpload([]byte("img"), "image/png"),
		WorkExperiences: []resume.WorkExperience{
			{ID: "w1", Position: "Analyst", Company: "Engines Ltd", StartDate: "2021-03-01", Description: "Built <things>"},
		},
		Educations: []resume.Education{
			{ID: "e1", Degree: "BSc", School: "UCL", StartDate: "2015-09-01", EndDate: "2018-06-30"},
		},
		Skills:      []string{"go", "sql"},
		Summary:     "Curious.",
		ColorHex:    "#ff0000",
		BorderStyle: resume.BorderCircle,
	}
}

func TestRender_Screen(t *testing.T) {
	html, err := RenderString(sample(), Options{Mode: ModeScreen})
	require.NoError(t, err)

	require.Contains(t, html, "Ada Lovelace")
	require.Contains(t, html, "London, UK • ada@example.com")
	require.Contains(t, html, "03/2021 - Present")
	require.Contains(t, html, "09/2015 - 06/2018")
	require.Contains(t, html, "border-radius: 999px")
	require.Contains(t, html, "#ff0000")
	require.Contains(t, html, `src="data:image/png;base64,`)
	require.Contains(t, html, "Built &lt;things&gt;")
	require.NotContains(t, html, "scale(0.25)")
}

func TestRender_ModesAndFallbacks(t *testing.T) {
	v := sample()
	v.ColorHex = "red; background: url(x)"
	v.Photo = &resume.Photo{Key: "photos/a.png", PreviewURL: "javascript:alert(1)"}

	html, err := RenderString(v, Options{Mode: ModeThumbnail})
	require.NoError(t, err)
	require.Contains(t, html, "scale(0.25)")
	require.Contains(t, html, DefaultAccent)
	require.NotContains(t, html, "javascript:")
	require.False(t, strings.Contains(html, `class="photo"`))

	html, err = RenderString(v, Options{Mode: ModePrint, PhotoSrc: "data:image/jpeg;base64,AAA="})
	require.NoError(t, err)
	require.Contains(t, html, `src="data:image/jpeg;base64,AAA="`)
}

func TestRender_Empty(t *testing.T) {
	html, err := RenderString(resume.Values{}, Options{})
	require.NoError(t, err)
	require.Contains(t, html, "<title>Resume</title>")
	require.NotContains(t, html, "Work experience")
	require.Contains(t, html, "border-radius: 10%")
}

func TestFormatDate(t *testing.T) {
	require.Equal(t, "01/2024", FormatDate("2024-01-15"))
	require.Equal(t, "soon", FormatDate("soon"))
	require.Equal(t, ModePrint, ParseMode("PRINT"))
	require.Equal(t, ModeScreen, ParseMode("bogus"))
}
