package resume

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func sampleValues() Values {
	return Values{
		Title: "Backend",
		PersonalInfo: PersonalInfo{
			FirstName: "Ada",
			LastName:  "Lovelace",
			Email:     "ada@example.com",
		},
		Photo: NewPhotoUpload([]byte{1, 2, 3}, "image/png"),
		WorkExperiences: []WorkExperience{
			{ID: "w1", Position: "Engineer", Company: "Analytical", StartDate: "2020-01-01"},
		},
		Educations: []Education{{ID: "e1", Degree: "BSc", School: "London"}},
		Skills:     []string{"go", "sql"},
		ColorHex:   "#112233",
	}
}

func TestClone_IsDeep(t *testing.T) {
	orig := sampleValues()
	cp := orig.Clone()
	require.True(t, Equal(orig, cp))

	cp.WorkExperiences[0].Company = "Other"
	cp.Educations[0].Degree = "MSc"
	cp.Skills[0] = "rust"
	cp.Photo.Data[0] = 9

	require.Equal(t, "Analytical", orig.WorkExperiences[0].Company)
	require.Equal(t, "BSc", orig.Educations[0].Degree)
	require.Equal(t, "go", orig.Skills[0])
	require.Equal(t, byte(1), orig.Photo.Data[0])
	require.False(t, Equal(orig, cp))
	require.NotEmpty(t, Diff(orig, cp))
}

func TestEqual_NilAndEmptyCollections(t *testing.T) {
	a := Values{Title: "x"}
	b := Values{Title: "x", Skills: []string{}, Educations: []Education{}}
	require.True(t, Equal(a, b))
}

func TestEnsureIDs(t *testing.T) {
	v := Values{
		WorkExperiences: []WorkExperience{{ID: "keep"}, {}, {ID: "keep"}},
		Educations:      []Education{{ID: "  "}},
	}
	v.EnsureIDs()
	require.Equal(t, "keep", v.WorkExperiences[0].ID)
	require.NotEmpty(t, v.WorkExperiences[1].ID)
	require.NotEqual(t, "keep", v.WorkExperiences[2].ID)
	require.NotEqual(t, "  ", v.Educations[0].ID)
}

func TestNextBorderStyle(t *testing.T) {
	require.Equal(t, BorderCircle, NextBorderStyle(BorderSquare))
	require.Equal(t, BorderSquircle, NextBorderStyle(BorderCircle))
	require.Equal(t, BorderSquare, NextBorderStyle(BorderSquircle))
	require.Equal(t, BorderCircle, NextBorderStyle(""))

	require.Equal(t, "0px", BorderSquare.Radius())
	require.Equal(t, "999px", BorderCircle.Radius())
	require.Equal(t, "10%", BorderSquircle.Radius())
}

func TestNewPhotoUpload(t *testing.T) {
	data := []byte("png")
	p := NewPhotoUpload(data, "image/png")
	data[0] = 'x'

	require.True(t, p.Pending())
	require.Equal(t, []byte("png"), p.Data)
	require.True(t, strings.HasPrefix(p.PreviewURL, "data:image/png;base64,"))

	var nilPhoto *Photo
	require.False(t, nilPhoto.Pending())
}

func TestPhotoChangeBetween(t *testing.T) {
	stored := &Photo{Key: "photos/u/1.png"}
	upload := NewPhotoUpload([]byte{1}, "image/png")

	cases := []struct {
		name       string
		prev, next *Photo
		want       PhotoChange
	}{
		{"both empty", nil, nil, PhotoKeep},
		{"removed", stored, nil, PhotoRemove},
		{"new upload", nil, upload, PhotoReplace},
		{"replaced stored", stored, upload, PhotoReplace},
		{"same pending payload", upload, NewPhotoUpload([]byte{1}, "image/png"), PhotoKeep},
		{"unchanged reference", stored, &Photo{Key: stored.Key}, PhotoKeep},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, PhotoChangeBetween(tc.prev, tc.next))
		})
	}

	require.Equal(t, PhotoRemove, PhotoChangeFor(nil))
	require.Equal(t, PhotoReplace, PhotoChangeFor(upload))
	require.Equal(t, PhotoKeep, PhotoChangeFor(stored))
}

func TestWithoutSummary(t *testing.T) {
	v := sampleValues()
	v.Summary = "old"
	out := v.WithoutSummary()
	require.Empty(t, out.Summary)
	require.Nil(t, out.Photo)
	require.Equal(t, "old", v.Summary)
	require.Equal(t, "Ada Lovelace", v.PersonalInfo.FullName())
}
