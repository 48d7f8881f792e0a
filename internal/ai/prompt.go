package ai

import (
	"fmt"
	"strings"

	"resumeEditor/internal/resume"
)

const systemInstruction = `You are a job resume generator AI. Your task is to write a professional introduction summary for a resume given the user's provided data.
Only return the summary and do not include any other information in the response. Keep it concise and professional.`

// BuildPrompt lists the resume facts the summary is written from. The summary
// itself and the photo are never part of the prompt.
func BuildPrompt(v resume.Values) string {
	var b strings.Builder
	b.WriteString("Please generate a professional resume summary from this data:\n\n")

	fmt.Fprintf(&b, "Job title: %s\n\n", orDash(v.PersonalInfo.JobTitle))

	b.WriteString("Work experience:\n")
	if len(v.WorkExperiences) == 0 {
		b.WriteString("-\n")
	}
	for _, w := range v.WorkExperiences {
		fmt.Fprintf(&b, "Position: %s at %s from %s to %s\n",
			orDash(w.Position), orDash(w.Company), orDash(w.StartDate), orValue(w.EndDate, "Present"))
		if d := strings.TrimSpace(w.Description); d != "" {
			fmt.Fprintf(&b, "Description:\n%s\n", d)
		}
		b.WriteString("\n")
	}

	b.WriteString("\nEducation:\n")
	if len(v.Educations) == 0 {
		b.WriteString("-\n")
	}
	for _, e := range v.Educations {
		fmt.Fprintf(&b, "Degree: %s at %s from %s to %s\n",
			orDash(e.Degree), orDash(e.School), orDash(e.StartDate), orDash(e.EndDate))
	}

	fmt.Fprintf(&b, "\nSkills:\n%s\n", orDash(strings.Join(v.Skills, ", ")))
	return b.String()
}

func orDash(s string) string { return orValue(s, "N/A") }

func orValue(s, fallback string) string {
	if s = strings.TrimSpace(s); s == "" {
		return fallback
	}
	return s
}
