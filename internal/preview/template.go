package preview

// documentTemplate renders a one-page resume. Every mode shares the markup and
// differs only in page size.
const documentTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>{{.Title}}</title>
    <style>
        @page { size: A4; margin: 0; }
        body {
            margin: 0;
            padding: 0;
            font-family: 'Inter', 'Helvetica Neue', Arial, sans-serif;
            font-size: 10pt;
            color: #1f2937;
            background: {{if .Print}}white{{else}}#f3f4f6{{end}};
        }
        .page {
            width: 794px; /* A4 @ 96 DPI */
            min-height: 1122px;
            background: white;
            margin: 0 auto;
            padding: 32px;
            box-sizing: border-box;
            {{if .Thumbnail}}transform: scale(0.25); transform-origin: top left;{{end}}
        }
        .header { display: flex; align-items: center; gap: 24px; }
        .photo {
            width: 100px;
            height: 100px;
            object-fit: cover;
            border-radius: {{.Radius}};
        }
        .name { font-size: 24pt; font-weight: bold; color: {{.Accent}}; margin: 0; }
        .job-title { font-size: 12pt; font-weight: 500; margin: 4px 0 0; }
        .contact { font-size: 9pt; color: #6b7280; margin-top: 4px; }
        hr { border: 0; border-top: 2px solid {{.Accent}}; margin: 16px 0; }
        h2 { font-size: 12pt; font-weight: 600; color: {{.Accent}}; margin: 0 0 8px; }
        .entry { margin-bottom: 10px; break-inside: avoid; }
        .entry-head { display: flex; justify-content: space-between; font-weight: 600; }
        .entry-sub { font-size: 9pt; font-weight: 600; }
        .entry-body { white-space: pre-line; font-size: 9pt; margin-top: 2px; }
        .summary { white-space: pre-line; }
        .skills { display: flex; flex-wrap: wrap; gap: 6px; }
        .skill {
            border: 2px solid {{.Accent}};
            background: {{.Accent}};
            color: white;
            border-radius: {{.Radius}};
            padding: 2px 8px;
            font-size: 9pt;
        }
    </style>
</head>
<body>
<div class="page">
    <div class="header">
        {{if .PhotoSrc}}<img class="photo" src="{{.PhotoSrc}}" alt="Author photo">{{end}}
        <div>
            <p class="name">{{.Name}}</p>
            {{if .Personal.JobTitle}}<p class="job-title">{{.Personal.JobTitle}}</p>{{end}}
            {{if .Contact}}<p class="contact">{{.Contact}}</p>{{end}}
        </div>
    </div>

    {{if .Summary}}
    <hr>
    <div>
        <h2>Professional profile</h2>
        <div class="summary">{{.Summary}}</div>
    </div>
    {{end}}

    {{if .WorkExperiences}}
    <hr>
    <div>
        <h2>Work experience</h2>
        {{range .WorkExperiences}}
        <div class="entry">
            <div class="entry-head">
                <span>{{.Position}}</span>
                {{if .StartDate}}<span>{{formatDate .StartDate}} - {{if .EndDate}}{{formatDate .EndDate}}{{else}}Present{{end}}</span>{{end}}
            </div>
            <p class="entry-sub">{{.Company}}</p>
            {{if .Description}}<div class="entry-body">{{.Description}}</div>{{end}}
        </div>
        {{end}}
    </div>
    {{end}}

    {{if .Educations}}
    <hr>
    <div>
        <h2>Education</h2>
        {{range .Educations}}
        <div class="entry">
            <div class="entry-head">
                <span>{{.Degree}}</span>
                {{if .StartDate}}<span>{{formatDate .StartDate}}{{if .EndDate}} - {{formatDate .EndDate}}{{end}}</span>{{end}}
            </div>
            <p class="entry-sub">{{.School}}</p>
        </div>
        {{end}}
    </div>
    {{end}}

    {{if .Skills}}
    <hr>
    <div>
        <h2>Skills</h2>
        <div class="skills">{{range .Skills}}<span class="skill">{{.}}</span>{{end}}</div>
    </div>
    {{end}}
</div>
</body>
</html>
`
