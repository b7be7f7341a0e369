package letter

import (
	"html/template"
	"time"
)

const institutionName = "PD Dental Hygiene Institute"

var templates = newTemplates()

func newTemplates() *template.Template {
	funcs := template.FuncMap{
		"formatDate": formatDate,
	}
	root := template.New("letters").Funcs(funcs)
	template.Must(root.New("enrollment").Parse(letterShell + enrollmentBody))
	template.Must(root.New("acceptance").Parse(letterShell + acceptanceBody))
	return root
}

func formatDate(value time.Time) string {
	if value.IsZero() {
		return ""
	}
	return value.Format("January 2, 2006")
}

const letterShell = `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <style>
    body {
      margin: 0;
      font-family: "Charter", "Georgia", serif;
      color: #2b2520;
      font-size: 13pt;
      line-height: 1.55;
    }
    .letterhead {
      border-bottom: 3px solid #1d5b79;
      padding-bottom: 14px;
      margin-bottom: 28px;
    }
    .letterhead h1 {
      margin: 0;
      font-size: 19pt;
      color: #1d5b79;
      letter-spacing: 0.03em;
    }
    .letterhead .tagline {
      margin: 4px 0 0;
      font-size: 10pt;
      color: #5b6a72;
      text-transform: uppercase;
      letter-spacing: 0.12em;
    }
    .issued {
      margin: 0 0 24px;
      color: #5b5148;
    }
    h2 {
      font-size: 14pt;
      color: #1d5b79;
      margin: 0 0 16px;
    }
    table.enrollments {
      width: 100%;
      border-collapse: collapse;
      margin: 18px 0 24px;
    }
    table.enrollments th,
    table.enrollments td {
      text-align: left;
      padding: 8px 10px;
      border-bottom: 1px solid #d7cdbd;
      vertical-align: top;
    }
    table.enrollments th {
      font-size: 10pt;
      text-transform: uppercase;
      letter-spacing: 0.08em;
      color: #5b6a72;
    }
    .offer {
      border: 1px solid #d7cdbd;
      border-left: 4px solid #1d5b79;
      padding: 14px 18px;
      margin: 18px 0 24px;
    }
    .offer dt {
      font-weight: 600;
      color: #4f4540;
      margin-top: 8px;
    }
    .offer dd {
      margin: 0;
    }
    .signature {
      margin-top: 40px;
    }
    .signature .office {
      color: #5b5148;
      font-size: 11pt;
    }
  </style>
</head>
<body>
  <div class="letterhead">
    <h1>` + institutionName + `</h1>
    <p class="tagline">Office of the Registrar</p>
  </div>
  {{if not .IssuedAt.IsZero}}<p class="issued">{{formatDate .IssuedAt}}</p>{{end}}
`

const enrollmentBody = `
  <h2>Confirmation of Enrollment</h2>
  <p>Dear {{.FirstName}} {{.LastName}},</p>
  <p>This letter confirms your enrollment in the following programs with
  ` + institutionName + `:</p>
  <table class="enrollments">
    <tr><th>Program</th><th>Duration</th><th>Campus</th></tr>
    {{range .Records}}
    <tr>
      <td>{{.CourseName}}</td>
      <td>{{.Duration}}</td>
      <td>{{if .Address}}{{.Address}}{{else}}To be confirmed{{end}}</td>
    </tr>
    {{end}}
  </table>
  <p>Please retain this letter for your records. Should any of the details
  above require correction, contact the Office of the Registrar.</p>
  <div class="signature">
    <p>Sincerely,</p>
    <p class="office">Office of the Registrar<br>` + institutionName + `</p>
  </div>
</body>
</html>
`

const acceptanceBody = `
  <h2>Letter of Acceptance</h2>
  <p>Dear {{.FirstName}} {{.LastName}},</p>
  <p>Congratulations. We are pleased to offer you a seat in the following
  program:</p>
  <dl class="offer">
    <dt>Program</dt><dd>{{.CourseName}}</dd>
    <dt>Duration</dt><dd>{{.Duration}}</dd>
    <dt>Campus</dt><dd>{{.Address}}</dd>
  </dl>
  <p>Your seat is held pending confirmation. Please follow the instructions
  sent separately to complete your registration.</p>
  <div class="signature">
    <p>Sincerely,</p>
    <p class="office">Office of Admissions<br>` + institutionName + `</p>
  </div>
</body>
</html>
`
