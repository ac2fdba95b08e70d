package report

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"strconv"
	texttemplate "text/template"

	"student-result-system/internal/mail"
	"student-result-system/internal/model"
)

//go:embed templates/*.tmpl
var templates embed.FS

const defaultSignature = "Academic Department"

// Renderer turns a stored student into a result email.
type Renderer struct {
	text      *texttemplate.Template
	html      *htmltemplate.Template
	signature string
}

func NewRenderer(signature string) (*Renderer, error) {
	if signature == "" {
		signature = defaultSignature
	}
	text, err := texttemplate.ParseFS(templates, "templates/result.txt.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse text template: %w", err)
	}
	html, err := htmltemplate.ParseFS(templates, "templates/result.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse html template: %w", err)
	}
	return &Renderer{text: text, html: html, signature: signature}, nil
}

type view struct {
	Test          bool
	Class         string
	Name          string
	HW1           string
	Participation string
	Q1            string
	FinalKhmer    string
	FinalEnglish  string
	Total         string
	Grade         string
	Comments      string
	Signature     string
}

// Render builds the message for one student addressed to to. A test
// message carries a banner and a "TEST - " subject prefix.
func (r *Renderer) Render(rec model.StudentRecord, to string, test bool) (mail.Message, error) {
	if to == "" {
		return mail.Message{}, fmt.Errorf("student %q has no email address", rec.FullName())
	}

	v := view{
		Test:          test,
		Class:         rec.Class,
		Name:          rec.FullName(),
		HW1:           Score(rec.HW1),
		Participation: Score(rec.Participation),
		Q1:            Score(rec.Q1),
		FinalKhmer:    Score(rec.FinalKhmer),
		FinalEnglish:  Score(rec.FinalEnglish),
		Total:         Score(rec.Total),
		Grade:         rec.Grade,
		Comments:      rec.Comments,
		Signature:     r.signature,
	}

	var text, html bytes.Buffer
	if err := r.text.Execute(&text, v); err != nil {
		return mail.Message{}, fmt.Errorf("render text body: %w", err)
	}
	if err := r.html.Execute(&html, v); err != nil {
		return mail.Message{}, fmt.Errorf("render html body: %w", err)
	}

	subject := "Academic Results - " + rec.Class
	if test {
		subject = "TEST - " + subject
	}

	return mail.Message{
		To:      []string{to},
		Subject: subject,
		Text:    text.String(),
		HTML:    html.String(),
	}, nil
}

// Score formats an optional score, "-" when absent.
func Score(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

// SampleStudent is the record used for test emails.
func SampleStudent() model.StudentRecord {
	f := func(v float64) *float64 { return &v }
	return model.StudentRecord{
		FirstName:     "Narith",
		LastName:      "Hen",
		Class:         "Web Development",
		HW1:           f(95),
		Participation: f(90),
		Q1:            f(88),
		FinalKhmer:    f(85),
		FinalEnglish:  f(92),
		Total:         f(450),
		Grade:         "A",
		Comments:      "Excellent work! Keep it up.",
	}
}
