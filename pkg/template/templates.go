package template

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
)

// Service renders email bodies from per-event template files layered over a
// shared base layout. Body markup itself is an external concern; this service
// only locates and executes the files.
type Service struct {
	emailPath string
}

func NewService(emailPath string) *Service {
	return &Service{emailPath: emailPath}
}

// Render executes <emailPath>/base.html with <emailPath>/<event>.html for the
// given event. Event names are normalized to lowercase to match filenames.
func (s *Service) Render(event string, data map[string]interface{}) (string, error) {
	tmplName := strings.ToLower(event)
	if tmplName == "" {
		return "", fmt.Errorf("render: empty event name")
	}

	basePath := fmt.Sprintf("%s/base.html", s.emailPath)
	bodyPath := fmt.Sprintf("%s/%s.html", s.emailPath, tmplName)

	tmpl, err := template.ParseFiles(basePath, bodyPath)
	if err != nil {
		return "", fmt.Errorf("parse email templates: %w", err)
	}

	if data == nil {
		data = map[string]interface{}{}
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base.html", data); err != nil {
		return "", fmt.Errorf("execute email template: %w", err)
	}
	return buf.String(), nil
}
