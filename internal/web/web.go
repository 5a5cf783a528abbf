// Package web holds the HTML views.
package web

import (
	"embed"
	"html/template"
)

const (
	HomeView      = "home.html"
	ProtectedView = "protected.html"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Templates parses the embedded views. The result can be handed to
// gin.Engine.SetHTMLTemplate.
func Templates() *template.Template {
	return template.Must(template.ParseFS(templatesFS, "templates/*.html"))
}

// Page is the data every view renders with. User is nil for anonymous
// visitors.
type Page struct {
	User *User
}

type User struct {
	SubjectID   string
	Email       string
	DisplayName string
	PictureURL  string
}
