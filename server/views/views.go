package views

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"strings"
)

//go:embed templates/*.html
var content embed.FS

// Pages rendered by the server, one template file each.
var Pages = []string{
	"index",
	"contact_form",
	"person_deleted",
	"phone_list",
	"phone_form",
	"login",
	"register",
	"error",
}

// ResponsePayload is the JSON envelope for clients that ask for
// application/json instead of HTML.
type ResponsePayload struct {
	Errors  []string    `json:"errors"`
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
}

type Renderer struct {
	templates map[string]*template.Template
}

func NewRenderer() (*Renderer, error) {
	renderer := &Renderer{templates: make(map[string]*template.Template)}

	for _, page := range Pages {
		tmpl, err := template.New("layout.html").ParseFS(content, "templates/layout.html", "templates/"+page+".html")
		if err != nil {
			return nil, fmt.Errorf("parse %v template: %v", page, err)
		}
		renderer.templates[page] = tmpl
	}

	return renderer, nil
}

// WantsJSON reports whether the client prefers a JSON response.
func WantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

// Render writes data either through the page's HTML template or as the data
// of a ResponsePayload, depending on the request's Accept header.
func (renderer *Renderer) Render(rw http.ResponseWriter, r *http.Request, page string, data interface{}, status int) error {
	if WantsJSON(r) {
		return WriteJSON(rw, ResponsePayload{Success: status < http.StatusBadRequest, Data: data}, status)
	}

	tmpl, ok := renderer.templates[page]
	if !ok {
		return fmt.Errorf("unknown page %q", page)
	}

	// Render into a buffer so a template error can still become a 500.
	buf := &bytes.Buffer{}
	if err := tmpl.Execute(buf, data); err != nil {
		return fmt.Errorf("render %v: %v", page, err)
	}

	rw.Header().Set("Content-Type", "text/html; charset=utf-8")
	rw.WriteHeader(status)
	_, err := buf.WriteTo(rw)
	return err
}

func WriteJSON(rw http.ResponseWriter, payLoad ResponsePayload, status int) error {
	if payLoad.Errors == nil {
		payLoad.Errors = []string{}
	}

	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	return json.NewEncoder(rw).Encode(payLoad)
}
