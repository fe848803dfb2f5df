// Package web has a web based dashboard to browse cross validation runs
// and monitor training progress.
package web

import (
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
)

// Template and main menu definition
type Templates struct {
	*template.Template
	Menu     []Link
	Heading  string
	Toplevel bool
}

type Link struct {
	Url      string
	Name     string
	Selected bool
}

// Parse the embedded page templates and initialise the main menu.
func NewTemplates() (*Templates, error) {
	t := &Templates{Menu: []Link{}}
	var err error
	t.Template, err = template.New("root").Parse(pageHTML)
	if err != nil {
		return nil, err
	}
	t.AddMenuItem(Link{Url: "/", Name: "runs"})
	t.AddMenuItem(Link{Url: "/live", Name: "live"})
	return t, nil
}

func (t *Templates) Clone() *Templates {
	return &Templates{
		Template: t.Template,
		Menu:     append([]Link{}, t.Menu...),
	}
}

func (t *Templates) Select(url string) *Templates {
	for i, key := range t.Menu {
		t.Menu[i].Selected = key.Url == url || (key.Url != "/" && strings.HasPrefix(url, key.Url))
	}
	return t
}

func (t *Templates) AddMenuItem(l Link) *Templates {
	t.Menu = append(t.Menu, l)
	return t
}

func (t *Templates) Exec(w http.ResponseWriter, name string, data interface{}) {
	if err := t.ExecuteTemplate(w, name, data); err != nil {
		logError(w, err)
	}
}

func logError(w http.ResponseWriter, err error) {
	log.Error().Err(err).Msg("web")
	http.Error(w, fmt.Sprint(err), http.StatusInternalServerError)
}
