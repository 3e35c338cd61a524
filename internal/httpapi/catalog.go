package httpapi

import (
	"net/http"

	"github.com/John-Robertt/clashforge/internal/groups"
	"github.com/John-Robertt/clashforge/internal/i18n"
	"github.com/John-Robertt/clashforge/internal/normalize"
	"github.com/John-Robertt/clashforge/internal/rules"
)

type catalogResponse struct {
	Categories []rules.Category    `json:"categories"`
	Presets    map[string][]string `json:"presets"`
	Bindings   map[string]string   `json:"bindings"`
	Regions    []groups.Region     `json:"regions"`
	Kinds      []string            `json:"kinds"`
	Languages  []string            `json:"languages"`
}

func handleCatalog(w http.ResponseWriter, r *http.Request) {
	c := rules.DefaultCatalog()
	w.Header().Set("Cache-Control", "no-store")
	WriteJSON(w, http.StatusOK, catalogResponse{
		Categories: c.Categories,
		Presets:    c.Presets,
		Bindings:   c.Bindings,
		Regions:    groups.DefaultRegions(),
		Kinds:      normalize.Kinds(),
		Languages:  i18n.Languages(),
	})
}
