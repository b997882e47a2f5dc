package extractor

import (
	"strings"

	"github.com/dyatlov/go-opengraph/opengraph"
	"github.com/nao1215/pagegrab/internal/model"
)

// ExtractMeta reads OpenGraph properties from content.
// Documents without OpenGraph tags yield an empty PageMeta.
func ExtractMeta(content string) model.PageMeta {
	og := opengraph.NewOpenGraph()
	if err := og.ProcessHTML(strings.NewReader(content)); err != nil {
		return model.PageMeta{}
	}

	meta := model.PageMeta{
		Description: strings.TrimSpace(og.Description),
		SiteName:    strings.TrimSpace(og.SiteName),
		Type:        strings.TrimSpace(og.Type),
		Locale:      strings.TrimSpace(og.Locale),
	}
	if len(og.Images) > 0 && og.Images[0] != nil {
		meta.Image = og.Images[0].URL
	}
	return meta
}
