package catalog

import (
	"time"

	"github.com/shopspring/decimal"
)

// pageEnvelope mirrors the subset of the Notion page payload the catalog uses.
type pageEnvelope struct {
	ID             string              `json:"id"`
	LastEditedTime time.Time           `json:"last_edited_time"`
	Properties     map[string]property `json:"properties"`
}

type property struct {
	Title    []richText `json:"title"`
	RichText []richText `json:"rich_text"`
	Number   *float64   `json:"number"`
	Select   *namedItem `json:"select"`
	Status   *namedItem `json:"status"`
	URL      string     `json:"url"`
	Files    []fileItem `json:"files"`
}

type richText struct {
	PlainText string `json:"plain_text"`
}

type namedItem struct {
	Name string `json:"name"`
}

type fileItem struct {
	Type     string `json:"type"`
	External *struct {
		URL string `json:"url"`
	} `json:"external"`
	File *struct {
		URL string `json:"url"`
	} `json:"file"`
}

func parsePage(page pageEnvelope) Product {
	props := page.Properties
	return Product{
		ID:          page.ID,
		Title:       titleValue(props, "Title"),
		Description: richTextValue(props, "Description"),
		Slug:        richTextValue(props, "Slug"),
		Price:       numberValue(props, "Price"),
		Status:      statusValue(props, "Status"),
		Category:    selectValue(props, "Category"),
		AssetURL:    fileValue(props, "Website Download File"),
		ImageURL:    urlValue(props, "Image URL"),
		LastEdited:  page.LastEditedTime,
	}
}

func titleValue(props map[string]property, name string) string {
	if p, ok := props[name]; ok && len(p.Title) > 0 {
		return p.Title[0].PlainText
	}
	return ""
}

func richTextValue(props map[string]property, name string) string {
	if p, ok := props[name]; ok && len(p.RichText) > 0 {
		return p.RichText[0].PlainText
	}
	return ""
}

func numberValue(props map[string]property, name string) decimal.Decimal {
	if p, ok := props[name]; ok && p.Number != nil {
		return decimal.NewFromFloat(*p.Number)
	}
	return decimal.Zero
}

func selectValue(props map[string]property, name string) string {
	if p, ok := props[name]; ok && p.Select != nil {
		return p.Select.Name
	}
	return ""
}

func statusValue(props map[string]property, name string) string {
	if p, ok := props[name]; ok && p.Status != nil {
		return p.Status.Name
	}
	return ""
}

func urlValue(props map[string]property, name string) string {
	if p, ok := props[name]; ok {
		return p.URL
	}
	return ""
}

// fileValue prefers the file URL regardless of hosting type. Notion serves
// uploaded files through expiring links and external files verbatim.
func fileValue(props map[string]property, name string) string {
	p, ok := props[name]
	if !ok || len(p.Files) == 0 {
		return ""
	}
	first := p.Files[0]
	switch first.Type {
	case "external":
		if first.External != nil {
			return first.External.URL
		}
	case "file":
		if first.File != nil {
			return first.File.URL
		}
	}
	return ""
}
