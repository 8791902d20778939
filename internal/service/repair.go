package service

import (
	"strings"

	"github.com/communitycontent/internal/content"
)

const createdMarker = "**Créé le:**"

// RepairReport counts what RepairEntries changed.
type RepairReport struct {
	ContentRecovered int
	ImagesStripped   int
}

// RepairEntries fixes entries damaged by older ingestion runs: testimonials
// (or entries without an image) whose content is empty, a bare rule or
// leaked metadata get their content recovered and become testimonials,
// and inline data URLs are removed from image fields. The input is not
// modified.
func RepairEntries(entries []content.Entry) ([]content.Entry, RepairReport) {
	out := content.CloneEntries(entries)
	var report RepairReport

	for i := range out {
		e := &out[i]
		if (e.Type == content.TypeTestimonial || e.ImageURL == "") && contentNeedsRepair(e.Content) {
			e.Content = recoverContent(*e)
			e.Type = content.TypeTestimonial
			report.ContentRecovered++
		}
		if strings.HasPrefix(e.ImageURL, "data:image/") {
			e.ImageURL = ""
			e.ThumbnailURL = ""
			report.ImagesStripped++
		}
	}
	return out, report
}

func contentNeedsRepair(value string) bool {
	return value == "" || value == "---" || strings.HasPrefix(value, createdMarker)
}

func recoverContent(e content.Entry) string {
	if e.Description != "" && e.Description != "---" {
		return e.Description
	}
	if before, _, found := strings.Cut(e.Content, createdMarker); found {
		if text := strings.TrimSpace(before); text != "" {
			return text
		}
	}

	when := e.CreatedAt
	if when == "" {
		when = e.Timestamp
	}
	if t, ok := content.ParseTime(when); ok {
		return "Témoignage partagé le " + t.Format("02/01/2006")
	}
	return "Témoignage partagé"
}
