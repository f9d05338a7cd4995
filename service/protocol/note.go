package protocol

import (
	"html"
	"regexp"
	"strings"
)

// FirstPartyDiagnostic is the fixed sentence appended to the case note when
// the workflow engine flags a first-party signer violation.
const FirstPartyDiagnostic = "(1AN) Pihak pertama hanya boleh dari kepala sekolah/wakil kepala sekolah/guru/pengajar/operator sekolah"

// The view-case document shape is owned by the workflow engine; the engine
// only commits to a description textarea and danger-alert blocks, so both
// are extracted by pattern rather than a full document parse.
var (
	descriptionPattern = regexp.MustCompile(`(?is)<textarea[^>]*name="description"[^>]*>(.*?)</textarea>`)
	alertPattern       = regexp.MustCompile(`(?is)<div[^>]*class="[^"]*alert-danger[^"]*"[^>]*>(.*?)</div>`)
	firstPartyPattern  = regexp.MustCompile(`(?i)pihak\s+pertama`)
)

// ExtractCaseNote pulls the existing free-text note out of the view-case
// document and appends the first-party diagnostic when the validation alert
// is present, regardless of whether a note already existed.
func ExtractCaseNote(doc string) string {
	note := ""
	if m := descriptionPattern.FindStringSubmatch(doc); m != nil {
		note = strings.TrimSpace(html.UnescapeString(m[1]))
	}
	if hasFirstPartyAlert(doc) {
		if note != "" {
			note = note + " " + FirstPartyDiagnostic
		} else {
			note = FirstPartyDiagnostic
		}
	}
	return note
}

func hasFirstPartyAlert(doc string) bool {
	for _, m := range alertPattern.FindAllStringSubmatch(doc, -1) {
		if firstPartyPattern.MatchString(m[1]) {
			return true
		}
	}
	return false
}
