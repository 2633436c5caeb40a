package deck

import (
	"errors"
	"strings"

	"github.com/samber/lo"

	"kartubicara/internal/types"
)

const (
	// DefaultDraftCategory preselects couples in the creation form.
	DefaultDraftCategory = 2

	ErrorTitleRequired    = "Pertanyaan wajib diisi"
	ErrorCategoryRequired = "Kategori wajib dipilih"
)

// ErrSubmitting is returned while an earlier submission is still in flight.
var ErrSubmitting = errors.New("question submission already in progress")

// NewDraft returns an empty creation form.
func NewDraft() types.FormDraft {
	return types.FormDraft{CategoryID: DefaultDraftCategory}
}

// ValidateDraft checks a creation form and returns per-field messages keyed
// by "title" and "category". A nil map means the draft can be submitted.
func ValidateDraft(d types.FormDraft) map[string]string {
	var errs map[string]string
	add := func(field, msg string) {
		if errs == nil {
			errs = make(map[string]string, 2)
		}
		errs[field] = msg
	}
	if strings.TrimSpace(d.Title) == "" {
		add("title", ErrorTitleRequired)
	}
	if !lo.Contains(lo.Values(types.CategoryIDs), d.CategoryID) {
		add("category", ErrorCategoryRequired)
	}
	return errs
}
