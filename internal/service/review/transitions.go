package review

import (
	"ai-clinical-scribe-service/internal/errs"
	"ai-clinical-scribe-service/internal/models"
)

// transitions enumerates the legal review workflow graph. Anything not
// listed here fails with a conflict and leaves the note unchanged.
//
//	generating → draft | review   (automatic, confidence-routed)
//	generating → cancelled        (generation failed or abandoned)
//	draft      → review | cancelled
//	review     → review | approved | cancelled
//	approved   → signed | cancelled
//	signed     → amended
var transitions = map[models.NoteStatus][]models.NoteStatus{
	models.NoteGenerating: {models.NoteDraft, models.NoteReview, models.NoteCancelled},
	models.NoteDraft:      {models.NoteReview, models.NoteCancelled},
	models.NoteReview:     {models.NoteReview, models.NoteApproved, models.NoteCancelled},
	models.NoteApproved:   {models.NoteSigned, models.NoteCancelled},
	models.NoteSigned:     {models.NoteAmended},
	models.NoteAmended:    {},
	models.NoteCancelled:  {},
}

// editableStates are the states in which manual content edits are legal.
var editableStates = map[models.NoteStatus]bool{
	models.NoteDraft:    true,
	models.NoteReview:   true,
	models.NoteApproved: true,
	models.NoteAmended:  true,
}

func canTransition(from, to models.NoteStatus) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

func checkTransition(note *models.ClinicalNote, to models.NoteStatus) error {
	if !canTransition(note.Status, to) {
		return errs.Conflictf("note %s is %s, cannot transition to %s", note.ID, note.Status, to)
	}
	return nil
}
