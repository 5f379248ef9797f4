package bidsfilter

import "github.com/neurodatascience/cohort-creator/internal/model"

// Augment fills in the entity wildcards a glob pattern needs, for one concrete
// session and an optional requested processing space. The entry is passed and
// returned by value so the shared specification is never mutated; the same
// source entry can be augmented for any number of sessions.
//
// Space and desc only apply to preprocessing derivatives. Confounds files are
// space-agnostic, so an explicitly requested space is suppressed to the
// wildcard for the "confounds" group.
func Augment(e Entry, label string, dt model.DatasetType, session model.Session, space string) Entry {
	if session.None() {
		e.Ses = "*"
	} else {
		e.Ses = string(session)
	}
	if e.Task == "" {
		e.Task = "*"
	}
	if e.Run == "" {
		e.Run = "*"
	}
	if dt.Processed() {
		switch {
		case label == "confounds" && space != "":
			e.Space = "*"
		case space != "":
			e.Space = space
		default:
			e.Space = "*"
		}
		if e.Desc == "" {
			e.Desc = "*"
		}
	}
	return e
}
