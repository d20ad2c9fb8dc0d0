package form

// conditional maps a dependent field to the predicate that reveals it.
var conditional = map[Field]func(d *Draft) bool{
	FieldInPersonExplanation: attendsRemotely,
	FieldAccommodationPlan:   attendsRemotely,
	FieldCodingProjects: func(d *Draft) bool {
		return d.ProgrammingExperience != "" && d.ProgrammingExperience != "beginner"
	},
	FieldOtherSource: func(d *Draft) bool {
		return d.HowDidYouHear == "other"
	},
	FieldWhyChainspace: func(d *Draft) bool {
		return d.AppliedToOthers == "yes"
	},
}

func attendsRemotely(d *Draft) bool {
	return d.CanAttendInPerson == "no"
}

// VisibleFields derives which fields of section n are displayed for the
// current values. It never changes the draft; hidden fields keep their
// values and are never required.
func VisibleFields(n int, d *Draft) []Field {
	layout := SectionLayout(n)
	out := make([]Field, 0, len(layout))
	for _, f := range layout {
		if IsVisible(f, d) {
			out = append(out, f)
		}
	}
	return out
}

func IsVisible(f Field, d *Draft) bool {
	show, ok := conditional[f]
	if !ok {
		return true
	}
	return show(d)
}

// IsConditional reports whether a field is only shown for some answers.
func IsConditional(f Field) bool {
	_, ok := conditional[f]
	return ok
}
