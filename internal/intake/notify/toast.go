package notify

import "fmt"

type Variant string

const (
	VariantDefault     Variant = "default"
	VariantDestructive Variant = "destructive"
)

const DefaultResponseDays = 7

// Toast is a transient message shown to the applicant.
type Toast struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Variant     Variant `json:"variant"`
}

// Success announces an accepted application and the response promise.
func Success(applicationID string, responseDays int) Toast {
	if responseDays <= 0 {
		responseDays = DefaultResponseDays
	}
	return Toast{
		Title: "Application Submitted Successfully!",
		Description: fmt.Sprintf("Your application ID is: %s. We'll contact you within %d business days.",
			applicationID, responseDays),
		Variant: VariantDefault,
	}
}

// Failure is shown for every submission error. The cause is never included.
func Failure() Toast {
	return Toast{
		Title:       "Submission Error",
		Description: "There was an error submitting your application. Please try again.",
		Variant:     VariantDestructive,
	}
}

// Notifier delivers toasts to the applicant's surface.
type Notifier interface {
	Notify(t Toast)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Toast)

func (f NotifierFunc) Notify(t Toast) { f(t) }

// Recorder keeps every toast it is given, newest last.
type Recorder struct {
	Toasts []Toast
}

func (r *Recorder) Notify(t Toast) { r.Toasts = append(r.Toasts, t) }

// Last returns the most recent toast, or false when none was shown.
func (r *Recorder) Last() (Toast, bool) {
	if len(r.Toasts) == 0 {
		return Toast{}, false
	}
	return r.Toasts[len(r.Toasts)-1], true
}
