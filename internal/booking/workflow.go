package booking

import (
	"context"
	"sync"
	"time"

	"github.com/mindwell-health/mindwell-api/internal/availability"
	"github.com/mindwell-health/mindwell-api/internal/models"
	appErrors "github.com/mindwell-health/mindwell-api/pkg/errors"
)

// State names the workflow's position in the selection cascade.
type State string

const (
	StateIdle            State = "idle"
	StateTherapistChosen State = "therapist_chosen"
	StateDayChosen       State = "day_chosen"
	StateTimeChosen      State = "time_chosen"
	StateSubmitting      State = "submitting"
)

// Selection is the transient booking choice being assembled. Day and Time
// stay unset until chosen; changing an upstream field discards everything
// downstream of it.
type Selection struct {
	TherapistID string                  `json:"therapist_id,omitempty"`
	Day         availability.Weekday    `json:"day,omitempty"`
	Time        *availability.TimeOfDay `json:"time,omitempty"`
	SessionType models.SessionType      `json:"type"`
}

// ScheduleSource resolves a therapist's weekly availability. The workflow
// only reads schedules, it never mutates them.
type ScheduleSource interface {
	ScheduleFor(ctx context.Context, therapistID string) (availability.Schedule, error)
}

// AppointmentCreator is the external appointment store the workflow submits to.
type AppointmentCreator interface {
	CreateAppointment(ctx context.Context, userID, therapistID string, date time.Time, sessionType models.SessionType) (*models.Appointment, error)
}

// Workflow drives one user's booking session through
// Idle -> TherapistChosen -> DayChosen -> TimeChosen -> Submitting. Offered
// days and times are re-derived on every upstream change, never cached
// across selections. A failed submission returns to TimeChosen with the
// selection intact so the user can retry; success resets to Idle.
type Workflow struct {
	mu sync.Mutex

	userID    string
	schedules ScheduleSource
	store     AppointmentCreator
	now       func() time.Time

	state        State
	selection    Selection
	schedule     availability.Schedule
	offeredDays  []availability.Weekday
	offeredTimes []availability.TimeOfDay
	inFlight     bool
}

// NewWorkflow builds an idle workflow for one user.
func NewWorkflow(userID string, schedules ScheduleSource, store AppointmentCreator, now func() time.Time) *Workflow {
	if now == nil {
		now = time.Now
	}
	return &Workflow{
		userID:    userID,
		schedules: schedules,
		store:     store,
		now:       now,
		state:     StateIdle,
		selection: Selection{SessionType: models.SessionVideoCall},
	}
}

// Snapshot is an immutable view of the workflow for API responses.
type Snapshot struct {
	State        State                    `json:"state"`
	Selection    Selection                `json:"selection"`
	OfferedDays  []availability.Weekday   `json:"offered_days"`
	OfferedTimes []availability.TimeOfDay `json:"offered_times"`
}

// Snapshot returns the current state, selection and offer lists.
func (w *Workflow) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return Snapshot{
		State:        w.state,
		Selection:    w.selection,
		OfferedDays:  append([]availability.Weekday(nil), w.offeredDays...),
		OfferedTimes: append([]availability.TimeOfDay(nil), w.offeredTimes...),
	}
}

// ChooseTherapist loads the therapist's schedule, derives the offerable day
// list and discards any previously chosen day and time.
func (w *Workflow) ChooseTherapist(ctx context.Context, therapistID string) error {
	schedule, err := w.schedules.ScheduleFor(ctx, therapistID)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.inFlight {
		return appErrors.ErrSubmitInFlight
	}
	w.selection.TherapistID = therapistID
	w.selection.Day = ""
	w.selection.Time = nil
	w.schedule = schedule
	w.offeredDays = schedule.Days()
	w.offeredTimes = nil
	w.state = StateTherapistChosen
	return nil
}

// ChooseDay picks a day from the offered list and derives the offerable time
// list, discarding any previously chosen time.
func (w *Workflow) ChooseDay(day availability.Weekday) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.inFlight {
		return appErrors.ErrSubmitInFlight
	}
	if w.state == StateIdle {
		return appErrors.Clone(appErrors.ErrValidation, "choose a therapist first")
	}
	if !w.schedule.HasDay(day) {
		return appErrors.ErrDayNotOffered
	}
	w.selection.Day = day
	w.selection.Time = nil
	w.offeredTimes = w.schedule.SlotsForDay(day)
	w.state = StateDayChosen
	return nil
}

// ChooseTime picks a slot from the offered time list.
func (w *Workflow) ChooseTime(t availability.TimeOfDay) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.inFlight {
		return appErrors.ErrSubmitInFlight
	}
	if w.state != StateDayChosen && w.state != StateTimeChosen {
		return appErrors.Clone(appErrors.ErrValidation, "choose a day first")
	}
	if !w.timeOffered(t) {
		return appErrors.ErrTimeNotOffered
	}
	w.selection.Time = &t
	w.state = StateTimeChosen
	return nil
}

// SetSessionType records the session modality; it does not cascade.
func (w *Workflow) SetSessionType(t models.SessionType) error {
	if !t.Valid() {
		return appErrors.Clone(appErrors.ErrValidation, "unsupported session type")
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.selection.SessionType = t
	return nil
}

// Submit validates the selection locally, resolves the next occurrence of
// the chosen weekday/time and creates the appointment. No store call is
// issued when the selection is incomplete. At most one submission can be in
// flight at a time.
func (w *Workflow) Submit(ctx context.Context) (*models.Appointment, error) {
	w.mu.Lock()
	if w.inFlight {
		w.mu.Unlock()
		return nil, appErrors.ErrSubmitInFlight
	}
	if w.selection.TherapistID == "" || w.selection.Day == "" || w.selection.Time == nil {
		w.mu.Unlock()
		return nil, appErrors.ErrSelectionIncomplete
	}
	w.inFlight = true
	w.state = StateSubmitting
	sel := w.selection
	w.mu.Unlock()

	date := availability.NextOccurrence(sel.Day, *sel.Time, w.now())
	appt, err := w.store.CreateAppointment(ctx, w.userID, sel.TherapistID, date, sel.SessionType)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.inFlight = false
	if err != nil {
		// Selection is preserved so the user can retry or adjust.
		w.state = StateTimeChosen
		return nil, err
	}

	w.state = StateIdle
	w.selection = Selection{SessionType: models.SessionVideoCall}
	w.schedule = nil
	w.offeredDays = nil
	w.offeredTimes = nil
	return appt, nil
}

// Reset abandons the session and returns to Idle.
func (w *Workflow) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.inFlight {
		return
	}
	w.state = StateIdle
	w.selection = Selection{SessionType: models.SessionVideoCall}
	w.schedule = nil
	w.offeredDays = nil
	w.offeredTimes = nil
}

func (w *Workflow) timeOffered(t availability.TimeOfDay) bool {
	for _, offered := range w.offeredTimes {
		if offered == t {
			return true
		}
	}
	return false
}
