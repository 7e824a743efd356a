package httpserver

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"travel_wizard/internal/app"
	"travel_wizard/internal/domain"
	"travel_wizard/internal/wizard"
)

// actionFunc builds a wizard action from the request.
type actionFunc func(w http.ResponseWriter, r *http.Request) (wizard.Action, error)

func just(a wizard.Action) actionFunc {
	return func(http.ResponseWriter, *http.Request) (wizard.Action, error) { return a, nil }
}

func updateForm(w http.ResponseWriter, r *http.Request) (wizard.Action, error) {
	d, err := decodeDraft(w, r)
	if err != nil {
		return nil, err
	}
	return wizard.UpdateFormData{Partial: d}, nil
}

func goTo(w http.ResponseWriter, r *http.Request) (wizard.Action, error) {
	var body struct {
		Step domain.Step `json:"step"`
	}
	if err := decodeBody(w, r, &body); err != nil {
		return nil, err
	}
	if !body.Step.Valid() {
		return nil, fmt.Errorf("%w: %q", wizard.ErrUnknownStep, body.Step)
	}
	return wizard.GoToStep{Target: body.Step}, nil
}

var actionMessages = map[string]string{
	"update":   "form updated",
	"next":     "moved to the next step",
	"previous": "moved to the previous step",
	"goto":     "moved to the requested step",
	"reset":    "wizard reset",
	"validate": "step validated",
}

func (h *Handlers) createSession(w http.ResponseWriter, r *http.Request) {
	snap := h.Sessions.Create(r.Context())
	writeJSON(w, r, http.StatusCreated, domain.OK(snap, "wizard session started"))
}

func (h *Handlers) getSession(w http.ResponseWriter, r *http.Request) {
	snap, err := h.Sessions.Snapshot(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeFail(w, r, statusFor(err), err, "session not found")
		return
	}
	writeJSON(w, r, http.StatusOK, domain.OK(snap, ""))
}

func (h *Handlers) deleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.Sessions.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeFail(w, r, statusFor(err), err, "session not found")
		return
	}
	writeJSON(w, r, http.StatusOK, domain.OK[any](nil, "wizard session closed"))
}

// apply runs one synchronous wizard action. A blocked move still returns the
// snapshot so the dashboard can render the errors it produced.
func (h *Handlers) apply(build actionFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, err := build(w, r)
		if err != nil {
			writeFail(w, r, statusFor(err), err, "invalid request")
			return
		}
		snap, err := h.Sessions.Apply(r.Context(), chi.URLParam(r, "id"), a)
		if errors.Is(err, app.ErrSessionNotFound) {
			writeFail(w, r, http.StatusNotFound, err, "session not found")
			return
		}
		if err != nil {
			res := domain.Fail[wizard.Snapshot](err, blockedMessage(err))
			res.Data = snap
			writeJSON(w, r, statusFor(err), res)
			return
		}
		writeJSON(w, r, http.StatusOK, domain.OK(snap, actionMessages[a.Name()]))
	}
}

func blockedMessage(err error) string {
	var se *wizard.StepError
	if errors.As(err, &se) {
		return fmt.Sprintf("complete %q before moving on", se.Step.Title())
	}
	return "action not allowed"
}

func (h *Handlers) persist(publish bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		var (
			res domain.Result[wizard.Snapshot]
			err error
		)
		if publish {
			res, err = h.Sessions.Publish(r.Context(), id)
		} else {
			res, err = h.Sessions.Save(r.Context(), id)
		}
		if err != nil {
			writeFail(w, r, statusFor(err), err, "session not found")
			return
		}
		status := http.StatusOK
		if !res.Success {
			status = statusFor(res.Err)
		}
		writeJSON(w, r, status, res)
	}
}
