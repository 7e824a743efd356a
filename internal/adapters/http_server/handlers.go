// internal/adapters/http_server/handlers.go
package httpserver

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"travel_wizard/internal/app"
	"travel_wizard/internal/domain"
	"travel_wizard/internal/rules"
	"travel_wizard/internal/wizard"
)

const maxBodyBytes = 1 << 20

type Handlers struct {
	Sessions *app.SessionService
	Packages *app.PackageService
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })

	s.mux.Route("/v1", func(r chi.Router) {
		r.Get("/package-types", h.listPackageTypes)
		r.Get("/package-types/{type}/fields", h.packageTypeFields)

		r.Route("/wizard/sessions", func(r chi.Router) {
			r.Post("/", h.createSession)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.getSession)
				r.Delete("/", h.deleteSession)
				r.Patch("/form", h.apply(updateForm))
				r.Post("/next", h.apply(just(wizard.Next{})))
				r.Post("/previous", h.apply(just(wizard.Previous{})))
				r.Post("/goto", h.apply(goTo))
				r.Post("/reset", h.apply(just(wizard.Reset{})))
				r.Post("/validate", h.apply(just(wizard.Validate{})))
				r.Post("/save", h.persist(false))
				r.Post("/publish", h.persist(true))
			})
		})

		r.Route("/packages", func(r chi.Router) {
			r.Get("/", h.listPackages)
			r.Post("/", h.createPackage)
			r.Get("/{id}", h.getPackage)
			r.Patch("/{id}", h.updatePackage)
			r.Delete("/{id}", h.deletePackage)
			r.Post("/{id}/edit", h.editPackage)
		})
	})
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

// writeJSON writes v as the response. Successful GETs carry an ETag and honor
// If-None-Match.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	etag, body := calcETagAndBody(v)
	if body == nil {
		writeFail(w, r, http.StatusInternalServerError, errors.New("encode response"), "internal error")
		return
	}
	if r.Method == http.MethodGet && status == http.StatusOK && etag != "" {
		if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
			w.Header().Set("ETag", etag)
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", etag)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("failed to write response body")
	}
}

func writeFail(w http.ResponseWriter, r *http.Request, status int, err error, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(domain.Fail[any](err, msg)); err != nil {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("write JSON error response failed")
	}
}

// statusFor maps domain and wizard errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, app.ErrSessionNotFound), errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, wizard.ErrValidationFailed):
		return http.StatusUnprocessableEntity
	case errors.Is(err, wizard.ErrAtFirstStep), errors.Is(err, wizard.ErrAtReview),
		errors.Is(err, wizard.ErrNotAtReview), errors.Is(err, wizard.ErrSaveInProgress),
		errors.Is(err, wizard.ErrSessionReset):
		return http.StatusConflict
	case errors.Is(err, wizard.ErrUnknownStep), errors.Is(err, domain.ErrInvalidQuery),
		errors.Is(err, domain.ErrUnknownPackageType), errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

var errBadRequest = errors.New("bad request")

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty body", errBadRequest)
		}
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

// decodeDraft reads a JSON object of field values and rejects unknown fields.
func decodeDraft(w http.ResponseWriter, r *http.Request) (domain.Draft, error) {
	var d domain.Draft
	if err := decodeBody(w, r, &d); err != nil {
		return nil, err
	}
	for f := range d {
		if !f.Known() {
			return nil, fmt.Errorf("%w: unknown field %q", errBadRequest, f)
		}
	}
	return d, nil
}

type packageTypeView struct {
	Type        domain.PackageType `json:"type"`
	Title       string             `json:"title"`
	Description string             `json:"description"`
}

func (h *Handlers) listPackageTypes(w http.ResponseWriter, r *http.Request) {
	out := make([]packageTypeView, 0, domain.PackageTypeCount)
	for _, t := range domain.AllPackageTypes() {
		out = append(out, packageTypeView{Type: t, Title: t.Title(), Description: t.Description()})
	}
	writeJSON(w, r, http.StatusOK, domain.OK(out, ""))
}

type fieldView struct {
	Name     domain.FieldName `json:"name"`
	Label    string           `json:"label"`
	Required bool             `json:"required"`
}

type stepFieldsView struct {
	Tag    domain.Step `json:"tag"`
	Title  string      `json:"title"`
	Fields []fieldView `json:"fields"`
}

type fieldsView struct {
	packageTypeView
	Visibility map[domain.FieldName]bool `json:"visibility"`
	Required   []domain.FieldName        `json:"required"`
	Steps      []stepFieldsView          `json:"steps"`
}

func (h *Handlers) packageTypeFields(w http.ResponseWriter, r *http.Request) {
	t, err := domain.ParsePackageType(chi.URLParam(r, "type"))
	if err != nil {
		writeFail(w, r, http.StatusNotFound, err, "unknown package type")
		return
	}
	out := fieldsView{
		packageTypeView: packageTypeView{Type: t, Title: t.Title(), Description: t.Description()},
		Visibility:      rules.VisibilityFor(t),
		Required:        rules.RequiredFor(t),
	}
	for _, step := range domain.StepSequence(true) {
		sv := stepFieldsView{Tag: step, Title: step.Title(), Fields: []fieldView{}}
		for _, f := range rules.VisibleFieldsForStep(t, step) {
			sv.Fields = append(sv.Fields, fieldView{Name: f, Label: f.Label(), Required: rules.IsRequired(t, f)})
		}
		out.Steps = append(out.Steps, sv)
	}
	writeJSON(w, r, http.StatusOK, domain.OK(out, ""))
}
