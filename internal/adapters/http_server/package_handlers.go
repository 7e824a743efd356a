package httpserver

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"travel_wizard/internal/domain"
	"travel_wizard/internal/rules"
)

type packageBody struct {
	Status domain.PackageStatus `json:"status"`
	Fields domain.Draft         `json:"fields"`
}

func (b packageBody) check(partial bool) error {
	if b.Status != "" && !b.Status.Valid() {
		return fmt.Errorf("%w: status %q", domain.ErrInvalidQuery, b.Status)
	}
	if !partial && len(b.Fields) == 0 {
		return fmt.Errorf("%w: fields are required", domain.ErrInvalidQuery)
	}
	for f := range b.Fields {
		if !f.Known() {
			return fmt.Errorf("%w: unknown field %q", domain.ErrInvalidQuery, f)
		}
	}
	return nil
}

// parseListQuery reads ?type=&status=&q=&destination=&sort=-createdAt&page=&limit=.
func parseListQuery(q url.Values) (domain.ListFilter, domain.SortSpec, domain.PageRequest, error) {
	var (
		f domain.ListFilter
		s = domain.DefaultSort
		p domain.PageRequest
	)
	if v := q.Get("type"); v != "" {
		t, err := domain.ParsePackageType(v)
		if err != nil {
			return f, s, p, err
		}
		f.Type = &t
	}
	if v := q.Get("status"); v != "" {
		st := domain.PackageStatus(strings.ToLower(v))
		if !st.Valid() {
			return f, s, p, fmt.Errorf("%w: status %q", domain.ErrInvalidQuery, v)
		}
		f.Status = &st
	}
	f.Search = q.Get("q")
	f.Destination = q.Get("destination")

	if v := q.Get("sort"); v != "" {
		s = domain.SortSpec{Field: domain.SortField(strings.TrimPrefix(v, "-")), Desc: strings.HasPrefix(v, "-")}
		if !s.Field.Valid() {
			return f, s, p, fmt.Errorf("%w: sort %q", domain.ErrInvalidQuery, v)
		}
	}
	for name, dst := range map[string]*int{"page": &p.Page, "limit": &p.Limit} {
		v := q.Get(name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || (name == "limit" && n > domain.MaxPageLimit) {
			return f, s, p, fmt.Errorf("%w: %s must be a positive integer", domain.ErrInvalidQuery, name)
		}
		*dst = n
	}
	return f, s, p.Normalize(), nil
}

func (h *Handlers) listPackages(w http.ResponseWriter, r *http.Request) {
	f, s, p, err := parseListQuery(r.URL.Query())
	if err != nil {
		writeFail(w, r, http.StatusBadRequest, err, "invalid query")
		return
	}
	page, err := h.Packages.List(r.Context(), f, s, p)
	if err != nil {
		writeFail(w, r, statusFor(err), err, "could not list packages")
		return
	}
	writeJSON(w, r, http.StatusOK, domain.OK(page, ""))
}

// createPackage stores a package directly. Publishing requires the fields to
// pass every rule for their package type.
func (h *Handlers) createPackage(w http.ResponseWriter, r *http.Request) {
	var body packageBody
	if err := decodeBody(w, r, &body); err != nil {
		writeFail(w, r, http.StatusBadRequest, err, "invalid request")
		return
	}
	if err := body.check(false); err != nil {
		writeFail(w, r, http.StatusBadRequest, err, "invalid request")
		return
	}
	if body.Status == domain.StatusPublished && !readyToPublish(w, r, body.Fields) {
		return
	}
	rec, err := h.Packages.Create(r.Context(), body.Fields, body.Status)
	if err != nil {
		writeFail(w, r, statusFor(err), err, "could not create package")
		return
	}
	writeJSON(w, r, http.StatusCreated, domain.OK(rec, "package created"))
}

// readyToPublish answers 422 with the error map when d fails any rule for its
// package type.
func readyToPublish(w http.ResponseWriter, r *http.Request, d domain.Draft) bool {
	t, _ := d.Type()
	errs := rules.Evaluate(d, t)
	if errs.Empty() {
		return true
	}
	res := domain.Fail[rules.ValidationErrors](nil, "package is not ready to publish")
	res.Data = errs
	res.Error = "validation failed"
	writeJSON(w, r, http.StatusUnprocessableEntity, res)
	return false
}

func (h *Handlers) getPackage(w http.ResponseWriter, r *http.Request) {
	rec, err := h.Packages.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeFail(w, r, statusFor(err), err, "package not found")
		return
	}
	writeJSON(w, r, http.StatusOK, domain.OK(rec, ""))
}

func (h *Handlers) updatePackage(w http.ResponseWriter, r *http.Request) {
	var body packageBody
	if err := decodeBody(w, r, &body); err != nil {
		writeFail(w, r, http.StatusBadRequest, err, "invalid request")
		return
	}
	if err := body.check(true); err != nil {
		writeFail(w, r, http.StatusBadRequest, err, "invalid request")
		return
	}
	id := chi.URLParam(r, "id")
	if body.Status == domain.StatusPublished {
		cur, err := h.Packages.GetByID(r.Context(), id)
		if err != nil {
			writeFail(w, r, statusFor(err), err, "could not update package")
			return
		}
		if !readyToPublish(w, r, cur.Fields.Merge(body.Fields)) {
			return
		}
	}
	rec, err := h.Packages.Update(r.Context(), id, body.Fields, body.Status)
	if err != nil {
		writeFail(w, r, statusFor(err), err, "could not update package")
		return
	}
	writeJSON(w, r, http.StatusOK, domain.OK(rec, "package updated"))
}

func (h *Handlers) deletePackage(w http.ResponseWriter, r *http.Request) {
	ok, err := h.Packages.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeFail(w, r, statusFor(err), err, "could not delete package")
		return
	}
	if !ok {
		writeFail(w, r, http.StatusNotFound, domain.ErrNotFound, "package not found")
		return
	}
	writeJSON(w, r, http.StatusOK, domain.OK(true, "package deleted"))
}

// editPackage opens a wizard session pre-filled with a stored package.
func (h *Handlers) editPackage(w http.ResponseWriter, r *http.Request) {
	snap, err := h.Sessions.Edit(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeFail(w, r, statusFor(err), err, "package not found")
		return
	}
	writeJSON(w, r, http.StatusCreated, domain.OK(snap, "wizard session started"))
}
