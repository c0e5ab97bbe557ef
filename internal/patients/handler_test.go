package patients

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helix-hms/helix-hms/internal/rbac"
	"github.com/helix-hms/helix-hms/internal/shared"
	_ "github.com/helix-hms/helix-hms/testing"
)

type mockRepo struct {
	nextID   int64
	patients map[int64]Patient
}

func newMockRepo() *mockRepo {
	return &mockRepo{nextID: 1, patients: map[int64]Patient{}}
}

func (m *mockRepo) List(ctx context.Context, filter ListFilter, params shared.ListParams) ([]Patient, error) {
	var out []Patient
	for _, p := range m.patients {
		if filter.Search != "" {
			s := strings.ToLower(filter.Search)
			if !strings.Contains(strings.ToLower(p.FirstName), s) &&
				!strings.Contains(strings.ToLower(p.LastName), s) &&
				!strings.Contains(p.Phone, s) &&
				!strings.Contains(strings.ToLower(p.Email), s) {
				continue
			}
		}
		out = append(out, p)
	}
	return out, nil
}

func (m *mockRepo) Get(ctx context.Context, id int64) (Patient, error) {
	p, ok := m.patients[id]
	if !ok {
		return Patient{}, shared.ErrNotFound
	}
	return p, nil
}

func (m *mockRepo) Create(ctx context.Context, p Patient) (Patient, error) {
	for _, existing := range m.patients {
		if existing.InsuranceNumber != "" && existing.InsuranceNumber == p.InsuranceNumber {
			return Patient{}, shared.ErrDuplicate
		}
	}
	p.ID = m.nextID
	m.nextID++
	m.patients[p.ID] = p
	return p, nil
}

func (m *mockRepo) Update(ctx context.Context, p Patient) (Patient, error) {
	if _, ok := m.patients[p.ID]; !ok {
		return Patient{}, shared.ErrNotFound
	}
	m.patients[p.ID] = p
	return p, nil
}

func (m *mockRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := m.patients[id]; !ok {
		return shared.ErrNotFound
	}
	delete(m.patients, id)
	return nil
}

type staticPerms struct {
	perms map[int64][]string
}

func (s staticPerms) UserPermissionNames(ctx context.Context, userID int64) ([]string, error) {
	return s.perms[userID], nil
}

func newTestRouter(repo *mockRepo, perms map[int64][]string) chi.Router {
	mw := rbac.Middleware{Evaluator: rbac.NewEvaluator(staticPerms{perms: perms})}
	handler := NewHandler(nil, NewService(repo), mw)
	r := chi.NewRouter()
	r.Route("/patients", handler.MountRoutes)
	return r
}

func asPrincipal(req *http.Request, p *rbac.Principal) *http.Request {
	return req.WithContext(rbac.ContextWithPrincipal(req.Context(), p))
}

func TestListRequiresAuthentication(t *testing.T) {
	router := newTestRouter(newMockRepo(), nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/patients/", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestListRequiresPermission(t *testing.T) {
	router := newTestRouter(newMockRepo(), map[int64][]string{7: {shared.PermAppointmentsRead}})

	req := asPrincipal(httptest.NewRequest(http.MethodGet, "/patients/", nil),
		&rbac.Principal{ID: 7, Active: true})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	var problem struct {
		Reason string `json:"reason"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	assert.Equal(t, shared.ReasonMissingPermission, problem.Reason)
}

func TestCreateAndGetPatient(t *testing.T) {
	repo := newMockRepo()
	router := newTestRouter(repo, map[int64][]string{
		7: {shared.PermPatientsCreate, shared.PermPatientsRead},
	})
	principal := &rbac.Principal{ID: 7, Active: true}

	body := `{"first_name":"Olena","last_name":"Koval","birth_date":"1985-04-12","phone":"+380501112233","insurance_number":"INS-100"}`
	req := asPrincipal(httptest.NewRequest(http.MethodPost, "/patients/", strings.NewReader(body)), principal)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created patientResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "Olena", created.FirstName)
	assert.Equal(t, "1985-04-12", created.BirthDate)
	assert.True(t, created.IsActive)

	req = asPrincipal(httptest.NewRequest(http.MethodGet, "/patients/1", nil), principal)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateDuplicateInsuranceNumber(t *testing.T) {
	repo := newMockRepo()
	repo.patients[1] = Patient{ID: 1, InsuranceNumber: "INS-100"}
	router := newTestRouter(repo, map[int64][]string{7: {shared.PermPatientsCreate}})

	body := `{"first_name":"Olena","last_name":"Koval","birth_date":"1985-04-12","phone":"+380501112233","insurance_number":"INS-100"}`
	req := asPrincipal(httptest.NewRequest(http.MethodPost, "/patients/", strings.NewReader(body)),
		&rbac.Principal{ID: 7, Active: true})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCreateRejectsInvalidPayload(t *testing.T) {
	router := newTestRouter(newMockRepo(), map[int64][]string{7: {shared.PermPatientsCreate}})

	// Missing required phone and malformed birth date.
	body := `{"first_name":"Olena","last_name":"Koval","birth_date":"12.04.1985"}`
	req := asPrincipal(httptest.NewRequest(http.MethodPost, "/patients/", strings.NewReader(body)),
		&rbac.Principal{ID: 7, Active: true})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListWithSearch(t *testing.T) {
	repo := newMockRepo()
	repo.patients[1] = Patient{ID: 1, FirstName: "Olena", LastName: "Koval", BirthDate: time.Now()}
	repo.patients[2] = Patient{ID: 2, FirstName: "Ivan", LastName: "Shevchenko", BirthDate: time.Now()}
	router := newTestRouter(repo, map[int64][]string{7: {shared.PermPatientsRead}})

	req := asPrincipal(httptest.NewRequest(http.MethodGet, "/patients/?search=koval", nil),
		&rbac.Principal{ID: 7, Active: true})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var out []patientResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out, 1)
	assert.Equal(t, "Koval", out[0].LastName)
}

func TestDeletePatient(t *testing.T) {
	repo := newMockRepo()
	repo.patients[1] = Patient{ID: 1, FirstName: "Olena", BirthDate: time.Now()}
	router := newTestRouter(repo, map[int64][]string{7: {shared.PermPatientsDelete}})

	req := asPrincipal(httptest.NewRequest(http.MethodDelete, "/patients/1", nil),
		&rbac.Principal{ID: 7, Active: true})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, repo.patients)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, asPrincipal(httptest.NewRequest(http.MethodDelete, "/patients/1", nil),
		&rbac.Principal{ID: 7, Active: true}))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
