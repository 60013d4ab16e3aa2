package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appointmenth "github.com/jwalitptl/clinic-api/internal/handler/appointment"
	dashboardh "github.com/jwalitptl/clinic-api/internal/handler/dashboard"
	healthh "github.com/jwalitptl/clinic-api/internal/handler/health"
	patienth "github.com/jwalitptl/clinic-api/internal/handler/patient"
	paymenth "github.com/jwalitptl/clinic-api/internal/handler/payment"
	prescriptionh "github.com/jwalitptl/clinic-api/internal/handler/prescription"
	visith "github.com/jwalitptl/clinic-api/internal/handler/visit"
	"github.com/jwalitptl/clinic-api/internal/middleware"
	"github.com/jwalitptl/clinic-api/internal/repository/memory"
	"github.com/jwalitptl/clinic-api/internal/service/appointment"
	"github.com/jwalitptl/clinic-api/internal/service/dashboard"
	"github.com/jwalitptl/clinic-api/internal/service/event"
	"github.com/jwalitptl/clinic-api/internal/service/patient"
	"github.com/jwalitptl/clinic-api/internal/service/payment"
	"github.com/jwalitptl/clinic-api/internal/service/prescription"
	"github.com/jwalitptl/clinic-api/internal/service/visit"
	"github.com/jwalitptl/clinic-api/internal/validation"
	"github.com/jwalitptl/clinic-api/pkg/auth"
	"github.com/jwalitptl/clinic-api/pkg/metrics"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type api struct {
	t      *testing.T
	engine *gin.Engine
	store  *memory.Store
	token  string
}

func newAPI(t *testing.T, verifier *auth.Verifier) *api {
	t.Helper()
	gw, store := memory.NewGateway()
	v := validation.New()
	events := event.NewService(gw.Outbox)

	reg := prometheus.NewRegistry()
	m := metrics.New("test")
	m.MustRegister(reg)

	drafts := prescription.NewDraftStore(time.Hour, time.Hour, m)

	var authMW *middleware.AuthMiddleware
	if verifier != nil {
		authMW = middleware.NewAuthMiddleware(verifier)
	}

	r := NewRouter(RouterConfig{
		CORSConfig:     middleware.DefaultCORSConfig(),
		RequestTimeout: 5 * time.Second,
		Metrics:        m,
	},
		authMW,
		healthh.NewHandler(nil, reg),
		patienth.NewHandler(patient.NewService(gw, v, events, nil)),
		visith.NewHandler(visit.NewService(gw, v, events, nil)),
		paymenth.NewHandler(payment.NewService(gw, v, events, nil)),
		appointmenth.NewHandler(appointment.NewService(gw, v, events, nil)),
		prescriptionh.NewHandler(prescription.NewService(gw, v, drafts, events, m, nil)),
		dashboardh.NewHandler(dashboard.NewService(gw)),
	)
	r.Setup()
	return &api{t: t, engine: r.Engine(), store: store}
}

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (a *api) do(method, path string, body interface{}) (int, envelope) {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, "/api/v1"+path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}

	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 && w.Header().Get("Content-Type") != "" && w.Code != http.StatusNoContent {
		_ = json.Unmarshal(w.Body.Bytes(), &env)
	}
	return w.Code, env
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out), string(env.Data))
	return out
}

type idOnly struct {
	ID string `json:"id"`
}

type draftView struct {
	ID          string                       `json:"id"`
	State       string                       `json:"state"`
	Medications []validation.MedicationInput `json:"medications"`
}

type errorData struct {
	Fields []struct {
		Field   string `json:"field"`
		Message string `json:"message"`
	} `json:"fields"`
	VisitID string `json:"visit_id"`
}

func (a *api) createPatient(name string) string {
	a.t.Helper()
	code, env := a.do(http.MethodPost, "/patients", map[string]interface{}{"name": name, "age": 30})
	require.Equal(a.t, http.StatusCreated, code, env.Message)
	return decode[idOnly](a.t, env).ID
}

func TestHealth(t *testing.T) {
	a := newAPI(t, nil)

	code, _ := a.do(http.MethodGet, "/health/live", nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = a.do(http.MethodGet, "/health/ready", nil)
	assert.Equal(t, http.StatusOK, code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health/metrics", nil)
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "test_http_requests_total")
}

func TestPatientEndpoints(t *testing.T) {
	a := newAPI(t, nil)

	code, env := a.do(http.MethodPost, "/patients", map[string]string{"name": "John Doe", "email": "not-an-email"})
	require.Equal(t, http.StatusUnprocessableEntity, code)
	fields := decode[errorData](t, env).Fields
	require.Len(t, fields, 1)
	assert.Equal(t, "email", fields[0].Field)
	assert.Zero(t, a.store.Calls("patients.insert"))

	id := a.createPatient("Meera Iyer")
	a.createPatient("Arjun Das")

	code, env = a.do(http.MethodGet, "/patients?search=meera", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, decode[[]idOnly](t, env), 1)

	code, env = a.do(http.MethodGet, "/patients?search=", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, decode[[]idOnly](t, env), 2)

	code, _ = a.do(http.MethodGet, "/patients?sort=name&order=sideways", nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = a.do(http.MethodPut, "/patients/"+id, map[string]string{"name": "Meera K. Iyer", "allergies": "Dust"})
	assert.Equal(t, http.StatusOK, code)

	code, _ = a.do(http.MethodGet, "/patients/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = a.do(http.MethodGet, "/patients/00000000-0000-0000-0000-000000000001", nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, env = a.do(http.MethodPost, "/patients/"+id+"/visits", map[string]string{"doctor": "Dr. Shah", "complaint": "Cough"})
	require.Equal(t, http.StatusCreated, code, env.Message)
	visitID := decode[idOnly](t, env).ID

	code, env = a.do(http.MethodPost, "/payments", map[string]string{"patient_id": id, "visit_id": visitID, "amount": "0"})
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	code, env = a.do(http.MethodPost, "/payments", map[string]string{"patient_id": id, "visit_id": visitID, "amount": "450.00"})
	assert.Equal(t, http.StatusCreated, code, env.Message)

	code, env = a.do(http.MethodPost, "/appointments", map[string]string{"patient_id": id, "appointment_date": "2026-05-01T10:00"})
	require.Equal(t, http.StatusCreated, code, env.Message)
	apptID := decode[idOnly](t, env).ID

	code, _ = a.do(http.MethodPatch, "/appointments/"+apptID+"/status", map[string]string{"status": "late"})
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	code, _ = a.do(http.MethodPatch, "/appointments/"+apptID+"/status", map[string]string{"status": "completed"})
	assert.Equal(t, http.StatusOK, code)

	code, env = a.do(http.MethodGet, "/patients/"+id+"/detail", nil)
	require.Equal(t, http.StatusOK, code)
	detail := decode[struct {
		Visits       []idOnly `json:"visits"`
		Payments     []idOnly `json:"payments"`
		Appointments []idOnly `json:"appointments"`
	}](t, env)
	assert.Len(t, detail.Visits, 1)
	assert.Len(t, detail.Payments, 1)
	assert.Len(t, detail.Appointments, 1)

	code, env = a.do(http.MethodGet, "/dashboard/summary", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 2, decode[struct {
		TotalPatients int `json:"total_patients"`
	}](t, env).TotalPatients)
}

func TestPrescriptionDraftFlow(t *testing.T) {
	a := newAPI(t, nil)
	patientID := a.createPatient("Asha Rao")

	code, env := a.do(http.MethodPost, "/prescriptions/drafts", map[string]string{"patient_id": patientID, "doctor": "Dr. Shah"})
	require.Equal(t, http.StatusCreated, code, env.Message)
	draft := decode[draftView](t, env)
	require.Len(t, draft.Medications, 1)
	base := "/prescriptions/drafts/" + draft.ID

	// A blank entry cannot be submitted and nothing is written.
	before := a.store.TotalCalls()
	code, env = a.do(http.MethodPost, base+"/submit", nil)
	require.Equal(t, http.StatusUnprocessableEntity, code)
	assert.NotEmpty(t, decode[errorData](t, env).Fields)
	assert.Equal(t, before, a.store.TotalCalls())

	code, _ = a.do(http.MethodDelete, base+"/medications/0", nil)
	assert.Equal(t, http.StatusConflict, code)

	code, _ = a.do(http.MethodPatch, base+"/medications/0", map[string]string{
		"name": "Paracetamol 500mg", "dosage": "1 tablet", "frequency": "Twice daily", "duration": "5 days",
	})
	require.Equal(t, http.StatusOK, code)

	code, env = a.do(http.MethodPost, base+"/medications", map[string]string{
		"name": "Amoxicillin 500mg", "dosage": "1 capsule", "frequency": "Three times daily", "duration": "7 days",
	})
	require.Equal(t, http.StatusCreated, code)
	assert.Len(t, decode[draftView](t, env).Medications, 2)

	code, _ = a.do(http.MethodPatch, base+"/medications/9", map[string]string{"name": "x"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = a.do(http.MethodPost, base+"/submit", map[string]string{"notes": "Review in a week"})
	require.Equal(t, http.StatusCreated, code, env.Message)
	res := decode[struct {
		Visit        idOnly `json:"visit"`
		Prescription struct {
			VisitID     string        `json:"visit_id"`
			Medications []interface{} `json:"medications"`
		} `json:"prescription"`
	}](t, env)
	assert.Equal(t, res.Visit.ID, res.Prescription.VisitID)
	assert.Len(t, res.Prescription.Medications, 2)

	code, _ = a.do(http.MethodGet, base, nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, env = a.do(http.MethodGet, "/prescriptions?patient_id="+patientID, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, decode[[]idOnly](t, env), 1)

	code, env = a.do(http.MethodGet, "/prescriptions/formulary", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, decode[struct {
		Medications []string `json:"medications"`
	}](t, env).Medications, 9)
}

func TestPrescriptionOrphanVisitIsReported(t *testing.T) {
	a := newAPI(t, nil)
	patientID := a.createPatient("Asha Rao")

	code, env := a.do(http.MethodPost, "/prescriptions/drafts", map[string]string{"patient_id": patientID, "doctor": "Dr. Shah"})
	require.Equal(t, http.StatusCreated, code)
	base := "/prescriptions/drafts/" + decode[draftView](t, env).ID

	code, _ = a.do(http.MethodPatch, base+"/medications/0", map[string]string{
		"name": "Ibuprofen 400mg", "dosage": "1 tablet", "frequency": "As needed", "duration": "3 days",
	})
	require.Equal(t, http.StatusOK, code)

	a.store.FailNext("prescriptions.insert", assert.AnError)
	code, env = a.do(http.MethodPost, base+"/submit", nil)
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.NotEmpty(t, decode[errorData](t, env).VisitID)

	code, env = a.do(http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "failed", decode[draftView](t, env).State)
}

func TestAuthRequired(t *testing.T) {
	verifier := auth.NewVerifier("s3cret", "clinic-api")
	a := newAPI(t, verifier)

	code, _ := a.do(http.MethodGet, "/patients", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = a.do(http.MethodGet, "/health/live", nil)
	assert.Equal(t, http.StatusOK, code)

	token, err := verifier.Issue("dr.shah", time.Hour)
	require.NoError(t, err)
	a.token = token
	code, _ = a.do(http.MethodGet, "/patients", nil)
	assert.Equal(t, http.StatusOK, code)
}
