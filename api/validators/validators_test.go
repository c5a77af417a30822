package validators

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/kgcashflow/cashflow-backend/pkg/errors"
)

type sampleBody struct {
	IncomeEventID string `json:"income_event_id" validate:"required,uuid"`
	Amount        string `json:"amount" validate:"required"`
	Date          string `json:"date" validate:"omitempty,datetime=2006-01-02"`
}

func TestDecodeJSONBodyValid(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"income_event_id":"3f0d6b2e-7f5a-4b7c-9b59-2f1a4a8c1d10","amount":"12.50"}`))
	var body sampleBody
	require.NoError(t, DecodeJSONBody(req, &body))
	assert.Equal(t, "12.50", body.Amount)
}

func TestDecodeJSONBodyReportsFieldErrors(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"income_event_id":"nope","date":"03/01/2026"}`))
	var body sampleBody
	err := DecodeJSONBody(req, &body)
	require.Error(t, err)

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	details, ok := typed.Details().(map[string]string)
	require.True(t, ok)
	assert.Equal(t, "must be a valid uuid", details["income_event_id"])
	assert.Equal(t, "is required", details["amount"])
	assert.Contains(t, details["date"], "2006-01-02")
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"amount":"1","extra":true}`))
	var body sampleBody
	err := DecodeJSONBody(req, &body)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
}

func TestDecodeJSONBodyEmpty(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
	var body sampleBody
	err := DecodeJSONBody(req, &body)
	require.Error(t, err)
	assert.Equal(t, "request body required", pkgerrors.As(err).Message())
}

func TestParseQueryUUID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?bill_event_id=3f0d6b2e-7f5a-4b7c-9b59-2f1a4a8c1d10", nil)
	id, err := ParseQueryUUID(req, "bill_event_id")
	require.NoError(t, err)
	require.NotNil(t, id)

	missing, err := ParseQueryUUID(req, "income_event_id")
	require.NoError(t, err)
	assert.Nil(t, missing)

	bad := httptest.NewRequest(http.MethodGet, "/?bill_event_id=xyz", nil)
	_, err = ParseQueryUUID(bad, "bill_event_id")
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
}

func TestParseQueryDate(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?from=2026-03-01&to=bad", nil)
	from, err := ParseQueryDate(req, "from")
	require.NoError(t, err)
	require.NotNil(t, from)
	assert.Equal(t, "2026-03-01", from.Format(DateLayout))

	_, err = ParseQueryDate(req, "to")
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
}

func TestParseQueryBool(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?available_only=true&x=maybe", nil)
	v, err := ParseQueryBool(req, "available_only", false)
	require.NoError(t, err)
	assert.True(t, v)

	v, err = ParseQueryBool(req, "absent", true)
	require.NoError(t, err)
	assert.True(t, v)

	_, err = ParseQueryBool(req, "x", false)
	assert.Error(t, err)
}

func TestParseUUIDParam(t *testing.T) {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("billId", "3f0d6b2e-7f5a-4b7c-9b59-2f1a4a8c1d10")
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	id, err := ParseUUIDParam(req, "billId")
	require.NoError(t, err)
	assert.Equal(t, "3f0d6b2e-7f5a-4b7c-9b59-2f1a4a8c1d10", id.String())

	_, err = ParseUUIDParam(req, "incomeId")
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "abc", SanitizeString("  abcdef ", 3))
	assert.Equal(t, "x", SanitizeString(" x ", 0))
	assert.Equal(t, "héé", SanitizeString("héél", 3))
	assert.Equal(t, "rent", SanitizeString("re\x00nt\x07", 0))
	assert.Equal(t, "line one\nline two", SanitizeString("line one\nline two", 0))
}
