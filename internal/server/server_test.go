package server_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/facturx/internal/cii"
	"github.com/rezonia/facturx/internal/model"
	"github.com/rezonia/facturx/internal/server"
)

func newTestServer() *server.Server {
	config := &server.Config{
		Address: ":8080",
		Debug:   true,
		Logger:  zerolog.Nop(),
	}
	return server.NewServer(config)
}

func sampleInvoice() *model.Invoice {
	return &model.Invoice{
		Number:    "INV-1",
		IssueDate: time.Date(2025, 5, 13, 0, 0, 0, 0, time.UTC),
		DueDate:   time.Date(2025, 6, 12, 0, 0, 0, 0, time.UTC),
		Currency:  "EUR",
		Seller: model.Party{
			Name:        "Acme GmbH",
			VATID:       "DE123456789",
			AddressLine: "Hauptstr. 1",
			City:        "Berlin",
			PostCode:    "10115",
			CountryCode: "DE",
		},
		Buyer: model.Party{
			Name:        "Beispiel AG",
			AddressLine: "Nebenweg 2",
			City:        "Hamburg",
			PostCode:    "20095",
			CountryCode: "DE",
		},
		PaymentTerms: "30 days net",
		Items: []model.LineItem{
			{
				ID:          "1",
				Description: "Widget",
				Quantity:    decimal.NewFromInt(2),
				UnitPrice:   decimal.RequireFromString("10.00"),
				VATRate:     decimal.NewFromInt(20),
			},
		},
	}
}

func generateBody(t *testing.T, profile string) *bytes.Reader {
	t.Helper()
	payload, err := json.Marshal(server.GenerateRequest{
		Invoice: sampleInvoice(),
		Profile: profile,
	})
	require.NoError(t, err)
	return bytes.NewReader(payload)
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	require.NoError(t, err)

	assert.Equal(t, "ok", response["status"])
	assert.Contains(t, response, "converter")
	assert.NotEmpty(t, response["time"])
}

func TestGenerateXMLEndpoint(t *testing.T) {
	srv := newTestServer()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/xml", generateBody(t, "EN16931"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	srv.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/xml", w.Header().Get("Content-Type"))

	body := w.Body.String()
	assert.Contains(t, body, "rsm:CrossIndustryInvoice")
	assert.Contains(t, body, "urn:cen.eu:en16931:2017")
	assert.Contains(t, body, "INV-1")
}

func TestGenerateXMLEndpoint_DefaultsToEN16931(t *testing.T) {
	srv := newTestServer()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/xml", generateBody(t, ""))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	srv.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "urn:cen.eu:en16931:2017")
}

func TestGenerateXMLEndpoint_InvalidInvoice(t *testing.T) {
	srv := newTestServer()

	inv := sampleInvoice()
	inv.Items = nil
	payload, err := json.Marshal(server.GenerateRequest{Invoice: inv, Profile: "MINIMUM"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/xml", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	srv.Handler().ServeHTTP(w, req)

	// invalid invoice input maps to 400, not 422
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var response server.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Contains(t, response.Error, "items")
}

func TestArtifactEndpoint_InvalidInvoice(t *testing.T) {
	srv := newTestServer()

	inv := sampleInvoice()
	inv.Currency = "XXX"
	payload, err := json.Marshal(server.GenerateRequest{Invoice: inv, Profile: "MINIMUM"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/artifact", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var response server.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Contains(t, response.Error, "currency")
}

func TestGenerateXMLEndpoint_UnknownProfile(t *testing.T) {
	srv := newTestServer()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/xml", generateBody(t, "PLATINUM"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGenerateXMLEndpoint_MalformedJSON(t *testing.T) {
	srv := newTestServer()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/xml", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestValidateEndpoint(t *testing.T) {
	srv := newTestServer()

	xml, err := cii.NewEncoder().Encode(sampleInvoice(), model.ProfileEN16931)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/validate?profile=EN16931", bytes.NewReader(xml))
	req.Header.Set("Content-Type", "application/xml")
	w := httptest.NewRecorder()

	srv.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var response server.ValidateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "EN16931", response.Profile)
	assert.True(t, response.Valid)
	assert.NotEmpty(t, response.Results)
}

func TestValidateEndpoint_MalformedXML(t *testing.T) {
	srv := newTestServer()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/validate", strings.NewReader("<broken"))
	w := httptest.NewRecorder()

	srv.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var response server.ValidateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.False(t, response.Valid)
	require.NotEmpty(t, response.Results)
	assert.Equal(t, "XML-PARSE", response.Results[0].ID)
}

func TestValidateEndpoint_EmptyBody(t *testing.T) {
	srv := newTestServer()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/validate", nil)
	w := httptest.NewRecorder()

	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestValidateEndpoint_UnknownProfile(t *testing.T) {
	srv := newTestServer()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/validate?profile=GOLD", strings.NewReader("<a/>"))
	w := httptest.NewRecorder()

	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCheckEndpoint_NotAPdf(t *testing.T) {
	srv := newTestServer()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/check?profile=MINIMUM", strings.NewReader("plain text"))
	w := httptest.NewRecorder()

	srv.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var response server.CheckResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.False(t, response.Compliant)
	require.NotEmpty(t, response.Checks)
	assert.False(t, response.Checks[0].Passed)
}

func TestArtifactEndpoint_ConverterUnavailable(t *testing.T) {
	config := &server.Config{
		Address:         ":8080",
		Debug:           true,
		GhostscriptPath: "/nonexistent/gs",
		Logger:          zerolog.Nop(),
	}
	srv := server.NewServer(config)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/artifact", generateBody(t, "MINIMUM"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestArtifactEndpoint(t *testing.T) {
	srv := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	var health map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	if health["converter"] != true {
		t.Skip("ghostscript not installed")
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/artifact", generateBody(t, "EN16931"))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()

	srv.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Equal(t, "COMPLIANT", w.Header().Get("X-Compliance-Status"))
	assert.NotEmpty(t, w.Header().Get("X-Run-Id"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")))
}
