package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/Krakenied/MiniMessenger/internal/audience"
	"github.com/Krakenied/MiniMessenger/internal/engine"
	"github.com/Krakenied/MiniMessenger/internal/messenger"
)

type APITestSuite struct {
	suite.Suite
}

func (s *APITestSuite) TestPlaceholders() {
	ph := Placeholders([]Placeholder{
		{Name: "a", Value: "<b>x</b>"},
		{Name: "b", Value: "<b>y</b>", Parsed: true},
	})
	s.Require().Len(ph, 2)
	s.Equal("a", ph[0].Name())
	s.Equal("b", ph[1].Name())
	s.Nil(Placeholders(nil))
}

func (s *APITestSuite) TestStatusFor() {
	testCases := []struct {
		name   string
		err    error
		expect int
	}{
		{name: "unknown recipient", err: engine.ErrUnknownRecipient, expect: http.StatusNotFound},
		{name: "empty name", err: audience.ErrEmptyName, expect: http.StatusBadRequest},
		{name: "name taken", err: audience.ErrNameTaken, expect: http.StatusConflict},
		{name: "not running", err: engine.ErrNotRunning, expect: http.StatusServiceUnavailable},
		{name: "invalid config", err: messenger.ErrInvalidConfig, expect: http.StatusUnprocessableEntity},
		{name: "bootstrap", err: messenger.ErrBootstrap, expect: http.StatusInternalServerError},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			s.Equal(tc.expect, statusFor(tc.err))
		})
	}
}

func (s *APITestSuite) TestMethodAndBodyChecks() {
	srv := New(nil, audience.NewHub(), nil)

	testCases := []struct {
		name   string
		method string
		path   string
		body   string
		expect int
	}{
		{name: "get on post route", method: http.MethodGet, path: "/v1/send", expect: http.StatusMethodNotAllowed},
		{name: "post on get route", method: http.MethodPost, path: "/v1/recipients", expect: http.StatusMethodNotAllowed},
		{name: "malformed body", method: http.MethodPost, path: "/v1/join", body: "{", expect: http.StatusBadRequest},
		{name: "blank name", method: http.MethodPost, path: "/v1/join", body: `{"name":" "}`, expect: http.StatusBadRequest},
		{name: "inbox without id", method: http.MethodGet, path: "/v1/inbox", expect: http.StatusBadRequest},
		{name: "leave without id", method: http.MethodPost, path: "/v1/leave", body: `{}`, expect: http.StatusBadRequest},
		{name: "recipients", method: http.MethodGet, path: "/v1/recipients", expect: http.StatusOK},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			req := httptest.NewRequest(tc.method, tc.path, strings.NewReader(tc.body))
			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, req)
			s.Equal(tc.expect, rec.Code)
			s.Equal("application/json", rec.Header().Get("Content-Type"))
		})
	}
}

func TestAPITestSuite(t *testing.T) {
	suite.Run(t, new(APITestSuite))
}
