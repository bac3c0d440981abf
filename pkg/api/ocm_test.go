package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

const ocmBody = `[
  {
    "ID": 12345,
    "OperatorInfo": {"Title": "Enel X"},
    "AddressInfo": {
      "Title": "Parcheggio Centrale",
      "AddressLine1": "Via Nazionale 10",
      "Town": "ROMA",
      "StateOrProvince": "RM",
      "Latitude": 41.9005,
      "Longitude": 12.4955
    },
    "Connections": [
      {"ConnectionType": {"Title": "Type 2"}, "PowerKW": 22},
      {"ConnectionType": {"Title": "CCS"}, "PowerKW": 50}
    ],
    "DateLastStatusUpdate": "2025-03-01T08:00:00Z"
  },
  {
    "ID": 67890,
    "AddressInfo": {
      "Title": "Area di Servizio",
      "Town": "MILANO",
      "Latitude": 45.4642,
      "Longitude": 9.19
    },
    "Connections": []
  }
]`

func TestOCMClient_Search(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("distanceunit") != "km" {
			t.Errorf("expected distanceunit=km, got %q", q.Get("distanceunit"))
		}
		if q.Get("latitude") == "" || q.Get("longitude") == "" || q.Get("distance") == "" {
			t.Error("expected latitude, longitude and distance parameters")
		}
		w.Write([]byte(ocmBody))
	}))
	defer srv.Close()

	client := NewOCMClient(OCMConfig{BaseURL: srv.URL}, nil)
	stations, err := client.Search(context.Background(), 42.5, 12.5, 600, 500)
	if err != nil {
		t.Fatalf("Search() failed: %v", err)
	}

	if len(stations) != 2 {
		t.Fatalf("expected 2 stations, got %d", len(stations))
	}

	st := stations[0]
	if st.ID != "99912345" {
		t.Errorf("expected prefixed ID 99912345, got %q", st.ID)
	}
	if st.Operatore != "Enel X" {
		t.Errorf("expected Operatore Enel X, got %q", st.Operatore)
	}
	if st.Comune != "ROMA" {
		t.Errorf("expected Comune ROMA, got %q", st.Comune)
	}
	if len(st.Connettori) != 2 {
		t.Fatalf("expected 2 connectors, got %d", len(st.Connettori))
	}
	if st.Connettori[1].Tipo != "CCS" || st.Connettori[1].PotenzaKW != 50 {
		t.Errorf("unexpected connector: %+v", st.Connettori[1])
	}

	if stations[1].ID != "99967890" {
		t.Errorf("expected prefixed ID 99967890, got %q", stations[1].ID)
	}
	if stations[1].Operatore != "" {
		t.Errorf("expected empty operator when OperatorInfo is missing, got %q", stations[1].Operatore)
	}
}

func TestOCMClient_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	client := NewOCMClient(OCMConfig{BaseURL: srv.URL}, nil)
	if _, err := client.Search(context.Background(), 42.5, 12.5, 600, 500); err == nil {
		t.Error("expected an error on non-2xx status")
	}
}

func TestOCMClient_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"not": "a list"}`))
	}))
	defer srv.Close()

	client := NewOCMClient(OCMConfig{BaseURL: srv.URL}, nil)
	if _, err := client.Search(context.Background(), 42.5, 12.5, 600, 500); err == nil {
		t.Error("expected an error on malformed body")
	}
}
