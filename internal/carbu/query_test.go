package carbu

import (
	"fmt"
	"testing"

	"github.com/osservaprezzi/carburapi/pkg/api"
)

func newTestEngine(stations []api.Station, prices []api.Price, charge []api.ChargeStation) (*Engine, *Cache) {
	c := NewCache()
	c.ReplaceFuelData(stations, prices)
	c.ReplaceChargeStations(charge)
	return NewEngine(c, EngineConfig{}, nil), c
}

func romeStation(id string) api.Station {
	return api.Station{
		ID: id, Gestore: "ENI SPA", Bandiera: "ENI", Tipo: "Stradale",
		Nome: "STAZIONE DI SERVIZIO", Via: "VIA ROMA 1", Comune: "ROMA", Provincia: "RM",
		Latitudine: "41.90", Longitudine: "12.49",
	}
}

func milanStation(id string) api.Station {
	return api.Station{
		ID: id, Gestore: "Q8 PETROLEUM ITALIA SPA", Bandiera: "Q8", Tipo: "Stradale",
		Nome: "STAZIONE Q8", Via: "CORSO SEMPIONE 94", Comune: "MILANO", Provincia: "MI",
		Latitudine: "45.46", Longitudine: "9.19",
	}
}

func TestNormalizeStationID(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"45672", "45672"},
		{"0045672", "45672"},
		{" 45672 ", "45672"},
		{" 0045672", "45672"},
		{"000", "0"},
		{"0", "0"},
		{"", ""},
	}
	for _, test := range tests {
		if got := NormalizeStationID(test.input); got != test.expected {
			t.Errorf("NormalizeStationID(%q) = %q, expected %q", test.input, got, test.expected)
		}
	}
}

func TestParsePrice(t *testing.T) {
	if p := ParsePrice("1,899"); p == nil || *p != 1.899 {
		t.Errorf("ParsePrice(\"1,899\") = %v, expected 1.899", p)
	}
	if p := ParsePrice("1.799"); p == nil || *p != 1.799 {
		t.Errorf("ParsePrice(\"1.799\") = %v, expected 1.799", p)
	}
	if p := ParsePrice("abc"); p != nil {
		t.Errorf("ParsePrice(\"abc\") = %v, expected nil", *p)
	}
	if p := ParsePrice(""); p != nil {
		t.Errorf("ParsePrice(\"\") = %v, expected nil", *p)
	}
}

func TestFindFuelStations_RadiusFilter(t *testing.T) {
	engine, _ := newTestEngine(
		[]api.Station{romeStation("1"), milanStation("2")},
		[]api.Price{
			{StationID: "1", Tipo: "Benzina", Prezzo: "1,899", SelfService: true, Aggiornamento: "2025-03-04"},
			{StationID: "2", Tipo: "Benzina", Prezzo: "1,929", SelfService: true, Aggiornamento: "2025-03-04"},
		},
		nil,
	)

	results := engine.FindFuelStations(41.90, 12.49, 5, "")
	if len(results) != 1 {
		t.Fatalf("expected 1 station within 5 km, got %d", len(results))
	}
	if results[0].ID != "1" {
		t.Errorf("expected station 1, got %q", results[0].ID)
	}
	if results[0].DistanzaKm > 0.01 {
		t.Errorf("expected ~0 distance, got %f", results[0].DistanzaKm)
	}
	if results[0].Maps.Lat != 41.90 || results[0].Maps.Lon != 12.49 {
		t.Errorf("unexpected coordinates: %+v", results[0].Maps)
	}
}

func TestFindFuelStations_ZeroPaddedJoin(t *testing.T) {
	engine, _ := newTestEngine(
		[]api.Station{romeStation("0045672")},
		[]api.Price{{StationID: "45672", Tipo: "Benzina", Prezzo: "1,899", SelfService: true, Aggiornamento: "2025-03-04"}},
		nil,
	)

	results := engine.FindFuelStations(41.90, 12.49, 5, "")
	if len(results) != 1 {
		t.Fatalf("expected 1 station, got %d", len(results))
	}
	if len(results[0].Prezzi) != 1 {
		t.Fatalf("expected the zero-padded ID to join, got %d price rows", len(results[0].Prezzi))
	}
	if p := results[0].Prezzi[0].Prezzo; p == nil || *p != 1.899 {
		t.Errorf("expected parsed price 1.899, got %v", p)
	}
}

func TestFindFuelStations_UnparseablePriceKept(t *testing.T) {
	engine, _ := newTestEngine(
		[]api.Station{romeStation("1")},
		[]api.Price{{StationID: "1", Tipo: "Benzina", Prezzo: "abc", SelfService: false, Aggiornamento: "2025-03-04"}},
		nil,
	)

	results := engine.FindFuelStations(41.90, 12.49, 5, "")
	if len(results) != 1 {
		t.Fatalf("expected 1 station, got %d", len(results))
	}
	if len(results[0].Prezzi) != 1 {
		t.Fatalf("expected the unparseable price row to be kept, got %d rows", len(results[0].Prezzi))
	}
	if results[0].Prezzi[0].Prezzo != nil {
		t.Errorf("expected nil price, got %v", *results[0].Prezzi[0].Prezzo)
	}
}

func TestFindFuelStations_FuelFilterExcludes(t *testing.T) {
	engine, _ := newTestEngine(
		[]api.Station{romeStation("1")},
		[]api.Price{{StationID: "1", Tipo: "Gasolio", Prezzo: "1,799", SelfService: true, Aggiornamento: "2025-03-04"}},
		nil,
	)

	results := engine.FindFuelStations(41.90, 12.49, 5, "Benzina")
	if len(results) != 0 {
		t.Errorf("expected a Gasolio-only station to be excluded, got %d results", len(results))
	}
}

func TestFindFuelStations_FuelFilterKeepsMatchingRowsOnly(t *testing.T) {
	engine, _ := newTestEngine(
		[]api.Station{romeStation("1")},
		[]api.Price{
			{StationID: "1", Tipo: "Benzina", Prezzo: "1,899", SelfService: true, Aggiornamento: "2025-03-04"},
			{StationID: "1", Tipo: "Gasolio", Prezzo: "1,799", SelfService: true, Aggiornamento: "2025-03-04"},
		},
		nil,
	)

	results := engine.FindFuelStations(41.90, 12.49, 5, "benzina")
	if len(results) != 1 {
		t.Fatalf("expected 1 station, got %d", len(results))
	}
	if len(results[0].Prezzi) != 1 || results[0].Prezzi[0].Tipo != "Benzina" {
		t.Errorf("expected only the matching Benzina row, got %+v", results[0].Prezzi)
	}
}

func TestFindFuelStations_SortedByDistance(t *testing.T) {
	near := romeStation("near")
	mid := romeStation("mid")
	mid.Latitudine = "41.95"
	far := romeStation("far")
	far.Latitudine = "42.10"

	// Deliberately out of order.
	engine, _ := newTestEngine(
		[]api.Station{far, near, mid},
		[]api.Price{
			{StationID: "near", Tipo: "Benzina", Prezzo: "1,899"},
			{StationID: "mid", Tipo: "Benzina", Prezzo: "1,899"},
			{StationID: "far", Tipo: "Benzina", Prezzo: "1,899"},
		},
		nil,
	)

	results := engine.FindFuelStations(41.90, 12.49, 100, "")
	if len(results) != 3 {
		t.Fatalf("expected 3 stations, got %d", len(results))
	}
	for i := 1; i < len(results); i++ {
		if results[i-1].DistanzaKm > results[i].DistanzaKm {
			t.Errorf("results not sorted: %f at %d before %f at %d",
				results[i-1].DistanzaKm, i-1, results[i].DistanzaKm, i)
		}
	}
	if results[0].ID != "near" || results[2].ID != "far" {
		t.Errorf("unexpected order: %s, %s, %s", results[0].ID, results[1].ID, results[2].ID)
	}
}

func TestFindFuelStations_ResultCap(t *testing.T) {
	var stations []api.Station
	var prices []api.Price
	for i := 0; i < 50; i++ {
		st := romeStation(fmt.Sprintf("st%d", i))
		stations = append(stations, st)
		prices = append(prices, api.Price{StationID: st.ID, Tipo: "Benzina", Prezzo: "1,899"})
	}

	c := NewCache()
	c.ReplaceFuelData(stations, prices)
	engine := NewEngine(c, EngineConfig{ResultCap: 10}, nil)

	results := engine.FindFuelStations(41.90, 12.49, 5, "")
	if len(results) != 10 {
		t.Errorf("expected the cap of 10 results, got %d", len(results))
	}
}

func TestFindFuelStations_InvalidCoordinatesExcluded(t *testing.T) {
	broken := romeStation("broken")
	broken.Latitudine = "not-a-number"

	engine, _ := newTestEngine(
		[]api.Station{broken, romeStation("ok")},
		[]api.Price{
			{StationID: "broken", Tipo: "Benzina", Prezzo: "1,899"},
			{StationID: "ok", Tipo: "Benzina", Prezzo: "1,899"},
		},
		nil,
	)

	results := engine.FindFuelStations(41.90, 12.49, 5000, "")
	if len(results) != 1 {
		t.Fatalf("expected only the parseable station, got %d", len(results))
	}
	if results[0].ID != "ok" {
		t.Errorf("expected station ok, got %q", results[0].ID)
	}
}

func TestFindFuelStations_MemoKeyedOnExactRadius(t *testing.T) {
	edge := romeStation("edge")
	edge.Latitudine = "41.9451" // about 5.02 km north of the query point

	engine, _ := newTestEngine(
		[]api.Station{edge},
		[]api.Price{{StationID: "edge", Tipo: "Benzina", Prezzo: "1,899"}},
		nil,
	)

	if got := engine.FindFuelStations(41.90, 12.49, 5.10, ""); len(got) != 1 {
		t.Fatalf("expected the station inside the 5.10 km radius, got %d", len(got))
	}
	// A nearly identical but smaller radius must not reuse that entry.
	if got := engine.FindFuelStations(41.90, 12.49, 4.95, ""); len(got) != 0 {
		t.Errorf("station at ~5 km served inside a 4.95 km radius, got %d results", len(got))
	}
}

func TestFindChargeStations_MemoKeyedOnExactRadius(t *testing.T) {
	engine, _ := newTestEngine(nil, nil, []api.ChargeStation{{
		ID: "99911111", Nome: "Colonnina",
		Latitudine: 41.9451, Longitudine: 12.49,
		Connettori: []api.Connector{{Tipo: "Type 2", PotenzaKW: 22}},
	}})

	if got := engine.FindChargeStations(41.90, 12.49, 5.10); len(got) != 1 {
		t.Fatalf("expected the station inside the 5.10 km radius, got %d", len(got))
	}
	if got := engine.FindChargeStations(41.90, 12.49, 4.95); len(got) != 0 {
		t.Errorf("station at ~5 km served inside a 4.95 km radius, got %d results", len(got))
	}
}

func TestFindChargeStations(t *testing.T) {
	charge := []api.ChargeStation{
		{
			ID: "99912345", Nome: "Parcheggio Centrale", Operatore: "Enel X",
			Comune: "ROMA", Provincia: "RM", Latitudine: 41.9005, Longitudine: 12.4955,
			Connettori: []api.Connector{{Tipo: "Type 2", PotenzaKW: 22}, {Tipo: "CCS", PotenzaKW: 50}},
		},
		{
			ID: "99967890", Nome: "Area di Servizio", Comune: "MILANO",
			Latitudine: 45.4642, Longitudine: 9.19,
			Connettori: []api.Connector{{Tipo: "Type 2", PotenzaKW: 7.4}},
		},
	}

	engine, _ := newTestEngine(nil, nil, charge)

	results := engine.FindChargeStations(41.90, 12.49, 5)
	if len(results) != 1 {
		t.Fatalf("expected 1 charge station within 5 km, got %d", len(results))
	}
	if results[0].ID != "99912345" {
		t.Errorf("expected station 99912345, got %q", results[0].ID)
	}
	// 50 kW connector lands in the 50-100 tier.
	if results[0].PrezzoKWhStimato != 0.65 {
		t.Errorf("expected estimated price 0.65, got %f", results[0].PrezzoKWhStimato)
	}
}

func TestEstimateKWhPrice_Tiers(t *testing.T) {
	engine, _ := newTestEngine(nil, nil, nil)

	tests := []struct {
		powerKW  float64
		expected float64
	}{
		{3.7, 0.45},
		{10.9, 0.45},
		{11, 0.55},
		{22, 0.55},
		{50, 0.65},
		{99, 0.65},
		{100, 0.79},
		{350, 0.79},
	}
	for _, test := range tests {
		if got := engine.estimateKWhPrice(test.powerKW); got != test.expected {
			t.Errorf("estimateKWhPrice(%f) = %f, expected %f", test.powerKW, got, test.expected)
		}
	}
}

func TestFindFuelStationsByFuelType_ElectricDelegation(t *testing.T) {
	// Fuel dataset contains a station whose price list claims "Elettrica";
	// the electric path must never consult it.
	engine, _ := newTestEngine(
		[]api.Station{romeStation("1")},
		[]api.Price{{StationID: "1", Tipo: "Elettrica", Prezzo: "0,50"}},
		[]api.ChargeStation{{
			ID: "99912345", Nome: "Parcheggio Centrale",
			Latitudine: 41.9005, Longitudine: 12.4955,
			Connettori: []api.Connector{{Tipo: "CCS", PotenzaKW: 50}},
		}},
	)

	fuel, chargeResults := engine.FindFuelStationsByFuelType(41.90, 12.49, 5, "elettrica")
	if fuel != nil {
		t.Errorf("expected nil fuel results on electric delegation, got %d", len(fuel))
	}
	if len(chargeResults) != 1 {
		t.Fatalf("expected 1 charge station, got %d", len(chargeResults))
	}
	if chargeResults[0].ID != "99912345" {
		t.Errorf("expected the EV dataset result, got %q", chargeResults[0].ID)
	}
}

func TestFindFuelStationsByFuelType_Regular(t *testing.T) {
	engine, _ := newTestEngine(
		[]api.Station{romeStation("1")},
		[]api.Price{{StationID: "1", Tipo: "Benzina", Prezzo: "1,899"}},
		nil,
	)

	fuel, chargeResults := engine.FindFuelStationsByFuelType(41.90, 12.49, 5, "Benzina")
	if chargeResults != nil {
		t.Errorf("expected nil charge results, got %d", len(chargeResults))
	}
	if len(fuel) != 1 {
		t.Errorf("expected 1 fuel station, got %d", len(fuel))
	}
}

func TestEngine_InvalidateResults(t *testing.T) {
	engine, c := newTestEngine(
		[]api.Station{romeStation("1")},
		[]api.Price{{StationID: "1", Tipo: "Benzina", Prezzo: "1,899"}},
		nil,
	)

	first := engine.FindFuelStations(41.90, 12.49, 5, "")
	if len(first) != 1 {
		t.Fatalf("expected 1 station, got %d", len(first))
	}

	c.ReplaceFuelData([]api.Station{romeStation("1"), romeStation("2")}, []api.Price{
		{StationID: "1", Tipo: "Benzina", Prezzo: "1,899"},
		{StationID: "2", Tipo: "Benzina", Prezzo: "1,889"},
	})

	// Memoized until invalidated.
	if got := engine.FindFuelStations(41.90, 12.49, 5, ""); len(got) != 1 {
		t.Fatalf("expected memoized result of 1 station, got %d", len(got))
	}
	engine.InvalidateResults()
	if got := engine.FindFuelStations(41.90, 12.49, 5, ""); len(got) != 2 {
		t.Errorf("expected 2 stations after invalidation, got %d", len(got))
	}
}

func TestTopStations(t *testing.T) {
	engine, _ := newTestEngine(
		[]api.Station{romeStation("1"), milanStation("2")},
		[]api.Price{{StationID: "1", Tipo: "Benzina", Prezzo: "1,899"}},
		nil,
	)

	results := engine.TopStations(10)
	if len(results) != 2 {
		t.Fatalf("expected 2 stations, got %d", len(results))
	}
	if len(results[0].Prezzi) != 1 {
		t.Errorf("expected joined prices for station 1, got %d rows", len(results[0].Prezzi))
	}
	if len(results[1].Prezzi) != 0 {
		t.Errorf("expected no prices for station 2, got %d rows", len(results[1].Prezzi))
	}
}
