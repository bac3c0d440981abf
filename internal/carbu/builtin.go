package carbu

import "github.com/osservaprezzi/carburapi/pkg/api"

// BuiltinDataset returns the hard-coded minimal dataset used as the last
// fallback tier when both the remote endpoints and the persisted snapshot
// are unavailable and the cache has never been populated. It covers a
// handful of stations in the largest cities so the service stays answerable
// during a full upstream outage.
func BuiltinDataset() ([]api.Station, []api.Price) {
	stations := []api.Station{
		{ID: "1000001", Gestore: "TAMOIL ITALIA SPA", Bandiera: "TAMOIL", Tipo: "Stradale", Nome: "STAZIONE DI RIFORNIMENTO", Via: "VIA CRISTOFORO COLOMBO 1897", Comune: "ROMA", Provincia: "RM", Latitudine: "41.8183", Longitudine: "12.4593"},
		{ID: "1000002", Gestore: "ENI SPA", Bandiera: "ENI", Tipo: "Stradale", Nome: "STAZIONE DI SERVIZIO", Via: "VIA TUSCOLANA 1581", Comune: "ROMA", Provincia: "RM", Latitudine: "41.8544", Longitudine: "12.5779"},
		{ID: "1000003", Gestore: "Q8 PETROLEUM ITALIA SPA", Bandiera: "Q8", Tipo: "Stradale", Nome: "STAZIONE DI SERVIZIO", Via: "VIALE EUROPA 95", Comune: "ROMA", Provincia: "RM", Latitudine: "41.8317", Longitudine: "12.4686"},
		{ID: "1000004", Gestore: "ESSO ITALIANA SRL", Bandiera: "ESSO", Tipo: "Stradale", Nome: "STAZIONE DI SERVIZIO", Via: "CORSO FRANCIA 252", Comune: "ROMA", Provincia: "RM", Latitudine: "41.9378", Longitudine: "12.4689"},
		{ID: "1000005", Gestore: "ENI SPA", Bandiera: "ENI", Tipo: "Stradale", Nome: "STAZIONE DI SERVIZIO", Via: "CORSO SEMPIONE 94", Comune: "MILANO", Provincia: "MI", Latitudine: "45.4862", Longitudine: "9.1663"},
		{ID: "1000006", Gestore: "TAMOIL ITALIA SPA", Bandiera: "TAMOIL", Tipo: "Stradale", Nome: "STAZIONE DI RIFORNIMENTO", Via: "VIALE FULVIO TESTI 303", Comune: "MILANO", Provincia: "MI", Latitudine: "45.5124", Longitudine: "9.2136"},
		{ID: "1000007", Gestore: "Q8 PETROLEUM ITALIA SPA", Bandiera: "Q8", Tipo: "Stradale", Nome: "STAZIONE DI SERVIZIO", Via: "VIALE CERTOSA 215", Comune: "MILANO", Provincia: "MI", Latitudine: "45.4993", Longitudine: "9.1224"},
		{ID: "1000008", Gestore: "AGIP SPA", Bandiera: "AGIP", Tipo: "Stradale", Nome: "STAZIONE DI SERVIZIO", Via: "CORSO GARIBALDI 35", Comune: "NAPOLI", Provincia: "NA", Latitudine: "40.8483", Longitudine: "14.2494"},
		{ID: "1000009", Gestore: "ESSO ITALIANA SRL", Bandiera: "ESSO", Tipo: "Stradale", Nome: "STAZIONE DI SERVIZIO", Via: "VIA TOLEDO 256", Comune: "NAPOLI", Provincia: "NA", Latitudine: "40.8422", Longitudine: "14.2485"},
		{ID: "1000010", Gestore: "ENI SPA", Bandiera: "ENI", Tipo: "Stradale", Nome: "STAZIONE DI SERVIZIO", Via: "VIA CARACCIOLO 13", Comune: "NAPOLI", Provincia: "NA", Latitudine: "40.8302", Longitudine: "14.2211"},
	}

	prices := []api.Price{
		{StationID: "1000001", Tipo: "Benzina", Prezzo: "1,899", SelfService: true, Aggiornamento: "2023-06-06"},
		{StationID: "1000001", Tipo: "Gasolio", Prezzo: "1,799", SelfService: true, Aggiornamento: "2023-06-06"},
		{StationID: "1000001", Tipo: "GPL", Prezzo: "0,799", SelfService: true, Aggiornamento: "2023-06-06"},
		{StationID: "1000002", Tipo: "Benzina", Prezzo: "1,889", SelfService: true, Aggiornamento: "2023-06-06"},
		{StationID: "1000002", Tipo: "Gasolio", Prezzo: "1,789", SelfService: true, Aggiornamento: "2023-06-06"},
		{StationID: "1000002", Tipo: "Metano", Prezzo: "1,979", SelfService: true, Aggiornamento: "2023-06-06"},
		{StationID: "1000003", Tipo: "Benzina", Prezzo: "1,879", SelfService: true, Aggiornamento: "2023-06-06"},
		{StationID: "1000003", Tipo: "Gasolio", Prezzo: "1,779", SelfService: true, Aggiornamento: "2023-06-06"},
		{StationID: "1000004", Tipo: "Benzina", Prezzo: "1,909", SelfService: true, Aggiornamento: "2023-06-06"},
		{StationID: "1000004", Tipo: "Gasolio", Prezzo: "1,809", SelfService: true, Aggiornamento: "2023-06-06"},
		{StationID: "1000005", Tipo: "Benzina", Prezzo: "1,929", SelfService: true, Aggiornamento: "2023-06-06"},
		{StationID: "1000005", Tipo: "Gasolio", Prezzo: "1,829", SelfService: true, Aggiornamento: "2023-06-06"},
		{StationID: "1000006", Tipo: "Benzina", Prezzo: "1,919", SelfService: true, Aggiornamento: "2023-06-06"},
		{StationID: "1000006", Tipo: "Gasolio", Prezzo: "1,819", SelfService: true, Aggiornamento: "2023-06-06"},
		{StationID: "1000006", Tipo: "GPL", Prezzo: "0,789", SelfService: true, Aggiornamento: "2023-06-06"},
		{StationID: "1000007", Tipo: "Benzina", Prezzo: "1,939", SelfService: true, Aggiornamento: "2023-06-06"},
		{StationID: "1000007", Tipo: "Gasolio", Prezzo: "1,839", SelfService: true, Aggiornamento: "2023-06-06"},
		{StationID: "1000008", Tipo: "Benzina", Prezzo: "1,869", SelfService: true, Aggiornamento: "2023-06-06"},
		{StationID: "1000008", Tipo: "Gasolio", Prezzo: "1,769", SelfService: true, Aggiornamento: "2023-06-06"},
		{StationID: "1000009", Tipo: "Benzina", Prezzo: "1,859", SelfService: true, Aggiornamento: "2023-06-06"},
		{StationID: "1000009", Tipo: "Gasolio", Prezzo: "1,759", SelfService: true, Aggiornamento: "2023-06-06"},
		{StationID: "1000010", Tipo: "Benzina", Prezzo: "1,849", SelfService: true, Aggiornamento: "2023-06-06"},
		{StationID: "1000010", Tipo: "Gasolio", Prezzo: "1,749", SelfService: true, Aggiornamento: "2023-06-06"},
		{StationID: "1000010", Tipo: "GPL", Prezzo: "0,779", SelfService: true, Aggiornamento: "2023-06-06"},
	}

	return stations, prices
}
