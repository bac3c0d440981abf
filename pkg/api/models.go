package api

// Station represents one physical fuel station from the ministry registry
// export (anagrafica_impianti_attivi.csv). Coordinates are kept as raw
// strings because the export mixes dot and comma decimal separators; parsing
// happens at query time.
type Station struct {
	ID          string `json:"id"`
	Gestore     string `json:"gestore"`
	Bandiera    string `json:"bandiera"`
	Tipo        string `json:"tipo"`
	Nome        string `json:"nome"`
	Via         string `json:"via"`
	Comune      string `json:"comune"`
	Provincia   string `json:"provincia"`
	Latitudine  string `json:"lat"`
	Longitudine string `json:"lon"`
}

// Price represents one fuel-type/price observation from prezzo_alle_8.csv.
// Prezzo keeps the locale-formatted value ("1,899"); normalization to a dot
// decimal happens when the value is needed as a number.
type Price struct {
	StationID     string `json:"station_id"`
	Tipo          string `json:"tipo"`
	Prezzo        string `json:"prezzo"`
	SelfService   bool   `json:"self_service"`
	Aggiornamento string `json:"aggiornamento"`
}

// Connector describes a single plug of a charging station.
type Connector struct {
	Tipo      string  `json:"tipo"`
	PotenzaKW float64 `json:"potenza_kw"`
}

// ChargeStation represents an EV charging location sourced from the Open
// Charge Map search API. IDs carry the "999" prefix so they can never collide
// with fuel station IDs.
type ChargeStation struct {
	ID                  string      `json:"id"`
	Nome                string      `json:"nome"`
	Operatore           string      `json:"operatore"`
	Via                 string      `json:"via"`
	Comune              string      `json:"comune"`
	Provincia           string      `json:"provincia"`
	Latitudine          float64     `json:"lat"`
	Longitudine         float64     `json:"lon"`
	Connettori          []Connector `json:"connettori"`
	UltimoAggiornamento string      `json:"ultimo_aggiornamento"`
}
