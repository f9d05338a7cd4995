package model

// School carries the school section of a case detail.
type School struct {
	NPSN      string `json:"npsn"`
	Name      string `json:"nama_sekolah"`
	Address   string `json:"alamat,omitempty"`
	District  string `json:"kecamatan,omitempty"`
	Regency   string `json:"kabupaten,omitempty"`
	Province  string `json:"provinsi,omitempty"`
	Principal string `json:"pic,omitempty"`
}

// Unit carries the delivered item section of a case detail.
type Unit struct {
	SerialNumber string `json:"serial_number"`
	Name         string `json:"nama_barang"`
}

// Image references one documentation photo attached to a case.
type Image struct {
	Src   string `json:"src"`
	Title string `json:"title"`
}

// ApprovalLog is one entry of the case approval history.
type ApprovalLog struct {
	Date   string `json:"date"`
	Status string `json:"status"`
	User   string `json:"user,omitempty"`
	Note   string `json:"note,omitempty"`
}

// ShippingLog is one entry of the case shipping history.
type ShippingLog struct {
	Date   string `json:"date"`
	Status string `json:"status"`
	Note   string `json:"note,omitempty"`
}

// Shipping aggregates the shipping history with its most recent entry
// promoted for quick access.
type Shipping struct {
	Logs         []ShippingLog `json:"logs,omitempty"`
	FirstLogDate string        `json:"firstLogDate,omitempty"`
	FirstStatus  string        `json:"firstStatus,omitempty"`
}

// Detail is the structured record for one case, captured at decision time.
// ExtractedID is the ledger-side identifier required by the save phase;
// Resi is the delivery receipt number.
type Detail struct {
	School      School        `json:"school"`
	Unit        Unit          `json:"item"`
	Images      []Image       `json:"images,omitempty"`
	History     []ApprovalLog `json:"history,omitempty"`
	Shipping    Shipping      `json:"shipping"`
	ExtractedID string        `json:"extractedId"`
	Resi        string        `json:"resi"`
	BappID      string        `json:"bapp_id,omitempty"`
	BappDate    string        `json:"bapp_date,omitempty"`
	SentDate    string        `json:"sentDate,omitempty"`
}

// SchoolRoster is the secondary record looked up by NPSN: the principal and
// teacher roster used to cross-check signatures.
type SchoolRoster struct {
	Principal string   `json:"namaKepsek,omitempty"`
	Teachers  []Person `json:"guruLain,omitempty"`
}

// Person is one roster entry.
type Person struct {
	Name string `json:"nama"`
	Role string `json:"jabatan,omitempty"`
}
