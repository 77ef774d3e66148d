package schema

// Holdings is one holdings record as served by the inventory service.
type Holdings struct {
	ID         string   `json:"id"`
	HRID       string   `json:"hrid"`
	InstanceID string   `json:"instanceId"`
	FormerIDs  []string `json:"formerIds"`

	PermanentLocationID string `json:"permanentLocationId"`
	TemporaryLocationID string `json:"temporaryLocationId"`
	EffectiveLocationID string `json:"effectiveLocationId"`

	CallNumber       string `json:"callNumber"`
	CallNumberPrefix string `json:"callNumberPrefix"`
	CallNumberSuffix string `json:"callNumberSuffix"`
	CallNumberTypeID string `json:"callNumberTypeId"`

	ShelvingTitle   string `json:"shelvingTitle"`
	CopyNumber      string `json:"copyNumber"`
	ReceiptStatus   string `json:"receiptStatus"`
	RetentionPolicy string `json:"retentionPolicy"`

	StatisticalCodeIDs  []string `json:"statisticalCodeIds"`
	AdministrativeNotes []string `json:"administrativeNotes"`

	Notes            []HoldingsNote     `json:"notes"`
	ElectronicAccess []ElectronicAccess `json:"electronicAccess"`

	DiscoverySuppress bool `json:"discoverySuppress"`
}

// HoldingsNote is one free-form note attached to a holdings record.
type HoldingsNote struct {
	HoldingsNoteTypeID string `json:"holdingsNoteTypeId"`
	Note               string `json:"note"`
	StaffOnly          bool   `json:"staffOnly"`
}

// HoldingsCollection is a paginated holdings result set.
type HoldingsCollection struct {
	HoldingsRecords []Holdings `json:"holdingsRecords"`
	TotalRecords    int        `json:"totalRecords"`
}
