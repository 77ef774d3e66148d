package schema

// Item is one item record as served by the inventory service.
type Item struct {
	ID              string `json:"id"`
	HRID            string `json:"hrid"`
	Barcode         string `json:"barcode"`
	AccessionNumber string `json:"accessionNumber"`
	HoldingsID      string `json:"holdingsRecordId"`

	Status *ItemStatus `json:"status"`

	MaterialTypeID        string `json:"materialTypeId"`
	PermanentLoanTypeID   string `json:"permanentLoanTypeId"`
	TemporaryLoanTypeID   string `json:"temporaryLoanTypeId"`
	PermanentLocationID   string `json:"permanentLocationId"`
	TemporaryLocationID   string `json:"temporaryLocationId"`
	EffectiveLocationID   string `json:"effectiveLocationId"`
	ItemDamagedStatusID   string `json:"itemDamagedStatusId"`
	ItemDamagedStatusDate string `json:"itemDamagedStatusDate"`

	InTransitDestinationServicePointID string `json:"inTransitDestinationServicePointId"`

	ItemLevelCallNumber       string `json:"itemLevelCallNumber"`
	ItemLevelCallNumberPrefix string `json:"itemLevelCallNumberPrefix"`
	ItemLevelCallNumberSuffix string `json:"itemLevelCallNumberSuffix"`
	ItemLevelCallNumberTypeID string `json:"itemLevelCallNumberTypeId"`

	CopyNumber         string `json:"copyNumber"`
	Enumeration        string `json:"enumeration"`
	Chronology         string `json:"chronology"`
	Volume             string `json:"volume"`
	NumberOfPieces     string `json:"numberOfPieces"`
	DescriptionOfPieces string `json:"descriptionOfPieces"`

	YearCaption         []string `json:"yearCaption"`
	FormerIDs           []string `json:"formerIds"`
	StatisticalCodeIDs  []string `json:"statisticalCodeIds"`
	AdministrativeNotes []string `json:"administrativeNotes"`

	Notes            []ItemNote         `json:"notes"`
	CirculationNotes []CirculationNote  `json:"circulationNotes"`
	ElectronicAccess []ElectronicAccess `json:"electronicAccess"`

	DiscoverySuppress bool `json:"discoverySuppress"`
}

// ItemStatus is the item's availability state.
type ItemStatus struct {
	Name string `json:"name"`
	Date string `json:"date"`
}

// ItemNote is one free-form note attached to an item.
type ItemNote struct {
	ItemNoteTypeID string `json:"itemNoteTypeId"`
	Note           string `json:"note"`
	StaffOnly      bool   `json:"staffOnly"`
}

// CirculationNote is a check-in/check-out note.
type CirculationNote struct {
	NoteType  string `json:"noteType"`
	Note      string `json:"note"`
	StaffOnly bool   `json:"staffOnly"`
}

// ElectronicAccess is one online-access link of a record.
type ElectronicAccess struct {
	URI                    string `json:"uri"`
	LinkText               string `json:"linkText"`
	MaterialsSpecification string `json:"materialsSpecification"`
	PublicNote             string `json:"publicNote"`
	RelationshipID         string `json:"relationshipId"`
}

// ItemCollection is a paginated items result set.
type ItemCollection struct {
	Items        []Item `json:"items"`
	TotalRecords int    `json:"totalRecords"`
}
