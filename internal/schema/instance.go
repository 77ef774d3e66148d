package schema

// Instance is one instance record as served by the inventory service.
type Instance struct {
	ID         string `json:"id"`
	HRID       string `json:"hrid"`
	Source     string `json:"source"`
	Title      string `json:"title"`
	IndexTitle string `json:"indexTitle"`

	Editions  []string `json:"editions"`
	Languages []string `json:"languages"`

	Contributors []Contributor `json:"contributors"`
	Publication  []Publication `json:"publication"`
	Series       []Series      `json:"series"`

	Notes               []InstanceNote `json:"notes"`
	AdministrativeNotes []string       `json:"administrativeNotes"`
	StatisticalCodeIDs  []string       `json:"statisticalCodeIds"`

	CatalogedDate     string `json:"catalogedDate"`
	DiscoverySuppress bool   `json:"discoverySuppress"`
	StaffSuppress     bool   `json:"staffSuppress"`
	PreviouslyHeld    bool   `json:"previouslyHeld"`
}

// Contributor is one name entry on an instance.
type Contributor struct {
	Name    string `json:"name"`
	Primary bool   `json:"primary"`
}

// Publication is one imprint entry on an instance.
type Publication struct {
	Publisher         string `json:"publisher"`
	Place             string `json:"place"`
	DateOfPublication string `json:"dateOfPublication"`
}

// Series is one series statement on an instance.
type Series struct {
	Value string `json:"value"`
}

// InstanceNote is one free-form note attached to an instance.
type InstanceNote struct {
	InstanceNoteTypeID string `json:"instanceNoteTypeId"`
	Note               string `json:"note"`
	StaffOnly          bool   `json:"staffOnly"`
}

// InstanceCollection is a paginated instances result set.
type InstanceCollection struct {
	Instances    []Instance `json:"instances"`
	TotalRecords int        `json:"totalRecords"`
}
