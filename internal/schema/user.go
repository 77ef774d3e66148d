// Package schema defines the wire shapes of the domain records the
// bulk-edit pipeline fetches from the per-tenant record services.
// Optional sub-objects are pointers so adapters can distinguish a
// missing block from an empty one.
package schema

// User is one user record as served by the users service.
type User struct {
	ID               string         `json:"id"`
	Username         string         `json:"username"`
	ExternalSystemID string         `json:"externalSystemId"`
	Barcode          string         `json:"barcode"`
	Active           bool           `json:"active"`
	Type             string         `json:"type"`
	PatronGroupID    string         `json:"patronGroup"`
	DepartmentIDs    []string       `json:"departments"`
	EnrollmentDate   string         `json:"enrollmentDate"`
	ExpirationDate   string         `json:"expirationDate"`
	Personal         *Personal      `json:"personal"`
	CustomFields     map[string]any `json:"customFields"`
}

// Personal is the user's contact block.
type Personal struct {
	LastName               string    `json:"lastName"`
	FirstName              string    `json:"firstName"`
	MiddleName             string    `json:"middleName"`
	PreferredFirstName     string    `json:"preferredFirstName"`
	Email                  string    `json:"email"`
	Phone                  string    `json:"phone"`
	MobilePhone            string    `json:"mobilePhone"`
	DateOfBirth            string    `json:"dateOfBirth"`
	PreferredContactTypeID string    `json:"preferredContactTypeId"`
	Addresses              []Address `json:"addresses"`
}

// Address is one entry of the user's address list.
type Address struct {
	ID             string `json:"id"`
	CountryID      string `json:"countryId"`
	AddressLine1   string `json:"addressLine1"`
	AddressLine2   string `json:"addressLine2"`
	City           string `json:"city"`
	Region         string `json:"region"`
	PostalCode     string `json:"postalCode"`
	AddressTypeID  string `json:"addressTypeId"`
	PrimaryAddress bool   `json:"primaryAddress"`
}

// UserCollection is a paginated users result set.
type UserCollection struct {
	Users        []User `json:"users"`
	TotalRecords int    `json:"totalRecords"`
}
