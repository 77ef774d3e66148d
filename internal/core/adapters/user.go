package adapters

import (
	"context"
	"fmt"
	"sort"

	"github.com/JonMunkholm/bulkedit/internal/core"
	"github.com/JonMunkholm/bulkedit/internal/records"
	"github.com/JonMunkholm/bulkedit/internal/refdata"
	"github.com/JonMunkholm/bulkedit/internal/schema"
	"github.com/JonMunkholm/bulkedit/internal/tenant"
)

// UserAdapter converts user records. Users never span tenants, so the
// header carries no tenant column.
type UserAdapter struct {
	resolver *refdata.Resolver
	records  *records.Client
}

var userHeader = []core.Cell{
	core.Column("User id"),
	core.Column("Username"),
	core.Column("External system id"),
	core.Column("Barcode"),
	core.Column("Active"),
	core.Column("Type"),
	core.Column("Patron group"),
	core.Column("Departments"),
	core.Column("Enrollment date"),
	core.Column("Expiration date"),
	core.Column("Last name"),
	core.Column("First name"),
	core.Column("Middle name"),
	core.Column("Preferred first name"),
	core.Column("Email"),
	core.Column("Phone"),
	core.Column("Mobile phone"),
	core.Column("Date of birth"),
	core.Column("Preferred contact type"),
	core.Column("Addresses"),
	core.Column("Custom fields"),
}

// preferredContactTypes is a fixed vocabulary, not a remote catalog.
var preferredContactTypes = map[string]string{
	"001": "Mail (Primary Address)",
	"002": "Email",
	"003": "Text Message",
}

func (a *UserAdapter) Kind() core.EntityKind { return core.KindUser }

func (a *UserAdapter) Header() []core.Cell { return userHeader }

func (a *UserAdapter) Identifier(entity any, idType core.IdentifierType) string {
	u, ok := entity.(schema.User)
	if !ok {
		return ""
	}
	switch idType {
	case core.IdentifierBarcode:
		return u.Barcode
	case core.IdentifierUsername:
		return u.Username
	case core.IdentifierExternalID:
		return u.ExternalSystemID
	default:
		return u.ID
	}
}

func (a *UserAdapter) Convert(ctx context.Context, tctx tenant.Context, entity any, sink core.ErrorSink, idType core.IdentifierType) (*core.UnifiedTable, error) {
	u, ok := entity.(schema.User)
	if !ok {
		return nil, fmt.Errorf("expected user record, got %T", entity)
	}
	recordID := a.Identifier(entity, idType)

	personal := u.Personal
	if personal == nil {
		personal = &schema.Personal{}
	}

	contactType := ""
	if id := personal.PreferredContactTypeID; id != "" {
		if name, ok := preferredContactTypes[id]; ok {
			contactType = name
		} else {
			contactType = id
		}
	}

	addresses := make([]string, 0, len(personal.Addresses))
	for _, addr := range personal.Addresses {
		addresses = append(addresses, composite(
			addr.AddressLine1,
			addr.AddressLine2,
			addr.City,
			addr.Region,
			addr.PostalCode,
			boolString(addr.PrimaryAddress),
		))
	}

	table := core.NewUnifiedTable(userHeader)
	err := table.AddRow(
		u.ID,
		u.Username,
		u.ExternalSystemID,
		u.Barcode,
		boolString(u.Active),
		u.Type,
		a.resolver.Resolve(ctx, tctx, refdata.PatronGroups, u.PatronGroupID, sink, recordID),
		joinScalars(a.resolver.ResolveAll(ctx, tctx, refdata.Departments, u.DepartmentIDs, sink, recordID)),
		u.EnrollmentDate,
		u.ExpirationDate,
		personal.LastName,
		personal.FirstName,
		personal.MiddleName,
		personal.PreferredFirstName,
		personal.Email,
		personal.Phone,
		personal.MobilePhone,
		personal.DateOfBirth,
		contactType,
		joinComposites(addresses),
		a.customFieldsCell(ctx, tctx, u.CustomFields, sink, recordID),
	)
	if err != nil {
		return nil, err
	}
	return table, nil
}

// customFieldsCell renders the custom-field map as "name:value" pairs
// joined with ";". Field reference ids resolve to display names;
// iteration is sorted so the cell is deterministic.
func (a *UserAdapter) customFieldsCell(ctx context.Context, tctx tenant.Context, fields map[string]any, sink core.ErrorSink, recordID string) string {
	if len(fields) == 0 {
		return ""
	}
	refIDs := make([]string, 0, len(fields))
	for refID := range fields {
		refIDs = append(refIDs, refID)
	}
	sort.Strings(refIDs)

	pairs := make([]string, 0, len(refIDs))
	for _, refID := range refIDs {
		name := a.resolver.Resolve(ctx, tctx, refdata.CustomFields, refID, sink, recordID)
		value := fmt.Sprintf("%v", fields[refID])
		pairs = append(pairs,
			core.EscapeDelimiters(name)+core.KeyValueDelimiter+core.EscapeDelimiters(value))
	}
	out := pairs[0]
	for _, p := range pairs[1:] {
		out += core.ArrayDelimiter + p
	}
	return out
}

func (a *UserAdapter) ByQuery(ctx context.Context, tctx tenant.Context, query string, offset, limit int) (*core.UnifiedTable, error) {
	coll, err := a.records.Users(ctx, tctx, query, offset, limit)
	if err != nil {
		return nil, err
	}
	table := core.NewUnifiedTable(userHeader)
	for _, u := range coll.Users {
		row, err := a.Convert(ctx, tctx, u, nil, core.IdentifierID)
		if err != nil {
			return nil, err
		}
		if err := table.Append(row); err != nil {
			return nil, err
		}
	}
	return table, nil
}
