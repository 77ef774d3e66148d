package adapters

import (
	"context"
	"fmt"

	"github.com/JonMunkholm/bulkedit/internal/core"
	"github.com/JonMunkholm/bulkedit/internal/records"
	"github.com/JonMunkholm/bulkedit/internal/refdata"
	"github.com/JonMunkholm/bulkedit/internal/schema"
	"github.com/JonMunkholm/bulkedit/internal/tenant"
)

// ItemAdapter converts item records. Items are tenant-spannable: the
// trailing Tenant column records the member tenant the row came from.
type ItemAdapter struct {
	resolver *refdata.Resolver
	records  *records.Client
}

var itemHeader = []core.Cell{
	core.Column("Item id"),
	core.Column("Item HRID"),
	core.Column("Barcode"),
	core.Column("Accession number"),
	core.Column("Status"),
	core.Column("Material type"),
	core.Column("Permanent loan type"),
	core.Column("Temporary loan type"),
	core.Column("Permanent location"),
	core.Column("Temporary location"),
	core.Column("Effective location"),
	core.Column("Call number"),
	core.Column("Copy number"),
	core.Column("Enumeration"),
	core.Column("Chronology"),
	core.Column("Volume"),
	core.Column("Year caption"),
	core.Column("Item damaged status"),
	core.Column("In transit destination service point"),
	core.Column("Statistical codes"),
	core.Column("Administrative notes"),
	core.Column(LabelNotes),
	core.Column("Circulation notes"),
	core.Column("Electronic access"),
	core.Column("Suppressed from discovery"),
	core.Column(LabelTenant),
}

func (a *ItemAdapter) Kind() core.EntityKind { return core.KindItem }

func (a *ItemAdapter) Header() []core.Cell { return itemHeader }

// Identifier computes the human-facing identifier for error attribution.
func (a *ItemAdapter) Identifier(entity any, idType core.IdentifierType) string {
	item, ok := entity.(schema.Item)
	if !ok {
		return ""
	}
	switch idType {
	case core.IdentifierBarcode:
		return item.Barcode
	case core.IdentifierHRID:
		return item.HRID
	case core.IdentifierAccessionNumber:
		return item.AccessionNumber
	case core.IdentifierFormerIDs:
		return joinScalars(item.FormerIDs)
	default:
		return item.ID
	}
}

func (a *ItemAdapter) Convert(ctx context.Context, tctx tenant.Context, entity any, sink core.ErrorSink, idType core.IdentifierType) (*core.UnifiedTable, error) {
	item, ok := entity.(schema.Item)
	if !ok {
		return nil, fmt.Errorf("expected item record, got %T", entity)
	}
	recordID := a.Identifier(entity, idType)

	status := ""
	if item.Status != nil {
		status = item.Status.Name
	}

	callNumber := composite(
		a.resolver.Resolve(ctx, tctx, refdata.CallNumberTypes, item.ItemLevelCallNumberTypeID, sink, recordID),
		item.ItemLevelCallNumberPrefix,
		item.ItemLevelCallNumber,
		item.ItemLevelCallNumberSuffix,
	)

	noteInstances := make([]string, 0, len(item.Notes))
	for _, n := range item.Notes {
		typeName := a.resolver.Resolve(ctx, tctx, refdata.ItemNoteTypes, n.ItemNoteTypeID, sink, recordID)
		noteInstances = append(noteInstances, composite(typeName, n.Note, boolString(n.StaffOnly)))
	}

	circInstances := make([]string, 0, len(item.CirculationNotes))
	for _, n := range item.CirculationNotes {
		circInstances = append(circInstances, composite(n.NoteType, n.Note, boolString(n.StaffOnly)))
	}

	table := core.NewUnifiedTable(itemHeader)
	err := table.AddRow(
		item.ID,
		item.HRID,
		item.Barcode,
		item.AccessionNumber,
		status,
		a.resolver.Resolve(ctx, tctx, refdata.MaterialTypes, item.MaterialTypeID, sink, recordID),
		a.resolver.Resolve(ctx, tctx, refdata.LoanTypes, item.PermanentLoanTypeID, sink, recordID),
		a.resolver.Resolve(ctx, tctx, refdata.LoanTypes, item.TemporaryLoanTypeID, sink, recordID),
		a.resolver.Resolve(ctx, tctx, refdata.Locations, item.PermanentLocationID, sink, recordID),
		a.resolver.Resolve(ctx, tctx, refdata.Locations, item.TemporaryLocationID, sink, recordID),
		a.resolver.Resolve(ctx, tctx, refdata.Locations, item.EffectiveLocationID, sink, recordID),
		callNumber,
		item.CopyNumber,
		item.Enumeration,
		item.Chronology,
		item.Volume,
		joinScalars(item.YearCaption),
		a.resolver.Resolve(ctx, tctx, refdata.DamagedStatuses, item.ItemDamagedStatusID, sink, recordID),
		a.resolver.Resolve(ctx, tctx, refdata.ServicePoints, item.InTransitDestinationServicePointID, sink, recordID),
		joinScalars(a.resolver.ResolveAll(ctx, tctx, refdata.StatisticalCodes, item.StatisticalCodeIDs, sink, recordID)),
		joinScalars(item.AdministrativeNotes),
		joinComposites(noteInstances),
		joinComposites(circInstances),
		electronicAccessCell(item.ElectronicAccess),
		boolString(item.DiscoverySuppress),
		tctx.TenantID,
	)
	if err != nil {
		return nil, err
	}
	return table, nil
}

// ByQuery maps a remote paginated result set with no error attribution.
func (a *ItemAdapter) ByQuery(ctx context.Context, tctx tenant.Context, query string, offset, limit int) (*core.UnifiedTable, error) {
	coll, err := a.records.Items(ctx, tctx, query, offset, limit)
	if err != nil {
		return nil, err
	}
	table := core.NewUnifiedTable(itemHeader)
	for _, item := range coll.Items {
		row, err := a.Convert(ctx, tctx, item, nil, core.IdentifierID)
		if err != nil {
			return nil, err
		}
		if err := table.Append(row); err != nil {
			return nil, err
		}
	}
	return table, nil
}
