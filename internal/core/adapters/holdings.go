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

// HoldingsAdapter converts holdings records. Holdings are
// tenant-spannable, so the header carries the trailing Tenant column.
type HoldingsAdapter struct {
	resolver *refdata.Resolver
	records  *records.Client
}

var holdingsHeader = []core.Cell{
	core.Column("Holdings id"),
	core.Column("Holdings HRID"),
	core.Column("Former ids"),
	core.Column("Instance id"),
	core.Column("Permanent location"),
	core.Column("Temporary location"),
	core.Column("Effective location"),
	core.Column("Call number type"),
	core.Column("Call number prefix"),
	core.Column("Call number"),
	core.Column("Call number suffix"),
	core.Column("Shelving title"),
	core.Column("Copy number"),
	core.Column("Receipt status"),
	core.Column("Retention policy"),
	core.Column("Statistical codes"),
	core.Column("Administrative notes"),
	core.Column(LabelNotes),
	core.Column("Electronic access"),
	core.Column("Suppressed from discovery"),
	core.Column(LabelTenant),
}

func (a *HoldingsAdapter) Kind() core.EntityKind { return core.KindHoldings }

func (a *HoldingsAdapter) Header() []core.Cell { return holdingsHeader }

func (a *HoldingsAdapter) Identifier(entity any, idType core.IdentifierType) string {
	h, ok := entity.(schema.Holdings)
	if !ok {
		return ""
	}
	switch idType {
	case core.IdentifierHRID:
		return h.HRID
	case core.IdentifierFormerIDs:
		return joinScalars(h.FormerIDs)
	default:
		return h.ID
	}
}

func (a *HoldingsAdapter) Convert(ctx context.Context, tctx tenant.Context, entity any, sink core.ErrorSink, idType core.IdentifierType) (*core.UnifiedTable, error) {
	h, ok := entity.(schema.Holdings)
	if !ok {
		return nil, fmt.Errorf("expected holdings record, got %T", entity)
	}
	recordID := a.Identifier(entity, idType)

	noteInstances := make([]string, 0, len(h.Notes))
	for _, n := range h.Notes {
		typeName := a.resolver.Resolve(ctx, tctx, refdata.HoldingsNoteTypes, n.HoldingsNoteTypeID, sink, recordID)
		noteInstances = append(noteInstances, composite(typeName, n.Note, boolString(n.StaffOnly)))
	}

	table := core.NewUnifiedTable(holdingsHeader)
	err := table.AddRow(
		h.ID,
		h.HRID,
		joinScalars(h.FormerIDs),
		h.InstanceID,
		a.resolver.Resolve(ctx, tctx, refdata.Locations, h.PermanentLocationID, sink, recordID),
		a.resolver.Resolve(ctx, tctx, refdata.Locations, h.TemporaryLocationID, sink, recordID),
		a.resolver.Resolve(ctx, tctx, refdata.Locations, h.EffectiveLocationID, sink, recordID),
		a.resolver.Resolve(ctx, tctx, refdata.CallNumberTypes, h.CallNumberTypeID, sink, recordID),
		h.CallNumberPrefix,
		h.CallNumber,
		h.CallNumberSuffix,
		h.ShelvingTitle,
		h.CopyNumber,
		h.ReceiptStatus,
		h.RetentionPolicy,
		joinScalars(a.resolver.ResolveAll(ctx, tctx, refdata.StatisticalCodes, h.StatisticalCodeIDs, sink, recordID)),
		joinScalars(h.AdministrativeNotes),
		joinComposites(noteInstances),
		electronicAccessCell(h.ElectronicAccess),
		boolString(h.DiscoverySuppress),
		tctx.TenantID,
	)
	if err != nil {
		return nil, err
	}
	return table, nil
}

func (a *HoldingsAdapter) ByQuery(ctx context.Context, tctx tenant.Context, query string, offset, limit int) (*core.UnifiedTable, error) {
	coll, err := a.records.Holdings(ctx, tctx, query, offset, limit)
	if err != nil {
		return nil, err
	}
	table := core.NewUnifiedTable(holdingsHeader)
	for _, h := range coll.HoldingsRecords {
		row, err := a.Convert(ctx, tctx, h, nil, core.IdentifierID)
		if err != nil {
			return nil, err
		}
		if err := table.Append(row); err != nil {
			return nil, err
		}
	}
	return table, nil
}
