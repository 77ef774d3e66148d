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

// InstanceAdapter converts instance records. Instances live in the
// central tenant only, so the header carries no tenant column.
type InstanceAdapter struct {
	resolver *refdata.Resolver
	records  *records.Client
}

var instanceHeader = []core.Cell{
	core.Column("Instance id"),
	core.Column("Instance HRID"),
	core.Column("Source"),
	core.Column("Cataloged date"),
	core.Column("Instance title"),
	core.Column("Index title"),
	core.Column("Series"),
	core.Column("Contributors"),
	core.Column("Editions"),
	core.Column("Languages"),
	core.Column("Publication"),
	core.Column("Statistical codes"),
	core.Column("Administrative notes"),
	core.Column(LabelNotes),
	core.Column("Suppressed from discovery"),
	core.Column("Staff suppress"),
	core.Column("Previously held"),
}

func (a *InstanceAdapter) Kind() core.EntityKind { return core.KindInstance }

func (a *InstanceAdapter) Header() []core.Cell { return instanceHeader }

func (a *InstanceAdapter) Identifier(entity any, idType core.IdentifierType) string {
	inst, ok := entity.(schema.Instance)
	if !ok {
		return ""
	}
	switch idType {
	case core.IdentifierHRID:
		return inst.HRID
	default:
		return inst.ID
	}
}

func (a *InstanceAdapter) Convert(ctx context.Context, tctx tenant.Context, entity any, sink core.ErrorSink, idType core.IdentifierType) (*core.UnifiedTable, error) {
	inst, ok := entity.(schema.Instance)
	if !ok {
		return nil, fmt.Errorf("expected instance record, got %T", entity)
	}
	recordID := a.Identifier(entity, idType)

	contributors := make([]string, 0, len(inst.Contributors))
	for _, c := range inst.Contributors {
		contributors = append(contributors, composite(c.Name, boolString(c.Primary)))
	}

	publications := make([]string, 0, len(inst.Publication))
	for _, p := range inst.Publication {
		publications = append(publications, composite(p.Publisher, p.Place, p.DateOfPublication))
	}

	series := make([]string, 0, len(inst.Series))
	for _, s := range inst.Series {
		series = append(series, s.Value)
	}

	noteInstances := make([]string, 0, len(inst.Notes))
	for _, n := range inst.Notes {
		typeName := a.resolver.Resolve(ctx, tctx, refdata.InstanceNoteTypes, n.InstanceNoteTypeID, sink, recordID)
		noteInstances = append(noteInstances, composite(typeName, n.Note, boolString(n.StaffOnly)))
	}

	table := core.NewUnifiedTable(instanceHeader)
	err := table.AddRow(
		inst.ID,
		inst.HRID,
		inst.Source,
		inst.CatalogedDate,
		inst.Title,
		inst.IndexTitle,
		joinScalars(series),
		joinComposites(contributors),
		joinScalars(inst.Editions),
		joinScalars(inst.Languages),
		joinComposites(publications),
		joinScalars(a.resolver.ResolveAll(ctx, tctx, refdata.StatisticalCodes, inst.StatisticalCodeIDs, sink, recordID)),
		joinScalars(inst.AdministrativeNotes),
		joinComposites(noteInstances),
		boolString(inst.DiscoverySuppress),
		boolString(inst.StaffSuppress),
		boolString(inst.PreviouslyHeld),
	)
	if err != nil {
		return nil, err
	}
	return table, nil
}

func (a *InstanceAdapter) ByQuery(ctx context.Context, tctx tenant.Context, query string, offset, limit int) (*core.UnifiedTable, error) {
	coll, err := a.records.Instances(ctx, tctx, query, offset, limit)
	if err != nil {
		return nil, err
	}
	table := core.NewUnifiedTable(instanceHeader)
	for _, inst := range coll.Instances {
		row, err := a.Convert(ctx, tctx, inst, nil, core.IdentifierID)
		if err != nil {
			return nil, err
		}
		if err := table.Append(row); err != nil {
			return nil, err
		}
	}
	return table, nil
}
