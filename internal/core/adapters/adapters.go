// Package adapters converts per-tenant domain records into the unified
// table form. One adapter per entity kind; all of them resolve foreign
// keys into display names through the reference resolver and follow the
// shared delimiter contract for repeated values.
package adapters

import (
	"strconv"

	"github.com/JonMunkholm/bulkedit/internal/core"
	"github.com/JonMunkholm/bulkedit/internal/records"
	"github.com/JonMunkholm/bulkedit/internal/refdata"
	"github.com/JonMunkholm/bulkedit/internal/schema"
)

// Shared column labels the note consolidation processor keys on.
const (
	LabelNotes  = "Notes"
	LabelTenant = "Tenant"
)

// NewRegistry builds the adapter registry for all entity kinds.
// Called once at startup; dispatch afterwards is by kind only.
func NewRegistry(resolver *refdata.Resolver, recs *records.Client) *core.Registry {
	reg := core.NewRegistry()
	reg.Register(&UserAdapter{resolver: resolver, records: recs})
	reg.Register(&ItemAdapter{resolver: resolver, records: recs})
	reg.Register(&HoldingsAdapter{resolver: resolver, records: recs})
	reg.Register(&InstanceAdapter{resolver: resolver, records: recs})
	return reg
}

// NoteTypeKind maps an entity kind to its note-type catalog.
func NoteTypeKind(kind core.EntityKind) (refdata.Kind, bool) {
	switch kind {
	case core.KindItem:
		return refdata.ItemNoteTypes, true
	case core.KindHoldings:
		return refdata.HoldingsNoteTypes, true
	case core.KindInstance:
		return refdata.InstanceNoteTypes, true
	}
	return refdata.Kind{}, false
}

// joinScalars renders a repeated scalar field: values escaped and
// joined with ";". Nil and empty both render as an empty string.
func joinScalars(values []string) string {
	return core.JoinEscaped(values, core.ArrayDelimiter)
}

// composite renders one sub-record: its fields escaped and joined
// with ";". A sub-record with no content at all renders as an empty
// string, not as bare delimiters.
func composite(fields ...string) string {
	for _, f := range fields {
		if f != "" {
			return core.JoinEscaped(fields, core.ArrayDelimiter)
		}
	}
	return ""
}

// joinComposites renders a repeated composite field: instances joined
// with "|". Each instance must already be a composite() result.
func joinComposites(instances []string) string {
	if len(instances) == 0 {
		return ""
	}
	out := instances[0]
	for _, inst := range instances[1:] {
		out += core.ItemDelimiter + inst
	}
	return out
}

func boolString(b bool) string {
	return strconv.FormatBool(b)
}

// electronicAccessCell renders the shared electronic-access composite.
func electronicAccessCell(entries []schema.ElectronicAccess) string {
	instances := make([]string, 0, len(entries))
	for _, e := range entries {
		instances = append(instances, composite(e.URI, e.LinkText, e.MaterialsSpecification, e.PublicNote))
	}
	return joinComposites(instances)
}
