// Package notes rewrites an exported CSV's generic notes column into
// one column per distinct note-type name, merging type vocabularies
// across every tenant a consortial run touched.
package notes

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/JonMunkholm/bulkedit/internal/consortia"
	"github.com/JonMunkholm/bulkedit/internal/core"
	"github.com/JonMunkholm/bulkedit/internal/core/adapters"
	"github.com/JonMunkholm/bulkedit/internal/refdata"
	"github.com/JonMunkholm/bulkedit/internal/tenant"
)

// TenantNameHeader replaces the raw tenant-id column header when the
// export keeps the column in a consortial run.
const TenantNameHeader = "Tenant name"

// Processor performs the notes rewrite. Pure given fixed tenant and
// operation state plus the resolved note-type catalog, which is
// computed once per invocation, never per row.
type Processor struct {
	resolver  *refdata.Resolver
	consortia *consortia.Client
}

// NewProcessor wires the processor over its collaborators.
func NewProcessor(resolver *refdata.Resolver, cons *consortia.Client) *Processor {
	return &Processor{resolver: resolver, consortia: cons}
}

// Consolidate rewrites the raw CSV export of an operation.
//
// Any row parse failure aborts the whole rewrite and returns empty
// output rather than a partial file; the abort is reported through the
// sink so the data loss stays visible in the error log.
func (p *Processor) Consolidate(ctx context.Context, tctx tenant.Context, op core.BulkOperation, input []byte, sink core.ErrorSink) ([]byte, error) {
	noteKind, hasNotes := adapters.NoteTypeKind(op.EntityKind)
	if !hasNotes {
		// Users carry no consolidated notes column; pass through.
		return input, nil
	}

	central, err := p.consortia.CentralTenant(ctx, tctx)
	if err != nil {
		return p.abort(op, sink, fmt.Errorf("resolve central tenant: %w", err))
	}
	consortial := central != "" && central == tctx.TenantID

	typeNames, err := p.noteTypeCatalog(ctx, tctx, op, noteKind, consortial)
	if err != nil {
		return p.abort(op, sink, fmt.Errorf("resolve note-type catalog: %w", err))
	}

	out, err := p.rewrite(ctx, tctx, op, input, typeNames, consortial)
	if err != nil {
		return p.abort(op, sink, err)
	}
	return out, nil
}

// abort implements the fail-closed contract: empty output, the cause
// recorded against the operation.
func (p *Processor) abort(op core.BulkOperation, sink core.ErrorSink, err error) ([]byte, error) {
	if sink != nil {
		sink.Record(op.ID.String(), "notes consolidation aborted: "+err.Error(), core.SeverityError)
	}
	return []byte{}, err
}

// noteTypeCatalog computes the ordered, name-deduplicated note-type
// list for the current tenant plus, in a central-tenant run, every
// member tenant the operation touched. Tenant-scoped cache entries are
// invalidated around each switch.
func (p *Processor) noteTypeCatalog(ctx context.Context, tctx tenant.Context, op core.BulkOperation, noteKind refdata.Kind, consortial bool) ([]string, error) {
	tenants := []string{tctx.TenantID}
	if consortial {
		for _, t := range op.UsedTenants {
			if t != tctx.TenantID {
				tenants = append(tenants, t)
			}
		}
	}

	seen := make(map[string]bool)
	var names []string
	for _, t := range tenants {
		p.resolver.InvalidateTenant(t)
		err := tctx.InTenant(t, func(tc tenant.Context) error {
			tenantNames, err := p.resolver.NoteTypeNames(ctx, tc, noteKind)
			if err != nil {
				return err
			}
			for _, n := range tenantNames {
				if !seen[n] {
					seen[n] = true
					names = append(names, n)
				}
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("note types for tenant %s: %w", t, err)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (p *Processor) rewrite(ctx context.Context, tctx tenant.Context, op core.BulkOperation, input []byte, typeNames []string, consortial bool) ([]byte, error) {
	r := csv.NewReader(bytes.NewReader(input))
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	notesIdx := indexOf(header, adapters.LabelNotes)
	if notesIdx < 0 {
		return nil, fmt.Errorf("header has no %q column", adapters.LabelNotes)
	}
	tenantIdx := indexOf(header, adapters.LabelTenant)

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	outHeader := spliceColumns(header, notesIdx, typeNames)
	outTenantIdx := tenantIdx
	if tenantIdx >= 0 {
		if tenantIdx > notesIdx {
			outTenantIdx = tenantIdx - 1 + len(typeNames)
		}
		if consortial {
			outHeader[outTenantIdx] = TenantNameHeader
		} else {
			outHeader = dropColumn(outHeader, outTenantIdx)
		}
	}
	if err := w.Write(outHeader); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	// Tenant display names are stable within one invocation.
	tenantNames := make(map[string]string)

	line := 1
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("parse row %d: %w", line, err)
		}
		if len(row) != len(header) {
			return nil, fmt.Errorf("row %d has %d cells, header has %d", line, len(row), len(header))
		}

		byType, err := decodeNotes(row[notesIdx])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", line, err)
		}

		typeCells := make([]string, len(typeNames))
		for i, name := range typeNames {
			typeCells[i] = strings.Join(byType[name], core.ItemDelimiter)
		}

		outRow := spliceColumns(row, notesIdx, typeCells)
		if tenantIdx >= 0 {
			if consortial {
				id := outRow[outTenantIdx]
				name, ok := tenantNames[id]
				if !ok {
					name = p.consortia.TenantName(ctx, tctx, id)
					tenantNames[id] = name
				}
				outRow[outTenantIdx] = name
			} else {
				outRow = dropColumn(outRow, outTenantIdx)
			}
		}

		if err := w.Write(outRow); err != nil {
			return nil, fmt.Errorf("write row %d: %w", line, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decodeNotes parses the opaque notes blob back into per-type rendered
// entries. The blob is instances joined with "|", each instance the
// fields type;note;staffOnly with delimiter characters percent-escaped.
func decodeNotes(blob string) (map[string][]string, error) {
	byType := make(map[string][]string)
	if blob == "" {
		return byType, nil
	}
	for _, instance := range strings.Split(blob, core.ItemDelimiter) {
		fields := strings.Split(instance, core.ArrayDelimiter)
		if len(fields) != 3 {
			return nil, fmt.Errorf("malformed note entry %q: expected 3 fields, got %d", instance, len(fields))
		}
		typeName := core.RestoreDelimiters(fields[0])
		entry := fields[1] + core.ArrayDelimiter + fields[2]
		byType[typeName] = append(byType[typeName], entry)
	}
	return byType, nil
}

func indexOf(header []string, label string) int {
	for i, h := range header {
		if h == label {
			return i
		}
	}
	return -1
}

// spliceColumns replaces the single column at idx with the given
// replacement columns, preserving surrounding order.
func spliceColumns(row []string, idx int, replacement []string) []string {
	out := make([]string, 0, len(row)-1+len(replacement))
	out = append(out, row[:idx]...)
	out = append(out, replacement...)
	out = append(out, row[idx+1:]...)
	return out
}

func dropColumn(row []string, idx int) []string {
	out := make([]string, 0, len(row)-1)
	out = append(out, row[:idx]...)
	out = append(out, row[idx+1:]...)
	return out
}
