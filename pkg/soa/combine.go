package soa

import (
	"fmt"

	"github.com/codeready-toolchain/protocolx/ent"
)

// CombineGroup reconciles column headers across every table in a
// confirmed merge group and row-concatenates their raw extracted rows
// into one merged table, recording which source table and page range
// each merged row came from.
func CombineGroup(tables []*ent.TableResult) (mergedRows [][]string, mergedHeaders []string, provenance map[string]interface{}) {
	headerIndex := make(map[string]int)
	for _, t := range tables {
		for _, h := range t.ColumnHeaders {
			if _, ok := headerIndex[h]; !ok {
				headerIndex[h] = len(mergedHeaders)
				mergedHeaders = append(mergedHeaders, h)
			}
		}
	}

	rowSources := make([]map[string]interface{}, 0)
	for _, t := range tables {
		colMap := make([]int, len(t.ColumnHeaders))
		for i, h := range t.ColumnHeaders {
			colMap[i] = headerIndex[h]
		}

		for _, row := range t.RawRows {
			merged := make([]string, len(mergedHeaders))
			for i, cell := range row {
				if i >= len(colMap) {
					break
				}
				merged[colMap[i]] = cell
			}
			mergedRows = append(mergedRows, merged)
			rowSources = append(rowSources, map[string]interface{}{
				"table_result_id": t.ID,
				"table_label":     t.TableLabel,
				"page_start":      t.PageStart,
				"page_end":        t.PageEnd,
			})
		}
	}

	provenance = map[string]interface{}{
		"row_sources": rowSources,
		"source_tables": func() []string {
			ids := make([]string, len(tables))
			for i, t := range tables {
				ids[i] = t.ID
			}
			return ids
		}(),
	}
	return mergedRows, mergedHeaders, provenance
}

func groupDisplayName(groupLabel string, tableIDs []string) string {
	return fmt.Sprintf("%s (%d table(s))", groupLabel, len(tableIDs))
}
