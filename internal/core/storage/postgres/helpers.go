package postgres

import (
	"encoding/json"
	"fmt"

	"github.com/pulse-lab/pulse-reports/internal/core/report"
)

// marshalReportJSON marshals a report's indicators and metadata fields.
// Nil metadata produces nil (SQL NULL) rather than the JSON "null" string.
func marshalReportJSON(r *report.Report) (indicatorsJSON, metadataJSON []byte, err error) {
	indicatorsJSON, err = json.Marshal(r.Indicators)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal indicators: %w", err)
	}

	if len(r.Metadata) > 0 {
		metadataJSON, err = json.Marshal(r.Metadata)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to marshal metadata: %w", err)
		}
	}

	return indicatorsJSON, metadataJSON, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

// scanReportRow scans a database row into a Report.
// Compatible with both sql.Row (single) and sql.Rows (multiple).
func scanReportRow(row scanner) (*report.Report, error) {
	var r report.Report
	var indicatorsJSON, metadataJSON []byte

	err := row.Scan(
		&r.ID,
		&r.Category,
		&r.Period.Start,
		&r.Period.End,
		&r.Period.Granularity,
		&indicatorsJSON,
		&metadataJSON,
		&r.Status,
		&r.GeneratedAt,
		&r.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan report row: %w", err)
	}

	r.Indicators = report.NewIndicators()
	if len(indicatorsJSON) > 0 {
		if err := json.Unmarshal(indicatorsJSON, &r.Indicators); err != nil {
			return nil, fmt.Errorf("failed to unmarshal indicators: %w", err)
		}
	}

	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &r.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}

	return &r, nil
}
