package postgres

// reportColumns is the canonical column order used by every report scan.
const reportColumns = `id, category, period_start, period_end, granularity, indicators, metadata, status, generated_at, updated_at`

const (
	queryInsertReport = `
		INSERT INTO reports (
			id, category, period_start, period_end, granularity,
			indicators, metadata, status, generated_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (category, period_start, period_end) DO NOTHING
		RETURNING id
	`

	querySelectReportByBucket = `
		SELECT ` + reportColumns + `
		FROM reports
		WHERE category = $1 AND period_start = $2 AND period_end = $3
	`

	querySelectReportByID = `
		SELECT ` + reportColumns + `
		FROM reports
		WHERE id = $1
	`

	// FOR UPDATE serializes concurrent read-modify-write cycles on one report.
	querySelectReportForUpdate = `
		SELECT ` + reportColumns + `
		FROM reports
		WHERE id = $1
		FOR UPDATE
	`

	queryUpdateIndicators = `
		UPDATE reports
		SET indicators = $2, updated_at = $3
		WHERE id = $1
	`

	queryMarkProcessed = `
		INSERT INTO processed_events (event_id, processed_at)
		VALUES ($1, $2)
		ON CONFLICT (event_id) DO NOTHING
	`

	queryIsProcessed = `
		SELECT EXISTS (SELECT 1 FROM processed_events WHERE event_id = $1)
	`

	queryPruneProcessed = `
		DELETE FROM processed_events WHERE processed_at < $1
	`

	queryListReports = `
		SELECT ` + reportColumns + `
		FROM reports
		WHERE ($1::text IS NULL OR category = $1)
		  AND ($2::timestamptz IS NULL OR period_start >= $2)
		  AND ($3::timestamptz IS NULL OR period_start <= $3)
		  AND ($4::text IS NULL OR status = $4)
		ORDER BY generated_at DESC
		LIMIT $5 OFFSET $6
	`

	queryCountReports = `
		SELECT COUNT(*)
		FROM reports
		WHERE ($1::text IS NULL OR category = $1)
		  AND ($2::timestamptz IS NULL OR period_start >= $2)
		  AND ($3::timestamptz IS NULL OR period_start <= $3)
		  AND ($4::text IS NULL OR status = $4)
	`

	queryListForMetrics = `
		SELECT ` + reportColumns + `
		FROM reports
		WHERE ($1::timestamptz IS NULL OR period_start >= $1)
		  AND ($2::timestamptz IS NULL OR period_start <= $2)
	`
)
