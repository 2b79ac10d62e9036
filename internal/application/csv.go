package application

import (
	"strings"

	"github.com/wms-platform/scanwatch-service/internal/domain"
)

// utf8BOM lets spreadsheet tools pick up the CJK header columns correctly.
const utf8BOM = "\xEF\xBB\xBF"

// csvHeader is the fixed column set of an export. Column names carry over
// from the operations team's existing spreadsheets, CJK labels included.
var csvHeader = []string{
	"Tracking Number",
	"Order ID",
	"仓库",
	"Zone",
	"Driver ID",
	"状态",
	"未更新时间",
}

// BuildCSV serializes records into the export payload. Pure function: no
// I/O, no mutation of the input. Every field is double-quoted with embedded
// quotes doubled, so downstream parsers never have to guess at quoting.
func BuildCSV(records []domain.ScanRecord) []byte {
	var b strings.Builder
	b.WriteString(utf8BOM)
	b.WriteString(joinRow(csvHeader))

	for _, r := range records {
		timestamp := "N/A"
		if r.NonUpdatedSince != nil {
			timestamp = *r.NonUpdatedSince
		}

		b.WriteString("\n")
		b.WriteString(joinRow([]string{
			r.TrackingNumber,
			r.OrderID,
			r.Warehouse,
			r.Zone,
			r.DriverID,
			r.CurrentStatus,
			timestamp,
		}))
	}

	return []byte(b.String())
}

func joinRow(fields []string) string {
	quoted := make([]string, len(fields))
	for i, f := range fields {
		quoted[i] = `"` + strings.ReplaceAll(f, `"`, `""`) + `"`
	}
	return strings.Join(quoted, ",")
}
