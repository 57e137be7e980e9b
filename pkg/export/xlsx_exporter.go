package export

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

const maxSheetName = 31

// XLSXExporter renders each report section into its own worksheet.
type XLSXExporter struct{}

// NewXLSXExporter constructs an XLSX exporter.
func NewXLSXExporter() *XLSXExporter {
	return &XLSXExporter{}
}

func (e *XLSXExporter) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

func (e *XLSXExporter) Extension() string { return "xlsx" }

// Render builds the workbook in memory.
func (e *XLSXExporter) Render(report Report) ([]byte, error) {
	if err := report.validate("xlsx"); err != nil {
		return nil, err
	}
	f := excelize.NewFile()
	defer f.Close() //nolint:errcheck

	defaultSheet := f.GetSheetName(f.GetActiveSheetIndex())
	used := make(map[string]int, len(report.Sections))
	for i, section := range report.Sections {
		name := uniqueSheetName(SheetName(section.Title, i), used)
		if i == 0 {
			if err := f.SetSheetName(defaultSheet, name); err != nil {
				return nil, fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("create sheet %s: %w", name, err)
		}

		if err := writeRow(f, name, 1, section.Data.Headers); err != nil {
			return nil, err
		}
		for r, row := range section.Data.Rows {
			if err := writeRow(f, name, r+2, section.Data.record(row)); err != nil {
				return nil, err
			}
		}
	}
	f.SetActiveSheet(0)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("render xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

func writeRow(f *excelize.File, sheet string, rowNum int, values []string) error {
	for i, value := range values {
		cell, err := excelize.CoordinatesToCellName(i+1, rowNum)
		if err != nil {
			return fmt.Errorf("resolve cell: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, value); err != nil {
			return fmt.Errorf("set cell %s: %w", cell, err)
		}
	}
	return nil
}

// SheetName sanitises a section title into a valid worksheet name.
func SheetName(title string, index int) string {
	replacer := strings.NewReplacer(":", " ", "\\", " ", "/", " ", "?", " ", "*", " ", "[", "(", "]", ")", "'", "")
	name := strings.TrimSpace(replacer.Replace(title))
	if name == "" {
		name = fmt.Sprintf("Sheet%d", index+1)
	}
	if len(name) > maxSheetName {
		name = name[:maxSheetName]
	}
	return name
}

func uniqueSheetName(name string, used map[string]int) string {
	key := strings.ToLower(name)
	count := used[key]
	used[key] = count + 1
	if count == 0 {
		return name
	}
	suffix := fmt.Sprintf(" %d", count+1)
	if len(name)+len(suffix) > maxSheetName {
		name = name[:maxSheetName-len(suffix)]
	}
	return name + suffix
}
