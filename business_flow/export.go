package businessflow

import (
	"github.com/amirphl/smm-panel/app/dto"
	"github.com/xuri/excelize/v2"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// maxExportRows bounds one spreadsheet download
const maxExportRows = 10000

// buildWorkbook writes header and records to a single-sheet workbook
func buildWorkbook(filename, sheet string, header []string, records [][]string) (*dto.ExportFile, error) {
	xl := excelize.NewFile()
	defer func() { _ = xl.Close() }()

	xl.SetSheetName(xl.GetSheetName(0), sheet)
	if err := xl.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, NewBusinessError("EXCEL_WRITE_ERROR", "Failed to write Excel header", err)
	}
	for i, record := range records {
		cellRef, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := xl.SetSheetRow(sheet, cellRef, &record); err != nil {
			return nil, NewBusinessError("EXCEL_WRITE_ERROR", "Failed to write Excel row", err)
		}
	}

	buf, err := xl.WriteToBuffer()
	if err != nil {
		return nil, NewBusinessError("EXCEL_WRITE_ERROR", "Failed to write Excel file", err)
	}
	return &dto.ExportFile{
		Filename:    filename,
		ContentType: xlsxContentType,
		Data:        buf.Bytes(),
	}, nil
}
