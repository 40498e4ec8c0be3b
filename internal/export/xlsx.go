package export

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"evidence-registry/internal/core"
)

const SheetName = "Evidence"

var header = []string{
	"ID", "File", "Size", "Content Type", "SHA-256", "CID", "Fingerprint",
	"Storage Path", "Tx ID", "Block", "Merkle Root", "Organization", "Anchored At",
}

// WriteWorkbook writes one row per anchored document to path.
func WriteWorkbook(path string, docs []core.Anchored) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	for col, title := range header {
		if err := setCell(f, col+1, 1, title); err != nil {
			return err
		}
	}
	for i, d := range docs {
		row := []interface{}{
			d.ID, d.Filename, d.Size, d.ContentType, d.FileHash, d.ContentID, d.Fingerprint,
			d.StoragePath, d.TxID, d.BlockNumber, d.MerkleRoot, d.Organization,
			d.CreatedAt.UTC().Format(time.RFC3339),
		}
		for col, v := range row {
			if err := setCell(f, col+1, i+2, v); err != nil {
				return err
			}
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

func setCell(f *excelize.File, col, row int, v interface{}) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	return f.SetCellValue(SheetName, cell, v)
}
