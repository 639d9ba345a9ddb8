package weekview

import (
	"fmt"
	"hash/fnv"

	"github.com/xuri/excelize/v2"
)

// Render materializes a composed workbook into an xlsx file in memory.
// Saving it to disk is the caller's responsibility.
func Render(wb Workbook) (*excelize.File, error) {
	f := excelize.NewFile()
	for i, sheet := range wb.Sheets {
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), sheet.Name); err != nil {
				return nil, err
			}
		} else {
			if _, err := f.NewSheet(sheet.Name); err != nil {
				return nil, err
			}
		}
		if err := renderSheet(f, sheet.Name, sheet.Grid); err != nil {
			f.Close()
			return nil, err
		}
	}
	return f, nil
}

func renderSheet(f *excelize.File, name string, grid *Grid) error {
	tmpl := grid.Template
	fmtg := tmpl.Formatting
	slotCount := tmpl.SlotCount()

	// Column geometry: column 1 carries time labels; each day occupies
	// one column per overlap lane.
	dayStart := make([]int, len(tmpl.Layout.Days))
	col := 2
	for d := range tmpl.Layout.Days {
		dayStart[d] = col
		col += grid.LaneCount[d]
	}
	lastCol := col - 1

	st, err := newStyles(f, fmtg)
	if err != nil {
		return err
	}

	rowOffset := 1
	if tmpl.Title != "" {
		if err := f.SetCellValue(name, "A1", tmpl.Title); err != nil {
			return err
		}
		if err := f.MergeCell(name, "A1", cellName(lastCol, 1)); err != nil {
			return err
		}
		if err := f.SetCellStyle(name, "A1", "A1", st.title); err != nil {
			return err
		}
		rowOffset = 2
	}

	// Column widths.
	if err := f.SetColWidth(name, "A", "A", fmtg.TimeColumnWidth); err != nil {
		return err
	}
	startName, err := excelize.ColumnNumberToName(2)
	if err != nil {
		return err
	}
	endName, err := excelize.ColumnNumberToName(lastCol)
	if err != nil {
		return err
	}
	if err := f.SetColWidth(name, startName, endName, fmtg.DayColumnWidth); err != nil {
		return err
	}

	// Day headers, merged across the day's lanes.
	for d, day := range tmpl.Layout.Days {
		topLeft := cellName(dayStart[d], rowOffset)
		botRight := cellName(dayStart[d]+grid.LaneCount[d]-1, rowOffset)
		if err := f.SetCellValue(name, topLeft, day); err != nil {
			return err
		}
		if topLeft != botRight {
			if err := f.MergeCell(name, topLeft, botRight); err != nil {
				return err
			}
		}
		if err := f.SetCellStyle(name, topLeft, botRight, st.header); err != nil {
			return err
		}
	}

	// Time labels and row heights.
	for i := 0; i < slotCount; i++ {
		row := rowOffset + 1 + i
		cell := cellName(1, row)
		if err := f.SetCellValue(name, cell, tmpl.SlotLabel(i)); err != nil {
			return err
		}
		if err := f.SetCellStyle(name, cell, cell, st.timeCol); err != nil {
			return err
		}
		if err := f.SetRowHeight(name, row, fmtg.RowHeight); err != nil {
			return err
		}
	}

	// Borders across the whole grid area so empty slots have no gaps.
	if slotCount > 0 && lastCol >= 2 {
		first := cellName(2, rowOffset+1)
		last := cellName(lastCol, rowOffset+slotCount)
		if err := f.SetCellStyle(name, first, last, st.grid); err != nil {
			return err
		}
	}

	// Event blocks.
	for _, p := range grid.Placed {
		blockCol := dayStart[p.Day] + p.Lane
		top := rowOffset + 1 + p.RowStart
		bottom := top + p.RowSpan - 1
		topCell := cellName(blockCol, top)
		botCell := cellName(blockCol, bottom)

		display := tmpl.BlockLabel(p.Event)
		if err := f.SetCellValue(name, topCell, display); err != nil {
			return err
		}
		if bottom > top {
			if err := f.MergeCell(name, topCell, botCell); err != nil {
				return err
			}
		}
		styleID, err := st.blockFor(colorForKey(display, fmtg.Palette))
		if err != nil {
			return err
		}
		if err := f.SetCellStyle(name, topCell, botCell, styleID); err != nil {
			return err
		}
	}

	// Footer notes: one merged line each, plain text.
	if tmpl.Footer != nil {
		footerStart := rowOffset + 1 + slotCount + 2
		for i, line := range tmpl.Footer.Lines {
			if line.Text == "" {
				continue
			}
			row := footerStart + i
			left := cellName(2, row)
			if err := f.SetCellValue(name, left, line.Text); err != nil {
				return err
			}
			if lastCol > 2 {
				if err := f.MergeCell(name, left, cellName(lastCol, row)); err != nil {
					return err
				}
			}
			if err := f.SetCellStyle(name, left, left, st.footer); err != nil {
				return err
			}
		}
	}

	return nil
}

// styles caches the per-file style IDs the renderer needs.
type styles struct {
	f      *excelize.File
	border []excelize.Border

	grid    int
	header  int
	timeCol int
	title   int
	footer  int

	blocks map[string]int
}

func newStyles(f *excelize.File, fmtg Formatting) (*styles, error) {
	st := &styles{
		f:      f,
		border: borderDefs(fmtg.Border),
		blocks: make(map[string]int),
	}

	center := &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true}

	var err error
	if st.grid, err = f.NewStyle(&excelize.Style{Border: st.border, Alignment: center}); err != nil {
		return nil, err
	}
	if st.header, err = f.NewStyle(&excelize.Style{
		Border:    st.border,
		Alignment: center,
		Font:      &excelize.Font{Bold: true},
		Fill:      solidFill(fmtg.HeaderFill),
	}); err != nil {
		return nil, err
	}
	if st.timeCol, err = f.NewStyle(&excelize.Style{
		Border:    st.border,
		Alignment: center,
		Font:      &excelize.Font{Bold: true},
		Fill:      solidFill(fmtg.TimeFill),
	}); err != nil {
		return nil, err
	}
	if st.title, err = f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Font:      &excelize.Font{Bold: true, Size: 14},
	}); err != nil {
		return nil, err
	}
	if st.footer, err = f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Horizontal: "left", Vertical: "center"},
	}); err != nil {
		return nil, err
	}
	return st, nil
}

// blockFor returns a bordered, centered style with the given fill color,
// creating and caching it on first use. Empty color means no fill.
func (st *styles) blockFor(color string) (int, error) {
	if id, ok := st.blocks[color]; ok {
		return id, nil
	}
	style := &excelize.Style{
		Border:    st.border,
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
	}
	if color != "" {
		style.Fill = solidFill(color)
	}
	id, err := st.f.NewStyle(style)
	if err != nil {
		return 0, err
	}
	st.blocks[color] = id
	return id, nil
}

func solidFill(color string) excelize.Fill {
	return excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{color}}
}

func borderDefs(style string) []excelize.Border {
	code := 1 // thin
	switch style {
	case "medium":
		code = 2
	case "thick":
		code = 5
	}
	out := make([]excelize.Border, 0, 4)
	for _, side := range []string{"left", "right", "top", "bottom"} {
		out = append(out, excelize.Border{Type: side, Color: "000000", Style: code})
	}
	return out
}

// colorForKey deterministically picks a palette color for a block label.
// FNV keeps the choice stable across runs, unlike map iteration or the
// runtime's randomized hashing.
func colorForKey(key string, palette []string) string {
	if key == "" || len(palette) == 0 {
		return ""
	}
	h := fnv.New32a()
	h.Write([]byte(key))
	return palette[h.Sum32()%uint32(len(palette))]
}

func cellName(col, row int) string {
	name, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		// Only reachable with non-positive coordinates, which the
		// renderer never produces.
		panic(fmt.Sprintf("weekview: bad cell coordinates (%d,%d): %v", col, row, err))
	}
	return name
}
