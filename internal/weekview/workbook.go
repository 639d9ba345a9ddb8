package weekview

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// Policy selects how calendars' grids are assigned to workbooks/sheets.
type Policy int

const (
	// PolicySingleSheet emits only the selected calendar's grid, as the
	// single sheet of one workbook.
	PolicySingleSheet Policy = iota
	// PolicySingleWorkbook emits every calendar as one sheet of one
	// workbook, in calendar definition order.
	PolicySingleWorkbook
	// PolicyWorkbookPerCalendar emits one single-sheet workbook per
	// calendar, named after the calendar.
	PolicyWorkbookPerCalendar
)

// Sheet is one named grid slot inside a workbook.
type Sheet struct {
	Name string
	Grid *Grid
}

// Workbook is one output document. Name is the destination path.
type Workbook struct {
	Name   string
	Sheets []Sheet
}

// Compose assigns already-computed grids to (workbook, sheet) slots. It
// performs no layout work. order lists calendar names in definition
// order; target is the output path (a file for single-workbook policies,
// a directory for PolicyWorkbookPerCalendar).
func Compose(order []string, grids map[string]*Grid, policy Policy, target string) []Workbook {
	switch policy {
	case PolicySingleWorkbook:
		wb := Workbook{Name: target}
		used := make(map[string]bool)
		for _, name := range order {
			grid, ok := grids[name]
			if !ok {
				continue
			}
			wb.Sheets = append(wb.Sheets, Sheet{
				Name: SafeSheetTitle(name, used),
				Grid: grid,
			})
		}
		return []Workbook{wb}

	case PolicyWorkbookPerCalendar:
		out := make([]Workbook, 0, len(order))
		for _, name := range order {
			grid, ok := grids[name]
			if !ok {
				continue
			}
			out = append(out, Workbook{
				Name: filepath.Join(target, name+".xlsx"),
				Sheets: []Sheet{{
					Name: SafeSheetTitle(name, map[string]bool{}),
					Grid: grid,
				}},
			})
		}
		return out

	default: // PolicySingleSheet
		for _, name := range order {
			grid, ok := grids[name]
			if !ok {
				continue
			}
			return []Workbook{{
				Name: target,
				Sheets: []Sheet{{
					Name: SafeSheetTitle(name, map[string]bool{}),
					Grid: grid,
				}},
			}}
		}
		return nil
	}
}

var invalidSheetChars = regexp.MustCompile(`[\\/*?:\[\]]`)

// SafeSheetTitle sanitizes a calendar name into a legal, unique Excel
// sheet title: max 31 characters, no \ / * ? : [ ], deduplicated with a
// _2, _3, ... suffix against the used set. The limit counts characters,
// not bytes, so multi-byte names truncate on rune boundaries.
func SafeSheetTitle(title string, used map[string]bool) string {
	base := []rune(invalidSheetChars.ReplaceAllString(strings.TrimSpace(title), "_"))
	if len(base) == 0 {
		base = []rune("Sheet")
	}
	if len(base) > 31 {
		base = base[:31]
	}

	candidate := string(base)
	for i := 2; used[candidate]; i++ {
		suffix := "_" + strconv.Itoa(i)
		keep := 31 - len(suffix)
		if keep < 0 {
			keep = 0
		}
		if keep > len(base) {
			keep = len(base)
		}
		candidate = string(base[:keep]) + suffix
	}
	used[candidate] = true
	return candidate
}
