package schema

import "strconv"

// Axis is one resolved row or column of a matrix field.
type Axis struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// MatrixAxes resolves the rows and columns of a table or grid-table field.
// Table rows are positional; table columns take their headings when present.
func MatrixAxes(f Field) (rows, cols []Axis) {
	switch c := f.Config.(type) {
	case GridConfig:
		for i, item := range c.Items {
			rows = append(rows, Axis{Key: RowKey(item, i), Label: RowLabel(item, i)})
		}
		for i, col := range c.Columns {
			cols = append(cols, Axis{Key: ColumnKey(col, i), Label: ColumnText(col, i)})
		}
	case TableConfig:
		for i := 0; i < c.Rows; i++ {
			rows = append(rows, Axis{Key: SyntheticRowKey(i), Label: "Row " + strconv.Itoa(i+1)})
		}
		for i := 0; i < c.Columns; i++ {
			label := "Column " + strconv.Itoa(i+1)
			if i < len(c.Headings) && c.Headings[i] != "" {
				label = c.Headings[i]
			}
			cols = append(cols, Axis{Key: SyntheticColumnKey(i), Label: label})
		}
	}
	return rows, cols
}

// AxisLabel returns the label for key, or "" when key is not declared.
func AxisLabel(axes []Axis, key string) string {
	for _, a := range axes {
		if a.Key == key {
			return a.Label
		}
	}
	return ""
}
