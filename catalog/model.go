package catalog

// Column describes one column of an external table.
type Column struct {
	ColumnName  string `json:"column_name" yaml:"column_name" validate:"required"`
	DataType    string `json:"data_type" yaml:"data_type" validate:"required"`
	Description string `json:"description" yaml:"description"`
}

// Entry is one catalog row: the metadata of a single external table.
type Entry struct {
	ID          int64    `json:"id" yaml:"id"`
	TableName   string   `json:"table_name" yaml:"table_name" validate:"required,max=100"`
	Description string   `json:"description" yaml:"description" validate:"required"`
	Columns     []Column `json:"columns" yaml:"columns" validate:"dive"`
}
