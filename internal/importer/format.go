package importer

import (
	"path/filepath"
	"strings"

	"student-result-system/pkg/errors"
)

type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

var extensions = map[string]Format{
	".csv":  FormatCSV,
	".xlsx": FormatXLSX,
	".xlsm": FormatXLSX,
}

// DetectFormat picks the reader from the file extension. The legacy binary
// .xls format is not readable and is rejected with the other unknown types.
func DetectFormat(filename string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if f, ok := extensions[ext]; ok {
		return f, nil
	}
	return "", errors.ErrUnsupportedFileType
}
