package export

import "fmt"

// Dataset defines tabular export content.
type Dataset struct {
	Headers []string
	Rows    []map[string]string
}

// Section is a titled table inside a report.
type Section struct {
	Title string
	Data  Dataset
}

// Report is an ordered collection of sections rendered into a single file.
type Report struct {
	Title    string
	Sections []Section
}

// Renderer turns a report into file bytes.
type Renderer interface {
	Render(report Report) ([]byte, error)
	ContentType() string
	Extension() string
}

func (r Report) validate(format string) error {
	if len(r.Sections) == 0 {
		return fmt.Errorf("%s requires at least one section", format)
	}
	for _, section := range r.Sections {
		if len(section.Data.Headers) == 0 {
			return fmt.Errorf("%s section %q requires at least one header", format, section.Title)
		}
	}
	return nil
}

func (d Dataset) record(row map[string]string) []string {
	record := make([]string, len(d.Headers))
	for i, header := range d.Headers {
		record[i] = row[header]
	}
	return record
}
