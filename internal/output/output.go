// Package output renders command results in the formats accepted by --format.
package output

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"strings"
)

// Format names an output encoding.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatXML  Format = "xml"
)

const (
	indentPrefix = ""
	indentSpacer = "  "

	xmlHeader      = xml.Header
	xmlRootElement = "result"
)

// Formats lists the accepted formats in help order.
func Formats() []Format {
	return []Format{FormatText, FormatJSON, FormatXML}
}

// ParseFormat validates a --format value. Matching ignores case.
func ParseFormat(value string) (Format, error) {
	normalized := Format(strings.ToLower(strings.TrimSpace(value)))
	for _, format := range Formats() {
		if normalized == format {
			return format, nil
		}
	}
	return "", fmt.Errorf("unsupported output format %q (expected text, json or xml)", value)
}

// Document is the result of one command. Items keep their order; a multi-line
// tool payload is a single item.
type Document struct {
	XMLName xml.Name `json:"-" xml:"result"`
	Command string   `json:"command" xml:"command,attr"`
	Items   []string `json:"items" xml:"item"`
}

// Render encodes document in format. Text output joins the items with
// newlines and carries no trailing newline.
func Render(format Format, document Document) (string, error) {
	if document.Items == nil {
		document.Items = []string{}
	}
	switch format {
	case FormatText, "":
		return strings.Join(document.Items, "\n"), nil
	case FormatJSON:
		encoded, err := json.MarshalIndent(document, indentPrefix, indentSpacer)
		if err != nil {
			return "", fmt.Errorf("encode %s result as json: %w", document.Command, err)
		}
		return string(encoded), nil
	case FormatXML:
		document.XMLName = xml.Name{Local: xmlRootElement}
		var buffer bytes.Buffer
		buffer.WriteString(xmlHeader)
		encoder := xml.NewEncoder(&buffer)
		encoder.Indent(indentPrefix, indentSpacer)
		if err := encoder.Encode(document); err != nil {
			return "", fmt.Errorf("encode %s result as xml: %w", document.Command, err)
		}
		return buffer.String(), nil
	default:
		return "", fmt.Errorf("unsupported output format %q", format)
	}
}
