// Package tools exposes data lake inspection capabilities as self-describing
// operations backed by delegated dbt macros.
package tools

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ParameterType is the JSON schema type of a tool input.
type ParameterType string

const (
	// ParameterTypeString marks a textual input.
	ParameterTypeString ParameterType = "string"
	// ParameterTypeInteger marks a whole number input.
	ParameterTypeInteger ParameterType = "integer"
)

// Tool names published to agent runtimes.
const (
	ListParquetFilesToolName   = "list_parquet_files"
	GetParquetSchemaToolName   = "get_parquet_schema"
	PreviewParquetFileToolName = "preview_parquet_file"
)

// Input names shared by the published tools.
const (
	FolderPathParameter = "folder_path"
	FileNameParameter   = "file_name"
	LimitParameter      = "limit"
)

const (
	// DefaultPreviewLimit is used when a preview request omits the row limit.
	DefaultPreviewLimit = 10
	// MaximumPreviewLimit caps the number of rows a single preview returns.
	MaximumPreviewLimit = 100
	minimumPreviewLimit = 1
)

// IntegerBounds declares the default and the inclusive range of an integer input.
type IntegerBounds struct {
	Default int
	Minimum int
	Maximum int
}

// Parameter describes a single tool input.
type Parameter struct {
	Name        string
	Type        ParameterType
	Description string
	Required    bool
	Bounds      *IntegerBounds
}

// Tool describes a published capability and the delegated operation behind it.
type Tool struct {
	Name        string
	Description string
	Operation   string
	Parameters  []Parameter
}

// InputSchema renders the JSON schema accepted by tool-calling runtimes.
func (tool Tool) InputSchema() map[string]any {
	properties := make(map[string]any, len(tool.Parameters))
	required := make([]string, 0, len(tool.Parameters))
	for _, parameter := range tool.Parameters {
		property := map[string]any{
			"type":        string(parameter.Type),
			"description": parameter.Description,
		}
		if parameter.Bounds != nil {
			property["default"] = parameter.Bounds.Default
			property["minimum"] = parameter.Bounds.Minimum
			property["maximum"] = parameter.Bounds.Maximum
		}
		properties[parameter.Name] = property
		if parameter.Required {
			required = append(required, parameter.Name)
		}
	}
	return map[string]any{
		"type":       "object",
		"properties": properties,
		"required":   required,
	}
}

// DefaultTools returns the data lake inspection tools. previewLimits controls
// the default and the cap of the preview row limit.
func DefaultTools(previewLimits IntegerBounds) []Tool {
	folderPath := Parameter{
		Name:        FolderPathParameter,
		Type:        ParameterTypeString,
		Description: "Folder inside the data lake, relative to the lake root (for example jira/sql)",
		Required:    true,
	}
	fileName := Parameter{
		Name:        FileNameParameter,
		Type:        ParameterTypeString,
		Description: "Parquet file name inside the folder",
		Required:    true,
	}
	limits := previewLimits
	return []Tool{
		{
			Name:        ListParquetFilesToolName,
			Description: "List the parquet files stored in a data lake folder.",
			Operation:   "list_parquet_files",
			Parameters:  []Parameter{folderPath},
		},
		{
			Name:        GetParquetSchemaToolName,
			Description: "Describe the columns of a parquet file as a dbt source YAML definition.",
			Operation:   "get_parquet_schema",
			Parameters:  []Parameter{folderPath, fileName},
		},
		{
			Name:        PreviewParquetFileToolName,
			Description: fmt.Sprintf("Preview rows of a parquet file. Returns %d rows by default and at most %d.", limits.Default, limits.Maximum),
			Operation:   "preview_parquet_file",
			Parameters: []Parameter{
				folderPath,
				fileName,
				{
					Name:        LimitParameter,
					Type:        ParameterTypeInteger,
					Description: "Number of rows to return",
					Bounds:      &limits,
				},
			},
		},
	}
}

// DefaultPreviewBounds returns the built-in preview row limits.
func DefaultPreviewBounds() IntegerBounds {
	return IntegerBounds{Default: DefaultPreviewLimit, Minimum: minimumPreviewLimit, Maximum: MaximumPreviewLimit}
}

// PrepareArguments validates arguments against the declared parameters and
// returns the argument bag to forward, with defaults applied and integers clamped.
func (tool Tool) PrepareArguments(arguments map[string]any) (map[string]any, error) {
	prepared := make(map[string]any, len(arguments)+len(tool.Parameters))
	for key, value := range arguments {
		prepared[key] = value
	}
	for _, parameter := range tool.Parameters {
		value, present := arguments[parameter.Name]
		if present && value == nil {
			present = false
		}
		switch parameter.Type {
		case ParameterTypeString:
			if !present {
				delete(prepared, parameter.Name)
				if parameter.Required {
					return nil, missingArgumentError(tool.Name, parameter.Name)
				}
				continue
			}
			text, isText := value.(string)
			if !isText {
				return nil, fmt.Errorf("argument '%s' for tool '%s' must be a string", parameter.Name, tool.Name)
			}
			if parameter.Required && strings.TrimSpace(text) == "" {
				return nil, missingArgumentError(tool.Name, parameter.Name)
			}
			prepared[parameter.Name] = text
		case ParameterTypeInteger:
			if !present {
				if parameter.Required {
					return nil, missingArgumentError(tool.Name, parameter.Name)
				}
				if parameter.Bounds != nil {
					prepared[parameter.Name] = parameter.Bounds.Default
				} else {
					delete(prepared, parameter.Name)
				}
				continue
			}
			number, convertErr := integerValue(value)
			if convertErr != nil {
				return nil, fmt.Errorf("argument '%s' for tool '%s' must be an integer: %w", parameter.Name, tool.Name, convertErr)
			}
			if parameter.Bounds != nil {
				number = clamp(number, parameter.Bounds.Minimum, parameter.Bounds.Maximum)
			}
			prepared[parameter.Name] = number
		}
	}
	return prepared, nil
}

func missingArgumentError(toolName string, parameterName string) error {
	return fmt.Errorf("missing required argument '%s' for tool '%s'", parameterName, toolName)
}

func integerValue(value any) (int, error) {
	switch typed := value.(type) {
	case int:
		return typed, nil
	case int32:
		return int(typed), nil
	case int64:
		return int(typed), nil
	case float64:
		if math.IsNaN(typed) || math.IsInf(typed, 0) || typed != math.Trunc(typed) {
			return 0, fmt.Errorf("%v is not a whole number", typed)
		}
		if typed > math.MaxInt32 {
			return math.MaxInt32, nil
		}
		if typed < math.MinInt32 {
			return math.MinInt32, nil
		}
		return int(typed), nil
	case json.Number:
		parsed, parseErr := typed.Int64()
		if parseErr != nil {
			return 0, parseErr
		}
		return int(parsed), nil
	case string:
		parsed, parseErr := strconv.Atoi(strings.TrimSpace(typed))
		if parseErr != nil {
			return 0, fmt.Errorf("%q is not a whole number", typed)
		}
		return parsed, nil
	default:
		return 0, fmt.Errorf("unsupported value %v", value)
	}
}

func clamp(value int, minimum int, maximum int) int {
	if maximum >= minimum && value > maximum {
		return maximum
	}
	if value < minimum {
		return minimum
	}
	return value
}
