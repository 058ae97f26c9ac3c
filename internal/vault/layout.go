// Package vault maps Data Vault entities to their canonical locations inside a
// dbt project.
package vault

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

// Kind identifies a modeling artifact kind.
type Kind string

const (
	KindStaging              Kind = "staging"
	KindHub                  Kind = "hub"
	KindSatellite            Kind = "satellite"
	KindEffectivitySatellite Kind = "effectivity_satellite"
	KindLink                 Kind = "link"
	KindPointInTime          Kind = "pit"
	KindMart                 Kind = "mart"
)

const (
	// DefaultModelsDirectory is the dbt models directory relative to the project root.
	DefaultModelsDirectory = "models"

	stagingDirectory       = "staging"
	rawVaultDirectory      = "raw_vault"
	businessVaultDirectory = "business_vault"
	martsDirectory         = "marts"
	sourcesFileName        = "sources.yml"
	schemaFileName         = "schema.yml"
	modelFileExtension     = ".sql"
)

// kindConvention is the filename prefix and directory of one artifact kind.
// The directory is relative to the concept directory for concept-scoped kinds
// and to the models directory otherwise.
type kindConvention struct {
	prefix        string
	directory     string
	conceptScoped bool
}

var kindConventions = map[Kind]kindConvention{
	KindStaging:              {prefix: "stg_", directory: stagingDirectory},
	KindHub:                  {prefix: "hub_", directory: "hubs", conceptScoped: true},
	KindSatellite:            {prefix: "sat_", directory: "satellites", conceptScoped: true},
	KindEffectivitySatellite: {prefix: "eff_sat_", directory: "satellites", conceptScoped: true},
	KindLink:                 {prefix: "link_", directory: "links", conceptScoped: true},
	KindPointInTime:          {prefix: "pit_", directory: businessVaultDirectory + "/pit"},
	KindMart:                 {prefix: "mart_", directory: martsDirectory},
}

var kindAliases = map[string]Kind{
	"staging":               KindStaging,
	"stg":                   KindStaging,
	"hub":                   KindHub,
	"satellite":             KindSatellite,
	"sat":                   KindSatellite,
	"effectivity_satellite": KindEffectivitySatellite,
	"effectivity-satellite": KindEffectivitySatellite,
	"eff_sat":               KindEffectivitySatellite,
	"link":                  KindLink,
	"lnk":                   KindLink,
	"pit":                   KindPointInTime,
	"point_in_time":         KindPointInTime,
	"mart":                  KindMart,
}

// Kinds lists every artifact kind in layer order.
func Kinds() []Kind {
	return []Kind{KindStaging, KindHub, KindSatellite, KindEffectivitySatellite, KindLink, KindPointInTime, KindMart}
}

// ParseKind resolves a kind name or alias.
func ParseKind(value string) (Kind, error) {
	kind, found := kindAliases[strings.ToLower(strings.TrimSpace(value))]
	if !found {
		return "", fmt.Errorf("unknown entity kind %q", value)
	}
	return kind, nil
}

// ConceptScoped reports whether files of the kind live under a concept directory.
func (kind Kind) ConceptScoped() bool {
	return kindConventions[kind].conceptScoped
}

// Prefix returns the filename prefix of the kind.
func (kind Kind) Prefix() string {
	return kindConventions[kind].prefix
}

// Entity identifies one artifact to locate.
type Entity struct {
	Kind         Kind
	Name         string
	Concept      string
	Subdirectory string
}

// Layout resolves canonical paths. It performs no I/O and holds no state
// beyond its configuration, so equal entities always resolve to equal paths.
type Layout struct {
	ModelsDirectory string
	DefaultConcept  string
}

// NewLayout builds a Layout with the default models directory.
func NewLayout(defaultConcept string) Layout {
	return Layout{ModelsDirectory: DefaultModelsDirectory, DefaultConcept: defaultConcept}
}

// ErrConceptRequired is returned when a concept-scoped entity has no concept and no default is configured.
var ErrConceptRequired = errors.New("concept is required for raw vault entities")

// Resolve returns the slash-separated path of entity relative to the project root.
func (layout Layout) Resolve(entity Entity) (string, error) {
	name, nameErr := normalizeSegment("name", entity.Name)
	if nameErr != nil {
		return "", nameErr
	}
	if name == "" {
		return "", errors.New("entity name is required")
	}
	kindDirectory, directoryErr := layout.KindDirectory(entity.Kind, entity.Concept)
	if directoryErr != nil {
		return "", directoryErr
	}
	subdirectory, subdirectoryErr := normalizeSubdirectory(entity.Subdirectory)
	if subdirectoryErr != nil {
		return "", subdirectoryErr
	}
	fileName := entity.Kind.Prefix() + strings.TrimPrefix(name, entity.Kind.Prefix()) + modelFileExtension
	return path.Join(kindDirectory, subdirectory, fileName), nil
}

// KindDirectory returns the directory holding files of kind for concept.
func (layout Layout) KindDirectory(kind Kind, concept string) (string, error) {
	convention, known := kindConventions[kind]
	if !known {
		return "", fmt.Errorf("unknown entity kind %q", kind)
	}
	if !convention.conceptScoped {
		return path.Join(layout.modelsDirectory(), convention.directory), nil
	}
	resolvedConcept, conceptErr := layout.concept(concept)
	if conceptErr != nil {
		return "", conceptErr
	}
	return path.Join(layout.RawVaultDirectory(), resolvedConcept, convention.directory), nil
}

// RawVaultDirectory holds one subdirectory per concept.
func (layout Layout) RawVaultDirectory() string {
	return path.Join(layout.modelsDirectory(), rawVaultDirectory)
}

// SourcesFile is the source catalog describing the data lake tables.
func (layout Layout) SourcesFile() string {
	return path.Join(layout.modelsDirectory(), stagingDirectory, sourcesFileName)
}

// SchemaFile is the model-test catalog stored next to models of kind.
func (layout Layout) SchemaFile(kind Kind, concept string) (string, error) {
	kindDirectory, directoryErr := layout.KindDirectory(kind, concept)
	if directoryErr != nil {
		return "", directoryErr
	}
	return path.Join(kindDirectory, schemaFileName), nil
}

// ModelName returns the dbt model name, which is the file name without extension.
func ModelName(modelPath string) string {
	return strings.TrimSuffix(path.Base(modelPath), modelFileExtension)
}

func (layout Layout) modelsDirectory() string {
	if strings.TrimSpace(layout.ModelsDirectory) == "" {
		return DefaultModelsDirectory
	}
	return path.Clean(strings.ReplaceAll(layout.ModelsDirectory, `\`, "/"))
}

func (layout Layout) concept(concept string) (string, error) {
	resolved, conceptErr := normalizeSegment("concept", concept)
	if conceptErr != nil {
		return "", conceptErr
	}
	if resolved != "" {
		return resolved, nil
	}
	fallback, fallbackErr := normalizeSegment("default concept", layout.DefaultConcept)
	if fallbackErr != nil {
		return "", fallbackErr
	}
	if fallback == "" {
		return "", ErrConceptRequired
	}
	return fallback, nil
}

func normalizeSegment(label string, value string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if strings.ContainsAny(normalized, `/\`) || normalized == "." || normalized == ".." {
		return "", fmt.Errorf("%s %q must be a single path segment", label, value)
	}
	return normalized, nil
}

func normalizeSubdirectory(value string) (string, error) {
	trimmed := strings.Trim(strings.ReplaceAll(strings.TrimSpace(value), `\`, "/"), "/")
	if trimmed == "" {
		return "", nil
	}
	segments := strings.Split(trimmed, "/")
	for index, segment := range segments {
		normalized, segmentErr := normalizeSegment("subdirectory", segment)
		if segmentErr != nil {
			return "", segmentErr
		}
		if normalized == "" {
			return "", fmt.Errorf("subdirectory %q contains an empty segment", value)
		}
		segments[index] = normalized
	}
	return strings.Join(segments, "/"), nil
}
