package llm

// SchemaType is a JSON-schema primitive type
type SchemaType string

const (
	TypeObject  SchemaType = "object"
	TypeString  SchemaType = "string"
	TypeArray   SchemaType = "array"
	TypeInteger SchemaType = "integer"
	TypeNumber  SchemaType = "number"
	TypeBoolean SchemaType = "boolean"
)

// Schema is the JSON-schema subset that every provider understands
type Schema struct {
	Type        SchemaType         `json:"type"`
	Description string             `json:"description,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
	Required    []string           `json:"required,omitempty"`
	Enum        []string           `json:"enum,omitempty"`
}

// Object builds an object schema
func Object(properties map[string]*Schema, required ...string) *Schema {
	return &Schema{Type: TypeObject, Properties: properties, Required: required}
}

// String builds a string schema
func String(description string) *Schema {
	return &Schema{Type: TypeString, Description: description}
}

// ArrayOf builds an array schema
func ArrayOf(items *Schema, description string) *Schema {
	return &Schema{Type: TypeArray, Items: items, Description: description}
}

// TitlesSchema is the structured reply used to pick source titles
var TitlesSchema = Object(map[string]*Schema{
	"titles": ArrayOf(String("Exacte titel van een bron"), "Lijst met exacte brontitels"),
}, "titles")

// Titles is the Go shape of TitlesSchema
type Titles struct {
	Titles []string `json:"titles"`
}
