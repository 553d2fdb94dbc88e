package camara

import (
	"embed"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schemas/*.json
var schemaFS embed.FS

var (
	proposicoesSchema = mustSchema("proposicoes.json")
	proposicaoSchema  = mustSchema("proposicao.json")
	votacoesSchema    = mustSchema("votacoes.json")
	votosSchema       = mustSchema("votos.json")
	tramitacoesSchema = mustSchema("tramitacoes.json")
)

func mustSchema(name string) *gojsonschema.Schema {
	raw, err := schemaFS.ReadFile("schemas/" + name)
	if err != nil {
		panic(fmt.Sprintf("read schema %s: %v", name, err))
	}
	schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		panic(fmt.Sprintf("compile schema %s: %v", name, err))
	}
	return schema
}

// SchemaError reports an upstream payload that does not match its envelope.
type SchemaError struct {
	Path   string
	Issues []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("camara %s: invalid payload: %s", e.Path, strings.Join(e.Issues, "; "))
}

func validate(schema *gojsonschema.Schema, path string, body []byte) error {
	result, err := schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		// Not JSON at all.
		return &SchemaError{Path: path, Issues: []string{err.Error()}}
	}
	if result.Valid() {
		return nil
	}
	issues := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		issues = append(issues, e.String())
	}
	return &SchemaError{Path: path, Issues: issues}
}
