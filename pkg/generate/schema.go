package generate

import (
	"github.com/invopop/jsonschema"

	"storyloom/pkg/utils"
)

// schemaFor reflects a JSON schema for T, rendered as pretty JSON so it can
// be embedded directly in a prompt. Every provider goes through the plain
// text surface, so the schema rides in the prompt rather than in a
// provider-specific response-format parameter.
func schemaFor[T any]() string {
	r := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	return utils.PrettyJSON(r.Reflect(v))
}

var (
	profileSchema = schemaFor[Profile]()
	scenesSchema  = schemaFor[sceneList]()
)
