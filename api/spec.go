package api

import (
	"context"
	_ "embed"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"
)

//go:embed api.yaml
var specYAML []byte

var (
	swagger     *openapi3.T
	swaggerErr  error
	swaggerOnce sync.Once
)

// GetSwagger returns the parsed and validated OpenAPI document of the API.
func GetSwagger() (*openapi3.T, error) {
	swaggerOnce.Do(func() {
		loader := openapi3.NewLoader()

		swagger, swaggerErr = loader.LoadFromData(specYAML)
		if swaggerErr != nil {
			return
		}

		swaggerErr = swagger.Validate(context.Background())
	})

	return swagger, swaggerErr
}
