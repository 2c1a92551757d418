package backend

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"
)

//go:embed openapi.yaml
var openapiSpec []byte

// Имена схем ответов в components.schemas.
const (
	SchemaUser         = "User"
	SchemaUserEnvelope = "UserEnvelope"
	SchemaAuthResponse = "AuthResponse"
)

// Contract — контракт ответов backend, загруженный из встроенного OpenAPI-документа.
type Contract struct {
	doc *openapi3.T
}

// authPaths — пути auth API, которые использует Client.
var authPaths = []string{PathLogin, PathRegister, PathMe, PathProfile, PathChangePassword, PathLogout}

// LoadContract разбирает и валидирует встроенный OpenAPI-документ.
// Документ обязан описывать все пути auth API клиента.
func LoadContract() (*Contract, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(openapiSpec)
	if err != nil {
		return nil, fmt.Errorf("загрузка OpenAPI-контракта: %w", err)
	}
	if err := doc.Validate(context.Background()); err != nil {
		return nil, fmt.Errorf("невалидный OpenAPI-контракт: %w", err)
	}
	c := &Contract{doc: doc}
	for _, p := range authPaths {
		if !c.hasPath(p) {
			return nil, fmt.Errorf("OpenAPI-контракт не описывает путь %s", p)
		}
	}
	return c, nil
}

// Validate проверяет JSON-тело ответа по схеме name.
// Несоответствие возвращается как ErrMalformedResponse.
func (c *Contract) Validate(name string, body []byte) error {
	ref, ok := c.doc.Components.Schemas[name]
	if !ok || ref.Value == nil {
		return fmt.Errorf("схема %q отсутствует в контракте", name)
	}

	var value any
	if err := json.Unmarshal(body, &value); err != nil {
		return fmt.Errorf("%w: тело не является JSON: %v", ErrMalformedResponse, err)
	}
	if err := ref.Value.VisitJSON(value); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformedResponse, name, err)
	}
	return nil
}

// hasPath проверяет, описан ли путь в контракте.
func (c *Contract) hasPath(path string) bool {
	return c.doc.Paths.Find(path) != nil
}
