package openapi

import (
	_ "embed"
	"encoding/json"
	"fmt"
)

//go:embed api.swagger.json
var document []byte

// Spec возвращает OpenAPI документ сервиса; непустая версия
// подставляется в info.version
func Spec(version string) ([]byte, error) {
	if version == "" {
		return document, nil
	}

	var doc map[string]any
	if err := json.Unmarshal(document, &doc); err != nil {
		return nil, fmt.Errorf("parse openapi document: %w", err)
	}
	info, ok := doc["info"].(map[string]any)
	if !ok {
		info = map[string]any{}
		doc["info"] = info
	}
	info["version"] = version

	return json.Marshal(doc)
}
