// Package migrations содержит SQL миграции схемы истории анализов.
package migrations

import "embed"

// FS - встроенные файлы миграций goose
//
//go:embed *.sql
var FS embed.FS

// Dir - каталог миграций внутри FS
const Dir = "."
