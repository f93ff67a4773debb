package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"production/pkg/lp"
)

// ModelHash вычисляет хеш модели для ключа кэша.
// Числа записываются в кратчайшей точной форме, так что 4 и 4.0 совпадают.
func ModelHash(model *lp.Model) string {
	if model == nil {
		return ""
	}
	hash := sha256.Sum256(modelToCanonical(model))
	return hex.EncodeToString(hash[:16])
}

// modelToCanonical строит детерминированное представление модели
func modelToCanonical(model *lp.Model) []byte {
	var b strings.Builder

	fmt.Fprintf(&b, "n:%d;c:", model.NumVars())
	writeFloats(&b, model.Objective())
	b.WriteByte(';')

	for i := 0; i < model.NumConstraints(); i++ {
		c := model.Constraint(i)
		b.WriteString("r:")
		writeFloats(&b, c.Coefficients)
		b.WriteString(string(c.Relation))
		b.WriteString(strconv.FormatFloat(c.RHS, 'g', -1, 64))
		b.WriteByte(';')
	}
	return []byte(b.String())
}

func writeFloats(b *strings.Builder, vs []float64) {
	for i, v := range vs {
		if i > 0 {
			b.WriteByte(',')
		}
		// -0 и 0 дают одинаковый ключ
		if v == 0 {
			v = 0
		}
		b.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
	}
}

// BuildAnalysisKey строит ключ кэша для результата анализа
func BuildAnalysisKey(modelHash, solver string) string {
	return fmt.Sprintf("analysis:%s:%s", solver, modelHash)
}

// BuildAnalysisKeyWithOptions строит ключ с учётом параметров поиска
func BuildAnalysisKeyWithOptions(modelHash, solver, optionsHash string) string {
	if optionsHash == "" {
		return BuildAnalysisKey(modelHash, solver)
	}
	return fmt.Sprintf("analysis:%s:%s:%s", solver, modelHash, optionsHash)
}

// ShortHash короткий хеш (16 символов)
func ShortHash(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:8])
}
