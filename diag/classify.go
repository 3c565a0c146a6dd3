// Package diag classifies engine diagnostic records into host error
// categories and wraps them as Go errors.
package diag

import "github.com/justapithecus/msival/types"

// Installer-standard diagnostic codes live in [minCode, maxCode).
const (
	minCode = 1000
	maxCode = 25000
)

// categoryByCode is the engine's code→category table. Codes not listed are
// Unspecified even when a resource key was resolved.
var categoryByCode = map[int]types.Category{
	1101: types.CategoryOpenError,
	1309: types.CategoryOpenError,
	1319: types.CategoryOpenError,

	1301: types.CategoryWriteError,
	1304: types.CategoryWriteError,
	1306: types.CategoryWriteError,
	1310: types.CategoryWriteError,
	1312: types.CategoryWriteError,
	1315: types.CategoryWriteError,
	1317: types.CategoryWriteError,
	1318: types.CategoryWriteError,

	1303: types.CategoryPermissionDenied,

	1305: types.CategoryReadError,
	1316: types.CategoryReadError,

	1308: types.CategoryObjectNotFound,
	1311: types.CategoryObjectNotFound,
	1313: types.CategoryObjectNotFound,
	1314: types.CategoryObjectNotFound,

	1320: types.CategoryInvalidData,
}

// Classify maps a diagnostic record to a category and resource key.
// An empty resource key means none applies. Classify is pure.
//
// Field 1 holds the code. Most diagnostics name the resource in field 2;
// codes 1935-1938 (assembly failures) name it in field 6.
func Classify(rec *types.Record) (types.Category, string) {
	if rec.FieldCount() < 2 {
		return types.CategoryUnspecified, ""
	}

	code := rec.Integer(1)
	if code < minCode || code >= maxCode {
		return types.CategoryUnspecified, ""
	}

	if code >= 1935 && code <= 1938 && rec.FieldCount() >= 6 {
		return types.CategoryInvalidData, rec.String(6)
	}

	resource := rec.String(2)
	if cat, ok := categoryByCode[code]; ok {
		return cat, resource
	}
	return types.CategoryUnspecified, resource
}

// Code returns the diagnostic code in field 1, or 0 when the record has no
// integer code.
func Code(rec *types.Record) int {
	if rec.FieldCount() < 1 {
		return 0
	}
	code := rec.Integer(1)
	if code == types.NullInteger {
		return 0
	}
	return code
}
