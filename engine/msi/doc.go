// Package msi implements engine.Engine over the Windows Installer API in
// msi.dll. On other platforms New returns engine.ErrUnsupported.
package msi

// Ruleset file name of the standard ICE validation suite.
const defaultRulesetName = "darice.cub"
