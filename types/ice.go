package types

import "fmt"

// IceMessageType is the severity column of an ICE message.
type IceMessageType int

// ICE message severities as emitted by validation actions.
const (
	IceFailure     IceMessageType = 0
	IceError       IceMessageType = 1
	IceWarning     IceMessageType = 2
	IceInformation IceMessageType = 3
)

// String returns the lowercase severity name.
func (t IceMessageType) String() string {
	switch t {
	case IceFailure:
		return "failure"
	case IceError:
		return "error"
	case IceWarning:
		return "warning"
	case IceInformation:
		return "information"
	default:
		return fmt.Sprintf("type(%d)", int(t))
	}
}

// IceMessage is a structured validation message reported by an ICE action.
type IceMessage struct {
	// Name is the ICE that reported the message, e.g. "ICE03".
	Name string `msgpack:"name" json:"name" yaml:"name"`
	// Type is the message severity.
	Type IceMessageType `msgpack:"type" json:"type" yaml:"type"`
	// Description is the human-readable message text.
	Description string `msgpack:"description" json:"description" yaml:"description"`
	// HelpLocation is an optional help URL or topic.
	HelpLocation string `msgpack:"help_location,omitempty" json:"help_location,omitempty" yaml:"help_location,omitempty"`
	// Table names the table holding the offending row, if any.
	Table string `msgpack:"table,omitempty" json:"table,omitempty" yaml:"table,omitempty"`
	// Column names the offending column, if any.
	Column string `msgpack:"column,omitempty" json:"column,omitempty" yaml:"column,omitempty"`
	// PrimaryKeys identifies the offending row.
	PrimaryKeys []string `msgpack:"primary_keys,omitempty" json:"primary_keys,omitempty" yaml:"primary_keys,omitempty"`
	// Path is the package the message was reported against.
	Path string `msgpack:"path,omitempty" json:"path,omitempty" yaml:"path,omitempty"`
}
