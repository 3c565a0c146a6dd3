package ice

import (
	"strconv"
	"strings"

	"github.com/justapithecus/msival/types"
)

// Minimum column count of a structured ICE message:
// name, type, description.
const minColumns = 3

// ParseMessage interprets text reported by an ICE action.
//
// Structured messages are tab-delimited:
//
//	Name \t Type \t Description \t HelpLocation \t Table \t Column \t Key...
//
// Text that does not follow this layout yields an Information message whose
// description is the raw text. path annotates the message with its source.
func ParseMessage(text, path string) types.IceMessage {
	text = strings.TrimRight(text, "\r\n")
	cols := strings.Split(text, "\t")
	if len(cols) < minColumns {
		return rawMessage(text, path)
	}

	typ, err := strconv.Atoi(strings.TrimSpace(cols[1]))
	if err != nil || typ < int(types.IceFailure) || typ > int(types.IceInformation) {
		return rawMessage(text, path)
	}

	msg := types.IceMessage{
		Name:        cols[0],
		Type:        types.IceMessageType(typ),
		Description: cols[2],
		Path:        path,
	}
	if len(cols) > 3 {
		msg.HelpLocation = cols[3]
	}
	if len(cols) > 4 {
		msg.Table = cols[4]
	}
	if len(cols) > 5 {
		msg.Column = cols[5]
	}
	if len(cols) > 6 {
		msg.PrimaryKeys = append([]string(nil), cols[6:]...)
	}
	return msg
}

func rawMessage(text, path string) types.IceMessage {
	return types.IceMessage{
		Type:        types.IceInformation,
		Description: text,
		Path:        path,
	}
}
