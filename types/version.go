package types

// Version is the canonical project version shared by the CLI, journal format,
// and storage records.
const Version = "0.3.0"

// JournalVersion is the journal framing version written in every frame.
const JournalVersion = "1"
