package constants

import "fmt"

// Series codes partition independent numbering streams.
const (
	SeriesCamera   = "A" // fixed speed camera acts
	SeriesInPerson = "P" // acts issued in person by an agent
)

// Document filename prefixes per series.
const (
	PrefixCamera   = "ACTA"
	PrefixInPerson = "PRES"
)

// SequenceWidth is the zero-padded width of the correlative number.
const SequenceWidth = 7

// ActNumber formats the public identifier of an act: series + '-' + zero-padded sequence.
func ActNumber(series string, sequence int64) string {
	return fmt.Sprintf("%s-%0*d", series, SequenceWidth, sequence)
}

// DocumentFilename returns {PREFIX}-{actNumber}.{ext}.
func DocumentFilename(prefix, actNumber string, kind DocumentKind) string {
	return fmt.Sprintf("%s-%s.%s", prefix, actNumber, kind.Ext())
}
